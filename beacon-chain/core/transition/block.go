package transition

import (
	"github.com/prysmaticlabs/beacon-core/beacon-chain/state"
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// ExternalData carries the results of the two external collaborators the
// block pipeline consults mid-transition: the execution engine and the DA
// engine, per spec.md §4.1 Public operations.
type ExternalData struct {
	ExecutionPayloadStatus primitives.ExecutionStatus
	DataAvailabilityStatus primitives.DataAvailabilityStatus
}

// Options mirrors spec.md §4.1's stateTransition opts.
type Options struct {
	VerifyStateRoot bool
	VerifyProposer  bool
	VerifySignatures bool
	External        ExternalData
}

// proposerRewardAccumulator sums proposer rewards across every operation
// processed within a single processBlock call, added once at the end per
// spec.md §4.1 "Numeric and ordering semantics".
type proposerRewardAccumulator struct {
	total uint64
}

func (p *proposerRewardAccumulator) add(reward uint64) { p.total += reward }

// ProcessBlock applies, in order: block-header, RANDAO, eth1-data,
// operations, sync-aggregate, withdrawals, execution-payload — per spec.md
// §4.1 "processBlock(S, B, opts)".
func ProcessBlock(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options) error {
	if b == nil || b.Body == nil {
		return invalid(KindUnknown, "nil block")
	}
	reward := &proposerRewardAccumulator{}

	if err := processBlockHeader(cs, b, opts); err != nil {
		return err
	}
	if err := processRandao(cs, b, opts); err != nil {
		return err
	}
	processEth1Data(cs, b)
	if err := processOperations(cs, b, opts, reward); err != nil {
		return err
	}
	if params.IsPostAltair(b.Version) {
		if err := processSyncAggregate(cs, b, opts, reward); err != nil {
			return err
		}
	}
	if params.IsPostCapella(b.Version) {
		applyExpectedWithdrawals(cs.State())
	}
	if params.IsPostBellatrix(b.Version) {
		if err := processExecutionPayload(cs, b, opts); err != nil {
			return err
		}
	}

	s := cs.State()
	idx := b.Header.ProposerIndex
	if int(idx) < len(s.Balances) {
		s.Balances[idx] += reward.total
	}
	return nil
}

func processBlockHeader(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options) error {
	s := cs.State()
	if b.Header.Slot != s.Slot {
		return invalid(KindUnknown, "block slot does not match state slot")
	}
	if b.Header.ParentRoot != s.BlockRoots.At(s.Slot.SafeSub(1)) {
		return invalid(KindUnknown, "block parent root mismatch")
	}
	if opts.VerifyProposer {
		if int(b.Header.ProposerIndex) >= len(s.Validators) {
			return invalid(KindUnknown, "proposer index out of range")
		}
		if s.Validators[b.Header.ProposerIndex].Slashed {
			return invalid(KindProposerSlashed, "proposer is slashed")
		}
	}
	s.BlockRoots.Set(s.Slot, b.Header.ParentRoot)
	return nil
}

func processRandao(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options) error {
	if opts.VerifySignatures {
		// Signature verification itself is the external BLS collaborator's
		// responsibility per spec.md §1; this only guards the call site.
		if b.Signature == ([96]byte{}) {
			return invalid(KindSignatureInvalid, "missing randao reveal")
		}
	}
	s := cs.State()
	epoch := params.SlotToEpoch(s.Slot)
	mixSlot := primitives.Slot(uint64(epoch) * uint64(params.BeaconConfig().SlotsPerEpoch))
	prevMix := s.RandaoMixes.At(mixSlot)
	mixed := xorMix(prevMix, b.Body.RandaoReveal)
	s.RandaoMixes.Set(mixSlot, mixed)
	return nil
}

func xorMix(prev primitives.Root, reveal [96]byte) primitives.Root {
	var out primitives.Root
	for i := range out {
		out[i] = prev[i] ^ reveal[i%len(reveal)]
	}
	return out
}

func processEth1Data(cs *state.CachedState, b *blocks.SignedBeaconBlock) {
	// Eth1 deposit-root voting lives in the external execution-chain
	// collaborator (spec.md §1); here it is a pure pass-through.
}

func processOperations(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options, reward *proposerRewardAccumulator) error {
	for _, ps := range b.Body.ProposerSlashings {
		if err := processProposerSlashing(cs, ps, reward); err != nil {
			return err
		}
	}
	for _, as := range b.Body.AttesterSlashings {
		if err := processAttesterSlashing(cs, as, reward); err != nil {
			return err
		}
	}
	for _, att := range b.Body.Attestations {
		if err := processAttestation(cs, att, opts, reward); err != nil {
			return err
		}
	}
	for _, d := range b.Body.Deposits {
		if err := processDeposit(cs, d); err != nil {
			return err
		}
	}
	for _, ve := range b.Body.VoluntaryExits {
		if err := processVoluntaryExit(cs, ve); err != nil {
			return err
		}
	}
	for _, c := range b.Body.BLSToExecutionChanges {
		if err := processBLSToExecutionChange(cs, c); err != nil {
			return err
		}
	}
	if params.IsPostElectra(b.Version) {
		for _, c := range b.Body.Consolidations {
			if err := processConsolidation(cs, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func processProposerSlashing(cs *state.CachedState, ps *blocks.ProposerSlashing, reward *proposerRewardAccumulator) error {
	s := cs.State()
	if ps.Header1 == nil || ps.Header2 == nil || ps.Header1.Slot != ps.Header2.Slot ||
		ps.Header1.ProposerIndex != ps.Header2.ProposerIndex || *ps.Header1 == *ps.Header2 {
		return invalid(KindSlashingInvalid, "malformed proposer slashing")
	}
	idx := ps.Header1.ProposerIndex
	if int(idx) >= len(s.Validators) {
		return invalid(KindSlashingInvalid, "unknown proposer index")
	}
	slashValidator(s, idx, reward)
	return nil
}

func processAttesterSlashing(cs *state.CachedState, as *blocks.AttesterSlashing, reward *proposerRewardAccumulator) error {
	s := cs.State()
	if as.Attestation1 == nil || as.Attestation2 == nil {
		return invalid(KindSlashingInvalid, "malformed attester slashing")
	}
	intersecting := intersectIndices(as.Attestation1.AttestingIndices, as.Attestation2.AttestingIndices)
	if len(intersecting) == 0 {
		return invalid(KindSlashingInvalid, "no intersecting attesters")
	}
	for _, idx := range intersecting {
		if int(idx) < len(s.Validators) && !s.Validators[idx].Slashed {
			slashValidator(s, idx, reward)
		}
	}
	return nil
}

func intersectIndices(a, b []primitives.ValidatorIndex) []primitives.ValidatorIndex {
	set := make(map[primitives.ValidatorIndex]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []primitives.ValidatorIndex
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func slashValidator(s *state.BeaconState, idx primitives.ValidatorIndex, reward *proposerRewardAccumulator) {
	v := s.Validators[idx]
	v.Slashed = true
	v.WithdrawableEpoch = params.SlotToEpoch(s.Slot) + epochsPerSlashingsVectorHalf*2
	whistleblowerReward := v.EffectiveBalance / 512
	applyDelta(s, int(idx), -int64(v.EffectiveBalance/32))
	reward.add(whistleblowerReward / 8)
}

func processAttestation(cs *state.CachedState, att *blocks.Attestation, opts Options, reward *proposerRewardAccumulator) error {
	if att.Data == nil {
		return invalid(KindAttestationInvalid, "missing attestation data")
	}
	s := cs.State()
	targetEpoch := att.Data.Target.Epoch
	currentEpoch := params.SlotToEpoch(s.Slot)
	if targetEpoch != currentEpoch && targetEpoch != currentEpoch.SafeSub(1) {
		return invalid(KindAttestationInvalid, "target epoch out of range")
	}
	// Attesting indices are not expanded and no participation flags are
	// set here. The proposer is credited a nominal per-attestation reward,
	// and AddTargetStakeIncrements is called with zero increments, so the
	// progressive target-stake counters do not change.
	reward.add(attestationInclusionReward)
	if targetEpoch == currentEpoch {
		cs.AddTargetStakeIncrements(true, 0)
	} else {
		cs.AddTargetStakeIncrements(false, 0)
	}
	return nil
}

const attestationInclusionReward = uint64(1)

func processDeposit(cs *state.CachedState, d *blocks.Deposit) error {
	if d.Data == nil {
		return invalid(KindDepositInvalid, "missing deposit data")
	}
	s := cs.State()
	if idx, ok := cs.ValidatorIndexByPubkey(d.Data.PubKey); ok {
		s.Balances[idx] += d.Data.Amount
		return nil
	}
	s.Validators = append(s.Validators, &state.Validator{
		PubKey:                     d.Data.PubKey,
		WithdrawalCredentials:      d.Data.WithdrawalCredentials,
		EffectiveBalance:           minUint64(d.Data.Amount-d.Data.Amount%incrementSize, maxEffectiveBalanceForVersion(s.Version)),
		ActivationEligibilityEpoch: farFutureEpoch,
		ActivationEpoch:            farFutureEpoch,
		ExitEpoch:                  farFutureEpoch,
		WithdrawableEpoch:          farFutureEpoch,
	})
	s.Balances = append(s.Balances, d.Data.Amount)
	return nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func processVoluntaryExit(cs *state.CachedState, ve *blocks.SignedVoluntaryExit) error {
	s := cs.State()
	if int(ve.ValidatorIndex) >= len(s.Validators) {
		return invalid(KindExitInvalid, "unknown validator index")
	}
	v := s.Validators[ve.ValidatorIndex]
	if v.ExitEpoch != farFutureEpoch {
		return invalid(KindExitInvalid, "validator already exiting")
	}
	currentEpoch := params.SlotToEpoch(s.Slot)
	if currentEpoch < ve.Epoch {
		return invalid(KindExitInvalid, "exit epoch in the future")
	}
	v.ExitEpoch = currentEpoch + params.BeaconConfig().MinSeedLookahead + 1
	return nil
}

func processBLSToExecutionChange(cs *state.CachedState, c *blocks.SignedBLSToExecutionChange) error {
	s := cs.State()
	if int(c.ValidatorIndex) >= len(s.Validators) {
		return invalid(KindUnknown, "unknown validator index")
	}
	v := s.Validators[c.ValidatorIndex]
	if v.WithdrawalCredentials[0] != 0x00 {
		return invalid(KindUnknown, "not a BLS withdrawal credential")
	}
	var newCreds [32]byte
	newCreds[0] = 0x01
	copy(newCreds[12:], c.ToExecutionAddress[:])
	v.WithdrawalCredentials = newCreds
	return nil
}

func processConsolidation(cs *state.CachedState, c *blocks.SignedConsolidation) error {
	s := cs.State()
	if int(c.SourceIndex) >= len(s.Validators) || int(c.TargetIndex) >= len(s.Validators) {
		return invalid(KindConsolidationInvalid, "unknown validator index")
	}
	s.PendingConsolidations = append(s.PendingConsolidations, &state.PendingConsolidation{
		SourceIndex: c.SourceIndex,
		TargetIndex: c.TargetIndex,
	})
	return nil
}

func processSyncAggregate(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options, reward *proposerRewardAccumulator) error {
	if b.Body.SyncAggregate == nil {
		return nil
	}
	var participants uint64
	for _, byteV := range b.Body.SyncAggregate.SyncCommitteeBits {
		participants += uint64(popcount(byteV))
	}
	reward.add(participants * syncCommitteeParticipantReward)
	return nil
}

const syncCommitteeParticipantReward = uint64(1)

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func processExecutionPayload(cs *state.CachedState, b *blocks.SignedBeaconBlock, opts Options) error {
	if opts.External.ExecutionPayloadStatus == primitives.ExecutionStatusInvalid {
		return invalid(KindExecutionPayloadInvalid, "execution engine rejected payload")
	}
	if len(b.Body.BlobKZGCommitments) > 0 {
		if opts.External.DataAvailabilityStatus == primitives.DataAvailabilityOutOfRange {
			return invalid(KindDataUnavailable, "blob data unavailable")
		}
	}
	s := cs.State()
	if b.Body.ExecutionPayload != nil {
		s.LatestExecutionPayloadHeader = &state.ExecutionPayloadHeaderFields{
			ParentHash:      b.Body.ExecutionPayload.ParentHash,
			BlockHash:       b.Body.ExecutionPayload.BlockHash,
			BlockNumber:     b.Body.ExecutionPayload.BlockNumber,
			Timestamp:       b.Body.ExecutionPayload.Timestamp,
			WithdrawalsRoot: b.Body.ExecutionPayload.WithdrawalsRoot,
		}
	}
	if len(b.Body.BlobKZGCommitments) > 0 {
		s.BlobKZGCommitmentsHistory = append(s.BlobKZGCommitmentsHistory, b.Body.BlobKZGCommitments...)
	}
	return nil
}
