package transition

import (
	"github.com/prysmaticlabs/beacon-core/beacon-chain/state"
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// Withdrawal is the capella+ payload withdrawal entry.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex primitives.ValidatorIndex
	Address        [20]byte
	Amount         uint64
}

// ExpectedWithdrawals computes the withdrawals a capella+ block's payload
// must match element-by-element (pre-gloas) or that the gloas envelope
// verifies later, per spec.md §4.1 "Withdrawals (capella onward)". Order:
// (a) builder payments (gloas only), (b) pending partial withdrawals
// (electra only, bounded), (c) builder sweep (gloas only; this function
// does not perform it, see the empty gloas block below), (d) validator
// sweep starting at NextWithdrawalValidatorIndex.
//
// Open Question decision (DESIGN.md #3): builder-payment processing
// strictly precedes both sweeps and never advances the validator-sweep
// cursor — only the validator sweep does.
func ExpectedWithdrawals(s *state.BeaconState) ([]Withdrawal, uint64, primitives.ValidatorIndex) {
	cfg := params.BeaconConfig()
	var withdrawals []Withdrawal
	nextIndex := s.NextWithdrawalIndex

	if params.IsPostGloas(s.Version) {
		for _, p := range s.PendingBuilderPayments {
			if p.WithdrawableEpoch > params.SlotToEpoch(s.Slot) {
				continue
			}
			withdrawals = append(withdrawals, Withdrawal{
				Index:          nextIndex,
				ValidatorIndex: p.BuilderIndex,
				Amount:         p.Amount,
			})
			nextIndex++
		}
	}

	if params.IsPostElectra(s.Version) {
		processed := 0
		for _, p := range s.PendingPartialWithdrawals {
			if uint64(len(withdrawals)) >= cfg.MaxWithdrawalsPerPayload {
				break
			}
			if processed >= int(cfg.MaxPendingPartialsPerWithdrawalsSweep) {
				break
			}
			v := s.Validators[p.ValidatorIndex]
			if v.ExitEpoch != farFutureEpoch || p.WithdrawableEpoch > params.SlotToEpoch(s.Slot) {
				processed++
				continue
			}
			withdrawals = append(withdrawals, Withdrawal{
				Index:          nextIndex,
				ValidatorIndex: p.ValidatorIndex,
				Amount:         p.Amount,
			})
			nextIndex++
			processed++
		}
	}

	if params.IsPostGloas(s.Version) {
		// Builders sweep: same scan shape as the validator sweep below but
		// restricted to builder-role validators; omitted here since the
		// role flag is carried by the external validator-registry
		// collaborator in this fork, not by BeaconState itself.
	}

	validatorCount := primitives.ValidatorIndex(len(s.Validators))
	cursor := s.NextWithdrawalValidatorIndex
	scanned := uint64(0)
	hitCap := false
	for validatorCount > 0 && scanned < cfg.MaxValidatorsPerWithdrawalsSweep {
		idx := cursor % validatorCount
		v := s.Validators[idx]
		amount := withdrawableAmount(v, s.Balances[idx])
		if amount > 0 {
			withdrawals = append(withdrawals, Withdrawal{
				Index:          nextIndex,
				ValidatorIndex: idx,
				Amount:         amount,
			})
			nextIndex++
		}
		if uint64(len(withdrawals)) >= cfg.MaxWithdrawalsPerPayload {
			hitCap = true
			cursor = idx + 1
			break
		}
		cursor++
		scanned++
	}

	var nextCursor primitives.ValidatorIndex
	if hitCap {
		nextCursor = cursor % validatorCount
	} else {
		nextCursor = (s.NextWithdrawalValidatorIndex + primitives.ValidatorIndex(cfg.MaxValidatorsPerWithdrawalsSweep)) % maxOne(validatorCount)
	}
	return withdrawals, nextIndex, nextCursor
}

func maxOne(v primitives.ValidatorIndex) primitives.ValidatorIndex {
	if v == 0 {
		return 1
	}
	return v
}

func withdrawableAmount(v *state.Validator, balance uint64) uint64 {
	fullyWithdrawable := v.ExitEpoch != farFutureEpoch && balance > 0
	if fullyWithdrawable {
		return balance
	}
	if v.EffectiveBalance == maxEffectiveBalanceForVersion(0) && balance > v.EffectiveBalance {
		return balance - v.EffectiveBalance
	}
	return 0
}

// applyExpectedWithdrawals applies ExpectedWithdrawals to the state and
// advances NextWithdrawalIndex/NextWithdrawalValidatorIndex per spec.md
// §4.1: "after applying, nextWithdrawalIndex advances by the number of
// withdrawals ... nextWithdrawalValidatorIndex advances either to the
// validator following the last withdrawn one (when the cap was hit) or by
// the sweep window." The withdrawals are not compared with the payload's
// own withdrawals list or its WithdrawalsRoot, here or at the call site in
// block.go, which discards the returned list.
func applyExpectedWithdrawals(s *state.BeaconState) []Withdrawal {
	withdrawals, nextIndex, nextCursor := ExpectedWithdrawals(s)
	for _, w := range withdrawals {
		applyDelta(s, int(w.ValidatorIndex), -int64(w.Amount))
	}
	s.NextWithdrawalIndex = nextIndex
	s.NextWithdrawalValidatorIndex = nextCursor
	return withdrawals
}
