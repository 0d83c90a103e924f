// Package execution implements the engine-API client contract of spec.md
// §4.3/§6 (ambient to C3): NewPayload/ForkchoiceUpdated/GetPayload/
// GetBlobsV1/V2 calls and the connection-health state machine the block
// import pipeline and proposer flow depend on.
package execution

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
)

// PayloadStatusCode mirrors the Engine API's status enum.
type PayloadStatusCode uint8

const (
	StatusUnknown PayloadStatusCode = iota
	StatusValid
	StatusInvalid
	StatusSyncing
	StatusAccepted
	StatusInvalidBlockHash
)

var (
	ErrAcceptedSyncingPayloadStatus = errors.New("payload status is SYNCING or ACCEPTED")
	ErrInvalidPayloadStatus         = errors.New("payload status is INVALID")
	ErrUnknownPayloadStatus         = errors.New("payload status is UNKNOWN")
	ErrInvalidBlockHashPayloadStatus = errors.New("payload status is INVALID_BLOCK_HASH")
)

// PayloadStatus is the decoded engine_newPayloadVX / engine_forkchoiceUpdatedVX
// response body.
type PayloadStatus struct {
	Status          PayloadStatusCode
	LatestValidHash *common.Hash
	ValidationError string
}

// ForkchoiceState is the 3-tuple the engine uses to reorg/build on.
type ForkchoiceState struct {
	HeadBlockHash      common.Hash
	SafeBlockHash      common.Hash
	FinalizedBlockHash common.Hash
}

// Withdrawal mirrors the execution-layer withdrawal the engine applies when
// building a payload; kept local to avoid a dependency on core/transition.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        common.Address
	Amount         uint64
}

// PayloadAttributes requests the engine build a new payload on top of the
// forkchoice-updated head.
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao             common.Hash
	SuggestedFeeRecipient  common.Address
	Withdrawals            []*Withdrawal
	ParentBeaconBlockRoot  *common.Hash
}

// EngineCaller is the engine-API surface the block import pipeline and
// validator-proposal flow use. Concrete transports (IPC/HTTP) implement it;
// tests substitute a mock, exactly as the teacher's engine_client_test.go
// asserts `_ = EngineCaller(&mocks.EngineClient{})`.
type EngineCaller interface {
	NewPayload(ctx context.Context, payload interface{}, versionedHashes []common.Hash, parentBeaconBlockRoot *common.Hash, executionRequests [][]byte) (*PayloadStatus, error)
	ForkchoiceUpdated(ctx context.Context, state *ForkchoiceState, attrs *PayloadAttributes) (payloadID *[8]byte, latestValidHash *common.Hash, err error)
	GetPayload(ctx context.Context, payloadID [8]byte, slot uint64) (interface{}, error)
	GetBlobsV1(ctx context.Context, versionedHashes []common.Hash) ([]*blocks.BlobSidecar, error)
	GetBlobsV2(ctx context.Context, versionedHashes []common.Hash) ([]*blocks.BlobSidecar, error)
}

// ClassifyPayloadStatus classifies a raw engine status the way spec.md
// §4.3's table does, returning the sentinel error a caller should wrap and
// propagate (nil for VALID, where the caller proceeds).
func ClassifyPayloadStatus(status PayloadStatusCode) error {
	switch status {
	case StatusValid:
		return nil
	case StatusInvalid:
		return ErrInvalidPayloadStatus
	case StatusSyncing, StatusAccepted:
		return ErrAcceptedSyncingPayloadStatus
	case StatusInvalidBlockHash:
		return ErrInvalidBlockHashPayloadStatus
	default:
		return ErrUnknownPayloadStatus
	}
}
