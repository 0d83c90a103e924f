package transition

import "github.com/pkg/errors"

// InvalidBlockKind enumerates the taxonomy of spec.md §4.1 / §7
// ConsensusInvalid sub-kinds. Fatal for the containing block; never retried.
type InvalidBlockKind uint8

const (
	KindUnknown InvalidBlockKind = iota
	KindStateRootMismatch
	KindProposerSlashed
	KindSignatureInvalid
	KindExecutionPayloadInvalid
	KindDataUnavailable
	KindWithdrawalsMismatch
	KindBlobCommitmentsMismatch
	KindAttestationInvalid
	KindSlashingInvalid
	KindDepositInvalid
	KindExitInvalid
	KindConsolidationInvalid
)

func (k InvalidBlockKind) String() string {
	switch k {
	case KindStateRootMismatch:
		return "StateRootMismatch"
	case KindProposerSlashed:
		return "ProposerSlashed"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindExecutionPayloadInvalid:
		return "ExecutionPayloadInvalid"
	case KindDataUnavailable:
		return "DataUnavailable"
	case KindWithdrawalsMismatch:
		return "WithdrawalsMismatch"
	case KindBlobCommitmentsMismatch:
		return "BlobCommitmentsMismatch"
	case KindAttestationInvalid:
		return "AttestationInvalid"
	case KindSlashingInvalid:
		return "SlashingInvalid"
	case KindDepositInvalid:
		return "DepositInvalid"
	case KindExitInvalid:
		return "ExitInvalid"
	case KindConsolidationInvalid:
		return "ConsolidationInvalid"
	default:
		return "Unknown"
	}
}

// InvalidBlockError is the fatal, never-retried error state_transition
// raises before any externally visible mutation (spec.md §4.1 Failure
// semantics).
type InvalidBlockError struct {
	Kind InvalidBlockKind
	Err  error
}

func (e *InvalidBlockError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *InvalidBlockError) Unwrap() error { return e.Err }

func invalid(kind InvalidBlockKind, msg string) error {
	return &InvalidBlockError{Kind: kind, Err: errors.New(msg)}
}

func invalidf(kind InvalidBlockKind, err error, msg string) error {
	return &InvalidBlockError{Kind: kind, Err: errors.Wrap(err, msg)}
}
