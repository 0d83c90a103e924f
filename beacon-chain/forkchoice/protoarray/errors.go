package protoarray

import "github.com/pkg/errors"

// ForkChoiceErrorKind enumerates spec.md §4.2 "Failure model" kinds. Any
// malformed or contradictory update raises one of these; no partial update
// is ever left applied.
type ForkChoiceErrorKind uint8

const (
	KindUnknown ForkChoiceErrorKind = iota
	KindUnknownParent
	KindFinalizedDescendantMismatch
	KindInvalidAttestation
	KindInvalidExecutionStatus
)

func (k ForkChoiceErrorKind) String() string {
	switch k {
	case KindUnknownParent:
		return "UnknownParent"
	case KindFinalizedDescendantMismatch:
		return "FinalizedDescendantMismatch"
	case KindInvalidAttestation:
		return "InvalidAttestation"
	case KindInvalidExecutionStatus:
		return "InvalidExecutionStatus"
	default:
		return "Unknown"
	}
}

type ForkChoiceError struct {
	Kind ForkChoiceErrorKind
	Err  error
}

func (e *ForkChoiceError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *ForkChoiceError) Unwrap() error { return e.Err }

func newErr(kind ForkChoiceErrorKind, msg string) error {
	return &ForkChoiceError{Kind: kind, Err: errors.New(msg)}
}
