package blockchain

import "github.com/pkg/errors"

// ErrorKind enumerates the ways a block import can fail, matching the
// stage at which each is detected per spec.md §4.3.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNilBlock
	KindUnknownParentState
	KindInvalidBlock
	KindExecutionEngineError
	KindDataUnavailable
	KindForkChoiceRejected
	KindPersistenceFailure
)

type ImportError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

func (e *ImportError) Error() string {
	return e.Stage.String() + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }

func (k ErrorKind) String() string {
	switch k {
	case KindNilBlock:
		return "NilBlock"
	case KindUnknownParentState:
		return "UnknownParentState"
	case KindInvalidBlock:
		return "InvalidBlock"
	case KindExecutionEngineError:
		return "ExecutionEngineError"
	case KindDataUnavailable:
		return "DataUnavailable"
	case KindForkChoiceRejected:
		return "ForkChoiceRejected"
	case KindPersistenceFailure:
		return "PersistenceFailure"
	default:
		return "Unknown"
	}
}

func importErr(kind ErrorKind, stage Stage, msg string) error {
	return &ImportError{Kind: kind, Stage: stage, Err: errors.New(msg)}
}

func wrapImportErr(kind ErrorKind, stage Stage, err error) error {
	return &ImportError{Kind: kind, Stage: stage, Err: err}
}
