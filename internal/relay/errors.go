package relay

import "fmt"

// FailureKind labels the stage of a dispatch pass that failed. The kinds
// feed the failure counter so operators can tell a broken sink from a
// broken store at a glance.
type FailureKind string

const (
	FailureStoreRead   FailureKind = "store_read"
	FailureSinkConnect FailureKind = "sink_connect"
	FailureSinkInsert  FailureKind = "sink_insert"
	FailureStoreDelete FailureKind = "store_delete"
)

// PassError wraps a pass failure with the stage it occurred in.
type PassError struct {
	Kind  FailureKind
	cause error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("relay pass %s: %v", e.Kind, e.cause)
}

func (e *PassError) Unwrap() error {
	return e.cause
}

func newPassError(kind FailureKind, cause error) *PassError {
	return &PassError{Kind: kind, cause: cause}
}
