package hazel

import "errors"

// ErrorKind is a closed set of validation-error identifiers. Backend or
// integrity errors outside this set are not ErrorKind values: they are
// fatal and propagate as plain wrapped errors, never silently degrading
// an authorization decision.
type ErrorKind string

const (
	// ErrIDRequired means a blank or whitespace-only external id was
	// passed to a register call.
	ErrIDRequired ErrorKind = "id_is_required"
	// ErrDescriptionRequired means a blank or whitespace-only
	// description was passed to a register call.
	ErrDescriptionRequired ErrorKind = "description_is_required"
	// ErrInvalidSubject means the subject external id does not resolve
	// to an existing entity.
	ErrInvalidSubject ErrorKind = "invalid_subject"
	// ErrInvalidObject means the object external id does not resolve to
	// an existing entity.
	ErrInvalidObject ErrorKind = "invalid_object"
	// ErrInvalidPermission means the privilege external id does not
	// resolve to an existing entity.
	ErrInvalidPermission ErrorKind = "invalid_permission"
	// ErrInvalidParent means an edge's parent external id does not
	// resolve to an existing entity.
	ErrInvalidParent ErrorKind = "invalid_parent"
	// ErrInvalidChild means an edge's child external id does not
	// resolve to an existing entity.
	ErrInvalidChild ErrorKind = "invalid_child"
	// ErrCyclicEdge means adding the edge would create a cycle
	// (including a self-loop).
	ErrCyclicEdge ErrorKind = "cyclic_edge"
	// ErrConflictingRuleType means a rule already exists for the triple
	// with the opposite sign.
	ErrConflictingRuleType ErrorKind = "conflicting_rule_type"
	// ErrNotFound means a lookup found no matching row.
	ErrNotFound ErrorKind = "not_found"
)

// Error is a tagged validation-result error. Every public operation
// except the raising variant of PermissionGranted reports errors of this
// shape as data rather than panicking.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error of the given kind with a message.
func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// NewError builds an *Error of the given kind with a message. Exported so
// code outside this package (such as a test's fake store) that detects
// validation failures can report them in the same shape the engine's
// own operations use.
func NewError(kind ErrorKind, msg string) *Error {
	return newError(kind, msg)
}

// IsKind reports whether err is or wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the ErrorKind of err if it is or wraps an *Error, and
// whether one was found.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ErrMissingSupremum describes a DAG whose distinguished "*" node is
// missing — a setup defect, not a normal validation failure, since the
// engine creates it on first use. No function in this module returns
// it; internal/doctor reports a missing supremum as a failed check
// result instead.
var ErrMissingSupremum = errors.New("hazel: supremum entity missing for kind")
