package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an error.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors.
	KindUnknown Kind = iota

	// KindValidation marks malformed or semantically invalid input.
	KindValidation

	// KindPermission marks requests the caller is not allowed to make.
	KindPermission

	// KindNotFound marks lookups for entities that do not exist.
	KindNotFound

	// KindTimeout marks dependency calls that exceeded their deadline.
	KindTimeout

	// KindConnection marks network-level failures reaching a dependency.
	KindConnection

	// KindUnavailable marks dependencies that refused work (overload,
	// maintenance, open circuit).
	KindUnavailable
)

// String returns a stable lowercase name for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Permanent reports whether errors of this kind will fail identically on
// retry. Timeouts, connection failures, and unavailability are transient;
// everything the caller did wrong is permanent.
func (k Kind) Permanent() bool {
	switch k {
	case KindValidation, KindPermission, KindNotFound:
		return true
	default:
		return false
	}
}

// Error wraps an underlying error with a Kind. It unwraps to the cause so
// errors.Is and errors.As keep working through the classification.
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the failure class of the wrapped error.
func (e *Error) Kind() Kind { return e.kind }

// New classifies err with the given kind. Returns nil for a nil err.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// Newf classifies a formatted error with the given kind.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, err: fmt.Errorf(format, args...)}
}

// Validation wraps err as KindValidation.
func Validation(err error) error { return New(KindValidation, err) }

// Permission wraps err as KindPermission.
func Permission(err error) error { return New(KindPermission, err) }

// NotFound wraps err as KindNotFound.
func NotFound(err error) error { return New(KindNotFound, err) }

// Timeout wraps err as KindTimeout.
func Timeout(err error) error { return New(KindTimeout, err) }

// Connection wraps err as KindConnection.
func Connection(err error) error { return New(KindConnection, err) }

// Unavailable wraps err as KindUnavailable.
func Unavailable(err error) error { return New(KindUnavailable, err) }

// KindOf returns the kind of the first classified error in err's chain,
// or KindUnknown when nothing in the chain carries a classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return KindUnknown
}

// IsPermanent reports whether err is classified with a permanent kind.
// Unclassified errors are treated as transient so that callers do not
// silently stop retrying dependency failures they forgot to classify.
func IsPermanent(err error) bool {
	return KindOf(err).Permanent()
}
