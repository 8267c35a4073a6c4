package hxrt

import (
	"fmt"
)

// ErrorKind classifies the failures the runtime itself can raise
type ErrorKind int

const (
	NullAccess              ErrorKind = iota + 1 // Dereferencing a null Ref or Cell
	OutsideBounds                                // Index or length outside the valid range
	ThreadNotAlive                               // Message or event-loop operation on an exited thread
	MutexOwnershipViolation                      // Release by a thread that does not own the lock
	TypeMismatch                                 // Typed downcast of a Dynamic failed
	DomainError                                  // Adapter-reported failure
)

// String returns the string representation of an ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case NullAccess:
		return "Null Access"
	case OutsideBounds:
		return "Outside Bounds"
	case ThreadNotAlive:
		return "Thread is not alive"
	case MutexOwnershipViolation:
		return "Mutex ownership violation"
	case TypeMismatch:
		return "Type mismatch"
	case DomainError:
		return "Domain error"
	default:
		return "unknown"
	}
}

// Error is the payload the runtime throws for every modeled failure.
// Domain adapters report their own failures with NewDomainError so callers
// recover them the same way as runtime errors.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNullAccess) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrNullAccess              = &Error{Kind: NullAccess}
	ErrOutsideBounds           = &Error{Kind: OutsideBounds}
	ErrThreadNotAlive          = &Error{Kind: ThreadNotAlive}
	ErrMutexOwnershipViolation = &Error{Kind: MutexOwnershipViolation}
	ErrTypeMismatch            = &Error{Kind: TypeMismatch}
	ErrDomain                  = &Error{Kind: DomainError}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewDomainError creates the error adapters throw for their own failures
func NewDomainError(format string, args ...interface{}) *Error {
	return newError(DomainError, format, args...)
}

// fault raises err without a thread context. Used by operations that have no
// context.Context to find the calling thread's exception slot (Ref access,
// sequence bounds, downcasts). The *Error is self-contained so CatchAll can
// recover it on any thread.
func fault(err *Error) {
	panic(err)
}
