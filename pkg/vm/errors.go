package vm

import "fmt"

// Kind classifies a runtime failure.
type Kind int

// Error kinds
const (
	ErrNone Kind = iota
	ErrStackUnderflow
	ErrInvalidOperand
	ErrUnknownLabel
	ErrEmptyCallStack
	ErrMemoryBounds
	ErrArithmetic
	ErrMalformedInput // recovered by re-prompting, never returned from Run
	ErrMalformedOperand
	ErrEndOfMemory
	ErrIO
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case ErrNone:
		return "no error"
	case ErrStackUnderflow:
		return "stack underflow"
	case ErrInvalidOperand:
		return "invalid operand"
	case ErrUnknownLabel:
		return "unknown label"
	case ErrEmptyCallStack:
		return "empty call stack"
	case ErrMemoryBounds:
		return "memory out of bounds"
	case ErrArithmetic:
		return "arithmetic error"
	case ErrMalformedInput:
		return "malformed input"
	case ErrMalformedOperand:
		return "malformed operand"
	case ErrEndOfMemory:
		return "end of memory"
	case ErrIO:
		return "i/o error"
	default:
		return fmt.Sprintf("unknown error %d", int(k))
	}
}

// Error is a fatal runtime condition. IP is the address where the failing
// instruction starts.
type Error struct {
	Kind Kind
	IP   int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error in ip=%d --> %s: %s: %v", e.IP, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("error in ip=%d --> %s: %s", e.IP, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(kind Kind, ip int, format string, args ...any) *Error {
	return &Error{Kind: kind, IP: ip, Msg: fmt.Sprintf(format, args...)}
}
