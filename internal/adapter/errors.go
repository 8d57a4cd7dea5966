package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeycumines/jsadapter/internal/facade"
	"github.com/joeycumines/jsadapter/internal/kind"
)

// ErrorKind categorizes recoverable adapter errors.
type ErrorKind string

const (
	KindScript            ErrorKind = "script"             // evaluation or module load failed
	KindInvocation        ErrorKind = "invocation"         // a script function threw
	KindPropertyNotFound  ErrorKind = "property_not_found" // namespace or property resolution failed
	KindDuplicateRealm    ErrorKind = "duplicate_realm"    // realm id collision
	KindInvalidState      ErrorKind = "invalid_state"      // e.g. settling a settled promise
	KindUnimplementedKind ErrorKind = "unimplemented_kind" // facade branch not supplied by the backend
	KindNotCallable       ErrorKind = "not_callable"       // invoke target is not a function
	KindTypeMismatch      ErrorKind = "type_mismatch"      // operand has the wrong value kind
	KindForeignValue      ErrorKind = "foreign_value"      // value belongs to another realm or backend
	KindUnsupported       ErrorKind = "unsupported"        // value cannot be represented, e.g. cycles
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrScript            = &Error{Kind: KindScript}
	ErrInvocation        = &Error{Kind: KindInvocation}
	ErrPropertyNotFound  = &Error{Kind: KindPropertyNotFound}
	ErrDuplicateRealm    = &Error{Kind: KindDuplicateRealm}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrUnimplementedKind = &Error{Kind: KindUnimplementedKind}
	ErrNotCallable       = &Error{Kind: KindNotCallable}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrForeignValue      = &Error{Kind: KindForeignValue}
	ErrUnsupported       = &Error{Kind: KindUnsupported}
)

// ErrContractViolation is the panic value (wrapped) raised when the host
// misuses the contract: an unknown, disposed or consumed cache id, reading
// the result of a pending promise, or touching a realm off its engine
// goroutine. These are host bugs, never runtime conditions.
var ErrContractViolation = errors.New("jsadapter: contract violation")

// Error is the structured error returned by adapter operations.
type Error struct {
	// Thrown is the native value thrown by script, for KindInvocation and
	// KindScript. It is confined to the realm's engine goroutine.
	Thrown Value
	// Reason is a detached rendering of Thrown, safe to inspect anywhere.
	Reason facade.Value
	Cause  error
	Kind   ErrorKind
	// Op names the adapter operation, e.g. "Eval" or "InvokeByName".
	Op string
	// ValueKind is set for KindUnimplementedKind and KindTypeMismatch.
	ValueKind kind.Kind
	Detail    string
	// Path is the namespace or property path involved, if any.
	Path []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	if e.Op != "" {
		b.WriteString(e.Op)
	} else {
		b.WriteString("jsadapter")
	}
	b.WriteString("] ")
	b.WriteString(string(e.Kind))
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.ValueKind != kind.Invalid {
		b.WriteString(" (")
		b.WriteString(e.ValueKind.String())
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError returns an error of the given kind for op.
func NewError(k ErrorKind, op, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Kind: k, Op: op, Detail: detail}
}

// PropertyNotFound returns a KindPropertyNotFound error for path.
func PropertyNotFound(op string, path ...string) *Error {
	return &Error{Kind: KindPropertyNotFound, Op: op, Path: append([]string(nil), path...)}
}

// TypeMismatch returns a KindTypeMismatch error for a value of kind got.
func TypeMismatch(op string, got kind.Kind, want string) *Error {
	return &Error{Kind: KindTypeMismatch, Op: op, ValueKind: got, Detail: "expected " + want}
}

// UnimplementedKind returns the error used by facade conversion branches the
// backend has not supplied.
func UnimplementedKind(op string, k kind.Kind) *Error {
	return &Error{
		Kind:      KindUnimplementedKind,
		Op:        op,
		ValueKind: k,
		Detail:    "conversion not implemented for this kind",
	}
}

// Violation panics with ErrContractViolation wrapped with a description.
func Violation(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...)))
}
