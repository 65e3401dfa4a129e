package executor

import "fmt"

// ErrorKind classifies query-execution errors.
type ErrorKind string

const (
	// KindUnknownField marks a selection or fragment referencing a field
	// that is not declared on its stated type. Detected during planning,
	// before any store call.
	KindUnknownField ErrorKind = "UNKNOWN_FIELD"
	// KindConflictingArguments marks the same response key requested more
	// than once with differing arguments.
	KindConflictingArguments ErrorKind = "CONFLICTING_ARGUMENTS"
	// KindNotSupported marks a capability the active resolver does not
	// implement.
	KindNotSupported ErrorKind = "NOT_SUPPORTED"
	// KindResolution marks any other resolver-reported failure.
	KindResolution ErrorKind = "RESOLUTION"
	// KindValidation marks request-shape problems (unknown operation,
	// bad variables).
	KindValidation ErrorKind = "VALIDATION"
)

// Error is a located query-execution error.
type Error struct {
	Kind    ErrorKind
	Message string
	Path    Path
}

func (e *Error) Error() string { return e.Message }

// WithPath returns a copy of e located at the given response path.
func (e *Error) WithPath(p Path) *Error {
	out := *e
	out.Path = p
	return &out
}

// ErrUnknownField reports a reference to an undeclared field. typeName is
// the stated type of the selection scope: the interface's name when the
// reference was made through an interface position.
func ErrUnknownField(typeName, fieldName string) *Error {
	return &Error{
		Kind:    KindUnknownField,
		Message: fmt.Sprintf("Type `%s` has no field `%s`", typeName, fieldName),
	}
}

// ErrConflictingArguments reports a response key requested twice with
// different arguments.
func ErrConflictingArguments(typeName, responseKey string) *Error {
	return &Error{
		Kind:    KindConflictingArguments,
		Message: fmt.Sprintf("Field `%s` on type `%s` is requested more than once with conflicting arguments", responseKey, typeName),
	}
}

// ErrNotSupported reports a capability the active resolver lacks.
func ErrNotSupported(capability string) *Error {
	return &Error{Kind: KindNotSupported, Message: capability + " is not supported by this resolver"}
}

// ErrResolution wraps a resolver or store failure.
func ErrResolution(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: KindResolution, Message: err.Error()}
}

// ErrValidation reports a request-shape problem.
func ErrValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}
