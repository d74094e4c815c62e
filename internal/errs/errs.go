// Package errs defines the error taxonomy shared across doforward's
// core subsystems: buffer pool, poller, balancer, service and server.
package errs

import "fmt"

// Code identifies the broad class of an Error, mirroring the taxonomy
// the system is specified against (invalid input, bad config, network
// failure, ...).
type Code int

const (
	// CodeInvalidInput marks a caller contract violation: nil pointer,
	// zero size, out-of-range argument. Fatal to the operation, not the
	// process.
	CodeInvalidInput Code = iota
	// CodeValidation marks a configuration value that failed semantic
	// checks. Fatal to process startup.
	CodeValidation
	// CodeNetwork marks a socket syscall that returned an OS error.
	CodeNetwork
	// CodeInvalidType marks a config value with the wrong dynamic shape.
	CodeInvalidType
	// CodeParsing marks a configuration document that failed to parse.
	CodeParsing
	// CodeInvalidPointer marks a defensive nil check on a public API.
	CodeInvalidPointer
)

func (c Code) String() string {
	switch c {
	case CodeInvalidInput:
		return "InvalidInput"
	case CodeValidation:
		return "ValidationError"
	case CodeNetwork:
		return "Network"
	case CodeInvalidType:
		return "InvalidType"
	case CodeParsing:
		return "ParsingError"
	case CodeInvalidPointer:
		return "InvalidPointer"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned across package
// boundaries. It carries enough context to be rendered in the CLI's
// "Exception: <code> - <message>" format without the caller needing to
// know which subsystem raised it.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
}

// New builds an Error of the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error of the given code with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithContext attaches a key/value pair, returning the same Error for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s - %s (context: %+v)", e.Code, e.Message, e.Context)
}

// Common sentinel errors used where a full Error would be overkill.
var (
	ErrNilBuffer    = New(CodeInvalidPointer, "nil pointer passed to a public API")
	ErrPollerClosed = New(CodeInvalidInput, "poller is shut down")
	ErrPoolClosed   = New(CodeInvalidInput, "buffer pool is shut down")
	ErrNoNodes      = New(CodeInvalidInput, "balancer has no associated nodes")
)
