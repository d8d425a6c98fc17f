package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the closed set of failure categories the gateway distinguishes.
type Kind string

const (
	KindMissingToken          Kind = "missing_token"
	KindMalformedHeader       Kind = "malformed_header"
	KindExpired               Kind = "token_expired"
	KindInvalidToken          Kind = "invalid_token"
	KindForbidden             Kind = "forbidden"
	KindValidationFailed      Kind = "validation_failed"
	KindValidationSchemaError Kind = "validation_schema_error"
	KindApplication           Kind = "application"
	KindUnhandled             Kind = "unhandled"
)

// Client-facing messages. Tests and the front end assert on the exact text.
const (
	MsgMissingToken     = "Access token is required"
	MsgMalformedHeader  = "Bearer token required"
	MsgTokenExpired     = "Token expired"
	MsgInvalidToken     = "Invalid token"
	MsgValidationFailed = "Validation failed"
	MsgGeneric          = "Something went wrong!"
)

// Error is the single error type understood by the normalizer.
type Error struct {
	Kind    Kind
	Status  int // only meaningful for KindApplication
	Message string
	Details []string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.Details) > 0 {
		msg += " [" + strings.Join(e.Details, "; ") + "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so that sentinel values can be compared with errors.Is.
// Application errors also need the same status and, when the target has
// one, the same message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e.Kind != t.Kind {
		return false
	}
	if t.Kind == KindApplication {
		return e.Status == t.Status && (t.Message == "" || e.Message == t.Message)
	}
	return true
}

// Sentinels for errors.Is comparisons. Do not mutate.
var (
	ErrMissingToken    = &Error{Kind: KindMissingToken, Message: MsgMissingToken}
	ErrMalformedHeader = &Error{Kind: KindMalformedHeader, Message: MsgMalformedHeader}
	ErrExpired         = &Error{Kind: KindExpired, Message: MsgTokenExpired}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: MsgInvalidToken}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrValidation      = &Error{Kind: KindValidationFailed, Message: MsgValidationFailed}
	ErrSchema          = &Error{Kind: KindValidationSchemaError}
	ErrUnhandled       = &Error{Kind: KindUnhandled}
)

// MissingToken reports an absent Authorization header.
func MissingToken() error {
	return &Error{Kind: KindMissingToken, Message: MsgMissingToken}
}

// MalformedHeader reports an Authorization header that is not "Bearer <token>".
func MalformedHeader() error {
	return &Error{Kind: KindMalformedHeader, Message: MsgMalformedHeader}
}

// Expired reports a correctly signed token whose exp claim has passed.
func Expired(cause error) error {
	return &Error{Kind: KindExpired, Message: MsgTokenExpired, Err: cause}
}

// InvalidToken reports a token that failed verification for any other reason.
func InvalidToken(cause error) error {
	return &Error{Kind: KindInvalidToken, Message: MsgInvalidToken, Err: cause}
}

// Forbidden reports an authenticated principal lacking the required role.
func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

// ValidationFailed carries one client-facing message per failed field.
func ValidationFailed(details []string) error {
	return &Error{Kind: KindValidationFailed, Message: MsgValidationFailed, Details: details}
}

// SchemaError reports that the validation layer itself blew up.
func SchemaError(cause error) error {
	return &Error{Kind: KindValidationSchemaError, Message: "validation schema error", Err: cause}
}

// Unhandled wraps any failure that must not leak to the client.
func Unhandled(cause error) error {
	return &Error{Kind: KindUnhandled, Message: "unhandled error", Err: cause}
}

// New creates an application error whose status and message reach the client verbatim.
func New(status int, message string) error {
	return &Error{Kind: KindApplication, Status: status, Message: message}
}

// Wrap is New with an underlying cause kept for logging.
func Wrap(status int, message string, cause error) error {
	return &Error{Kind: KindApplication, Status: status, Message: message, Err: cause}
}

// NotFound is an application error with status 404.
func NotFound(message string) error {
	return New(http.StatusNotFound, message)
}

// Conflict is an application error with status 409.
func Conflict(message string) error {
	return New(http.StatusConflict, message)
}

// BadRequest is an application error with status 400.
func BadRequest(message string) error {
	return New(http.StatusBadRequest, message)
}

// As extracts the *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindUnhandled for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUnhandled
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// FromPanic turns a recovered value into an Unhandled error.
func FromPanic(v any) error {
	switch p := v.(type) {
	case nil:
		return nil
	case error:
		return Unhandled(p)
	default:
		return Unhandled(fmt.Errorf("panic: %v", p))
	}
}
