package errprocess

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an AppError independent of transport
type Kind string

const (
	// KindAuthentication bad or missing credential
	KindAuthentication Kind = "authentication"
	// KindAuthorization authenticated but not allowed (not a participant / not the receiver)
	KindAuthorization Kind = "authorization"
	// KindNotFound conversation, listing or message absent
	KindNotFound Kind = "not_found"
	// KindValidation bad payload shape, length or amount
	KindValidation Kind = "validation"
	// KindInvalidState self conversation, non pending offer transition, blocked conversation
	KindInvalidState Kind = "invalid_state"
	// KindInternal anything else
	KindInternal Kind = "internal"
)

// Stable error codes surfaced to REST and socket clients
const (
	CodeAuthentication           = "AUTHENTICATION_ERROR"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeUnauthorizedConversation = "UNAUTHORIZED_CONVERSATION"
	CodeNotFound                 = "NOT_FOUND"
	CodeValidation               = "VALIDATION_ERROR"
	CodeInvalidState             = "INVALID_STATE"
	CodeInternal                 = "INTERNAL_ERROR"
)

// AppError typed business error
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Authentication credential missing, invalid or expired
func Authentication(message string, err error) *AppError {
	return &AppError{Kind: KindAuthentication, Code: CodeAuthentication, Message: message, Status: http.StatusUnauthorized, Err: err}
}

// Unauthorized caller is authenticated but may not act on the resource
func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindAuthorization, Code: CodeUnauthorized, Message: message, Status: http.StatusForbidden}
}

// NotFound resource absent
func NotFound(resource string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Status: http.StatusNotFound, Err: err}
}

// Validation bad payload
func Validation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message, Status: http.StatusBadRequest, Err: err}
}

// InvalidState operation not allowed in the current state
func InvalidState(message string) *AppError {
	return &AppError{Kind: KindInvalidState, Code: CodeInvalidState, Message: message, Status: http.StatusBadRequest}
}

// Internal unexpected failure, the cause stays in Err for whoever reports it
func Internal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// As extracts the AppError from err, wrapping unknown errors as Internal
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: "an unexpected error occurred", Status: http.StatusInternalServerError, Err: err}
}

// KindOf returns the kind of err, KindInternal for untyped errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// IsKind check err kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromValidator converts validator.ValidationErrors to a Validation AppError, other errors pass through.
// An AppError already wrapping validation errors keeps its own message.
func FromValidator(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	return Validation(validationMessage(ve[0]), err)
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}
