package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that the action facade and the HTTP layer
// can render without knowing where it came from.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes.
const (
	CodeTransport        = "BUS_001"
	CodeDisconnected     = "BUS_002"
	CodeDecode           = "BUS_003"
	CodeApplication      = "APP_001"
	CodeTimeout          = "COR_001"
	CodeCanceled         = "COR_002"
	CodeValidation       = "VAL_001"
	CodeNoWalletSelected = "VAL_002"
	CodePersistence      = "SYS_001"
)

// ---- Transport (BUS) ----

func Transport(err error) *AppError {
	return Wrap(CodeTransport, "Message bus unavailable", http.StatusServiceUnavailable, err)
}

func Disconnected() *AppError {
	return New(CodeDisconnected, "Connection to message bus lost", http.StatusServiceUnavailable)
}

func Decode(err error) *AppError {
	return Wrap(CodeDecode, "Malformed message payload", http.StatusBadGateway, err)
}

// ---- Remote service (APP) ----

// Application is a well-formed response whose status flag reports failure.
func Application(message string) *AppError {
	if message == "" {
		message = "Request rejected by remote service"
	}
	return New(CodeApplication, message, http.StatusUnprocessableEntity)
}

// ---- Correlation (COR) ----

func Timeout(topic string) *AppError {
	return New(CodeTimeout, fmt.Sprintf("no response on %s", topic), http.StatusGatewayTimeout)
}

func Canceled(err error) *AppError {
	return Wrap(CodeCanceled, "Request canceled", http.StatusRequestTimeout, err)
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func NoWalletSelected() *AppError {
	return New(CodeNoWalletSelected, "No wallet selected", http.StatusConflict)
}

// ---- System (SYS) ----

func Persistence(err error) *AppError {
	return Wrap(CodePersistence, "Selection store failure", http.StatusInternalServerError, err)
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// StatusForCode maps an error code carried outside an AppError (for example
// in an action result) back to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNoWalletSelected:
		return http.StatusConflict
	case CodeApplication:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCanceled:
		return http.StatusRequestTimeout
	case CodeTransport, CodeDisconnected:
		return http.StatusServiceUnavailable
	case CodeDecode:
		return http.StatusBadGateway
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
