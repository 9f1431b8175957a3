package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error carrying a stable code and an HTTP status.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to clients)
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

// Is matches another *AppError by code, so errors.Is(err, ErrNotCancellable()) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// ---- Purchase client (IAP) ----

func InvalidRequest(message string) *AppError {
	return New("IAP_001", message, http.StatusBadRequest)
}

func ErrTransactionNotFound() *AppError {
	return New("IAP_002", "Transaction not found", http.StatusNotFound)
}

func ErrNotCancellable() *AppError {
	return New("IAP_003", "Transaction is no longer cancellable", http.StatusConflict)
}

func ErrNotTerminal() *AppError {
	return New("IAP_004", "Transaction has not reached a terminal state", http.StatusConflict)
}

func ErrClientClosed() *AppError {
	return New("IAP_005", "Client is closed", http.StatusServiceUnavailable)
}

// ---- Backend communication (NET) ----

func ErrNetwork(err error) *AppError {
	return Wrap("NET_001", "Network error", http.StatusBadGateway, err)
}

// ErrUpstream reports a non-2xx answer from the purchase backend.
// code is the backend's own error code when it sent one.
func ErrUpstream(status int, code, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &AppError{Code: "NET_002", Message: fmt.Sprintf("%s: %s", code, message), HTTPStatus: status}
}

func ErrMalformedResponse(err error) *AppError {
	return Wrap("NET_003", "Malformed backend response", http.StatusBadGateway, err)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal error", http.StatusInternalServerError, err)
}

func ErrStorage(err error) *AppError {
	return Wrap("SYS_002", "Storage error", http.StatusInternalServerError, err)
}

// ---- Sandbox backend ----

func ErrItemNotFound(itemID string) *AppError {
	return New("ITEM_NOT_FOUND", fmt.Sprintf("item %q not found", itemID), http.StatusNotFound)
}

func ErrAmountMismatch() *AppError {
	return New("AMOUNT_MISMATCH", "Amount or currency does not match the item price", http.StatusConflict)
}

func Validation(message string) *AppError {
	return New("VALIDATION_FAILED", message, http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("insufficient_funds", "Insufficient funds", http.StatusPaymentRequired)
}

func ErrCardDeclined() *AppError {
	return New("card_declined", "Card declined", http.StatusPaymentRequired)
}

func ErrAlreadyOwned(itemID string) *AppError {
	return New("ALREADY_OWNED", fmt.Sprintf("item %q is already owned", itemID), http.StatusConflict)
}

func ErrIdempotencyConflict() *AppError {
	return New("IDEMPOTENCY_CONFLICT", "Idempotency key reused with a different request", http.StatusUnprocessableEntity)
}

func ErrUnavailable() *AppError {
	return New("SERVICE_UNAVAILABLE", "Service temporarily unavailable", http.StatusServiceUnavailable)
}

func ErrRateLimitExceeded() *AppError {
	return New("RATE_LIMITED", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Query endpoints ----

// ErrRejected reports a success:false answer from a read-only endpoint.
func ErrRejected(code, message string) *AppError {
	return New(code, message, http.StatusUnprocessableEntity)
}

func ErrParseFailed(err error) *AppError {
	return Wrap("ERROR_PARSE_FAILED", "Could not parse backend response", http.StatusBadGateway, err)
}

func ErrInvalidItemType(itemType string) *AppError {
	return New("INVALID_ITEM_TYPE", fmt.Sprintf("unknown item type %q", itemType), http.StatusBadGateway)
}
