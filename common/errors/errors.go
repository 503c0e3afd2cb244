package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shopswift-api/common/logger"
	"go.uber.org/zap"
)

// Kind classifies an application error independently of its message
type Kind string

const (
	KindValidation        Kind = "validation"
	KindEmptyCart         Kind = "empty_cart"
	KindInsufficientStock Kind = "insufficient_stock"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindRequestInFlight   Kind = "request_in_flight"
	KindRateLimited       Kind = "rate_limited"
	KindStorageFailure    Kind = "storage_failure"
)

// Error represents an application error
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Kind    Kind              `json:"-"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Sentinels. Use errors.Is against these; never mutate them.
var (
	ErrValidation        = New(http.StatusBadRequest, KindValidation, "Validation error", nil)
	ErrEmptyCart         = New(http.StatusBadRequest, KindEmptyCart, "No items in cart", nil)
	ErrInsufficientStock = New(http.StatusBadRequest, KindInsufficientStock, "Insufficient stock", nil)
	ErrNotFound          = New(http.StatusNotFound, KindNotFound, "Not found", nil)
	ErrUnauthorized      = New(http.StatusUnauthorized, KindUnauthorized, "Not authorized", nil)
	ErrForbidden         = New(http.StatusForbidden, KindForbidden, "Not authorized", nil)
	ErrCartConflict      = New(http.StatusConflict, KindConflict, "Cart was modified while the order was being placed", nil)
	ErrRequestInFlight   = New(http.StatusConflict, KindRequestInFlight, "A request with this idempotency key is already in progress", nil)
	ErrRateLimited       = New(http.StatusTooManyRequests, KindRateLimited, "Rate limit exceeded. Please try again later.", nil)
	ErrStorageFailure    = New(http.StatusInternalServerError, KindStorageFailure, "Server error", nil)
)

// Validation builds a 400 carrying per-field messages
func Validation(fields map[string]string) *Error {
	e := New(http.StatusBadRequest, KindValidation, "Validation error", nil)
	e.Fields = fields
	return e
}

// InsufficientStock names the product whose stock cannot cover the request
func InsufficientStock(productName string) *Error {
	return New(http.StatusBadRequest, KindInsufficientStock,
		fmt.Sprintf("Product %s is not available in the requested quantity", productName), nil)
}

// NotFound builds a 404 for the named entity, e.g. NotFound("Order")
func NotFound(entity string) *Error {
	return New(http.StatusNotFound, KindNotFound, entity+" not found", nil)
}

// Conflict builds a 409 with a custom message
func Conflict(message string, err error) *Error {
	return New(http.StatusConflict, KindConflict, message, err)
}

// StorageFailure wraps an unexpected persistence error. The cause is kept for
// logging and never serialised.
func StorageFailure(err error) *Error {
	return New(http.StatusInternalServerError, KindStorageFailure, "Server error", err)
}

// From returns err as an *Error, converting anything else into a storage failure.
func From(err error) *Error {
	var target *Error
	if stderrors.As(err, &target) {
		return target
	}
	return StorageFailure(err)
}

// ErrorMiddleware renders the last error attached with c.Error as JSON.
// Server-side failures are logged with their cause; callers only see the
// generic message.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := From(c.Errors.Last().Err)
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(c, "request failed", appErr.Err,
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)
		}

		c.AbortWithStatusJSON(appErr.Code, appErr)
	}
}
