package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error. The HTTP status of a response is
// derived from it.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindPaymentIncomplete   Kind = "payment_incomplete"
	KindSignatureInvalid    Kind = "signature_invalid"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindSyncFailed          Kind = "sync_failed"
	KindSyncInProgress      Kind = "sync_in_progress"
	KindInternal            Kind = "internal"
)

var kindStatus = map[Kind]int{
	KindInvalidInput:        http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindPaymentIncomplete:   http.StatusPaymentRequired,
	KindSignatureInvalid:    http.StatusBadRequest,
	KindUpstreamUnavailable: http.StatusBadGateway,
	KindSyncFailed:          http.StatusInternalServerError,
	KindSyncInProgress:      http.StatusConflict,
	KindInternal:            http.StatusInternalServerError,
}

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// Is matches on Kind so callers can use errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a new Error
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is checks. Never mutate these; wrap with New instead.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPaymentIncomplete   = &Error{Kind: KindPaymentIncomplete, Message: "payment incomplete"}
	ErrSignatureInvalid    = &Error{Kind: KindSignatureInvalid, Message: "invalid webhook signature"}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable, Message: "upstream unavailable"}
	ErrSyncFailed          = &Error{Kind: KindSyncFailed, Message: "order sync failed"}
	ErrSyncInProgress      = &Error{Kind: KindSyncInProgress, Message: "order sync in progress"}
)

// InvalidInput is shorthand for New(KindInvalidInput, msg, nil).
func InvalidInput(msg string) *Error { return New(KindInvalidInput, msg, nil) }

// NotFound is shorthand for New(KindNotFound, msg, nil).
func NotFound(msg string) *Error { return New(KindNotFound, msg, nil) }

// Upstream wraps a transport or provider failure.
func Upstream(msg string, err error) *Error { return New(KindUpstreamUnavailable, msg, err) }

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Respond writes err as {"error": msg} with the status mapped from its kind.
// Errors that are not *Error become a 500 with a generic message.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(appErr.Status(), gin.H{"error": appErr.Message})
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
