package pixbright

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrPass indicates a storage does not handle the key, pass to the next one
var ErrPass = errors.New("pixbright: pass")

// transform errors, shared by the wasm binding and /adjust
var (
	ErrInvalid             = NewError("invalid", http.StatusBadRequest)
	ErrBufferSize          = NewError("buffer size mismatch", http.StatusBadRequest)
	ErrMisaligned          = NewError("misaligned buffer", http.StatusBadRequest)
	ErrMaxSizeExceeded     = NewError("maximum size exceeded", http.StatusBadRequest)
	ErrNotFound            = NewError("not found", http.StatusNotFound)
	ErrUnsupportedBitDepth = NewError("unsupported bit depth", http.StatusUnprocessableEntity)
)

// service errors
var (
	ErrMethodNotAllowed  = NewError("method not allowed", http.StatusMethodNotAllowed)
	ErrUnsupportedFormat = NewError("unsupported format", http.StatusNotAcceptable)
	ErrTimeout           = NewError("timeout", http.StatusRequestTimeout)
	ErrExpired           = NewError("expired", http.StatusGone)
	ErrTooManyRequests   = NewError("too many requests", http.StatusTooManyRequests)
	ErrInternal          = NewError("internal error", http.StatusInternalServerError)
)

const errPrefix = "pixbright: "

// Error carries an HTTP status along with the message.
// Its string form "pixbright: {status} {message}" parses back with WrapError.
type Error struct {
	Message string `json:"message,omitempty"`
	Code    int    `json:"status,omitempty"`
}

// NewError creates Error from message and status code
func NewError(msg string, code int) Error {
	return Error{Message: msg, Code: code}
}

// NewErrorFromStatusCode creates Error with the status text as message
func NewErrorFromStatusCode(code int) Error {
	return NewError(http.StatusText(code), code)
}

// Error implements error
func (e Error) Error() string {
	return errPrefix + strconv.Itoa(e.Code) + " " + e.Message
}

// Timeout reports 408 and 504
func (e Error) Timeout() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseError recovers Error from its string form
func parseError(msg string) (Error, bool) {
	rest, ok := strings.CutPrefix(msg, errPrefix)
	if !ok {
		return Error{}, false
	}
	status, message, ok := strings.Cut(rest, " ")
	if !ok {
		return Error{}, false
	}
	code, err := strconv.Atoi(status)
	if err != nil || code < 100 || code > 599 {
		return Error{}, false
	}
	return NewError(message, code), true
}

// BitDepthError rejected bits per channel value.
// errors.Is(err, ErrUnsupportedBitDepth) holds for it.
type BitDepthError struct {
	Bits int
}

// Error implements error
func (e BitDepthError) Error() string {
	return fmt.Sprintf("unsupported bitsPerChannel: %d", e.Bits)
}

// Is matches ErrUnsupportedBitDepth
func (e BitDepthError) Is(target error) bool {
	return target == ErrUnsupportedBitDepth
}

// WrapError maps any error onto Error, unknown errors become 500
func WrapError(err error) Error {
	if err == nil {
		return ErrInternal
	}
	var e Error
	var bde BitDepthError
	var te interface{ Timeout() bool }
	switch {
	case errors.As(err, &e):
		return e
	case errors.As(err, &bde):
		return NewError(bde.Error(), ErrUnsupportedBitDepth.Code)
	case errors.Is(err, ErrPass):
		// nothing handled the key
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &te) && te.Timeout():
		return ErrTimeout
	}
	if e, ok := parseError(err.Error()); ok {
		return e
	}
	return NewError(strings.ReplaceAll(err.Error(), "\n", ""), http.StatusInternalServerError)
}
