package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindConflict       Kind = "CONFLICT"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindInternal       Kind = "INTERNAL"
)

// Error is a domain failure the caller can act on. Two errors match under
// errors.Is when their kinds match and the target carries no message, or
// when both kind and message match.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
)

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides infrastructure failures from API clients.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return "internal server error"
}
