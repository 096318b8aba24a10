package errcodes

import (
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

// NotFoundReason returns a 404 error with a full human-readable reason.
// Used when the message carries debugging context for the client, e.g.
// which formats a book actually has.
func NotFoundReason(reason string) error {
	return &Error{
		http.StatusNotFound,
		reason,
		"not_found",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

// StoreUnavailable returns a 503 error for catalog database failures
// surfaced by the health and diagnose endpoints.
func StoreUnavailable(msg string) error {
	return &Error{
		http.StatusServiceUnavailable,
		msg,
		"store_unavailable",
	}
}
