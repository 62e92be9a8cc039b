// Package errs provides types and support related to web error handling.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/zimcoin/business/sys/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// ToResponse converts an error into what is sent back to the client. Errors
// that are not trusted never leak their message.
func ToResponse(err error) (Response, int) {
	switch {
	case validate.IsFieldErrors(err):
		return Response{
			Error:  "data validation error",
			Fields: validate.GetFieldErrors(err).Fields(),
		}, http.StatusBadRequest

	case IsTrusted(err):
		te := GetTrusted(err)
		return Response{
			Error: te.Error(),
		}, te.Status
	}

	return Response{
		Error: http.StatusText(http.StatusInternalServerError),
	}, http.StatusInternalServerError
}
