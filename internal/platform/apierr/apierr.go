package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes surfaced in API responses. Each code maps to
// exactly one failure class of the sheet workflow.
const (
	CodeSchema     = "schema_error"      // required DNA field missing/uncoercible
	CodeValidation = "validation_error"  // hard rule violation after auto-fix
	CodeGeneration = "generation_error"  // adapter call failed or seed mismatch
	CodeTimeout    = "generation_timeout"
	CodeDrift      = "rejected_drift" // drift exceeded thresholds after retry
	CodeConflict   = "baseline_conflict"
	CodeNotFound   = "not_found"
	CodeCanceled   = "workflow_canceled"
)

type Error struct {
	Status  int
	Code    string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// WithDetails attaches a machine-readable payload (issue list, drift report)
// that handlers include in the response envelope.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

func Schema(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeSchema, err)
}

func Validation(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, err)
}

func Generation(err error) *Error {
	return New(http.StatusBadGateway, CodeGeneration, err)
}

func Timeout(err error) *Error {
	return New(http.StatusGatewayTimeout, CodeTimeout, err)
}

func Drift(err error) *Error {
	return New(http.StatusConflict, CodeDrift, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Canceled(err error) *Error {
	return New(499, CodeCanceled, err)
}

// Code extracts the machine code from any error in the chain, or "" when the
// error is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

func Is(err error, code string) bool { return Code(err) == code }
