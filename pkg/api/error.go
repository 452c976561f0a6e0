package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Server error codes the client reacts to
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeConflict    = "CONFLICT"
	CodeRateLimited = "RATE_LIMITED"
)

// ErrorResponse is the server's error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
	Details string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)", e.Message, e.Status)
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, " [%s]", e.Details)
	}
	return b.String()
}

// decodeError builds an APIError from a failed response. Bodies that are not
// the server's error shape (proxies, panics) keep their raw text.
func decodeError(resp *resty.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode()}

	var body ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Field = body.Field
		apiErr.Details = body.Details
		return apiErr
	}

	apiErr.Code = "UNKNOWN"
	apiErr.Message = strings.TrimSpace(string(resp.Body()))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func hasStatus(err error, match func(int) bool) bool {
	apiErr, ok := asAPIError(err)
	return ok && match(apiErr.Status)
}

func IsUnauthorized(err error) bool {
	return hasStatus(err, func(s int) bool { return s == http.StatusUnauthorized })
}

func IsForbidden(err error) bool {
	return hasStatus(err, func(s int) bool { return s == http.StatusForbidden })
}

func IsNotFound(err error) bool {
	return hasStatus(err, func(s int) bool { return s == http.StatusNotFound })
}

func IsServerError(err error) bool {
	return hasStatus(err, func(s int) bool { return s >= http.StatusInternalServerError })
}

// IsValidation reports a rejected field and returns its name
func IsValidation(err error) (string, bool) {
	apiErr, ok := asAPIError(err)
	if !ok || apiErr.Code != CodeValidation {
		return "", false
	}
	return apiErr.Field, true
}

// checkResponse turns a transport error or a non-2xx response into an error
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return decodeError(resp)
	}
	return nil
}
