package util

import (
	"errors"
	"io"
	"strconv"

	"github.com/sadwiik06/SocialFlow/internal/validation"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseInt64Param parses a required integer query value
func ParseInt64Param(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// BindError turns a gin binding failure into a FieldError where possible
func BindError(err error) error {
	if errors.Is(err, io.EOF) {
		return &validation.FieldError{Field: "body", Message: "request body is required"}
	}
	described := validation.Describe(err)
	var fe *validation.FieldError
	if errors.As(described, &fe) {
		return fe
	}
	return &validation.FieldError{Field: "body", Message: "invalid request body"}
}
