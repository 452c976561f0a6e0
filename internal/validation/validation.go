// Package validation registers the custom validator tags used in request
// bindings: "username" and "gender".
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sadwiik06/SocialFlow/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// ValidUsername reports whether s is 3-30 letters, digits or underscores
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidGender accepts the registration gender values
func ValidGender(s string) bool {
	switch s {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
		return true
	}
	return false
}

// Register adds the custom tags to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return ValidGender(fl.Field().String())
	})
}

// Setup registers the custom tags on gin's binding validator
func Setup() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return Register(v)
}

// New returns a validator that reads `binding` tags, for validating structs
// outside a gin request.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// FieldError is the first failing field of a validation error
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Describe converts a validator error into a readable FieldError. Other
// errors are returned unchanged.
func Describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	return &FieldError{Field: field, Message: message(field, fe)}
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "username":
		return "username must be 3-30 letters, numbers or underscores"
	case "gender":
		return "gender must be male, female or other"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
