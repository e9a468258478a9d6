// Package validate checks roster input before it reaches storage.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	studentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	namePattern      = regexp.MustCompile(`^[a-zA-Z\s.'-]+$`)
)

// Validator wraps a validator.Validate with the roster tags registered.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that understands the "studentid" and "personname" tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and flattens field errors into one readable error.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s is not a valid email address", fe.Field())
	case "studentid":
		return fmt.Sprintf("%s may contain only letters, digits, hyphens and underscores", fe.Field())
	case "personname":
		return fmt.Sprintf("%s may contain only letters, spaces, dots, apostrophes and hyphens", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
