// Package validation checks request inputs against the account input policy
// and reports failures as *model.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/sagespace/internal/model"
)

var (
	credentialPattern = regexp.MustCompile(`^[A-Za-z0-9_]{8,15}$`)
	otpPattern        = regexp.MustCompile(`^[0-9]{6}$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		mustRegister(v, "username", matches(credentialPattern))
		mustRegister(v, "password", matches(credentialPattern))
		mustRegister(v, "otp", matches(otpPattern))

		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s using its `validate` tags
func Struct(s any) error {
	return translate(get().Struct(s))
}

// Var validates a single value. field names the value in the resulting error.
func Var(field string, value any, tag string) error {
	err := get().Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return model.NewValidationError(field, message(verrs[0]))
	}
	return err
}

// Username reports whether s satisfies the username policy
func Username(s string) bool {
	return credentialPattern.MatchString(s)
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error, not bad input
		return err
	}

	out := &model.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "username":
		return "must be 8-15 characters of letters, digits or underscore"
	case "password":
		return "must be 8-15 characters of letters, digits or underscore"
	case "otp":
		return "must be exactly 6 digits"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "nefield":
		return "must differ from the current value"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
