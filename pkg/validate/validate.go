// Package validate checks `validate` struct tags and reports failures keyed
// by the JSON field name, ready to be sent as a 422 errors object.
//
// Besides the go-playground/validator built-ins the following rules are
// registered:
//
//	slug    letters, digits, hyphens and underscores only
//
// Example:
//
//	type CategoryInput struct {
//	    Title string `json:"title" validate:"required,max=256"`
//	    Slug  string `json:"slug"  validate:"required,max=64,slug"`
//	}
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var slugRE = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugRE.MatchString(fl.Field().String())
		})
	})
	return v
}

// Struct validates s and returns field → message. The map is empty when s
// is valid.
func Struct(s any) map[string]string {
	errs := map[string]string{}

	err := instance().Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_"] = err.Error()
		return errs
	}

	for _, fe := range verrs {
		key := fieldKey(fe)
		if _, exists := errs[key]; exists {
			continue
		}
		errs[key] = message(fe)
	}
	return errs
}

// Var validates a single value against tag, returning "" when it passes.
func Var(value any, tag string) string {
	err := instance().Var(value, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return message(verrs[0])
	}
	return err.Error()
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// fieldKey drops the top-level struct name from the namespace, so nested
// fields come out as "toppings[0]" rather than "IceCreamInput.toppings[0]".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).",
				fe.Param(), utf8.RuneCountInString(fmt.Sprint(fe.Value())))
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("Select one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return "Duplicate values are not allowed."
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	}
	return fmt.Sprintf("Failed the %q rule.", fe.Tag())
}
