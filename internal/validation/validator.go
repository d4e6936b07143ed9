package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"photogram/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get devuelve el validador compartido.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// nombres de campo tal como llegan en el JSON
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("handle", validHandle)
	})
	return validate
}

// Struct valida s y traduce el primer fallo a un apperr de validación.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("Invalid request")
	}
	return apperr.Validation(translate(fieldErrs[0]))
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "handle":
		return fmt.Sprintf("%s cannot contain spaces or slashes", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// validHandle: sin espacios ni '/', para que quepa en rutas /users/{username}.
func validHandle(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsSpace(r) || r == '/' || r == '?' || r == '#' {
			return false
		}
	}
	return true
}
