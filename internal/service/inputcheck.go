package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"tourdesk/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the struct tags of s and reports the first failure as a
// domain.ValidationError.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return domain.NewValidation(fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required.", fe.Field())
	case "email":
		return "Invalid email format."
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be %s characters or less.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' is invalid.", fe.Field())
	}
}
