package httputil

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

var validate = newValidator()

// newValidator builds the shared validator. Field names in validation
// details use the json tag so error responses match the request payload.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate validates a struct and returns a validation AppError with
// per-field details on failure.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		details[e.Field()] = describeFieldError(e)
	}

	return errors.Validation(details)
}

func describeFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "datetime":
		return "must be a valid date in format " + e.Param()
	default:
		return "invalid value"
	}
}
