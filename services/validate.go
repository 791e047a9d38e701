package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError carries field-level messages for rejected input. It is
// recoverable: nothing was persisted and the caller may correct and retry.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// newValidator builds a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func fieldMessages(verrs validator.ValidationErrors) map[string]string {
	messages := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages[fe.Field()] = "is required"
		case "email":
			messages[fe.Field()] = "must be a valid email address"
		case "url":
			messages[fe.Field()] = "must be a valid URL"
		case "datetime":
			messages[fe.Field()] = "has an invalid format"
		case "national_id":
			messages[fe.Field()] = "must be exactly 12 digits"
		case "allowed_animal":
			messages[fe.Field()] = "is not an accepted answer"
		case "min", "max":
			messages[fe.Field()] = "is out of range"
		default:
			messages[fe.Field()] = "is invalid"
		}
	}
	return messages
}
