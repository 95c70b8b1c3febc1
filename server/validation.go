package server

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError wraps every failed field of a request body
type ValidationError struct {
	Errors []FieldError
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

// Validator checks request bodies against their `validate` struct tags
type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(jsonFieldName)
	return &Validator{validator: v}
}

// Validate returns a ValidationError listing every failed field, nil when i is valid.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		out := ValidationError{
			Errors: make([]FieldError, len(validationErrors)),
		}
		for i, fe := range validationErrors {
			out.Errors[i] = FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: msgForTag(fe.Tag(), fe.Param()),
			}
		}
		return out
	}
	return err
}

// First returns a single line message, used where clients expect one string.
func (ve ValidationError) First() string {
	if len(ve.Errors) == 0 {
		return "Invalid request"
	}
	fe := ve.Errors[0]
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

func msgForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("This field must be at least %s characters long", param)
	case "max":
		return fmt.Sprintf("This field must not exceed %s characters", param)
	case "gte":
		return fmt.Sprintf("This field must be at least %s", param)
	case "lte":
		return fmt.Sprintf("This field must be at most %s", param)
	case "oneof":
		return fmt.Sprintf("This field must be one of: %s", param)
	case "datetime":
		return fmt.Sprintf("This field must be a date formatted as %s", param)
	default:
		return fmt.Sprintf("Failed validation on rule: %s", tag)
	}
}
