package handlers

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := auth.RegisterPhoneValidation(v); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", auth.PhoneTag, err))
	}
	return v
}

// ValidateRequest validates a request struct using go-playground/validator
// Returns a user-friendly error message if validation fails
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			first := ValidationErrorResponse{
				Field:   ve[0].Field(),
				Message: formatValidationError(ve[0]),
			}
			return fmt.Errorf("validation failed: %s: %s", first.Field, first.Message)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// isPhoneFailure reports whether validation failed only on the phone format
func isPhoneFailure(req interface{}) bool {
	var ve validator.ValidationErrors
	if !errors.As(validate.Struct(req), &ve) {
		return false
	}
	for _, fe := range ve {
		if fe.Tag() != auth.PhoneTag {
			return false
		}
	}
	return len(ve) > 0
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case auth.PhoneTag:
		return "must be an international phone number such as +15551234567"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
