package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidationError represents a validation error response with one message
// per offending field.
type ValidationError struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// validateStruct validates s against its `validate` tags and returns a
// ValidationError if invalid, nil if valid.
func validateStruct(s interface{}) *ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			field := fieldError.Field()
			tag := fieldError.Tag()

			var message string
			switch tag {
			case "required":
				message = "this field is required"
			case "min":
				message = "value is too short"
			case "max":
				message = "value is too long"
			case "gt":
				message = "value must be greater than " + fieldError.Param()
			case "gte":
				message = "value must be greater than or equal to " + fieldError.Param()
			case "lt":
				message = "value must be less than " + fieldError.Param()
			case "lte":
				message = "value must be less than or equal to " + fieldError.Param()
			case "oneof":
				message = "value must be one of: " + fieldError.Param()
			case "gtfield":
				message = "value must be greater than field " + fieldError.Param()
			default:
				message = "validation failed for tag: " + tag
			}

			details[field] = message
		}
	}

	return &ValidationError{
		Error:   "validation failed",
		Code:    "VALIDATION_ERROR",
		Details: details,
	}
}

// writeValidationError writes a validation error response.
func writeValidationError(w http.ResponseWriter, err *ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	resp := APIError{
		Error:   err.Error,
		Code:    err.Code,
		Details: err.Details,
	}
	json.NewEncoder(w).Encode(resp)
}
