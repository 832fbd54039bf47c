package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so error details match
// the request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Details []ValidationError `json:"details"`
}

// ValidateRequest returns nil when obj passes its validate tags.
func ValidateRequest(obj any) []ValidationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationError{{Message: err.Error(), Type: "invalid"}}
	}

	details := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Type:    fe.Tag(),
		})
	}
	return details
}

func messageFor(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + param + " characters"
		}
		return "Must be at least " + param
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + param + " characters"
		}
		return "Must be at most " + param
	case "len":
		return "Must be exactly " + param + " characters"
	case "gt":
		return "Must be greater than " + param
	case "gte":
		return "Must be greater than or equal to " + param
	case "lte":
		return "Must be less than or equal to " + param
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "nefield":
		return "Must differ from " + lowerFirst(param)
	case "e164":
		return "Must be an E.164 phone number"
	case "iso3166_1_alpha2":
		return "Must be a two-letter country code"
	case "iso4217":
		return "Must be a three-letter currency code"
	case "url":
		return "Invalid URL"
	default:
		return "Invalid value"
	}
}

// lowerFirst turns a Go field name such as CurrentPassword into its JSON
// spelling. nefield params name struct fields, not tags.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func RespondWithValidationError(c *gin.Context, validationErrors []ValidationError) {
	c.JSON(http.StatusBadRequest, BadRequestErrorResponse{
		Message: "Invalid request data",
		Details: validationErrors,
	})
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"message": message,
	})
}
