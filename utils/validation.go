package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/upb/emr-gateway/apperr"
)

// ValidationResult carries one client-facing message per failed field.
type ValidationResult struct {
	Details []string
}

// Valid reports whether no field failed.
func (r ValidationResult) Valid() bool {
	return len(r.Details) == 0
}

// Schema is the validation collaborator used by request handlers. A non-nil
// error means the schema itself could not be applied; failed fields are
// reported through the result.
type Schema interface {
	Validate(v any) (ValidationResult, error)
}

// StructSchema validates structs through their `validate` tags.
type StructSchema struct {
	validate *validator.Validate
}

// NewStructSchema creates a StructSchema that reports fields by their JSON name.
func NewStructSchema() *StructSchema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &StructSchema{validate: v}
}

// Validate implements Schema
func (s *StructSchema) Validate(v any) (ValidationResult, error) {
	err := s.validate.Struct(v)
	if err == nil {
		return ValidationResult{}, nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return ValidationResult{Details: FieldMessages(fieldErrs)}, nil
	}
	return ValidationResult{}, err
}

var defaultSchema = NewStructSchema()

// ValidateStruct validates s with the default struct schema and returns an
// apperr: ValidationFailed for bad fields, SchemaError if the schema blew up.
func ValidateStruct(s any) error {
	return Check(defaultSchema, s)
}

// Check runs schema against v and classifies the outcome.
func Check(schema Schema, v any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = apperr.SchemaError(fmt.Errorf("schema panicked: %v", p))
		}
	}()

	result, err := schema.Validate(v)
	if err != nil {
		return apperr.ClassifyValidationError(err, FieldMessages)
	}
	if !result.Valid() {
		return apperr.ValidationFailed(result.Details)
	}
	return nil
}

// FieldMessages renders one message per failed field, in field order.
func FieldMessages(errs validator.ValidationErrors) []string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, fieldMessage(err))
	}
	return messages
}

func fieldMessage(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, err.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(err.Param(), " ", ", "))
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", field)
	default:
		return fmt.Sprintf("%s validation failed on '%s' tag", field, err.Tag())
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

// ValidateUUID validates that a string is a valid UUID
func ValidateUUID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID format: %s", s)
	}
	return nil
}
