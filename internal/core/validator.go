package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"raincast/internal/types"
)

// Validator wraps go-playground/validator so handlers can validate decoded
// request payloads and get back a structured AppError with per-field detail.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator using struct tag names from the json tag,
// so error details reference the wire field names clients actually sent.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct runs tag-based validation on v. On failure it returns a
// 400 AppError whose Details map each offending field to the rule it broke.
func (va *Validator) ValidateStruct(v interface{}) error {
	err := va.validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = describeRule(fe)
	}

	return types.NewAppError(types.ErrCodeValidationMissingField,
		"request validation failed", err).WithDetails(details)
}

// describeRule renders a validation failure as a short human-readable rule.
func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	default:
		return "failed rule: " + fe.Tag()
	}
}
