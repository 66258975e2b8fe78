package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/audiotranscriber/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their config key rather than the Go name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})
		_ = validate.RegisterValidation("ascending", isAscending)
	})
	return validate
}

// isAscending accepts a float slice sorted in non-decreasing order.
func isAscending(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	values := make([]float64, field.Len())
	for i := 0; i < field.Len(); i++ {
		el := field.Index(i)
		switch el.Kind() {
		case reflect.Float32, reflect.Float64:
			values[i] = el.Float()
		default:
			return false
		}
	}
	return sort.Float64sAreSorted(values)
}

// Struct validates s using `validate:"..."` tags. On failure it returns an
// INVALID_INPUT AppError whose details list every failing field.
func Struct(s any) error {
	fields, err := check(s)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	appErr := errors.InvalidInput("", join(fields))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

// Config validates a configuration struct. Failures are CONFIGURATION_ERROR,
// which is fatal to startup.
func Config(s any) error {
	fields, err := check(s)
	if err != nil {
		return errors.Configuration(err.Error())
	}
	if len(fields) == 0 {
		return nil
	}
	appErr := errors.Configuration("invalid configuration: " + join(fields))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

func check(s any) ([]FieldError, error) {
	err := getValidator().Struct(s)
	if err == nil {
		return nil, nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	fields := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, FieldError{
			Field:   fieldPath(e.Namespace()),
			Message: formatValidationError(e),
		})
	}
	return fields, nil
}

// fieldPath drops the root struct name: Config.transcription.model -> transcription.model.
func fieldPath(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func join(fields []FieldError) string {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Field + ": " + f.Message
	}
	return strings.Join(messages, "; ")
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be >= " + e.Param()
	case "lte":
		return "must be <= " + e.Param()
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "ascending":
		return "must be in ascending order"
	case "required_if":
		return "is required when " + e.Param()
	default:
		return "is invalid (" + e.Tag() + ")"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
