package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrForbidden is returned when a presented secret does not prove ownership.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports a rejected input field. Field uses the JSON name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MissingParameter builds the error for an absent required parameter.
func MissingParameter(name string) *ValidationError {
	return &ValidationError{Field: name, Message: "missing required parameter"}
}

// asValidationError translates model validation failures into a
// ValidationError naming the first offending field. Other errors pass
// through unchanged.
func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
