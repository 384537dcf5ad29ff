package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failure
// as a domain.ValidationError
func validateInput(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	e := verrs[0]
	return &domain.ValidationError{
		Field:   strings.ToLower(e.Field()),
		Message: describeRule(e),
	}
}

func describeRule(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "min", "gte":
		return "must be at least " + e.Param()
	default:
		return fmt.Sprintf("failed rule %q", e.Tag())
	}
}

// parseDate accepts RFC3339 timestamps or YYYY-MM-DD dates (local midnight)
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError(field, "%q is neither RFC3339 nor YYYY-MM-DD", value)
}

// parseOptionalDate maps "" to nil (clear)
func parseOptionalDate(field string, value *string, loc *time.Location) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
