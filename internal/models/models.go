// Package models provides domain models for the trading journal.
package models

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	apperrors "trading-journal/internal/errors"
)

var validate = validator.New()

// Validate checks struct tags on v and reports the first failing field as a
// ValidationError.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if apperrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), fe.Value(), describeTag(fe))
	}
	return apperrors.Wrap(apperrors.ErrInputValidation, err.Error())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// checkFinite rejects NaN and infinite values for the named fields.
func checkFinite(fields map[string]float64) error {
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewValidationError(name, v, "must be a finite number")
		}
	}
	return nil
}
