package validator

import (
	"math"

	"github.com/go-playground/validator/v10"
)

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

// CoordinateRules validates geographic inputs: coordinates must be finite
// numbers, range checks are expressed as gte/lte tags on the parameter struct.
func CoordinateRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("finite", finiteValidator),
		},
	}
}

func finiteValidator(fl validator.FieldLevel) bool {
	val := fl.Field().Float()
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}
