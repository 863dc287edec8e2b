package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator builds a validator with the decimal comparison tags the
// request DTOs use (decimal_gt, decimal_gte). The standard numeric tags do
// not understand decimal.Decimal.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("decimal_gt", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThan(bound)
	})

	v.RegisterValidation("decimal_gte", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThanOrEqual(bound)
	})

	return v
}
