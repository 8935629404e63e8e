package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
)

// New creates a new validator instance with custom validations registered.
// Field names in errors are taken from json tags so messages match the request body.
func New() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// "notblank" rejects whitespace-only strings such as "   " for names and titles
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	v.RegisterStructValidation(validityRuleLevel, model.ValidityRuleRequest{})

	return v
}

// validityRuleLevel checks the fields of a validity rule against each other.
// Dates use the fixed 2006-01-02 layout, so string order is calendar order.
func validityRuleLevel(sl validator.StructLevel) {
	rule := sl.Current().Interface().(model.ValidityRuleRequest)

	if rule.FromHour != nil && rule.UntilHour != nil && *rule.FromHour == *rule.UntilHour {
		sl.ReportError(rule.UntilHour, "until_hour", "UntilHour", "hourwindow", "")
	}
	if rule.FromDate != "" && rule.UntilDate != "" && rule.UntilDate < rule.FromDate {
		sl.ReportError(rule.UntilDate, "until_date", "UntilDate", "daterange", "")
	}
}
