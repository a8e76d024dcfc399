package validation

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout - формат дат без времени во всех запросах.
const DateLayout = "2006-01-02"

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("date_only", isDateOnly); err != nil {
		return err
	}
	return nil
}

// isDateOnly - строка вида 2025-04-15
func isDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}
