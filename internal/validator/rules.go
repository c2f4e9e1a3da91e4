package validator

import (
	"strings"
	"time"

	"flota_console/internal/logger"
	"flota_console/internal/models"

	"github.com/go-playground/validator/v10"
)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			logger.Fatal("failed to register custom validation tag", "tag", tag, "error", err)
		}
	}

	// 'is-resource': a catalogued console resource
	mustRegister("is-resource", validateResource)

	// 'is-cargo': one of the user roles known to the backend
	mustRegister("is-cargo", validateCargo)

	// 'is-date': YYYY-MM-DD
	mustRegister("is-date", validateDate)
}

func validateResource(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, ok := models.Lookup(value)
	return ok
}

func validateCargo(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, c := range models.CargosUsuario {
		if strings.EqualFold(c, value) {
			return true
		}
	}
	return false
}

func validateDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(models.DateInputLayout, value)
	return err == nil
}
