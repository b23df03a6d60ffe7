package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// Validator wraps struct-tag validation and the record business rules
// behind one entry point.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("not_blank", validateNotBlank)
	validate.RegisterValidation("matric_number", validateMatricNumber)

	// Report JSON field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateUserRole accepts any casing of a role in the closed set.
func validateUserRole(fl validator.FieldLevel) bool {
	_, ok := models.ParseRole(fl.Field().String())
	return ok
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateMatricNumber requires a positive identifier.
func validateMatricNumber(fl validator.FieldLevel) bool {
	return fl.Field().Int() > 0
}
