package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var setupOnce sync.Once

// SetupValidator reports JSON/form names in errors and registers the cpf tag
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation("cpf", validateCPF)
	})
}

// validateCPF accepts any rendering that normalizes to exactly 11 digits
func validateCPF(fl validator.FieldLevel) bool {
	return len(identity.Normalize(fl.Field().String())) == 11
}

// ValidationDetails flattens validator errors; other errors yield nil
func ValidationDetails(err error) []ValidationDetail {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]ValidationDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "cpf":
		return "Must contain 11 digits"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		return "Must be at least " + e.Param()
	case "max":
		return "Must be at most " + e.Param()
	default:
		return "Invalid value"
	}
}
