package dto

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

// validate checks inbound payload shapes before they reach services. Field
// names in errors use the json tag so clients see wire names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	// Provider wire date format (YYYY/MM/DD).
	_ = v.RegisterValidation("acdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006/01/02", fl.Field().String())
		return err == nil
	})
	// Tokenized card fields must keep the literal triple-brace wrapping.
	_ = v.RegisterValidation("tokenized", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) > 6 && strings.HasPrefix(s, "{{{") && strings.HasSuffix(s, "}}}")
	})
	return v
}

// Validate returns a DomainError naming each offending field, or nil.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	details := map[string]any{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return apperrors.NewValidationError("invalid payload", details)
}
