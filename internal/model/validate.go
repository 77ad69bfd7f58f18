package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidTask, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidTask, err)
}

func validateVar(name string, value interface{}, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return fmt.Errorf("%w: %s failed %q", ErrInvalidTask, name, tag)
	}
	return nil
}
