package web

import (
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/go-playground/validator.v9"
)

// fieldErrors maps a field name to its error messages
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// formValidator validates request payloads with struct tags.
// Field names in errors come from the json or form tags.
type formValidator struct {
	sync.Mutex
	validator *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	if err := v.RegisterValidation("lampstatus", lampStatus); err != nil {
		log.Error().Err(err).Msg("failed to register validator type")
	}
	return &formValidator{validator: v}
}

// lampStatus accepts the values of the control form's status radio
func lampStatus(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == statusOn || s == statusOff
}

// validate returns nil if object is valid
func (v *formValidator) validate(object interface{}) fieldErrors {
	v.Lock()
	defer v.Unlock()

	err := v.validator.Struct(object)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		log.Error().Err(err).Msg("failed to run validation")
		return fieldErrors{"detail": {"Invalid input."}}
	}

	errs := make(fieldErrors)
	for _, e := range verrs {
		errs.add(e.Field(), message(e))
	}
	return errs
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "max":
		return "Ensure this value is less than or equal to " + e.Param() + "."
	case "lampstatus":
		return "Select a valid choice."
	default:
		return "Invalid value."
	}
}
