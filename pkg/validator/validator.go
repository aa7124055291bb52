package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// TagHHMM validates a zero-padded 24h "HH:MM" string.
const TagHHMM = "hhmm"

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator provides struct validation with the schedule-specific tags
// registered.
type Validator interface {
	Validate(obj interface{}) []FieldError
	Engine() *validator.Validate
}

type wrapped struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New()
	Register(v)
	return &wrapped{v: v}
}

// Register adds the custom tags and json-name reporting to an existing
// validator engine, such as the one gin's binding package owns.
func Register(v *validator.Validate) {
	_ = v.RegisterValidation(TagHHMM, func(fl validator.FieldLevel) bool {
		return timeslot.IsValidTime(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func (w *wrapped) Engine() *validator.Validate { return w.v }

func (w *wrapped) Validate(obj interface{}) []FieldError {
	err := w.v.Struct(obj)
	if err == nil {
		return nil
	}
	return Translate(err)
}

// Translate flattens validator errors into FieldErrors with readable messages.
func Translate(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Message: message(e)})
	}
	return out
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case TagHHMM:
		return timeslot.ErrInvalidTimeFormat.Error()
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	default:
		return e.Error()
	}
}
