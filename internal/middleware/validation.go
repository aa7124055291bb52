package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	schedvalidator "github.com/jwalitptl/clinic-schedule/pkg/validator"
)

// RegisterValidators adds the custom binding tags (hhmm) and json field
// names to gin's validator. Call once before serving.
func RegisterValidators() bool {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return false
	}
	schedvalidator.Register(v)
	return true
}
