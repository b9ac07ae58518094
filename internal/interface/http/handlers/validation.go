package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxLabelBytes = 32

// RegisterValidations adds the custom binding tags used by the request types.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine")
	}
	return v.RegisterValidation("label", isLabel)
}

// isLabel accepts round descriptions that fit a 32 bytes label.
func isLabel(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxLabelBytes
}
