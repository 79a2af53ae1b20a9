// Package validation plugs go-playground/validator into echo so handlers can
// call c.Validate and lean on the struct tags of the request DTOs.
package validation

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

func (v *Validator) Validate(payload any) error {
	return v.v.Struct(payload)
}
