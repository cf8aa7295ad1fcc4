package middleware

import "github.com/Eursukkul/courier-backoffice/pkg/validation"

// Validator plugs the shared struct validator into echo's c.Validate.
type Validator struct {
	v *validation.Validator
}

func NewValidator(v *validation.Validator) *Validator {
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}
