package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// FieldErrors maps a JSON field name to the rule it failed.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, k := range fields {
		parts[i] = fmt.Sprintf("%s (%s)", k, f[k])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

type Validator struct {
	validate *validator.Validate
	region   string
}

// New builds a validator; region is the default for numbers written without a country code.
func New(region string) *Validator {
	v := &Validator{validate: validator.New(), region: strings.ToUpper(region)}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.validate.RegisterValidation("phone", v.validPhone)
	_ = v.validate.RegisterValidation("shipment_status", func(fl validator.FieldLevel) bool {
		return models.ShipmentStatus(fl.Field().String()).IsValid()
	})
	_ = v.validate.RegisterValidation("service_type", func(fl validator.FieldLevel) bool {
		return models.ServiceType(fl.Field().String()).IsValid()
	})
	_ = v.validate.RegisterValidation("payment_mode", func(fl validator.FieldLevel) bool {
		return models.PaymentMode(fl.Field().String()).IsValid()
	})
	_ = v.validate.RegisterValidation("exception_type", func(fl validator.FieldLevel) bool {
		return models.ExceptionType(fl.Field().String()).IsValid()
	})
	_ = v.validate.RegisterValidation("dimension_unit", func(fl validator.FieldLevel) bool {
		return models.DimensionUnit(fl.Field().String()).IsValid()
	})

	return v
}

// Struct validates s, returning FieldErrors for rule failures.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := make(FieldErrors, len(ves))
	for _, fe := range ves {
		out[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return out
}

// fieldPath drops the root struct name, leaving e.g. "consignee.phone".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Phone reports whether s parses as a valid number in the default region.
func (v *Validator) Phone(s string) bool {
	num, err := libphonenumber.Parse(s, v.region)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(num)
}

func (v *Validator) validPhone(fl validator.FieldLevel) bool {
	return v.Phone(fl.Field().String())
}
