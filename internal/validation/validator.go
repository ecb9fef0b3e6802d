package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom field and struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report json field names, so errors read "customerInfo.address"
	v.RegisterTagNameFunc(jsonFieldName)

	_ = v.RegisterValidation("mobile", validateMobile)

	// an address is required only when the order is delivered
	v.RegisterStructValidation(customerStructValidation, Customer{})

	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateMobile accepts 10 to 15 digits once separators are removed.
func validateMobile(fl validatorv10.FieldLevel) bool {
	raw := fl.Field().String()
	for _, r := range raw {
		if !strings.ContainsRune("0123456789+- ()", r) {
			return false
		}
	}
	n := len(Digits(raw))
	return n >= 10 && n <= 15
}

func customerStructValidation(sl validatorv10.StructLevel) {
	c := sl.Current().Interface().(Customer)
	if c.DeliveryType == "delivery" && strings.TrimSpace(c.Address) == "" {
		sl.ReportError(c.Address, "address", "Address", "required_for_delivery", "")
	}
}
