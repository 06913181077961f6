package auth

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// PhoneTag is the validator tag for international phone numbers
const PhoneTag = "intl_phone"

// "+" then 2-15 digits, no leading zero
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidPhone reports whether phone is in international format
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// RegisterPhoneValidation adds the intl_phone tag to a validator instance
func RegisterPhoneValidation(v *validator.Validate) error {
	return v.RegisterValidation(PhoneTag, func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
}
