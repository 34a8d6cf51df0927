package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// local@domain.tld: at least one dot in the domain, no whitespace anywhere.
	emailShapeRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
)

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("email_shape", EmailShape)
}

// EmailShape accepts addresses of the form local@domain.tld.
func EmailShape(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return emailShapeRegex.MatchString(val)
}
