package validation

import (
	"strings"

	"almeone-contact-api/internal/domain"

	"github.com/go-playground/validator/v10"
)

// contactForm carries the rules for a sanitised submission. Field order is
// the order errors are reported in.
type contactForm struct {
	Name    string `validate:"required,min=2,max=100"`
	Email   string `validate:"required,max=254,email_shape"`
	Message string `validate:"required,min=10,max=5000"`
	Company string `validate:"omitempty,max=200"`
	Subject string `validate:"omitempty,max=200"`
}

type ContactValidator struct {
	validate *validator.Validate
}

func NewContactValidator() *ContactValidator {
	v := validator.New()
	RegisterValidators(v)
	return &ContactValidator{validate: v}
}

// Sanitize trims every field, lower-cases the email and strips markup from
// company and subject. Applying it twice yields the same value.
func Sanitize(raw domain.SubmissionRequest) domain.SubmissionRequest {
	return domain.SubmissionRequest{
		Name:           strings.TrimSpace(raw.Name),
		Email:          strings.ToLower(strings.TrimSpace(raw.Email)),
		Company:        StripAndTrim(raw.Company),
		Phone:          strings.TrimSpace(raw.Phone),
		Subject:        StripAndTrim(raw.Subject),
		Message:        strings.TrimSpace(raw.Message),
		RecaptchaToken: strings.TrimSpace(raw.RecaptchaToken),
	}
}

// Validate sanitises raw and checks it against the contact rules. Lengths are
// counted in characters after trimming.
func (v *ContactValidator) Validate(raw domain.SubmissionRequest) domain.ValidationResult {
	clean := Sanitize(raw)

	err := v.validate.Struct(contactForm{
		Name:    clean.Name,
		Email:   clean.Email,
		Message: clean.Message,
		Company: clean.Company,
		Subject: clean.Subject,
	})
	if err != nil {
		return domain.ValidationResult{
			Valid:  false,
			Errors: FormatValidationErrors(err),
		}
	}

	return domain.ValidationResult{
		Valid:     true,
		Sanitized: clean,
	}
}
