package registration

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lmsplatform/lms/backend/go-services/internal/identity"
)

const (
	MsgPasswordMismatch = "Passwords don't match"
	MsgPasswordTooShort = "Password must be at least 6 characters"

	minPasswordLen = identity.MinPasswordLen
	notBlankTag    = "notblank"
)

// ValidationError is a local rejection of the form; it never reaches the identity provider.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return fe.Field() + " is required" })
}

// Validate checks f in order: password confirmation, password length, then the remaining fields.
func (f Form) Validate() error {
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Message: MsgPasswordMismatch}
	}
	if identity.PasswordLen(f.Password) < minPasswordLen {
		return &ValidationError{Field: "password", Message: MsgPasswordTooShort}
	}
	if err := validate.Struct(f); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return &ValidationError{Field: ves[0].Field(), Message: ves[0].Translate(translator)}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}
