package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	BasicEmailTag   = "basic_email"
	basicEmailText  = "email is invalid"
	basicEmailRegex = regexp.MustCompile(`\S+@\S+\.\S+`)

	AcceptedTag  = "accepted"
	acceptedText = "this field must be accepted"

	NotBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(BasicEmailTag, basicEmailValidation)
	RegisterCustomTranslation(validate, translator, BasicEmailTag, basicEmailText)

	_ = validate.RegisterValidation(AcceptedTag, acceptedValidation)
	RegisterCustomTranslation(validate, translator, AcceptedTag, acceptedText)

	_ = validate.RegisterValidation(NotBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, NotBlankTag, notBlankText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// basicEmailValidation only checks the `x@y.z` shape of an email address.
func basicEmailValidation(fl validator.FieldLevel) bool {
	return basicEmailRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// acceptedValidation is for consent checkboxes: the value must be true.
func acceptedValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Bool {
		return false
	}
	return fl.Field().Bool()
}

// notBlankValidation rejects whitespace-only strings.
func notBlankValidation(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}
