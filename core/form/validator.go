package form

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Validator checks a State against the rules of its Schema.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator expects `validate` and `translator` to be set up with core.InitValidators.
func NewValidator(validate *validator.Validate, translator ut.Translator) *Validator {
	return &Validator{validate: validate, translator: translator}
}

// Validate returns an entry for every field among `names` (all fields if none) that fails its rules.
// Text values are trimmed first so whitespace-only is empty. Validate does not mutate the state.
func (v *Validator) Validate(s *State, names ...string) Errors {
	if len(names) == 0 {
		names = s.schema.Names()
	}

	errs := make(Errors)
	for _, name := range names {
		f, ok := s.schema.Field(name)
		if !ok || f.Rules == "" {
			continue
		}
		if msg, failed := v.check(f, s.values[name]); failed {
			errs[name] = msg
		}
	}
	return errs
}

func (v *Validator) check(f Field, value interface{}) (string, bool) {
	switch f.Kind {
	case Text:
		str, _ := value.(string)
		value = strings.TrimSpace(str)
	case Number:
		if value == nil {
			value = float64(0)
		}
	}

	err := v.validate.Var(value, f.Rules)
	if err == nil {
		return "", false
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrs) == 0 {
		return err.Error(), true
	}
	return v.message(f, vErrs[0]), true
}

func (v *Validator) message(f Field, fe validator.FieldError) string {
	if msg, ok := f.Messages[fe.Tag()]; ok {
		return msg
	}
	// Var errors have no field name: translations starting with it start with a blank
	msg := fe.Translate(v.translator)
	if strings.HasPrefix(msg, " ") {
		msg = f.Name + msg
	}
	return msg
}
