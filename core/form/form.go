// Package form holds the input state of a screen and validates it against declared field rules.
package form

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

type Kind int

const (
	Text Kind = iota
	Bool
	Number
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	default:
		return "text"
	}
}

// Field declares one input of a form.
// Rules is a validator tag string (eg: "required,basic_email"); Messages overrides the message of a failing tag.
type Field struct {
	Name     string
	Kind     Kind
	Rules    string
	Messages map[string]string
}

// Schema is the ordered list of a form's fields.
type Schema []Field

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		names = append(names, f.Name)
	}
	return names
}

// State maps every field of a Schema to its current value.
// The key set is fixed at creation. State is not safe for concurrent use; its owner synchronizes access.
type State struct {
	schema Schema
	values map[string]interface{}
}

func NewState(schema Schema) *State {
	s := &State{
		schema: schema,
		values: make(map[string]interface{}, len(schema)),
	}
	for _, f := range schema {
		s.values[f.Name] = zero(f.Kind)
	}
	return s
}

func zero(k Kind) interface{} {
	switch k {
	case Bool:
		return false
	case Number:
		return nil // unset
	default:
		return ""
	}
}

func (s *State) Schema() Schema { return s.schema }

// Set updates the value of field `name`. The value must match the field's kind;
// numbers also accept numeric strings, an empty string unsets a number.
func (s *State) Set(name string, value interface{}) error {
	f, ok := s.schema.Field(name)
	if !ok {
		return errors.Wrap(ErrUnknownField, name)
	}
	v, err := coerce(f.Kind, value)
	if err != nil {
		return errors.Wrap(err, name)
	}
	s.values[name] = v
	return nil
}

// SetAll updates several fields at once. Nothing is updated if one of the values is rejected.
func (s *State) SetAll(values map[string]interface{}) error {
	coerced := make(map[string]interface{}, len(values))
	fldErrs := make(map[string]string)
	for name, value := range values {
		f, ok := s.schema.Field(name)
		if !ok {
			fldErrs[name] = ErrUnknownField.Error()
			continue
		}
		v, err := coerce(f.Kind, value)
		if err != nil {
			fldErrs[name] = err.Error()
			continue
		}
		coerced[name] = v
	}
	if len(fldErrs) > 0 {
		return core.NewFieldsError(fldErrs)
	}
	for name, v := range coerced {
		s.values[name] = v
	}
	return nil
}

func (s *State) Get(name string) interface{} { return s.values[name] }

func (s *State) String(name string) string {
	str, _ := s.values[name].(string)
	return core.CleanString(str)
}

func (s *State) Bool(name string) bool {
	b, _ := s.values[name].(bool)
	return b
}

// Number returns the value of a number field and whether it is set.
func (s *State) Number(name string) (float64, bool) {
	n, ok := s.values[name].(float64)
	return n, ok
}

// Values returns a copy of the current values.
func (s *State) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return values
}

func coerce(k Kind, value interface{}) (interface{}, error) {
	switch k {
	case Text:
		if str, ok := value.(string); ok {
			return str, nil
		}
	case Bool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, nil
			}
		}
	case Number:
		switch v := value.(type) {
		case nil:
			return nil, nil
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, nil
			}
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return n, nil
			}
		}
	}
	return nil, errors.Wrapf(ErrInvalidValue, "expected a %s", k)
}

// Errors maps a field name to the message of its failing rule.
// A field passing validation has no entry.
type Errors map[string]string

func (e Errors) Empty() bool { return len(e) == 0 }

// Merge copies the entries of other into e.
func (e Errors) Merge(other Errors) Errors {
	if e == nil {
		e = make(Errors, len(other))
	}
	for k, v := range other {
		e[k] = v
	}
	return e
}

func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns nil when there is no error, a *core.ValidationError otherwise.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return core.NewFieldsError(e)
}
