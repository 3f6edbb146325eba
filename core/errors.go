package core

import (
	"sort"

	"github.com/pkg/errors"
)

var ErrInvalidInput = errors.New("invalid input")

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldsError builds a ValidationError from a {field: message} map, fields sorted by name.
func NewFieldsError(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	flds := make([]FieldError, 0, len(names))
	for _, name := range names {
		flds = append(flds, FieldError{Field: name, Error: fields[name]})
	}
	return NewValidationError(ErrInvalidInput, flds...)
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldsMap returns the field errors as a {field: message} map.
func (err ValidationError) FieldsMap() map[string]string {
	m := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		m[fErr.Field] = fErr.Error
	}
	return m
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
