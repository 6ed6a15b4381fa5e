// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package validation checks drafts against their schema before anything is
// sent to the server. It has no side effects.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/model"
)

// FieldErrors maps a JSON field name to a human readable message.
type FieldErrors map[string]string

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError is returned when a draft fails validation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsFieldErrors extracts field errors from err, if it is a ValidationError.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Fields, true
	}
	return nil, false
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("protocol", func(fl validator.FieldLevel) bool {
			return model.Protocol(fl.Field().String()).IsRegistered()
		})
		validate = v
	})
	return validate
}

// Validate checks draft (a struct or pointer to struct with `validate`
// tags) and returns one message per failing field, or nil when valid.
func Validate(draft any) FieldErrors {
	err := instance().Struct(draft)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(fe)
	}
	return out
}

// Check is Validate returning a *ValidationError, for use in error chains.
func Check(draft any) error {
	if fe := Validate(draft); len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}

func message(fe validator.FieldError) string {
	label := i18n.T("field." + fe.Field())
	switch fe.Tag() {
	case "required":
		return i18n.T("validation.required", label)
	case "min":
		return i18n.T("validation.min", label, fe.Param())
	case "hostname_rfc1123", "hostname":
		return i18n.T("validation.hostname", label)
	case "hostname_port|http_url":
		return i18n.T("validation.target", label)
	case "startswith":
		return i18n.T("validation.prefix", label)
	case "protocol":
		names := make([]string, 0)
		for _, p := range model.Protocols() {
			names = append(names, string(p))
		}
		return i18n.T("validation.protocol", label, strings.Join(names, ", "))
	default:
		return i18n.T("validation.invalid", label)
	}
}
