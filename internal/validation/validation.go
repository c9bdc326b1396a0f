// Package validation checks request payloads before anything reaches the
// document store. Messages are English and keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/s/peripatos/internal/models"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	notBlankTag  = "notblank"
	mediumTag    = "medium"
	userTypesTag = "user_types"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlank)
	_ = Validate.RegisterValidation(mediumTag, validMedium)
	_ = Validate.RegisterValidation(userTypesTag, validUserTypes)

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, mediumTag, userTypesTag} {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case mediumTag:
		return fe.Field() + " must be one of hybrid, online_synchronous, online_asynchronous, in_person"
	case userTypesTag:
		return "select at least one of student, teacher, classroomOwner"
	}
	return ""
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func validMedium(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case models.Medium:
		return v.Valid()
	case string:
		return models.Medium(v).Valid()
	}
	return false
}

func validUserTypes(fl validator.FieldLevel) bool {
	types, ok := fl.Field().Interface().([]models.UserType)
	if !ok || len(types) == 0 {
		return false
	}
	for _, t := range types {
		if !t.Valid() {
			return false
		}
	}
	return true
}

// Error carries one message per offending field.
type Error struct {
	Fields map[string]string `json:"fields"`
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = e.Fields[k]
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewError reports a single field.
func NewError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// Struct validates v and returns an *Error listing every failing field.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Translate(Translator)
	}
	return out
}
