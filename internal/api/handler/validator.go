package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// RequestValidator adapts go-playground/validator to echo.Validator. Field
// names in messages come from the json tags so they match the payload keys.
type RequestValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

// enumTags are the CRM-specific tags and the message each one renders.
var enumTags = map[string]struct {
	valid   validator.Func
	message string
}{
	"role": {
		valid: func(fl validator.FieldLevel) bool {
			_, err := domain.ParseRole(fl.Field().String())
			return err == nil
		},
		message: "{0} must be one of: admin, staff, client, lead",
	},
	"progress": {
		valid: func(fl validator.FieldLevel) bool {
			return domain.Progress(fl.Field().String()).Valid()
		},
		message: "{0} must be one of: not started, in progress, completed",
	},
}

// NewValidator builds the validator with English messages and the role and
// progress tags registered.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic("validator: register translations: " + err.Error())
	}

	for tag, rule := range enumTags {
		if err := v.RegisterValidation(tag, rule.valid); err != nil {
			panic("validator: register " + tag + ": " + err.Error())
		}
		message := rule.message
		_ = v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, message, true) },
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T(fe.Tag(), fe.Field())
				return msg
			},
		)
	}
	return &RequestValidator{v: v, trans: trans}
}

func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fe.Translate(rv.trans))
	}
	return domain.NewValidationError(strings.Join(msgs, "; "))
}
