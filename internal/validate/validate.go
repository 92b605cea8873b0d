// Package validate checks user input before it is sent to the portal.
// Messages are English and name fields by their JSON keys.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	v          *validator.Validate
	translator ut.Translator

	atLeastOneTag  = "at_least_one"
	atLeastOneText = "change at least one of name, email or avatar"
)

func init() {
	v = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(profileStructValidation, Profile{})
	registerTranslation(atLeastOneTag, atLeastOneText)
}

func registerTranslation(tag, text string) {
	_ = v.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Login is the sign-in form.
type Login struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// JoinClass is the join-by-code form.
type JoinClass struct {
	Code string `json:"code" validate:"required,alphanum,min=4,max=12"`
}

// OTPRequest asks for a password reset code.
type OTPRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

// ResetPassword sets a new password with an OTP.
type ResetPassword struct {
	Identifier           string `json:"identifier" validate:"required"`
	OTP                  string `json:"otp" validate:"required,numeric,len=6"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// Profile is a partial profile edit. Avatar is a local file path.
type Profile struct {
	Name   string `json:"name" validate:"omitempty,max=100"`
	Email  string `json:"email" validate:"omitempty,email"`
	Avatar string `json:"avatar" validate:"omitempty,file"`
}

func profileStructValidation(sl validator.StructLevel) {
	p, ok := sl.Current().Interface().(Profile)
	if !ok {
		return
	}
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.Email) == "" && p.Avatar == "" {
		sl.ReportError(p.Name, "name", "Name", atLeastOneTag, "")
	}
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Error lists every failed field of a form.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for field, or "".
func (e *Error) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// Struct validates a form. It returns *Error for rule failures.
func Struct(form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fe.Translate(translator)})
	}
	return out
}
