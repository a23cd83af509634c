package question

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/homeworkhelper/api/core"
)

var (
	subjectTag  = "subject"
	subjectText = "must be one of " + subjectNames()
)

func subjectNames() string {
	names := make([]string, 0, len(Subjects))
	for _, s := range Subjects {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// InitValidators registers the question validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjectTag, subjectValidation)
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)
}

// subjectValidation checks that a non-empty string names one of Subjects.
func subjectValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok || s == "" {
		return false
	}
	_, ok = ParseSubject(s)
	return ok
}

func (ar *AskRequest) Validate(validate *validator.Validate) error {
	ar.Clean()
	return validate.Struct(ar)
}

func (lr *ListRequest) Validate(validate *validator.Validate) error {
	lr.Clean()
	return validate.Struct(lr)
}
