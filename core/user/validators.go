package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/homeworkhelper/api/core"
)

var (
	roleTag  = "role"
	roleText = "role must be one of student, admin"
)

// InitValidators registers the user validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// roleValidation checks that the role is one of Roles.
func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(string); ok {
		for _, r := range Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}

func (sr *SetRole) Validate(validate *validator.Validate) error {
	sr.Clean()
	return validate.Struct(sr)
}
