package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// CreateUserInput is the registration payload. Role is never bound from
// request bodies; it is set by trusted callers such as the admin CLI.
type CreateUserInput struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Name     string      `json:"name" validate:"required,max=100"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"-" validate:"omitempty,oneof=user admin"`
}

// UpdateUserInput is a partial profile update; nil fields are left untouched.
type UpdateUserInput struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreatePostInput struct {
	Title     string  `json:"title" validate:"required,max=200"`
	Content   string  `json:"content" validate:"required"`
	Excerpt   *string `json:"excerpt" validate:"omitempty,max=500"`
	Published *bool   `json:"published"`
	AuthorID  int64   `json:"-" validate:"gt=0"`
}

// UpdatePostInput is a partial post update. An empty Excerpt clears it.
type UpdatePostInput struct {
	Title     *string `json:"title" validate:"omitempty,max=200"`
	Content   *string `json:"content"`
	Excerpt   *string `json:"excerpt" validate:"omitempty,max=500"`
	Published *bool   `json:"published"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			r := []rune(fld.Name)
			r[0] = unicode.ToLower(r[0])
			return string(r)
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and returns an apperr.Validation with
// one FieldError per failing field, or nil.
func validateStruct(s any, extra ...apperr.FieldError) error {
	details := append([]apperr.FieldError(nil), extra...)

	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			details = append(details, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	default:
		return fmt.Errorf("validation: %w", err)
	}

	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

// notBlank reports a FieldError when a provided optional value is blank.
func notBlank(field string, v *string) []apperr.FieldError {
	if v != nil && strings.TrimSpace(*v) == "" {
		return []apperr.FieldError{{Field: field, Message: "must not be empty"}}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
