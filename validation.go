package goIdentity

import (
	"errors"

	"github.com/MrEthical07/goIdentity/internal/validate"
)

type registerInput struct {
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"firstName" validate:"omitempty,min=2,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,min=2,max=100"`
}

type loginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,password"`
}

type profileInput struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=2,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=2,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
}

type accessInput struct {
	Name        string `json:"name" validate:"required,accessname,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// checkInput runs struct validation and converts failures to *ValidationError.
func checkInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verr *validate.Error
	if errors.As(err, &verr) {
		return &ValidationError{Fields: verr.Fields()}
	}
	return &ValidationError{Fields: map[string]string{"input": err.Error()}}
}
