// Package credentials checks submitted email and password values before any
// store access happens. Checks run in a fixed order so the reported error is
// deterministic: email shape, password length, blank password, confirmation.
package credentials

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// maxEmailLength is the longest address that fits every account store.
const maxEmailLength = 254

var (
	passwordLengthRule = "min=" + strconv.Itoa(domain.MinPasswordLength)
	emailRule          = "required,email,max=" + strconv.Itoa(maxEmailLength)
)

// Validator wraps go-playground/validator. It holds no per-call state and is
// safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator ready for use.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{v: v}
}

// NormalizeEmail returns the canonical form used as the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration applies the full registration rule set.
func (cv *Validator) ValidateRegistration(email, password, confirm string) error {
	if err := cv.ValidateLogin(email, password); err != nil {
		return err
	}
	if cv.v.VarWithValue(password, confirm, "eqfield") != nil {
		return domain.ErrPasswordMismatch
	}
	return nil
}

// ValidateLogin checks email shape and password length only.
func (cv *Validator) ValidateLogin(email, password string) error {
	if !cv.validEmail(email) {
		return domain.ErrInvalidEmail
	}
	if cv.v.Var(password, passwordLengthRule) != nil {
		return domain.ErrPasswordTooShort
	}
	if cv.v.Var(password, "notblank") != nil {
		return domain.ErrPasswordBlank
	}
	return nil
}

// validEmail requires a standard address of at most maxEmailLength runes
// whose domain has at least one dot.
func (cv *Validator) validEmail(email string) bool {
	email = strings.TrimSpace(email)
	if cv.v.Var(email, emailRule) != nil {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domainPart := email[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
