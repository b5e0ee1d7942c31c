// Package validation checks user-submitted forms. Every rule runs; the
// returned list preserves rule order so clients can render it as-is.
package validation

import (
	"regexp"
	"unicode/utf8"

	"github.com/ErlanBelekov/user-auth/internal/domain"
)

const MinPasswordLength = 10

// MaxPasswordBytes is bcrypt's input limit; longer passwords cannot be hashed.
const MaxPasswordBytes = 72

const (
	msgMissingField       = "Not all form fields were filled"
	msgPasswordMismatch   = "Passwords do not match"
	msgPasswordTooShort   = "Password must be at least 10 characters"
	msgPasswordTooLong    = "Password must be at most 72 bytes"
	msgInvalidEmailFormat = "Provided email does not have a valid form"
	msgInvalidCharacters  = "Provided field contains invalid characters"
)

var (
	// local part, then dot-separated domain labels of at most 63 chars that
	// neither start nor end with a hyphen.
	emailPattern = regexp.MustCompile(
		"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
			`@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
			`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
	)
	allowedChars = regexp.MustCompile(`^[a-zA-Z0-9._%=\-!?&*~#$@]*$`)
)

// Registration runs all registration rules against form.
func Registration(form domain.RegistrationForm) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	if form.Name == "" || form.Email == "" || form.Password == "" || form.Password2 == "" {
		errs = append(errs, domain.ValidationError{Kind: domain.KindMissingField, Message: msgMissingField})
	}
	if form.Password != form.Password2 {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordMismatch, Message: msgPasswordMismatch})
	}
	if utf8.RuneCountInString(form.Password) < MinPasswordLength {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordTooShort, Message: msgPasswordTooShort})
	}
	if len(form.Password) > MaxPasswordBytes {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordTooLong, Message: msgPasswordTooLong})
	}
	if !emailPattern.MatchString(form.Email) {
		errs = append(errs, domain.ValidationError{Kind: domain.KindInvalidEmailFormat, Message: msgInvalidEmailFormat})
	}
	if !validChars(form.Name, form.Email, form.Password, form.Password2) {
		errs = append(errs, domain.ValidationError{Kind: domain.KindInvalidCharacters, Message: msgInvalidCharacters})
	}

	return errs
}

// PasswordReset applies the password subset of the registration rules.
func PasswordReset(password, password2 string) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	if password == "" || password2 == "" {
		errs = append(errs, domain.ValidationError{Kind: domain.KindMissingField, Message: msgMissingField})
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordTooShort, Message: msgPasswordTooShort})
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordTooLong, Message: msgPasswordTooLong})
	}
	if password != password2 {
		errs = append(errs, domain.ValidationError{Kind: domain.KindPasswordMismatch, Message: msgPasswordMismatch})
	}
	if !validChars(password, password2) {
		errs = append(errs, domain.ValidationError{Kind: domain.KindInvalidCharacters, Message: msgInvalidCharacters})
	}

	return errs
}

func validChars(fields ...string) bool {
	for _, f := range fields {
		if !allowedChars.MatchString(f) {
			return false
		}
	}
	return true
}
