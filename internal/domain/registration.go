package domain

import "strings"

type RegistrationForm struct {
	Name      string
	Email     string
	Password  string
	Password2 string
}

type ErrorKind string

const (
	KindMissingField           ErrorKind = "MissingField"
	KindPasswordMismatch       ErrorKind = "PasswordMismatch"
	KindPasswordTooShort       ErrorKind = "PasswordTooShort"
	KindPasswordTooLong        ErrorKind = "PasswordTooLong"
	KindInvalidEmailFormat     ErrorKind = "InvalidEmailFormat"
	KindInvalidCharacters      ErrorKind = "InvalidCharacters"
	KindEmailAlreadyRegistered ErrorKind = "EmailAlreadyRegistered"
	KindTokenInvalid           ErrorKind = "TokenInvalid"
	KindBadCredentials         ErrorKind = "BadCredentials"
	KindConfigError            ErrorKind = "ConfigError"
	KindDatabaseError          ErrorKind = "DatabaseError"
	KindInvalidBody            ErrorKind = "InvalidBody"
	KindInternal               ErrorKind = "InternalError"
)

type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ValidationErrors keeps rule order; an empty list means the input is acceptable.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Has(kind ErrorKind) bool {
	for _, e := range v {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
