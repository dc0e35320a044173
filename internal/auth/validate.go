package auth

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/rize/internal/shared"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// Field names reported by [ValidationError].
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// emailPattern accepts local@domain.tld: no whitespace, one @, and at least one dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

// FieldError is one violated input constraint.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists local input violations in check order. The first one is the headline.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Field + ": " + e.Fields[0].Message
}

func (e *ValidationError) Is(target error) bool { return target == shared.ErrValidation }

// Field returns the headline field name.
func (e *ValidationError) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	return slices.ContainsFunc(e.Fields, func(f FieldError) bool { return f.Field == field })
}

// UserMessage returns the headline violation message.
func (e *ValidationError) UserMessage() string {
	if len(e.Fields) == 0 {
		return "Invalid input"
	}
	return e.Fields[0].Message
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidEmail reports whether email has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validateSignIn(email, password string) error {
	v := &ValidationError{}
	if email == "" || password == "" {
		if email == "" {
			v.add(FieldEmail, "Please enter email and password")
		}
		if password == "" {
			v.add(FieldPassword, "Please enter email and password")
		}
		return v
	}

	if !ValidEmail(email) {
		v.add(FieldEmail, "Invalid email format")
	}
	return v.orNil()
}

func validateSignUp(email, password string) error {
	v := &ValidationError{}
	switch {
	case email == "":
		v.add(FieldEmail, "Email is required")
	case !ValidEmail(email):
		v.add(FieldEmail, "Invalid email format")
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		v.add(FieldPassword, "Password must be at least 6 characters")
	}
	return v.orNil()
}

func validateEmail(email string) error {
	v := &ValidationError{}
	switch {
	case email == "":
		v.add(FieldEmail, "Email is required")
	case !ValidEmail(email):
		v.add(FieldEmail, "Invalid email format")
	}
	return v.orNil()
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
