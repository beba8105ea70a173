package contact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Contact is a single phonebook entry.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	AddedAt time.Time
}

// Variant selects which fields the form carries and whether they are checked.
type Variant string

const (
	// VariantBasic takes name and phone as given.
	VariantBasic Variant = "basic"
	// VariantValidated takes name, phone and email and checks phone and email.
	VariantValidated Variant = "validated"
)

var ErrUnknownVariant = errors.New("unknown variant")

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantBasic, VariantValidated:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// HasEmail reports whether the variant collects an email address.
func (v Variant) HasEmail() bool {
	return v == VariantValidated
}

// Warning is a one-shot message shown on the next page render.
type Warning string

const (
	WarningPhone Warning = "phone"
	WarningEmail Warning = "email"
)

var warningMessages = map[Warning]string{
	WarningPhone: "Phone number should contain only digits.",
	WarningEmail: "Invalid email address format.",
}

// ParseWarning maps a stored code back to a Warning. Unknown codes are rejected.
func ParseWarning(code string) (Warning, bool) {
	w := Warning(code)
	_, ok := warningMessages[w]
	return w, ok
}

func (w Warning) Message() string {
	return warningMessages[w]
}

var (
	phonePattern = regexp.MustCompile(`^\d+$`)
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// Validate checks c against the rules of variant. Phone is checked before
// email and only the first failure is returned.
func Validate(variant Variant, c Contact) (Warning, bool) {
	if variant != VariantValidated {
		return "", true
	}
	if !phonePattern.MatchString(c.Phone) {
		return WarningPhone, false
	}
	if !emailPattern.MatchString(c.Email) {
		return WarningEmail, false
	}
	return "", true
}
