// Package validate implements the field rules shared by the registration
// and login forms.
//
// Validation is pure: it reads a snapshot of form values and returns the
// errors for the requested fields. It never mutates state.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names a form input. The values match the JSON keys the browser sends.
type Field string

const (
	CommunityName   Field = "communityName"
	CommunityEmail  Field = "communityEmail"
	PhoneNumber     Field = "phoneNumber"
	Address         Field = "address"
	AdminName       Field = "adminName"
	AdminEmail      Field = "adminEmail"
	Password        Field = "password"
	ConfirmPassword Field = "confirmPassword"
	Name            Field = "name"
	Email           Field = "email"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 8

// Messages shown next to invalid fields.
const (
	MsgInvalidEmail     = "Please enter a valid email"
	MsgPasswordRequired = "Password is required"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgPasswordMismatch = "Passwords do not match"
)

// emailPattern is a shape check only; deliverability is the auth provider's job.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Values is a snapshot of form values. A missing key reads as "".
type Values map[Field]string

// FieldErrors maps a field to its message. Fields without an error are absent.
type FieldErrors map[Field]string

// OK reports whether there are no errors.
func (e FieldErrors) OK() bool {
	return len(e) == 0
}

// Get returns the message for f, or "" if the field is valid.
func (e FieldErrors) Get(f Field) string {
	return e[f]
}

// Rule checks one field. It returns "" when the value is acceptable.
type Rule func(value string, all Values) string

// Rules binds fields to their rule.
type Rules map[Field]Rule

// Validate runs the rule of each listed field against values. Fields without
// a rule are accepted. The returned errors are a fresh map.
func (r Rules) Validate(values Values, fields ...Field) (FieldErrors, bool) {
	errs := make(FieldErrors)
	for _, f := range fields {
		rule, ok := r[f]
		if !ok {
			continue
		}
		if msg := rule(values[f], values); msg != "" {
			errs[f] = msg
		}
	}
	return errs, errs.OK()
}

// Required fails with msg when the trimmed value is empty.
func Required(msg string) Rule {
	return func(value string, _ Values) string {
		if strings.TrimSpace(value) == "" {
			return msg
		}
		return ""
	}
}

// RequiredEmail fails with requiredMsg when empty, else with MsgInvalidEmail
// when the value does not look like an address.
func RequiredEmail(requiredMsg string) Rule {
	required := Required(requiredMsg)
	return func(value string, all Values) string {
		if msg := required(value, all); msg != "" {
			return msg
		}
		if !emailPattern.MatchString(value) {
			return MsgInvalidEmail
		}
		return ""
	}
}

// NewPassword requires a value of at least MinPasswordLength characters.
func NewPassword() Rule {
	return func(value string, _ Values) string {
		switch {
		case value == "":
			return MsgPasswordRequired
		case utf8.RuneCountInString(value) < MinPasswordLength:
			return MsgPasswordTooShort
		}
		return ""
	}
}

// MatchesField fails when the value differs from the value of other,
// even when one of them is empty.
func MatchesField(other Field, msg string) Rule {
	return func(value string, all Values) string {
		if value != all[other] {
			return msg
		}
		return ""
	}
}

// IsEmail reports whether s passes the email shape check.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}
