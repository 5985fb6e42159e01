// submission/submission.go
// Package submission defines the contact-form payload, its wire encoding,
// and the single rule table both the server and the client validate against.
package submission

import (
	"html"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Form field names as they appear on the wire and as keys in Errors.
const (
	FieldFullName = "fullName"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldCompany  = "company"
	FieldSubject  = "subject"
	FieldMessage  = "message"
	FieldPrivacy  = "privacy"
)

// Fields lists every form field in display order.
var Fields = []string{
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldCompany,
	FieldSubject,
	FieldMessage,
	FieldPrivacy,
}

// ConsentValue is the canonical wire encoding of an accepted privacy box.
const ConsentValue = "on"

// Submission is one contact-form payload submitted by a site visitor.
type Submission struct {
	FullName        string
	Email           string
	Phone           string
	Company         string // optional
	Subject         string
	Message         string
	PrivacyAccepted bool
}

// FromValues builds a Submission from decoded form values. Text fields are
// trimmed and NFC-normalized so length rules count what the visitor typed.
func FromValues(v url.Values) Submission {
	return Submission{
		FullName:        clean(v.Get(FieldFullName)),
		Email:           clean(v.Get(FieldEmail)),
		Phone:           clean(v.Get(FieldPhone)),
		Company:         clean(v.Get(FieldCompany)),
		Subject:         clean(v.Get(FieldSubject)),
		Message:         clean(v.Get(FieldMessage)),
		PrivacyAccepted: ParseConsent(v.Get(FieldPrivacy)),
	}
}

// Values encodes s for a form POST. An accepted privacy box is always sent
// as ConsentValue; a declined one is omitted, like an unchecked checkbox.
func (s Submission) Values() url.Values {
	v := url.Values{}
	v.Set(FieldFullName, s.FullName)
	v.Set(FieldEmail, s.Email)
	v.Set(FieldPhone, s.Phone)
	v.Set(FieldCompany, s.Company)
	v.Set(FieldSubject, s.Subject)
	v.Set(FieldMessage, s.Message)
	if s.PrivacyAccepted {
		v.Set(FieldPrivacy, ConsentValue)
	}
	return v
}

// ParseConsent reports whether a checkbox value means "accepted".
// Both sides use it, so there is exactly one boolean encoding.
func ParseConsent(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Normalized returns a copy with every text field trimmed and
// NFC-normalized, the form the rules are written against. FromValues
// already returns normalized submissions.
func (s Submission) Normalized() Submission {
	return Submission{
		FullName:        clean(s.FullName),
		Email:           clean(s.Email),
		Phone:           clean(s.Phone),
		Company:         clean(s.Company),
		Subject:         clean(s.Subject),
		Message:         clean(s.Message),
		PrivacyAccepted: s.PrivacyAccepted,
	}
}

// Escaped returns a copy with every text field HTML-escaped
// (<, >, &, ' and ").
func (s Submission) Escaped() Submission {
	return Submission{
		FullName:        html.EscapeString(s.FullName),
		Email:           html.EscapeString(s.Email),
		Phone:           html.EscapeString(s.Phone),
		Company:         html.EscapeString(s.Company),
		Subject:         html.EscapeString(s.Subject),
		Message:         html.EscapeString(s.Message),
		PrivacyAccepted: s.PrivacyAccepted,
	}
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
