// submission/rules.go
package submission

import (
	"regexp"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]{10,}$`)
)

// Check is one predicate on a field value and the message shown when it fails.
type Check struct {
	Test    func(value string) bool
	Message string
}

// Rule describes how one field is validated. Checks run in order and the
// first failure wins. An empty optional value skips the checks.
type Rule struct {
	Field           string
	Value           func(Submission) string
	Required        bool
	RequiredMessage string
	Checks          []Check
}

// rules is the one rule table. Order matches Fields.
var rules = []Rule{
	{
		Field:           FieldFullName,
		Value:           func(s Submission) string { return s.FullName },
		Required:        true,
		RequiredMessage: "Full name is required.",
		Checks: []Check{
			{Test: minLen(2), Message: "Full name must be at least 2 characters."},
			{Test: maxLen(100), Message: "Full name must not exceed 100 characters."},
		},
	},
	{
		Field:           FieldEmail,
		Value:           func(s Submission) string { return s.Email },
		Required:        true,
		RequiredMessage: "Email is required.",
		Checks: []Check{
			{Test: emailPattern.MatchString, Message: "Please enter a valid email address."},
		},
	},
	{
		Field:           FieldPhone,
		Value:           func(s Submission) string { return s.Phone },
		Required:        true,
		RequiredMessage: "Phone number is required.",
		Checks: []Check{
			{Test: phonePattern.MatchString, Message: "Please enter a valid phone number."},
		},
	},
	{
		Field: FieldCompany,
		Value: func(s Submission) string { return s.Company },
		Checks: []Check{
			{Test: maxLen(100), Message: "Company name must not exceed 100 characters."},
		},
	},
	{
		Field:           FieldSubject,
		Value:           func(s Submission) string { return s.Subject },
		Required:        true,
		RequiredMessage: "Subject is required.",
	},
	{
		Field:           FieldMessage,
		Value:           func(s Submission) string { return s.Message },
		Required:        true,
		RequiredMessage: "Message is required.",
		Checks: []Check{
			{Test: minLen(10), Message: "Message must be at least 10 characters."},
			{Test: maxLen(5000), Message: "Message must not exceed 5000 characters."},
		},
	},
	{
		Field: FieldPrivacy,
		Value: func(s Submission) string {
			if s.PrivacyAccepted {
				return ConsentValue
			}
			return ""
		},
		Required:        true,
		RequiredMessage: "You must agree to the privacy policy.",
	},
}

// Rules returns a copy of the rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func ruleFor(field string) (Rule, bool) {
	for _, r := range rules {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// apply returns the failure message for one rule, or "" when it passes.
func (r Rule) apply(s Submission) string {
	v := r.Value(s)
	if v == "" {
		if r.Required {
			return r.RequiredMessage
		}
		return ""
	}
	for _, c := range r.Checks {
		if !c.Test(v) {
			return c.Message
		}
	}
	return ""
}

func minLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

func maxLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) <= n }
}
