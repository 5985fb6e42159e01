// submission/validate.go
package submission

// Errors maps a form field name to its human-readable failure message.
type Errors map[string]string

// OK reports whether no field failed.
func (e Errors) OK() bool {
	return len(e) == 0
}

// Validate evaluates every rule independently and collects the failures.
// It has no side effects; callers decide how to present the result.
func Validate(s Submission) Errors {
	errs := Errors{}
	for _, r := range rules {
		if msg := r.apply(s); msg != "" {
			errs[r.Field] = msg
		}
	}
	return errs
}

// ValidateField evaluates a single field. Unknown fields always pass.
func ValidateField(field string, s Submission) (string, bool) {
	r, ok := ruleFor(field)
	if !ok {
		return "", true
	}
	msg := r.apply(s)
	return msg, msg == ""
}
