// client/textview.go
package client

import (
	"fmt"
	"io"
	"sync"
)

// TextView renders form state as lines of text, for terminals and logs.
// It remembers the current field errors so callers can inspect them.
type TextView struct {
	mu     sync.Mutex
	out    io.Writer
	errs   map[string]string
	reset  bool
	status string
}

// NewTextView returns a TextView writing to out.
func NewTextView(out io.Writer) *TextView {
	return &TextView{out: out, errs: map[string]string{}}
}

// ClearAlerts forgets the last success or error alert.
func (v *TextView) ClearAlerts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = ""
}

// SetFieldError prints and records msg for field. An empty msg clears it
// silently.
func (v *TextView) SetFieldError(field, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if msg == "" {
		delete(v.errs, field)
		return
	}
	v.errs[field] = msg
	fmt.Fprintf(v.out, "  %s: %s\n", field, msg)
}

// ClearFieldErrors forgets every field error.
func (v *TextView) ClearFieldErrors() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = map[string]string{}
}

// ShowSuccess prints msg as an "OK:" line.
func (v *TextView) ShowSuccess(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = msg
	fmt.Fprintf(v.out, "OK: %s\n", msg)
}

// ShowError prints msg as an "Error:" line.
func (v *TextView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = msg
	fmt.Fprintf(v.out, "Error: %s\n", msg)
}

// Reset marks the form as cleared; see WasReset.
func (v *TextView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reset = true
}

// SetBusy prints "Sending..." when a request starts.
func (v *TextView) SetBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if busy {
		fmt.Fprintln(v.out, "Sending...")
	}
}

// FieldErrors returns a copy of the errors currently shown.
func (v *TextView) FieldErrors() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]string, len(v.errs))
	for k, m := range v.errs {
		out[k] = m
	}
	return out
}

// WasReset reports whether Reset has been called.
func (v *TextView) WasReset() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reset
}

// Status returns the last success or error alert, empty after ClearAlerts.
func (v *TextView) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}
