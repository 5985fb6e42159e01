// client/client.go
// Package client is the visitor side of the contact form: it validates a
// submission locally, posts it, and drives a View with the outcome.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
)

// Messages shown by the coordinator itself rather than the server.
const (
	MsgNetworkError = "Network error. Please check your connection and try again."
	MsgGenericError = "An error occurred. Please try again."
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 64 << 10

// View is the presentation state of one form. SetFieldError with an empty
// message clears that field's error.
type View interface {
	ClearAlerts()
	SetFieldError(field, msg string)
	ClearFieldErrors()
	ShowSuccess(msg string)
	ShowError(msg string)
	Reset()
}

// BusyView is implemented by views that show an in-flight state (a
// disabled "Sending..." button).
type BusyView interface {
	SetBusy(busy bool)
}

// Outcome classifies how a submission attempt ended.
type Outcome int

const (
	// OutcomeInvalid: local validation failed; nothing was sent.
	OutcomeInvalid Outcome = iota
	// OutcomeSent: the server accepted and delivered the submission.
	OutcomeSent
	// OutcomeRejected: the server returned field errors.
	OutcomeRejected
	// OutcomeFailed: the server refused without field errors.
	OutcomeFailed
	// OutcomeNetworkError: no usable response; the form is kept for retry.
	OutcomeNetworkError
	// OutcomeBusy: another submission from this form is still in flight.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSent:
		return "sent"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeBusy:
		return "busy"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result reports one Submit call.
type Result struct {
	Outcome Outcome
	Message string
	Errors  submission.Errors
	// Status is the HTTP status, zero if no response arrived.
	Status int
	// Err is the transport or decode failure behind OutcomeNetworkError.
	Err error
}

// Coordinator submits one form to the contact endpoint.
type Coordinator struct {
	Endpoint   string
	HTTPClient *http.Client
	View       View

	inFlight sync.Mutex
}

// New returns a Coordinator. A nil hc gets a client with a 30s timeout.
func New(endpoint string, hc *http.Client, v View) *Coordinator {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Coordinator{Endpoint: endpoint, HTTPClient: hc, View: v}
}

// Submit validates s, posts it, and renders the outcome on the View.
// Fields are trimmed and normalized first, exactly as the server does.
// Only one Submit per Coordinator runs at a time; overlapping calls return
// OutcomeBusy without touching the View.
func (c *Coordinator) Submit(ctx context.Context, s submission.Submission) Result {
	if !c.inFlight.TryLock() {
		return Result{Outcome: OutcomeBusy}
	}
	defer c.inFlight.Unlock()

	c.View.ClearAlerts()
	s = s.Normalized()

	if errs := c.validateAll(s); !errs.OK() {
		return Result{Outcome: OutcomeInvalid, Errors: errs}
	}

	if bv, ok := c.View.(BusyView); ok {
		bv.SetBusy(true)
		defer bv.SetBusy(false)
	}

	resp, status, err := c.post(ctx, s)
	if err != nil {
		c.View.ShowError(MsgNetworkError)
		return Result{Outcome: OutcomeNetworkError, Message: MsgNetworkError, Status: status, Err: err}
	}

	switch {
	case resp.Success:
		c.View.ShowSuccess(resp.Message)
		c.View.Reset()
		c.View.ClearFieldErrors()
		return Result{Outcome: OutcomeSent, Message: resp.Message, Status: status}

	case len(resp.Errors) > 0:
		for _, field := range orderedFields(resp.Errors) {
			c.View.SetFieldError(field, resp.Errors[field])
		}
		return Result{Outcome: OutcomeRejected, Message: resp.Message, Errors: resp.Errors, Status: status}

	default:
		msg := resp.Message
		if strings.TrimSpace(msg) == "" {
			msg = MsgGenericError
		}
		c.View.ShowError(msg)
		return Result{Outcome: OutcomeFailed, Message: msg, Status: status}
	}
}

// ValidateField checks one field and annotates or clears it on the View.
// It is what a form runs when a field loses focus.
func (c *Coordinator) ValidateField(field string, s submission.Submission) bool {
	msg, ok := submission.ValidateField(field, s.Normalized())
	c.View.SetFieldError(field, msg)
	return ok
}

// Input clears a field's error while the visitor is editing it.
func (c *Coordinator) Input(field string) {
	c.View.SetFieldError(field, "")
}

func (c *Coordinator) validateAll(s submission.Submission) submission.Errors {
	errs := submission.Errors{}
	for _, field := range submission.Fields {
		msg, ok := submission.ValidateField(field, s)
		c.View.SetFieldError(field, msg)
		if !ok {
			errs[field] = msg
		}
	}
	return errs
}

func (c *Coordinator) post(ctx context.Context, s submission.Submission) (submission.Response, int, error) {
	var out submission.Response

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(s.Values().Encode()))
	if err != nil {
		return out, 0, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return out, 0, fmt.Errorf("client: post %s: %w", c.Endpoint, err)
	}
	defer resp.Body.Close()

	if err := httputil.DecodeJSON(io.LimitReader(resp.Body, maxResponseBytes), &out); err != nil {
		return out, resp.StatusCode, fmt.Errorf("client: decode %d response: %w", resp.StatusCode, err)
	}
	return out, resp.StatusCode, nil
}

// orderedFields lists the fields of errs in form order, then any unknown
// fields the server sent.
func orderedFields(errs submission.Errors) []string {
	out := make([]string, 0, len(errs))
	seen := make(map[string]bool, len(errs))
	for _, f := range submission.Fields {
		if _, ok := errs[f]; ok {
			out = append(out, f)
			seen[f] = true
		}
	}
	for f := range errs {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}
