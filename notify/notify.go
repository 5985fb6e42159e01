// notify/notify.go
// Package notify turns a validated submission into an email for the site
// owner and hands it to an outbound mail transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/contactform/submission"
	"go.uber.org/zap"
)

// SubjectPrefix starts every notification subject line.
const SubjectPrefix = "New Contact Form Submission - "

var (
	// ErrDispatch wraps any transport failure returned by Dispatch.
	ErrDispatch = errors.New("notify: dispatch failed")

	// ErrNoRecipient is returned when the dispatcher has no recipient configured.
	ErrNoRecipient = errors.New("notify: no recipient configured")
)

// Email is a composed message ready for a transport.
type Email struct {
	To       []string
	ReplyTo  string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport delivers a composed email. Implementations must not retry.
type Transport interface {
	Send(ctx context.Context, msg Email) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Email) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, msg Email) error {
	return f(ctx, msg)
}

// Dispatcher composes notification emails for a fixed recipient.
type Dispatcher struct {
	Recipient string
	Transport Transport
	Logger    *zap.Logger

	// Clock stamps the submission time. Defaults to time.Now.
	Clock func() time.Time
}

// NewDispatcher returns a Dispatcher using the wall clock.
func NewDispatcher(recipient string, t Transport, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Recipient: recipient,
		Transport: t,
		Logger:    logger,
		Clock:     time.Now,
	}
}

// Compose builds the notification for s. User text is escaped by the body
// templates, never trusted as markup.
func (d *Dispatcher) Compose(s submission.Submission) (Email, error) {
	if strings.TrimSpace(d.Recipient) == "" {
		return Email{}, ErrNoRecipient
	}

	now := time.Now
	if d.Clock != nil {
		now = d.Clock
	}

	htmlBody, textBody, err := renderBodies(s, now())
	if err != nil {
		return Email{}, err
	}

	return Email{
		To:       []string{d.Recipient},
		ReplyTo:  s.Email,
		Subject:  Subject(s.Subject),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// Dispatch composes and sends one notification. Transport failures come
// back wrapped in ErrDispatch; nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, s submission.Submission) error {
	msg, err := d.Compose(s)
	if err != nil {
		return err
	}
	if d.Transport == nil {
		return fmt.Errorf("%w: no transport configured", ErrDispatch)
	}
	if err := d.Transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	if d.Logger != nil {
		d.Logger.Debug("notification dispatched",
			zap.String("to", d.Recipient),
			zap.String("subject", msg.Subject),
		)
	}
	return nil
}

// Subject returns the notification subject for a submission subject.
// Whitespace runs collapse to one space so the header stays on one line.
func Subject(subject string) string {
	return SubjectPrefix + strings.Join(strings.Fields(subject), " ")
}
