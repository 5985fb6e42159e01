// contact/handler.go
// Package contact serves the contact form endpoint: it validates a posted
// submission, mails it to the site owner and records it in the submission
// log.
package contact

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/logging"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/middleware"
	"github.com/dalemusser/contactform/notify"
	"github.com/dalemusser/contactform/submission"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Response messages.
const (
	MsgMethodNotAllowed = "Method not allowed. Please use POST request."
	MsgInvalidForm      = "Invalid form submission."
	MsgFixErrors        = "Please fix the errors below."
	MsgDispatchFailed   = "Failed to send email. Please try again later."
	MsgSent             = "Thank you for contacting us! Your message has been sent successfully. We will get back to you within 24 hours."
)

// ReferenceHeader carries the per-submission reference ID, which also
// appears on every log entry for the request.
const ReferenceHeader = "X-Submission-Reference"

// DefaultTimeout bounds dispatch plus log append when Handler.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// multipartMemory bounds multipart parts kept in memory; the body limit
// middleware caps the total.
const multipartMemory = 1 << 20

// Dispatcher sends the owner notification for a valid submission.
type Dispatcher interface {
	Dispatch(ctx context.Context, s submission.Submission) error
}

// Appender records a delivered submission.
type Appender interface {
	Append(ctx context.Context, s submission.Submission) error
}

// Handler is the POST endpoint for contact submissions.
type Handler struct {
	Dispatcher Dispatcher
	Log        Appender
	Logger     *zap.Logger

	// Timeout bounds the work after validation. The visitor hanging up does
	// not cancel a send already in progress.
	Timeout time.Duration
}

// NewHandler returns a Handler with the default timeout.
func NewHandler(d Dispatcher, log Appender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Dispatcher: d, Log: log, Logger: logger, Timeout: DefaultTimeout}
}

// ServeHTTP handles one submission. The response is always the JSON
// envelope {success, message, errors}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ref := uuid.NewString()
	w.Header().Set(ReferenceHeader, ref)
	logger := logging.ForRequest(h.Logger, r).With(zap.String("reference", ref))

	if r.Method != http.MethodPost {
		metrics.RecordSubmission(metrics.OutcomeMethodNotAllowed)
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, submission.Fail(MsgMethodNotAllowed))
		return
	}

	values, err := httputil.ParseForm(r, multipartMemory)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeBadRequest)
		logger.Info("unparseable submission", zap.Error(err))
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, submission.Fail(middleware.TooLargeMessage))
			return
		}
		httputil.WriteJSON(w, http.StatusBadRequest, submission.Fail(MsgInvalidForm))
		return
	}

	s := submission.FromValues(values)
	if errs := submission.Validate(s); !errs.OK() {
		metrics.RecordSubmission(metrics.OutcomeInvalid)
		logger.Info("submission rejected", zap.Strings("fields", fieldNames(errs)))
		httputil.WriteJSON(w, http.StatusBadRequest, submission.Invalid(MsgFixErrors, errs))
		return
	}
	logger = logger.With(zap.String("subject", s.Subject))

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()

	if err := h.Dispatcher.Dispatch(ctx, s); err != nil {
		metrics.RecordSubmission(metrics.OutcomeDispatchFailed)
		logger.Error("notification dispatch failed",
			zap.Bool("transport_error", errors.Is(err, notify.ErrDispatch)),
			zap.Error(err))
		httputil.WriteJSON(w, http.StatusInternalServerError, submission.Fail(MsgDispatchFailed))
		return
	}

	// The email is out; a log failure must not turn this into an error
	// for the visitor.
	if h.Log != nil {
		if err := h.Log.Append(ctx, s); err != nil {
			logger.Error("submission log append failed", zap.Error(err))
		}
	}

	metrics.RecordSubmission(metrics.OutcomeSent)
	logger.Info("submission sent")
	httputil.WriteJSON(w, http.StatusOK, submission.Sent(MsgSent))
}

func fieldNames(errs submission.Errors) []string {
	names := make([]string, 0, len(errs))
	for _, f := range submission.Fields {
		if _, ok := errs[f]; ok {
			names = append(names, f)
		}
	}
	return names
}
