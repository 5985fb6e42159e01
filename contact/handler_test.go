package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/middleware"
	"github.com/dalemusser/contactform/notify"
	"github.com/dalemusser/contactform/sublog"
	"github.com/dalemusser/contactform/submission"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outbox is a notify.Transport that records what it is asked to send.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (o *outbox) Send(_ context.Context, msg notify.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type fixture struct {
	handler *Handler
	outbox  *outbox
	logPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	box := &outbox{}
	path := filepath.Join(t.TempDir(), "logs", "contact_submissions.log")
	d := notify.NewDispatcher("support@paperpackaginghub.com", box, nil)
	return &fixture{
		handler: NewHandler(d, sublog.New(path), nil),
		outbox:  box,
		logPath: path,
	}
}

func (f *fixture) logLines(t *testing.T) []string {
	t.Helper()
	b, err := os.ReadFile(f.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func validValues() url.Values {
	return submission.Submission{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Phone:           "+1 (555) 123-4567",
		Company:         "Acme Packaging",
		Subject:         "Bulk order",
		Message:         "We need 10,000 corrugated boxes by May.",
		PrivacyAccepted: true,
	}.Values()
}

func postForm(h http.Handler, v url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) submission.Response {
	t.Helper()
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var resp submission.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func TestHandler_ValidSubmission(t *testing.T) {
	f := newFixture(t)
	before := metrics.SubmissionCount(metrics.OutcomeSent)

	rec := postForm(f.handler, validValues())

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, MsgSent, resp.Message)
	assert.Empty(t, resp.Errors)
	assert.NotEmpty(t, rec.Header().Get(ReferenceHeader))

	require.Equal(t, 1, f.outbox.count())
	msg := f.outbox.sent[0]
	assert.Equal(t, []string{"support@paperpackaginghub.com"}, msg.To)
	assert.Equal(t, "jane@example.com", msg.ReplyTo)
	assert.Equal(t, notify.SubjectPrefix+"Bulk order", msg.Subject)

	lines := f.logLines(t)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Name: Jane Doe | Email: jane@example.com | Phone: +1 (555) 123-4567 | Company: Acme Packaging | Subject: Bulk order")

	assert.Equal(t, 1.0, metrics.SubmissionCount(metrics.OutcomeSent)-before)
}

func TestHandler_MultipartSubmission(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range validValues() {
		require.NoError(t, mw.WriteField(k, vs[0]))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/contact", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
	assert.Equal(t, 1, f.outbox.count())
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, httptest.NewRequest(method, "/contact", nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, MsgMethodNotAllowed, resp.Message)
			assert.Zero(t, f.outbox.count())
			assert.Nil(t, f.logLines(t))
		})
	}
}

func TestHandler_ValidationFailure(t *testing.T) {
	f := newFixture(t)
	v := validValues()
	v.Set(submission.FieldMessage, "too short") // 9 runes

	rec := postForm(f.handler, v)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgFixErrors, resp.Message)
	assert.Equal(t, submission.Errors{submission.FieldMessage: "Message must be at least 10 characters."}, resp.Errors)
	assert.Zero(t, f.outbox.count())
	assert.Nil(t, f.logLines(t))
}

func TestHandler_PrivacyMissing(t *testing.T) {
	f := newFixture(t)
	v := validValues()
	v.Del(submission.FieldPrivacy)

	resp := decode(t, postForm(f.handler, v))
	assert.Contains(t, resp.Errors, submission.FieldPrivacy)
	assert.Len(t, resp.Errors, 1)
}

func TestHandler_DispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.outbox.err = errors.New("smtp: 421 service not available")

	rec := postForm(f.handler, validValues())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgDispatchFailed, resp.Message)
	assert.Nil(t, f.logLines(t), "nothing is logged when the email was not sent")
}

type brokenLog struct{}

func (brokenLog) Append(context.Context, submission.Submission) error {
	return errors.New("disk full")
}

func TestHandler_LogFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.handler.Log = brokenLog{}

	rec := postForm(f.handler, validValues())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
	assert.Equal(t, 1, f.outbox.count())
}

func TestHandler_EscapesMarkupInEmail(t *testing.T) {
	f := newFixture(t)
	v := validValues()
	v.Set(submission.FieldFullName, "<script>alert(1)</script>")

	rec := postForm(f.handler, v)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 1, f.outbox.count())
	assert.NotContains(t, f.outbox.sent[0].HTMLBody, "<script>")
	assert.Contains(t, f.outbox.sent[0].HTMLBody, "&lt;script&gt;")

	lines := f.logLines(t)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "<script>")
}

func TestHandler_ConcurrentSubmissions(t *testing.T) {
	f := newFixture(t)
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := validValues()
			v.Set(submission.FieldFullName, fmt.Sprintf("Visitor %02d", i))
			rec := postForm(f.handler, v)
			assert.Equal(t, http.StatusOK, rec.Code)
		}(i)
	}
	wg.Wait()

	lines := f.logLines(t)
	require.Len(t, lines, n)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "["), "torn line %q", line)
		assert.True(t, strings.HasSuffix(line, "Subject: Bulk order"), "torn line %q", line)
	}
	assert.Equal(t, n, f.outbox.count())
}

func TestMount_RejectsNonFormBodies(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	Mount(r, "/contact", f.handler)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"fullName":"Jane"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidForm, decode(t, rec).Message)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, MsgMethodNotAllowed, decode(t, rec).Message)
}

func TestMount_RunsExtraMiddlewareFirst(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	Mount(r, "/contact", f.handler, blocked)

	rec := postForm(r, validValues())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, f.outbox.count())
}

func TestHandler_ChunkedBodyOverLimit(t *testing.T) {
	f := newFixture(t)
	h := middleware.LimitBodySize(64)(f.handler)

	v := validValues()
	v.Set(submission.FieldMessage, strings.Repeat("x", 500))
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, middleware.TooLargeMessage, resp.Message)
	assert.Zero(t, f.outbox.count())
}
