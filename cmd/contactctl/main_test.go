package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var got submission.Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = submission.FromValues(r.PostForm)
		httputil.WriteJSON(w, http.StatusOK, submission.Sent("Thanks!"))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--endpoint", srv.URL,
		"--name", "Jane Doe",
		"--email", "jane@example.com",
		"--phone", "555-123-4567",
		"--subject", "Bulk order",
		"--message", "-",
		"--privacy",
	}, strings.NewReader("We need 10,000 corrugated boxes.\n"), &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "OK: Thanks!")
	assert.Equal(t, "We need 10,000 corrugated boxes.", got.Message)
	assert.True(t, got.PrivacyAccepted)
}

func TestRun_InvalidDoesNotPost(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hit = true }))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"--endpoint", srv.URL, "--name", "J"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.False(t, hit)
	assert.Contains(t, stdout.String(), "fullName: Full name must be at least 2 characters.")
	assert.Contains(t, stdout.String(), "privacy: You must agree to the privacy policy.")
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"--nope"}, strings.NewReader(""), &stdout, &stderr))
	assert.Equal(t, 0, run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "contactctl - submit")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--version"}, strings.NewReader(""), &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "contactctl "))
}
