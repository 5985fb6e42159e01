// sublog/sublog.go
// Package sublog appends one line per delivered submission to a flat,
// append-only text file shared by every request (and every process).
package sublog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/contactform/submission"
)

// TimestampLayout formats the leading timestamp of each line.
const TimestampLayout = "2006-01-02 15:04:05"

// Log is an append-only submission log.
type Log struct {
	path string
	mu   sync.Mutex

	// Clock stamps each line. Defaults to time.Now.
	Clock func() time.Time
}

// New returns a Log writing to path. Nothing is created until the first Append.
func New(path string) *Log {
	return &Log{path: path, Clock: time.Now}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Line formats the log line for s at the given time, including the trailing newline.
func Line(s submission.Submission, at time.Time) string {
	e := s.Escaped()
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(at.Format(TimestampLayout))
	b.WriteString("] ")
	b.WriteString("Name: " + oneLine(e.FullName) + " | ")
	b.WriteString("Email: " + oneLine(e.Email) + " | ")
	b.WriteString("Phone: " + oneLine(e.Phone) + " | ")
	b.WriteString("Company: " + oneLine(e.Company) + " | ")
	b.WriteString("Subject: " + oneLine(e.Subject) + "\n")
	return b.String()
}

// Append writes one line for s. The whole line goes out in a single write
// on an O_APPEND descriptor while holding both the in-process mutex and an
// exclusive file lock.
func (l *Log) Append(ctx context.Context, s submission.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now
	if l.Clock != nil {
		now = l.Clock
	}
	line := Line(s, now())

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("sublog: lock %s: %w", l.path, err)
	}
	defer unlockFile(f)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("sublog: write %s: %w", l.path, err)
	}
	return nil
}

// Writable checks that the log's directory exists (creating it if needed)
// and the file can be opened for appending. Used by readiness checks.
func (l *Log) Writable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := l.open()
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *Log) open() (*os.File, error) {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sublog: create dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sublog: open %s: %w", l.path, err)
	}
	return f, nil
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}
