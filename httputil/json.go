// httputil/json.go
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// jsonLogger reports encoding failures that happen after headers are sent.
var jsonLogger atomic.Pointer[zap.Logger]

// SetLogger configures the logger used for JSON encoding errors.
// This should be called once during application startup.
func SetLogger(logger *zap.Logger) {
	jsonLogger.Store(logger)
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged (if a logger is configured via
// SetLogger) because headers and status have already been sent and
// we can't send another response.
//
// Invalid status codes (outside 100-599) are clamped to 500 Internal Server Error
// to prevent undefined behavior in net/http.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := jsonLogger.Load()
		if logger == nil {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "httputil: logger panic while reporting json error: %v\n", r)
				}
			}()
			typeName := "nil"
			if v != nil {
				typeName = reflect.TypeOf(v).String()
			}
			logger.Error("json encoding failed after headers sent",
				zap.String("type", typeName), zap.Error(err))
		}()
	}
}

// ErrBodyTooLarge is returned by ParseForm when the body exceeds the
// limit set with http.MaxBytesReader.
var ErrBodyTooLarge = errors.New("request body too large")

// ParseForm parses an application/x-www-form-urlencoded or
// multipart/form-data body (browsers send the latter for FormData) and
// returns the posted values. Query string values are ignored.
//
// maxMemory bounds the multipart parts held in memory; the body itself is
// expected to be bounded already by LimitBodySize.
func ParseForm(r *http.Request, maxMemory int64) (map[string][]string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(ct), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, parseFormError(err)
		}
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
			return r.MultipartForm.Value, nil
		}
		return r.PostForm, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, parseFormError(err)
	}
	return r.PostForm, nil
}

func parseFormError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	return fmt.Errorf("invalid form body: %w", err)
}

// DecodeJSON decodes a single JSON value from r into v. Unknown fields are
// permitted. It returns a user-friendly error if the body is empty,
// malformed, or holds more than one value.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return parseJSONError(err)
	}
	if dec.More() {
		return errors.New("body contains multiple JSON values")
	}
	return nil
}

// parseJSONError converts json decoding errors into user-friendly messages.
func parseJSONError(err error) error {
	if errors.Is(err, io.EOF) {
		return errors.New("body is empty")
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("invalid value for field %q: expected %s", typeErr.Field, typeErr.Type.String())
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("truncated JSON body")
	}

	return fmt.Errorf("invalid JSON body: %w", err)
}
