// Package logging configures zerolog for the qsig CLI and HTTP server and
// keeps key material out of log output.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue replaces sensitive values.
const RedactedValue = "[REDACTED]"

// sensitiveFieldNames are JSON fields whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals
	"passphrase",
	"key_passphrase",
	"pin",
	"so_pin",
	"private_key",
	"privatekey",
	"password",
}

var (
	sensitiveFieldPattern = regexp.MustCompile( //nolint:gochecknoglobals
		`"((?i:` + strings.Join(sensitiveFieldNames, "|") + `))":"(?:[^"\\]|\\.)*"`)

	sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals
		// PEM private keys, also when JSON-escaped on a single line
		regexp.MustCompile(`-----BEGIN[A-Z0-9 ]*PRIVATE KEY-----(?:.|\n)*?-----END[A-Z0-9 ]*PRIVATE KEY-----`),
		// passphrase=..., pin: ...
		regexp.MustCompile(`(?i)\b(passphrase|pin|private_key)\s*[:=]\s*[^\s,"]+`),
	}
)

// ContainsSensitiveData reports whether s matches a sensitive pattern.
func ContainsSensitiveData(s string) bool {
	if sensitiveFieldPattern.MatchString(s) {
		return true
	}
	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Redact replaces sensitive fields and values in s.
func Redact(s string) string {
	s = sensitiveFieldPattern.ReplaceAllString(s, `"$1":"`+RedactedValue+`"`)
	for _, p := range sensitivePatterns {
		s = p.ReplaceAllStringFunc(s, func(m string) string {
			if i := strings.IndexAny(m, ":="); i > 0 && !strings.HasPrefix(m, "-----") {
				return m[:i+1] + RedactedValue
			}
			return RedactedValue
		})
	}
	return s
}

// IsSensitiveFieldName reports whether a field name holds secrets.
func IsSensitiveFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFieldNames {
		if lower == s {
			return true
		}
	}
	return false
}

// SafeValue returns value, or RedactedValue if field is sensitive.
func SafeValue(field, value string) string {
	if IsSensitiveFieldName(field) {
		return RedactedValue
	}
	return Redact(value)
}

// SensitiveDataHook marks events whose message carries sensitive data.
// zerolog hooks cannot rewrite fields, so the RedactingWriter does the
// actual filtering.
type SensitiveDataHook struct{}

// Run implements zerolog.Hook.
func (SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// RedactingWriter filters sensitive data before it reaches w.
type RedactingWriter struct {
	w io.Writer
}

// NewRedactingWriter wraps w.
func NewRedactingWriter(w io.Writer) *RedactingWriter {
	return &RedactingWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success.
func (rw *RedactingWriter) Write(p []byte) (int, error) {
	if _, err := rw.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
