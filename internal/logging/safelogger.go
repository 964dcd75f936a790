package logging

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/redact"
)

// forbiddenDataFields are dropped/replaced before any log entry is emitted,
// because they routinely carry full document text.
var forbiddenDataFields = map[string]bool{
	"markdown":        true,
	"rawText":         true,
	"ocrText":         true,
	"extractedText":   true,
	"documentContent": true,
	"pageContent":     true,
	"base64":          true,
	"base64Data":      true,
	"documentData":    true,
}

// truncatedFields are capped at maxFieldLen characters with a suffix noting
// how much was cut, rather than dropped outright.
var truncatedFields = map[string]bool{
	"prompt":    true,
	"response":  true,
	"error":     true,
	"errorText": true,
}

const maxFieldLen = 500

// entryLogger is implemented by *logrus.Logger; kept as an interface so tests can
// substitute a recording logger.
type entryLogger interface {
	WithFields(logrus.Fields) *logrus.Entry
}

// SafeLogger wraps a logrus.Logger so every emitted entry has gone through
// forbidden-field filtering, long-field truncation, and PII redaction, in
// that order.
type SafeLogger struct {
	service string
	logger  entryLogger
}

// NewSafeLogger returns a SafeLogger emitting JSON via logrus, tagged with
// service for the "service" field on every entry.
func NewSafeLogger(service string) *SafeLogger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return &SafeLogger{service: service, logger: l}
}

// NewSafeLoggerWith wraps an already-configured logrus.Logger (e.g. one
// pointed at a file or a non-default level) instead of constructing a new one.
func NewSafeLoggerWith(service string, l *logrus.Logger) *SafeLogger {
	return &SafeLogger{service: service, logger: l}
}

func (s *SafeLogger) emit(level logrus.Level, correlationID, message string, data Fields) {
	safe := Sanitize(data)
	fields := safe.ToLogrus()
	fields["service"] = s.service
	if correlationID != "" {
		fields["correlationId"] = correlationID
	}
	entry := s.logger.WithFields(fields)
	entry.Log(level, message)
}

func (s *SafeLogger) Debug(correlationID, message string, data Fields) {
	s.emit(logrus.DebugLevel, correlationID, message, data)
}

func (s *SafeLogger) Info(correlationID, message string, data Fields) {
	s.emit(logrus.InfoLevel, correlationID, message, data)
}

func (s *SafeLogger) Warn(correlationID, message string, data Fields) {
	s.emit(logrus.WarnLevel, correlationID, message, data)
}

func (s *SafeLogger) Error(correlationID, message string, data Fields) {
	s.emit(logrus.ErrorLevel, correlationID, message, data)
}

// Sanitize runs the full safety pipeline (filter, truncate, redact) on a
// Fields map and returns a new map; the input is never mutated.
func Sanitize(data Fields) Fields {
	out := make(Fields, len(data))
	for k, v := range data {
		out[k] = v
	}
	filterForbidden(out)
	truncateLongFields(out)
	return redact.Object(map[string]any(out)).(map[string]any)
}

func filterForbidden(data Fields) {
	for k := range data {
		if forbiddenDataFields[k] {
			delete(data, k)
		}
	}
}

func truncateLongFields(data Fields) {
	for k, v := range data {
		if !truncatedFields[k] {
			continue
		}
		s, ok := v.(string)
		if !ok || len(s) <= maxFieldLen {
			continue
		}
		data[k] = fmt.Sprintf("%s[truncated, %d chars total]", s[:maxFieldLen], len(s))
	}
}

// CheckLoggingSafety returns the sorted paths of any fields in data that are
// forbidden, over-length, or contain plausible PII after redaction would have
// changed them — used by tests asserting that a given log call is safe.
func CheckLoggingSafety(data Fields) []string {
	var unsafe []string
	for k, v := range data {
		if forbiddenDataFields[k] {
			unsafe = append(unsafe, k)
			continue
		}
		if s, ok := v.(string); ok {
			if truncatedFields[k] && len(s) > maxFieldLen {
				unsafe = append(unsafe, k)
				continue
			}
			if redact.Text(s) != s {
				unsafe = append(unsafe, k)
			}
		}
	}
	sort.Strings(unsafe)
	return unsafe
}
