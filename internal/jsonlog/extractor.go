// Package jsonlog extracts log fields from JSON submissions.
//
// This is deliberately not a general JSON parser: the original request
// body must be retained byte-exact as the record's raw payload, and only
// five fields matter. Each recognized key is located by substring scan
// and its value read in place.
package jsonlog

import (
	"bytes"
	"errors"
	"time"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

// ErrInvalidJSON is returned when the body is not a JSON object carrying
// a message string.
var ErrInvalidJSON = errors.New("jsonlog: invalid JSON log")

// Extract builds a log entry from a JSON request body. The body is kept
// verbatim as the entry's raw payload.
func Extract(body []byte) (*models.LogEntry, error) {
	return extractAt(body, time.Now().Unix())
}

func extractAt(body []byte, now int64) (*models.LogEntry, error) {
	i := 0
	for i < len(body) && isSpace(body[i]) {
		i++
	}
	if i >= len(body) || body[i] != '{' {
		return nil, ErrInvalidJSON
	}

	message, ok := stringField(body, "message")
	if !ok {
		return nil, ErrInvalidJSON
	}

	entry := &models.LogEntry{
		Timestamp: now,
		Level:     models.LevelInfo,
		Source:    models.SourceRestAPI,
		Host:      "unknown",
		Message:   message,
		RawData:   body,
	}

	if level, ok := stringField(body, "level"); ok {
		entry.Level = models.ParseLevel(level)
	}
	if host, ok := stringField(body, "host"); ok && host != "" {
		entry.Host = host
	}
	if app, ok := stringField(body, "app_name"); ok {
		entry.AppName = &app
	}
	if ts, ok := intField(body, "timestamp"); ok {
		entry.Timestamp = ts
	}

	return entry, nil
}

// stringField locates `"key"`, skips whitespace and the colon, and returns
// the bytes up to the next unescaped quote. A backslash pair counts as one
// escaped byte and is passed through untouched.
func stringField(body []byte, key string) (string, bool) {
	i := afterColon(body, key)
	if i < 0 || i >= len(body) || body[i] != '"' {
		return "", false
	}
	i++
	start := i
	for i < len(body) {
		switch body[i] {
		case '\\':
			i += 2
		case '"':
			return string(body[start:i]), true
		default:
			i++
		}
	}
	return "", false
}

// intField scans contiguous ASCII decimal digits after the colon and
// parses them as a signed 64-bit integer.
func intField(body []byte, key string) (int64, bool) {
	i := afterColon(body, key)
	if i < 0 {
		return 0, false
	}
	neg := false
	if i < len(body) && body[i] == '-' {
		neg = true
		i++
	}
	var n int64
	digits := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		n = n*10 + int64(body[i]-'0')
		i++
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// afterColon returns the index just past the colon following `"key"`,
// with surrounding whitespace skipped, or -1 if the key is absent.
func afterColon(body []byte, key string) int {
	needle := []byte(`"` + key + `"`)
	pos := bytes.Index(body, needle)
	if pos < 0 {
		return -1
	}
	i := pos + len(needle)
	for i < len(body) && (isSpace(body[i]) || body[i] == ':') {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
