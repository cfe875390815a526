// Package syslog parses RFC 3164 (BSD) syslog datagrams into log entries.
//
// The grammar is applied greedily left to right: priority, an optional
// 15-byte timestamp, hostname, an app[pid] tag, then the message verbatim.
// BSD timestamps carry no year; a synthetic epoch is computed against the
// current year boundary, ignoring leap years (documented inaccuracy of at
// most one day).
package syslog

import (
	"errors"
	"time"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

// ErrInvalidPriority is returned when the leading <PRI> field is absent
// or malformed.
var ErrInvalidPriority = errors.New("syslog: invalid priority")

const secondsPerYear = 31536000

// Cumulative days before each month, non-leap.
var daysBeforeMonth = [12]int64{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

var monthIndex = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// Parse decodes one syslog datagram. The returned entry keeps data as its
// raw payload; the caller must not reuse the slice.
func Parse(data []byte) (*models.LogEntry, error) {
	return parseAt(data, time.Now().Unix())
}

func parseAt(data []byte, now int64) (*models.LogEntry, error) {
	if len(data) == 0 || data[0] != '<' {
		return nil, ErrInvalidPriority
	}

	i := 1
	pri := 0
	digits := 0
	for i < len(data) && digits < 3 && isDigit(data[i]) {
		pri = pri*10 + int(data[i]-'0')
		i++
		digits++
	}
	if digits == 0 || i >= len(data) || data[i] != '>' || pri > 255 {
		return nil, ErrInvalidPriority
	}
	i++

	facility := int64(pri >> 3)
	severity := pri & 7

	ts := now
	if t, ok := parseTimestamp(data[i:], now); ok {
		ts = t
		i += 15
		if i < len(data) && data[i] == ' ' {
			i++
		}
	}

	start := i
	for i < len(data) && data[i] != ' ' && data[i] != ':' {
		i++
	}
	host := string(data[start:i])
	if host == "" {
		host = "unknown"
	}
	for i < len(data) && data[i] == ' ' {
		i++
	}

	var appName, procID *string
	start = i
	for i < len(data) && data[i] != '[' && data[i] != ':' && data[i] != ' ' {
		i++
	}
	if i > start {
		app := string(data[start:i])
		appName = &app
	}
	if i < len(data) && data[i] == '[' {
		i++
		start = i
		for i < len(data) && data[i] != ']' {
			i++
		}
		pid := string(data[start:i])
		procID = &pid
		if i < len(data) {
			i++ // ']'
		}
	}
	for i < len(data) && (data[i] == ':' || data[i] == ' ') {
		i++
	}

	return &models.LogEntry{
		Timestamp: ts,
		Level:     models.Level(severity),
		Source:    models.SourceSyslog,
		Host:      host,
		Facility:  &facility,
		AppName:   appName,
		ProcID:    procID,
		Message:   string(data[i:]),
		RawData:   data,
	}, nil
}

// parseTimestamp matches the exact 15-byte "MMM DD HH:MM:SS" shape, DD
// space-padded. Anything else leaves the cursor untouched.
func parseTimestamp(b []byte, now int64) (int64, bool) {
	if len(b) < 15 {
		return 0, false
	}
	month, ok := monthIndex[string(b[0:3])]
	if !ok || b[3] != ' ' {
		return 0, false
	}

	var day int64
	switch {
	case b[4] == ' ' && isDigit(b[5]):
		day = int64(b[5] - '0')
	case isDigit(b[4]) && isDigit(b[5]):
		day = int64(b[4]-'0')*10 + int64(b[5]-'0')
	default:
		return 0, false
	}

	if b[6] != ' ' || b[9] != ':' || b[12] != ':' {
		return 0, false
	}
	for _, pos := range [6]int{7, 8, 10, 11, 13, 14} {
		if !isDigit(b[pos]) {
			return 0, false
		}
	}

	hh := int64(b[7]-'0')*10 + int64(b[8]-'0')
	mm := int64(b[10]-'0')*10 + int64(b[11]-'0')
	ss := int64(b[13]-'0')*10 + int64(b[14]-'0')
	if day < 1 || day > 31 || hh > 23 || mm > 59 || ss > 59 {
		return 0, false
	}

	yearStart := (now / secondsPerYear) * secondsPerYear
	return yearStart + daysBeforeMonth[month-1]*86400 + (day-1)*86400 + hh*3600 + mm*60 + ss, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
