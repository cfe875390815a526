package syslog

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

const testNow = int64(1700000000)

func TestParsePriorityOnly(t *testing.T) {
	entry, err := parseAt([]byte("<134>Test"), testNow)
	require.NoError(t, err)

	// 134 = facility 16, severity 6
	require.NotNil(t, entry.Facility)
	assert.Equal(t, int64(16), *entry.Facility)
	assert.Equal(t, models.LevelInfo, entry.Level)
	assert.Equal(t, models.SourceSyslog, entry.Source)
	assert.Equal(t, "Test", entry.Host)
	assert.Nil(t, entry.AppName)
	assert.Equal(t, testNow, entry.Timestamp)
	assert.Equal(t, []byte("<134>Test"), entry.RawData)
}

func TestParseFullLine(t *testing.T) {
	line := "<134>Jan 15 12:34:56 myhost myapp[1234]: Test message"
	entry, err := parseAt([]byte(line), testNow)
	require.NoError(t, err)

	assert.Equal(t, "myhost", entry.Host)
	require.NotNil(t, entry.AppName)
	assert.Equal(t, "myapp", *entry.AppName)
	require.NotNil(t, entry.ProcID)
	assert.Equal(t, "1234", *entry.ProcID)
	assert.Equal(t, "Test message", entry.Message)

	// year_start + (day-1)*86400 + hh*3600 + mm*60 + ss for Jan 15
	yearStart := (testNow / secondsPerYear) * secondsPerYear
	assert.Equal(t, yearStart+14*86400+12*3600+34*60+56, entry.Timestamp)
	assert.Equal(t, []byte(line), entry.RawData)
}

func TestParseSpacePaddedDay(t *testing.T) {
	entry, err := parseAt([]byte("<34>Oct  5 01:02:03 box su: 'su root' failed"), testNow)
	require.NoError(t, err)

	assert.Equal(t, "box", entry.Host)
	require.NotNil(t, entry.AppName)
	assert.Equal(t, "su", *entry.AppName)
	assert.Equal(t, "'su root' failed", entry.Message)

	yearStart := (testNow / secondsPerYear) * secondsPerYear
	assert.Equal(t, yearStart+273*86400+4*86400+1*3600+2*60+3, entry.Timestamp)
}

func TestParseSeverityFacilitySplit(t *testing.T) {
	for pri := 0; pri <= 255; pri += 17 {
		line := []byte("<" + strconv.Itoa(pri) + ">x")
		entry, err := parseAt(line, testNow)
		require.NoError(t, err, "pri %d", pri)
		assert.Equal(t, int64(pri>>3), *entry.Facility)
		assert.Equal(t, models.Level(pri&7), entry.Level)
	}
}

func TestParseInvalidPriority(t *testing.T) {
	cases := []string{
		"",
		"Test",
		"<>",
		"<12",
		"<999>x",
		"<1234>x",
		"<abc>x",
	}
	for _, in := range cases {
		_, err := parseAt([]byte(in), testNow)
		assert.ErrorIs(t, err, ErrInvalidPriority, "input %q", in)
	}
}

func TestParseMalformedTimestampFallsThrough(t *testing.T) {
	// Not a 15-byte timestamp shape: parsing continues at the same
	// position and the token becomes the hostname.
	entry, err := parseAt([]byte("<34>NotATimestamp here"), testNow)
	require.NoError(t, err)

	assert.Equal(t, "NotATimestamp", entry.Host)
	assert.Equal(t, testNow, entry.Timestamp)
}

func TestParseEmptyHostname(t *testing.T) {
	entry, err := parseAt([]byte("<34>"), testNow)
	require.NoError(t, err)
	assert.Equal(t, "unknown", entry.Host)
	assert.Equal(t, "", entry.Message)
}

func TestParseTagWithoutPid(t *testing.T) {
	entry, err := parseAt([]byte("<13>Feb  2 00:00:00 host app: hello"), testNow)
	require.NoError(t, err)

	require.NotNil(t, entry.AppName)
	assert.Equal(t, "app", *entry.AppName)
	assert.Nil(t, entry.ProcID)
	assert.Equal(t, "hello", entry.Message)
}

func TestParseUsesWallClock(t *testing.T) {
	before := time.Now().Unix()
	entry, err := Parse([]byte("<134>no timestamp here"))
	require.NoError(t, err)
	after := time.Now().Unix()

	assert.GreaterOrEqual(t, entry.Timestamp, before)
	assert.LessOrEqual(t, entry.Timestamp, after)
}
