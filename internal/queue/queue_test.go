package queue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
	"github.com/ledgerlog-systems/ledgerlog/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(msg string) *models.LogEntry {
	return &models.LogEntry{
		Timestamp: 1700000000,
		Level:     models.LevelInfo,
		Source:    models.SourceSyslog,
		Host:      "host1",
		Message:   msg,
		RawData:   []byte(msg),
	}
}

func TestFlushOnBatchSize(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 5, time.Hour)

	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(testEntry("e")))
	}

	// The fifth enqueue flushed; the sixth is staged.
	assert.Equal(t, 1, q.Len())

	n, err := s.LogCount()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestEnqueueBatch(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 3, time.Hour)

	entries := []*models.LogEntry{testEntry("a"), testEntry("b"), testEntry("c"), testEntry("d")}
	require.NoError(t, q.EnqueueBatch(entries))

	assert.Equal(t, 0, q.Len())
	n, err := s.LogCount()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestForceFlushIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 100, time.Hour)

	require.NoError(t, q.Enqueue(testEntry("a")))
	require.NoError(t, q.Enqueue(testEntry("b")))

	n, err := q.ForceFlush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = q.ForceFlush()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := s.LogCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTryFlushBelowThresholds(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 100, time.Hour)

	require.NoError(t, q.Enqueue(testEntry("a")))
	assert.False(t, q.ShouldFlush())

	n, err := q.TryFlush()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, q.Len())
}

func TestTryFlushOnElapsedInterval(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 100, 10*time.Millisecond)

	require.NoError(t, q.Enqueue(testEntry("a")))
	time.Sleep(20 * time.Millisecond)

	assert.True(t, q.ShouldFlush())
	n, err := q.TryFlush()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, q.Len())
}

func TestCloseDrains(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 100, time.Hour)

	require.NoError(t, q.Enqueue(testEntry("a")))
	q.Close()

	n, err := s.LogCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 2, time.Hour)

	require.NoError(t, q.Enqueue(testEntry("a")))
	require.NoError(t, q.Enqueue(testEntry("b"))) // triggers a flush
	require.NoError(t, q.Enqueue(testEntry("c")))

	st := q.Stats()
	assert.Equal(t, uint64(2), st.Written)
	assert.Equal(t, uint64(1), st.BatchCount)
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, uint64(0), st.Errors)
}

func TestDefaults(t *testing.T) {
	s := openTestStore(t)
	q := New(s, 0, 0)

	assert.Equal(t, DefaultBatchSize, q.batchSize)
	assert.Equal(t, DefaultFlushInterval, q.flushInterval)
}
