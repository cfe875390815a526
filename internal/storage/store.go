// Package storage persists log entries to an embedded SQLite database
// with a chained per-record digest for tamper evidence.
//
// Record i carries hmac_i = SHA256(raw_data_i || le64(id_i)) XOR hmac_{i-1},
// with hmac_0 all zeros. The chain is linearized by the store's mutex and
// resumed from the last persisted row across restarts. Deleting, altering
// or reordering any row breaks recomputation at that row and all rows
// after it.
package storage

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DigestSize is the size of the chain digest in bytes.
const DigestSize = sha256.Size

const insertSQL = `INSERT INTO logs
	(timestamp, level, source, host, facility, app_name, proc_id, msg_id, message, raw_data, hmac)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectColumns = `id, timestamp, level, source, host, facility, app_name, proc_id, msg_id, message, raw_data, hmac`

// Store owns one database handle and the running chain state. All writes
// are serialized by its mutex; the correction path in insertOne exists
// only to tolerate a concurrent writer on the same file.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	prevHMAC [DigestSize]byte
}

// Open opens or creates the database at path, applies the schema
// migrations and resumes the digest chain from the last persisted row.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps the prepared-statement path and the
	// digest chain on one writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{db: db}
	if err := s.loadChainState(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// loadChainState reads the digest of the newest row so the chain resumes
// across restarts. A missing or malformed digest restarts the chain from
// zeros; that is logged but not fatal.
func (s *Store) loadChainState() error {
	var h []byte
	err := s.db.QueryRow(`SELECT hmac FROM logs ORDER BY id DESC LIMIT 1`).Scan(&h)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("load chain state: %w", err)
	}
	if len(h) != DigestSize {
		slog.Warn("stored chain digest has unexpected size, restarting chain",
			slog.Int("size", len(h)))
		return nil
	}
	copy(s.prevHMAC[:], h)
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// chainDigest computes SHA256(raw || le64(id)) XOR prev.
func chainDigest(raw []byte, id int64, prev [DigestSize]byte) [DigestSize]byte {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], uint64(id))

	d := sha256.New()
	d.Write(raw)
	d.Write(idBytes[:])

	var h [DigestSize]byte
	copy(h[:], d.Sum(nil))
	for i := range h {
		h[i] ^= prev[i]
	}
	return h
}

type execQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// insertOne binds and steps a single insert against q, which is either
// the raw handle or an open transaction. The caller must hold s.mu.
// s.prevHMAC advances only on success.
func (s *Store) insertOne(q execQuerier, e *models.LogEntry) (int64, error) {
	var expected int64
	if err := q.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM logs`).Scan(&expected); err != nil {
		return 0, fmt.Errorf("resolve next id: %w", err)
	}

	h := chainDigest(e.RawData, expected, s.prevHMAC)

	res, err := q.Exec(insertSQL,
		e.Timestamp, int(e.Level), int(e.Source), e.Host,
		e.Facility, e.AppName, e.ProcID, e.MsgID,
		e.Message, e.RawData, h[:])
	if err != nil {
		return 0, fmt.Errorf("insert log: %w", err)
	}

	actual, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}

	if actual != expected {
		// Another writer slipped a row in; rebind the digest to the id
		// the engine actually assigned.
		h = chainDigest(e.RawData, actual, s.prevHMAC)
		if _, err := q.Exec(`UPDATE logs SET hmac = ? WHERE id = ?`, h[:], actual); err != nil {
			return 0, fmt.Errorf("correct chain digest: %w", err)
		}
	}

	s.prevHMAC = h
	e.ID = actual
	e.HMAC = append([]byte(nil), h[:]...)
	return actual, nil
}

// Insert persists one entry and returns its assigned id.
func (s *Store) Insert(e *models.LogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prevHMAC
	id, err := s.insertOne(s.db, e)
	if err != nil {
		s.prevHMAC = prev
		return 0, err
	}
	return id, nil
}

// InsertBatch persists entries under one transaction. On any failure the
// transaction rolls back, no entry is persisted, and the chain state is
// restored. Returns the number of entries written.
func (s *Store) InsertBatch(entries []*models.LogEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prevHMAC
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}

	for _, e := range entries {
		if _, err := s.insertOne(tx, e); err != nil {
			tx.Rollback()
			s.prevHMAC = prev
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.prevHMAC = prev
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(entries), nil
}

// LogCount returns the number of persisted rows.
func (s *Store) LogCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

// QueryByTimeRange returns up to limit entries with lo <= timestamp <= hi,
// newest first. Text and blob columns are copied out; results do not
// alias driver buffers.
func (s *Store) QueryByTimeRange(lo, hi int64, limit int) ([]*models.LogEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+` FROM logs
		 WHERE timestamp BETWEEN ? AND ?
		 ORDER BY timestamp DESC LIMIT ?`, lo, hi, limit)
	if err != nil {
		return nil, fmt.Errorf("query time range: %w", err)
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*models.LogEntry, error) {
	var (
		e        models.LogEntry
		level    int
		source   int
		facility sql.NullInt64
		appName  sql.NullString
		procID   sql.NullString
		msgID    sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.Timestamp, &level, &source, &e.Host,
		&facility, &appName, &procID, &msgID,
		&e.Message, &e.RawData, &e.HMAC); err != nil {
		return nil, fmt.Errorf("scan log row: %w", err)
	}
	e.Level = models.Level(level)
	e.Source = models.Source(source)
	if facility.Valid {
		e.Facility = &facility.Int64
	}
	if appName.Valid {
		e.AppName = &appName.String
	}
	if procID.Valid {
		e.ProcID = &procID.String
	}
	if msgID.Valid {
		e.MsgID = &msgID.String
	}
	return &e, nil
}

// VerifyChain walks all rows in id order recomputing the digest chain.
// It returns 0 when the chain is intact, otherwise the id of the first
// row whose stored digest does not match.
func (s *Store) VerifyChain() (int64, error) {
	rows, err := s.db.Query(`SELECT id, raw_data, hmac FROM logs ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("verify chain: %w", err)
	}
	defer rows.Close()

	var prev [DigestSize]byte
	for rows.Next() {
		var (
			id     int64
			raw    []byte
			stored []byte
		)
		if err := rows.Scan(&id, &raw, &stored); err != nil {
			return 0, fmt.Errorf("verify chain: %w", err)
		}
		want := chainDigest(raw, id, prev)
		if !bytes.Equal(stored, want[:]) {
			return id, nil
		}
		prev = want
	}
	return 0, rows.Err()
}
