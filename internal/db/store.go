package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/user/kiji/internal/cache"
)

// Store is a sqlite-backed cache.Backend so snapshots survive between runs.
type Store struct {
	db *sql.DB
}

var _ cache.Backend = (*Store)(nil)

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "kiji.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		ttl_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Load(key string) (cache.Record, bool, error) {
	var rec cache.Record
	var storedAt, ttlMS int64
	err := s.db.QueryRow(`SELECT payload, stored_at, ttl_ms FROM cache_entries WHERE key = ?`, key).
		Scan(&rec.Payload, &storedAt, &ttlMS)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	rec.StoredAt = time.UnixMilli(storedAt)
	rec.TTL = time.Duration(ttlMS) * time.Millisecond
	return rec, true, nil
}

func (s *Store) Save(key string, rec cache.Record) error {
	_, err := s.db.Exec(`
	INSERT INTO cache_entries (key, payload, stored_at, ttl_ms)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		payload = excluded.payload,
		stored_at = excluded.stored_at,
		ttl_ms = excluded.ttl_ms
	`, key, rec.Payload, rec.StoredAt.UnixMilli(), rec.TTL.Milliseconds())
	return err
}

func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM cache_entries`)
	return err
}

// PurgeExpired removes entries whose TTL has elapsed at now and returns how
// many were removed.
func (s *Store) PurgeExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE stored_at + ttl_ms <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EntryInfo describes a stored entry without its payload.
type EntryInfo struct {
	Key      string
	Size     int
	StoredAt time.Time
	TTL      time.Duration
}

// Entries lists stored entries ordered by key.
func (s *Store) Entries() ([]EntryInfo, error) {
	rows, err := s.db.Query(`SELECT key, length(payload), stored_at, ttl_ms FROM cache_entries ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EntryInfo
	for rows.Next() {
		var e EntryInfo
		var storedAt, ttlMS int64
		if err := rows.Scan(&e.Key, &e.Size, &storedAt, &ttlMS); err != nil {
			return nil, err
		}
		e.StoredAt = time.UnixMilli(storedAt)
		e.TTL = time.Duration(ttlMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value)
	return err
}
