// Package state provides persistent bucketed key/value storage.
//
// The store provides:
//   - Persistent storage via SQLite (pure Go driver) with WAL mode
//   - Named buckets, one per service (bridging tables, DHCP identities)
//   - Optional per-entry expiry evaluated against an injectable clock
//   - A monotonic version bumped on every write
//
// Bridging table state is written here by the management plane so that
// runtime changes survive a restart; the data plane never touches the store.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"grimm.is/l2bridge/internal/clock"
)

// Common errors
var (
	ErrNotFound      = errors.New("key not found")
	ErrBucketExists  = errors.New("bucket already exists")
	ErrBucketMissing = errors.New("bucket does not exist")
	ErrStoreClosed   = errors.New("store is closed")
)

// Entry represents a single stored value with metadata.
type Entry struct {
	Value     []byte    `json:"value"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // Zero means no expiry
}

// Store is the state storage interface.
type Store interface {
	CreateBucket(name string) error
	DeleteBucket(name string) error
	ListBuckets() ([]string, error)

	Get(bucket, key string) ([]byte, error)
	GetWithMeta(bucket, key string) (*Entry, error)
	Set(bucket, key string, value []byte) error
	SetWithTTL(bucket, key string, value []byte, ttl time.Duration) error
	SetMulti(bucket string, values map[string][]byte) error
	Delete(bucket, key string) error
	List(bucket string) (map[string][]byte, error)
	ListKeys(bucket string) ([]string, error)

	GetJSON(bucket, key string, v interface{}) error
	SetJSON(bucket, key string, v interface{}) error
	SetJSONWithTTL(bucket, key string, v interface{}, ttl time.Duration) error

	CurrentVersion() uint64
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	version uint64
	closed  bool
	clock   clock.Clock
}

// Options configures the SQLite store.
type Options struct {
	Path    string      // Database file path (":memory:" for in-memory)
	WALMode bool        // Enable WAL mode for better concurrency
	Clock   clock.Clock // Optional: time source (defaults to RealClock if nil)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions(path string) Options {
	return Options{
		Path:    path,
		WALMode: true,
	}
}

// NewSQLiteStore creates a new SQLite-backed state store.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if opts.WALMode && opts.Path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		clock: clock.OrReal(opts.Clock),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.loadVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load version: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS buckets (
			name TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB,
			version INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER,
			PRIMARY KEY (bucket, key),
			FOREIGN KEY (bucket) REFERENCES buckets(name) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_entries_expires ON entries(expires_at) WHERE expires_at IS NOT NULL;
	`
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) loadVersion() error {
	var version sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM entries").Scan(&version); err != nil {
		return err
	}
	if version.Valid {
		s.version = uint64(version.Int64)
	}
	return nil
}

// CreateBucket creates a new bucket.
func (s *SQLiteStore) CreateBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM buckets WHERE name = ?", name).Scan(&exists)
	if err == nil {
		return ErrBucketExists
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = s.db.Exec("INSERT INTO buckets (name, created_at) VALUES (?, ?)", name, s.clock.Now().UnixNano())
	return err
}

// EnsureBucket creates a bucket if it does not exist yet.
func EnsureBucket(s Store, name string) error {
	if err := s.CreateBucket(name); err != nil && !errors.Is(err, ErrBucketExists) {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

// DeleteBucket removes a bucket and all its entries.
func (s *SQLiteStore) DeleteBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	result, err := s.db.Exec("DELETE FROM buckets WHERE name = ?", name)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBucketMissing
	}
	return nil
}

// ListBuckets returns all bucket names.
func (s *SQLiteStore) ListBuckets() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query("SELECT name FROM buckets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		buckets = append(buckets, name)
	}
	return buckets, rows.Err()
}

// Get retrieves a value by bucket and key.
func (s *SQLiteStore) Get(bucket, key string) ([]byte, error) {
	entry, err := s.GetWithMeta(bucket, key)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// GetWithMeta retrieves a value with its metadata. Expired entries are reported as ErrNotFound.
func (s *SQLiteStore) GetWithMeta(bucket, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		entry     Entry
		updatedAt int64
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRow(`
		SELECT value, version, updated_at, expires_at FROM entries
		WHERE bucket = ? AND key = ?
	`, bucket, key).Scan(&entry.Value, &entry.Version, &updatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	entry.UpdatedAt = time.Unix(0, updatedAt)
	if expiresAt.Valid {
		entry.ExpiresAt = time.Unix(0, expiresAt.Int64)
		if !s.clock.Now().Before(entry.ExpiresAt) {
			return nil, ErrNotFound
		}
	}
	return &entry, nil
}

// Set stores a value.
func (s *SQLiteStore) Set(bucket, key string, value []byte) error {
	return s.SetMultiWithTTL(bucket, map[string][]byte{key: value}, 0)
}

// SetWithTTL stores a value with a time-to-live.
func (s *SQLiteStore) SetWithTTL(bucket, key string, value []byte, ttl time.Duration) error {
	return s.SetMultiWithTTL(bucket, map[string][]byte{key: value}, ttl)
}

// SetMulti stores several values in one transaction.
func (s *SQLiteStore) SetMulti(bucket string, values map[string][]byte) error {
	return s.SetMultiWithTTL(bucket, values, 0)
}

// SetMultiWithTTL stores several values in one transaction. A zero ttl means no expiry.
func (s *SQLiteStore) SetMultiWithTTL(bucket string, values map[string][]byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	now := s.clock.Now()
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT 1 FROM buckets WHERE name = ?", bucket).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return ErrBucketMissing
		}
		return err
	}

	version := s.version
	for key, value := range values {
		version++
		_, err = tx.Exec(`
			INSERT INTO entries (bucket, key, value, version, updated_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(bucket, key) DO UPDATE SET
				value = excluded.value,
				version = excluded.version,
				updated_at = excluded.updated_at,
				expires_at = excluded.expires_at
		`, bucket, key, value, version, now.UnixNano(), expiresAt)
		if err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", bucket, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.version = version
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	result, err := s.db.Exec("DELETE FROM entries WHERE bucket = ? AND key = ?", bucket, key)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	s.version++
	return nil
}

// List returns all unexpired key-value pairs in a bucket.
func (s *SQLiteStore) List(bucket string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT key, value FROM entries
		WHERE bucket = ? AND (expires_at IS NULL OR expires_at > ?)
	`, bucket, s.clock.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// ListKeys returns all unexpired keys in a bucket, sorted.
func (s *SQLiteStore) ListKeys(bucket string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT key FROM entries
		WHERE bucket = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY key
	`, bucket, s.clock.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *SQLiteStore) GetJSON(bucket, key string, v interface{}) error {
	data, err := s.Get(bucket, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SetJSON marshals and stores a JSON value.
func (s *SQLiteStore) SetJSON(bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(bucket, key, data)
}

// SetJSONWithTTL marshals and stores a JSON value with TTL.
func (s *SQLiteStore) SetJSONWithTTL(bucket, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SetWithTTL(bucket, key, data, ttl)
}

// CurrentVersion returns the current version number.
func (s *SQLiteStore) CurrentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
