// Package audit keeps a queryable journal of management events: table
// mutations, exclusivity re-ranking, interface presence changes and
// learned DHCP identities.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/l2bridge/internal/events"
)

// DefaultRetention is how long entries are kept when no retention is set.
const DefaultRetention = 90 * 24 * time.Hour

// Entry is a single journal record.
type Entry struct {
	ID        int64            `json:"id"`
	EventID   string           `json:"event_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Type      events.EventType `json:"type"`
	Source    string           `json:"source,omitempty"`
	Resource  string           `json:"resource"`
	Details   map[string]any   `json:"details,omitempty"`
}

// Query selects journal entries. Zero fields do not filter.
type Query struct {
	Since    time.Time
	Type     events.EventType
	Resource string
	Limit    int
}

// Store provides persistent storage for journal entries.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	retention time.Duration
}

// NewStore opens the journal at dbPath, creating it if needed.
func NewStore(dbPath string, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			source TEXT,
			resource TEXT NOT NULL,
			details TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_events(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{db: db, retention: retention}, nil
}

// Record journals a bus event.
func (s *Store) Record(e events.Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return s.Write(Entry{
		EventID:   e.ID,
		Timestamp: ts,
		Type:      e.Type,
		Source:    e.Source,
		Resource:  Resource(e),
		Details:   details(e.Data),
	})
}

// Write persists an entry.
func (s *Store) Write(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		if detailsJSON, err = json.Marshal(entry.Details); err != nil {
			detailsJSON = []byte("{}")
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_events (event_id, ts, type, source, resource, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.EventID, entry.Timestamp.UnixNano(), string(entry.Type), entry.Source, entry.Resource, string(detailsJSON))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *Store) Query(q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, event_id, ts, type, source, resource, details
		FROM audit_events WHERE ts >= ?`
	args := []any{q.Since.UnixNano()}
	if q.Since.IsZero() {
		args[0] = int64(0)
	}

	if q.Type != "" {
		query += " AND type = ?"
		args = append(args, string(q.Type))
	}
	if q.Resource != "" {
		query += " AND resource = ?"
		args = append(args, q.Resource)
	}

	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			eventID     sql.NullString
			source      sql.NullString
			detailsJSON sql.NullString
			ts          int64
			typ         string
		)
		if err := rows.Scan(&e.ID, &eventID, &ts, &typ, &source, &e.Resource, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.EventID = eventID.String
		e.Source = source.String
		e.Timestamp = time.Unix(0, ts)
		e.Type = events.EventType(typ)
		if detailsJSON.Valid && detailsJSON.String != "" {
			json.Unmarshal([]byte(detailsJSON.String), &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes entries older than the retention period.
func (s *Store) Prune() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.retention)
	result, err := s.db.Exec("DELETE FROM audit_events WHERE ts < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of entries in the store.
func (s *Store) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Resource names the object an event is about, in table/key form.
func Resource(e events.Event) string {
	switch d := e.Data.(type) {
	case events.TableChangeData:
		return fmt.Sprintf("%s/%d", d.Table, d.Key)
	case events.RerankData:
		return "filter"
	case events.InterfaceData:
		return fmt.Sprintf("interface/%d", d.Key)
	case events.IdentityData:
		return "identity/" + d.MAC
	default:
		return string(e.Type)
	}
}

// details flattens an event payload into a JSON object.
func details(data any) map[string]any {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"value": string(raw)}
	}
	return out
}
