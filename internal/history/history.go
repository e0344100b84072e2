// Package history provides a SQLite-backed bounded append log of polled
// samples. The usage view reads recent quota samples from it; everything
// else is trimmed away once a kind exceeds its cap.
package history

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Sample is one recorded observation.
type Sample struct {
	ID      int64           `json:"id"`
	Kind    string          `json:"kind"`   // e.g. "quota", "service_health"
	Entity  string          `json:"entity"` // e.g. quota bucket or service name
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// Log is the append log. Appends are trimmed per kind so the database stays
// bounded no matter how long the client runs.
type Log struct {
	db         *sql.DB
	maxPerKind int
}

// Open creates or opens the log database.
func Open(dbPath string, maxPerKind int) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	if maxPerKind <= 0 {
		maxPerKind = 500
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	l := &Log{db: db, maxPerKind: maxPerKind}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		kind    TEXT NOT NULL,
		entity  TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		at      DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_kind_at ON samples(kind, at DESC);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append records one sample and trims the kind back under the cap.
func (l *Log) Append(kind, entity string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = l.db.Exec(`
		INSERT INTO samples (kind, entity, payload, at)
		VALUES (?, ?, ?, ?)
	`, kind, entity, string(encoded), time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = l.db.Exec(`
		DELETE FROM samples WHERE kind = ? AND id NOT IN (
			SELECT id FROM samples WHERE kind = ? ORDER BY id DESC LIMIT ?
		)
	`, kind, kind, l.maxPerKind)
	return err
}

// Recent returns up to limit samples of a kind, newest first.
func (l *Log) Recent(kind string, limit int) ([]*Sample, error) {
	rows, err := l.db.Query(`
		SELECT id, kind, entity, payload, at
		FROM samples
		WHERE kind = ?
		ORDER BY id DESC
		LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		var payload string
		if err := rows.Scan(&s.ID, &s.Kind, &s.Entity, &payload, &s.At); err != nil {
			return nil, err
		}
		s.Payload = json.RawMessage(payload)
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

// RecentForEntity returns up to limit samples for one entity, newest first.
func (l *Log) RecentForEntity(kind, entity string, limit int) ([]*Sample, error) {
	rows, err := l.db.Query(`
		SELECT id, kind, entity, payload, at
		FROM samples
		WHERE kind = ? AND entity = ?
		ORDER BY id DESC
		LIMIT ?
	`, kind, entity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		var payload string
		if err := rows.Scan(&s.ID, &s.Kind, &s.Entity, &payload, &s.At); err != nil {
			return nil, err
		}
		s.Payload = json.RawMessage(payload)
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}
