// Package ledger keeps a local history of backup and restore runs in a
// sqlite database under ~/.shellpack. Records are stored as JSON values
// and queried with json_extract, so the schema never changes when the
// record grows a field. The ledger is advisory: a run that cannot be
// recorded still succeeds.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type RunStatus string

const (
	RunStatusDone      RunStatus = "done"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

type RunKind string

const (
	RunBackup  RunKind = "backup"
	RunRestore RunKind = "restore"
)

// RunRecord is one finished pipeline run.
type RunRecord struct {
	ID           string     `json:"id"`
	Kind         RunKind    `json:"kind"`
	BackupName   string     `json:"backupName"`
	RemoteURL    string     `json:"remoteURL"`
	Mode         string     `json:"mode,omitempty"`
	Status       RunStatus  `json:"status"`
	Started      time.Time  `json:"started"`
	Finished     *time.Time `json:"finished"`
	Components   []string   `json:"components,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultPath is ~/.shellpack/history.db, created on first open.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".shellpack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (and creates if needed) the run database. ":memory:" works
// for tests.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (id TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run history: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Append stores one finished run, assigning an ID when the record has
// none.
func (l *Ledger) Append(rec RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(`INSERT OR REPLACE INTO runs (id, value) VALUES (?, ?)`, rec.ID, string(value))
	return err
}

// Recent returns up to limit runs, newest started first.
func (l *Ledger) Recent(limit int) ([]RunRecord, error) {
	query := fmt.Sprintf(`SELECT value FROM runs ORDER BY json_extract(value, '$.started') DESC LIMIT %d`, limit)
	return l.query(query)
}

// ByKind filters Recent down to backups or restores.
func (l *Ledger) ByKind(kind RunKind, limit int) ([]RunRecord, error) {
	query := fmt.Sprintf(`SELECT value FROM runs WHERE json_extract(value, '$.kind') = ? ORDER BY json_extract(value, '$.started') DESC LIMIT %d`, limit)
	return l.query(query, string(kind))
}

// Prune deletes finished runs older than the cutoff and reports how many
// went.
func (l *Ledger) Prune(olderThan time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := l.db.Exec(`DELETE FROM runs
		WHERE json_extract(value, '$.finished') IS NOT NULL
		  AND json_extract(value, '$.finished') < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (l *Ledger) query(query string, args ...any) ([]RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		var rec RunRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
