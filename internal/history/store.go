package history

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"authwatchd/internal/types"
)

// Store persists raised alerts to SQLite for the dashboard's history view.
// It is a sink only: the monitor never reads detection state back from it,
// so in-memory window state still resets on restart.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed initializes) the alert history database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		type TEXT,
		key TEXT,
		count INTEGER,
		severity TEXT,
		message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Insert records one raised alert.
func (s *Store) Insert(a types.SecurityAlert) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO alerts (id, timestamp, type, key, count, severity, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp, string(a.Type), a.Key, a.Count, string(a.Severity), a.Message,
	)
	return err
}

// List returns up to limit stored alerts, newest first.
func (s *Store) List(limit int) ([]types.SecurityAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, type, key, count, severity, message
		FROM alerts
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []types.SecurityAlert
	for rows.Next() {
		var a types.SecurityAlert
		var typ, severity string
		var ts time.Time
		if err := rows.Scan(&a.ID, &ts, &typ, &a.Key, &a.Count, &severity, &a.Message); err != nil {
			continue
		}
		a.Timestamp = ts
		a.Type = types.AlertType(typ)
		a.Severity = types.AlertSeverity(severity)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// TopAttackers returns the source keys with the most brute_force alerts.
func (s *Store) TopAttackers(limit int) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT key, COUNT(*) AS n
		FROM alerts
		WHERE type = ?
		GROUP BY key
		ORDER BY n DESC
		LIMIT ?`, string(types.AlertBruteForce), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			continue
		}
		out[key] = n
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
