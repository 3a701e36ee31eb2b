package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/citysky/weather-lookup-service/internal/models"
	"github.com/citysky/weather-lookup-service/internal/observability"
)

// Two-table audit log. A request row is written before the upstream call so
// every lookup attempt is recorded even when the provider fails or hangs; the
// response row arrives afterwards, linked by foreign key. The admin table is
// pre-existing and managed outside this service; it is only ever read here.
const schema = `
CREATE TABLE IF NOT EXISTS request (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    city TEXT NOT NULL,
    dt   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS response (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id INTEGER NOT NULL REFERENCES request(id),
    data       TEXT NOT NULL,
    dt         TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_request_dt ON request(dt);
CREATE INDEX IF NOT EXISTS idx_response_request ON response(request_id);
`

var (
	// ErrStoreUnavailable is returned when no live database handle exists.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnknownRequest is returned when a response references a request id
	// that was never saved.
	ErrUnknownRequest = errors.New("unknown request id")

	// ErrUnknownUser is returned when no admin row exists for a username.
	ErrUnknownUser = errors.New("unknown user")
)

// Open opens (creating if needed) the sqlite database at path and applies the
// idempotent schema. Foreign keys are enforced so orphan response rows are
// rejected by the engine itself.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// Store implements the audit-log persistence operations and admin aggregate
// queries. The embedded *sql.DB is safe for concurrent handlers; every
// mutating call is a single auto-committed statement.
type Store struct {
	db *sql.DB
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// Ping reports whether the database handle is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// SaveRequest inserts one request row and returns its generated id.
// Identifiers are strictly increasing within a database.
func (s *Store) SaveRequest(city string, at time.Time) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO request (city, dt) VALUES (?, ?)`,
		city, at.Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("saving request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading request id: %w", err)
	}
	observability.StorageWritesTotal.WithLabelValues("request").Inc()
	return id, nil
}

// SaveResponse inserts the outcome row for a previously saved request, with
// the payload serialized as JSON.
func (s *Store) SaveResponse(requestID int64, outcome models.LookupOutcome) error {
	if err := s.ready(); err != nil {
		return err
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO response (request_id, data) VALUES (?, ?)`,
		requestID, string(data),
	); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %d", ErrUnknownRequest, requestID)
		}
		return fmt.Errorf("saving response: %w", err)
	}
	observability.StorageWritesTotal.WithLabelValues("response").Inc()
	return nil
}

// isForeignKeyViolation matches the sqlite constraint failure raised for a
// response row whose request_id has no request.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// RequestCount returns the total number of request rows.
func (s *Store) RequestCount() (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM request`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return count, nil
}

// SuccessfulRequestCount returns the number of response rows whose payload
// status is exactly 200.
func (s *Store) SuccessfulRequestCount() (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM response WHERE CAST(json_extract(data, '$.status') AS INTEGER) = 200`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting successful requests: %w", err)
	}
	return count, nil
}

// LastHourRequests returns city and formatted timestamp for every request made
// in the last hour. Timestamps are stored as YYYY-MM-DD HH:MM:SS text, so the
// cutoff comparison is lexicographic.
func (s *Store) LastHourRequests() ([]models.RequestRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-time.Hour).Format(time.DateTime)
	rows, err := s.db.Query(`SELECT city, dt FROM request WHERE dt >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing last hour requests: %w", err)
	}
	defer rows.Close()

	var results []models.RequestRecord
	for rows.Next() {
		var rec models.RequestRecord
		if err := rows.Scan(&rec.City, &rec.At); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// CityRequestCount returns, per city, the number of lookups that produced a
// 200 outcome. The inner join drops cities with no successful responses.
func (s *Store) CityRequestCount() ([]models.CityCount, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT request.city, COUNT(*) FROM request
		 JOIN response ON response.request_id = request.id
		 WHERE CAST(json_extract(response.data, '$.status') AS INTEGER) = 200
		 GROUP BY request.city`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting city requests: %w", err)
	}
	defer rows.Close()

	var results []models.CityCount
	for rows.Next() {
		var cc models.CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			return nil, fmt.Errorf("scanning city count: %w", err)
		}
		results = append(results, cc)
	}
	return results, rows.Err()
}

// AdminPassword returns the stored password for username (default "admin").
func (s *Store) AdminPassword(username string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if username == "" {
		username = "admin"
	}
	var password string
	err := s.db.QueryRow(`SELECT password FROM admin WHERE username = ?`, username).Scan(&password)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	if err != nil {
		return "", fmt.Errorf("reading admin password: %w", err)
	}
	return password, nil
}
