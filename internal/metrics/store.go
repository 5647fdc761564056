package metrics

import (
	"context"
	"database/sql"
	"time"
)

// ExtractionMetric records metadata for a single extraction request.
type ExtractionMetric struct {
	Source    string // scraper | heuristic | llm | video
	Model     string
	Outcome   string // ok | <error kind>
	LatencyMS int64
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(m ExtractionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO extraction_metrics (source, model, outcome, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		m.Source, m.Model, m.Outcome, m.LatencyMS, ts,
	)
	return err
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(context.Background(),
		`DELETE FROM extraction_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
