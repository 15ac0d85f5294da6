// Package history persists analysis results in SQLite so users can revisit
// what they almost posted. Records are small: the post text, the chosen mode,
// and the assembled result as JSON.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/overshare-io/overshare/internal/analyze"
	overshareotel "github.com/overshare-io/overshare/internal/otel"
)

var tracer = overshareotel.Tracer("github.com/overshare-io/overshare/internal/history")

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("history record not found")

// Record is one stored analysis.
type Record struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Mode      string                  `json:"mode"`
	Post      string                  `json:"post"`
	Result    *analyze.AnalysisResult `json:"result"`
}

// Store persists analysis records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		mode TEXT NOT NULL,
		post TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores one analysis. A missing ID gets a fresh UUID; a missing
// timestamp gets the current time. Both are filled in on the passed record.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "history.save",
		trace.WithAttributes(attribute.String("history.mode", rec.Mode)))
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshaling analysis result: %w", err)
	}

	query := `INSERT INTO analyses (id, created_at, mode, post, result_json)
	          VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt, rec.Mode, rec.Post, string(resultJSON)); err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}
	return nil
}

// Get retrieves one record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "history.get",
		trace.WithAttributes(attribute.String("history.id", id)))
	defer span.End()

	var (
		rec        Record
		resultJSON string
	)
	query := `SELECT id, created_at, mode, post, result_json FROM analyses WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&rec.ID, &rec.CreatedAt, &rec.Mode, &rec.Post, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis result: %w", err)
	}
	return &rec, nil
}

// List returns the most recent records, newest first. limit <= 0 means a
// default page of 50.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "history.list")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, created_at, mode, post, result_json FROM analyses
	          ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var (
			rec        Record
			resultJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Mode, &rec.Post, &resultJSON); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
			continue
		}
		results = append(results, rec)
	}

	span.SetAttributes(attribute.Int("history.count", len(results)))
	return results, rows.Err()
}

// PruneOlderThan deletes records created before the cutoff and returns how
// many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "history.prune",
		trace.WithAttributes(attribute.String("history.cutoff", cutoff.Format(time.RFC3339))))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning analyses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned analyses: %w", err)
	}
	span.SetAttributes(attribute.Int64("history.pruned", n))
	return n, nil
}
