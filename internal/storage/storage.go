// Package storage persists analysis results in a SQL database.
//
// One row is kept per recording: storing a new analysis of a recording replaces
// the previous one. The full result is stored as a JSON payload next to the few
// columns listings need. SQLite (modernc.org/sqlite, pure Go) is the default
// backend; Postgres (lib/pq) is supported for shared deployments.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

// Dialect selects the SQL flavor and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	recording_id    TEXT PRIMARY KEY,
	id              TEXT NOT NULL,
	recording_title TEXT NOT NULL,
	peak_count      INTEGER NOT NULL,
	total_messages  INTEGER NOT NULL,
	analyzed_at     TEXT NOT NULL,
	payload         TEXT NOT NULL
)`

const analyzedAtIndex = `CREATE INDEX IF NOT EXISTS idx_analyses_analyzed_at ON analyses (analyzed_at)`

// Store is a SQL-backed analysis store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New opens a store. For SQLite an empty dsn puts the database in the OS temp
// directory, and ":memory:" gives a private in-memory database.
func New(dialect Dialect, dsn string) (*Store, error) {
	switch dialect {
	case DialectSQLite:
		if dsn == "" {
			dsn = filepath.Join(os.TempDir(), "chatpeaks", "chatpeaks.db")
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DialectPostgres:
		if dsn == "" {
			return nil, errors.New("postgres requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; an in-memory database exists per connection.
		db.SetMaxOpenConns(1)
	}

	s, err := NewWithDB(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("Opened %s analysis store", dialect)
	return s, nil
}

// NewWithDB wraps an open database handle and creates the schema if needed.
func NewWithDB(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, stmt := range []string{schema, analyzedAtIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertAnalysis stores result, replacing any earlier analysis of the same recording.
func (s *Store) UpsertAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid analysis: %w", err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	query := s.rebind(`
		INSERT INTO analyses (recording_id, id, recording_title, peak_count, total_messages, analyzed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (recording_id) DO UPDATE SET
			id = excluded.id,
			recording_title = excluded.recording_title,
			peak_count = excluded.peak_count,
			total_messages = excluded.total_messages,
			analyzed_at = excluded.analyzed_at,
			payload = excluded.payload`)

	_, err = s.db.ExecContext(ctx, query,
		result.RecordingID,
		result.ID,
		result.RecordingTitle,
		len(result.Peaks),
		result.SummaryStats.TotalMessages,
		result.AnalyzedAt.UTC().Format(timeLayout),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis %s: %w", result.RecordingID, err)
	}
	return nil
}

// GetAnalysis returns the analysis of a recording, or nil, nil when there is none.
func (s *Store) GetAnalysis(ctx context.Context, recordingID string) (*models.AnalysisResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT payload FROM analyses WHERE recording_id = ?`), recordingID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %s: %w", recordingID, err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", recordingID, err)
	}
	return &result, nil
}

// ListAnalyses returns up to limit summaries, most recently analyzed first.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, recording_id, recording_title, peak_count, total_messages, analyzed_at
		FROM analyses
		ORDER BY analyzed_at DESC, recording_id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]models.AnalysisSummary, 0)
	for rows.Next() {
		var sum models.AnalysisSummary
		var analyzedAt string
		if err := rows.Scan(&sum.ID, &sum.RecordingID, &sum.RecordingTitle, &sum.PeakCount, &sum.TotalMessages, &analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if sum.AnalyzedAt, err = time.Parse(timeLayout, analyzedAt); err != nil {
			return nil, fmt.Errorf("bad analyzed_at %q for %s: %w", analyzedAt, sum.RecordingID, err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return summaries, nil
}

// DeleteAnalysis removes the analysis of a recording. It returns models.ErrNotFound
// when there is nothing to delete.
func (s *Store) DeleteAnalysis(ctx context.Context, recordingID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE recording_id = ?`), recordingID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", recordingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", recordingID, err)
	}
	if n == 0 {
		return fmt.Errorf("analysis of %s: %w", recordingID, models.ErrNotFound)
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
