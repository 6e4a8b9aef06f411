// Package store persists the generation history in sqlite so past runs can
// be inspected and duplicate output diagnosed after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tenkigen/tenkigen/internal/models"
)

// Store is the sqlite-backed generation log. Safe for concurrent use; the
// underlying *sql.DB serializes access.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Generation is one completed pipeline run.
type Generation struct {
	ID                 string
	LocationName       string
	GeneratedAt        time.Time
	FinalComment       string
	WeatherComment     string
	AdviceComment      string
	WeatherCondition   string
	WeatherDescription string
	Temperature        float64
	Precipitation      float64
	SelectionReason    string
	UsedLLM            bool
	LLMProvider        string
	RetryCount         int
	ExecutionTimeMS    int64
	EvaluationTotal    *float64
}

// Record inserts one generation. Duplicate IDs are ignored so retried
// writes stay idempotent.
func (s *Store) Record(ctx context.Context, g Generation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (
			id, location_name, generated_at, final_comment,
			weather_comment, advice_comment, weather_condition, weather_description,
			temperature, precipitation, selection_reason,
			used_llm, llm_provider, retry_count, execution_time_ms, evaluation_total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, g.ID, g.LocationName, g.GeneratedAt.In(models.JST).Format(time.RFC3339), g.FinalComment,
		g.WeatherComment, g.AdviceComment, g.WeatherCondition, g.WeatherDescription,
		g.Temperature, g.Precipitation, g.SelectionReason,
		g.UsedLLM, g.LLMProvider, g.RetryCount, g.ExecutionTimeMS, g.EvaluationTotal)
	return err
}

// Recent returns the newest generations for a location, newest first.
func (s *Store) Recent(ctx context.Context, location string, limit int) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_name, generated_at, final_comment,
		       weather_comment, advice_comment, weather_condition, weather_description,
		       temperature, precipitation, selection_reason,
		       used_llm, llm_provider, retry_count, execution_time_ms, evaluation_total
		FROM generations
		WHERE location_name = ?
		ORDER BY generated_at DESC
		LIMIT ?
	`, location, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// LastComment returns the most recent final comment for a location, or ""
// when none exists.
func (s *Store) LastComment(ctx context.Context, location string) (string, error) {
	var comment string
	err := s.db.QueryRowContext(ctx, `
		SELECT final_comment FROM generations
		WHERE location_name = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, location).Scan(&comment)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return comment, err
}

// Prune deletes generations older than the cutoff and returns the count.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generations WHERE generated_at < ?`,
		olderThan.In(models.JST).Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanGeneration(rows *sql.Rows) (Generation, error) {
	var g Generation
	var generatedAt string
	var evalTotal sql.NullFloat64
	if err := rows.Scan(
		&g.ID, &g.LocationName, &generatedAt, &g.FinalComment,
		&g.WeatherComment, &g.AdviceComment, &g.WeatherCondition, &g.WeatherDescription,
		&g.Temperature, &g.Precipitation, &g.SelectionReason,
		&g.UsedLLM, &g.LLMProvider, &g.RetryCount, &g.ExecutionTimeMS, &evalTotal,
	); err != nil {
		return g, err
	}
	if ts, err := time.Parse(time.RFC3339, generatedAt); err == nil {
		g.GeneratedAt = ts.In(models.JST)
	}
	if evalTotal.Valid {
		g.EvaluationTotal = &evalTotal.Float64
	}
	return g, nil
}
