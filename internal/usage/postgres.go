package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execer is the slice of pgxpool.Pool the recorder needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ execer = (*pgxpool.Pool)(nil)

// PgRecorder writes usage records to the tts_usage table.
type PgRecorder struct {
	db execer
}

func NewPgRecorder(db *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{db: db}
}

func (r *PgRecorder) Record(ctx context.Context, rec Record) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO tts_usage (id, provider, voice_id, language, chars, outcome, kind, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), rec.Provider, rec.VoiceID, rec.Language, rec.Chars, rec.Outcome, rec.Kind, rec.LatencyMs, ts,
	)
	if err != nil {
		return fmt.Errorf("insert tts usage: %w", err)
	}
	return nil
}

// Summary aggregates usage for one provider.
type Summary struct {
	Provider   string  `json:"provider"`
	Requests   int64   `json:"requests"`
	Failures   int64   `json:"failures"`
	Chars      int64   `json:"chars"`
	AvgLatency float64 `json:"avg_latency_ms"`
}

// Summarize aggregates usage since the given time, grouped by provider.
func (r *PgRecorder) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT provider,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE outcome <> 'success'),
		        COALESCE(SUM(chars), 0),
		        COALESCE(AVG(latency_ms), 0)
		 FROM tts_usage
		 WHERE created_at >= $1
		 GROUP BY provider
		 ORDER BY provider`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query tts usage: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Provider, &s.Requests, &s.Failures, &s.Chars, &s.AvgLatency); err != nil {
			return nil, fmt.Errorf("scan tts usage: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
