package store

import (
	"context"
	"fmt"

	"github.com/jay060412/stepcode/internal/llm"
)

// RequestLog returns the model request log backed by this store.
func (s *Store) RequestLog() llm.RequestLog {
	return &sqlRequestLog{store: s}
}

// sqlRequestLog implements llm.RequestLog over the llm_requests table.
type sqlRequestLog struct {
	store *Store
}

func (l *sqlRequestLog) AppendRequest(ctx context.Context, rec llm.RequestRecord) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO llm_requests (provider, model, purpose, input_tokens,
			output_tokens, latency_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Provider, rec.Model, rec.Purpose, rec.InputTokens,
		rec.OutputTokens, rec.LatencyMs, rec.Success, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return nil
}

// RequestStats summarizes the request log for the stats view.
type RequestStats struct {
	Total        int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// RequestStats aggregates the llm_requests table.
func (s *Store) RequestStats(ctx context.Context) (RequestStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0)
		FROM llm_requests`)
	var st RequestStats
	if err := row.Scan(&st.Total, &st.Failures, &st.InputTokens, &st.OutputTokens); err != nil {
		return RequestStats{}, fmt.Errorf("request stats: %w", err)
	}
	return st, nil
}
