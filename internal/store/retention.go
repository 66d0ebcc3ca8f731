package store

import (
	"context"
	"fmt"
	"time"
)

// resolvedRetention is how long delivered dead letters stay visible to
// operators.
const resolvedRetention = 24 * time.Hour

// RetentionResult counts the rows a retention pass removed.
type RetentionResult struct {
	Leads       int64
	DeadLetters int64
}

// RunRetention deletes leads older than leadMaxAge and dead letters resolved
// more than a day ago. A non-positive leadMaxAge keeps leads forever.
func (s *Store) RunRetention(ctx context.Context, leadMaxAge time.Duration) (RetentionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res RetentionResult
	now := time.Now()

	if leadMaxAge > 0 {
		n, err := s.deleteBefore(ctx, `DELETE FROM leads WHERE created_at < ?`, now.Add(-leadMaxAge))
		if err != nil {
			return res, fmt.Errorf("pruning leads: %w", err)
		}
		res.Leads = n
	}

	n, err := s.deleteBefore(ctx, `DELETE FROM dead_letters WHERE resolved_at IS NOT NULL AND resolved_at < ?`, now.Add(-resolvedRetention))
	if err != nil {
		return res, fmt.Errorf("pruning dead letters: %w", err)
	}
	res.DeadLetters = n
	return res, nil
}

func (s *Store) deleteBefore(ctx context.Context, query string, cutoff time.Time) (int64, error) {
	out, err := s.db.ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return out.RowsAffected()
}
