package store

import (
	"database/sql"
	"fmt"
	"time"
)

// DeadLetter is an integration job that failed after its retries. A zero
// NextRetryAt means replay has given up; a zero ResolvedAt means still open.
type DeadLetter struct {
	ID          string
	JobType     string
	Payload     string // JSON
	Error       string
	CreatedAt   int64
	RetryCount  int
	NextRetryAt int64
	ResolvedAt  int64
}

const deadLetterColumns = `id, job_type, payload, error, created_at, retry_count, next_retry_at, resolved_at`

func nullMillis(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// SaveDeadLetter parks a failed job, replacing any earlier row with its id.
func (s *Store) SaveDeadLetter(dl *DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dl.CreatedAt == 0 {
		dl.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO dead_letters (`+deadLetterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		dl.ID, dl.JobType, dl.Payload, dl.Error, dl.CreatedAt, dl.RetryCount,
		nullMillis(dl.NextRetryAt), nullMillis(dl.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("saving dead letter %s: %w", dl.ID, err)
	}
	return nil
}

// ListRetryable returns open dead letters whose next attempt is due, oldest
// schedule first.
func (s *Store) ListRetryable(limit int) ([]*DeadLetter, error) {
	return s.queryDeadLetters(
		`WHERE resolved_at IS NULL AND next_retry_at <= ? ORDER BY next_retry_at`,
		limit, time.Now().UnixMilli(),
	)
}

// ListDeadLetters returns dead letters newest first. Resolved ones are
// included only when asked for.
func (s *Store) ListDeadLetters(includeResolved bool, limit int) ([]*DeadLetter, error) {
	if includeResolved {
		return s.queryDeadLetters(`ORDER BY created_at DESC`, limit)
	}
	return s.queryDeadLetters(`WHERE resolved_at IS NULL ORDER BY created_at DESC`, limit)
}

func (s *Store) queryDeadLetters(clause string, limit int, args ...any) ([]*DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT ` + deadLetterColumns + ` FROM dead_letters ` + clause
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	defer rows.Close()

	out := []*DeadLetter{}
	for rows.Next() {
		var (
			dl              DeadLetter
			next, resolved sql.NullInt64
		)
		if err := rows.Scan(&dl.ID, &dl.JobType, &dl.Payload, &dl.Error,
			&dl.CreatedAt, &dl.RetryCount, &next, &resolved); err != nil {
			return nil, fmt.Errorf("reading dead letter: %w", err)
		}
		dl.NextRetryAt, dl.ResolvedAt = next.Int64, resolved.Int64
		out = append(out, &dl)
	}
	return out, rows.Err()
}

// IncrementRetry counts a failed replay and schedules the next one. A zero
// nextRetryAt stops further replays.
func (s *Store) IncrementRetry(id string, nextRetryAt int64, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execOne("rescheduling dead letter "+id,
		`UPDATE dead_letters SET retry_count = retry_count + 1, next_retry_at = ?, error = ? WHERE id = ?`,
		nullMillis(nextRetryAt), lastErr, id,
	)
}

// ResolveDeadLetter marks a parked job as delivered.
func (s *Store) ResolveDeadLetter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execOne("resolving dead letter "+id,
		`UPDATE dead_letters SET resolved_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id,
	)
}
