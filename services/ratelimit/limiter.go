// Package ratelimit throttles repeated authentication attempts with a
// sliding window stored in PostgreSQL, so every API replica sees the same count.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Window allows Limit events per Period
type Window struct {
	Limit  int
	Period time.Duration
}

// Result is the outcome of a Check
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts attempts per scope key
type Limiter struct {
	db     *sql.DB
	window Window
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a Limiter. A window with Limit <= 0 allows everything.
func NewLimiter(db *sql.DB, window Window, logger *zap.Logger) *Limiter {
	return &Limiter{
		db:     db,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// ScopeKey builds the key for action performed against subject
func ScopeKey(action, subject string) string {
	return action + ":" + strings.ToLower(strings.TrimSpace(subject))
}

// Check reports whether another attempt under key is allowed right now
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	if l.window.Limit <= 0 {
		return &Result{Allowed: true}, nil
	}

	now := l.now()
	query := `
		SELECT COUNT(*), MIN(occurred_at)
		FROM auth_attempts
		WHERE scope_key = $1
		  AND occurred_at >= $2
	`

	var (
		count  int
		oldest sql.NullTime
	)
	if err := l.db.QueryRowContext(ctx, query, key, now.Add(-l.window.Period)).Scan(&count, &oldest); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if count < l.window.Limit {
		return &Result{Allowed: true, Remaining: l.window.Limit - count}, nil
	}

	retryAfter := l.window.Period
	if oldest.Valid {
		retryAfter = oldest.Time.Add(l.window.Period).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
	}
	return &Result{Allowed: false, RetryAfter: retryAfter}, nil
}

// Record stores one attempt under key
func (l *Limiter) Record(ctx context.Context, key string) error {
	if l.window.Limit <= 0 {
		return nil
	}
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO auth_attempts (scope_key, occurred_at) VALUES ($1, $2)`,
		key, l.now()); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Reset forgets all attempts under key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l.window.Limit <= 0 {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM auth_attempts WHERE scope_key = $1`, key); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}

// Cleanup deletes attempts older than the window
func (l *Limiter) Cleanup(ctx context.Context) (int64, error) {
	cutoff := l.now().Add(-l.window.Period)

	result, err := l.db.ExecContext(ctx, `DELETE FROM auth_attempts WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup attempts: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	l.logger.Debug("cleaned up auth attempts",
		zap.Int64("rows_deleted", rows),
		zap.Time("cutoff", cutoff))
	return rows, nil
}

// StartCleanupWorker runs Cleanup every interval until ctx is cancelled
func (l *Limiter) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("started auth attempt cleanup worker", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			if _, err := l.Cleanup(ctx); err != nil {
				l.logger.Error("failed to cleanup auth attempts", zap.Error(err))
			}
		case <-ctx.Done():
			l.logger.Info("stopping auth attempt cleanup worker")
			return
		}
	}
}
