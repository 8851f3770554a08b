package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RetryInterval returns the persisted backoff interval of the account.
func (s *SQLiteStore) RetryInterval(ctx context.Context, account string) (time.Duration, error) {
	var ms int64
	err := s.db.GetContext(ctx, &ms,
		"SELECT retry_interval_ms FROM account_state WHERE account_id = ?", account)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading retry interval of %s: %w", account, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SetRetryInterval persists the backoff interval of the account.
func (s *SQLiteStore) SetRetryInterval(ctx context.Context, account string, d time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_state (account_id, retry_interval_ms, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			retry_interval_ms = excluded.retry_interval_ms,
			updated_at = excluded.updated_at`,
		account, d.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing retry interval of %s: %w", account, err)
	}
	return nil
}

// LastFullSync returns when the last full sync of the account started.
func (s *SQLiteStore) LastFullSync(ctx context.Context, account string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.GetContext(ctx, &last,
		"SELECT last_full_sync FROM account_state WHERE account_id = ?", account)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last full sync of %s: %w", account, err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// SetLastFullSync stamps the last full sync time of the account.
func (s *SQLiteStore) SetLastFullSync(ctx context.Context, account string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_state (account_id, last_full_sync, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			last_full_sync = excluded.last_full_sync,
			updated_at = excluded.updated_at`,
		account, t.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing last full sync of %s: %w", account, err)
	}
	return nil
}

// IsEnabled reports whether visual voicemail is enabled for the account.
func (s *SQLiteStore) IsEnabled(ctx context.Context, account string) (bool, error) {
	var enabled int
	err := s.db.GetContext(ctx, &enabled,
		"SELECT enabled FROM account_state WHERE account_id = ?", account)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading enabled flag of %s: %w", account, err)
	}
	return enabled != 0, nil
}

// SetEnabled turns visual voicemail on or off for the account.
func (s *SQLiteStore) SetEnabled(ctx context.Context, account string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_state (account_id, enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		account, boolToInt(enabled), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing enabled flag of %s: %w", account, err)
	}
	return nil
}
