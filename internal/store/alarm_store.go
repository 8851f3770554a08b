package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/vvm-sync/internal/model"
)

// SaveAlarm inserts or replaces the alarm of an account and action.
func (s *SQLiteStore) SaveAlarm(ctx context.Context, alarm model.RetryAlarm) error {
	if alarm.ID == "" {
		alarm.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms (id, account_id, action, fire_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, action) DO UPDATE SET
			id = excluded.id,
			fire_at = excluded.fire_at`,
		alarm.ID, alarm.Account, string(alarm.Action), alarm.FireAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving %s alarm of %s: %w", alarm.Action, alarm.Account, err)
	}
	return nil
}

// DeleteAlarm removes the alarm of an account and action, if any.
func (s *SQLiteStore) DeleteAlarm(ctx context.Context, account string, action model.SyncAction) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM alarms WHERE account_id = ? AND action = ?", account, string(action))
	if err != nil {
		return fmt.Errorf("deleting %s alarm of %s: %w", action, account, err)
	}
	return nil
}

// ListAlarms returns every pending alarm, soonest first.
func (s *SQLiteStore) ListAlarms(ctx context.Context) ([]model.RetryAlarm, error) {
	alarms := []model.RetryAlarm{}
	err := s.db.SelectContext(ctx, &alarms,
		"SELECT id, account_id, action, fire_at FROM alarms ORDER BY fire_at")
	if err != nil {
		return nil, fmt.Errorf("querying alarms: %w", err)
	}
	return alarms, nil
}
