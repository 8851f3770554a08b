package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/tests/testutil"
)

func TestAccountState_Defaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	d, err := s.RetryInterval(ctx, "acct-1")
	require.NoError(t, err)
	assert.Zero(t, d)

	last, err := s.LastFullSync(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	enabled, err := s.IsEnabled(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestAccountState_FieldsAreIndependent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	require.NoError(t, s.SetRetryInterval(ctx, "acct-1", 20*time.Second))
	require.NoError(t, s.SetLastFullSync(ctx, "acct-1", now))
	require.NoError(t, s.SetEnabled(ctx, "acct-1", false))
	require.NoError(t, s.SetRetryInterval(ctx, "acct-1", 40*time.Second))

	d, err := s.RetryInterval(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, d)

	last, err := s.LastFullSync(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, last.Equal(now))

	enabled, err := s.IsEnabled(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, enabled)

	other, err := s.RetryInterval(ctx, "acct-2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestAlarms(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAlarm(ctx, model.RetryAlarm{
		Account: "acct-1", Action: model.SyncDownloadOnly, FireAt: t0.Add(time.Minute),
	}))
	require.NoError(t, s.SaveAlarm(ctx, model.RetryAlarm{
		Account: "acct-2", Action: model.SyncFull, FireAt: t0.Add(30 * time.Second),
	}))
	// Replaces the first alarm.
	require.NoError(t, s.SaveAlarm(ctx, model.RetryAlarm{
		Account: "acct-1", Action: model.SyncDownloadOnly, FireAt: t0.Add(2 * time.Minute),
	}))

	alarms, err := s.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 2)
	assert.Equal(t, "acct-2", alarms[0].Account)
	assert.Equal(t, model.SyncFull, alarms[0].Action)
	assert.Equal(t, "acct-1", alarms[1].Account)
	assert.True(t, alarms[1].FireAt.Equal(t0.Add(2*time.Minute)))
	assert.NotEmpty(t, alarms[1].ID)

	require.NoError(t, s.DeleteAlarm(ctx, "acct-1", model.SyncDownloadOnly))
	require.NoError(t, s.DeleteAlarm(ctx, "acct-1", model.SyncUploadOnly))

	alarms, err = s.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, "acct-2", alarms[0].Account)
}
