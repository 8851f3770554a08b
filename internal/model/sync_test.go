package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncAction_NarrowAndUnion(t *testing.T) {
	assert.Equal(t, SyncDownloadOnly, SyncFull.Narrow(true, false))
	assert.Equal(t, SyncUploadOnly, SyncFull.Narrow(false, true))
	assert.Equal(t, SyncFull, SyncFull.Narrow(false, false))
	assert.Equal(t, SyncDownloadOnly, SyncDownloadOnly.Narrow(true, false))

	assert.Equal(t, SyncFull, SyncUploadOnly.Union(SyncDownloadOnly))
	assert.Equal(t, SyncUploadOnly, SyncAction("").Union(SyncUploadOnly))
	assert.Equal(t, SyncDownloadOnly, SyncDownloadOnly.Union(SyncDownloadOnly))
}

func TestParseSyncAction(t *testing.T) {
	_, err := ParseSyncAction("sideways")
	assert.Error(t, err)

	a, err := ParseSyncAction("upload_only")
	require.NoError(t, err)
	assert.True(t, a.Uploads())
	assert.False(t, a.Downloads())
}

func TestRetryAlarm_Request(t *testing.T) {
	alarm := RetryAlarm{Account: "a", Action: SyncFull}
	assert.Equal(t, SyncRequest{Account: "a", Action: SyncFull}, alarm.Request())
}
