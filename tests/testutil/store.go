package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// InsertVoicemails inserts the given voicemails into s and returns them
// with their generated local IDs.
func InsertVoicemails(t *testing.T, s store.VoicemailStore, vms ...model.Voicemail) []model.Voicemail {
	t.Helper()

	out := make([]model.Voicemail, 0, len(vms))
	for _, vm := range vms {
		if vm.Timestamp.IsZero() {
			vm.Timestamp = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		}
		id, err := s.InsertVoicemail(context.Background(), vm)
		if err != nil {
			t.Fatalf("inserting voicemail %s: %v", vm.SourceData, err)
		}
		vm.ID = id
		out = append(out, vm)
	}
	return out
}
