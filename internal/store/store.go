package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/vvm-sync/internal/model"
)

// ErrNotFound is returned when a voicemail lookup matches no row.
var ErrNotFound = errors.New("not found")

// VoicemailStore is the local voicemail table of every phone account.
// Queries return a nil slice and an error only when the read failed;
// an empty result is a nil error.
type VoicemailStore interface {
	// GetReadVoicemails returns voicemails read locally whose read state
	// has not been pushed to the server yet.
	GetReadVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)
	// GetDeletedVoicemails returns voicemails deleted locally and still
	// present on the server.
	GetDeletedVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)
	// GetAllVoicemails returns every local voicemail of the account,
	// including the ones pending deletion.
	GetAllVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)

	DeleteVoicemails(ctx context.Context, voicemails []model.Voicemail) error
	// MarkReadInDatabase sets the read flag and clears the pending
	// change marker.
	MarkReadInDatabase(ctx context.Context, voicemails []model.Voicemail) error
	InsertVoicemail(ctx context.Context, vm model.Voicemail) (string, error)

	GetVoicemail(ctx context.Context, id string) (*model.Voicemail, error)
	GetVoicemailBySource(ctx context.Context, account, sourceData string) (*model.Voicemail, error)
	UpdatePayload(ctx context.Context, id string, payload model.Payload) error
	GetPayload(ctx context.Context, id string) (model.Payload, error)

	// MarkLocallyRead and MarkLocallyDeleted record a user action to be
	// pushed by the next upload.
	MarkLocallyRead(ctx context.Context, id string) error
	MarkLocallyDeleted(ctx context.Context, id string) error
}

// AccountStateStore keeps the per-account sync bookkeeping.
type AccountStateStore interface {
	// RetryInterval returns zero when no interval has been stored.
	RetryInterval(ctx context.Context, account string) (time.Duration, error)
	SetRetryInterval(ctx context.Context, account string, d time.Duration) error

	// LastFullSync returns the zero time when no full sync has run.
	LastFullSync(ctx context.Context, account string) (time.Time, error)
	SetLastFullSync(ctx context.Context, account string, t time.Time) error

	// IsEnabled defaults to true for accounts without state.
	IsEnabled(ctx context.Context, account string) (bool, error)
	SetEnabled(ctx context.Context, account string, enabled bool) error
}

// AlarmStore persists scheduled retries so they survive restarts.
type AlarmStore interface {
	SaveAlarm(ctx context.Context, alarm model.RetryAlarm) error
	DeleteAlarm(ctx context.Context, account string, action model.SyncAction) error
	ListAlarms(ctx context.Context) ([]model.RetryAlarm, error)
}

// Store is the complete persistence layer of the daemon.
type Store interface {
	VoicemailStore
	AccountStateStore
	AlarmStore
	Close() error
}
