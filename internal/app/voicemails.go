package app

import (
	"context"
	"fmt"

	"github.com/nhle/vvm-sync/internal/model"
)

// Voicemails returns the local voicemails of an account.
func (a *App) Voicemails(ctx context.Context, accountID string) ([]model.Voicemail, error) {
	return a.store.GetAllVoicemails(ctx, accountID)
}

// FetchPayload downloads the audio of the voicemail with the given UID
// unless it is already stored, and returns it.
func (a *App) FetchPayload(ctx context.Context, accountID, uid string) (model.Payload, error) {
	vm, err := a.store.GetVoicemailBySource(ctx, accountID, uid)
	if err != nil {
		return model.Payload{}, err
	}

	if !vm.HasContent {
		if err := a.service.FetchPayload(ctx, vm.ID); err != nil {
			return model.Payload{}, err
		}
	}

	p, err := a.store.GetPayload(ctx, vm.ID)
	if err != nil {
		return model.Payload{}, fmt.Errorf("reading payload of %s: %w", uid, err)
	}
	return p, nil
}

// MarkRead marks a voicemail read locally. The next upload pushes it.
func (a *App) MarkRead(ctx context.Context, id string) error {
	return a.store.MarkLocallyRead(ctx, id)
}

// Delete marks a voicemail deleted locally. The next upload removes it
// from the server and then from the local table.
func (a *App) Delete(ctx context.Context, id string) error {
	return a.store.MarkLocallyDeleted(ctx, id)
}
