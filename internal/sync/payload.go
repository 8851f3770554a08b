package sync

import (
	"context"
	"fmt"

	"github.com/nhle/vvm-sync/internal/model"
)

// FetchPayload downloads the audio of a local voicemail and stores it.
// It acquires the account's network the same way a sync does.
func (s *Service) FetchPayload(ctx context.Context, voicemailID string) error {
	vm, err := s.voicemails.GetVoicemail(ctx, voicemailID)
	if err != nil {
		return err
	}

	account, ok := s.accounts.Get(vm.PhoneAccount)
	if !ok {
		return fmt.Errorf("voicemail %s: %w %q", voicemailID, ErrUnknownAccount, vm.PhoneAccount)
	}
	log := s.log.WithAccount(account.ID)

	network, release, err := s.acquireNetwork(ctx, account)
	if err != nil {
		return fmt.Errorf("fetching voicemail %s: %w", voicemailID, err)
	}
	defer release()

	adapter, err := s.adapterFor(account, network)
	if err != nil {
		return fmt.Errorf("fetching voicemail %s: %w", voicemailID, err)
	}

	err = adapter.FetchVoicemailPayload(ctx, func(p model.Payload) error {
		return s.voicemails.UpdatePayload(ctx, vm.ID, p)
	}, vm.SourceData)
	if err != nil {
		return fmt.Errorf("fetching voicemail %s: %w", voicemailID, err)
	}

	log.Info().Str("id", vm.ID).Str("uid", vm.SourceData).Msg("voicemail payload stored")
	return nil
}
