package sync

import (
	"context"

	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/source"
)

// Mailbox is the remote side of a reconciliation pass.
type Mailbox interface {
	FetchAllVoicemails(ctx context.Context) ([]model.Voicemail, error)
	MarkMessagesAsRead(ctx context.Context, voicemails []model.Voicemail) source.Outcome
	MarkMessagesAsDeleted(ctx context.Context, voicemails []model.Voicemail) source.Outcome
}

// LocalStore is the part of the local voicemail table reconciliation
// reads and mutates.
type LocalStore interface {
	GetReadVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)
	GetDeletedVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)
	GetAllVoicemails(ctx context.Context, account string) ([]model.Voicemail, error)
	DeleteVoicemails(ctx context.Context, voicemails []model.Voicemail) error
	MarkReadInDatabase(ctx context.Context, voicemails []model.Voicemail) error
	InsertVoicemail(ctx context.Context, vm model.Voicemail) (string, error)
}

// Engine converges the local voicemail table and the remote mailbox.
// Upload pushes local read and delete changes outward; download makes
// the local table mirror the remote message list. Both compare the
// full lists on every pass.
type Engine struct {
	local LocalStore
	log   *logger.Logger
}

// NewEngine creates a reconciliation engine over the local store.
func NewEngine(local LocalStore, log *logger.Logger) *Engine {
	return &Engine{local: local, log: log.WithComponent("reconcile")}
}

// Upload pushes local deletions and reads to the server. Local rows are
// changed only after the server confirmed the matching flag change.
func (e *Engine) Upload(ctx context.Context, account string, remote Mailbox) bool {
	log := e.log.WithAccount(account)

	deleted, err := e.local.GetDeletedVoicemails(ctx, account)
	if err != nil {
		log.Error().Err(err).Msg("reading deleted voicemails failed")
		return false
	}
	read, err := e.local.GetReadVoicemails(ctx, account)
	if err != nil {
		log.Error().Err(err).Msg("reading read voicemails failed")
		return false
	}

	deleteOK := e.push(ctx, log, "delete", deleted,
		remote.MarkMessagesAsDeleted, e.local.DeleteVoicemails)
	readOK := e.push(ctx, log, "read", read,
		remote.MarkMessagesAsRead, e.local.MarkReadInDatabase)

	log.Debug().
		Int("deleted", len(deleted)).
		Int("read", len(read)).
		Bool("delete_ok", deleteOK).
		Bool("read_ok", readOK).
		Msg("upload finished")

	return deleteOK && readOK
}

// push sends one kind of local change to the server and commits it
// locally once the server accepted it.
func (e *Engine) push(
	ctx context.Context,
	log *logger.Logger,
	kind string,
	voicemails []model.Voicemail,
	send func(context.Context, []model.Voicemail) source.Outcome,
	commit func(context.Context, []model.Voicemail) error,
) bool {
	if len(voicemails) == 0 {
		return true
	}

	outcome := send(ctx, voicemails)
	if outcome != source.OutcomeSuccess {
		if !outcome.OK() {
			log.Warn().Str("kind", kind).Int("count", len(voicemails)).Msg("server rejected change")
		}
		return outcome.OK()
	}

	if err := commit(ctx, voicemails); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("committing confirmed change locally failed")
		return false
	}
	return true
}

// Download mirrors the remote message list into the local table. Local
// voicemails missing remotely are removed, remotely read ones are
// marked read and remote messages unknown locally are inserted. When
// either list cannot be read nothing is changed.
func (e *Engine) Download(ctx context.Context, account string, remote Mailbox) bool {
	log := e.log.WithAccount(account)

	remoteList, err := remote.FetchAllVoicemails(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("fetching remote voicemails failed")
		return false
	}
	localList, err := e.local.GetAllVoicemails(ctx, account)
	if err != nil {
		log.Error().Err(err).Msg("reading local voicemails failed")
		return false
	}

	plan := planDownload(localList, remoteList)
	ok := true

	if len(plan.remove) > 0 {
		if err := e.local.DeleteVoicemails(ctx, plan.remove); err != nil {
			log.Error().Err(err).Msg("removing stale voicemails failed")
			ok = false
		}
	}
	if len(plan.markRead) > 0 {
		if err := e.local.MarkReadInDatabase(ctx, plan.markRead); err != nil {
			log.Error().Err(err).Msg("marking voicemails read failed")
			ok = false
		}
	}
	for _, vm := range plan.insert {
		vm.PhoneAccount = account
		if _, err := e.local.InsertVoicemail(ctx, vm); err != nil {
			log.Error().Err(err).Str("uid", vm.SourceData).Msg("inserting voicemail failed")
			ok = false
		}
	}

	log.Info().
		Int("remote", len(remoteList)).
		Int("local", len(localList)).
		Int("removed", len(plan.remove)).
		Int("marked_read", len(plan.markRead)).
		Int("inserted", len(plan.insert)).
		Msg("download finished")

	return ok
}

// downloadPlan is the set of local mutations one download pass applies.
type downloadPlan struct {
	remove   []model.Voicemail
	markRead []model.Voicemail
	insert   []model.Voicemail
}

func planDownload(local, remote []model.Voicemail) downloadPlan {
	remoteByUID := make(map[string]model.Voicemail, len(remote))
	for _, vm := range remote {
		remoteByUID[vm.SourceData] = vm
	}

	var plan downloadPlan
	for _, l := range local {
		r, ok := remoteByUID[l.SourceData]
		if !ok {
			plan.remove = append(plan.remove, l)
			continue
		}
		delete(remoteByUID, l.SourceData)

		if r.IsRead && !l.IsRead {
			plan.markRead = append(plan.markRead, l)
		}
	}

	// Keep the server's order for the new ones.
	for _, r := range remote {
		if _, ok := remoteByUID[r.SourceData]; ok {
			delete(remoteByUID, r.SourceData)
			plan.insert = append(plan.insert, r)
		}
	}

	return plan
}
