package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/vvm-sync/internal/connectivity"
	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/source"
)

// cvvmPort is the port every CVVM carrier serves IMAPS on.
const cvvmPort = 993

// PayloadHandler receives a fetched voicemail payload.
type PayloadHandler func(p model.Payload) error

// StoreFactory builds the Store for a resolved configuration.
type StoreFactory func(cfg StoreConfig) Store

// Helper runs voicemail operations against one account's mailbox. Every
// operation opens the inbox, does its work and closes it again; folder
// handles are never held between operations. Protocol errors stop at
// this boundary and are reported as an error value or an Outcome.
type Helper struct {
	account model.PhoneAccount
	store   Store
	initErr error
	log     *logger.Logger
}

// HelperOption customises a Helper.
type HelperOption func(*helperOptions)

type helperOptions struct {
	factory StoreFactory
}

// WithStoreFactory replaces the go-imap backed store.
func WithStoreFactory(f StoreFactory) HelperOption {
	return func(o *helperOptions) {
		o.factory = f
	}
}

// NewHelper resolves the account credentials into a mailbox store. It
// never fails; when the credentials are unusable the helper is left
// uninitialized and IsInitialized reports false.
func NewHelper(
	account model.PhoneAccount,
	creds credential.Credentials,
	network *connectivity.Network,
	log *logger.Logger,
	opts ...HelperOption,
) *Helper {
	o := helperOptions{
		factory: func(cfg StoreConfig) Store { return NewIMAPStore(cfg) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Helper{
		account: account,
		log:     log.WithComponent("mailbox"),
	}

	cfg, err := resolveConfig(account, creds, network)
	if err != nil {
		h.initErr = err
		h.log.Warn().Err(err).Msg("could not resolve IMAP credentials")
		return h
	}

	h.store = o.factory(cfg)
	return h
}

func resolveConfig(
	account model.PhoneAccount,
	creds credential.Credentials,
	network *connectivity.Network,
) (StoreConfig, error) {
	port, err := strconv.Atoi(creds.Port)
	if err != nil || port <= 0 || port > 65535 {
		if err == nil {
			err = fmt.Errorf("port %d out of range", port)
		}
		return StoreConfig{}, &source.ConfigError{Account: account.ID, Field: "port", Err: err}
	}
	if creds.Server == "" {
		return StoreConfig{}, &source.ConfigError{
			Account: account.ID, Field: "server", Err: errors.New("missing"),
		}
	}
	if creds.Username == "" {
		return StoreConfig{}, &source.ConfigError{
			Account: account.ID, Field: "username", Err: errors.New("missing"),
		}
	}

	auth := AuthNone
	if account.VvmType == model.VvmTypeCVVM {
		port = cvvmPort
		auth = AuthSSL
	}

	return StoreConfig{
		Account:  account.ID,
		Host:     creds.Server,
		Port:     port,
		Username: creds.Username,
		Password: creds.Password,
		Auth:     auth,
		Network:  network,
	}, nil
}

// IsInitialized reports whether the helper has a usable mailbox store.
func (h *Helper) IsInitialized() bool {
	return h.store != nil
}

// InitError returns why the helper is uninitialized, or nil.
func (h *Helper) InitError() error {
	return h.initErr
}

// FetchAllVoicemails lists every message in the inbox and returns the
// ones carrying an audio attachment. Only flags, envelope and structure
// are fetched. Any protocol failure fails the whole listing.
func (h *Helper) FetchAllVoicemails(ctx context.Context) ([]model.Voicemail, error) {
	folder, err := h.openFolder(ctx, ModeReadWrite)
	if err != nil {
		return nil, err
	}
	defer h.closeFolder(folder)

	uids, err := folder.UIDs(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("listing messages failed")
		return nil, err
	}

	infos, err := folder.FetchStructure(ctx, uids)
	if err != nil {
		h.log.Error().Err(err).Msg("fetching message structure failed")
		return nil, err
	}

	voicemails := make([]model.Voicemail, 0, len(infos))
	for _, info := range infos {
		vm, ok := h.voicemailFromMessage(info)
		if !ok {
			h.log.Debug().Str("uid", info.UID).Msg("message has no audio attachment, skipping")
			continue
		}
		voicemails = append(voicemails, vm)
	}

	h.log.Debug().
		Int("messages", len(infos)).
		Int("voicemails", len(voicemails)).
		Msg("fetched remote voicemails")

	return voicemails, nil
}

// voicemailFromMessage converts a message to a voicemail when it is a
// multipart message with an audio part.
func (h *Helper) voicemailFromMessage(info MessageInfo) (model.Voicemail, bool) {
	if _, ok := audioPartType(info.BodyStructure); !ok {
		return model.Voicemail{}, false
	}
	if len(info.From) > 1 {
		h.log.Warn().Str("uid", info.UID).Msg("more than one from address, using the first")
	}

	return model.Voicemail{
		PhoneAccount: h.account.ID,
		SourceData:   info.UID,
		Number:       numberFromAddress(info.From),
		Timestamp:    info.SentDate,
		IsRead:       info.HasFlag(imap.FlagSeen),
	}, true
}

// FetchVoicemailPayload fetches the body of one message, decodes its
// first audio part and hands it to handler.
func (h *Helper) FetchVoicemailPayload(
	ctx context.Context, handler PayloadHandler, uid string,
) error {
	folder, err := h.openFolder(ctx, ModeReadWrite)
	if err != nil {
		return err
	}
	defer h.closeFolder(folder)

	raw, err := folder.FetchBody(ctx, uid)
	if err != nil {
		h.log.Error().Err(err).Str("uid", uid).Msg("fetching message body failed")
		return err
	}

	payload, err := extractAudio(raw)
	if err != nil {
		h.log.Error().Err(err).Str("uid", uid).Msg("extracting audio failed")
		return fmt.Errorf("voicemail %s: %w", uid, err)
	}
	h.log.Debug().Str("uid", uid).Int("bytes", len(payload.Data)).Msg("fetched voicemail payload")

	if err := handler(payload); err != nil {
		return fmt.Errorf("handling payload of %s: %w", uid, err)
	}
	return nil
}

// MarkMessagesAsRead sets \Seen on the given voicemails.
func (h *Helper) MarkMessagesAsRead(ctx context.Context, voicemails []model.Voicemail) source.Outcome {
	return h.setFlags(ctx, voicemails, imap.FlagSeen)
}

// MarkMessagesAsDeleted sets \Deleted on the given voicemails. They are
// expunged when the folder closes.
func (h *Helper) MarkMessagesAsDeleted(ctx context.Context, voicemails []model.Voicemail) source.Outcome {
	return h.setFlags(ctx, voicemails, imap.FlagDeleted)
}

func (h *Helper) setFlags(
	ctx context.Context, voicemails []model.Voicemail, flags ...imap.Flag,
) source.Outcome {
	if len(voicemails) == 0 {
		return source.OutcomeNoop
	}

	folder, err := h.openFolder(ctx, ModeReadWrite)
	if err != nil {
		return source.OutcomeFailure
	}
	defer h.closeFolder(folder)

	uids := make([]string, 0, len(voicemails))
	for _, vm := range voicemails {
		uids = append(uids, vm.SourceData)
	}

	if err := folder.SetFlags(ctx, uids, flags, true); err != nil {
		h.log.Error().Err(err).Strs("uids", uids).Msg("setting flags failed")
		return source.OutcomeFailure
	}
	return source.OutcomeSuccess
}

func (h *Helper) openFolder(ctx context.Context, mode FolderMode) (Folder, error) {
	if h.store == nil {
		return nil, fmt.Errorf("mailbox helper not initialized: %w", h.initErr)
	}
	folder, err := h.store.OpenFolder(ctx, Inbox, mode)
	if err != nil {
		h.log.Error().Err(err).Msg("opening inbox failed")
		return nil, fmt.Errorf("opening inbox: %w", err)
	}
	return folder, nil
}

func (h *Helper) closeFolder(folder Folder) {
	if err := folder.Close(true); err != nil {
		h.log.Warn().Err(err).Msg("closing inbox failed")
	}
}
