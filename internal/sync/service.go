// Package sync drives visual voicemail synchronization: the
// reconciliation engine, the per-account sync orchestrator with its
// retry state machine, and the optional poller.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/vvm-sync/internal/alarm"
	"github.com/nhle/vvm-sync/internal/connectivity"
	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/source/mailbox"
	"github.com/nhle/vvm-sync/internal/store"
)

const (
	// attemptTimeout bounds one upload+download attempt.
	attemptTimeout = 5 * time.Minute

	// maxRetryInterval caps the backoff between retry alarms.
	maxRetryInterval = 24 * time.Hour
)

var (
	// ErrUnknownAccount is returned for accounts the daemon does not serve.
	ErrUnknownAccount = errors.New("unknown phone account")
	// ErrNotProvisioned is returned when an account has no usable
	// IMAP credentials.
	ErrNotProvisioned = errors.New("account not provisioned")
	// ErrNetworkUnavailable is returned when no network came up in time.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Adapter is a mailbox session factory result for one account.
type Adapter interface {
	Mailbox
	IsInitialized() bool
	FetchVoicemailPayload(ctx context.Context, handler mailbox.PayloadHandler, uid string) error
}

// AdapterFactory builds a fresh Adapter for an attempt.
type AdapterFactory func(
	account model.PhoneAccount, creds credential.Credentials, network *connectivity.Network,
) Adapter

// Accounts lists the phone accounts served by the daemon.
type Accounts interface {
	List() []model.PhoneAccount
	Get(id string) (model.PhoneAccount, bool)
}

// CredentialSource loads the IMAP credentials of an account.
type CredentialSource interface {
	Load(accountID string) (credential.Credentials, error)
}

// Config tunes the orchestrator.
type Config struct {
	NetworkRequestTimeout   time.Duration
	MinimumFullSyncInterval time.Duration
	RetryCount              int
	BaseRetryInterval       time.Duration

	// Workers is the number of goroutines running sync attempts.
	Workers int
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c model.SyncConfig) Config {
	return Config{
		NetworkRequestTimeout:   c.NetworkRequestTimeout,
		MinimumFullSyncInterval: c.MinimumFullSyncInterval,
		RetryCount:              c.RetryCount,
		BaseRetryInterval:       c.BaseRetryInterval,
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Accounts    Accounts
	Credentials CredentialSource
	State       store.AccountStateStore
	Voicemails  store.VoicemailStore
	Alarms      alarm.Scheduler
	Network     connectivity.Manager
	Log         *logger.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithAdapterFactory replaces the IMAP backed adapter.
func WithAdapterFactory(f AdapterFactory) ServiceOption {
	return func(s *Service) { s.newAdapter = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// syncJob is a sync attempt ready to run on a worker.
type syncJob struct {
	account  model.PhoneAccount
	action   model.SyncAction
	network  *connectivity.Network
	callback *networkCallback
}

// Service is the sync orchestrator. Requests are queued and handled one
// at a time by the intake goroutine, which checks the debounce rule,
// takes the account lease and asks for a network. Once the network is
// up the retry loop runs on a sync worker.
type Service struct {
	cfg        Config
	accounts   Accounts
	creds      CredentialSource
	state      store.AccountStateStore
	voicemails store.VoicemailStore
	alarms     alarm.Scheduler
	network    connectivity.Manager
	engine     *Engine
	newAdapter AdapterFactory
	now        func() time.Time
	log        *logger.Logger

	intents  *queue[model.SyncRequest]
	jobs     *queue[syncJob]
	leases   *leases
	activity *activity
}

// NewService creates a Service. Run must be called to process requests.
func NewService(cfg Config, deps Deps, opts ...ServiceOption) *Service {
	if cfg.RetryCount < 1 {
		cfg.RetryCount = model.DefaultRetryCount
	}
	if cfg.BaseRetryInterval <= 0 {
		cfg.BaseRetryInterval = model.DefaultBaseRetryInterval
	}
	if cfg.NetworkRequestTimeout <= 0 {
		cfg.NetworkRequestTimeout = model.DefaultNetworkRequestTimeout
	}
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}

	log := deps.Log.WithComponent("sync")
	s := &Service{
		cfg:        cfg,
		accounts:   deps.Accounts,
		creds:      deps.Credentials,
		state:      deps.State,
		voicemails: deps.Voicemails,
		alarms:     deps.Alarms,
		network:    deps.Network,
		engine:     NewEngine(deps.Voicemails, deps.Log),
		now:        time.Now,
		log:        log,
		intents:    newQueue[model.SyncRequest](),
		jobs:       newQueue[syncJob](),
		leases:     newLeases(),
		activity:   newActivity(),
	}
	s.newAdapter = func(
		account model.PhoneAccount, creds credential.Credentials, network *connectivity.Network,
	) Adapter {
		return mailbox.NewHelper(account, creds, network, deps.Log)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes requests until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.intakeLoop(ctx)
		return nil
	})
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			s.workerLoop(ctx)
			return nil
		})
	}

	s.log.Info().Int("workers", s.cfg.Workers).Msg("sync service started")
	err := g.Wait()
	s.log.Info().Msg("sync service stopped")
	return err
}

// Wait blocks until every queued request has been handled and no sync
// is in flight.
func (s *Service) Wait(ctx context.Context) error {
	return s.activity.wait(ctx)
}

// NewRequest builds a sync request. A first attempt resets the retry
// interval of the named account, or of every account when none is
// named. Pending retry alarms the request supersedes are cancelled.
func (s *Service) NewRequest(
	ctx context.Context, action model.SyncAction, account string, firstAttempt bool,
) model.SyncRequest {
	req := model.SyncRequest{Account: account, Action: action, FirstAttempt: firstAttempt}

	ids := []string{account}
	if account == "" {
		ids = ids[:0]
		for _, a := range s.accounts.List() {
			ids = append(ids, a.ID)
		}
	}

	for _, id := range ids {
		if firstAttempt {
			s.resetRetryInterval(ctx, id)
		}
		if err := s.alarms.Cancel(ctx, id, action); err != nil {
			s.log.Error().Err(err).Str("account", id).Msg("cancelling retry alarms failed")
		}
	}
	return req
}

// CancelAllRetries cancels every pending retry alarm of the account.
func (s *Service) CancelAllRetries(ctx context.Context, account string) {
	s.NewRequest(ctx, model.SyncFull, account, false)
}

// Submit queues a request for the intake goroutine. It never blocks.
func (s *Service) Submit(req model.SyncRequest) {
	s.activity.add()
	s.intents.Push(req)
	s.log.Debug().Stringer("request", req).Msg("sync requested")
}

// Request builds and submits an externally triggered sync.
func (s *Service) Request(ctx context.Context, action model.SyncAction, account string) {
	s.Submit(s.NewRequest(ctx, action, account, true))
}

func (s *Service) intakeLoop(ctx context.Context) {
	for {
		req, ok := s.intents.Pop(ctx)
		if !ok {
			return
		}
		s.handle(ctx, req)
		s.activity.done()
	}
}

func (s *Service) workerLoop(ctx context.Context) {
	for {
		job, ok := s.jobs.Pop(ctx)
		if !ok {
			return
		}
		s.doSync(ctx, job)
	}
}

// handle runs a request for its account, or for every account.
func (s *Service) handle(ctx context.Context, req model.SyncRequest) {
	if req.Account != "" {
		account, ok := s.accounts.Get(req.Account)
		if !ok {
			s.log.Warn().Str("account", req.Account).Msg("sync requested for unknown account")
			return
		}
		s.setupAndSendRequest(ctx, account, req.Action)
		return
	}

	s.log.Info().Str("action", string(req.Action)).Msg("sync requested for all accounts")
	for _, account := range s.accounts.List() {
		s.setupAndSendRequest(ctx, account, req.Action)
	}
}

// setupAndSendRequest checks whether the account may sync now, takes
// its lease and starts network acquisition.
func (s *Service) setupAndSendRequest(ctx context.Context, account model.PhoneAccount, action model.SyncAction) {
	log := s.log.WithAccount(account.ID)

	enabled, err := s.state.IsEnabled(ctx, account.ID)
	if err != nil {
		log.Error().Err(err).Msg("reading enabled flag failed")
		return
	}
	if !enabled {
		log.Info().Msg("sync requested for disabled account")
		return
	}

	now := s.now()
	if action == model.SyncFull {
		last, err := s.state.LastFullSync(ctx, account.ID)
		if err != nil {
			log.Error().Err(err).Msg("reading last full sync failed")
		} else if now.Sub(last) < s.cfg.MinimumFullSyncInterval {
			log.Info().Time("last_full_sync", last).Msg("avoiding duplicate full sync")
			return
		}
	}

	if !s.leases.acquire(account.ID, action) {
		log.Info().Str("action", string(action)).Msg("sync in flight, request coalesced")
		return
	}
	s.activity.add()

	if action == model.SyncFull {
		if err := s.state.SetLastFullSync(ctx, account.ID, now); err != nil {
			log.Error().Err(err).Msg("stamping last full sync failed")
		}
	}

	if !account.RequiresNetworkRequest() {
		log.Debug().Str("action", string(action)).Msg("syncing over the default network")
		s.jobs.Push(syncJob{account: account, action: action})
		return
	}

	cb := newNetworkCallback(s, account, action)
	log.Debug().Str("action", string(action)).Msg("requesting network")
	s.network.RequestNetwork(
		connectivity.CellularRequest(account.NetworkSpecifier()), cb, s.cfg.NetworkRequestTimeout,
	)
}

// doSync is the retry loop. Attempts run back to back; a failed
// direction is retried on its own. When attempts run out a retry alarm
// is scheduled with the account's backoff interval.
func (s *Service) doSync(ctx context.Context, job syncJob) {
	defer s.finish(job)

	account := job.account
	action := job.action
	log := s.log.WithAccount(account.ID)

	for retries := s.cfg.RetryCount; retries > 0; {
		if ctx.Err() != nil {
			return
		}

		adapter, err := s.adapterFor(account, job.network)
		if errors.Is(err, ErrNotProvisioned) {
			log.Warn().Err(err).Msg("can't retrieve IMAP credentials")
			s.resetRetryInterval(ctx, account.ID)
			return
		}

		uploadOK, downloadOK := true, true
		if err != nil {
			log.Warn().Err(err).Msg("reading credentials failed")
			uploadOK = !action.Uploads()
			downloadOK = !action.Downloads()
		} else {
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			if action.Uploads() {
				uploadOK = s.engine.Upload(attemptCtx, account.ID, adapter)
			}
			if action.Downloads() {
				downloadOK = s.engine.Download(attemptCtx, account.ID, adapter)
			}
			cancel()
		}

		log.Info().
			Str("action", string(action)).
			Bool("upload_ok", uploadOK).
			Bool("download_ok", downloadOK).
			Msg("sync attempt finished")

		// The account may have been disabled while waiting on the server.
		if (uploadOK && downloadOK) || !s.isEnabled(ctx, account.ID) {
			s.resetRetryInterval(ctx, account.ID)
			return
		}

		retries--
		action = action.Narrow(uploadOK, downloadOK)
		log.Warn().Str("action", string(action)).Int("retries_left", retries).Msg("retrying immediately")
	}

	s.setRetryAlarm(ctx, account.ID, action)
}

func (s *Service) adapterFor(account model.PhoneAccount, network *connectivity.Network) (Adapter, error) {
	creds, err := s.creds.Load(account.ID)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	adapter := s.newAdapter(account, creds, network)
	if !adapter.IsInitialized() {
		return nil, ErrNotProvisioned
	}
	return adapter, nil
}

func (s *Service) isEnabled(ctx context.Context, account string) bool {
	enabled, err := s.state.IsEnabled(ctx, account)
	if err != nil {
		s.log.Error().Err(err).Str("account", account).Msg("reading enabled flag failed")
		return true
	}
	return enabled
}

// setRetryAlarm schedules the retry at now plus the current interval
// and doubles the interval for the next failure.
func (s *Service) setRetryAlarm(ctx context.Context, account string, action model.SyncAction) {
	log := s.log.WithAccount(account)

	interval, err := s.state.RetryInterval(ctx, account)
	if err != nil {
		log.Error().Err(err).Msg("reading retry interval failed")
	}
	if interval <= 0 {
		interval = s.cfg.BaseRetryInterval
	}
	interval = min(interval, maxRetryInterval)

	at := s.now().Add(interval)
	req := model.SyncRequest{Account: account, Action: action}
	if err := s.alarms.Set(ctx, at, req); err != nil {
		log.Error().Err(err).Msg("setting retry alarm failed")
		return
	}
	log.Info().Str("action", string(action)).Dur("interval", interval).Msg("retry scheduled")

	if err := s.state.SetRetryInterval(ctx, account, min(interval*2, maxRetryInterval)); err != nil {
		log.Error().Err(err).Msg("storing retry interval failed")
	}
}

func (s *Service) resetRetryInterval(ctx context.Context, account string) {
	if err := s.state.SetRetryInterval(ctx, account, s.cfg.BaseRetryInterval); err != nil {
		s.log.Error().Err(err).Str("account", account).Msg("resetting retry interval failed")
	}
}

func (s *Service) releaseNetwork(job syncJob) {
	if job.callback != nil {
		s.network.UnregisterNetworkCallback(job.callback)
	}
}

// finish ends a sync: the network and the lease are released and a
// request coalesced meanwhile is queued.
func (s *Service) finish(job syncJob) {
	if job.callback != nil {
		job.callback.markDone()
	}
	s.releaseNetwork(job)
	s.releaseLease(job.account.ID)
}

func (s *Service) releaseLease(account string) {
	if pending, ok := s.leases.release(account); ok {
		s.log.Info().Str("account", account).Str("action", string(pending)).Msg("running coalesced sync")
		s.Submit(model.SyncRequest{Account: account, Action: pending})
	}
	s.activity.done()
}
