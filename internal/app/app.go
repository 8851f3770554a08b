// Package app assembles the vvmsync daemon: store, credentials,
// connectivity, retry alarms, the sync service and the poller.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/vvm-sync/internal/alarm"
	"github.com/nhle/vvm-sync/internal/connectivity"
	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/store"
	appsync "github.com/nhle/vvm-sync/internal/sync"
)

// App is the assembled daemon. The same App backs the long running
// daemon and the one-shot operator commands.
type App struct {
	cfg      *model.AppConfig
	log      *logger.Logger
	store    *store.SQLiteStore
	creds    *credential.Store
	accounts *appsync.AccountList
	alarms   *alarm.TimerScheduler
	service  *appsync.Service
	poller   *appsync.Poller
}

// Option customises New.
type Option func(*options)

type options struct {
	ring        keyring.Keyring
	network     connectivity.Manager
	serviceOpts []appsync.ServiceOption
}

// WithKeyring uses ring instead of the system keyring.
func WithKeyring(ring keyring.Keyring) Option {
	return func(o *options) { o.ring = ring }
}

// WithNetworkManager replaces the interface based network manager.
func WithNetworkManager(m connectivity.Manager) Option {
	return func(o *options) { o.network = m }
}

// WithServiceOptions passes options through to the sync service.
func WithServiceOptions(opts ...appsync.ServiceOption) Option {
	return func(o *options) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// New opens the store and the credential keyring and wires the sync
// service. Close must be called when done.
func New(cfg *model.AppConfig, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s, err := openStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	creds, err := openCredentials(o.ring)
	if err != nil {
		s.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		store:    s,
		creds:    creds,
		accounts: appsync.AccountsFromConfig(cfg.Accounts),
	}

	network := o.network
	if network == nil {
		network = connectivity.NewInterfaceManager(interfaceBindings(a.accounts.List()), log)
	}

	// Alarms fire into the service, which needs the scheduler itself.
	a.alarms = alarm.NewTimerScheduler(s, func(req model.SyncRequest) {
		a.service.Submit(req)
	}, log)

	a.service = appsync.NewService(appsync.ConfigFrom(cfg.Sync), appsync.Deps{
		Accounts:    a.accounts,
		Credentials: creds,
		State:       s,
		Voicemails:  s,
		Alarms:      a.alarms,
		Network:     network,
		Log:         log,
	}, o.serviceOpts...)

	a.poller = appsync.NewPoller(a.service, cfg.Sync.PollInterval, log)
	for _, account := range a.accounts.List() {
		a.poller.RegisterAccount(account)
	}

	return a, nil
}

func openStore(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return s, nil
}

func openCredentials(ring keyring.Keyring) (*credential.Store, error) {
	if ring != nil {
		return credential.NewStore(ring), nil
	}
	return credential.Open("")
}

// Close releases the store.
func (a *App) Close() error {
	a.alarms.Stop()
	return a.store.Close()
}

// Run runs the daemon until ctx is cancelled. Persisted retry alarms
// are re-armed and every account gets an initial full sync, subject to
// the full sync debounce. Each value received on refresh triggers an
// externally requested full sync.
func (a *App) Run(ctx context.Context, refresh <-chan struct{}) error {
	if len(a.accounts.List()) == 0 {
		a.log.Warn().Msg("no enabled accounts configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.service.Run(ctx)
	})

	if err := a.alarms.Start(ctx); err != nil {
		a.log.Error().Err(err).Msg("re-arming retry alarms failed")
	}
	a.poller.Start()

	// The startup sync must not supersede the alarms just re-armed.
	a.service.Submit(model.SyncRequest{Action: model.SyncFull})

	g.Go(func() error {
		defer a.poller.Stop()
		defer a.alarms.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-refresh:
				a.log.Info().Msg("refresh requested")
				a.service.Request(ctx, model.SyncFull, "")
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SyncOnce runs one externally triggered sync and waits for it to
// finish, including retries that run back to back. Retries owed after
// that are persisted for the daemon.
func (a *App) SyncOnce(ctx context.Context, action model.SyncAction, account string) error {
	if account != "" {
		if _, ok := a.accounts.Get(account); !ok {
			return fmt.Errorf("%w %q", appsync.ErrUnknownAccount, account)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.service.Run(runCtx) }()

	a.service.Request(ctx, action, account)
	waitErr := a.service.Wait(ctx)

	a.alarms.Stop()
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return waitErr
}
