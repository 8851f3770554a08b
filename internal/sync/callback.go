package sync

import (
	"context"
	gosync "sync"

	"github.com/nhle/vvm-sync/internal/connectivity"
	"github.com/nhle/vvm-sync/internal/model"
)

type callbackState int

const (
	callbackPending callbackState = iota
	callbackSyncing
	callbackDone
)

// networkCallback ties one network request to one sync. It only posts
// work; the retry loop never runs on the connectivity goroutine.
type networkCallback struct {
	svc     *Service
	account model.PhoneAccount
	action  model.SyncAction

	mu    gosync.Mutex
	state callbackState
}

var _ connectivity.Callback = (*networkCallback)(nil)

func newNetworkCallback(svc *Service, account model.PhoneAccount, action model.SyncAction) *networkCallback {
	return &networkCallback{svc: svc, account: account, action: action}
}

func (c *networkCallback) OnAvailable(n *connectivity.Network) {
	c.mu.Lock()
	if c.state != callbackPending {
		c.mu.Unlock()
		return
	}
	c.state = callbackSyncing
	c.mu.Unlock()

	c.svc.log.Debug().Str("account", c.account.ID).Str("network", n.String()).Msg("network available")
	c.svc.jobs.Push(syncJob{account: c.account, action: c.action, network: n, callback: c})
}

func (c *networkCallback) OnLost(n *connectivity.Network) {
	c.svc.log.Warn().Str("account", c.account.ID).Str("network", n.String()).Msg("network lost")
	c.abandon()
}

func (c *networkCallback) OnUnavailable() {
	c.svc.log.Warn().Str("account", c.account.ID).Msg("network unavailable")
	c.abandon()
}

// abandon releases the request. The lease is given back only when no
// sync started; a running sync releases it itself.
func (c *networkCallback) abandon() {
	c.svc.network.UnregisterNetworkCallback(c)

	c.mu.Lock()
	wasPending := c.state == callbackPending
	if wasPending {
		c.state = callbackDone
	}
	c.mu.Unlock()

	if wasPending {
		c.svc.releaseLease(c.account.ID)
	}
}

func (c *networkCallback) markDone() {
	c.mu.Lock()
	c.state = callbackDone
	c.mu.Unlock()
}

// waitCallback turns a network request into a blocking call.
type waitCallback struct {
	available chan *connectivity.Network
	failed    chan struct{}
}

func newWaitCallback() *waitCallback {
	return &waitCallback{
		available: make(chan *connectivity.Network, 1),
		failed:    make(chan struct{}, 1),
	}
}

func (c *waitCallback) OnAvailable(n *connectivity.Network) {
	select {
	case c.available <- n:
	default:
	}
}

func (c *waitCallback) OnLost(*connectivity.Network) { c.fail() }
func (c *waitCallback) OnUnavailable()               { c.fail() }

func (c *waitCallback) fail() {
	select {
	case c.failed <- struct{}{}:
	default:
	}
}

// acquireNetwork blocks until the account's network is up. The returned
// release func must be called when done.
func (s *Service) acquireNetwork(
	ctx context.Context, account model.PhoneAccount,
) (*connectivity.Network, func(), error) {
	if !account.RequiresNetworkRequest() {
		return nil, func() {}, nil
	}

	cb := newWaitCallback()
	release := func() { s.network.UnregisterNetworkCallback(cb) }
	s.network.RequestNetwork(
		connectivity.CellularRequest(account.NetworkSpecifier()), cb, s.cfg.NetworkRequestTimeout,
	)

	select {
	case n := <-cb.available:
		return n, release, nil
	case <-cb.failed:
		release()
		return nil, nil, ErrNetworkUnavailable
	case <-ctx.Done():
		release()
		return nil, nil, ctx.Err()
	}
}
