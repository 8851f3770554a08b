package sync

import (
	gosync "sync"

	"github.com/nhle/vvm-sync/internal/model"
)

// leases grants at most one in-flight sync per account. A request for an
// account that is already syncing is folded into a single pending action
// that runs once the lease is released.
type leases struct {
	mu      gosync.Mutex
	held    map[string]bool
	pending map[string]model.SyncAction
}

func newLeases() *leases {
	return &leases{
		held:    make(map[string]bool),
		pending: make(map[string]model.SyncAction),
	}
}

// acquire takes the lease of account. When it is already held, action is
// merged into the pending action and false is returned.
func (l *leases) acquire(account string, action model.SyncAction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[account] {
		l.pending[account] = l.pending[account].Union(action)
		return false
	}
	l.held[account] = true
	return true
}

// release gives the lease back and returns the coalesced action that
// arrived meanwhile, if any.
func (l *leases) release(account string) (model.SyncAction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, account)
	action, ok := l.pending[account]
	delete(l.pending, account)
	return action, ok
}

func (l *leases) isHeld(account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[account]
}
