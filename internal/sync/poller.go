package sync

import (
	gosync "sync"
	"time"

	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
)

// Submitter accepts sync requests.
type Submitter interface {
	Submit(req model.SyncRequest)
}

// Poller periodically requests a full sync of every registered account.
// Polls are not first attempts: they go through the debounce rule and
// leave the backoff interval alone.
type Poller struct {
	submit   Submitter
	interval time.Duration
	log      *logger.Logger

	mu       gosync.Mutex
	accounts []model.PhoneAccount
	stopCh   chan struct{}
	wg       gosync.WaitGroup
	running  bool
}

// NewPoller creates a poller submitting to submit every interval.
func NewPoller(submit Submitter, interval time.Duration, log *logger.Logger) *Poller {
	return &Poller{
		submit:   submit,
		interval: interval,
		log:      log.WithComponent("poller"),
		stopCh:   make(chan struct{}),
	}
}

// RegisterAccount adds an account to poll. Accounts registered after
// Start are not polled.
func (p *Poller) RegisterAccount(account model.PhoneAccount) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accounts = append(p.accounts, account)
}

// Start launches a polling goroutine per account. It is a no-op when
// the interval is not positive or the poller already runs.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.interval <= 0 {
		return
	}
	p.running = true

	for _, account := range p.accounts {
		p.wg.Add(1)
		go p.pollAccount(account)
	}
	p.log.Info().Dur("interval", p.interval).Int("accounts", len(p.accounts)).Msg("poller started")
}

// Stop halts all polling goroutines and waits for them.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// pollAccount runs the polling loop for a single account.
func (p *Poller) pollAccount(account model.PhoneAccount) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.log.Debug().Str("account", account.ID).Msg("polling")
			p.submit.Submit(model.SyncRequest{Account: account.ID, Action: model.SyncFull})
		}
	}
}
