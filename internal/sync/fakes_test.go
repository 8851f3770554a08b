package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/model"
	"github.com/nhle/vvm-sync/internal/source"
	"github.com/nhle/vvm-sync/internal/source/mailbox"
)

var errServer = errors.New("connection reset by peer")

// fakeRemote is an in-memory mailbox. It implements Adapter.
type fakeRemote struct {
	mu       gosync.Mutex
	order    []string
	messages map[string]model.Voicemail
	payloads map[string]model.Payload

	fetchErr      error
	readOutcome   *source.Outcome
	deleteOutcome *source.Outcome
	block         chan struct{}
	onFetch       func()

	fetchCalls  int
	readCalls   int
	deleteCalls int
}

func newFakeRemote(vms ...model.Voicemail) *fakeRemote {
	r := &fakeRemote{
		messages: make(map[string]model.Voicemail),
		payloads: make(map[string]model.Payload),
	}
	for _, vm := range vms {
		r.put(vm)
	}
	return r
}

func (r *fakeRemote) put(vm model.Voicemail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[vm.SourceData]; !ok {
		r.order = append(r.order, vm.SourceData)
	}
	r.messages[vm.SourceData] = vm
}

func (r *fakeRemote) setFetchErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchErr = err
}

func (r *fakeRemote) calls() (fetch, read, deleted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchCalls, r.readCalls, r.deleteCalls
}

func (r *fakeRemote) get(uid string) (model.Voicemail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vm, ok := r.messages[uid]
	return vm, ok
}

func (r *fakeRemote) FetchAllVoicemails(ctx context.Context) ([]model.Voicemail, error) {
	r.mu.Lock()
	r.fetchCalls++
	block, onFetch := r.block, r.onFetch
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if onFetch != nil {
		onFetch()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := make([]model.Voicemail, 0, len(r.order))
	for _, uid := range r.order {
		if vm, ok := r.messages[uid]; ok {
			out = append(out, vm)
		}
	}
	return out, nil
}

func (r *fakeRemote) MarkMessagesAsRead(_ context.Context, vms []model.Voicemail) source.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readCalls++
	if len(vms) == 0 {
		return source.OutcomeNoop
	}
	if r.readOutcome != nil {
		return *r.readOutcome
	}
	for _, vm := range vms {
		if m, ok := r.messages[vm.SourceData]; ok {
			m.IsRead = true
			r.messages[vm.SourceData] = m
		}
	}
	return source.OutcomeSuccess
}

func (r *fakeRemote) MarkMessagesAsDeleted(_ context.Context, vms []model.Voicemail) source.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if len(vms) == 0 {
		return source.OutcomeNoop
	}
	if r.deleteOutcome != nil {
		return *r.deleteOutcome
	}
	// Deleted messages are expunged when the folder closes.
	for _, vm := range vms {
		delete(r.messages, vm.SourceData)
	}
	return source.OutcomeSuccess
}

func (r *fakeRemote) IsInitialized() bool { return true }

func (r *fakeRemote) FetchVoicemailPayload(
	_ context.Context, handler mailbox.PayloadHandler, uid string,
) error {
	r.mu.Lock()
	p, ok := r.payloads[uid]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("message UID %s not found", uid)
	}
	return handler(p)
}

func outcome(o source.Outcome) *source.Outcome { return &o }

// fakeCredentials serves fixed credentials, or fails while err is set.
type fakeCredentials struct {
	mu        gosync.Mutex
	byAccount map[string]credential.Credentials
	err       error
	loads     int
}

func (f *fakeCredentials) Load(accountID string) (credential.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return credential.Credentials{}, f.err
	}
	return f.byAccount[accountID], nil
}

func (f *fakeCredentials) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeCredentials) loadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu gosync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
