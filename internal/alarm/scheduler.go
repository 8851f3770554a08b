// Package alarm schedules one-shot retry wakes for sync requests. Alarms
// are persisted so a restarted daemon re-arms the retries it owed.
package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
)

//go:generate mockgen -source=scheduler.go -destination=../mock/alarm_mock.go -package=mock

// Scheduler sets and cancels retry alarms. At most one alarm exists per
// account and action; setting it again moves it.
type Scheduler interface {
	Set(ctx context.Context, at time.Time, req model.SyncRequest) error
	// Cancel removes the alarm of the account and action. Cancelling a
	// full sync alarm also cancels the directional alarms of the account.
	Cancel(ctx context.Context, account string, action model.SyncAction) error
}

// Store persists alarms.
type Store interface {
	SaveAlarm(ctx context.Context, alarm model.RetryAlarm) error
	DeleteAlarm(ctx context.Context, account string, action model.SyncAction) error
	ListAlarms(ctx context.Context) ([]model.RetryAlarm, error)
}

// FireFunc receives the request of an alarm that went off.
type FireFunc func(req model.SyncRequest)

type alarmKey struct {
	account string
	action  model.SyncAction
}

type armedAlarm struct {
	alarm model.RetryAlarm
	timer *time.Timer
}

// TimerScheduler runs alarms on in-process timers backed by a Store.
type TimerScheduler struct {
	store Store
	fire  FireFunc
	log   *logger.Logger
	now   func() time.Time

	mu      sync.Mutex
	timers  map[alarmKey]*armedAlarm
	stopped bool
}

var _ Scheduler = (*TimerScheduler)(nil)

// NewTimerScheduler creates a scheduler that calls fire when an alarm
// goes off. fire runs on a timer goroutine.
func NewTimerScheduler(store Store, fire FireFunc, log *logger.Logger) *TimerScheduler {
	return &TimerScheduler{
		store:  store,
		fire:   fire,
		log:    log.WithComponent("alarm"),
		now:    time.Now,
		timers: make(map[alarmKey]*armedAlarm),
	}
}

// Start re-arms every persisted alarm. Alarms already due fire at once.
func (s *TimerScheduler) Start(ctx context.Context) error {
	alarms, err := s.store.ListAlarms(ctx)
	if err != nil {
		return fmt.Errorf("loading alarms: %w", err)
	}

	for _, a := range alarms {
		s.arm(a)
	}
	if len(alarms) > 0 {
		s.log.Info().Int("alarms", len(alarms)).Msg("re-armed persisted alarms")
	}
	return nil
}

// Stop cancels every timer without touching the persisted alarms.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, key)
	}
}

// Set implements Scheduler.
func (s *TimerScheduler) Set(ctx context.Context, at time.Time, req model.SyncRequest) error {
	if req.Account == "" {
		return fmt.Errorf("alarm needs an account")
	}

	a := model.RetryAlarm{Account: req.Account, Action: req.Action, FireAt: at}
	if err := s.store.SaveAlarm(ctx, a); err != nil {
		return err
	}
	s.arm(a)

	s.log.Info().
		Str("account", req.Account).
		Str("action", string(req.Action)).
		Time("fire_at", at).
		Msg("retry alarm set")
	return nil
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(ctx context.Context, account string, action model.SyncAction) error {
	actions := []model.SyncAction{action}
	if action == model.SyncFull {
		actions = append(actions, model.SyncUploadOnly, model.SyncDownloadOnly)
	}

	for _, act := range actions {
		s.disarm(alarmKey{account: account, action: act})
		if err := s.store.DeleteAlarm(ctx, account, act); err != nil {
			return err
		}
	}

	s.log.Debug().Str("account", account).Str("action", string(action)).Msg("retry alarm cancelled")
	return nil
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *TimerScheduler) arm(a model.RetryAlarm) {
	key := alarmKey{account: a.Account, action: a.Action}
	delay := a.FireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}

	armed := &armedAlarm{alarm: a}
	armed.timer = time.AfterFunc(delay, func() { s.onFire(key, armed) })
	s.timers[key] = armed
}

func (s *TimerScheduler) disarm(key alarmKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if armed, ok := s.timers[key]; ok {
		armed.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *TimerScheduler) onFire(key alarmKey, armed *armedAlarm) {
	s.mu.Lock()
	current, ok := s.timers[key]
	if !ok || current != armed {
		// Moved or cancelled after the timer went off.
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	a := armed.alarm
	if err := s.store.DeleteAlarm(context.Background(), a.Account, a.Action); err != nil {
		s.log.Error().Err(err).Str("account", a.Account).Msg("removing fired alarm failed")
	}

	s.log.Info().Str("account", a.Account).Str("action", string(a.Action)).Msg("retry alarm fired")
	s.fire(a.Request())
}
