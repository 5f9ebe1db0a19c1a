package useraccount

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d-kuro/useraccount/pkg/session"
	"github.com/d-kuro/useraccount/pkg/types"
)

// fakeTimer is a Timer controlled by fakeScheduler.
type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

// fakeScheduler records scheduled callbacks; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimerHandle struct {
	s *fakeScheduler
	t *fakeTimer
}

func (h fakeTimerHandle) Stop() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	active := !h.t.stopped && !h.t.fired
	h.t.stopped = true
	return active
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return fakeTimerHandle{s: s, t: t}
}

// active returns the delays of the timers that neither fired nor were stopped
// and whose delay satisfies match.
func (s *fakeScheduler) active(match func(time.Duration) bool) []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.timers {
		if !t.stopped && !t.fired && match(t.delay) {
			out = append(out, t.delay)
		}
	}
	return out
}

// fire runs the first active timer whose delay satisfies match.
func (s *fakeScheduler) fire(t *testing.T, match func(time.Duration) bool) {
	t.Helper()
	s.mu.Lock()
	var target *fakeTimer
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired && match(timer.delay) {
			target = timer
			break
		}
	}
	if target != nil {
		target.fired = true
	}
	s.mu.Unlock()
	require.NotNil(t, target, "no active timer matches")
	target.f()
}

func isPoll(d time.Duration) bool    { return d == testPollInterval }
func isRefresh(d time.Duration) bool { return d != testPollInterval }

// fakeSession records the calls made by the worker.
type fakeSession struct {
	mu          sync.Mutex
	state       session.State
	hooks       session.Hooks
	initialized bool
	queue       []types.PendingAction
	executed    []types.ActionKind
	drains      int
	codes       []string
	verifiers   []string
	polling     types.ActionKind
	cleared     int
	// onDrain runs inside ProcessActionQueue without the mutex held.
	onDrain func(s *fakeSession)
}

func (f *fakeSession) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

func (f *fakeSession) EnqueueAction(kind types.ActionKind, onSuccess types.SuccessFunc, onFailure types.FailureFunc, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, types.PendingAction{Kind: kind, OnSuccess: onSuccess, OnFailure: onFailure, Payload: payload})
}

func (f *fakeSession) EnqueueRefresh(onSuccess types.SuccessFunc) {
	f.EnqueueAction(types.ActionRefresh, onSuccess, nil, "")
}

func (f *fakeSession) EnqueueTestWithRefresh() {
	f.EnqueueAction(types.ActionTestWithRefresh, nil, nil, "")
}

func (f *fakeSession) ProcessActionQueue(ctx context.Context) {
	f.mu.Lock()
	f.drains++
	for _, a := range f.queue {
		f.executed = append(f.executed, a.Kind)
	}
	f.queue = nil
	onDrain := f.onDrain
	f.mu.Unlock()

	if onDrain != nil {
		onDrain(f)
	}
}

func (f *fakeSession) InitWithCode(code, verifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	f.codes = append(f.codes, code)
	f.verifiers = append(f.verifiers, verifier)
	f.queue = append([]types.PendingAction{{Kind: types.ActionCodeExchange, Payload: code}}, f.queue...)
}

func (f *fakeSession) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.initialized = false
	f.state.AccessToken = ""
	f.state.RefreshToken = ""
	f.state.SharedSessionKey = ""
	f.state.Expiry = time.Time{}
	f.queue = nil
}

func (f *fakeSession) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.AccessToken
}

func (f *fakeSession) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.RefreshToken
}

func (f *fakeSession) SharedSessionKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.SharedSessionKey
}

func (f *fakeSession) NextTokenTimeout() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Expiry.IsZero() {
		return 0
	}
	return f.state.Expiry.Unix()
}

func (f *fakeSession) SetPollingAction(kind types.ActionKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polling = kind
}

// setTokens simulates a token acquisition inside a drain.
func (f *fakeSession) setTokens(access, refresh, key string, expiry time.Time) {
	f.mu.Lock()
	f.initialized = true
	f.state.AccessToken = access
	f.state.RefreshToken = refresh
	f.state.SharedSessionKey = key
	f.state.Expiry = expiry
	hooks := f.hooks
	f.mu.Unlock()

	if hooks.OnTokens != nil {
		hooks.OnTokens(time.Until(expiry))
	}
}

func (f *fakeSession) snapshot() (drains int, executed []types.ActionKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drains, append([]types.ActionKind(nil), f.executed...)
}

func (f *fakeSession) pollingAction() types.ActionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polling
}

func (f *fakeSession) factory() NewSessionFunc {
	return func(cfg *Config, state session.State, hooks session.Hooks) Session {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state = state
		f.hooks = hooks
		f.initialized = state.AccessToken != "" || state.RefreshToken != ""
		if state.PollingEnabled {
			f.polling = types.ActionConnectPrinterModels
		}
		return f
	}
}
