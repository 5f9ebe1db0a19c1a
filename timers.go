package useraccount

import (
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped it
	// before it fired.
	Stop() bool
}

// Scheduler runs f once after d on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RefreshDelay returns how long to wait before refreshing a token that
// expires in secondsUntilExpiry: the remaining lifetime minus margin, but
// never less than floor.
func RefreshDelay(secondsUntilExpiry int64, margin, floor time.Duration) time.Duration {
	delay := time.Duration(secondsUntilExpiry)*time.Second - margin
	if delay < floor {
		return floor
	}
	return delay
}

// setRefreshTime replaces the pending refresh timer. Worker goroutine only.
func (c *Communication) setRefreshTime(secondsUntilExpiry int64) {
	c.stopRefreshTimer()
	delay := RefreshDelay(secondsUntilExpiry, c.cfg.RefreshMargin, c.cfg.RefreshFloor)
	c.log.WithField("delay", delay).Debug("Scheduling token refresh")
	c.refreshTimer = c.sched.AfterFunc(delay, c.EnqueueRefresh)
}

func (c *Communication) stopRefreshTimer() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

func (c *Communication) schedulePoll() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.ctx.Err() != nil {
		return
	}
	c.pollTimer = c.sched.AfterFunc(c.cfg.PollInterval, c.onPollTimer)
}

// onPollTimer nudges the worker while the window is active and rearms itself.
func (c *Communication) onPollTimer() {
	if c.ctx.Err() != nil {
		return
	}
	if c.windowActive.Load() {
		c.post(command{poll: true})
	}
	c.schedulePoll()
}

func (c *Communication) stopPolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
}
