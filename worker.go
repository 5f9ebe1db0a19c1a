package useraccount

import (
	"time"
)

// command is a message to the worker. apply runs on the worker goroutine
// and reports whether the action queue must be drained. A poll command only
// drains while the window is active.
type command struct {
	apply func() bool
	poll  bool
}

// post hands cmd to the worker. It returns false once the worker is stopping.
func (c *Communication) post(cmd command) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.inbox <- cmd:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// run is the worker loop: wait, check stop, apply commands, drain if woken.
// Every message buffered at wakeup is applied before the single drain, so
// concurrent wakeups coalesce.
func (c *Communication) run() {
	defer close(c.done)

	safety := time.NewTimer(c.cfg.WakeupTimeout)
	defer safety.Stop()

	for {
		var batch []command
		select {
		case <-c.ctx.Done():
			return
		case cmd := <-c.inbox:
			batch = append(batch, cmd)
		case <-safety.C:
			batch = append(batch, command{poll: true})
		}
		batch = c.collect(batch)
		safety.Reset(c.cfg.WakeupTimeout)

		wakeup, poll := false, false
		for _, cmd := range batch {
			if c.ctx.Err() != nil {
				return
			}
			if cmd.apply != nil && cmd.apply() {
				wakeup = true
			}
			poll = poll || cmd.poll
		}

		if c.ctx.Err() != nil {
			return
		}
		if !wakeup && !(poll && c.windowActive.Load()) {
			c.publish()
			continue
		}

		c.sess.ProcessActionQueue(c.ctx)
		c.publish()
	}
}

// collect appends every command already waiting in the inbox.
func (c *Communication) collect(batch []command) []command {
	for {
		select {
		case cmd := <-c.inbox:
			batch = append(batch, cmd)
		default:
			return batch
		}
	}
}
