package useraccount

import (
	"github.com/d-kuro/useraccount/pkg/types"
)

// EventHandler receives events on a dedicated goroutine, in emission order.
// HandleEvent may call back into the Communication but must not call Close.
type EventHandler interface {
	HandleEvent(e types.Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(e types.Event)

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(e types.Event) {
	f(e)
}

// emit queues e for the dispatcher without blocking.
func (c *Communication) emit(e types.Event) {
	c.eventsMu.Lock()
	if c.eventsClosed {
		c.eventsMu.Unlock()
		c.log.WithField("event", e.Kind.String()).Debug("Event dropped during shutdown")
		return
	}
	c.pending = append(c.pending, e)
	c.eventsMu.Unlock()
	c.notifyDispatcher()
}

func (c *Communication) notifyDispatcher() {
	select {
	case c.eventsReady <- struct{}{}:
	default:
	}
}

// closeEvents lets the dispatcher deliver what is pending and exit.
func (c *Communication) closeEvents() {
	c.eventsMu.Lock()
	c.eventsClosed = true
	c.eventsMu.Unlock()
	c.notifyDispatcher()
}

func (c *Communication) dispatch() {
	defer close(c.dispatchDone)
	for range c.eventsReady {
		c.eventsMu.Lock()
		batch := c.pending
		c.pending = nil
		closed := c.eventsClosed
		c.eventsMu.Unlock()

		for _, e := range batch {
			c.handler.HandleEvent(e)
		}
		if closed {
			return
		}
	}
}
