package cmd

import (
	"context"
	"fmt"

	"github.com/d-kuro/useraccount"
	"github.com/d-kuro/useraccount/pkg/types"
)

// client couples a Communication with the channel its events arrive on.
type client struct {
	comm   *useraccount.Communication
	events chan types.Event
}

func newClient(cfg *useraccount.Config) (*client, error) {
	events := make(chan types.Event, 16)
	comm, err := useraccount.NewCommunicationWithConfig(cfg, useraccount.EventHandlerFunc(func(e types.Event) {
		select {
		case events <- e:
		default:
			cfg.Logger.WithField("event", e.Kind.String()).Debug("Event dropped, nobody is waiting")
		}
	}))
	if err != nil {
		return nil, err
	}
	return &client{comm: comm, events: events}, nil
}

func (c *client) Close() {
	c.comm.Close()
}

// await returns the first event accepted by match. Session resets and
// failed actions end the wait with an error.
func (c *client) await(ctx context.Context, match func(types.Event) bool) (types.Event, error) {
	for {
		select {
		case e := <-c.events:
			if match(e) {
				return e, nil
			}
			switch e.Kind {
			case types.EventSessionReset:
				return e, fmt.Errorf("session was reset by the account server, log in again")
			case types.EventActionFailed:
				return e, fmt.Errorf("%s failed: %w", e.Action, e.Err)
			}
		case <-ctx.Done():
			return types.Event{}, ctx.Err()
		}
	}
}

func kindIs(kind types.EventKind) func(types.Event) bool {
	return func(e types.Event) bool { return e.Kind == kind }
}
