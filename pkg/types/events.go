package types

// EventKind identifies an event delivered to the GUI layer.
type EventKind int

const (
	// EventOpenAuthURL asks the host to open URL in a browser.
	EventOpenAuthURL EventKind = iota + 1
	EventLoginSucceeded
	EventLoggedOut
	// EventActionSucceeded carries Action and Data of a finished action
	// that had no success callback of its own.
	EventActionSucceeded
	// EventActionFailed carries Action and Err.
	EventActionFailed
	// EventSessionReset reports that the provider rejected the refresh token
	// and the in-memory session was cleared.
	EventSessionReset
)

func (k EventKind) String() string {
	switch k {
	case EventOpenAuthURL:
		return "open_auth_url"
	case EventLoginSucceeded:
		return "login_succeeded"
	case EventLoggedOut:
		return "logged_out"
	case EventActionSucceeded:
		return "action_succeeded"
	case EventActionFailed:
		return "action_failed"
	case EventSessionReset:
		return "session_reset"
	default:
		return "unknown"
	}
}

// Event is the only output of the orchestrator towards the GUI layer.
type Event struct {
	Kind     EventKind
	URL      string
	Username string
	Action   ActionKind
	Data     []byte
	Err      error
}
