package session

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/d-kuro/useraccount/pkg/types"
)

var (
	// ErrNotLoggedIn is returned by actions that need a token when none is held.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrEmptyCode is returned when a redirect carried no authorization code.
	ErrEmptyCode = errors.New("empty authorization code")
)

// Error represents a failed session action.
type Error struct {
	Op         types.ActionKind // The action that failed
	Message    string           // Human-readable error message
	StatusCode int              // HTTP status, 0 if no response was received
	Err        error            // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("session %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// isRejected reports whether the provider refused the grant itself,
// as opposed to a transport failure worth retrying later.
func isRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	return re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}
