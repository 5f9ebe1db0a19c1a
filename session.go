package useraccount

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/d-kuro/useraccount/pkg/session"
	"github.com/d-kuro/useraccount/pkg/types"
)

// Session is the token state and action queue the orchestrator serializes.
// Implementations need not be safe for concurrent use: only the worker
// goroutine calls them.
type Session interface {
	IsInitialized() bool
	EnqueueAction(kind types.ActionKind, onSuccess types.SuccessFunc, onFailure types.FailureFunc, payload string)
	EnqueueRefresh(onSuccess types.SuccessFunc)
	EnqueueTestWithRefresh()
	ProcessActionQueue(ctx context.Context)
	InitWithCode(code, verifier string)
	Clear()
	AccessToken() string
	RefreshToken() string
	SharedSessionKey() string
	NextTokenTimeout() int64
	SetPollingAction(kind types.ActionKind)
}

var _ Session = (*session.Session)(nil)

// NewSessionFunc builds the Session from the recovered state. hooks must be
// invoked from within ProcessActionQueue only.
type NewSessionFunc func(cfg *Config, state session.State, hooks session.Hooks) Session

func newDefaultSession(cfg *Config, state session.State, hooks session.Hooks) Session {
	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.HTTPTimeout)
	}

	return session.New(session.Config{
		ClientID:    cfg.ClientID,
		AuthURL:     cfg.authorizeURL(),
		TokenURL:    cfg.tokenURL(),
		RedirectURI: cfg.RedirectURI,
		Scopes:      []string{cfg.Scope},
		UserInfoURL: cfg.userInfoURL(),
		ConnectURL:  cfg.ConnectHost,
		HTTPClient:  client,
		Logger:      cfg.Logger,
		// At most one polling request per half interval.
		PollLimiter: rate.NewLimiter(rate.Every(cfg.PollInterval/2), 1),
	}, state, hooks)
}
