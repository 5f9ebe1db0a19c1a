// Package useraccount orchestrates an OAuth2 authorization code + PKCE
// account session for a desktop application.
//
// A single worker goroutine owns the session: it applies every command sent
// by callers, timers and the redirect handler, and drains the session's
// action queue when woken. Token refresh is scheduled ahead of expiry and a
// polling timer nudges the worker while the host window is active.
//
// Example usage:
//
//	comm, err := useraccount.NewCommunication(
//		useraccount.EventHandlerFunc(func(e types.Event) {
//			if e.Kind == types.EventOpenAuthURL {
//				_ = browser.Open(e.URL)
//			}
//		}),
//		useraccount.WithClientID(clientID),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer comm.Close()
//
//	comm.DoLogin()
//	// later, when the OS delivers prusaslicer://login?code=...
//	comm.OnLoginCodeReceived(callbackURL)
package useraccount

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d-kuro/useraccount/pkg/constants"
	"github.com/d-kuro/useraccount/pkg/pkce"
	"github.com/d-kuro/useraccount/pkg/session"
	"github.com/d-kuro/useraccount/pkg/storage"
	"github.com/d-kuro/useraccount/pkg/tokencache"
	"github.com/d-kuro/useraccount/pkg/types"
)

// Communication is the account session orchestrator.
type Communication struct {
	cfg     *Config
	log     logrus.FieldLogger
	cache   *tokencache.Cache
	sched   Scheduler
	pkce    *pkce.Generator
	handler EventHandler

	ctx          context.Context
	cancel       context.CancelFunc
	inbox        chan command
	done         chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once

	eventsMu     sync.Mutex
	pending      []types.Event
	eventsClosed bool
	eventsReady  chan struct{}

	windowActive atomic.Bool
	state        atomic.Pointer[snapshot]

	pollMu    sync.Mutex
	pollTimer Timer

	// Owned by the worker goroutine.
	sess         Session
	username     string
	remember     bool
	codeVerifier string
	refreshTimer Timer
}

// snapshot is the read-only view published by the worker.
type snapshot struct {
	username    string
	accessToken string
	sharedKey   string
}

// NewCommunication restores any persisted session, starts the worker and the
// polling timer, and resumes the session when a refresh token was recovered.
func NewCommunication(handler EventHandler, opts ...ConfigOption) (*Communication, error) {
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newCommunication(cfg, handler)
}

// NewCommunicationWithConfig is NewCommunication for an already built Config.
func NewCommunicationWithConfig(cfg *Config, handler EventHandler) (*Communication, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newCommunication(cfg, handler)
}

func newCommunication(cfg *Config, handler EventHandler) (*Communication, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = realScheduler{}
	}
	if cfg.PKCE == nil {
		cfg.PKCE = pkce.New(pkce.WithLogger(cfg.Logger))
	}
	if cfg.NewSession == nil {
		cfg.NewSession = newDefaultSession
	}
	if handler == nil {
		handler = EventHandlerFunc(func(types.Event) {})
	}

	store := cfg.SecretStore
	if store == nil {
		var err error
		store, err = storage.New(cfg.Store, cfg.AppName, cfg.StoreDir)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Communication{
		cfg:          cfg,
		log:          cfg.Logger.WithField("component", "useraccount"),
		cache:        tokencache.New(store, cfg.Logger),
		sched:        cfg.Scheduler,
		pkce:         cfg.PKCE,
		handler:      handler,
		ctx:          ctx,
		cancel:       cancel,
		inbox:        make(chan command, constants.InboxSize),
		eventsReady:  make(chan struct{}, 1),
		done:         make(chan struct{}),
		dispatchDone: make(chan struct{}),
		remember:     cfg.RememberSession,
	}

	bundle, _ := c.cache.Load()
	remaining := bundle.ExpiresIn(time.Now())
	if remaining <= 0 {
		bundle.AccessToken = ""
	} else {
		c.setRefreshTime(int64(remaining / time.Second))
	}

	c.sess = cfg.NewSession(cfg, session.State{
		AccessToken:      bundle.AccessToken,
		RefreshToken:     bundle.RefreshToken,
		SharedSessionKey: bundle.SharedSessionKey,
		Expiry:           bundle.Expiry,
		PollingEnabled:   cfg.PollingEnabled,
	}, c.sessionHooks())
	c.publish()

	go c.dispatch()
	go c.run()
	c.schedulePoll()

	if bundle.HasRefreshToken() {
		c.DoLogin()
	}
	return c, nil
}

// Close stops both timers and the worker and waits for them. Actions still
// queued are dropped. Close is idempotent.
func (c *Communication) Close() {
	c.closeOnce.Do(func() {
		c.stopPolling()
		c.cancel()
		<-c.done
		c.stopRefreshTimer()
		c.closeEvents()
		<-c.dispatchDone
	})
}

// DoLogin starts the browser redirect when no session exists, otherwise it
// validates the current token, refreshing it if stale.
func (c *Communication) DoLogin() {
	c.post(command{apply: func() bool {
		if !c.sess.IsInitialized() {
			c.loginRedirect()
		} else {
			c.sess.EnqueueTestWithRefresh()
		}
		return true
	}})
}

// DoLogout clears the session and emits EventLoggedOut.
func (c *Communication) DoLogout() {
	c.post(command{apply: func() bool {
		c.clear()
		c.emit(types.Event{Kind: types.EventLoggedOut})
		return false
	}})
}

// DoClear clears the session without emitting an event.
func (c *Communication) DoClear() {
	c.post(command{apply: func() bool {
		c.clear()
		return false
	}})
}

// OnLoginCodeReceived hands the code found in a redirect payload, together
// with the verifier of the pending redirect, to the session.
func (c *Communication) OnLoginCodeReceived(message string) {
	c.post(command{apply: func() bool {
		code := CodeFromMessage(message)
		if code == "" {
			c.log.Warn("Redirect payload carried no authorization code")
		}
		c.sess.InitWithCode(code, c.codeVerifier)
		c.codeVerifier = ""
		return true
	}})
}

// EnqueueConnectPrinterModels queues a fetch of the user's printer models.
func (c *Communication) EnqueueConnectPrinterModels() {
	c.enqueueGuarded(types.ActionConnectPrinterModels, func() {
		c.sess.EnqueueAction(types.ActionConnectPrinterModels, nil, nil, "")
	})
}

// EnqueueConnectStatus queues a fetch of the printers' status.
func (c *Communication) EnqueueConnectStatus() {
	c.enqueueGuarded(types.ActionConnectStatus, func() {
		c.sess.EnqueueAction(types.ActionConnectStatus, nil, nil, "")
	})
}

// EnqueueTestConnection queues a token validation.
func (c *Communication) EnqueueTestConnection() {
	c.enqueueGuarded(types.ActionTestWithRefresh, c.sess.EnqueueTestWithRefresh)
}

// EnqueueAvatar queues a download of the avatar at url.
func (c *Communication) EnqueueAvatar(url string) {
	c.enqueueGuarded(types.ActionAvatar, func() {
		c.sess.EnqueueAction(types.ActionAvatar, nil, nil, url)
	})
}

// EnqueuePrinterData queues a fetch of the printer identified by uuid.
func (c *Communication) EnqueuePrinterData(uuid string) {
	c.enqueueGuarded(types.ActionDataByID, func() {
		c.sess.EnqueueAction(types.ActionDataByID, nil, nil, uuid)
	})
}

// EnqueueRefresh queues a token refresh.
func (c *Communication) EnqueueRefresh() {
	c.enqueueGuarded(types.ActionRefresh, func() {
		c.sess.EnqueueRefresh(nil)
	})
}

// EnqueueAction queues kind with callbacks. The callbacks run on the worker goroutine.
func (c *Communication) EnqueueAction(kind types.ActionKind, onSuccess types.SuccessFunc, onFailure types.FailureFunc, payload string) {
	c.enqueueGuarded(kind, func() {
		c.sess.EnqueueAction(kind, onSuccess, onFailure, payload)
	})
}

// enqueueGuarded runs enqueue on the worker if the session is initialized;
// otherwise the request is logged and dropped without waking the worker.
func (c *Communication) enqueueGuarded(kind types.ActionKind, enqueue func()) {
	c.post(command{apply: func() bool {
		if !c.sess.IsInitialized() {
			c.log.WithField("action", kind.String()).Error("Action dropped - Not logged in")
			return false
		}
		enqueue()
		return true
	}})
}

// SetUsername records the authenticated identity and re-persists the tokens.
func (c *Communication) SetUsername(username string) {
	c.post(command{apply: func() bool {
		c.setUsername(username)
		return false
	}})
}

// SetRememberSession toggles token persistence and stores or forgets the tokens accordingly.
func (c *Communication) SetRememberSession(remember bool) {
	c.post(command{apply: func() bool {
		c.remember = remember
		c.setUsername(c.username)
		return false
	}})
}

// SetPollingEnabled selects printer model polling, or no polling.
func (c *Communication) SetPollingEnabled(enabled bool) {
	c.post(command{apply: func() bool {
		if enabled {
			c.sess.SetPollingAction(types.ActionConnectPrinterModels)
		} else {
			c.sess.SetPollingAction(types.ActionDummy)
		}
		return false
	}})
}

// OnUUIDMapSuccess switches polling to printer status once printers are known.
func (c *Communication) OnUUIDMapSuccess() {
	c.post(command{apply: func() bool {
		c.sess.SetPollingAction(types.ActionConnectStatus)
		return false
	}})
}

// OnActivateWindow records whether the host window has focus.
func (c *Communication) OnActivateWindow(active bool) {
	c.windowActive.Store(active)
}

// WakeupSessionThread asks the worker to drain the action queue regardless of window focus.
func (c *Communication) WakeupSessionThread() {
	c.post(command{apply: func() bool { return true }})
}

// IsLogged reports whether an identity is known.
func (c *Communication) IsLogged() bool {
	return c.state.Load().username != ""
}

// Username returns the authenticated identity, "" when logged out.
func (c *Communication) Username() string {
	return c.state.Load().username
}

// AccessToken returns the current access token.
func (c *Communication) AccessToken() string {
	return c.state.Load().accessToken
}

// SharedSessionKey returns the key shared by the access and refresh token.
func (c *Communication) SharedSessionKey() string {
	return c.state.Load().sharedKey
}

// loginRedirect emits the authorization URL for a fresh verifier. A redirect
// is never emitted without a valid challenge.
func (c *Communication) loginRedirect() {
	pair, err := c.pkce.Generate()
	if err != nil {
		c.log.WithError(err).Error("Login redirect aborted")
		return
	}
	c.codeVerifier = pair.Verifier
	c.log.WithField("code_challenge", pair.Challenge).Debug("Generated PKCE challenge")

	c.emit(types.Event{Kind: types.EventOpenAuthURL, URL: c.cfg.AuthorizationURL(pair.Challenge)})
}

func (c *Communication) clear() {
	c.sess.Clear()
	c.codeVerifier = ""
	c.setUsername("")
	c.stopRefreshTimer()
}

// setUsername is the only place tokens are written to the secret store.
func (c *Communication) setUsername(username string) {
	c.username = username
	defer c.publish()

	if !c.cache.Available() {
		return
	}
	var value string
	if c.remember {
		value = tokencache.Format(c.sess.AccessToken(), c.sess.RefreshToken(), c.sess.NextTokenTimeout())
	}
	if err := c.cache.Save(c.sess.SharedSessionKey(), value); err != nil {
		c.log.WithError(err).Warn("Tokens were not persisted")
	}
}

func (c *Communication) sessionHooks() session.Hooks {
	return session.Hooks{
		OnTokens: func(expiresIn time.Duration) {
			c.setRefreshTime(int64(expiresIn / time.Second))
			c.setUsername(c.username)
		},
		OnUsername: func(username string) {
			c.setUsername(username)
			c.emit(types.Event{Kind: types.EventLoginSucceeded, Username: username})
		},
		OnSuccess: func(kind types.ActionKind, body []byte) {
			c.emit(types.Event{Kind: types.EventActionSucceeded, Action: kind, Data: body})
		},
		OnFailure: func(kind types.ActionKind, err error) {
			c.emit(types.Event{Kind: types.EventActionFailed, Action: kind, Err: err})
		},
		OnReset: func() {
			c.stopRefreshTimer()
			c.setUsername("")
			c.emit(types.Event{Kind: types.EventSessionReset})
		},
	}
}

func (c *Communication) publish() {
	c.state.Store(&snapshot{
		username:    c.username,
		accessToken: c.sess.AccessToken(),
		sharedKey:   c.sess.SharedSessionKey(),
	})
}
