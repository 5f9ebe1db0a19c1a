// Package session holds the account token state and the FIFO queue of
// pending account actions. A Session is not safe for concurrent use: it is
// owned by exactly one worker goroutine which mutates and drains it.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/d-kuro/useraccount/pkg/constants"
	"github.com/d-kuro/useraccount/pkg/types"
)

// Config holds the endpoints and collaborators of a Session.
type Config struct {
	ClientID    string
	AuthURL     string
	TokenURL    string
	RedirectURI string
	Scopes      []string
	UserInfoURL string
	ConnectURL  string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	// PollLimiter throttles how often the polling action is queued. Nil disables throttling.
	PollLimiter *rate.Limiter
	// Now is the clock used for expiry computations; time.Now when nil.
	Now func() time.Time
}

// State is the token state a Session starts from.
type State struct {
	AccessToken      string
	RefreshToken     string
	SharedSessionKey string
	Expiry           time.Time
	PollingEnabled   bool
}

// Hooks are invoked synchronously from ProcessActionQueue.
type Hooks struct {
	// OnTokens runs after every successful code exchange or refresh.
	OnTokens func(expiresIn time.Duration)
	// OnUsername runs when the identity of the token owner is known.
	OnUsername func(username string)
	// OnSuccess receives results of actions that have no success callback.
	OnSuccess func(kind types.ActionKind, body []byte)
	// OnFailure receives errors of actions that have no failure callback.
	OnFailure func(kind types.ActionKind, err error)
	// OnReset runs when the provider rejected the refresh token and the state was cleared.
	OnReset func()
}

// Session is the account token state and action queue.
type Session struct {
	cfg    Config
	oauth  *oauth2.Config
	hooks  Hooks
	log    logrus.FieldLogger
	client *http.Client

	accessToken  string
	refreshToken string
	sharedKey    string
	expiry       time.Time
	initialized  bool

	codeVerifier  string
	queue         []types.PendingAction
	pollingAction types.ActionKind
}

// New creates a Session from cfg and the recovered state.
func New(cfg Config, state State, hooks Hooks) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}

	s := &Session{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
		},
		hooks:        hooks,
		log:          cfg.Logger.WithField("component", "session"),
		client:       client,
		accessToken:  state.AccessToken,
		refreshToken: state.RefreshToken,
		sharedKey:    state.SharedSessionKey,
		expiry:       state.Expiry,
		initialized:  state.AccessToken != "" || state.RefreshToken != "",
	}
	s.SetPollingEnabled(state.PollingEnabled)
	return s
}

// IsInitialized reports whether authentication was at least attempted:
// tokens are held or a code exchange is pending.
func (s *Session) IsInitialized() bool {
	return s.initialized
}

// EnqueueAction appends an action to the queue.
func (s *Session) EnqueueAction(kind types.ActionKind, onSuccess types.SuccessFunc, onFailure types.FailureFunc, payload string) {
	s.queue = append(s.queue, types.PendingAction{
		Kind:      kind,
		OnSuccess: onSuccess,
		OnFailure: onFailure,
		Payload:   payload,
	})
}

// EnqueueRefresh appends a token refresh.
func (s *Session) EnqueueRefresh(onSuccess types.SuccessFunc) {
	s.EnqueueAction(types.ActionRefresh, onSuccess, nil, "")
}

// EnqueueTestWithRefresh appends a token validation that refreshes a stale token.
func (s *Session) EnqueueTestWithRefresh() {
	s.EnqueueAction(types.ActionTestWithRefresh, nil, nil, "")
}

// InitWithCode schedules the exchange of an authorization code ahead of any queued action.
func (s *Session) InitWithCode(code, verifier string) {
	s.initialized = true
	s.codeVerifier = verifier
	s.queue = append([]types.PendingAction{{
		Kind:    types.ActionCodeExchange,
		Payload: code,
	}}, s.queue...)
}

// Clear drops all token state and pending actions.
func (s *Session) Clear() {
	s.accessToken = ""
	s.refreshToken = ""
	s.sharedKey = ""
	s.expiry = time.Time{}
	s.codeVerifier = ""
	s.initialized = false
	s.queue = nil
}

// SetPollingAction sets the action queued when a drain finds the queue empty.
func (s *Session) SetPollingAction(kind types.ActionKind) {
	s.pollingAction = kind
}

// SetPollingEnabled selects between printer model polling and no polling.
func (s *Session) SetPollingEnabled(enabled bool) {
	if enabled {
		s.SetPollingAction(types.ActionConnectPrinterModels)
	} else {
		s.SetPollingAction(types.ActionDummy)
	}
}

// PollingAction returns the configured polling action.
func (s *Session) PollingAction() types.ActionKind {
	return s.pollingAction
}

// QueueLen returns the number of pending actions.
func (s *Session) QueueLen() int {
	return len(s.queue)
}

func (s *Session) AccessToken() string      { return s.accessToken }
func (s *Session) RefreshToken() string     { return s.refreshToken }
func (s *Session) SharedSessionKey() string { return s.sharedKey }

// NextTokenTimeout returns the access token expiry in unix seconds, 0 when unknown.
func (s *Session) NextTokenTimeout() int64 {
	return s.Tokens().NextTokenTimeout()
}

// Tokens returns a copy of the current token state.
func (s *Session) Tokens() types.TokenBundle {
	return types.TokenBundle{
		AccessToken:      s.accessToken,
		RefreshToken:     s.refreshToken,
		Expiry:           s.expiry,
		SharedSessionKey: s.sharedKey,
	}
}

// ProcessActionQueue executes every queued action in FIFO order, including
// actions queued while draining. When the queue is empty and a polling action
// is configured, that action is queued first.
func (s *Session) ProcessActionQueue(ctx context.Context) {
	if len(s.queue) == 0 && s.pollingAction != types.ActionDummy && s.hasTokens() {
		if s.cfg.PollLimiter == nil || s.cfg.PollLimiter.Allow() {
			s.EnqueueAction(s.pollingAction, nil, nil, "")
		}
	}

	for len(s.queue) > 0 {
		if ctx.Err() != nil {
			return
		}
		action := s.queue[0]
		s.queue = s.queue[1:]
		s.execute(ctx, action)
	}
}

func (s *Session) hasTokens() bool {
	return s.accessToken != "" || s.refreshToken != ""
}

func (s *Session) execute(ctx context.Context, action types.PendingAction) {
	log := s.log.WithField("action", action.Kind.String())
	log.Debug("Processing action")

	var (
		body []byte
		err  error
	)
	switch action.Kind {
	case types.ActionDummy:
		return
	case types.ActionCodeExchange:
		err = s.exchangeCode(ctx, action.Payload)
	case types.ActionRefresh:
		err = s.refresh(ctx)
	case types.ActionTestWithRefresh:
		body, err = s.testWithRefresh(ctx)
	case types.ActionConnectPrinterModels:
		body, err = s.authorizedGet(ctx, action.Kind, s.cfg.ConnectURL+constants.ConnectPrinterModelsPath)
	case types.ActionConnectStatus:
		body, err = s.authorizedGet(ctx, action.Kind, s.cfg.ConnectURL+constants.ConnectStatusPath)
	case types.ActionAvatar:
		body, err = s.authorizedGet(ctx, action.Kind, action.Payload)
	case types.ActionDataByID:
		body, err = s.authorizedGet(ctx, action.Kind, s.cfg.ConnectURL+constants.ConnectDataByIDPath+strings.TrimSpace(action.Payload))
	default:
		log.Warn("Unknown action kind")
		return
	}

	if err != nil {
		log.WithError(err).Warn("Action failed")
		if action.OnFailure != nil {
			action.OnFailure(err)
		} else if s.hooks.OnFailure != nil {
			s.hooks.OnFailure(action.Kind, err)
		}
		return
	}

	if action.OnSuccess != nil {
		action.OnSuccess(body)
	} else if s.hooks.OnSuccess != nil && body != nil {
		s.hooks.OnSuccess(action.Kind, body)
	}
}

// setTokens stores a freshly acquired token and notifies OnTokens.
func (s *Session) setTokens(tok *oauth2.Token) {
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	s.expiry = tok.Expiry
	if key, ok := tok.Extra(constants.SharedSessionKeyName).(string); ok && key != "" {
		s.sharedKey = key
	}
	if s.sharedKey == "" {
		s.sharedKey = uuid.NewString()
	}
	s.initialized = true

	if s.hooks.OnTokens != nil {
		expiresIn := time.Duration(0)
		if !s.expiry.IsZero() {
			expiresIn = s.expiry.Sub(s.cfg.Now())
		}
		s.hooks.OnTokens(expiresIn)
	}
}

func (s *Session) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}
