package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/d-kuro/useraccount/pkg/constants"
	"github.com/d-kuro/useraccount/pkg/types"
)

// userInfo is the subset of the identity endpoint response the session reads.
type userInfo struct {
	Username       string `json:"username"`
	PublicUsername string `json:"public_username"`
}

func (s *Session) exchangeCode(ctx context.Context, code string) error {
	verifier := s.codeVerifier
	s.codeVerifier = ""

	if code == "" {
		s.initialized = s.hasTokens()
		return &Error{
			Op:      types.ActionCodeExchange,
			Message: "redirect carried no authorization code",
			Err:     ErrEmptyCode,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, constants.TokenRefreshTimeout)
	defer cancel()

	tok, err := s.oauth.Exchange(s.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		s.initialized = s.hasTokens()
		return &Error{
			Op:      types.ActionCodeExchange,
			Message: "failed to exchange authorization code",
			Err:     err,
		}
	}

	s.setTokens(tok)

	// Identify the token owner before anything else runs.
	s.queue = append([]types.PendingAction{{Kind: types.ActionTestWithRefresh}}, s.queue...)
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	if s.refreshToken == "" {
		return &Error{
			Op:      types.ActionRefresh,
			Message: "no refresh token available",
			Err:     ErrNotLoggedIn,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, constants.TokenRefreshTimeout)
	defer cancel()

	tokenSource := s.oauth.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: s.refreshToken})
	tok, err := tokenSource.Token()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{
				Op:      types.ActionRefresh,
				Message: "token refresh timeout",
				Err:     err,
			}
		}
		if isRejected(err) {
			s.log.WithError(err).Warn("Refresh token was rejected, clearing session")
			s.Clear()
			if s.hooks.OnReset != nil {
				s.hooks.OnReset()
			}
		}
		return &Error{
			Op:      types.ActionRefresh,
			Message: "failed to refresh token",
			Err:     err,
		}
	}

	s.setTokens(tok)
	return nil
}

func (s *Session) testWithRefresh(ctx context.Context) ([]byte, error) {
	body, err := s.authorizedGet(ctx, types.ActionTestWithRefresh, s.cfg.UserInfoURL)
	if err != nil {
		return nil, err
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &Error{
			Op:      types.ActionTestWithRefresh,
			Message: "failed to parse user info",
			Err:     err,
		}
	}

	username := info.Username
	if username == "" {
		username = info.PublicUsername
	}
	if username != "" && s.hooks.OnUsername != nil {
		s.hooks.OnUsername(username)
	}
	return body, nil
}

// authorizedGet performs a bearer-authenticated GET. A missing or expired
// access token is refreshed first; a 401 answer triggers one refresh and retry.
func (s *Session) authorizedGet(ctx context.Context, kind types.ActionKind, url string) ([]byte, error) {
	if !s.hasTokens() {
		return nil, &Error{Op: kind, Message: "no token available", Err: ErrNotLoggedIn}
	}

	if s.accessToken == "" || s.expired() {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
	}

	body, status, err := s.get(ctx, url)
	if err != nil {
		return nil, &Error{Op: kind, Message: "request failed", Err: err}
	}

	if status == http.StatusUnauthorized && s.refreshToken != "" {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
		body, status, err = s.get(ctx, url)
		if err != nil {
			return nil, &Error{Op: kind, Message: "request failed", Err: err}
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &Error{
			Op:         kind,
			Message:    fmt.Sprintf("unexpected status %d", status),
			StatusCode: status,
		}
	}
	return body, nil
}

func (s *Session) expired() bool {
	return !s.expiry.IsZero() && !s.cfg.Now().Before(s.expiry)
}

func (s *Session) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf(constants.AuthorizationHeaderFmt, s.accessToken))
	req.Header.Set("Accept", constants.ContentTypeJSON)
	req.Header.Set("User-Agent", constants.DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxAPIResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
