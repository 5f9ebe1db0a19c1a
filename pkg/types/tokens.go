// Package types provides the data structures shared between the session,
// the token cache and the orchestrator.
package types

import "time"

// TokenBundle is the credential state of the single signed-in identity.
// A non-empty RefreshToken means a login succeeded at least once; AccessToken
// may be empty while RefreshToken is present (expired but recoverable).
type TokenBundle struct {
	AccessToken      string
	RefreshToken     string
	Expiry           time.Time
	SharedSessionKey string
}

// IsEmpty reports whether the bundle carries no token at all.
func (b TokenBundle) IsEmpty() bool {
	return b.AccessToken == "" && b.RefreshToken == ""
}

// HasRefreshToken reports whether the session can be resumed without the browser.
func (b TokenBundle) HasRefreshToken() bool {
	return b.RefreshToken != ""
}

// ExpiresIn returns the time left until the access token expires relative to now.
// A zero expiry yields zero.
func (b TokenBundle) ExpiresIn(now time.Time) time.Duration {
	if b.Expiry.IsZero() {
		return 0
	}
	return b.Expiry.Sub(now)
}

// NextTokenTimeout returns the expiry as unix seconds, 0 when unknown.
func (b TokenBundle) NextTokenTimeout() int64 {
	if b.Expiry.IsZero() {
		return 0
	}
	return b.Expiry.Unix()
}
