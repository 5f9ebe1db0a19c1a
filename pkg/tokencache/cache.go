// Package tokencache persists the token bundle in a secret store as a single
// pipe-delimited record, with read support for the older per-field layout.
package tokencache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d-kuro/useraccount/pkg/constants"
	"github.com/d-kuro/useraccount/pkg/storage"
	"github.com/d-kuro/useraccount/pkg/types"
)

// Cache adapts a storage.SecretStore to the token bundle layout.
type Cache struct {
	store storage.SecretStore
	log   logrus.FieldLogger

	probe    sync.Once
	probeErr error
}

// New creates a Cache. A nil store disables persistence.
func New(store storage.SecretStore, log logrus.FieldLogger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{store: store, log: log.WithField("component", "tokencache")}
}

// Available reports whether tokens can be persisted at all. The store is
// probed on the first call only.
func (c *Cache) Available() bool {
	if c.store == nil {
		return false
	}
	c.probe.Do(func() {
		c.probeErr = c.store.Available()
		if c.probeErr != nil {
			c.log.WithError(c.probeErr).Warn("Secret store is not supported, tokens are kept in memory only")
		}
	})
	return c.probeErr == nil
}

// Load reads the persisted bundle. The combined "tokens" record is preferred;
// when it is missing the legacy per-field records are read instead.
// The second result is false when nothing usable was found.
func (c *Cache) Load() (types.TokenBundle, bool) {
	if !c.Available() {
		return types.TokenBundle{}, false
	}

	key, value, err := c.store.Load(constants.TokensScope)
	if err == nil {
		bundle, decodeErr := Decode(value)
		if decodeErr != nil {
			c.log.WithError(decodeErr).Warn("Stored tokens record is malformed")
		}
		bundle.SharedSessionKey = key
		return bundle, !bundle.IsEmpty()
	}
	if !errors.Is(err, storage.ErrStorageNotFound) {
		c.log.WithError(err).Error("Failed to load credentials from the system secret store")
	}

	return c.loadLegacy()
}

func (c *Cache) loadLegacy() (types.TokenBundle, bool) {
	var bundle types.TokenBundle

	key0, access, err := c.store.Load(constants.LegacyAccessScope)
	if err != nil {
		c.log.WithError(err).Debug("No legacy access token record")
	}
	key1, refresh, err := c.store.Load(constants.LegacyRefreshScope)
	if err != nil {
		c.log.WithError(err).Debug("No legacy refresh token record")
	}
	_, timeout, err := c.store.Load(constants.LegacyTimeoutScope)
	if err != nil {
		c.log.WithError(err).Debug("No legacy token timeout record")
	}
	if key0 != key1 {
		c.log.WithFields(logrus.Fields{"access_key": key0, "refresh_key": key1}).
			Warn("Legacy token records carry different session keys")
	}

	expiry, err := parseTimeout(timeout)
	if err != nil {
		c.log.WithError(err).Warn("Legacy token timeout is malformed")
	}

	bundle.AccessToken = access
	bundle.RefreshToken = refresh
	bundle.Expiry = expiry
	bundle.SharedSessionKey = key0
	return bundle, !bundle.IsEmpty()
}

// Save writes value under the combined record keyed by sessionKey.
// An empty value forgets any previously stored tokens.
func (c *Cache) Save(sessionKey, value string) error {
	if !c.Available() {
		return storage.ErrStorageUnavailable
	}
	if err := c.store.Save(constants.TokensScope, sessionKey, value); err != nil {
		c.log.WithError(err).Error("Failed to save credentials to the system secret store")
		return err
	}
	return nil
}

// Encode renders the bundle as "access|refresh|expiry" with expiry in unix seconds.
func Encode(b types.TokenBundle) string {
	return Format(b.AccessToken, b.RefreshToken, b.NextTokenTimeout())
}

// Format renders the combined record from its fields.
func Format(accessToken, refreshToken string, nextTimeout int64) string {
	return strings.Join([]string{
		accessToken,
		refreshToken,
		strconv.FormatInt(nextTimeout, 10),
	}, constants.TokenSeparator)
}

// Decode parses a combined record. An empty value decodes to an empty bundle.
// Missing trailing fields are left empty.
func Decode(value string) (types.TokenBundle, error) {
	var b types.TokenBundle
	if value == "" {
		return b, nil
	}

	parts := strings.Split(value, constants.TokenSeparator)
	if len(parts) > 0 {
		b.AccessToken = parts[0]
	}
	if len(parts) > 1 {
		b.RefreshToken = parts[1]
	}

	var err error
	if len(parts) > 2 {
		b.Expiry, err = parseTimeout(parts[2])
	}
	if err == nil && len(parts) != 3 {
		err = fmt.Errorf("expected 3 fields, got %d", len(parts))
	}
	return b, err
}

func parseTimeout(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid token timeout %q: %w", s, err)
	}
	if secs == 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, 0), nil
}
