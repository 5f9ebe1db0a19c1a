package useraccount

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/d-kuro/useraccount/pkg/constants"
	"github.com/d-kuro/useraccount/pkg/pkce"
	"github.com/d-kuro/useraccount/pkg/storage"
)

// Config holds all configuration options of the account orchestrator.
type Config struct {
	// Identity provider
	AppName     string `yaml:"appName,omitempty"`
	AuthHost    string `yaml:"authHost,omitempty"`
	ClientID    string `yaml:"clientId,omitempty"`
	RedirectURI string `yaml:"redirectUri,omitempty"`
	Scope       string `yaml:"scope,omitempty"`
	ConnectHost string `yaml:"connectHost,omitempty"`

	// Session behavior
	RememberSession bool `yaml:"rememberSession,omitempty"`
	PollingEnabled  bool `yaml:"pollingEnabled,omitempty"`

	// Scheduling
	PollInterval  time.Duration `yaml:"pollInterval,omitempty"`
	WakeupTimeout time.Duration `yaml:"wakeupTimeout,omitempty"`
	RefreshMargin time.Duration `yaml:"refreshMargin,omitempty"`
	RefreshFloor  time.Duration `yaml:"refreshFloor,omitempty"`
	HTTPTimeout   time.Duration `yaml:"httpTimeout,omitempty"`

	// Credential storage
	Store    string `yaml:"store,omitempty"`
	StoreDir string `yaml:"storeDir,omitempty"`

	// Logging
	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`

	// Collaborators, not serialized
	SecretStore storage.SecretStore `yaml:"-"`
	Scheduler   Scheduler           `yaml:"-"`
	Logger      logrus.FieldLogger  `yaml:"-"`
	HTTPClient  *http.Client        `yaml:"-"`
	PKCE        *pkce.Generator     `yaml:"-"`
	NewSession  NewSessionFunc      `yaml:"-"`
}

// ConfigOption defines a functional option for configuring the Config.
type ConfigOption func(*Config)

// WithClientID sets the OAuth2 client ID.
func WithClientID(id string) ConfigOption {
	return func(c *Config) {
		c.ClientID = id
	}
}

// WithAppName sets the application name used to namespace stored secrets.
func WithAppName(name string) ConfigOption {
	return func(c *Config) {
		c.AppName = name
	}
}

// WithAuthHost sets the identity provider base URL.
func WithAuthHost(host string) ConfigOption {
	return func(c *Config) {
		c.AuthHost = host
	}
}

// WithConnectHost sets the Connect API base URL.
func WithConnectHost(host string) ConfigOption {
	return func(c *Config) {
		c.ConnectHost = host
	}
}

// WithRedirectURI sets the redirect URI registered for the client.
func WithRedirectURI(uri string) ConfigOption {
	return func(c *Config) {
		c.RedirectURI = uri
	}
}

// WithRememberSession controls whether tokens are persisted between runs.
func WithRememberSession(remember bool) ConfigOption {
	return func(c *Config) {
		c.RememberSession = remember
	}
}

// WithPollingEnabled controls the initial polling action.
func WithPollingEnabled(enabled bool) ConfigOption {
	return func(c *Config) {
		c.PollingEnabled = enabled
	}
}

// WithPollInterval sets the polling timer interval.
func WithPollInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithStore selects the secret store backend by name.
func WithStore(kind, dir string) ConfigOption {
	return func(c *Config) {
		c.Store = kind
		c.StoreDir = dir
	}
}

// WithSecretStore sets a custom secret store, overriding Store.
func WithSecretStore(store storage.SecretStore) ConfigOption {
	return func(c *Config) {
		c.SecretStore = store
	}
}

// WithScheduler sets the one-shot timer facility.
func WithScheduler(s Scheduler) ConfigOption {
	return func(c *Config) {
		c.Scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) ConfigOption {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithHTTPClient sets the HTTP client used for token and API requests.
func WithHTTPClient(client *http.Client) ConfigOption {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithPKCEGenerator sets the verifier/challenge generator.
func WithPKCEGenerator(g *pkce.Generator) ConfigOption {
	return func(c *Config) {
		c.PKCE = g
	}
}

// WithSessionFactory replaces the session implementation.
func WithSessionFactory(f NewSessionFunc) ConfigOption {
	return func(c *Config) {
		c.NewSession = f
	}
}

// NewConfig creates a new configuration with the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}

func defaultConfig() *Config {
	return &Config{
		AppName:     constants.DefaultAppName,
		AuthHost:    constants.DefaultAuthHost,
		RedirectURI: constants.DefaultRedirectURI,
		Scope:       constants.DefaultScope,
		ConnectHost: constants.DefaultConnectHost,

		RememberSession: true,
		PollingEnabled:  false,

		PollInterval:  constants.DefaultPollInterval,
		WakeupTimeout: constants.DefaultWakeupTimeout,
		RefreshMargin: constants.RefreshMargin,
		RefreshFloor:  constants.RefreshFloor,
		HTTPTimeout:   constants.DefaultHTTPTimeout,

		Store: constants.StoreKeyring,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfigFile reads a YAML configuration file on top of the defaults,
// then applies opts.
func LoadConfigFile(path string, opts ...ConfigOption) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, opt := range opts {
		opt(config)
	}
	return config, nil
}

// Validate ensures the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return &ConfigError{Field: "AppName", Message: constants.ValidationErrorEmpty}
	}
	if c.AuthHost == "" {
		return &ConfigError{Field: "AuthHost", Message: constants.ValidationErrorEmpty}
	}
	if c.ClientID == "" {
		return &ConfigError{Field: "ClientID", Message: constants.ValidationErrorEmpty}
	}
	if c.RedirectURI == "" {
		return &ConfigError{Field: "RedirectURI", Message: constants.ValidationErrorEmpty}
	}
	if c.Scope == "" {
		return &ConfigError{Field: "Scope", Message: constants.ValidationErrorEmpty}
	}
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "PollInterval", Message: constants.ValidationErrorPositive}
	}
	if c.WakeupTimeout <= 0 {
		return &ConfigError{Field: "WakeupTimeout", Message: constants.ValidationErrorPositive}
	}
	if c.RefreshFloor <= 0 {
		return &ConfigError{Field: "RefreshFloor", Message: constants.ValidationErrorPositive}
	}
	if c.RefreshMargin < 0 {
		return &ConfigError{Field: "RefreshMargin", Message: constants.ValidationErrorPositive}
	}
	if c.SecretStore == nil {
		switch c.Store {
		case "", constants.StoreKeyring, constants.StoreFile, constants.StoreMemory, constants.StoreNone:
		default:
			return &ConfigError{Field: "Store", Message: constants.ValidationErrorUnknown}
		}
	}
	return nil
}

func (c *Config) authorizeURL() string {
	return c.AuthHost + constants.AuthorizePath
}

func (c *Config) tokenURL() string {
	return c.AuthHost + constants.TokenPath
}

func (c *Config) userInfoURL() string {
	return c.AuthHost + constants.UserInfoPath
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return constants.ConfigErrorPrefix + e.Field + ": " + e.Message
}
