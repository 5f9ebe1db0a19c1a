package constants

import "time"

const (
	LibraryVersion = "0.1.0"
	LibraryName    = "useraccount"

	DefaultAppName = "PrusaSlicer"

	// Identity provider
	DefaultAuthHost      = "https://account.prusa3d.com"
	AuthorizePath        = "/o/authorize/"
	TokenPath            = "/o/token/"
	UserInfoPath         = "/api/v1/me/"
	DefaultRedirectURI   = "prusaslicer://login"
	DefaultScope         = "basic_info"
	CodeChallengeMethod  = "S256"
	ChooseAccountParam   = "choose_account"
	SharedSessionKeyName = "shared_session_key"

	// Connect API
	DefaultConnectHost       = "https://connect.prusa3d.com"
	ConnectPrinterModelsPath = "/slicer/user_printers"
	ConnectStatusPath        = "/slicer/v1/printers/status"
	ConnectDataByIDPath      = "/slicer/v1/printers/"

	// Secret store layout
	SecretServiceFormat = "%s/PrusaAccount/%s"
	TokensScope         = "tokens"
	LegacyAccessScope   = "access_token"
	LegacyRefreshScope  = "refresh_token"
	LegacyTimeoutScope  = "access_token_timeout"
	TokenSeparator      = "|"

	// Scheduling
	DefaultPollInterval  = 10 * time.Second
	DefaultWakeupTimeout = 88888 * time.Second
	RefreshMargin        = 66666 * time.Millisecond
	RefreshFloor         = 60000 * time.Millisecond
	InboxSize            = 64

	// PKCE
	VerifierLength   = 40
	VerifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	CodeMarker       = "code="

	DefaultHTTPTimeout     = 30 * time.Second
	TokenRefreshTimeout    = 30 * time.Second
	MaxAPIResponseSize     = 10 * 1024 * 1024
	ServerShutdownTimeout  = 5 * time.Second
	LoopbackCallbackPath   = "/login"
	DefaultUserAgent       = "useraccount/0.1"
	ContentTypeJSON        = "application/json"
	AuthorizationHeaderFmt = "Bearer %s"

	// HTTP transport
	MaxRedirects          = 5
	MaxIdleConns          = 10
	MaxIdleConnsPerHost   = 2
	IdleConnTimeout       = 90 * time.Second
	DefaultDialerTimeout  = 10 * time.Second
	KeepAliveTimeout      = 30 * time.Second
	TLSHandshakeTimeout   = 10 * time.Second
	ResponseHeaderTimeout = 20 * time.Second
	ExpectContinueTimeout = 1 * time.Second

	DirPermissions  = 0700
	FilePermissions = 0600

	DefaultStorageDir = ".useraccount"
	SecretFileSuffix  = ".secret.json"

	StoreKeyring = "keyring"
	StoreFile    = "file"
	StoreMemory  = "memory"
	StoreNone    = "none"

	ValidationErrorEmpty    = "cannot be empty"
	ValidationErrorRequired = "must be provided"
	ValidationErrorPositive = "must be positive"
	ValidationErrorUnknown  = "unknown value"
	ConfigErrorPrefix       = "config error in "
)

var BrowserCommands = map[string][]string{
	"windows": {"cmd", "/c", "start"},
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
}
