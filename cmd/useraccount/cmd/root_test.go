package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-kuro/useraccount"
	"github.com/d-kuro/useraccount/pkg/constants"
)

func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		verbose, configFile, clientID, storeKind = false, "", "", ""
	})
}

func TestLoadConfigFromFileAndFlags(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "useraccount.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clientId: from-file\nlogFormat: json\nstore: file\n"), 0o600))

	configFile = path
	storeKind = constants.StoreMemory
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, constants.StoreMemory, cfg.Store)
	logger, ok := cfg.Logger.(*logrus.Logger)
	require.True(t, ok)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoadConfigClientIDFromEnv(t *testing.T) {
	resetFlags(t)
	t.Setenv("USERACCOUNT_CLIENT_ID", "from-env")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClientID)

	clientID = "from-flag"
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.ClientID)
}

func TestNewLogger(t *testing.T) {
	resetFlags(t)

	logger := newLogger(useraccount.NewConfig())
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	cfg := useraccount.NewConfig()
	cfg.LogLevel = "bogus"
	assert.Equal(t, logrus.InfoLevel, newLogger(cfg).GetLevel())

	verbose = true
	assert.Equal(t, logrus.DebugLevel, newLogger(useraccount.NewConfig()).GetLevel())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.yaml"), expandHome("~/x.yaml"))
	assert.Equal(t, "/etc/x.yaml", expandHome("/etc/x.yaml"))
}
