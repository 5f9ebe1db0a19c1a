package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d-kuro/useraccount"
)

var (
	verbose    = false
	configFile = ""
	clientID   = ""
	storeKind  = ""
	timeout    = 5 * time.Minute
)

var rootCmd = &cobra.Command{
	Use:   "useraccount",
	Short: "Log in to a Prusa Account from the command line",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&configFile, "config-file", "f", "", "YAML config file")
	flags.StringVar(&clientID, "client-id", "", "OAuth2 client ID (env USERACCOUNT_CLIENT_ID)")
	flags.StringVar(&storeKind, "store", "", "secret store: keyring, file, memory or none")
	flags.DurationVar(&timeout, "timeout", timeout, "how long to wait for the account server")
}

// loadConfig merges the config file, the environment and the flags, in
// increasing order of precedence.
func loadConfig(opts ...useraccount.ConfigOption) (*useraccount.Config, error) {
	id := clientID
	if id == "" {
		id = os.Getenv("USERACCOUNT_CLIENT_ID")
	}
	if id != "" {
		opts = append(opts, useraccount.WithClientID(id))
	}
	if storeKind != "" {
		opts = append(opts, useraccount.WithStore(storeKind, os.Getenv("USERACCOUNT_STORE_DIR")))
	}

	path := configFile
	if path == "" {
		path = os.Getenv("USERACCOUNT_CONFIG")
	}

	var cfg *useraccount.Config
	if path != "" {
		var err error
		cfg, err = useraccount.LoadConfigFile(expandHome(path), opts...)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = useraccount.NewConfig(opts...)
	}

	cfg.Logger = newLogger(cfg)
	return cfg, nil
}

func newLogger(cfg *useraccount.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Expand ~ to $HOME
func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = strings.Replace(path, "~", home, 1)
	}
	return path
}
