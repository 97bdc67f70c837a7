package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/btrbak/internal/backup"
	"github.com/blackwell-systems/btrbak/internal/config"
	"github.com/blackwell-systems/btrbak/internal/executor"
	"github.com/blackwell-systems/btrbak/internal/store"
)

// resolveConfigPath picks the configuration file location: the --config
// flag wins, then BTRBAK_CONFIG, then the default under XDG config.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	if env := os.Getenv(config.EnvConfigPath); env != "" {
		return env, nil
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	// Create .btrbak directory if it doesn't exist
	btrbakDir := filepath.Join(home, ".btrbak")
	if err := os.MkdirAll(btrbakDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create btrbak directory: %w", err)
	}

	return filepath.Join(btrbakDir, "btrbak.db"), nil
}

func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(path)
	if err != nil {
		return nil, err
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(logger)
}

func newRunner(cfg *config.Config, st *store.Store) *backup.Runner {
	return backup.New(cfg, executor.System{}, st, newLogger())
}
