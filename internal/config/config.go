// Package config provides configuration file parsing for btrbak.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvConfigPath names the environment variable that overrides the
// default configuration file location.
const EnvConfigPath = "BTRBAK_CONFIG"

// DefaultPath returns the default configuration file location,
// respecting XDG_CONFIG_HOME. Defaults to ~/.config/btrbak/config.json
// if XDG_CONFIG_HOME is not set.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "btrbak", "config.json"), nil
}

// PolicyConversionError reports a retention policy entry that could
// not be parsed as a duration.
type PolicyConversionError struct {
	Value string
}

func (e *PolicyConversionError) Error() string {
	return fmt.Sprintf("invalid policy duration %q", e.Value)
}

// Duration is a time.Duration that unmarshals from JSON strings such
// as "15m", "4h", "1d" and "2w". Day and week forms take an integer
// count; everything else is handed to time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &PolicyConversionError{Value: string(data)}
	}

	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days <= 0 {
			return 0, &PolicyConversionError{Value: s}
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	if n, ok := strings.CutSuffix(s, "w"); ok {
		weeks, err := strconv.Atoi(n)
		if err != nil || weeks <= 0 {
			return 0, &PolicyConversionError{Value: s}
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil || parsed <= 0 {
		return 0, &PolicyConversionError{Value: s}
	}
	return parsed, nil
}

// SSH holds the connection parameters for the backup host.
type SSH struct {
	Host         string `json:"host"`
	User         string `json:"user"`
	IdentityFile string `json:"identity_file"`
}

// Config is the btrbak configuration. One file drives both ends of a
// backup relationship: the local snapshot side and the remote receive
// side.
type Config struct {
	SourceSubvolumePath   string     `json:"source_subvolume_path"`
	SnapshotDevice        string     `json:"snapshot_device"`
	SnapshotSubvolumePath string     `json:"snapshot_subvolume_path"`
	SnapshotPath          string     `json:"snapshot_path"`
	SnapshotSuffix        string     `json:"snapshot_suffix"`
	UserLocal             string     `json:"user_local"`
	PolicyLocal           []Duration `json:"policy_local"`
	SSH                   SSH        `json:"ssh"`
	BackupDevice          string     `json:"backup_device"`
	BackupSubvolumePath   string     `json:"backup_subvolume_path"`
	BackupPath            string     `json:"backup_path"`
	PolicyRemote          []Duration `json:"policy_remote"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open configuration file %q: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration file %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"source_subvolume_path", c.SourceSubvolumePath},
		{"snapshot_device", c.SnapshotDevice},
		{"snapshot_subvolume_path", c.SnapshotSubvolumePath},
		{"snapshot_path", c.SnapshotPath},
		{"snapshot_suffix", c.SnapshotSuffix},
		{"user_local", c.UserLocal},
		{"ssh.host", c.SSH.Host},
		{"ssh.user", c.SSH.User},
		{"backup_device", c.BackupDevice},
		{"backup_subvolume_path", c.BackupSubvolumePath},
		{"backup_path", c.BackupPath},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("missing required field %q", field.name)
		}
	}

	if err := validatePolicy("policy_local", c.PolicyLocal); err != nil {
		return err
	}
	return validatePolicy("policy_remote", c.PolicyRemote)
}

func validatePolicy(name string, policy []Duration) error {
	for i := 1; i < len(policy); i++ {
		if policy[i] <= policy[i-1] {
			return fmt.Errorf("%s: durations must be strictly ascending", name)
		}
	}
	return nil
}

// LocalPolicy returns the local retention policy as plain durations.
func (c *Config) LocalPolicy() []time.Duration {
	return durations(c.PolicyLocal)
}

// RemotePolicy returns the remote retention policy as plain durations.
func (c *Config) RemotePolicy() []time.Duration {
	return durations(c.PolicyRemote)
}

func durations(policy []Duration) []time.Duration {
	out := make([]time.Duration, len(policy))
	for i, d := range policy {
		out[i] = time.Duration(d)
	}
	return out
}
