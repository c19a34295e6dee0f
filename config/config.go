// Package config holds operator-facing knobs: where a persistent graph's
// database file lives, how long to wait on a locked backend, and whether
// to use the optional compressed persistence codec. None of these affect
// a session's serialized bytes or query results — they are deployment
// concerns only, loaded the way the teacher loads its own server config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of operator knobs for a Kremis-Core process.
type Config struct {
	// DataDir is the default directory for a persistent graph's database
	// file. Session.Open and Session.Create take an explicit path and do not
	// read it.
	DataDir string `yaml:"data_dir"`
	// LockWait is how long an operator is willing to wait on a locked
	// backend. Session.Open and kvgraph.Open do not read it: opening a path
	// that is already locked fails at once with BackendLocked.
	LockWait time.Duration `yaml:"lock_wait"`
	// UseCompression records whether the compressed persistence codec
	// (persistence.ExportCompressed/ImportCompressed) is preferred.
	// Session.ExportPersistence does not read it and always writes the
	// plain persistence format.
	UseCompression bool `yaml:"use_compression"`
	// Debug is an operator flag for verbose diagnostics; no package in this
	// module reads it.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration used when neither an
// environment nor a config file override is present.
func Default() Config {
	return Config{
		DataDir:        "./data",
		LockWait:       0,
		UseCompression: false,
		Debug:          false,
	}
}

// FromEnv builds a Config from environment variables, falling back to
// Default for anything unset or unparsable.
func FromEnv() Config {
	cfg := Default()
	cfg.DataDir = getEnv("KREMIS_DATA_DIR", cfg.DataDir)
	cfg.LockWait = getEnvDuration("KREMIS_LOCK_WAIT", cfg.LockWait)
	cfg.UseCompression = getEnvBool("KREMIS_USE_COMPRESSION", cfg.UseCompression)
	cfg.Debug = getEnvBool("KREMIS_DEBUG", cfg.Debug)
	return cfg
}

// Load reads a YAML config file at path, starting from Default and
// overriding only the fields present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}

// rawConfig mirrors Config but with LockWait as a duration string, since
// yaml.v3 does not decode time.Duration from its int64 representation.
type rawConfig struct {
	DataDir        string `yaml:"data_dir"`
	LockWait       string `yaml:"lock_wait"`
	UseCompression bool   `yaml:"use_compression"`
	Debug          bool   `yaml:"debug"`
}

// UnmarshalYAML implements yaml.Unmarshaler so LockWait accepts duration
// strings like "5s" rather than raw nanosecond integers.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := rawConfig{DataDir: c.DataDir, UseCompression: c.UseCompression, Debug: c.Debug}
	if c.LockWait != 0 {
		raw.LockWait = c.LockWait.String()
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.DataDir = raw.DataDir
	c.UseCompression = raw.UseCompression
	c.Debug = raw.Debug
	if raw.LockWait != "" {
		d, err := time.ParseDuration(raw.LockWait)
		if err != nil {
			return fmt.Errorf("parsing lock_wait %q: %w", raw.LockWait, err)
		}
		c.LockWait = d
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
