// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and stores the sharestore daemon configuration, a
// TOML file kept in the data directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override file values.
const (
	EnvListen  = "SHARESTORE_LISTEN"
	EnvDataDir = "SHARESTORE_DATADIR"
)

const (
	configFileName = "config.toml"
	dataDirName    = ".sharestore"
)

// Config holds the daemon configuration.
type Config struct {
	DataDir        string `toml:"datadir"`
	ListenAddr     string `toml:"listen"`
	LogLevel       string `toml:"loglevel"`
	LogFile        string `toml:"logfile"`
	ReserveFloor   uint64 `toml:"reserve_floor"` // base units kept back in every native ledger
	GenesisFile    string `toml:"genesis"`
	MetricsEnabled bool   `toml:"metrics"`
	ClockSkew      int64  `toml:"clock_skew"` // seconds a signed request timestamp may drift
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		ListenAddr:     "127.0.0.1:8646",
		LogLevel:       "info",
		MetricsEnabled: true,
		ClockSkew:      300,
	}
}

// DefaultDataDir returns ~/.sharestore, or .sharestore in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DBPath returns the ledger database path inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "ledgers.db")
}

// MaxClockSkew returns ClockSkew as a duration.
func (c Config) MaxClockSkew() time.Duration {
	return time.Duration(c.ClockSkew) * time.Second
}

// KeystoreDir returns the wallet keystore directory inside the data directory.
func (c Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keys")
}

// LoadConfig reads the TOML file at path on top of DefaultConfig. Keys
// missing from the file keep their defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	err := decodeFile(path, &cfg)
	return cfg, err
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConfigFile, undecoded[0].String())
	}
	return nil
}

// SaveConfig writes cfg to path as TOML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# sharestore configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with SHARESTORE_LISTEN and SHARESTORE_DATADIR when set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvListen); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
}

// Load resolves the effective configuration for dataDir: defaults with
// DataDir set to dataDir, then the config file in it if one exists, then
// the environment.
func Load(dataDir string) (Config, error) {
	if dataDir == "" {
		dataDir = os.Getenv(EnvDataDir)
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	cfg := DefaultConfig()
	cfg.DataDir = dataDir
	if err := decodeFile(ConfigPath(dataDir), &cfg); err != nil && !errors.Is(err, ErrConfigNotFound) {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, ValidateConfig(cfg)
}
