// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidLogFile indicates the log file path cannot be written as a file.
	ErrInvalidLogFile = errors.New("config: invalid log file")

	// ErrGenesisNotFound indicates the configured genesis file is missing.
	ErrGenesisNotFound = errors.New("config: genesis file not found")

	// ErrInvalidClockSkew indicates a non-positive clock skew.
	ErrInvalidClockSkew = errors.New("config: clock skew must be positive")

	// ErrInvalidConfigFile indicates the config file is not valid TOML or has unknown keys.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")
)
