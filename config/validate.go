// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"os"

	"github.com/bitfsorg/sharestore-go/logging"
)

// ValidateConfig checks a resolved configuration and returns the first
// problem found, or nil.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}
	if err := validateListen(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidListenAddr, cfg.ListenAddr, err)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		if fi, err := os.Stat(cfg.LogFile); err == nil && fi.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrInvalidLogFile, cfg.LogFile)
		}
	}
	if cfg.ClockSkew <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidClockSkew, cfg.ClockSkew)
	}
	if cfg.GenesisFile != "" {
		fi, err := os.Stat(cfg.GenesisFile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGenesisNotFound, err)
		}
		if fi.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrGenesisNotFound, cfg.GenesisFile)
		}
	}
	return nil
}

// validateListen accepts host:port with a numeric or named TCP port.
func validateListen(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	_, err = net.LookupPort("tcp", port)
	return err
}
