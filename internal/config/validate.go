// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It reports the first problem found and does not modify cfg.
func Validate(cfg *Config) error {
	if cfg.Device != "" && cfg.URL != "" {
		return fmt.Errorf("device %q and url %q are mutually exclusive", cfg.Device, cfg.URL)
	}

	if cfg.URL != "" && !strings.HasPrefix(cfg.URL, "ws://") && !strings.HasPrefix(cfg.URL, "wss://") {
		return fmt.Errorf("url %q must start with ws:// or wss://", cfg.URL)
	}

	if cfg.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", cfg.Baud)
	}

	if _, err := cfg.FramingMode(); err != nil {
		return err
	}

	if _, err := cfg.Instance(); err != nil {
		return fmt.Errorf("instance_id: %w", err)
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	if cfg.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", cfg.Retries)
	}

	return nil
}
