// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/transport"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the home directory
const FileName = ".glucid.yaml"

// Config is the contents of ~/.glucid.yaml. Command line flags override it.
type Config struct {
	// ---- CONNECTION ----
	Device   string `yaml:"device,omitempty"` // serial port or sim://<id>
	URL      string `yaml:"url,omitempty"`    // WebSocket serial bridge
	Username string `yaml:"username,omitempty"`
	Baud     int    `yaml:"baud"`
	Framing  string `yaml:"framing"`

	// ---- UNIT ----
	InstanceID string `yaml:"instance_id"`

	// ---- PROTOCOL ----
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Baud:       transport.DefaultBaudRate,
		Framing:    transport.FramingText.String(),
		InstanceID: lucid.DefaultInstance.String(),
		Timeout:    transport.DefaultTimeout,
		Retries:    device.DefaultRetries,
	}
}

// DefaultPath returns ~/.glucid.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Instance returns the parsed instance id
func (c *Config) Instance() (lucid.InstanceID, error) {
	return lucid.ParseInstanceID(c.InstanceID)
}

// FramingMode returns the parsed framing
func (c *Config) FramingMode() (transport.Framing, error) {
	return transport.ParseFraming(c.Framing)
}
