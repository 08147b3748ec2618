// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/glucid/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol flags
	instanceID  string
	timeout     time.Duration
	retries     int
	framingName string

	// Tool flags
	configPath string
	tracePath  string
	verbose    bool
)

// settings holds the effective configuration: file values with changed flags on top
var settings *config.Config

var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "glucid",
	Short: "Lucid ADA8824 control tool",
	Long: `glucid - control a Lucid ADA8824 audio converter over RS232.

Reads and sets clock sync, routing, meter source and analog gain, checks and
clears the device error flag, and watches the unit for changes.

Connection modes:
  Serial:     --port /dev/ttyUSB0 [--baud 9600]
  WebSocket:  --url ws://host/path [--username user]
  Simulator:  --port sim://01

Settings are read from ~/.glucid.yaml (see "glucid config"); flags override them.

For WebSocket authentication, the password is read from the GLUCID_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (or sim://<id>)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Protocol flags
	rootCmd.PersistentFlags().StringVarP(&instanceID, "id", "i", "00", "Instance id of the unit (hex)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Second, "Reply timeout per attempt")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "Attempts per request")
	rootCmd.PersistentFlags().StringVar(&framingName, "framing", "text", "Wire framing (text or sysex)")

	// Tool flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.glucid.yaml)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "Append a CBOR capture of every exchange to FILE")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log protocol exchanges")
}

// loadSettings reads the config file and applies the flags the user set
func loadSettings(cmd *cobra.Command, args []string) error {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().Logger()

	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Device, cfg.URL = portName, ""
	}
	if flags.Changed("url") {
		cfg.URL, cfg.Device = wsURL, ""
	}
	if flags.Changed("username") {
		cfg.Username = wsUsername
	}
	if flags.Changed("baud") {
		cfg.Baud = baudRate
	}
	if flags.Changed("id") {
		cfg.InstanceID = instanceID
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("retries") {
		cfg.Retries = retries
	}
	if flags.Changed("framing") {
		cfg.Framing = framingName
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	settings = cfg
	logger.Debug().Str("config", path).Msg("settings loaded")
	return nil
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
