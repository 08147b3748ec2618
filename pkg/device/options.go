// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"time"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/trace"
	"github.com/rs/zerolog"
)

// Config holds the controller configuration.
type Config struct {
	// Instance is the unit id recorded at connect time
	Instance lucid.InstanceID

	// Retries is the retry budget: total attempts per request
	Retries int

	// Timeout bounds the wait for each reply
	Timeout time.Duration

	// Logger receives structured protocol logs
	Logger zerolog.Logger

	// Trace, when set, captures every exchange
	Trace *trace.Recorder
}

// DefaultRetries is the number of attempts per request
const DefaultRetries = 3

func defaultConfig() Config {
	return Config{
		Instance: lucid.DefaultInstance,
		Retries:  DefaultRetries,
		Logger:   zerolog.Nop(),
	}
}

// Option is a functional option for configuring the Controller.
type Option func(*Config)

// WithInstance sets the instance id of the unit.
//
// Example:
//
//	ctl := device.New(conn, device.WithInstance(0x01))
func WithInstance(id lucid.InstanceID) Option {
	return func(c *Config) {
		c.Instance = id
	}
}

// WithRetries sets the number of attempts per request. Values below one are ignored.
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 1 {
			c.Retries = retries
		}
	}
}

// WithTimeout overrides the connection read timeout for every reply.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTrace captures every exchange to a recorder.
func WithTrace(r *trace.Recorder) Option {
	return func(c *Config) {
		c.Trace = r
	}
}
