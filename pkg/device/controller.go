// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device drives a Lucid ADA8824 over a transport connection.
//
// A Controller owns one connection. It serializes every request, retries
// requests that time out or come back garbled, tracks the device error flag,
// and keeps a cache of the gain values the device has acknowledged.
package device

import (
	"context"
	"errors"
	"sync"

	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/trace"
	"github.com/Thermoquad/glucid/pkg/transport"
	"github.com/rs/zerolog"
)

// Controller is the get/set surface of one unit. It is safe for concurrent
// use; requests are issued one at a time.
type Controller struct {
	mu      sync.Mutex
	conn    *transport.Conn
	cfg     Config
	log     zerolog.Logger
	tracker flagTracker
	gains   gain.Model
	stats   *Statistics
	fatal   error // set on device mismatch; the connection is gone
}

// Connect opens the endpoint and returns a controller for it
func Connect(ep transport.Endpoint, opts ...Option) (*Controller, error) {
	conn, err := transport.Open(ep)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}

// New wraps an open connection. The controller owns conn from now on.
func New(conn *transport.Conn, opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		conn:  conn,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("instance", cfg.Instance.String()).Logger(),
		stats: NewStatistics(),
	}
}

// Instance returns the id recorded at connect time
func (c *Controller) Instance() lucid.InstanceID {
	return c.cfg.Instance
}

// Info describes the underlying connection
func (c *Controller) Info() string {
	return c.conn.Info()
}

// Close closes the connection
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Stats returns a snapshot of the exchange statistics
func (c *Controller) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := *c.stats
	s.CalculateRates()
	return s
}

// ResetStats zeroes the exchange statistics
func (c *Controller) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Reset()
}

// ErrorFlag returns the tracked error flag without talking to the device
func (c *Controller) ErrorFlag() ErrorFlagState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.state
}

// exchange sends one command and returns its checked reply. Pending input is
// dropped before every attempt. Timeouts, malformed replies and replies to
// another command are retried up to the retry budget. A rejection is returned
// at once together with its frame.
// Caller holds c.mu.
func (c *Controller) exchange(ctx context.Context, key lucid.CommandKey, args ...int) (*lucid.ResponseFrame, error) {
	if c.fatal != nil {
		return nil, c.fatal
	}

	frame, err := lucid.Encode(key, c.cfg.Instance, args...)
	if err != nil {
		return nil, err
	}

	reply, err := c.attemptAll(ctx, frame)
	c.stats.recordRequest(err)
	return reply, err
}

func (c *Controller) attemptAll(ctx context.Context, frame *lucid.CommandFrame) (*lucid.ResponseFrame, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// a reply that missed an earlier deadline must not answer this frame
		if err := c.conn.Discard(); err != nil {
			return nil, err
		}

		reply, err := c.attempt(frame, attempt)
		c.stats.recordAttempt(reply, err)
		if err == nil {
			c.tracker.observeReply(reply)
			return reply, nil
		}

		switch {
		case lucid.IsConnection(err, lucid.ReasonDeviceMismatch):
			c.log.Error().Err(err).Str("cmd", frame.Key().String()).Msg("device mismatch, closing connection")
			c.fatal = err
			_ = c.conn.Close()
			return nil, err
		case lucid.IsConnection(err):
			return nil, err
		case lucid.IsProtocol(err, lucid.ReasonNotAcknowledged):
			return reply, err
		}

		c.log.Debug().Err(err).Str("cmd", frame.Key().String()).Int("attempt", attempt).Msg("retrying")
		lastErr = err
	}

	var te *lucid.TimeoutError
	if errors.As(lastErr, &te) {
		return nil, &lucid.TimeoutError{Reason: lucid.ReasonNoResponse, Attempts: c.cfg.Retries, Partial: te.Partial}
	}
	return nil, lastErr
}

// attempt performs one write and one read
func (c *Controller) attempt(frame *lucid.CommandFrame, n int) (*lucid.ResponseFrame, error) {
	wire, err := c.conn.WriteFrame(frame)
	if err != nil {
		c.record(trace.DirError, frame, n, nil, err)
		return nil, err
	}
	c.log.Debug().Str("cmd", frame.Key().String()).Int("attempt", n).Str("frame", frame.Text()).Msg("tx")
	c.record(trace.DirTX, frame, n, wire, nil)

	line, err := c.conn.ReadLine(c.cfg.Timeout)
	if err != nil {
		var te *lucid.TimeoutError
		if errors.As(err, &te) {
			c.log.Debug().Str("cmd", frame.Key().String()).Int("attempt", n).Int("partial", len(te.Partial)).Msg("timeout")
			c.record(trace.DirTimeout, frame, n, te.Partial, err)
		} else {
			c.record(trace.DirError, frame, n, nil, err)
		}
		return nil, err
	}
	c.log.Debug().Str("cmd", frame.Key().String()).Int("attempt", n).Str("frame", string(line)).Msg("rx")
	c.record(trace.DirRX, frame, n, line, nil)

	reply, err := lucid.Decode(line)
	if err == nil {
		err = lucid.CheckReply(reply, frame)
	}
	return reply, err
}

func (c *Controller) record(dir trace.Direction, frame *lucid.CommandFrame, attempt int, data []byte, err error) {
	if c.cfg.Trace == nil {
		return
	}
	ev := trace.Event{
		Direction: dir,
		Command:   frame.Key().String(),
		Attempt:   attempt,
		Frame:     append([]byte(nil), data...),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if rerr := c.cfg.Trace.Record(ev); rerr != nil {
		c.log.Warn().Err(rerr).Msg("trace record failed")
	}
}

// read sends a Get command and returns its single value. The reply is only
// trusted while the error flag is clear. Caller holds c.mu.
func (c *Controller) read(ctx context.Context, key lucid.CommandKey) (int, error) {
	if err := c.tracker.gate(); err != nil {
		return 0, err
	}
	reply, err := c.exchange(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := c.tracker.gate(); err != nil {
		return 0, err
	}
	return reply.Value()
}

// write sends a Set command and expects a bare acknowledgment. Caller holds c.mu.
func (c *Controller) write(ctx context.Context, key lucid.CommandKey, args ...int) error {
	reply, err := c.exchange(ctx, key, args...)
	if err != nil {
		return err
	}
	if !reply.Ack() {
		return &lucid.ProtocolError{Reason: lucid.ReasonNotAcknowledged, Detail: "reply carries data", Raw: reply.Raw()}
	}
	return nil
}

// CheckErrorFlag reads the device error flag. A zero flag lifts the read gate.
func (c *Controller) CheckErrorFlag(ctx context.Context) (ErrorFlagState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.exchange(ctx, lucid.CmdGetStatus)
	if err != nil {
		return c.tracker.state, err
	}
	raw, err := reply.Value()
	if err != nil {
		return c.tracker.state, err
	}
	c.tracker.observeCheck(byte(raw))
	if raw != 0 {
		c.log.Warn().Int("flag", raw).Msg("device error flag raised")
	}
	return c.tracker.state, nil
}

// ClearErrorFlag clears the device error flag. Reads stay refused until a
// following CheckErrorFlag reports clear.
func (c *Controller) ClearErrorFlag(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, lucid.CmdClearStatus); err != nil {
		return err
	}
	c.tracker.observeClear()
	return nil
}

// Raw sends an arbitrary command and returns the reply as received. Unknown
// keys are allowed; a rejection returns the reply together with the error.
func (c *Controller) Raw(ctx context.Context, key lucid.CommandKey, args ...int) (*lucid.ResponseFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange(ctx, key, args...)
}
