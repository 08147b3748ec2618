// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

// Framing selects how frames are delimited on the wire
type Framing int

// Framings
const (
	FramingText  Framing = iota // ASCII hex fields, one frame per line
	FramingSysEx                // raw bytes, frame ends with 0xF7
)

func (f Framing) String() string {
	switch f {
	case FramingText:
		return "text"
	case FramingSysEx:
		return "sysex"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// ParseFraming accepts "text" or "sysex"
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "hex":
		return FramingText, nil
	case "sysex", "binary", "raw":
		return FramingSysEx, nil
	}
	return 0, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "framing", Value: s}
}

// DefaultTimeout bounds a single read
const DefaultTimeout = time.Second

// Endpoint identifies where and how to connect
type Endpoint struct {
	Path          string // serial device or ws:// / wss:// URL
	Baud          int
	Timeout       time.Duration
	Framing       Framing
	Username      string
	Password      string
	SkipTLSVerify bool
}

// IsWebSocket reports whether the endpoint is a WebSocket bridge URL
func (e Endpoint) IsWebSocket() bool {
	return strings.HasPrefix(e.Path, "ws://") || strings.HasPrefix(e.Path, "wss://")
}

func (e Endpoint) String() string {
	if e.IsWebSocket() {
		return fmt.Sprintf("WebSocket: %s (%s)", e.Path, e.Framing)
	}
	return fmt.Sprintf("Serial: %s @ %d baud (%s)", e.Path, e.Baud, e.Framing)
}

// Conn is an open link that reads and writes whole frames.
// It is not safe for concurrent use; the device controller serializes it.
type Conn struct {
	port    Port
	framing Framing
	timeout time.Duration
	info    string

	buf     []byte
	pending []byte

	closeOnce sync.Once
	closed    bool
	closeErr  error
}

// Open opens the endpoint. Serial paths go through go.bug.st/serial and
// ws:// or wss:// URLs through the WebSocket bridge.
func Open(ep Endpoint) (*Conn, error) {
	if ep.Path == "" {
		return nil, &lucid.ConnectionError{Reason: lucid.ReasonOpenFailed, Err: fmt.Errorf("no device path given")}
	}
	if ep.Baud <= 0 {
		ep.Baud = DefaultBaudRate
	}

	var (
		port Port
		err  error
	)
	if ep.IsWebSocket() {
		port, err = OpenWebSocketPort(ep.Path, ep.Username, ep.Password, ep.SkipTLSVerify)
	} else {
		port, err = OpenSerialPort(ep.Path, ep.Baud)
	}
	if err != nil {
		return nil, err
	}

	return NewConn(port, ep.Framing, ep.Timeout, ep.String()), nil
}

// NewConn wraps an already open port
func NewConn(port Port, framing Framing, timeout time.Duration, info string) *Conn {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Conn{
		port:    port,
		framing: framing,
		timeout: timeout,
		info:    info,
		buf:     make([]byte, 256),
	}
}

// Framing returns the wire framing
func (c *Conn) Framing() Framing {
	return c.framing
}

// Timeout returns the configured read timeout
func (c *Conn) Timeout() time.Duration {
	return c.timeout
}

// Info describes the connection for display
func (c *Conn) Info() string {
	return c.info
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	return c.closed
}

// WriteFrame writes one encoded frame. Text frames get the line terminator.
func (c *Conn) WriteFrame(f *lucid.CommandFrame) ([]byte, error) {
	var wire []byte
	switch c.framing {
	case FramingSysEx:
		wire = f.SysEx()
	default:
		wire = f.Line()
	}
	return wire, c.Write(wire)
}

// Write writes raw bytes in full
func (c *Conn) Write(p []byte) error {
	if c.closed {
		return &lucid.ConnectionError{Reason: lucid.ReasonClosed, Path: c.info}
	}
	for len(p) > 0 {
		n, err := c.port.Write(p)
		if err != nil {
			return &lucid.ConnectionError{Reason: lucid.ReasonIO, Path: c.info, Err: err}
		}
		p = p[n:]
	}
	return nil
}

// ReadLine returns the next complete frame, waiting at most timeout (the
// configured timeout when zero). Text frames are returned without the line
// terminator; SysEx frames are returned rendered as hex text so both framings
// decode the same way.
//
// On timeout it returns a *lucid.TimeoutError holding whatever partial frame
// had arrived; those bytes are dropped from the connection.
func (c *Conn) ReadLine(timeout time.Duration) ([]byte, error) {
	if c.closed {
		return nil, &lucid.ConnectionError{Reason: lucid.ReasonClosed, Path: c.info}
	}
	if timeout <= 0 {
		timeout = c.timeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if frame, ok := c.takeFrame(); ok {
			return frame, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			partial := c.pending
			c.pending = nil
			return nil, &lucid.TimeoutError{Reason: lucid.ReasonNoResponse, Partial: partial}
		}

		if err := c.port.SetReadTimeout(remaining); err != nil {
			return nil, &lucid.ConnectionError{Reason: lucid.ReasonIO, Path: c.info, Err: err}
		}
		n, err := c.port.Read(c.buf)
		if n > 0 {
			c.pending = append(c.pending, c.buf[:n]...)
			continue
		}
		if err != nil {
			return nil, &lucid.ConnectionError{Reason: lucid.ReasonIO, Path: c.info, Err: err}
		}
	}
}

// takeFrame removes the first complete frame from the pending buffer
func (c *Conn) takeFrame() ([]byte, bool) {
	switch c.framing {
	case FramingSysEx:
		end := bytes.IndexByte(c.pending, lucid.EndByte)
		if end < 0 {
			return nil, false
		}
		frame := c.pending[:end+1]
		c.pending = append([]byte(nil), c.pending[end+1:]...)
		if start := bytes.IndexByte(frame, lucid.StartByte); start > 0 {
			frame = frame[start:]
		}
		return lucid.SysExToText(frame), true

	default:
		for {
			end := bytes.IndexByte(c.pending, '\n')
			if end < 0 {
				return nil, false
			}
			line := bytes.TrimRight(c.pending[:end], "\r")
			line = append([]byte(nil), line...)
			c.pending = append([]byte(nil), c.pending[end+1:]...)
			if len(bytes.TrimSpace(line)) == 0 {
				continue // blank line between frames
			}
			return line, true
		}
	}
}

// Discard drops pending input so a late reply cannot be taken for the next one
func (c *Conn) Discard() error {
	if c.closed {
		return &lucid.ConnectionError{Reason: lucid.ReasonClosed, Path: c.info}
	}
	c.pending = nil
	if r, ok := c.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return &lucid.ConnectionError{Reason: lucid.ReasonIO, Path: c.info, Err: err}
		}
	}
	return nil
}

// Close closes the port. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed = true
		c.closeErr = c.port.Close()
	})
	return c.closeErr
}
