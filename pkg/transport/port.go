// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport carries protocol frames over a serial port or a
// WebSocket serial bridge.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Port is the byte link beneath a Conn.
//
// Read must return (0, nil) once the read timeout elapses without data, the
// way go.bug.st/serial ports behave.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// inputResetter is implemented by ports that can drop buffered input
type inputResetter interface {
	ResetInputBuffer() error
}

// DefaultBaudRate is the factory rate of the RS232 remote port
const DefaultBaudRate = 9600

// OpenSerialPort opens a serial device at 8N1
func OpenSerialPort(portName string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &lucid.ConnectionError{
			Reason: lucid.ReasonOpenFailed,
			Path:   portName,
			Err:    err,
		}
	}

	return port, nil
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketPort adapts a WebSocket serial bridge to Port.
//
// A single reader goroutine pumps binary messages into a channel so that a
// read timeout never touches the underlying connection; gorilla connections
// cannot be read again after a deadline fires.
type WebSocketPort struct {
	conn    *websocket.Conn
	msgs    chan []byte
	done    chan struct{}
	timeout time.Duration

	mu      sync.Mutex
	buf     []byte
	readErr error
	once    sync.Once
}

func newWebSocketPort(conn *websocket.Conn) *WebSocketPort {
	w := &WebSocketPort{
		conn:    conn,
		msgs:    make(chan []byte, 64),
		done:    make(chan struct{}),
		timeout: time.Second,
	}
	go w.pump()
	return w
}

func (w *WebSocketPort) pump() {
	defer close(w.msgs)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		select {
		case w.msgs <- data:
		case <-w.done:
			return
		}
	}
}

// SetReadTimeout sets how long Read waits for the next message
func (w *WebSocketPort) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	w.timeout = t
	w.mu.Unlock()
	return nil
}

func (w *WebSocketPort) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	timeout := w.timeout
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-w.msgs:
		if !ok {
			w.mu.Lock()
			err := w.readErr
			w.mu.Unlock()
			if err == nil {
				err = ErrConnectionClosed
			}
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		n := copy(p, data)
		if n < len(data) {
			w.mu.Lock()
			w.buf = append(w.buf, data[n:]...)
			w.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (w *WebSocketPort) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ResetInputBuffer drops buffered and queued messages
func (w *WebSocketPort) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()
	for {
		select {
		case _, ok := <-w.msgs:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (w *WebSocketPort) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// OpenWebSocketPort dials a WebSocket serial bridge with optional HTTP Basic auth
func OpenWebSocketPort(wsURL, username, password string, skipSSLVerify bool) (Port, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, &lucid.ConnectionError{Reason: lucid.ReasonOpenFailed, Path: wsURL, Err: err}
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, &lucid.ConnectionError{
			Reason: lucid.ReasonOpenFailed,
			Path:   wsURL,
			Err:    fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme),
		}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, &lucid.ConnectionError{Reason: lucid.ReasonOpenFailed, Path: wsURL, Err: err}
	}

	return newWebSocketPort(conn), nil
}
