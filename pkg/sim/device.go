// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sim simulates an ADA8824 on the far end of a transport.Port.
//
// The simulated unit parses every command it receives, keeps its registers
// and gain table, and answers the way the hardware does. Faults can be
// injected per command to exercise timeouts, malformed replies, rejections,
// the error flag and instance mismatches.
package sim

import (
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/transport"
)

// Fault selects how the simulator mishandles one command
type Fault int

// Faults
const (
	FaultNone          Fault = iota
	FaultDrop                // no reply at all
	FaultGarble              // reply carries a non-hex field
	FaultTruncate            // reply stops mid-frame
	FaultReject              // negative acknowledgment
	FaultFlag                // raise the error flag, then reply
	FaultWrongInstance       // reply from another instance id
	FaultWrongEcho           // reply echoes a different command
)

// FaultFunc decides the fault for each received command. n counts commands
// with the same key, starting at 1.
type FaultFunc func(cmd *lucid.CommandFrame, n int) Fault

// Device is a simulated unit. It implements transport.Port.
type Device struct {
	mu sync.Mutex

	instance  lucid.InstanceID
	framing   transport.Framing
	registers map[lucid.CommandKey]int // keyed by Get command
	gains     []int
	errorFlag byte
	fault     FaultFunc

	in          []byte
	out         []byte
	notify      chan struct{}
	readTimeout time.Duration
	closed      bool

	received []*lucid.CommandFrame
	counts   map[lucid.CommandKey]int
}

// Option configures a Device
type Option func(*Device)

// WithFraming selects the wire framing the simulator speaks
func WithFraming(f transport.Framing) Option {
	return func(d *Device) {
		d.framing = f
	}
}

// WithGains sets the initial 16-field gain table
func WithGains(values []int) Option {
	return func(d *Device) {
		if len(values) == lucid.GainFields {
			d.gains = append([]int(nil), values...)
		}
	}
}

// WithFault installs a fault function
func WithFault(fn FaultFunc) Option {
	return func(d *Device) {
		d.fault = fn
	}
}

// New creates a simulated unit answering as instance
func New(instance lucid.InstanceID, opts ...Option) *Device {
	d := &Device{
		instance:    instance,
		registers:   make(map[lucid.CommandKey]int),
		gains:       make([]int, lucid.GainFields),
		notify:      make(chan struct{}, 1),
		readTimeout: transport.DefaultTimeout,
		counts:      make(map[lucid.CommandKey]int),
	}
	for i := range d.gains {
		d.gains[i] = gain.Offset // 0 dB
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetFault replaces the fault function; nil disables faults
func (d *Device) SetFault(fn FaultFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fault = fn
}

// SetInstance changes the id the unit answers with, as if another unit had
// been connected to the line
func (d *Device) SetInstance(id lucid.InstanceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instance = id
}

// RaiseError sets the device error flag
func (d *Device) RaiseError(flag byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorFlag = flag
}

// ErrorFlag returns the device error flag
func (d *Device) ErrorFlag() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errorFlag
}

// Register returns the value of the register read by a Get command
func (d *Device) Register(get lucid.CommandKey) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registers[get]
}

// SetRegister sets the register read by a Get command
func (d *Device) SetRegister(get lucid.CommandKey, v int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registers[get] = v
}

// Gains returns the 16-field gain table, inputs first
func (d *Device) Gains() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.gains...)
}

// Received returns every command parsed so far
func (d *Device) Received() []*lucid.CommandFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*lucid.CommandFrame(nil), d.received...)
}

// Count returns how many commands with key were received
func (d *Device) Count(key lucid.CommandKey) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[key]
}

// SetReadTimeout implements transport.Port. A negative timeout blocks.
func (d *Device) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readTimeout = t
	return nil
}

// ResetInputBuffer drops replies not read yet
func (d *Device) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = nil
	return nil
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	timeout := d.readTimeout
	d.mu.Unlock()

	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		d.mu.Lock()
		if len(d.out) > 0 {
			n := copy(p, d.out)
			d.out = d.out[n:]
			d.mu.Unlock()
			return n, nil
		}
		if d.closed {
			d.mu.Unlock()
			return 0, io.EOF
		}
		d.mu.Unlock()

		select {
		case <-d.notify:
		case <-expired:
			return 0, nil
		}
	}
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}

	d.in = append(d.in, p...)
	for {
		frame, ok := d.nextFrame()
		if !ok {
			break
		}
		cmd, err := lucid.DecodeCommand(frame)
		if err != nil {
			continue // the unit ignores what it cannot parse
		}
		d.received = append(d.received, cmd)
		d.counts[cmd.Key()]++
		d.out = append(d.out, d.respond(cmd, d.counts[cmd.Key()])...)
	}

	select {
	case d.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.notify)
	}
	return nil
}
