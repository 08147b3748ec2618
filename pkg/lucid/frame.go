// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"strings"
	"time"
)

// CommandFrame is an encoded outbound command. It is immutable once built.
type CommandFrame struct {
	key      CommandKey
	instance InstanceID
	args     []byte
}

// Key returns the command key
func (f *CommandFrame) Key() CommandKey {
	return f.key
}

// Instance returns the addressed unit
func (f *CommandFrame) Instance() InstanceID {
	return f.instance
}

// Args returns a copy of the argument fields
func (f *CommandFrame) Args() []int {
	out := make([]int, len(f.args))
	for i, a := range f.args {
		out[i] = int(a)
	}
	return out
}

// Fields returns every field of the frame from start to end marker
func (f *CommandFrame) Fields() []byte {
	fields := make([]byte, 0, headerFields+2+len(f.args))
	fields = append(fields, StartByte)
	fields = append(fields, ManufacturerID[:]...)
	fields = append(fields, ModelID, byte(f.instance), byte(f.key))
	fields = append(fields, f.args...)
	return append(fields, EndByte)
}

// Text returns the frame as space-separated hex fields without terminator
func (f *CommandFrame) Text() string {
	return string(SysExToText(f.Fields()))
}

// Line returns the text frame with the line terminator appended
func (f *CommandFrame) Line() []byte {
	return []byte(f.Text() + LineTerminator)
}

// SysEx returns the frame as raw bytes
func (f *CommandFrame) SysEx() []byte {
	return f.Fields()
}

// ResponseFrame is one decoded reply. Valid is false when decoding failed, in
// which case only Raw is meaningful.
type ResponseFrame struct {
	raw       []byte
	valid     bool
	instance  InstanceID
	status    byte
	echo      CommandKey
	data      []int
	timestamp time.Time
}

// Raw returns the line as received
func (r *ResponseFrame) Raw() []byte {
	return r.raw
}

// Valid reports whether the frame passed validation
func (r *ResponseFrame) Valid() bool {
	return r.valid
}

// Instance returns the instance id the device answered with
func (r *ResponseFrame) Instance() InstanceID {
	return r.instance
}

// Status returns the status token
func (r *ResponseFrame) Status() byte {
	return r.status
}

// Echo returns the command key the device is answering
func (r *ResponseFrame) Echo() CommandKey {
	return r.echo
}

// Data returns a copy of the decoded data fields
func (r *ResponseFrame) Data() []int {
	out := make([]int, len(r.data))
	copy(out, r.data)
	return out
}

// Timestamp returns the decode time
func (r *ResponseFrame) Timestamp() time.Time {
	return r.timestamp
}

// Flagged reports whether the device error flag was raised when it replied
func (r *ResponseFrame) Flagged() bool {
	return r.status == StatusFlagged
}

// Rejected reports a negative acknowledgment
func (r *ResponseFrame) Rejected() bool {
	return r.status == StatusRejected
}

// Ack is the success marker of a confirmation-only reply
func (r *ResponseFrame) Ack() bool {
	return r.valid && r.status != StatusRejected && len(r.data) == 0
}

// Value returns the single data field of a value reply
func (r *ResponseFrame) Value() (int, error) {
	if !r.valid {
		return 0, malformed(r.raw, "frame failed validation")
	}
	if len(r.data) != 1 {
		return 0, malformed(r.raw, "expected 1 data field, got %d", len(r.data))
	}
	return r.data[0], nil
}

// String returns the raw text of the frame
func (r *ResponseFrame) String() string {
	return strings.TrimSpace(string(r.raw))
}
