// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trace records protocol exchanges to CBOR capture files.
//
// A capture is a sequence of CBOR-encoded Events. Every recorder stamps its
// events with a session id so that several sessions appended to one file can
// be told apart.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Direction of a captured frame
type Direction uint8

// Directions
const (
	DirTX      Direction = 1 // host → device
	DirRX      Direction = 2 // device → host
	DirTimeout Direction = 3 // no reply within the read timeout
	DirError   Direction = 4 // exchange failed before or after I/O
)

func (d Direction) String() string {
	switch d {
	case DirTX:
		return "TX"
	case DirRX:
		return "RX"
	case DirTimeout:
		return "TIMEOUT"
	case DirError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one captured step of an exchange
type Event struct {
	Session   string    `cbor:"1,keyasint"`
	Seq       uint64    `cbor:"2,keyasint"`
	Time      time.Time `cbor:"3,keyasint"`
	Direction Direction `cbor:"4,keyasint"`
	Command   string    `cbor:"5,keyasint,omitempty"`
	Attempt   int       `cbor:"6,keyasint,omitempty"`
	Frame     []byte    `cbor:"7,keyasint,omitempty"`
	Error     string    `cbor:"8,keyasint,omitempty"`
}

// Recorder appends events to a writer. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	enc     *cbor.Encoder
	session uuid.UUID
	seq     uint64
}

var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// NewRecorder records to w with a fresh session id
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		w:       w,
		enc:     encMode.NewEncoder(w),
		session: uuid.New(),
	}
}

// Create opens (appending) a capture file
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	r := NewRecorder(f)
	r.closer = f
	return r, nil
}

// Session returns the recorder's session id
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Record stamps and writes one event
func (r *Recorder) Record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ev.Session = r.session.String()
	ev.Seq = r.seq
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if err := r.enc.Encode(ev); err != nil {
		return fmt.Errorf("record event %d: %w", ev.Seq, err)
	}
	return nil
}

// Close closes the underlying file when the recorder owns one
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ReadAll decodes every event from a capture stream
func ReadAll(rd io.Reader) ([]Event, error) {
	dec := cbor.NewDecoder(rd)
	var events []Event
	for {
		var ev Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}

// Open reads a whole capture file
func Open(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	defer f.Close()
	return ReadAll(f)
}
