// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"errors"
	"fmt"
)

// Reason narrows an error category to the condition that produced it
type Reason string

// Error reasons
const (
	ReasonOpenFailed        Reason = "OpenFailed"
	ReasonClosed            Reason = "Closed"
	ReasonIO                Reason = "IOError"
	ReasonDeviceMismatch    Reason = "DeviceMismatch"
	ReasonNoResponse        Reason = "NoResponse"
	ReasonMalformedResponse Reason = "MalformedResponse"
	ReasonUnexpectedCommand Reason = "UnexpectedCommand"
	ReasonNotAcknowledged   Reason = "NotAcknowledged"
	ReasonOutOfRange        Reason = "OutOfRange"
	ReasonInvalidChannel    Reason = "InvalidChannel"
	ReasonUnknownOption     Reason = "UnknownOption"
	ReasonDeviceFlagged     Reason = "DeviceFlaggedError"
)

// ConnectionError reports an open failure, a lost link, or a device mismatch.
// A connection that produced one must be reopened.
type ConnectionError struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("connection error (%s)", e.Reason)
	if e.Path != "" {
		msg += " on " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that no complete frame arrived before the deadline
type TimeoutError struct {
	Reason   Reason
	Attempts int
	Partial  []byte // bytes received before the deadline, if any
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout (%s)", e.Reason)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if len(e.Partial) > 0 {
		msg += fmt.Sprintf(", %d partial byte(s)", len(e.Partial))
	}
	return msg
}

// ProtocolError reports a response that could not be trusted. Raw holds the
// offending line exactly as it was read.
type ProtocolError struct {
	Reason Reason
	Detail string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Raw) > 0 {
		msg += fmt.Sprintf(" [raw %q]", e.Raw)
	}
	return msg
}

// ValueError reports a caller-supplied value rejected before any I/O
type ValueError struct {
	Reason Reason
	Field  string
	Value  string
	Min    int
	Max    int
}

func (e *ValueError) Error() string {
	if e.Reason == ReasonOutOfRange || e.Reason == ReasonInvalidChannel {
		return fmt.Sprintf("invalid %s %s (%s): valid range is %d-%d", e.Field, e.Value, e.Reason, e.Min, e.Max)
	}
	return fmt.Sprintf("invalid %s %q (%s)", e.Field, e.Value, e.Reason)
}

// StateError reports a request refused because of tracked device state
type StateError struct {
	Reason Reason
	Flag   byte
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error (%s): device error flag 0x%02X must be cleared and re-checked", e.Reason, e.Flag)
}

// outOfRange builds the ValueError used by every range check
func outOfRange(field string, value, min, max int) *ValueError {
	return &ValueError{
		Reason: ReasonOutOfRange,
		Field:  field,
		Value:  fmt.Sprintf("%d", value),
		Min:    min,
		Max:    max,
	}
}

// malformed builds the ProtocolError returned for any frame that fails validation
func malformed(raw []byte, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{
		Reason: ReasonMalformedResponse,
		Detail: fmt.Sprintf(format, args...),
		Raw:    append([]byte(nil), raw...),
	}
}

// IsConnection reports whether err is a ConnectionError, optionally of a specific reason
func IsConnection(err error, reason ...Reason) bool {
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		return false
	}
	return matchReason(ce.Reason, reason)
}

// IsTimeout reports whether err is a TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is a ProtocolError, optionally of a specific reason
func IsProtocol(err error, reason ...Reason) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return matchReason(pe.Reason, reason)
}

// IsValue reports whether err is a ValueError
func IsValue(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

// IsState reports whether err is a StateError
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func matchReason(got Reason, want []Reason) bool {
	if len(want) == 0 {
		return true
	}
	for _, r := range want {
		if got == r {
			return true
		}
	}
	return false
}
