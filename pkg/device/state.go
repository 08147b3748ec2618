// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import "github.com/Thermoquad/glucid/pkg/lucid"

// FlagPhase is where the error flag tracker stands
type FlagPhase int

// Tracker phases
const (
	FlagClear        FlagPhase = iota // last check reported zero
	FlagRaised                        // device reported the flag
	FlagClearPending                  // clear acknowledged, re-check not done yet
)

func (p FlagPhase) String() string {
	switch p {
	case FlagClear:
		return "clear"
	case FlagRaised:
		return "raised"
	case FlagClearPending:
		return "cleared, re-check pending"
	default:
		return "unknown"
	}
}

// ErrorFlagState is the tracked device error flag
type ErrorFlagState struct {
	Phase FlagPhase
	Raw   byte // last raw flag value observed
}

// Flagged reports whether the device last reported a raised flag
func (s ErrorFlagState) Flagged() bool {
	return s.Phase == FlagRaised
}

// flagTracker changes state only on explicit observations; nothing resets it
// behind the caller's back.
type flagTracker struct {
	state ErrorFlagState
}

// observeReply records the status of any reply
func (t *flagTracker) observeReply(r *lucid.ResponseFrame) {
	if r.Flagged() {
		t.state = ErrorFlagState{Phase: FlagRaised, Raw: r.Status()}
	}
}

// observeCheck records the value returned by GetStatus
func (t *flagTracker) observeCheck(raw byte) {
	if raw != 0 {
		t.state = ErrorFlagState{Phase: FlagRaised, Raw: raw}
		return
	}
	t.state = ErrorFlagState{Phase: FlagClear, Raw: 0}
}

// observeClear records an acknowledged ClearStatus
func (t *flagTracker) observeClear() {
	t.state = ErrorFlagState{Phase: FlagClearPending, Raw: t.state.Raw}
}

// gate returns the StateError blocking reads, or nil
func (t *flagTracker) gate() error {
	if t.state.Phase == FlagClear {
		return nil
	}
	return &lucid.StateError{Reason: lucid.ReasonDeviceFlagged, Flag: t.state.Raw}
}
