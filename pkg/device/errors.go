// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
)

// AttrError adds the attribute and operation to a failure
type AttrError struct {
	Attr lucid.Attribute
	Op   string // "get" or "set"
	Err  error
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Attr, e.Err)
}

func (e *AttrError) Unwrap() error { return e.Err }

// GainWriteError reports a channel write that failed partway through a bulk
// write. Written holds the channels acknowledged before the failure; channels
// after Channel were never sent. The device may hold values the cache does
// not, so the caller should read the table again.
type GainWriteError struct {
	Stage     gain.Stage
	Channel   int // zero-based
	Attempted int // raw value sent for Channel
	Written   []gain.Entry
	Err       error
}

func (e *GainWriteError) Error() string {
	written := make([]string, len(e.Written))
	for i, w := range e.Written {
		written[i] = fmt.Sprintf("%d", w.Channel)
	}
	return fmt.Sprintf("write %s gain channel %d (%s dB): %v (written: [%s])",
		e.Stage, e.Channel, gain.DBString(e.Attempted), e.Err, strings.Join(written, " "))
}

func (e *GainWriteError) Unwrap() error { return e.Err }
