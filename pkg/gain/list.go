// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gain

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

// List holds every channel of one stage, addressed by channel index
type List struct {
	stage Stage
	raw   [Channels]int
}

// NewList builds a list from exactly Channels raw values
func NewList(stage Stage, raws []int) (List, error) {
	if !stage.Valid() {
		return List{}, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "stage", Value: stage.String()}
	}
	if len(raws) != Channels {
		return List{}, &lucid.ValueError{
			Reason: lucid.ReasonOutOfRange,
			Field:  "gain list length",
			Value:  fmt.Sprintf("%d", len(raws)),
			Min:    Channels,
			Max:    Channels,
		}
	}
	l := List{stage: stage}
	for ch, r := range raws {
		if err := CheckRaw(r); err != nil {
			return List{}, fmt.Errorf("channel %d: %w", ch, err)
		}
		l.raw[ch] = r
	}
	return l, nil
}

// Uniform returns a list with every channel at raw
func Uniform(stage Stage, raw int) (List, error) {
	raws := make([]int, Channels)
	for i := range raws {
		raws[i] = raw
	}
	return NewList(stage, raws)
}

// Stage returns the list's stage
func (l List) Stage() Stage {
	return l.stage
}

// Len is always Channels
func (l List) Len() int {
	return Channels
}

// Raw returns the raw value of a channel
func (l List) Raw(ch int) (int, error) {
	if err := CheckChannel(ch); err != nil {
		return 0, err
	}
	return l.raw[ch], nil
}

// DB returns the decibel string of a channel
func (l List) DB(ch int) (string, error) {
	r, err := l.Raw(ch)
	if err != nil {
		return "", err
	}
	return DBString(r), nil
}

// Raws returns the raw values in channel order
func (l List) Raws() []int {
	out := make([]int, Channels)
	copy(out, l.raw[:])
	return out
}

// Entries returns the list as entries in channel order
func (l List) Entries() []Entry {
	out := make([]Entry, Channels)
	for ch, r := range l.raw {
		out[ch] = Entry{Stage: l.stage, Channel: ch, Raw: r}
	}
	return out
}

// Equal reports whether two lists hold the same stage and values
func (l List) Equal(o List) bool {
	return l.stage == o.stage && l.raw == o.raw
}

func (l List) String() string {
	parts := make([]string, Channels)
	for ch, r := range l.raw {
		parts[ch] = DBString(r)
	}
	return fmt.Sprintf("%s[%s]", l.stage, strings.Join(parts, " "))
}

// UpdateChannel returns a copy of l with one channel replaced
func UpdateChannel(l List, ch, raw int) (List, error) {
	if err := CheckChannel(ch); err != nil {
		return l, err
	}
	if err := CheckRaw(raw); err != nil {
		return l, err
	}
	l.raw[ch] = raw
	return l, nil
}

// SetChannels returns a copy of l with every listed channel set to raw.
// All indices and the value are validated before anything changes.
func SetChannels(l List, channels []int, raw int) (List, error) {
	if err := CheckRaw(raw); err != nil {
		return l, err
	}
	for _, ch := range channels {
		if err := CheckChannel(ch); err != nil {
			return l, err
		}
	}
	for _, ch := range channels {
		l.raw[ch] = raw
	}
	return l, nil
}

// FrameValues lays out both stages the way the device frame carries them
func FrameValues(in, out List) []int {
	return append(in.Raws(), out.Raws()...)
}

// SplitFrame is the inverse of FrameValues
func SplitFrame(values []int) (in, out List, err error) {
	if len(values) != 2*Channels {
		return List{}, List{}, &lucid.ValueError{
			Reason: lucid.ReasonOutOfRange,
			Field:  "gain frame length",
			Value:  fmt.Sprintf("%d", len(values)),
			Min:    2 * Channels,
			Max:    2 * Channels,
		}
	}
	if in, err = NewList(Input, values[:Channels]); err != nil {
		return List{}, List{}, err
	}
	if out, err = NewList(Output, values[Channels:]); err != nil {
		return List{}, List{}, err
	}
	return in, out, nil
}
