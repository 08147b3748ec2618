// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gain models the analog gain table of the ADA8824.
//
// Each stage (input, output) has a fixed number of channels holding a raw
// device value. The decibel form is always derived from the raw value.
// Lists are values: every update returns a new list.
package gain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

// Stage is a gain-affecting point in the channel path
type Stage int

// Stages
const (
	Input Stage = iota
	Output
)

// Stages lists every stage in device frame order
var Stages = []Stage{Input, Output}

// Range constants
const (
	Channels = 8    // channels per stage
	MinRaw   = 0x00 // lowest raw value
	MaxRaw   = 0x7F // highest raw value
	Offset   = 96   // raw value of 0 dB
	MinDB    = MinRaw - Offset
	MaxDB    = MaxRaw - Offset
)

func (s Stage) String() string {
	switch s {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ParseStage accepts "input"/"in" and "output"/"out"
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	}
	return 0, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "stage", Value: s}
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	return s == Input || s == Output
}

// DBString maps a raw value to its decibel string: "+N" for N >= 0, "-N" otherwise
func DBString(raw int) string {
	db := raw - Offset
	if db >= 0 {
		return "+" + strconv.Itoa(db)
	}
	return strconv.Itoa(db)
}

// ParseDB is the inverse of DBString. It also accepts unsigned and " dB" forms.
func ParseDB(s string) (int, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(strings.TrimSuffix(v, "dB"), "db")
	v = strings.TrimSpace(v)
	db, err := strconv.Atoi(v)
	if err != nil {
		return 0, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "gain", Value: s}
	}
	return RawFromDB(db)
}

// RawFromDB converts a decibel value to a raw value
func RawFromDB(db int) (int, error) {
	if db < MinDB || db > MaxDB {
		return 0, &lucid.ValueError{
			Reason: lucid.ReasonOutOfRange,
			Field:  "gain dB",
			Value:  strconv.Itoa(db),
			Min:    MinDB,
			Max:    MaxDB,
		}
	}
	return db + Offset, nil
}

// CheckRaw validates a raw gain value
func CheckRaw(raw int) error {
	if raw < MinRaw || raw > MaxRaw {
		return &lucid.ValueError{
			Reason: lucid.ReasonOutOfRange,
			Field:  "gain",
			Value:  strconv.Itoa(raw),
			Min:    MinRaw,
			Max:    MaxRaw,
		}
	}
	return nil
}

// CheckChannel validates a zero-based channel index
func CheckChannel(ch int) error {
	if ch < 0 || ch >= Channels {
		return &lucid.ValueError{
			Reason: lucid.ReasonInvalidChannel,
			Field:  "channel",
			Value:  strconv.Itoa(ch),
			Min:    0,
			Max:    Channels - 1,
		}
	}
	return nil
}

// Entry is one channel of one stage
type Entry struct {
	Stage   Stage
	Channel int
	Raw     int
}

// DB returns the decibel string of the entry
func (e Entry) DB() string {
	return DBString(e.Raw)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %d: %s dB", e.Stage, e.Channel+1, e.DB())
}
