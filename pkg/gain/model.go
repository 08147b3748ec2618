// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

// ErrNotLoaded is returned when the cache has not been read from the device
var ErrNotLoaded = errors.New("gain table not loaded from device")

// Model caches the last values acknowledged by the device.
// It is not safe for concurrent use; the owner serializes access.
type Model struct {
	lists  [2]List
	loaded bool
}

// Load replaces the whole cache with values read from the device
func (m *Model) Load(in, out List) error {
	if in.Stage() != Input || out.Stage() != Output {
		return fmt.Errorf("load: stages out of order (%s, %s)", in.Stage(), out.Stage())
	}
	m.lists[Input] = in
	m.lists[Output] = out
	m.loaded = true
	return nil
}

// Loaded reports whether the cache holds device values
func (m *Model) Loaded() bool {
	return m.loaded
}

// Invalidate drops the cache; the next read must go to the device
func (m *Model) Invalidate() {
	m.loaded = false
}

// List returns the cached list of a stage
func (m *Model) List(stage Stage) (List, error) {
	if !stage.Valid() {
		return List{}, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "stage", Value: stage.String()}
	}
	if !m.loaded {
		return List{}, ErrNotLoaded
	}
	return m.lists[stage], nil
}

// Get returns the decibel string of a cached channel
func (m *Model) Get(stage Stage, ch int) (string, error) {
	l, err := m.List(stage)
	if err != nil {
		return "", err
	}
	return l.DB(ch)
}

// Commit records one acknowledged channel value
func (m *Model) Commit(stage Stage, ch, raw int) error {
	l, err := m.List(stage)
	if err != nil {
		return err
	}
	updated, err := UpdateChannel(l, ch, raw)
	if err != nil {
		return err
	}
	m.lists[stage] = updated
	return nil
}

// With returns the device frame for the cache with one channel replaced.
// The cache itself is not changed.
func (m *Model) With(stage Stage, ch, raw int) ([]int, error) {
	if _, err := m.List(stage); err != nil {
		return nil, err
	}
	lists := m.lists
	updated, err := UpdateChannel(lists[stage], ch, raw)
	if err != nil {
		return nil, err
	}
	lists[stage] = updated
	return FrameValues(lists[Input], lists[Output]), nil
}

// Preset is a recommended gain pairing for a reference level
type Preset struct {
	Name     string
	Label    string
	InputDB  int
	OutputDB int
}

// Reference level presets
var (
	PresetPlus4DBu   = Preset{Name: "+4", Label: "+4 dBu", InputDB: -8, OutputDB: 1}
	PresetMinus10DBV = Preset{Name: "-10", Label: "-10 dBV", InputDB: 4, OutputDB: -11}
)

// Presets lists the known presets
var Presets = []Preset{PresetPlus4DBu, PresetMinus10DBV}

// LookupPreset accepts "+4", "4", "+4dBu", "-10", "-10dBV"
func LookupPreset(name string) (Preset, error) {
	n := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	n = strings.TrimSuffix(strings.TrimSuffix(n, "dbu"), "dbv")
	switch n {
	case "+4", "4":
		return PresetPlus4DBu, nil
	case "-10":
		return PresetMinus10DBV, nil
	}
	return Preset{}, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "preset", Value: name}
}

// Lists returns the uniform input and output lists of the preset
func (p Preset) Lists() (in, out List, err error) {
	inRaw, err := RawFromDB(p.InputDB)
	if err != nil {
		return List{}, List{}, err
	}
	outRaw, err := RawFromDB(p.OutputDB)
	if err != nil {
		return List{}, List{}, err
	}
	if in, err = Uniform(Input, inRaw); err != nil {
		return List{}, List{}, err
	}
	if out, err = Uniform(Output, outRaw); err != nil {
		return List{}, List{}, err
	}
	return in, out, nil
}

func (p Preset) String() string {
	return fmt.Sprintf("%s: IN %s dB OUT %s dB", p.Label, DBString(p.InputDB+Offset), DBString(p.OutputDB+Offset))
}
