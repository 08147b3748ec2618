// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import "fmt"

// CommandKey identifies a device operation
type CommandKey byte

// Set commands (host → device)
const (
	CmdSetMode       CommandKey = 0x20
	CmdSetSync       CommandKey = 0x21
	CmdSetOptSrc     CommandKey = 0x22
	CmdSetAnalogSrc  CommandKey = 0x23
	CmdSetAesSrc     CommandKey = 0x24
	CmdClearStatus   CommandKey = 0x2F
	CmdSetAnalogGain CommandKey = 0x30
)

// Get commands (host → device, value reply)
const (
	CmdGetMode       CommandKey = 0x60
	CmdGetSync       CommandKey = 0x61
	CmdGetOptSrc     CommandKey = 0x62
	CmdGetAnalogSrc  CommandKey = 0x63
	CmdGetAesSrc     CommandKey = 0x64
	CmdGetStatus     CommandKey = 0x6F
	CmdGetAnalogGain CommandKey = 0x70
)

// GainFields is the number of fields in an analog gain frame (8 in + 8 out)
const GainFields = 16

// CommandSpec describes the shape of one command and its reply
type CommandSpec struct {
	Key   CommandKey
	Name  string
	Args  int // argument fields carried by the command
	Reply int // data fields carried by the reply
}

var commandSpecs = map[CommandKey]CommandSpec{
	CmdSetMode:       {CmdSetMode, "SetMode", 1, 0},
	CmdSetSync:       {CmdSetSync, "SetSync", 1, 0},
	CmdSetOptSrc:     {CmdSetOptSrc, "SetOptSrc", 1, 0},
	CmdSetAnalogSrc:  {CmdSetAnalogSrc, "SetAnalogSrc", 1, 0},
	CmdSetAesSrc:     {CmdSetAesSrc, "SetAesSrc", 1, 0},
	CmdClearStatus:   {CmdClearStatus, "ClearStatus", 0, 0},
	CmdSetAnalogGain: {CmdSetAnalogGain, "SetAnalogGain", GainFields, 0},
	CmdGetMode:       {CmdGetMode, "GetMode", 0, 1},
	CmdGetSync:       {CmdGetSync, "GetSync", 0, 1},
	CmdGetOptSrc:     {CmdGetOptSrc, "GetOptSrc", 0, 1},
	CmdGetAnalogSrc:  {CmdGetAnalogSrc, "GetAnalogSrc", 0, 1},
	CmdGetAesSrc:     {CmdGetAesSrc, "GetAesSrc", 0, 1},
	CmdGetStatus:     {CmdGetStatus, "GetStatus", 0, 1},
	CmdGetAnalogGain: {CmdGetAnalogGain, "GetAnalogGain", 0, GainFields},
}

// Lookup returns the spec for a known command key
func Lookup(key CommandKey) (CommandSpec, bool) {
	spec, ok := commandSpecs[key]
	return spec, ok
}

// Commands returns every known command spec ordered by key
func Commands() []CommandSpec {
	specs := make([]CommandSpec, 0, len(commandSpecs))
	for k := 0; k <= 0xFF; k++ {
		if spec, ok := commandSpecs[CommandKey(k)]; ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

// String returns the command name, or the hex key for unknown commands
func (k CommandKey) String() string {
	if spec, ok := commandSpecs[k]; ok {
		return spec.Name
	}
	return fmt.Sprintf("Cmd%02X", byte(k))
}

// IsGet reports whether the command reads device state
func (k CommandKey) IsGet() bool {
	return k&0x40 != 0
}

// Getter returns the Get command paired with a Set command
func (k CommandKey) Getter() CommandKey {
	return k | 0x40
}
