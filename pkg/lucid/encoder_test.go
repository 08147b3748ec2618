// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"bytes"
	"testing"
)

func TestEncode_Text(t *testing.T) {
	tests := []struct {
		name     string
		key      CommandKey
		instance InstanceID
		args     []int
		want     string
	}{
		{
			name:     "get sync carries filler",
			key:      CmdGetSync,
			instance: 0x01,
			want:     "F0 00 00 5E 58 01 61 00 F7",
		},
		{
			name:     "set sync",
			key:      CmdSetSync,
			instance: 0x01,
			args:     []int{2},
			want:     "F0 00 00 5E 58 01 21 02 F7",
		},
		{
			name:     "set mode top value",
			key:      CmdSetMode,
			instance: 0x7F,
			args:     []int{7},
			want:     "F0 00 00 5E 58 7F 20 07 F7",
		},
		{
			name:     "clear status",
			key:      CmdClearStatus,
			instance: 0x00,
			want:     "F0 00 00 5E 58 00 2F 00 F7",
		},
		{
			name:     "unknown key passes arguments through",
			key:      CommandKey(0x55),
			instance: 0x02,
			args:     []int{0x10, 0x7F},
			want:     "F0 00 00 5E 58 02 55 10 7F F7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Encode(tt.key, tt.instance, tt.args...)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := f.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
			if got := string(f.Line()); got != tt.want+"\r\n" {
				t.Errorf("Line() = %q, want %q", got, tt.want+"\r\n")
			}
			if f.Key() != tt.key {
				t.Errorf("Key() = %v, want %v", f.Key(), tt.key)
			}
			if f.Instance() != tt.instance {
				t.Errorf("Instance() = %v, want %v", f.Instance(), tt.instance)
			}
		})
	}
}

func TestEncode_SysEx(t *testing.T) {
	f := MustEncode(CmdSetSync, 0x01, 3)
	want := []byte{0xF0, 0x00, 0x00, 0x5E, 0x58, 0x01, 0x21, 0x03, 0xF7}
	if !bytes.Equal(f.SysEx(), want) {
		t.Errorf("SysEx() = % X, want % X", f.SysEx(), want)
	}
	if got := string(SysExToText(f.SysEx())); got != f.Text() {
		t.Errorf("SysExToText(SysEx()) = %q, want %q", got, f.Text())
	}
}

func TestEncode_AnalogGain(t *testing.T) {
	args := make([]int, GainFields)
	for i := range args {
		args[i] = 0x60
	}
	f, err := Encode(CmdSetAnalogGain, 0x01, args...)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(f.Args()) != GainFields {
		t.Errorf("Args() has %d fields, want %d", len(f.Args()), GainFields)
	}
	// start + manufacturer(3) + model + instance + key + 16 + end
	if len(f.Fields()) != 24 {
		t.Errorf("Fields() has %d fields, want 24", len(f.Fields()))
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		key      CommandKey
		instance InstanceID
		args     []int
	}{
		{"key above 7 bits", CommandKey(0x80), 0x00, nil},
		{"instance above 7 bits", CmdGetSync, InstanceID(0x80), nil},
		{"argument above 7 bits", CmdSetSync, 0x00, []int{0x80}},
		{"negative argument", CmdSetSync, 0x00, []int{-1}},
		{"missing argument", CmdSetSync, 0x00, nil},
		{"extra argument", CmdGetSync, 0x00, []int{0}},
		{"short gain frame", CmdSetAnalogGain, 0x00, make([]int, GainFields-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Encode(tt.key, tt.instance, tt.args...)
			if err == nil {
				t.Fatalf("Encode() = %q, want error", f.Text())
			}
			if !IsValue(err) {
				t.Errorf("Encode() error = %v, want ValueError", err)
			}
		})
	}
}

func TestMustEncode_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustEncode() did not panic on an invalid argument")
		}
	}()
	MustEncode(CmdSetSync, 0x00, 0xFF)
}

func TestEncodeReply(t *testing.T) {
	fields, err := EncodeReply(0x01, StatusReply, CmdGetSync, 3)
	if err != nil {
		t.Fatalf("EncodeReply() error = %v", err)
	}
	want := "F0 00 00 5E 58 01 05 61 03 F7"
	if got := string(SysExToText(fields)); got != want {
		t.Errorf("EncodeReply() = %q, want %q", got, want)
	}

	if _, err := EncodeReply(0x01, StatusReply, CmdGetSync, 0x80); err == nil {
		t.Error("EncodeReply() accepted a data field above 7 bits")
	}
}

func TestCommandKey(t *testing.T) {
	if got := CmdGetAnalogGain.String(); got != "GetAnalogGain" {
		t.Errorf("String() = %q, want GetAnalogGain", got)
	}
	if got := CommandKey(0x55).String(); got != "Cmd55" {
		t.Errorf("String() = %q, want Cmd55", got)
	}

	pairs := map[CommandKey]CommandKey{
		CmdSetMode:       CmdGetMode,
		CmdSetSync:       CmdGetSync,
		CmdSetOptSrc:     CmdGetOptSrc,
		CmdSetAnalogSrc:  CmdGetAnalogSrc,
		CmdSetAesSrc:     CmdGetAesSrc,
		CmdClearStatus:   CmdGetStatus,
		CmdSetAnalogGain: CmdGetAnalogGain,
	}
	for set, get := range pairs {
		if set.IsGet() {
			t.Errorf("%s.IsGet() = true", set)
		}
		if !get.IsGet() {
			t.Errorf("%s.IsGet() = false", get)
		}
		if set.Getter() != get {
			t.Errorf("%s.Getter() = %s, want %s", set, set.Getter(), get)
		}
	}
}

func TestCommands_Ordered(t *testing.T) {
	specs := Commands()
	if len(specs) != 14 {
		t.Fatalf("Commands() returned %d specs, want 14", len(specs))
	}
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Key >= specs[i].Key {
			t.Errorf("Commands() not ordered at %d: %s before %s", i, specs[i-1].Key, specs[i].Key)
		}
	}
	for _, spec := range specs {
		got, ok := Lookup(spec.Key)
		if !ok || got != spec {
			t.Errorf("Lookup(%s) = %+v, %v", spec.Key, got, ok)
		}
	}
	if _, ok := Lookup(CommandKey(0x55)); ok {
		t.Error("Lookup(0x55) found an undocumented key")
	}
}
