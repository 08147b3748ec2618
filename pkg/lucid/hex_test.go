// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import "testing"

func TestIntToHex(t *testing.T) {
	tests := []struct {
		v, bits int
		want    string
		wantErr bool
	}{
		{0, 7, "00", false},
		{5, 7, "05", false},
		{0x7F, 7, "7F", false},
		{0x80, 7, "", true},
		{-1, 7, "", true},
		{0xFF, 8, "FF", false},
		{0x1FF, 12, "1FF", false},
		{0xABCD, 16, "ABCD", false},
		{1, 0, "", true},
		{1, 17, "", true},
	}

	for _, tt := range tests {
		got, err := IntToHex(tt.v, tt.bits)
		if (err != nil) != tt.wantErr {
			t.Errorf("IntToHex(%d, %d) error = %v, wantErr %v", tt.v, tt.bits, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("IntToHex(%d, %d) = %q, want %q", tt.v, tt.bits, got, tt.want)
		}
	}
}

func TestHexToInt(t *testing.T) {
	tests := []struct {
		s       string
		want    int
		wantErr bool
	}{
		{"00", 0, false},
		{"7F", 127, false},
		{"7f", 127, false},
		{"aB", 0xAB, false},
		{"FFFF", 0xFFFF, false},
		{"10000", 0, true},
		{"", 0, true},
		{"0G", 0, true},
		{" 1", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		got, err := HexToInt(tt.s)
		if (err != nil) != tt.wantErr {
			t.Errorf("HexToInt(%q) error = %v, wantErr %v", tt.s, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !IsProtocol(err, ReasonMalformedResponse) {
			t.Errorf("HexToInt(%q) error = %v, want MalformedResponse", tt.s, err)
		}
		if got != tt.want {
			t.Errorf("HexToInt(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	for v := 0; v <= DataMax; v++ {
		s, err := IntToHex(v, DataBits)
		if err != nil {
			t.Fatalf("IntToHex(%d) error = %v", v, err)
		}
		if len(s) != FieldWidth {
			t.Fatalf("IntToHex(%d) = %q, want %d digits", v, s, FieldWidth)
		}
		got, err := HexToInt(s)
		if err != nil || got != v {
			t.Fatalf("HexToInt(%q) = %d, %v, want %d", s, got, err, v)
		}
	}
}

func TestParseInstanceID(t *testing.T) {
	tests := []struct {
		s       string
		want    InstanceID
		wantErr bool
	}{
		{"00", 0x00, false},
		{"1", 0x01, false},
		{"0x1F", 0x1F, false},
		{"0X1f", 0x1F, false},
		{" 7F ", 0x7F, false},
		{"80", 0, true},
		{"zz", 0, true},
		{"", 0, true},
		{"0x", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseInstanceID(tt.s)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInstanceID(%q) error = %v, wantErr %v", tt.s, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !IsValue(err) {
			t.Errorf("ParseInstanceID(%q) error = %v, want ValueError", tt.s, err)
		}
		if got != tt.want {
			t.Errorf("ParseInstanceID(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}

	if got := InstanceID(0x0A).String(); got != "0A" {
		t.Errorf("String() = %q, want 0A", got)
	}
}

func TestSysExToText(t *testing.T) {
	if got := string(SysExToText([]byte{0xF0, 0x00, 0x7F})); got != "F0 00 7F" {
		t.Errorf("SysExToText() = %q", got)
	}
	if got := SysExToText(nil); len(got) != 0 {
		t.Errorf("SysExToText(nil) = %q, want empty", got)
	}
}
