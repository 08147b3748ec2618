// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"fmt"
	"strings"
)

// IntToHex encodes v as uppercase hex, zero-padded to at least FieldWidth
// digits. v must fit in bits; nothing is ever truncated.
func IntToHex(v int, bits int) (string, error) {
	if bits <= 0 || bits > 16 {
		return "", fmt.Errorf("unsupported field width: %d bits", bits)
	}
	max := 1<<uint(bits) - 1
	if v < 0 || v > max {
		return "", outOfRange("value", v, 0, max)
	}
	width := (bits + 3) / 4
	if width < FieldWidth {
		width = FieldWidth
	}
	return fmt.Sprintf("%0*X", width, v), nil
}

// HexToInt parses a hex field. Every character must be a hex digit.
func HexToInt(s string) (int, error) {
	if s == "" {
		return 0, malformed([]byte(s), "empty hex field")
	}
	v := 0
	for i := 0; i < len(s); i++ {
		d, ok := hexDigit(s[i])
		if !ok {
			return 0, malformed([]byte(s), "non-hex character %q at offset %d", s[i], i)
		}
		v = v<<4 | d
		if v > 0xFFFF {
			return 0, malformed([]byte(s), "hex field too wide")
		}
	}
	return v, nil
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	}
	return 0, false
}

// IsHex reports whether s is non-empty and made only of hex digits
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if _, ok := hexDigit(s[i]); !ok {
			return false
		}
	}
	return true
}

// ParseInstanceID parses an instance id such as "01" or "0x1F"
func ParseInstanceID(s string) (InstanceID, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if !IsHex(trimmed) {
		return 0, &ValueError{Reason: ReasonOutOfRange, Field: "instance id", Value: s, Min: 0, Max: DataMax}
	}
	v, err := HexToInt(trimmed)
	if err != nil || v > DataMax {
		return 0, &ValueError{Reason: ReasonOutOfRange, Field: "instance id", Value: s, Min: 0, Max: DataMax}
	}
	return InstanceID(v), nil
}

// String returns the two-digit hex form used on the wire
func (id InstanceID) String() string {
	return fmt.Sprintf("%02X", byte(id))
}

// SysExToText renders a raw SysEx frame as hex text fields
func SysExToText(frame []byte) []byte {
	var b strings.Builder
	for i, c := range frame {
		if i > 0 {
			b.WriteString(FieldSeparator)
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	return []byte(b.String())
}
