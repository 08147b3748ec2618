// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"fmt"
	"strings"
)

// FormatStatus returns the human-readable name for a status token
func FormatStatus(status byte) string {
	switch status {
	case StatusReply:
		return "REPLY"
	case StatusFlagged:
		return "REPLY_FLAGGED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats a command frame into a human-readable string
func FormatCommand(f *CommandFrame) string {
	result := fmt.Sprintf("%s (0x%02X) id=%s", f.Key(), byte(f.Key()), f.Instance())
	if spec, ok := Lookup(f.Key()); ok && spec.Args == 0 {
		return result
	}
	return result + " args=" + formatFields(f.Args())
}

// FormatResponse formats a decoded reply, naming attribute options when the
// echoed command reads one
func FormatResponse(r *ResponseFrame) string {
	if !r.Valid() {
		return fmt.Sprintf("INVALID %q", r.Raw())
	}

	timestamp := r.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s %s (0x%02X) id=%s",
		timestamp, FormatStatus(r.Status()), r.Echo(), byte(r.Echo()), r.Instance())

	data := r.Data()
	if len(data) == 0 {
		return result
	}
	result += " data=" + formatFields(data)

	if len(data) == 1 {
		var names []string
		for _, spec := range attributeSpecs {
			if spec.Get != r.Echo() {
				continue
			}
			if name, err := spec.Name(spec.Extract(data[0])); err == nil {
				names = append(names, fmt.Sprintf("%s=%s", spec.Attr, name))
			}
		}
		if len(names) > 0 {
			result += " (" + strings.Join(names, ", ") + ")"
		}
	}
	return result
}

// FormatLine decodes and formats a captured text line of either direction
func FormatLine(line []byte) string {
	if reply, err := Decode(line); err == nil {
		return FormatResponse(reply)
	}
	if cmd, err := DecodeCommand(line); err == nil {
		return FormatCommand(cmd)
	}
	return fmt.Sprintf("UNPARSED %q", strings.TrimSpace(string(line)))
}

func formatFields(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
