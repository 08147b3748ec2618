// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"bytes"
	"time"
)

// splitFields validates a text frame and returns its field values.
// Every field must be exactly FieldWidth hex digits.
func splitFields(raw []byte) ([]byte, error) {
	tokens := bytes.Fields(raw)
	if len(tokens) == 0 {
		return nil, malformed(raw, "empty frame")
	}

	fields := make([]byte, len(tokens))
	for i, tok := range tokens {
		if len(tok) != FieldWidth {
			return nil, malformed(raw, "field %d %q is not %d hex digits", i, tok, FieldWidth)
		}
		v, err := HexToInt(string(tok))
		if err != nil {
			return nil, malformed(raw, "field %d %q is not hex", i, tok)
		}
		fields[i] = byte(v)
	}
	return fields, nil
}

// checkHeader validates start marker, manufacturer, model and end marker
func checkHeader(raw, fields []byte, minFields int) error {
	if len(fields) < minFields {
		return malformed(raw, "short frame: %d fields, need at least %d", len(fields), minFields)
	}
	if fields[0] != StartByte {
		return malformed(raw, "missing start byte")
	}
	if fields[len(fields)-1] != EndByte {
		return malformed(raw, "missing end byte")
	}
	if !bytes.Equal(fields[1:4], ManufacturerID[:]) {
		return malformed(raw, "manufacturer id % X", fields[1:4])
	}
	if fields[4] != ModelID {
		return malformed(raw, "model id %02X", fields[4])
	}
	return nil
}

// Decode validates and decodes a text response line.
//
// The returned frame is never nil; on error it is marked invalid and only
// carries the raw line. The data width must match the reply width declared
// for the echoed command. Instance ids are not compared here.
func Decode(raw []byte) (*ResponseFrame, error) {
	line := bytes.TrimRight(raw, "\r\n")
	frame := &ResponseFrame{raw: append([]byte(nil), line...), timestamp: time.Now()}

	fields, err := splitFields(line)
	if err != nil {
		return frame, err
	}
	if err := checkHeader(line, fields, MinResponseFields); err != nil {
		return frame, err
	}

	status := fields[offsetStatus]
	switch status {
	case StatusReply, StatusFlagged, StatusRejected:
	default:
		return frame, malformed(line, "unknown status %02X", status)
	}

	echo := CommandKey(fields[offsetEcho])
	dataFields := fields[offsetData : len(fields)-1]
	data := make([]int, len(dataFields))
	for i, d := range dataFields {
		if d > DataMax {
			return frame, malformed(line, "data field %d %02X exceeds %d bits", i, d, DataBits)
		}
		data[i] = int(d)
	}

	if spec, ok := Lookup(echo); ok {
		rejectedEmpty := status == StatusRejected && len(data) == 0
		if len(data) != spec.Reply && !rejectedEmpty {
			return frame, malformed(line, "%s reply has %d data fields, expected %d", spec.Name, len(data), spec.Reply)
		}
	}

	frame.valid = true
	frame.instance = InstanceID(fields[offsetInstance])
	frame.status = status
	frame.echo = echo
	frame.data = data
	return frame, nil
}

// DecodeCommand decodes a text command line. The simulator uses it to parse
// what the host sent, and the formatter to describe captured frames.
func DecodeCommand(raw []byte) (*CommandFrame, error) {
	line := bytes.TrimRight(raw, "\r\n")
	fields, err := splitFields(line)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(line, fields, headerFields+3); err != nil {
		return nil, err
	}

	key := CommandKey(fields[offsetKey])
	args := append([]byte(nil), fields[offsetKey+1:len(fields)-1]...)
	for i, a := range args {
		if a > DataMax {
			return nil, malformed(line, "argument %d %02X exceeds %d bits", i, a, DataBits)
		}
	}

	if spec, ok := Lookup(key); ok {
		want := spec.Args
		if want == 0 {
			want = 1 // filler
		}
		if len(args) != want {
			return nil, malformed(line, "%s carries %d arguments, expected %d", spec.Name, len(args), want)
		}
	}

	return &CommandFrame{key: key, instance: InstanceID(fields[offsetInstance]), args: args}, nil
}
