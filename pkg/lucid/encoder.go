// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import "fmt"

// Encode builds a command frame for the given unit.
//
// Known commands must be given exactly the number of arguments their spec
// declares; argument-less commands carry a single filler field. Unknown keys
// are encoded as given so undocumented commands can be explored.
func Encode(key CommandKey, instance InstanceID, args ...int) (*CommandFrame, error) {
	if byte(key) > DataMax {
		return nil, outOfRange("command key", int(key), 0, DataMax)
	}
	if byte(instance) > DataMax {
		return nil, outOfRange("instance id", int(instance), 0, DataMax)
	}

	if spec, ok := Lookup(key); ok && len(args) != spec.Args {
		return nil, &ValueError{
			Reason: ReasonOutOfRange,
			Field:  fmt.Sprintf("%s argument count", spec.Name),
			Value:  fmt.Sprintf("%d", len(args)),
			Min:    spec.Args,
			Max:    spec.Args,
		}
	}

	fields := make([]byte, 0, len(args)+1)
	for i, a := range args {
		if _, err := IntToHex(a, DataBits); err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", key, i, err)
		}
		fields = append(fields, byte(a))
	}
	if len(fields) == 0 {
		fields = append(fields, FillerByte)
	}

	return &CommandFrame{key: key, instance: instance, args: fields}, nil
}

// MustEncode is Encode for frames known to be valid; it panics on error
func MustEncode(key CommandKey, instance InstanceID, args ...int) *CommandFrame {
	f, err := Encode(key, instance, args...)
	if err != nil {
		panic(err)
	}
	return f
}

// EncodeReply builds the fields of a reply the way the unit produces them.
// Render them with SysExToText for text framing.
func EncodeReply(instance InstanceID, status byte, echo CommandKey, data ...int) ([]byte, error) {
	fields := make([]byte, 0, MinResponseFields+len(data))
	fields = append(fields, StartByte)
	fields = append(fields, ManufacturerID[:]...)
	fields = append(fields, ModelID, byte(instance), status, byte(echo))
	for i, d := range data {
		if _, err := IntToHex(d, DataBits); err != nil {
			return nil, fmt.Errorf("reply data %d: %w", i, err)
		}
		fields = append(fields, byte(d))
	}
	fields = append(fields, EndByte)
	return fields, nil
}
