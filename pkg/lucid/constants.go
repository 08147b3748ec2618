// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lucid implements the remote control protocol of the Lucid ADA8824
// audio converter.
//
// Frames are SysEx-shaped field sequences carried either as ASCII hex lines
// or as raw bytes. This package builds command frames, validates and decodes
// response frames, converts between integers and fixed-width hex, and
// enumerates every command key and device attribute the unit exposes.
package lucid

// Frame markers and identifiers
const (
	StartByte = 0xF0
	EndByte   = 0xF7
	ModelID   = 0x58
)

// ManufacturerID is the three-field SysEx manufacturer prefix
var ManufacturerID = [3]byte{0x00, 0x00, 0x5E}

// Response status tokens
const (
	StatusReply    = 0x05 // normal reply
	StatusFlagged  = 0x06 // reply sent while the device error flag is raised
	StatusRejected = 0x07 // command refused
)

// Field encoding
const (
	FieldWidth = 2    // hex digits per field
	DataBits   = 7    // usable bits per data field
	DataMax    = 0x7F // largest encodable data value
	FillerByte = 0x00 // sent as the only argument of argument-less commands
)

// Text framing
const (
	LineTerminator = "\r\n"
	FieldSeparator = " "
)

// Frame layout offsets
const (
	offsetInstance = 5
	offsetKey      = 6 // command frames
	offsetStatus   = 6 // response frames
	offsetEcho     = 7
	offsetData     = 8

	headerFields = 6 // start, manufacturer(3), model, instance
)

// MinResponseFields is the field count of a reply with no data
const MinResponseFields = offsetData + 1

// InstanceID distinguishes units sharing one control line
type InstanceID byte

// DefaultInstance is the factory instance id
const DefaultInstance InstanceID = 0x00
