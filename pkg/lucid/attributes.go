// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute names a routing or clocking setting of the unit
type Attribute string

// Addressable attributes
const (
	AttrSync          Attribute = "sync"
	AttrMeter         Attribute = "meter"
	AttrDig1Source    Attribute = "dig1"
	AttrAnalogSource  Attribute = "analog_src"
	AttrAESSource     Attribute = "aes_src"
	AttrOpticalSource Attribute = "optical_src"
)

// AttributeSpec maps an attribute onto its register.
//
// The attribute value is (field >> Shift) & Mask of the register read by Get.
// Attributes sharing a register (meter and dig1 live in Mode) are written
// with a read-modify-write that preserves the other bits.
type AttributeSpec struct {
	Attr    Attribute
	Label   string
	Get     CommandKey
	Set     CommandKey
	Shift   uint
	Mask    int
	Options []string
}

var attributeSpecs = []AttributeSpec{
	{
		Attr: AttrSync, Label: "Sync Source",
		Get: CmdGetSync, Set: CmdSetSync, Mask: 0x07,
		Options: []string{"ADAT", "WordClock", "44.1 Internal", "48 Internal", "AES In1", "AES In2", "AES In3", "S/PDIF In"},
	},
	{
		Attr: AttrMeter, Label: "Meter Source",
		Get: CmdGetMode, Set: CmdSetMode, Mask: 0x03,
		Options: []string{"Analog In", "Digital In", "Analog Out", "Digital Out"},
	},
	{
		Attr: AttrDig1Source, Label: "Digital In 1/2",
		Get: CmdGetMode, Set: CmdSetMode, Shift: 2, Mask: 0x01,
		Options: []string{"AES", "S/PDIF"},
	},
	{
		Attr: AttrAnalogSource, Label: "Analog Out Source",
		Get: CmdGetAnalogSrc, Set: CmdSetAnalogSrc, Mask: 0x01,
		Options: []string{"ADAT In", "AES In"},
	},
	{
		Attr: AttrAESSource, Label: "AES Out Source",
		Get: CmdGetAesSrc, Set: CmdSetAesSrc, Mask: 0x01,
		Options: []string{"ADAT In", "Analog In"},
	},
	{
		Attr: AttrOpticalSource, Label: "Optical Out Source",
		Get: CmdGetOptSrc, Set: CmdSetOptSrc, Mask: 0x01,
		Options: []string{"Analog In", "AES In"},
	},
}

// Attributes returns the attribute table in display order
func Attributes() []AttributeSpec {
	out := make([]AttributeSpec, len(attributeSpecs))
	copy(out, attributeSpecs)
	return out
}

// LookupAttribute returns the spec for an attribute name
func LookupAttribute(a Attribute) (AttributeSpec, bool) {
	for _, spec := range attributeSpecs {
		if spec.Attr == a {
			return spec, true
		}
	}
	return AttributeSpec{}, false
}

// Shared reports whether another attribute lives in the same register
func (s AttributeSpec) Shared() bool {
	for _, other := range attributeSpecs {
		if other.Attr != s.Attr && other.Get == s.Get {
			return true
		}
	}
	return false
}

// Extract returns the option index held by a register value
func (s AttributeSpec) Extract(field int) int {
	return (field >> s.Shift) & s.Mask
}

// Insert returns register with the attribute bits replaced by index
func (s AttributeSpec) Insert(register, index int) int {
	cleared := register &^ (s.Mask << s.Shift)
	return cleared | (index&s.Mask)<<s.Shift
}

// Name returns the option name for an index
func (s AttributeSpec) Name(index int) (string, error) {
	if index < 0 || index >= len(s.Options) {
		return "", outOfRange(string(s.Attr), index, 0, len(s.Options)-1)
	}
	return s.Options[index], nil
}

// Index resolves an option given by name (case-insensitive) or by number
func (s AttributeSpec) Index(value string) (int, error) {
	v := strings.TrimSpace(value)
	for i, opt := range s.Options {
		if strings.EqualFold(opt, v) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n >= len(s.Options) {
			return 0, outOfRange(string(s.Attr), n, 0, len(s.Options)-1)
		}
		return n, nil
	}
	return 0, &ValueError{Reason: ReasonUnknownOption, Field: string(s.Attr), Value: value}
}

// ModeValue combines a meter index and a digital-in index into a Mode register value
func ModeValue(meter, dig1 int) (int, error) {
	meterSpec, _ := LookupAttribute(AttrMeter)
	digSpec, _ := LookupAttribute(AttrDig1Source)
	if meter < 0 || meter > meterSpec.Mask {
		return 0, outOfRange(string(AttrMeter), meter, 0, meterSpec.Mask)
	}
	if dig1 < 0 || dig1 > digSpec.Mask {
		return 0, outOfRange(string(AttrDig1Source), dig1, 0, digSpec.Mask)
	}
	return digSpec.Insert(meterSpec.Insert(0, meter), dig1), nil
}

// String implements fmt.Stringer
func (s AttributeSpec) String() string {
	return fmt.Sprintf("%s (%s/%s)", s.Attr, s.Get, s.Set)
}
