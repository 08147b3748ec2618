// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
)

// snapshot is one full read of the unit
type snapshot struct {
	values  map[lucid.Attribute]string
	errs    map[lucid.Attribute]error
	in, out gain.List
	gainErr error
}

// readSnapshot reads every attribute and both gain lists. Failures are kept
// per attribute so one bad reply does not hide the rest.
func readSnapshot(ctx context.Context, ctl *device.Controller, withGains bool) snapshot {
	snap := snapshot{
		values: make(map[lucid.Attribute]string),
		errs:   make(map[lucid.Attribute]error),
	}
	for _, spec := range lucid.Attributes() {
		v, err := ctl.Get(ctx, spec.Attr)
		if err != nil {
			snap.errs[spec.Attr] = err
			continue
		}
		snap.values[spec.Attr] = v
	}
	if withGains {
		snap.in, snap.out, snap.gainErr = ctl.Gains(ctx)
	}
	return snap
}

// diff lists the attributes whose value changed since prev
func (s snapshot) diff(prev snapshot) []string {
	var changes []string
	for _, spec := range lucid.Attributes() {
		old, had := prev.values[spec.Attr]
		cur, ok := s.values[spec.Attr]
		if ok && had && old != cur {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", spec.Label, old, cur))
		}
	}
	if s.gainErr == nil && prev.gainErr == nil && prev.in.Len() > 0 {
		for _, pair := range [][2]gain.List{{prev.in, s.in}, {prev.out, s.out}} {
			for ch := 0; ch < gain.Channels; ch++ {
				a, _ := pair[0].DB(ch)
				b, _ := pair[1].DB(ch)
				if a != b {
					changes = append(changes, fmt.Sprintf("%s gain ch %d: %s -> %s dB", pair[1].Stage(), ch+1, a, b))
				}
			}
		}
	}
	return changes
}

// resolveAttribute accepts an attribute name or its label
func resolveAttribute(name string) (lucid.AttributeSpec, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, spec := range lucid.Attributes() {
		if n == string(spec.Attr) || n == strings.ToLower(spec.Label) {
			return spec, nil
		}
	}
	var names []string
	for _, spec := range lucid.Attributes() {
		names = append(names, string(spec.Attr))
	}
	return lucid.AttributeSpec{}, fmt.Errorf("unknown attribute %q (valid: %s, mode, gain)", name, strings.Join(names, ", "))
}

func printAttribute(w io.Writer, spec lucid.AttributeSpec, value string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%-20s \033[1;31mERROR\033[0m %v\n", spec.Label+":", err)
		return
	}
	fmt.Fprintf(w, "%-20s %s\n", spec.Label+":", value)
}

func printGains(w io.Writer, in, out gain.List) {
	fmt.Fprintf(w, "%-8s", "Channel")
	for ch := 1; ch <= gain.Channels; ch++ {
		fmt.Fprintf(w, "%6d", ch)
	}
	fmt.Fprintln(w)
	for _, l := range []gain.List{in, out} {
		fmt.Fprintf(w, "%-8s", l.Stage())
		for _, e := range l.Entries() {
			fmt.Fprintf(w, "%6s", e.DB())
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recommended:")
	for _, p := range gain.Presets {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// printOptions lists the options of every attribute
func printOptions(w io.Writer) {
	for _, spec := range lucid.Attributes() {
		fmt.Fprintf(w, "%s (%s):\n", spec.Attr, spec.Label)
		for i, opt := range spec.Options {
			fmt.Fprintf(w, "  %d  %s\n", i, opt)
		}
	}
}
