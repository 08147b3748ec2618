// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"fmt"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

func attrSpec(attr lucid.Attribute) (lucid.AttributeSpec, error) {
	spec, ok := lucid.LookupAttribute(attr)
	if !ok {
		return spec, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "attribute", Value: string(attr)}
	}
	return spec, nil
}

// Get returns the option name an attribute is set to
func (c *Controller) Get(ctx context.Context, attr lucid.Attribute) (string, error) {
	spec, err := attrSpec(attr)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	register, err := c.read(ctx, spec.Get)
	if err != nil {
		return "", &AttrError{Attr: attr, Op: "get", Err: err}
	}
	name, err := spec.Name(spec.Extract(register))
	if err != nil {
		return "", &AttrError{Attr: attr, Op: "get", Err: err}
	}
	return name, nil
}

// Set selects an option by name or index. Attributes sharing a register are
// written with a read-modify-write, so they are refused while the error flag
// is set.
func (c *Controller) Set(ctx context.Context, attr lucid.Attribute, value string) error {
	spec, err := attrSpec(attr)
	if err != nil {
		return err
	}
	index, err := spec.Index(value)
	if err != nil {
		return &AttrError{Attr: attr, Op: "set", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	register := index
	if spec.Shared() {
		current, err := c.read(ctx, spec.Get)
		if err != nil {
			return &AttrError{Attr: attr, Op: "set", Err: err}
		}
		register = spec.Insert(current, index)
	}

	if err := c.write(ctx, spec.Set, register); err != nil {
		return &AttrError{Attr: attr, Op: "set", Err: err}
	}
	c.log.Info().Str("attr", string(attr)).Str("value", spec.Options[index]).Msg("set")
	return nil
}

// Mode returns the raw Mode register (meter source and digital input 1)
func (c *Controller) Mode(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx, lucid.CmdGetMode)
}

// SetMeterAndDig1 writes the whole Mode register: bits 0-1 select the meter
// source, bit 2 the digital input 1 source.
func (c *Controller) SetMeterAndDig1(ctx context.Context, mode int) error {
	if mode < 0 || mode > 7 {
		return &lucid.ValueError{Reason: lucid.ReasonOutOfRange, Field: "mode", Value: fmt.Sprintf("%d", mode), Min: 0, Max: 7}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, lucid.CmdSetMode, mode)
}

// SyncSource reads the clock sync source
func (c *Controller) SyncSource(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrSync)
}

// SetSyncSource selects the clock sync source by name or index
func (c *Controller) SetSyncSource(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrSync, value)
}

// AESSource reads what feeds the AES outputs
func (c *Controller) AESSource(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrAESSource)
}

// SetAESSource selects what feeds the AES outputs
func (c *Controller) SetAESSource(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrAESSource, value)
}

// OpticalSource reads what feeds the optical (ADAT) outputs
func (c *Controller) OpticalSource(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrOpticalSource)
}

// SetOpticalSource selects what feeds the optical (ADAT) outputs
func (c *Controller) SetOpticalSource(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrOpticalSource, value)
}

// AnalogSource reads what feeds the analog outputs
func (c *Controller) AnalogSource(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrAnalogSource)
}

// SetAnalogSource selects what feeds the analog outputs
func (c *Controller) SetAnalogSource(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrAnalogSource, value)
}

// Dig1Source reads the digital input 1 format
func (c *Controller) Dig1Source(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrDig1Source)
}

// SetDig1Source selects the digital input 1 format, keeping the meter bits
func (c *Controller) SetDig1Source(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrDig1Source, value)
}

// MeterSource reads the front panel meter source
func (c *Controller) MeterSource(ctx context.Context) (string, error) {
	return c.Get(ctx, lucid.AttrMeter)
}

// SetMeterSource selects the meter source, keeping the digital input 1 bit
func (c *Controller) SetMeterSource(ctx context.Context, value string) error {
	return c.Set(ctx, lucid.AttrMeter, value)
}
