// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"fmt"

	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
)

// loadGains reads both gain lists into the cache. Caller holds c.mu.
func (c *Controller) loadGains(ctx context.Context) error {
	if err := c.tracker.gate(); err != nil {
		return err
	}
	reply, err := c.exchange(ctx, lucid.CmdGetAnalogGain)
	if err != nil {
		return err
	}
	if err := c.tracker.gate(); err != nil {
		return err
	}
	in, out, err := gain.SplitFrame(reply.Data())
	if err != nil {
		return &lucid.ProtocolError{Reason: lucid.ReasonMalformedResponse, Detail: err.Error(), Raw: reply.Raw()}
	}
	return c.gains.Load(in, out)
}

// Gains reads both gain lists from the device
func (c *Controller) Gains(ctx context.Context) (in, out gain.List, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadGains(ctx); err != nil {
		return gain.List{}, gain.List{}, fmt.Errorf("read gains: %w", err)
	}
	in, _ = c.gains.List(gain.Input)
	out, _ = c.gains.List(gain.Output)
	return in, out, nil
}

// GetGain reads one channel (zero-based) from the device and returns its
// decibel string
func (c *Controller) GetGain(ctx context.Context, stage gain.Stage, ch int) (string, error) {
	if err := gain.CheckChannel(ch); err != nil {
		return "", err
	}
	if !stage.Valid() {
		return "", &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "stage", Value: stage.String()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadGains(ctx); err != nil {
		return "", fmt.Errorf("read %s gain channel %d: %w", stage, ch, err)
	}
	return c.gains.Get(stage, ch)
}

// CachedGains returns the last acknowledged lists without device I/O
func (c *Controller) CachedGains() (in, out gain.List, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in, err = c.gains.List(gain.Input); err != nil {
		return gain.List{}, gain.List{}, err
	}
	out, err = c.gains.List(gain.Output)
	return in, out, err
}

// SetGainChannels sets the listed channels (zero-based) of one stage to raw
// and returns the updated list. Channels not listed are not written. The
// whole request is validated before the first write.
func (c *Controller) SetGainChannels(ctx context.Context, stage gain.Stage, channels []int, raw int) (gain.List, error) {
	if !stage.Valid() {
		return gain.List{}, &lucid.ValueError{Reason: lucid.ReasonUnknownOption, Field: "stage", Value: stage.String()}
	}
	if err := gain.CheckRaw(raw); err != nil {
		return gain.List{}, err
	}
	for _, ch := range channels {
		if err := gain.CheckChannel(ch); err != nil {
			return gain.List{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.cachedList(ctx, stage)
	if err != nil {
		return gain.List{}, err
	}
	target, err := gain.SetChannels(current, channels, raw)
	if err != nil {
		return gain.List{}, err
	}

	var entries []gain.Entry
	seen := make(map[int]bool, len(channels))
	for _, ch := range channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		entries = append(entries, gain.Entry{Stage: stage, Channel: ch, Raw: raw})
	}

	if err := c.writeEntries(ctx, entries); err != nil {
		return gain.List{}, err
	}
	if updated, _ := c.gains.List(stage); !updated.Equal(target) {
		return updated, fmt.Errorf("set %s gains: cache %s does not match %s", stage, updated, target)
	}
	return target, nil
}

// WriteGainList writes every channel of list to the device in channel order.
// The first failed channel aborts the write with a *GainWriteError; channels
// already written stay written.
func (c *Controller) WriteGainList(ctx context.Context, list gain.List) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.cachedList(ctx, list.Stage()); err != nil {
		return err
	}
	return c.writeEntries(ctx, list.Entries())
}

// cachedList returns the cache for stage, reading it first if needed.
// Caller holds c.mu.
func (c *Controller) cachedList(ctx context.Context, stage gain.Stage) (gain.List, error) {
	if !c.gains.Loaded() {
		if err := c.loadGains(ctx); err != nil {
			return gain.List{}, fmt.Errorf("read gains before write: %w", err)
		}
	}
	return c.gains.List(stage)
}

// writeEntries sends one SetAnalogGain per entry. Each frame carries the
// acknowledged cache with that entry applied; an entry enters the cache only
// once the device acknowledges it. Caller holds c.mu.
func (c *Controller) writeEntries(ctx context.Context, entries []gain.Entry) error {
	var written []gain.Entry
	for _, e := range entries {
		fail := func(err error) error {
			c.log.Error().Err(err).Str("stage", e.Stage.String()).Int("channel", e.Channel).Msg("gain write failed")
			return &GainWriteError{
				Stage:     e.Stage,
				Channel:   e.Channel,
				Attempted: e.Raw,
				Written:   written,
				Err:       err,
			}
		}

		frame, err := c.gains.With(e.Stage, e.Channel, e.Raw)
		if err != nil {
			return fail(err)
		}
		if err := c.write(ctx, lucid.CmdSetAnalogGain, frame...); err != nil {
			return fail(err)
		}
		if err := c.gains.Commit(e.Stage, e.Channel, e.Raw); err != nil {
			return fail(err)
		}
		written = append(written, e)
		c.log.Debug().Str("stage", e.Stage.String()).Int("channel", e.Channel).Str("db", e.DB()).Msg("gain written")
	}
	return nil
}

// ApplyPreset writes a reference level preset to both stages in one frame
func (c *Controller) ApplyPreset(ctx context.Context, p gain.Preset) error {
	in, out, err := p.Lists()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, lucid.CmdSetAnalogGain, gain.FrameValues(in, out)...); err != nil {
		c.gains.Invalidate()
		return fmt.Errorf("apply preset %s: %w", p.Label, err)
	}
	c.log.Info().Str("preset", p.Label).Msg("preset applied")
	return c.gains.Load(in, out)
}
