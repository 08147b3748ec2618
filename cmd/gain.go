// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/spf13/cobra"
)

var (
	gainInput  bool
	gainOutput bool
	gainDB     string
)

var gainCmd = &cobra.Command{
	Use:   "gain",
	Short: "Show the analog gain table",
	Long: `Read both analog gain lists (8 input and 8 output channels) from the unit.

Gains run from -96 to +31 dB in 1 dB steps.`,
	Args: cobra.NoArgs,
	RunE: runGainShow,
}

var gainSetCmd = &cobra.Command{
	Use:   "set (--input|--output) --db N CH... | all",
	Short: "Set the gain of one or more channels",
	Long: `Set analog gain channels (1-8) of one stage to the same value.

Each channel is written and acknowledged in turn. If a write fails, the
channels before it keep their new value and the ones after it are not sent;
the table is read back and printed either way.

  glucid gain set --input --db -8 1 2 3 4
  glucid gain set --output --db +1 all`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGainSet,
}

var gainPresetCmd = &cobra.Command{
	Use:   "preset (+4|-10)",
	Short: "Apply a reference level preset to all channels",
	Long: `Apply a recommended gain pairing to every input and output channel.

  +4 dBu:   inputs -8 dB, outputs +1 dB
  -10 dBV:  inputs +4 dB, outputs -11 dB

Use "--" before a negative preset: glucid gain preset -- -10`,
	Args: cobra.ExactArgs(1),
	RunE: runGainPreset,
}

func init() {
	rootCmd.AddCommand(gainCmd)
	gainCmd.AddCommand(gainSetCmd)
	gainCmd.AddCommand(gainPresetCmd)

	gainSetCmd.Flags().BoolVar(&gainInput, "input", false, "Set input channels")
	gainSetCmd.Flags().BoolVar(&gainOutput, "output", false, "Set output channels")
	gainSetCmd.Flags().StringVar(&gainDB, "db", "", "Gain in dB (-96 to +31)")
	gainSetCmd.MarkFlagsMutuallyExclusive("input", "output")
	gainSetCmd.MarkFlagsOneRequired("input", "output")
	_ = gainSetCmd.MarkFlagRequired("db")
}

func runGainShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	in, out, err := s.Gains(cmd.Context())
	if err != nil {
		return err
	}
	printGains(os.Stdout, in, out)
	return nil
}

// parseChannels turns 1-based channel arguments into zero-based indices
func parseChannels(args []string) ([]int, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		chans := make([]int, gain.Channels)
		for i := range chans {
			chans[i] = i
		}
		return chans, nil
	}

	chans := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 || n > gain.Channels {
			return nil, fmt.Errorf("invalid channel %q (valid: 1-%d or all)", a, gain.Channels)
		}
		chans = append(chans, n-1)
	}
	return chans, nil
}

func runGainSet(cmd *cobra.Command, args []string) error {
	stage := gain.Input
	if gainOutput {
		stage = gain.Output
	}
	raw, err := gain.ParseDB(gainDB)
	if err != nil {
		return err
	}
	chans, err := parseChannels(args)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	list, err := s.SetGainChannels(ctx, stage, chans, raw)
	if err != nil {
		var we *device.GainWriteError
		if errors.As(err, &we) {
			fmt.Fprintf(os.Stderr, "Write stopped at %s channel %d: %v\n", we.Stage, we.Channel+1, we.Err)
			for _, e := range we.Written {
				fmt.Fprintf(os.Stderr, "  written: %s\n", e)
			}
			// Show what the unit actually holds now
			if in, out, rerr := s.Gains(ctx); rerr == nil {
				printGains(os.Stdout, in, out)
			}
		}
		return err
	}

	fmt.Printf("%s\n", list)
	return nil
}

func runGainPreset(cmd *cobra.Command, args []string) error {
	preset, err := gain.LookupPreset(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ApplyPreset(cmd.Context(), preset); err != nil {
		return err
	}
	fmt.Printf("Applied %s\n", preset)
	return nil
}
