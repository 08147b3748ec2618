// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/spf13/cobra"
)

var listOptions bool

var setCmd = &cobra.Command{
	Use:   "set ATTR VALUE",
	Short: "Set an attribute on the unit",
	Long: `Set a routing or clocking attribute by option name or index.

  glucid set sync ADAT
  glucid set aes_src "Analog In"
  glucid set optical_src 1
  glucid set mode 5          (meter source and digital input 1 at once)
  glucid set mode "Analog Out" S/PDIF

Use --list to print every attribute with its options.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if listOptions {
			return nil
		}
		if len(args) > 0 && args[0] == "mode" {
			return cobra.RangeArgs(2, 3)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().BoolVar(&listOptions, "list", false, "List attributes and their options")
}

func runSet(cmd *cobra.Command, args []string) error {
	if listOptions {
		printOptions(os.Stdout)
		return nil
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	name, value := args[0], args[1]

	if name == "mode" {
		mode, err := parseMode(args[1:])
		if err != nil {
			return err
		}
		if err := s.SetMeterAndDig1(ctx, mode); err != nil {
			return err
		}
		fmt.Printf("Mode set to %d\n", mode)
		return nil
	}

	spec, err := resolveAttribute(name)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, spec.Attr, value); err != nil {
		return err
	}

	// Read back what the unit now reports
	got, err := s.Get(ctx, spec.Attr)
	printAttribute(os.Stdout, spec, got, err)
	return nil
}

// parseMode reads either a raw Mode register value or a meter source
// followed by a digital input 1 source
func parseMode(values []string) (int, error) {
	if len(values) == 1 {
		mode, err := strconv.Atoi(values[0])
		if err != nil {
			return 0, fmt.Errorf("mode must be a number 0-7: %q", values[0])
		}
		return mode, nil
	}

	meterSpec, _ := lucid.LookupAttribute(lucid.AttrMeter)
	digSpec, _ := lucid.LookupAttribute(lucid.AttrDig1Source)
	meter, err := meterSpec.Index(values[0])
	if err != nil {
		return 0, err
	}
	dig1, err := digSpec.Index(values[1])
	if err != nil {
		return 0, err
	}
	return lucid.ModeValue(meter, dig1)
}
