// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [ATTR...|mode|gain|all]",
	Short: "Read attributes from the unit",
	Long: `Read routing and clocking attributes, the Mode register or the gain table.

Without arguments (or with "all") every attribute and both gain lists are read.

Attributes: sync, meter, dig1, analog_src, aes_src, optical_src`,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"all"}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	failed := false

	for _, arg := range args {
		switch arg {
		case "all":
			snap := readSnapshot(ctx, s.Controller, true)
			for _, spec := range lucid.Attributes() {
				printAttribute(os.Stdout, spec, snap.values[spec.Attr], snap.errs[spec.Attr])
				failed = failed || snap.errs[spec.Attr] != nil
			}
			fmt.Println()
			if snap.gainErr != nil {
				fmt.Printf("Gains: \033[1;31mERROR\033[0m %v\n", snap.gainErr)
				failed = true
				continue
			}
			printGains(os.Stdout, snap.in, snap.out)

		case "gain", "gains":
			in, out, err := s.Gains(ctx)
			if err != nil {
				return err
			}
			printGains(os.Stdout, in, out)

		case "mode":
			mode, err := s.Mode(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %d (0x%02X)\n", "Mode:", mode, mode)

		default:
			spec, err := resolveAttribute(arg)
			if err != nil {
				return err
			}
			value, err := s.Get(ctx, spec.Attr)
			printAttribute(os.Stdout, spec, value, err)
			failed = failed || err != nil
		}
	}

	if failed {
		return fmt.Errorf("some reads failed")
	}
	return nil
}
