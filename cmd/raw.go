// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/spf13/cobra"
)

var (
	rawCount int
	rawList  bool
)

var rawCmd = &cobra.Command{
	Use:   "raw KEY [ARG...]",
	Short: "Send a raw command key and display the reply",
	Long: `Send an arbitrary command key with hex arguments and print the decoded reply.

Keys and arguments are hex bytes (00-7F). Keys outside the known command set
are sent as given, which is useful for exploring undocumented commands.

  glucid raw 60            (GetMode)
  glucid raw 21 03         (SetSync 48 Internal)
  glucid raw 4A 00 --count 5

Use --list to print the known command set.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if rawList {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
	rawCmd.Flags().IntVar(&rawCount, "count", 1, "Number of times to send the command")
	rawCmd.Flags().BoolVar(&rawList, "list", false, "List the known commands")
}

func runRaw(cmd *cobra.Command, args []string) error {
	if rawList {
		for _, spec := range lucid.Commands() {
			kind := "set"
			if spec.Key.IsGet() {
				kind = "get"
			}
			fmt.Printf("%02X  %-14s %s  args=%-2d reply=%d\n", byte(spec.Key), spec.Name, kind, spec.Args, spec.Reply)
		}
		return nil
	}

	values := make([]int, len(args))
	for i, a := range args {
		v, err := lucid.HexToInt(a)
		if err != nil || v > lucid.DataMax {
			return fmt.Errorf("invalid byte %q (valid: 00-7F)", a)
		}
		values[i] = v
	}
	key := lucid.CommandKey(values[0])

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("glucid - Raw Command\n")
	fmt.Printf("Connection: %s\n\n", s.Info())

	frame, err := lucid.Encode(key, s.Instance(), values[1:]...)
	if err != nil {
		return err
	}

	for i := 0; i < rawCount; i++ {
		fmt.Printf("TX %s\n   %s\n", frame.Text(), lucid.FormatCommand(frame))

		reply, err := s.Raw(cmd.Context(), key, values[1:]...)
		if reply != nil {
			fmt.Printf("RX %s\n   %s\n", reply, lucid.FormatResponse(reply))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			if lucid.IsConnection(err) {
				return err
			}
		}
		fmt.Println()
	}
	return nil
}
