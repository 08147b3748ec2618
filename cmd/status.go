// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the device error flag",
	Long: `Read the device error flag.

While the flag is raised, glucid refuses to trust values read from the unit.
Clear it with "glucid status clear", which also checks it again.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the device error flag and check it again",
	Args:  cobra.NoArgs,
	RunE:  runStatusClear,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.AddCommand(statusClearCmd)
}

func printFlagState(state device.ErrorFlagState) {
	if state.Flagged() {
		fmt.Printf("Error flag: \033[1;31mRAISED\033[0m (0x%02X)\n", state.Raw)
		return
	}
	fmt.Printf("Error flag: \033[1;32m%s\033[0m\n", state.Phase)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	state, err := s.CheckErrorFlag(cmd.Context())
	if err != nil {
		return err
	}
	printFlagState(state)
	return nil
}

func runStatusClear(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if err := s.ClearErrorFlag(ctx); err != nil {
		return err
	}
	state, err := s.CheckErrorFlag(ctx)
	if err != nil {
		return err
	}
	printFlagState(state)
	return nil
}
