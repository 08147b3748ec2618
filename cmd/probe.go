// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the connection by reading the Mode register",
	Long: `Send GetMode to the unit and wait for a valid reply.

The request is retried like any other (--retries attempts of --timeout each).

Exit codes:
  0 - Valid reply received
  1 - No valid reply within the retry budget
  2 - Connection error (including a reply from another instance id)

Useful for checking cabling, baud rate and the instance id.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("glucid - Probe\n")
	fmt.Printf("Connection: %s\n", s.Info())
	fmt.Printf("Instance: %s\n", s.Instance())
	fmt.Printf("Budget: %d x %s\n", settings.Retries, settings.Timeout)
	fmt.Printf("Waiting for reply...\n\n")

	reply, err := s.Raw(cmd.Context(), lucid.CmdGetMode)
	switch {
	case err == nil, lucid.IsProtocol(err, lucid.ReasonNotAcknowledged):
		fmt.Printf("SUCCESS: Received valid reply\n")
		fmt.Printf("  %s\n", lucid.FormatResponse(reply))
		stats := s.Stats()
		fmt.Printf("  Attempts: %d\n", stats.Attempts)
		s.Close()
		os.Exit(0)

	case lucid.IsConnection(err):
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		s.Close()
		os.Exit(2)

	default:
		fmt.Fprintf(os.Stderr, "NO REPLY: %v\n", err)
		s.Close()
		os.Exit(1)
	}

	return nil
}
