// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/trace"
	"github.com/spf13/cobra"
)

var traceSession string

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Display a capture file in human-readable format",
	Long: `Decode and display a capture written with --trace.

Each line shows the time, session, direction and the decoded frame. Several
sessions may share one file; use --session to show only one of them (a
prefix of the session id is enough).`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().StringVar(&traceSession, "session", "", "Only show events of this session")
}

func runTrace(cmd *cobra.Command, args []string) error {
	events, err := trace.Open(args[0])
	if err != nil && len(events) == 0 {
		return err
	}

	shown := 0
	for _, ev := range events {
		if traceSession != "" && !strings.HasPrefix(ev.Session, traceSession) {
			continue
		}
		fmt.Println(formatEvent(ev))
		shown++
	}
	fmt.Printf("\n%d event(s)\n", shown)

	// A truncated last record is reported after what could be read
	return err
}

func formatEvent(ev trace.Event) string {
	session := ev.Session
	if len(session) > 8 {
		session = session[:8]
	}
	prefix := fmt.Sprintf("[%s] %s #%-4d %-7s %-14s try %d",
		ev.Time.Format("15:04:05.000"), session, ev.Seq, ev.Direction, ev.Command, ev.Attempt)

	switch ev.Direction {
	case trace.DirTX, trace.DirRX:
		frame := ev.Frame
		if len(frame) > 0 && frame[0] == lucid.StartByte {
			frame = lucid.SysExToText(frame)
		}
		return prefix + "  " + lucid.FormatLine(frame)
	case trace.DirTimeout:
		if len(ev.Frame) > 0 {
			return prefix + fmt.Sprintf("  partial %q", ev.Frame)
		}
		return prefix
	default:
		return prefix + "  " + ev.Error
	}
}
