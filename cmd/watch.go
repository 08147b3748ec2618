// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/lucid"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	showAll       bool
	pollInterval  time.Duration
	statsInterval int
	useTUI        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the unit and report changes and errors",
	Long: `Poll every attribute and the gain table at a fixed interval.

Each poll checks the device error flag first; while it is raised, reads are
skipped and the poll is reported as flagged. Changes made on the front panel
or by another host show up as change events.

Detected problems:
  - Timeouts (no reply within the retry budget)
  - Malformed or garbled replies
  - Rejected commands
  - A raised device error flag
  - Replies from another instance id (fatal; the watch stops)

By default only changes and errors are displayed. Use --show-all to print
every poll. Statistics are printed at --stats-interval in text mode and shown
live in the terminal UI.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&showAll, "show-all", false, "Show every poll (not just changes and errors)")
	watchCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "Poll interval")
	watchCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	watchCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI when stdout is a terminal (false for text mode)")
}

// pollResult is one pass over the unit
type pollResult struct {
	at    time.Time
	flag  device.ErrorFlagState
	snap  snapshot
	err   error // flag check failure; reads were skipped
	fatal bool  // the connection is gone
}

// poll checks the error flag and, when it is clear, reads everything
func poll(ctx context.Context, ctl *device.Controller) pollResult {
	res := pollResult{at: time.Now()}

	res.flag, res.err = ctl.CheckErrorFlag(ctx)
	if res.err != nil {
		res.fatal = lucid.IsConnection(res.err)
		return res
	}
	if res.flag.Flagged() {
		return res
	}

	res.snap = readSnapshot(ctx, ctl, true)
	for _, err := range res.snap.errs {
		if lucid.IsConnection(err) {
			res.fatal = true
		}
	}
	return res
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if useTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		return runWatchTUI(cmd.Context(), s.Controller)
	}
	return runWatchText(cmd.Context(), s.Controller)
}

// printPollError prints a failed read in highlighted format
func printPollError(at time.Time, what string, err error) {
	timestamp := at.Format("15:04:05.000")
	label := "ERROR"
	switch {
	case lucid.IsTimeout(err):
		label = "TIMEOUT"
	case lucid.IsProtocol(err):
		label = "PROTOCOL ERROR"
	case lucid.IsConnection(err):
		label = "CONNECTION ERROR"
	case lucid.IsState(err):
		label = "FLAGGED"
	}
	fmt.Printf("[%s] \033[1;31m%s:\033[0m %s: %v\n", timestamp, label, what, err)
}

// printPoll prints what a poll found. It returns false when watching must stop.
func printPoll(res, prev pollResult) bool {
	timestamp := res.at.Format("15:04:05.000")

	if res.err != nil {
		printPollError(res.at, "error flag check", res.err)
		return !res.fatal
	}

	if res.flag.Flagged() {
		fmt.Printf("[%s] \033[1;33mDEVICE FLAGGED:\033[0m error flag 0x%02X, reads suspended (run \"glucid status clear\")\n",
			timestamp, res.flag.Raw)
		return true
	}
	if prev.flag.Flagged() {
		fmt.Printf("[%s] \033[1;32mFLAG CLEAR:\033[0m reads resumed\n", timestamp)
	}

	for _, spec := range lucid.Attributes() {
		if err, ok := res.snap.errs[spec.Attr]; ok {
			printPollError(res.at, spec.Label, err)
		}
	}
	if res.snap.gainErr != nil {
		printPollError(res.at, "gains", res.snap.gainErr)
	}
	if res.fatal {
		return false
	}

	for _, change := range res.snap.diff(prev.snap) {
		fmt.Printf("[%s] \033[1;36mCHANGED:\033[0m %s\n", timestamp, change)
	}

	if showAll {
		fmt.Printf("[%s] poll ok\n", timestamp)
		for _, spec := range lucid.Attributes() {
			if v, ok := res.snap.values[spec.Attr]; ok {
				printAttribute(os.Stdout, spec, "  "+v, nil)
			}
		}
	}
	return true
}

// runWatchText polls in text mode
func runWatchText(ctx context.Context, ctl *device.Controller) error {
	fmt.Printf("glucid - Watch Mode\n")
	fmt.Printf("Connection: %s\n", ctl.Info())
	fmt.Printf("Instance: %s\n", ctl.Instance())
	fmt.Printf("Poll interval: %s\n", pollInterval)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All polls\n")
	} else {
		fmt.Printf("Mode: Changes and errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// First poll sets the baseline
	prev := poll(ctx, ctl)
	if !printPoll(prev, pollResult{}) {
		return fmt.Errorf("watch stopped: connection lost")
	}
	if prev.err == nil && !prev.flag.Flagged() {
		for _, spec := range lucid.Attributes() {
			printAttribute(os.Stdout, spec, prev.snap.values[spec.Attr], prev.snap.errs[spec.Attr])
		}
		fmt.Println()
	}

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			stats := ctl.Stats()
			fmt.Print(stats.String())
			return nil

		case <-pollTicker.C:
			res := poll(ctx, ctl)
			if ctx.Err() != nil {
				continue
			}
			if !printPoll(res, prev) {
				return fmt.Errorf("watch stopped: connection lost")
			}
			prev = res

		case <-statsTicker.C:
			// Print statistics
			stats := ctl.Stats()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

// runWatchTUI polls in TUI mode
func runWatchTUI(ctx context.Context, ctl *device.Controller) error {
	m := initialModel(ctx, ctl, pollInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	// Run TUI
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
