// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// TUI model
type model struct {
	ctx           context.Context
	ctl           *device.Controller
	interval      time.Duration
	showAll       bool
	started       time.Time
	stats         device.Statistics
	last          *pollResult
	polling       bool
	stopped       bool
	eventLog      []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type pollMsg pollResult

// formatDuration formats a duration to a human-friendly string
func formatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(ctx context.Context, ctl *device.Controller, interval time.Duration, showAll bool) model {
	return model{
		ctx:           ctx,
		ctl:           ctl,
		interval:      interval,
		showAll:       showAll,
		started:       time.Now(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.pollCmd(),
		tea.EnterAltScreen,
	)
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// pollCmd polls the unit off the UI goroutine
func (m model) pollCmd() tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		return pollMsg(poll(ctx, ctl))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.ctl.ResetStats()
			m.stats = m.ctl.Stats()
			m.addLogEntry("Statistics reset", false)
		case "p":
			if !m.polling && !m.stopped {
				m.polling = true
				return m, m.pollCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.polling || m.stopped {
			return m, nil
		}
		m.polling = true
		return m, m.pollCmd()

	case pollMsg:
		res := pollResult(msg)
		m.polling = false
		m.logPoll(res)
		m.last = &res
		m.stats = m.ctl.Stats()
		if res.fatal {
			m.stopped = true
			m.addLogEntry("Connection lost, polling stopped", true)
			return m, nil
		}
		return m, m.tickCmd()
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// logPoll records what changed since the previous poll
func (m *model) logPoll(res pollResult) {
	if res.err != nil {
		m.addLogEntry(fmt.Sprintf("Error flag check: %v", res.err), true)
		return
	}
	if res.flag.Flagged() {
		if m.last == nil || !m.last.flag.Flagged() {
			m.addLogEntry(fmt.Sprintf("Device flagged (0x%02X), reads suspended", res.flag.Raw), true)
		}
		return
	}
	if m.last != nil && m.last.flag.Flagged() {
		m.addLogEntry("Flag clear, reads resumed", false)
	}

	for _, spec := range lucid.Attributes() {
		if err, ok := res.snap.errs[spec.Attr]; ok {
			m.addLogEntry(fmt.Sprintf("%s: %v", spec.Label, err), true)
		}
	}
	if res.snap.gainErr != nil {
		m.addLogEntry(fmt.Sprintf("Gains: %v", res.snap.gainErr), true)
	}

	if m.last != nil {
		for _, change := range res.snap.diff(m.last.snap) {
			m.addLogEntry(change, false)
		}
	}
	if m.showAll {
		m.addLogEntry("Poll ok", false)
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("GLUCID - WATCH"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Instance %s | Every %s | 'p' poll now, 'r' reset stats, 'q' quit",
		m.ctl.Info(), m.ctl.Instance(), m.interval)))
	s.WriteString("\n\n")

	// Flag status
	switch {
	case m.stopped:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	case m.last == nil:
		s.WriteString(warningStyle.Render("⏳ Waiting for first poll..."))
	case m.last.err != nil:
		s.WriteString(errorStyle.Render("✗ Error flag unknown"))
	case m.last.flag.Flagged():
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Device flagged (0x%02X), run 'glucid status clear'", m.last.flag.Raw)))
	default:
		s.WriteString(statsValueStyle.Render("✓ Error flag clear"))
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("  watching for %s", formatDuration(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Statistics
	failedAttempts := m.stats.Timeouts + m.stats.Malformed + m.stats.Rejected + m.stats.Mismatches
	var okPercent float64
	if m.stats.Attempts > 0 {
		okPercent = float64(m.stats.Attempts-failedAttempts) * 100.0 / float64(m.stats.Attempts)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Requests:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Requests)),
		statsLabelStyle.Render("Attempts:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%% ok)", m.stats.Attempts, okPercent)),
		statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Failures)),
	))

	if failedAttempts > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Timeouts:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Timeouts)),
			statsLabelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Malformed)),
			statsLabelStyle.Render("Rejected:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Rejected)),
			statsLabelStyle.Render("Mismatch:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Mismatches)),
		))
	}

	if m.stats.Flagged > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Flagged replies:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Flagged)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Request Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f req/s", m.stats.RequestRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Device section (only shown once a poll read the unit)
	if m.last != nil && len(m.last.snap.values) > 0 {
		s.WriteString(statsLabelStyle.Render("Device:"))
		s.WriteString("\n")

		deviceContent := strings.Builder{}
		for _, spec := range lucid.Attributes() {
			value, ok := m.last.snap.values[spec.Attr]
			rendered := statsValueStyle.Render(value)
			if !ok {
				rendered = errorStyle.Render("?")
			}
			deviceContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render(fmt.Sprintf("%-19s", spec.Label+":")), rendered))
		}

		if m.last.snap.gainErr == nil {
			for _, l := range []gain.List{m.last.snap.in, m.last.snap.out} {
				row := make([]string, 0, gain.Channels)
				for _, e := range l.Entries() {
					row = append(row, fmt.Sprintf("%4s", e.DB()))
				}
				deviceContent.WriteString(fmt.Sprintf("%s %s\n",
					statsLabelStyle.Render(fmt.Sprintf("%-19s", "Gain "+l.Stage().String()+":")),
					statsValueStyle.Render(strings.Join(row, " "))))
			}
		}

		s.WriteString(boxStyle.Render(strings.TrimRight(deviceContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 24 // Reserve space for header, stats and device
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
