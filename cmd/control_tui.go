// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	flagCheckSeconds = 5 // Check the error flag every N seconds
)

// Focus states
const (
	focusSettingList = iota
	focusValue
	focusChannels
	focusButton
)

// Kinds of setting
const (
	settingAttribute = iota
	settingGain
	settingPreset
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// setting is one row of the setting list
type setting struct {
	kind  int
	spec  lucid.AttributeSpec
	stage gain.Stage
	value string
}

// Implement list.Item interface
func (s setting) Title() string {
	switch s.kind {
	case settingGain:
		return fmt.Sprintf("%s Gain", s.stage)
	case settingPreset:
		return "Reference Level"
	}
	return s.spec.Label
}
func (s setting) Description() string { return s.value }
func (s setting) FilterValue() string { return s.Title() }

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	connMgr  *connectionManager
	connInfo string
	gen      int

	// Settings
	settings    []setting
	settingList list.Model
	snap        snapshot
	flag        device.ErrorFlagState
	haveSnap    bool

	// Monitoring
	stats         device.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int

	// Editor
	optionIndex  map[lucid.Attribute]int
	presetIndex  int
	dbInput      textinput.Model
	channel      int
	channels     [gain.Channels]bool
	focusedField int
	busy         bool

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
	lastFlagCheck  time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type refreshMsg struct {
	gen int
	res pollResult
}

type applyMsg struct {
	gen   int
	what  string
	err   error
	fatal bool
}

type flagMsg struct {
	gen     int
	state   device.ErrorFlagState
	cleared bool
	err     error
	fatal   bool
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
	gen      int
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, connMgr *connectionManager) controlModel {
	ti := textinput.New()
	ti.Placeholder = "0"
	ti.CharLimit = 4
	ti.Width = 6

	var settings []setting
	for _, spec := range lucid.Attributes() {
		settings = append(settings, setting{kind: settingAttribute, spec: spec, value: "-"})
	}
	for _, stage := range gain.Stages {
		settings = append(settings, setting{kind: settingGain, stage: stage, value: "-"})
	}
	settings = append(settings, setting{kind: settingPreset, value: "Apply a preset to both stages"})

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	settingList := list.New(nil, delegate, 30, 10)
	settingList.Title = "Settings"
	settingList.SetShowStatusBar(false)
	settingList.SetShowHelp(false)
	settingList.SetFilteringEnabled(false)

	_, gen := connMgr.current()
	m := controlModel{
		ctx:           ctx,
		connMgr:       connMgr,
		connInfo:      connMgr.connInfo,
		gen:           gen,
		settings:      settings,
		settingList:   settingList,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		optionIndex:   make(map[lucid.Attribute]int),
		dbInput:       ti,
		focusedField:  focusSettingList,
		width:         80,
		height:        24,
	}
	m.updateSettingList()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(controlTickCmd(), m.refreshCmd())
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.settingList, _ = m.settingList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		if ctl, _ := m.connMgr.current(); ctl != nil {
			m.stats = ctl.Stats()
		}
		if !m.connectionLost && !m.busy && time.Since(m.lastFlagCheck) >= flagCheckSeconds*time.Second {
			m.lastFlagCheck = time.Now()
			cmds = append(cmds, m.flagCmd(false))
		}
		cmds = append(cmds, controlTickCmd())

	case refreshMsg:
		if msg.gen != m.gen {
			break
		}
		m.busy = false
		m.applyRefresh(msg.res)
		if msg.res.fatal {
			m.connMgr.markLost(msg.gen)
		}

	case applyMsg:
		if msg.gen != m.gen {
			break
		}
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %v", msg.what, msg.err), true)
			if msg.fatal {
				m.busy = false
				m.connMgr.markLost(msg.gen)
				break
			}
		} else {
			m.addLogEntry(msg.what, false)
		}
		// stay busy through the read-back
		cmds = append(cmds, m.refreshCmd())

	case flagMsg:
		if msg.gen != m.gen {
			break
		}
		if msg.cleared {
			m.busy = false
		}
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Error flag: %v", msg.err), true)
			if msg.fatal {
				m.connMgr.markLost(msg.gen)
			}
			break
		}
		if msg.state.Flagged() != m.flag.Flagged() || msg.cleared {
			if msg.state.Flagged() {
				m.addLogEntry(fmt.Sprintf("Error flag raised (0x%02X), reads paused", msg.state.Raw), true)
			} else {
				m.addLogEntry("Error flag clear", false)
			}
		}
		wasFlagged := m.flag.Flagged()
		m.flag = msg.state
		if wasFlagged && !msg.state.Flagged() && !m.busy {
			m.busy = true
			cmds = append(cmds, m.refreshCmd())
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.busy = false
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.gen = msg.gen
		m.flag = device.ErrorFlagState{}
		m.addLogEntry("Reconnected", false)
		m.busy = true
		cmds = append(cmds, m.refreshCmd())
	}

	var cmd tea.Cmd
	if m.focusedField == focusValue && m.selected().kind == settingGain {
		m.dbInput, cmd = m.dbInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focusedField == focusSettingList {
		m.settingList, cmd = m.settingList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	editingDB := m.focusedField == focusValue && m.selected().kind == settingGain

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q", "esc":
		if !editingDB || msg.String() == "esc" {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "enter":
		return m.handleEnter()

	case "up", "k", "down", "j":
		if m.focusedField == focusSettingList {
			m.settingList, _ = m.settingList.Update(msg)
			m.syncEditor()
			return m, nil
		}

	case "left", "h":
		if !editingDB {
			m.step(-1)
			return m, nil
		}

	case "right", "l":
		if !editingDB {
			m.step(1)
			return m, nil
		}

	case " ":
		if m.focusedField == focusChannels {
			m.channels[m.channel] = !m.channels[m.channel]
			return m, nil
		}

	case "a":
		if m.focusedField == focusChannels {
			all := !m.allChannels()
			for i := range m.channels {
				m.channels[i] = all
			}
			return m, nil
		}

	case "r":
		if !editingDB && !m.busy && !m.connectionLost {
			m.busy = true
			return m, m.refreshCmd()
		}

	case "c":
		if !editingDB && !m.connectionLost {
			m.lastFlagCheck = time.Now()
			return m, m.flagCmd(false)
		}

	case "x":
		if !editingDB && !m.busy && !m.connectionLost {
			m.busy = true
			return m, m.flagCmd(true)
		}
	}

	if editingDB {
		var cmd tea.Cmd
		m.dbInput, cmd = m.dbInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) {
	maxFocus := focusButton
	m.focusedField = (m.focusedField + delta + maxFocus + 1) % (maxFocus + 1)

	// Only gain settings have a channel selector
	if m.focusedField == focusChannels && m.selected().kind != settingGain {
		m.focusedField = (m.focusedField + delta + maxFocus + 1) % (maxFocus + 1)
	}

	if m.focusedField == focusValue && m.selected().kind == settingGain {
		m.dbInput.Focus()
	} else {
		m.dbInput.Blur()
	}
}

// step moves the option or channel cursor
func (m *controlModel) step(delta int) {
	sel := m.selected()
	switch {
	case m.focusedField == focusChannels:
		m.channel = (m.channel + delta + gain.Channels) % gain.Channels
	case m.focusedField != focusValue:
	case sel.kind == settingAttribute:
		n := len(sel.spec.Options)
		m.optionIndex[sel.spec.Attr] = (m.optionIndex[sel.spec.Attr] + delta + n) % n
	case sel.kind == settingPreset:
		n := len(gain.Presets)
		m.presetIndex = (m.presetIndex + delta + n) % n
	}
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	if m.focusedField == focusSettingList {
		m.cycleFocus(1)
		return m, nil
	}
	if m.busy {
		m.addLogEntry("Busy, try again", true)
		return m, nil
	}

	sel := m.selected()
	var cmd tea.Cmd
	switch sel.kind {
	case settingAttribute:
		cmd = m.setAttributeCmd(sel.spec, m.optionIndex[sel.spec.Attr])
	case settingGain:
		cmd = m.setGainCmd(sel.stage)
	case settingPreset:
		cmd = m.presetCmd(gain.Presets[m.presetIndex])
	}
	if cmd != nil {
		m.busy = true
	}
	return m, cmd
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	// Header
	s.WriteString(titleStyle.Render("GLUCID CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch r=refresh c=check x=clear", connStatus)))
	s.WriteString("\n")

	flagText := statsValueStyle.Render("clear")
	if m.flag.Flagged() {
		flagText = errorStyle.Render(fmt.Sprintf("%s (0x%02X)", m.flag.Phase, m.flag.Raw))
	}
	s.WriteString(fmt.Sprintf(" %s %s", statsLabelStyle.Render("Error Flag:"), flagText))
	if m.busy {
		s.WriteString("  " + warningStyle.Render("working..."))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderControlView(statsLabelStyle, statsValueStyle, errorStyle, warningStyle, headerStyle, boxStyle, focusedBoxStyle, buttonStyle, focusedButtonStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlView(statsLabelStyle, statsValueStyle, errorStyle, warningStyle, headerStyle, boxStyle, focusedBoxStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder

	// Layout: left panel (settings) | right panel (editor)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 40 {
		rightWidth = 40
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusSettingList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	settingPanel := listStyle.Render(m.settingList.View())

	controlContent := m.renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle)
	controlStyle := boxStyle.Width(rightWidth)
	if m.focusedField != focusSettingList {
		controlStyle = focusedBoxStyle.Width(rightWidth)
	}
	controlPanel := controlStyle.Render(controlContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, settingPanel, " ", controlPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

func (m controlModel) renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder
	sel := m.selected()

	cursor := func(field int) string {
		if m.focusedField == field {
			return "> "
		}
		return "  "
	}
	button := func(text string) string {
		if m.focusedField == focusButton {
			return focusedButtonStyle.Render(text)
		}
		return buttonStyle.Render(text)
	}

	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Selected:"), sel.Title()))

	switch sel.kind {
	case settingAttribute:
		s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Current:"), statsValueStyle.Render(sel.value)))
		idx := m.optionIndex[sel.spec.Attr]
		s.WriteString(fmt.Sprintf("%s%s < %s > %s\n\n",
			cursor(focusValue),
			statsLabelStyle.Render("New:"),
			sel.spec.Options[idx],
			headerStyle.Render(fmt.Sprintf("(%d/%d)", idx+1, len(sel.spec.Options)))))
		s.WriteString(button("[ Apply ]"))

	case settingGain:
		s.WriteString(m.renderGainRow(sel.stage, statsValueStyle, headerStyle))
		s.WriteString("\n")
		s.WriteString(cursor(focusValue))
		s.WriteString(statsLabelStyle.Render("Gain dB: "))
		if m.focusedField == focusValue {
			s.WriteString(m.dbInput.View())
		} else {
			val := m.dbInput.Value()
			if val == "" {
				val = m.dbInput.Placeholder
			}
			s.WriteString(fmt.Sprintf("[%s]", val))
		}
		s.WriteString("\n")
		s.WriteString(cursor(focusChannels))
		s.WriteString(statsLabelStyle.Render("Channels: "))
		for ch := 0; ch < gain.Channels; ch++ {
			mark := fmt.Sprintf("%d", ch+1)
			if m.channels[ch] {
				mark = statsValueStyle.Render("[" + mark + "]")
			} else {
				mark = " " + mark + " "
			}
			if m.focusedField == focusChannels && ch == m.channel {
				mark = lipgloss.NewStyle().Underline(true).Render(mark)
			}
			s.WriteString(mark)
		}
		s.WriteString("\n")
		s.WriteString(headerStyle.Render("  Space=toggle a=all"))
		s.WriteString("\n\n")
		s.WriteString(button("[ Set Gain ]"))

	case settingPreset:
		p := gain.Presets[m.presetIndex]
		s.WriteString("\n")
		s.WriteString(fmt.Sprintf("%s%s < %s >\n", cursor(focusValue), statsLabelStyle.Render("Preset:"), p.Label))
		s.WriteString(headerStyle.Render(fmt.Sprintf("  %s", p)))
		s.WriteString("\n\n")
		s.WriteString(button("[ Apply Preset ]"))
	}

	return s.String()
}

func (m controlModel) renderGainRow(stage gain.Stage, statsValueStyle, headerStyle lipgloss.Style) string {
	l := m.snap.in
	if stage == gain.Output {
		l = m.snap.out
	}
	if !m.haveSnap || m.snap.gainErr != nil || l.Len() == 0 {
		return headerStyle.Render("Current: unknown") + "\n"
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("Ch  "))
	for ch := 1; ch <= gain.Channels; ch++ {
		s.WriteString(headerStyle.Render(fmt.Sprintf("%5d", ch)))
	}
	s.WriteString("\ndB  ")
	for _, e := range l.Entries() {
		s.WriteString(statsValueStyle.Render(fmt.Sprintf("%5s", e.DB())))
	}
	s.WriteString("\n")
	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var errorPercent float64
	if m.stats.Attempts > 0 {
		totalErrors := m.stats.Timeouts + m.stats.Malformed + m.stats.Rejected + m.stats.Mismatches
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.Attempts)
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Requests:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Requests)),
		statsLabelStyle.Render("Failed:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Failures)),
		statsLabelStyle.Render("Errors:"), func() string {
			if errorPercent > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
			}
			return statsValueStyle.Render("0.0%")
		}(),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f req/s", m.stats.RequestRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m controlModel) refreshCmd() tea.Cmd {
	ctx := m.ctx
	ctl, gen := m.connMgr.current()
	if ctl == nil {
		return nil
	}
	return func() tea.Msg {
		return refreshMsg{gen: gen, res: poll(ctx, ctl)}
	}
}

func (m controlModel) flagCmd(clear bool) tea.Cmd {
	ctx := m.ctx
	ctl, gen := m.connMgr.current()
	if ctl == nil {
		return nil
	}
	return func() tea.Msg {
		msg := flagMsg{gen: gen, cleared: clear}
		if clear {
			if err := ctl.ClearErrorFlag(ctx); err != nil {
				msg.err = err
				msg.fatal = lucid.IsConnection(err)
				return msg
			}
		}
		msg.state, msg.err = ctl.CheckErrorFlag(ctx)
		msg.fatal = lucid.IsConnection(msg.err)
		return msg
	}
}

func (m controlModel) setAttributeCmd(spec lucid.AttributeSpec, index int) tea.Cmd {
	ctx := m.ctx
	ctl, gen := m.connMgr.current()
	if ctl == nil {
		return nil
	}
	value := spec.Options[index]
	return func() tea.Msg {
		err := ctl.Set(ctx, spec.Attr, fmt.Sprintf("%d", index))
		return applyMsg{
			gen:   gen,
			what:  fmt.Sprintf("Set %s to %s", spec.Label, value),
			err:   err,
			fatal: lucid.IsConnection(err),
		}
	}
}

func (m *controlModel) setGainCmd(stage gain.Stage) tea.Cmd {
	text := strings.TrimSpace(m.dbInput.Value())
	if text == "" {
		text = m.dbInput.Placeholder
	}
	raw, err := gain.ParseDB(text)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid gain %q: %v", text, err), true)
		return nil
	}

	var chans []int
	for ch, on := range m.channels {
		if on {
			chans = append(chans, ch)
		}
	}
	if len(chans) == 0 {
		m.addLogEntry("No channels selected", true)
		return nil
	}

	ctx := m.ctx
	ctl, gen := m.connMgr.current()
	if ctl == nil {
		return nil
	}
	what := fmt.Sprintf("Set %s gain %s to %s dB", stage, channelList(chans), gain.DBString(raw))
	return func() tea.Msg {
		_, err := ctl.SetGainChannels(ctx, stage, chans, raw)
		var gwe *device.GainWriteError
		if errors.As(err, &gwe) && len(gwe.Written) > 0 {
			what = fmt.Sprintf("%s (%d written before failure)", what, len(gwe.Written))
		}
		return applyMsg{gen: gen, what: what, err: err, fatal: lucid.IsConnection(err)}
	}
}

func (m controlModel) presetCmd(p gain.Preset) tea.Cmd {
	ctx := m.ctx
	ctl, gen := m.connMgr.current()
	if ctl == nil {
		return nil
	}
	return func() tea.Msg {
		err := ctl.ApplyPreset(ctx, p)
		return applyMsg{
			gen:   gen,
			what:  fmt.Sprintf("Applied %s preset", p.Label),
			err:   err,
			fatal: lucid.IsConnection(err),
		}
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) applyRefresh(res pollResult) {
	if res.err != nil {
		m.addLogEntry(fmt.Sprintf("Refresh failed: %v", res.err), true)
		return
	}
	m.flag = res.flag
	m.lastFlagCheck = res.at
	if res.flag.Flagged() {
		m.addLogEntry(fmt.Sprintf("Error flag raised (0x%02X), reads paused", res.flag.Raw), true)
		return
	}

	if m.haveSnap {
		for _, change := range res.snap.diff(m.snap) {
			m.addLogEntry(change, false)
		}
	}
	attrs := make([]string, 0, len(res.snap.errs))
	for attr := range res.snap.errs {
		attrs = append(attrs, string(attr))
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		m.addLogEntry(fmt.Sprintf("Read %s: %v", attr, res.snap.errs[lucid.Attribute(attr)]), true)
	}
	if res.snap.gainErr != nil {
		m.addLogEntry(fmt.Sprintf("Read gains: %v", res.snap.gainErr), true)
	}

	m.snap = res.snap
	m.haveSnap = true
	m.updateSettingList()
	m.syncEditor()
}

// syncEditor moves the option cursor to the current value of the selection
// while the editor is not in use
func (m *controlModel) syncEditor() {
	if m.focusedField != focusSettingList {
		return
	}
	sel := m.selected()
	if sel.kind != settingAttribute {
		return
	}
	if v, ok := m.snap.values[sel.spec.Attr]; ok {
		if idx, err := sel.spec.Index(v); err == nil {
			m.optionIndex[sel.spec.Attr] = idx
		}
	}
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) selected() setting {
	idx := m.settingList.Index()
	if idx < 0 || idx >= len(m.settings) {
		return m.settings[0]
	}
	return m.settings[idx]
}

func (m *controlModel) allChannels() bool {
	for _, on := range m.channels {
		if !on {
			return false
		}
	}
	return true
}

func (m *controlModel) updateSettingList() {
	for i := range m.settings {
		st := &m.settings[i]
		switch st.kind {
		case settingAttribute:
			if err, bad := m.snap.errs[st.spec.Attr]; bad {
				st.value = "read failed"
				if lucid.IsState(err) {
					st.value = "paused (error flag)"
				}
			} else if v, ok := m.snap.values[st.spec.Attr]; ok {
				st.value = v
			}
		case settingGain:
			l := m.snap.in
			if st.stage == gain.Output {
				l = m.snap.out
			}
			if m.snap.gainErr == nil && l.Len() > 0 {
				st.value = l.String()
			}
		}
	}

	items := make([]list.Item, len(m.settings))
	for i, st := range m.settings {
		items[i] = st
	}
	m.settingList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 5 {
		listHeight = 5
	}
	m.settingList.SetSize(28, listHeight)
}

// channelList renders zero-based channels as a one-based list
func channelList(chans []int) string {
	if len(chans) == gain.Channels {
		return "all channels"
	}
	parts := make([]string, len(chans))
	for i, ch := range chans {
		parts[i] = fmt.Sprintf("%d", ch+1)
	}
	return "ch " + strings.Join(parts, ",")
}
