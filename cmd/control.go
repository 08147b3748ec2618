// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for configuring the converter",
	Long: `Configure an ADA8824 through an interactive terminal UI.

Features:
  - Every source selector with its current setting
  - Input and output gain per channel
  - Reference level presets
  - Error flag check and clear
  - Statistics tracking
  - Event logging
  - Automatic reconnection on connection loss

Up/Down selects a setting. Tab moves between the setting list and its editor.
Left/Right steps through options or channels, Space toggles a channel and
Enter applies. r re-reads the unit, c checks and x clears the error flag.

Supports serial, WebSocket and simulator connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// connectionManager owns the current session and replaces it when the
// connection is lost
type connectionManager struct {
	s        *session
	connInfo string
	gen      int
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
	lost     chan int
}

func (cm *connectionManager) current() (*device.Controller, int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.s == nil {
		return nil, cm.gen
	}
	return cm.s.Controller, cm.gen
}

func (cm *connectionManager) setSession(s *session) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.s = s
	cm.connInfo = s.Info()
	cm.gen++
	return cm.gen
}

// markLost reports that generation gen failed. Reports for an older session
// are ignored.
func (cm *connectionManager) markLost(gen int) {
	select {
	case cm.lost <- gen:
	default:
	}
}

func (cm *connectionManager) close() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.s != nil {
		cm.s.Close()
		cm.s = nil
	}
}

func runControl(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		done: make(chan struct{}),
		lost: make(chan int, 1),
	}
	cm.setSession(s)

	m := initialControlModel(cmd.Context(), cm)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
	cm.p = p

	go cm.watchLoop()

	_, err = p.Run()
	close(cm.done)
	cm.close()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// watchLoop waits for the model to report a lost connection and reconnects
func (cm *connectionManager) watchLoop() {
	for {
		select {
		case <-cm.done:
			return
		case gen := <-cm.lost:
			if _, cur := cm.current(); gen != cur {
				continue
			}
			cm.p.Send(connectionLostMsg{})
			if !cm.reconnect() {
				return
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	cm.close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		s, err := openSession()
		if err == nil {
			gen := cm.setSession(s)
			cm.p.Send(reconnectedMsg{connInfo: s.Info(), gen: gen})
			return true
		}
		logger.Debug().Err(err).Dur("backoff", backoff).Msg("reconnect failed")

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
