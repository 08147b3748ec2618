// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/sim"
	"github.com/Thermoquad/glucid/pkg/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveBridge exposes dev the way a WebSocket serial bridge would
func serveBridge(t *testing.T, dev *sim.Device) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		buf := make([]byte, 512)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if _, err := dev.Write(msg); err != nil {
				return
			}
			_ = dev.SetReadTimeout(0)
			n, _ := dev.Read(buf)
			if n == 0 {
				continue
			}
			if err := c.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnect_WebSocketBridge(t *testing.T) {
	dev := sim.New(0x01)
	url := serveBridge(t, dev)

	ctl, err := device.Connect(transport.Endpoint{
		Path:    url,
		Timeout: time.Second,
		Framing: transport.FramingText,
	}, device.WithInstance(0x01))
	require.NoError(t, err)
	defer ctl.Close()

	assert.Contains(t, ctl.Info(), "WebSocket")
	assert.Equal(t, lucid.InstanceID(0x01), ctl.Instance())

	ctx := context.Background()
	require.NoError(t, ctl.SetSyncSource(ctx, "WordClock"))
	got, err := ctl.SyncSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "WordClock", got)
	assert.Equal(t, 1, dev.Register(lucid.CmdGetSync))
}

func TestConnect_OpenFailure(t *testing.T) {
	tests := []struct {
		name string
		ep   transport.Endpoint
	}{
		{"no path", transport.Endpoint{}},
		{"missing serial device", transport.Endpoint{Path: "/dev/glucid-test-missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, err := device.Connect(tt.ep)
			assert.Nil(t, ctl)
			assert.True(t, lucid.IsConnection(err, lucid.ReasonOpenFailed), "error = %v", err)
		})
	}
}
