// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exchange writes one command and returns the reply line, or "" when the
// device stays silent
func exchange(t *testing.T, d *Device, key lucid.CommandKey, args ...int) string {
	t.Helper()
	f := lucid.MustEncode(key, 0x01, args...)
	wire := f.Line()
	if d.framing == transport.FramingSysEx {
		wire = f.SysEx()
	}
	_, err := d.Write(wire)
	require.NoError(t, err)

	require.NoError(t, d.SetReadTimeout(20*time.Millisecond))
	var out []byte
	buf := make([]byte, 128)
	for {
		n, err := d.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	if d.framing == transport.FramingSysEx && len(out) > 0 {
		return string(lucid.SysExToText(out))
	}
	return strings.TrimRight(string(out), "\r\n")
}

func TestDevice_Registers(t *testing.T) {
	d := New(0x01)

	assert.Equal(t, "F0 00 00 5E 58 01 05 21 F7", exchange(t, d, lucid.CmdSetSync, 3))
	assert.Equal(t, 3, d.Register(lucid.CmdGetSync))
	assert.Equal(t, "F0 00 00 5E 58 01 05 61 03 F7", exchange(t, d, lucid.CmdGetSync))

	d.SetRegister(lucid.CmdGetMode, 6)
	assert.Equal(t, "F0 00 00 5E 58 01 05 60 06 F7", exchange(t, d, lucid.CmdGetMode))

	assert.Equal(t, 1, d.Count(lucid.CmdSetSync))
	assert.Len(t, d.Received(), 3)
}

func TestDevice_Gains(t *testing.T) {
	d := New(0x01)
	for _, v := range d.Gains() {
		assert.Equal(t, 0x60, v)
	}

	args := make([]int, lucid.GainFields)
	for i := range args {
		args[i] = 0x50 + i
	}
	assert.Equal(t, "F0 00 00 5E 58 01 05 30 F7", exchange(t, d, lucid.CmdSetAnalogGain, args...))
	assert.Equal(t, args, d.Gains())

	reply, err := lucid.Decode([]byte(exchange(t, d, lucid.CmdGetAnalogGain)))
	require.NoError(t, err)
	assert.Equal(t, args, reply.Data())
}

func TestDevice_ErrorFlag(t *testing.T) {
	d := New(0x01)
	d.RaiseError(0x23)

	assert.Equal(t, "F0 00 00 5E 58 01 06 6F 23 F7", exchange(t, d, lucid.CmdGetStatus))
	assert.Equal(t, "F0 00 00 5E 58 01 06 61 00 F7", exchange(t, d, lucid.CmdGetSync))

	assert.Equal(t, "F0 00 00 5E 58 01 05 2F F7", exchange(t, d, lucid.CmdClearStatus))
	assert.Equal(t, byte(0), d.ErrorFlag())
	assert.Equal(t, "F0 00 00 5E 58 01 05 6F 00 F7", exchange(t, d, lucid.CmdGetStatus))
}

func TestDevice_UnknownCommand(t *testing.T) {
	d := New(0x01)
	assert.Equal(t, "F0 00 00 5E 58 01 07 55 F7", exchange(t, d, lucid.CommandKey(0x55), 1))
}

func TestDevice_IgnoresNoise(t *testing.T) {
	d := New(0x01)
	_, err := d.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	assert.Empty(t, d.Received())
	assert.Equal(t, "F0 00 00 5E 58 01 05 61 00 F7", exchange(t, d, lucid.CmdGetSync))
}

func TestDevice_Faults(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
		check func(t *testing.T, reply string)
	}{
		{"drop", FaultDrop, func(t *testing.T, reply string) {
			assert.Empty(t, reply)
		}},
		{"garble", FaultGarble, func(t *testing.T, reply string) {
			assert.Equal(t, "F0 00 00 5E 58 01 05 61 ZZ F7", reply)
		}},
		{"truncate", FaultTruncate, func(t *testing.T, reply string) {
			assert.True(t, strings.HasPrefix("F0 00 00 5E 58 01 05 61 00 F7", reply))
			assert.NotContains(t, reply, "F7")
		}},
		{"reject", FaultReject, func(t *testing.T, reply string) {
			assert.Equal(t, "F0 00 00 5E 58 01 07 61 F7", reply)
		}},
		{"flag", FaultFlag, func(t *testing.T, reply string) {
			assert.Equal(t, "F0 00 00 5E 58 01 06 61 00 F7", reply)
		}},
		{"wrong instance", FaultWrongInstance, func(t *testing.T, reply string) {
			assert.Equal(t, "F0 00 00 5E 58 02 05 61 00 F7", reply)
		}},
		{"wrong echo", FaultWrongEcho, func(t *testing.T, reply string) {
			assert.Equal(t, "F0 00 00 5E 58 01 05 6F 00 F7", reply)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(0x01, WithFault(func(cmd *lucid.CommandFrame, n int) Fault {
				if n == 1 {
					return tt.fault
				}
				return FaultNone
			}))
			tt.check(t, exchange(t, d, lucid.CmdGetSync))

			// only the first command is faulted
			if tt.fault != FaultFlag {
				assert.Equal(t, "F0 00 00 5E 58 01 05 61 00 F7", exchange(t, d, lucid.CmdGetSync))
			}
		})
	}
}

func TestDevice_SysEx(t *testing.T) {
	d := New(0x01, WithFraming(transport.FramingSysEx))
	d.SetRegister(lucid.CmdGetAesSrc, 1)
	assert.Equal(t, "F0 00 00 5E 58 01 05 64 01 F7", exchange(t, d, lucid.CmdGetAesSrc))
}

func TestDevice_Close(t *testing.T) {
	d := New(0x01)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err := d.Write([]byte("F0 00 00 5E 58 01 61 00 F7\r\n"))
	assert.Error(t, err)
	_, err = d.Read(make([]byte, 8))
	assert.Error(t, err)
}
