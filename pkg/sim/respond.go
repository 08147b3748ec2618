// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sim

import (
	"bytes"

	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/transport"
)

// nextFrame removes one complete command from the input buffer and returns
// it as a text line. Caller holds d.mu.
func (d *Device) nextFrame() ([]byte, bool) {
	switch d.framing {
	case transport.FramingSysEx:
		end := bytes.IndexByte(d.in, lucid.EndByte)
		if end < 0 {
			return nil, false
		}
		frame := append([]byte(nil), d.in[:end+1]...)
		d.in = d.in[end+1:]
		if start := bytes.IndexByte(frame, lucid.StartByte); start > 0 {
			frame = frame[start:]
		}
		return lucid.SysExToText(frame), true

	default:
		end := bytes.IndexByte(d.in, '\n')
		if end < 0 {
			return nil, false
		}
		line := append([]byte(nil), d.in[:end]...)
		d.in = d.in[end+1:]
		return line, true
	}
}

// respond executes a command and returns the wire bytes of the reply.
// Caller holds d.mu.
func (d *Device) respond(cmd *lucid.CommandFrame, n int) []byte {
	fault := FaultNone
	if d.fault != nil {
		fault = d.fault(cmd, n)
	}

	switch fault {
	case FaultDrop:
		return nil
	case FaultFlag:
		d.errorFlag = 0x01
	}

	status := byte(lucid.StatusReply)
	var data []int

	if fault == FaultReject {
		status = lucid.StatusRejected
	} else {
		var ok bool
		data, ok = d.execute(cmd)
		if !ok {
			status = lucid.StatusRejected
			data = nil
		}
	}
	if status == lucid.StatusReply && d.errorFlag != 0 {
		status = lucid.StatusFlagged
	}

	instance := d.instance
	if fault == FaultWrongInstance {
		instance = (instance + 1) & lucid.DataMax
	}
	echo := cmd.Key()
	if fault == FaultWrongEcho {
		echo = lucid.CmdGetStatus
		if cmd.Key() == lucid.CmdGetStatus {
			echo = lucid.CmdGetMode
		}
	}

	fields, err := lucid.EncodeReply(instance, status, echo, data...)
	if err != nil {
		return nil
	}

	switch fault {
	case FaultGarble:
		return d.garble(fields)
	case FaultTruncate:
		rendered := d.render(fields)
		return rendered[:len(rendered)/2]
	}
	return d.render(fields)
}

// execute applies a command to the unit state and returns the reply data
func (d *Device) execute(cmd *lucid.CommandFrame) ([]int, bool) {
	args := cmd.Args()
	switch cmd.Key() {
	case lucid.CmdGetMode, lucid.CmdGetSync, lucid.CmdGetOptSrc, lucid.CmdGetAnalogSrc, lucid.CmdGetAesSrc:
		return []int{d.registers[cmd.Key()]}, true

	case lucid.CmdSetMode, lucid.CmdSetSync, lucid.CmdSetOptSrc, lucid.CmdSetAnalogSrc, lucid.CmdSetAesSrc:
		d.registers[cmd.Key().Getter()] = args[0]
		return nil, true

	case lucid.CmdGetStatus:
		return []int{int(d.errorFlag)}, true

	case lucid.CmdClearStatus:
		d.errorFlag = 0
		return nil, true

	case lucid.CmdGetAnalogGain:
		return append([]int(nil), d.gains...), true

	case lucid.CmdSetAnalogGain:
		d.gains = append([]int(nil), args...)
		return nil, true
	}
	return nil, false
}

func (d *Device) render(fields []byte) []byte {
	if d.framing == transport.FramingSysEx {
		return fields
	}
	return append(lucid.SysExToText(fields), lucid.LineTerminator...)
}

// garble corrupts the reply. In text framing the last field before the end
// marker becomes non-hex; in SysEx framing the status field becomes invalid.
func (d *Device) garble(fields []byte) []byte {
	if d.framing == transport.FramingSysEx {
		out := append([]byte(nil), fields...)
		out[6] = 0xFF
		return out
	}
	text := lucid.SysExToText(fields)
	idx := len(text) - len(" F7") - lucid.FieldWidth
	copy(text[idx:], "ZZ")
	return append(text, lucid.LineTerminator...)
}
