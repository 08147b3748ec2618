// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/glucid/pkg/device"
	"github.com/Thermoquad/glucid/pkg/gain"
	"github.com/Thermoquad/glucid/pkg/lucid"
	"github.com/Thermoquad/glucid/pkg/sim"
	"github.com/Thermoquad/glucid/pkg/trace"
	"github.com/Thermoquad/glucid/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 50 * time.Millisecond

func newController(t *testing.T, dev *sim.Device, framing transport.Framing, opts ...device.Option) *device.Controller {
	t.Helper()
	conn := transport.NewConn(dev, framing, testTimeout, "sim://01")
	ctl := device.New(conn, append([]device.Option{device.WithInstance(0x01)}, opts...)...)
	t.Cleanup(func() { _ = ctl.Close() })
	return ctl
}

func faultOn(key lucid.CommandKey, fault sim.Fault, when func(n int) bool) sim.FaultFunc {
	return func(cmd *lucid.CommandFrame, n int) sim.Fault {
		if cmd.Key() == key && when(n) {
			return fault
		}
		return sim.FaultNone
	}
}

func always(int) bool { return true }

// ============================================================================
// Attribute Get/Set
// ============================================================================

// TestSyncSource_EndToEnd sets and reads back the sync source on instance 01.
func TestSyncSource_EndToEnd(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	require.NoError(t, ctl.SetSyncSource(ctx, "48 Internal"))
	require.NoError(t, ctl.SetSyncSource(ctx, "ADAT"))

	received := dev.Received()
	require.Len(t, received, 2)
	assert.Equal(t, "F0 00 00 5E 58 01 21 00 F7", received[1].Text())

	got, err := ctl.SyncSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ADAT", got)
}

func TestSet_ByIndexAndName(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	tests := []struct {
		attr  lucid.Attribute
		value string
		want  string
	}{
		{lucid.AttrSync, "s/pdif in", "S/PDIF In"},
		{lucid.AttrSync, "1", "WordClock"},
		{lucid.AttrAESSource, "Analog In", "Analog In"},
		{lucid.AttrOpticalSource, "AES In", "AES In"},
		{lucid.AttrAnalogSource, "1", "AES In"},
	}

	for _, tt := range tests {
		t.Run(string(tt.attr)+"="+tt.value, func(t *testing.T) {
			require.NoError(t, ctl.Set(ctx, tt.attr, tt.value))
			got, err := ctl.Get(ctx, tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_InvalidValueRejectedBeforeIO(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	err := ctl.Set(ctx, lucid.AttrSync, "bogus")
	require.Error(t, err)
	assert.True(t, lucid.IsValue(err))

	err = ctl.Set(ctx, lucid.AttrAESSource, "2")
	require.Error(t, err)
	assert.True(t, lucid.IsValue(err))

	err = ctl.Set(ctx, lucid.Attribute("volume"), "1")
	require.Error(t, err)
	assert.True(t, lucid.IsValue(err))

	assert.Empty(t, dev.Received())
}

// TestMeterAndDig1_ReadModifyWrite checks that the two Mode fields keep each other.
func TestMeterAndDig1_ReadModifyWrite(t *testing.T) {
	dev := sim.New(0x01)
	dev.SetRegister(lucid.CmdGetMode, 0x05) // meter Digital In, dig1 S/PDIF
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	require.NoError(t, ctl.SetMeterSource(ctx, "Analog Out"))
	assert.Equal(t, 0x06, dev.Register(lucid.CmdGetMode))

	require.NoError(t, ctl.SetDig1Source(ctx, "AES"))
	assert.Equal(t, 0x02, dev.Register(lucid.CmdGetMode))

	require.NoError(t, ctl.SetMeterAndDig1(ctx, 7))
	meter, err := ctl.MeterSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Digital Out", meter)
	dig1, err := ctl.Dig1Source(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S/PDIF", dig1)

	mode, err := ctl.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, mode)

	err = ctl.SetMeterAndDig1(ctx, 8)
	assert.True(t, lucid.IsValue(err))
}

func TestSysExFraming(t *testing.T) {
	dev := sim.New(0x01, sim.WithFraming(transport.FramingSysEx))
	ctl := newController(t, dev, transport.FramingSysEx)
	ctx := context.Background()

	require.NoError(t, ctl.SetAnalogSource(ctx, "AES In"))
	got, err := ctl.AnalogSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AES In", got)

	_, err = ctl.SetGainChannels(ctx, gain.Input, []int{7}, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, dev.Gains()[7])
}

// ============================================================================
// Retries and Failures
// ============================================================================

// TestRetryBudget_NoResponse checks the attempt count and the time bound.
func TestRetryBudget_NoResponse(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetSync, sim.FaultDrop, always)))
	ctl := newController(t, dev, transport.FramingText)

	start := time.Now()
	_, err := ctl.SyncSource(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	var te *lucid.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, lucid.ReasonNoResponse, te.Reason)
	assert.Equal(t, device.DefaultRetries, te.Attempts)
	assert.Equal(t, device.DefaultRetries, dev.Count(lucid.CmdGetSync))
	assert.Less(t, elapsed, time.Duration(device.DefaultRetries)*testTimeout+200*time.Millisecond)

	var ae *device.AttrError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, lucid.AttrSync, ae.Attr)
	assert.Equal(t, "get", ae.Op)

	stats := ctl.Stats()
	assert.Equal(t, uint64(device.DefaultRetries), stats.Timeouts)
	assert.Equal(t, uint64(1), stats.Failures)
}

func TestRetryBudget_Custom(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetAesSrc, sim.FaultDrop, always)))
	ctl := newController(t, dev, transport.FramingText, device.WithRetries(5))

	_, err := ctl.AESSource(context.Background())
	require.True(t, lucid.IsTimeout(err))
	assert.Equal(t, 5, dev.Count(lucid.CmdGetAesSrc))
}

func TestTimeout_ConnectionStaysUsable(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetSync, sim.FaultDrop, always)))
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	_, err := ctl.SyncSource(ctx)
	require.True(t, lucid.IsTimeout(err))

	dev.SetFault(nil)
	got, err := ctl.SyncSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ADAT", got)
}

// latePort holds back the reply to the first command it sees and delivers it
// after delay, once the controller has stopped waiting for it.
type latePort struct {
	*sim.Device
	delay     time.Duration
	delivered chan struct{}

	mu      sync.Mutex
	hold    bool
	timeout time.Duration
	late    []byte
}

func newLatePort(dev *sim.Device, delay time.Duration) *latePort {
	return &latePort{Device: dev, delay: delay, delivered: make(chan struct{}), hold: true}
}

func (p *latePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	p.timeout = t
	p.mu.Unlock()
	return p.Device.SetReadTimeout(t)
}

func (p *latePort) Write(b []byte) (int, error) {
	n, err := p.Device.Write(b)
	if err != nil {
		return n, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hold {
		return n, nil
	}
	p.hold = false

	_ = p.Device.SetReadTimeout(0)
	buf := make([]byte, 256)
	m, _ := p.Device.Read(buf)
	_ = p.Device.SetReadTimeout(p.timeout)
	reply := append([]byte(nil), buf[:m]...)

	time.AfterFunc(p.delay, func() {
		p.mu.Lock()
		p.late = append(p.late, reply...)
		p.mu.Unlock()
		close(p.delivered)
	})
	return n, nil
}

func (p *latePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.late) > 0 {
		n := copy(b, p.late)
		p.late = p.late[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	return p.Device.Read(b)
}

func (p *latePort) ResetInputBuffer() error {
	p.mu.Lock()
	p.late = nil
	p.mu.Unlock()
	return p.Device.ResetInputBuffer()
}

// TestTimeout_LateReplyNotTakenForNextRequest checks that a reply arriving
// after its request gave up is not returned to the following request.
func TestTimeout_LateReplyNotTakenForNextRequest(t *testing.T) {
	dev := sim.New(0x01)
	port := newLatePort(dev, testTimeout+30*time.Millisecond)
	conn := transport.NewConn(port, transport.FramingText, testTimeout, "sim://01")
	ctl := device.New(conn, device.WithInstance(0x01), device.WithRetries(1))
	t.Cleanup(func() { _ = ctl.Close() })
	ctx := context.Background()

	_, err := ctl.SyncSource(ctx)
	require.True(t, lucid.IsTimeout(err))

	select {
	case <-port.delivered:
	case <-time.After(time.Second):
		t.Fatal("late reply never delivered")
	}

	dev.SetRegister(lucid.CmdGetSync, 4)
	for i := 0; i < 2; i++ {
		got, err := ctl.SyncSource(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AES In1", got, "read %d", i+1)
	}
	assert.Equal(t, 3, dev.Count(lucid.CmdGetSync))
}

func TestRetry_RecoversFromBadReplies(t *testing.T) {
	tests := []struct {
		name  string
		fault sim.Fault
	}{
		{"garbled", sim.FaultGarble},
		{"truncated", sim.FaultTruncate},
		{"dropped", sim.FaultDrop},
		{"wrong echo", sim.FaultWrongEcho},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := func(n int) bool { return n == 1 }
			dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetOptSrc, tt.fault, first)))
			dev.SetRegister(lucid.CmdGetOptSrc, 1)
			ctl := newController(t, dev, transport.FramingText)

			got, err := ctl.OpticalSource(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "AES In", got)
			assert.Equal(t, 2, dev.Count(lucid.CmdGetOptSrc))
		})
	}
}

func TestRetry_MalformedExhausted(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetSync, sim.FaultGarble, always)))
	ctl := newController(t, dev, transport.FramingText)

	_, err := ctl.SyncSource(context.Background())
	require.Error(t, err)
	assert.True(t, lucid.IsProtocol(err, lucid.ReasonMalformedResponse))
	assert.Equal(t, device.DefaultRetries, dev.Count(lucid.CmdGetSync))

	var pe *lucid.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, string(pe.Raw), "ZZ")
}

func TestRejected_NotRetried(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdSetSync, sim.FaultReject, always)))
	ctl := newController(t, dev, transport.FramingText)

	err := ctl.SetSyncSource(context.Background(), "WordClock")
	require.Error(t, err)
	assert.True(t, lucid.IsProtocol(err, lucid.ReasonNotAcknowledged))
	assert.Equal(t, 1, dev.Count(lucid.CmdSetSync))
	assert.Equal(t, 0, dev.Register(lucid.CmdGetSync))
}

func TestContextCancelled(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ctl.SyncSource(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dev.Received())
}

// ============================================================================
// Device Mismatch
// ============================================================================

func TestDeviceMismatch_ClosesConnection(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	_, err := ctl.SyncSource(ctx)
	require.NoError(t, err)

	dev.SetInstance(0x02)
	_, err = ctl.SyncSource(ctx)
	require.Error(t, err)
	assert.True(t, lucid.IsConnection(err, lucid.ReasonDeviceMismatch))
	assert.Equal(t, 2, dev.Count(lucid.CmdGetSync), "mismatch is not retried")

	// Every later call fails the same way without touching the line
	err = ctl.SetAESSource(ctx, "ADAT In")
	assert.True(t, lucid.IsConnection(err, lucid.ReasonDeviceMismatch))
	assert.Equal(t, 0, dev.Count(lucid.CmdSetAesSrc))

	assert.Equal(t, uint64(1), ctl.Stats().Mismatches)
}

func TestDeviceMismatch_WrongInstanceFault(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetAnalogGain, sim.FaultWrongInstance, always)))
	ctl := newController(t, dev, transport.FramingText)

	_, _, err := ctl.Gains(context.Background())
	require.Error(t, err)
	assert.True(t, lucid.IsConnection(err, lucid.ReasonDeviceMismatch))
}

// ============================================================================
// Error Flag
// ============================================================================

// TestErrorFlag_GatesReads walks the flag from raised to clear.
func TestErrorFlag_GatesReads(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetSync, sim.FaultFlag, func(n int) bool { return n == 1 })))
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	// The flagged reply itself is not trusted
	_, err := ctl.SyncSource(ctx)
	require.Error(t, err)
	assert.True(t, lucid.IsState(err))
	assert.True(t, ctl.ErrorFlag().Flagged())

	// Later reads fail before any I/O
	_, err = ctl.AESSource(ctx)
	assert.True(t, lucid.IsState(err))
	assert.Equal(t, 0, dev.Count(lucid.CmdGetAesSrc))
	_, _, err = ctl.Gains(ctx)
	assert.True(t, lucid.IsState(err))

	// Read-modify-write setters are reads too; plain setters go through
	assert.True(t, lucid.IsState(ctl.SetMeterSource(ctx, "Analog In")))
	require.NoError(t, ctl.SetAESSource(ctx, "Analog In"))

	state, err := ctl.CheckErrorFlag(ctx)
	require.NoError(t, err)
	assert.Equal(t, device.FlagRaised, state.Phase)
	assert.Equal(t, byte(0x01), state.Raw)

	require.NoError(t, ctl.ClearErrorFlag(ctx))
	assert.Equal(t, device.FlagClearPending, ctl.ErrorFlag().Phase)

	// Cleared but not re-checked
	_, err = ctl.SyncSource(ctx)
	assert.True(t, lucid.IsState(err))

	state, err = ctl.CheckErrorFlag(ctx)
	require.NoError(t, err)
	assert.Equal(t, device.FlagClear, state.Phase)

	got, err := ctl.AESSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Analog In", got)
}

func TestErrorFlag_CheckReportsRawValue(t *testing.T) {
	dev := sim.New(0x01)
	dev.RaiseError(0x23)
	ctl := newController(t, dev, transport.FramingText)

	state, err := ctl.CheckErrorFlag(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flagged())
	assert.Equal(t, byte(0x23), state.Raw)
}

func TestErrorFlag_ClearNotAcknowledged(t *testing.T) {
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdClearStatus, sim.FaultReject, always)))
	dev.RaiseError(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	_, err := ctl.CheckErrorFlag(ctx)
	require.NoError(t, err)

	err = ctl.ClearErrorFlag(ctx)
	require.Error(t, err)
	assert.True(t, lucid.IsProtocol(err, lucid.ReasonNotAcknowledged))
	assert.Equal(t, device.FlagRaised, ctl.ErrorFlag().Phase)
}

// ============================================================================
// Gains
// ============================================================================

// TestSetGainChannels_Integrity checks listed channels change and others do not.
func TestSetGainChannels_Integrity(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	raw, err := gain.RawFromDB(-6)
	require.NoError(t, err)

	list, err := ctl.SetGainChannels(ctx, gain.Output, []int{1, 3}, raw)
	require.NoError(t, err)
	assert.Equal(t, []int{96, raw, 96, raw, 96, 96, 96, 96}, list.Raws())

	for ch := 0; ch < gain.Channels; ch++ {
		want := "+0"
		if ch == 1 || ch == 3 {
			want = "-6"
		}
		got, err := ctl.GetGain(ctx, gain.Output, ch)
		require.NoError(t, err)
		assert.Equal(t, want, got, "output channel %d", ch)

		got, err = ctl.GetGain(ctx, gain.Input, ch)
		require.NoError(t, err)
		assert.Equal(t, "+0", got, "input channel %d", ch)
	}

	assert.Equal(t, 2, dev.Count(lucid.CmdSetAnalogGain))
}

func TestSetGainChannels_ValidatesBeforeIO(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	_, err := ctl.SetGainChannels(ctx, gain.Input, []int{0, 8}, 90)
	require.Error(t, err)
	var ve *lucid.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, lucid.ReasonInvalidChannel, ve.Reason)

	_, err = ctl.SetGainChannels(ctx, gain.Input, []int{0}, 0x80)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, lucid.ReasonOutOfRange, ve.Reason)

	_, err = ctl.SetGainChannels(ctx, gain.Stage(7), []int{0}, 90)
	assert.True(t, lucid.IsValue(err))

	_, err = ctl.GetGain(ctx, gain.Input, -1)
	assert.True(t, lucid.IsValue(err))

	assert.Empty(t, dev.Received())
}

// TestWriteGainList_PartialFailure fails the sixth channel write.
func TestWriteGainList_PartialFailure(t *testing.T) {
	sixth := func(n int) bool { return n == 6 }
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdSetAnalogGain, sim.FaultReject, sixth)))
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	list, err := gain.Uniform(gain.Input, 100)
	require.NoError(t, err)

	err = ctl.WriteGainList(ctx, list)
	require.Error(t, err)

	var we *device.GainWriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, gain.Input, we.Stage)
	assert.Equal(t, 5, we.Channel)
	assert.Equal(t, 100, we.Attempted)
	require.Len(t, we.Written, 5)
	for i, e := range we.Written {
		assert.Equal(t, i, e.Channel)
		assert.Equal(t, 100, e.Raw)
	}
	assert.True(t, lucid.IsProtocol(err, lucid.ReasonNotAcknowledged))

	// Channels 6 and 7 were never attempted
	assert.Equal(t, 6, dev.Count(lucid.CmdSetAnalogGain))
	assert.Equal(t, []int{100, 100, 100, 100, 100, 96, 96, 96}, dev.Gains()[:gain.Channels])

	in, _, err := ctl.CachedGains()
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 100, 100, 100, 96, 96, 96}, in.Raws())
}

func TestWriteGainList_Success(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	list, err := gain.NewList(gain.Output, []int{90, 91, 92, 93, 94, 95, 96, 97})
	require.NoError(t, err)
	require.NoError(t, ctl.WriteGainList(ctx, list))

	_, out, err := ctl.Gains(ctx)
	require.NoError(t, err)
	assert.True(t, out.Equal(list))
	assert.Equal(t, gain.Channels, dev.Count(lucid.CmdSetAnalogGain))
}

func TestApplyPreset(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	require.NoError(t, ctl.ApplyPreset(ctx, gain.PresetMinus10DBV))
	assert.Equal(t, 1, dev.Count(lucid.CmdSetAnalogGain))

	in, out, err := ctl.Gains(ctx)
	require.NoError(t, err)
	for ch := 0; ch < gain.Channels; ch++ {
		db, _ := in.DB(ch)
		assert.Equal(t, "+4", db)
		db, _ = out.DB(ch)
		assert.Equal(t, "-11", db)
	}
}

// ============================================================================
// Concurrency, Raw, Trace
// ============================================================================

func TestConcurrentRequestsSerialized(t *testing.T) {
	dev := sim.New(0x01)
	dev.SetRegister(lucid.CmdGetSync, 4)
	ctl := newController(t, dev, transport.FramingText)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ctl.SyncSource(ctx)
			if err == nil && got != "AES In1" {
				err = errors.New("unexpected value " + got)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	stats := ctl.Stats()
	assert.Equal(t, uint64(16), stats.Requests)
	assert.Equal(t, uint64(16), stats.Attempts)
}

func TestRaw_UnknownKeyRejected(t *testing.T) {
	dev := sim.New(0x01)
	ctl := newController(t, dev, transport.FramingText)

	reply, err := ctl.Raw(context.Background(), 0x55, 0x01)
	require.Error(t, err)
	assert.True(t, lucid.IsProtocol(err, lucid.ReasonNotAcknowledged))
	require.NotNil(t, reply)
	assert.True(t, reply.Rejected())
	assert.Equal(t, lucid.CommandKey(0x55), reply.Echo())
}

func TestRaw_KnownKey(t *testing.T) {
	dev := sim.New(0x01)
	dev.SetRegister(lucid.CmdGetMode, 3)
	ctl := newController(t, dev, transport.FramingText)

	reply, err := ctl.Raw(context.Background(), lucid.CmdGetMode)
	require.NoError(t, err)
	v, err := reply.Value()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestTrace_RecordsExchanges(t *testing.T) {
	var buf bytes.Buffer
	rec := trace.NewRecorder(&buf)

	first := func(n int) bool { return n == 1 }
	dev := sim.New(0x01, sim.WithFault(faultOn(lucid.CmdGetSync, sim.FaultDrop, first)))
	ctl := newController(t, dev, transport.FramingText, device.WithTrace(rec))

	_, err := ctl.SyncSource(context.Background())
	require.NoError(t, err)

	events, err := trace.ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, events, 4)

	dirs := []trace.Direction{trace.DirTX, trace.DirTimeout, trace.DirTX, trace.DirRX}
	for i, ev := range events {
		assert.Equal(t, dirs[i], ev.Direction, "event %d", i)
		assert.Equal(t, rec.Session().String(), ev.Session)
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, "GetSync", ev.Command)
	}
	assert.Equal(t, 2, events[3].Attempt)
	assert.Equal(t, "F0 00 00 5E 58 01 05 61 00 F7", string(events[3].Frame))
}
