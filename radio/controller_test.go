// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package radio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/msiner/rtlradio-go/radio/decoder"
	"github.com/msiner/rtlradio-go/rtl"
	"github.com/msiner/rtlradio-go/rtl/r820t"
	"github.com/msiner/rtlradio-go/usb"
	"github.com/msiner/rtlradio-go/usb/usbtest"
	"github.com/stretchr/testify/require"
	"hz.tools/rf"
)

func resultWithLevel(level float64, stereo bool) decoder.Result {
	return decoder.Result{
		Left:  []float32{0, 0},
		Right: []float32{0, 0},
		Echo:  decoder.Echo{"stereo": stereo, "signalLevel": level},
	}
}

func reverseByteForTest(b byte) byte {
	nibble := [16]byte{
		0x0, 0x8, 0x4, 0xc, 0x2, 0xa, 0x6, 0xe,
		0x1, 0x9, 0x5, 0xd, 0x3, 0xb, 0x7, 0xf,
	}
	return nibble[b&0x0f]<<4 | nibble[b>>4]
}

func seedAlwaysLockedTuner(fake *usbtest.Fake) {
	fake.SetI2CReg(r820t.I2CAddr, 0x00, 0x69) // chip ID, probed raw
	fake.SetI2CReg(r820t.I2CAddr, 0x02, reverseByteForTest(0x40))
	fake.SetI2CReg(r820t.I2CAddr, 0x04, reverseByteForTest(0x20))
}

type fakeSink struct {
	blocks int
}

func (f *fakeSink) Play(left, right []float32) error {
	f.blocks++
	return nil
}

// TestScenarioS1StartStop pins Scenario S1: with a fake USB and a fake
// R820T that always locks, start() reaches PLAYING quickly, and
// stop() returns to OFF with exactly one tuner-close and one
// USB-release.
func TestScenarioS1StartStop(t *testing.T) {
	fake := usbtest.New()
	seedAlwaysLockedTuner(fake)
	sink := &fakeSink{}

	c, err := New(
		WithDeviceOpener(func(ctx context.Context) (usb.Transport, error) { return fake, nil }),
		WithAudioSink(sink),
	)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	require.True(t, c.waitForState(StatePlaying, 200*time.Millisecond))

	require.NoError(t, c.Stop(context.Background()))
	require.Equal(t, StateOff, c.getState())
	require.Equal(t, 1, fake.ReleaseCalls)
}

// TestScenarioS2SmallRetuneSkipsRetune pins Scenario S2: a small
// frequency delta (<=300 kHz) resumes without re-tuning the hardware
// or resetting the buffer.
func TestScenarioS2SmallRetuneSkipsRetune(t *testing.T) {
	fake := usbtest.New()
	seedAlwaysLockedTuner(fake)

	dongle, err := rtl.Open(context.Background(), fake, 0, nil)
	require.NoError(t, err)

	c := &Controller{state: StateChgFreq, dongle: dongle}
	c.freq = rf.Hz(88_500_000)
	c.pendingFreq = rf.Hz(88_700_000)

	var resetWrites int
	fake.OnControlWrite = func(value, index uint16, data []byte) {
		if value == 0x2148 && index == 0x100 {
			resetWrites++
		}
	}

	c.applyCoalescedRetune(context.Background())

	require.Equal(t, 0, resetWrites)
	require.Equal(t, StatePlaying, c.state)
	require.Equal(t, rf.Hz(88_700_000), c.freq)
}

// TestScenarioS3LargeRetuneResetsBuffer pins Scenario S3: a large
// frequency delta re-tunes the hardware and resets the buffer.
func TestScenarioS3LargeRetuneResetsBuffer(t *testing.T) {
	fake := usbtest.New()
	seedAlwaysLockedTuner(fake)

	dongle, err := rtl.Open(context.Background(), fake, 0, nil)
	require.NoError(t, err)

	c := &Controller{state: StateChgFreq, dongle: dongle}
	c.freq = rf.Hz(88_500_000)
	c.pendingFreq = rf.Hz(100_100_000)

	var resetWrites, muxWrites int
	fake.OnControlWrite = func(value, index uint16, data []byte) {
		if value == 0x2148 && index == 0x100 {
			resetWrites++
		}
		if index == 0x600 && len(data) > 0 && data[0] == 0x17 {
			muxWrites++
		}
	}

	c.applyCoalescedRetune(context.Background())

	require.Equal(t, 2, resetWrites) // assert + deassert
	require.Greater(t, muxWrites, 0)
	require.Equal(t, StatePlaying, c.state)
	require.Equal(t, rf.Hz(100_100_000), c.freq)
}

// TestScenarioS4ScanStopsOnSignal pins Scenario S4's squelch-stop
// logic: when a decoded block's signalLevel exceeds the scan
// threshold while SCANNING/DETECTING, the controller stops scanning
// on that frequency and hands control back to PLAYING via a
// set_frequency (CHG_FREQ).
func TestScenarioS4ScanStopsOnSignal(t *testing.T) {
	c := &Controller{state: StateScanningDetecting}
	c.spaceCond = sync.NewCond(&c.mu)
	c.freq = rf.Hz(95_100_000)
	c.scanMin = rf.Hz(88_000_000)
	c.scanMax = rf.Hz(108_000_000)
	c.scanStep = rf.Hz(100_000)

	c.handleResult(resultWithLevel(0.6, false))

	require.Equal(t, StateChgFreq, c.state)
	require.Equal(t, rf.Hz(95_100_000), c.pendingFreq)
}

func TestScanContinuesWhenNoSignal(t *testing.T) {
	c := &Controller{state: StateScanningDetecting}
	c.spaceCond = sync.NewCond(&c.mu)
	c.freq = rf.Hz(95_100_000)
	c.scanMin = rf.Hz(88_000_000)
	c.scanMax = rf.Hz(108_000_000)
	c.scanStep = rf.Hz(100_000)

	c.handleResult(resultWithLevel(0.1, false))

	require.Equal(t, StateScanningTuning, c.state)
	require.Equal(t, rf.Hz(95_200_000), c.pendingFreq)
}

func TestScanWrapsAtMax(t *testing.T) {
	c := &Controller{state: StateScanningDetecting}
	c.spaceCond = sync.NewCond(&c.mu)
	c.freq = rf.Hz(108_000_000)
	c.scanMin = rf.Hz(88_000_000)
	c.scanMax = rf.Hz(108_000_000)
	c.scanStep = rf.Hz(100_000)

	c.handleResult(resultWithLevel(0.0, false))

	require.Equal(t, rf.Hz(88_000_000), c.pendingFreq)
}

func TestSetFrequencyCoalescesLatestWins(t *testing.T) {
	c := &Controller{state: StatePlaying}
	c.freq = rf.Hz(100_000_000)

	c.SetFrequency(rf.Hz(101_000_000))
	c.SetFrequency(rf.Hz(102_000_000))

	require.Equal(t, StateChgFreq, c.state)
	require.Equal(t, rf.Hz(102_000_000), c.pendingFreq)
}
