// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package radio is the supervisor: it owns the RTL2832U dongle and the
// decoder task, drives the PLAYING/SCANNING state machine, and
// exposes the coarse public API a UI collaborator consumes.
package radio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/msiner/rtlradio-go/dsp/demod"
	"github.com/msiner/rtlradio-go/radio/decoder"
	"github.com/msiner/rtlradio-go/rtl"
	"github.com/msiner/rtlradio-go/usb"
	"hz.tools/rf"
)

// Fixed constants
const (
	SampleRate    = 1_024_000
	BufsPerSec    = 5
	SamplesPerBuf = SampleRate / BufsPerSec

	// retuneThreshold is the frequency delta below which a
	// set_frequency is satisfied by the existing tune (S2) rather
	// than issuing a new set_center_frequency + reset_buffer (S3).
	retuneThreshold = 300_000

	// squelchScanThreshold is the signalLevel above which a scan stops
	// on the current frequency.
	squelchScanThreshold = 0.5

	ppmEstimateBlocks = 50

	// maxUnackedBlocks bounds how many blocks may be requested from the
	// dongle before the controller stalls readLoop: Testable Property 1
	// requires requestingBlocks + playingBlocks <= 4 at all times. A
	// block counts against this budget from the moment readLoop issues
	// its read until handleResult has handed it to the audio sink.
	maxUnackedBlocks = 4
)

// State is the controller's coarse state, tracking progress through
// the OFF/STARTING/PLAYING/SCANNING/STOPPING state machine.
type State int

const (
	StateOff State = iota
	StateStartingUSB
	StateStartingTuner
	StateStartingAllOn
	StatePlaying
	StateChgFreq
	StateScanningTuning
	StateScanningDetecting
	StateStoppingAllOn
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateStartingUSB:
		return "STARTING/USB"
	case StateStartingTuner:
		return "STARTING/TUNER"
	case StateStartingAllOn:
		return "STARTING/ALL_ON"
	case StatePlaying:
		return "PLAYING"
	case StateChgFreq:
		return "CHG_FREQ"
	case StateScanningTuning:
		return "SCANNING/TUNING"
	case StateScanningDetecting:
		return "SCANNING/DETECTING"
	case StateStoppingAllOn:
		return "STOPPING/ALL_ON"
	default:
		return "UNKNOWN"
	}
}

// Mode selects a demodulator and its mode-specific parameters.
type Mode struct {
	Name      string // "WBFM", "NBFM", "AM", or "SSB"
	MaxF      float64
	Bandwidth float64
	Upper     bool
}

func (m Mode) factory() decoder.Factory {
	return func() demod.Demodulator {
		switch m.Name {
		case "NBFM":
			return demod.NewNBFM(decoder.InRate, m.MaxF)
		case "AM":
			return demod.NewAM(decoder.InRate, m.Bandwidth)
		case "SSB":
			return demod.NewSSB(decoder.InRate, m.Bandwidth, m.Upper)
		default:
			return demod.NewWBFM(decoder.InRate)
		}
	}
}

// DeviceOpener locates and opens the USB transport for a compatible
// dongle. The default implementation uses package usb; tests inject a
// fake via WithDeviceOpener.
type DeviceOpener func(ctx context.Context) (usb.Transport, error)

// ConfigFn configures a Controller at construction time, following the
// same functional-options convention used throughout this module.
type ConfigFn func(c *Controller) error

// WithDeviceOpener overrides how the controller locates its USB
// transport.
func WithDeviceOpener(opener DeviceOpener) ConfigFn {
	return func(c *Controller) error {
		c.openDevice = opener
		return nil
	}
}

// WithAudioSink sets the sink that receives decoded audio blocks.
func WithAudioSink(sink AudioSink) ConfigFn {
	return func(c *Controller) error {
		c.sink = sink
		return nil
	}
}

// WithLogger sets the structured logger used for diagnostic messages.
func WithLogger(l *log.Logger) ConfigFn {
	return func(c *Controller) error {
		c.log = l
		return nil
	}
}

// Controller is the radio supervisor: it owns the dongle and decoder
// task and drives the PLAYING/SCANNING state machine.
type Controller struct {
	openDevice DeviceOpener
	sink       AudioSink
	log        *log.Logger

	mu          sync.Mutex
	state       State
	mode        Mode
	freq        rf.Hz
	pendingFreq rf.Hz
	ppm         int
	manualGain  *float64
	volume      float64
	squelch     float64
	stereoEn    bool
	stereoFound bool

	scanMin, scanMax, scanStep rf.Hz

	onError func(error)

	estimatingPpm bool
	ppmBlocks     int
	ppmSum        float64

	dongle *rtl.Dongle
	worker *decoder.Worker
	audio  chan decoder.Result

	// unackedBlocks is the controller's own back-pressure counter: it
	// is incremented when readLoop reserves a read slot and decremented
	// in handleResult once the sink has consumed that block. spaceCond
	// wakes readLoop when a slot frees up or ctx is canceled.
	unackedBlocks int
	spaceCond     *sync.Cond

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Controller and applies each ConfigFn in order.
func New(fns ...ConfigFn) (*Controller, error) {
	c := &Controller{
		state:   StateOff,
		mode:    Mode{Name: "WBFM"},
		freq:    rf.Hz(100_000_000),
		volume:  1.0,
		squelch: 0,
	}
	c.spaceCond = sync.NewCond(&c.mu)
	for _, fn := range fns {
		if err := fn(c); err != nil {
			return nil, err
		}
	}
	if c.openDevice == nil {
		c.openDevice = defaultDeviceOpener
	}
	if c.log == nil {
		c.log = log.Default()
	}
	return c, nil
}

func defaultDeviceOpener(ctx context.Context) (usb.Transport, error) {
	dev, err := usb.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	}
	return dev, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) getState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) fail(err error) {
	if c.log != nil {
		c.log.Error("radio error", "err", err)
	}
	c.setState(StateOff)
	if c.onError != nil {
		c.onError(err)
	}
}

// Start runs the OFF->PLAYING startup sequence: find the device, open
// the RTL2832U and tuner, set the sample rate and center frequency,
// reset the buffer, and begin the concurrent read and audio loops.
func (c *Controller) Start(ctx context.Context) error {
	if c.getState() != StateOff {
		return fmt.Errorf("%w: start called while not OFF", ErrInvalidState)
	}
	c.setState(StateStartingUSB)

	transport, err := c.openDevice(ctx)
	if err != nil {
		c.fail(err)
		return err
	}

	c.setState(StateStartingTuner)
	var gain *float64
	c.mu.Lock()
	gain = c.manualGain
	ppm := c.ppm
	freq := c.freq
	c.mu.Unlock()

	dongle, err := rtl.Open(ctx, transport, ppm, gain, rtl.WithLogger(c.log))
	if err != nil {
		c.fail(err)
		return err
	}
	if _, err := dongle.SetSampleRate(ctx, SampleRate); err != nil {
		c.fail(err)
		return err
	}
	if err := dongle.SetCenterFrequency(ctx, freq); err != nil {
		c.fail(err)
		return err
	}

	c.setState(StateStartingAllOn)
	if err := dongle.ResetBuffer(ctx); err != nil {
		c.fail(err)
		return err
	}

	c.dongle = dongle

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.audio = make(chan decoder.Result, 2)
	c.mu.Lock()
	c.unackedBlocks = 0
	c.mu.Unlock()

	c.worker = decoder.NewWorker(c.audio)
	go c.worker.Run(runCtx)
	c.worker.SetMode(c.currentMode().factory())

	c.setState(StatePlaying)

	go c.readLoop(runCtx)
	go c.audioLoop(runCtx)

	return nil
}

func (c *Controller) currentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// readLoop issues reads one at a time, gated by acquireReadSlot so no
// more than maxUnackedBlocks blocks are ever outstanding between the
// dongle and the audio sink, applying any coalesced retune first.
func (c *Controller) readLoop(ctx context.Context) {
	for {
		if !c.acquireReadSlot(ctx) {
			return
		}

		if c.getState() == StateStoppingAllOn {
			c.releaseReadSlot()
			return
		}

		c.applyCoalescedRetune(ctx)

		buf, err := c.dongle.ReadSamples(ctx, SamplesPerBuf)
		if err != nil {
			c.releaseReadSlot()
			if ctx.Err() != nil {
				return
			}
			c.fail(fmt.Errorf("%w: %v", ErrTransport, err))
			return
		}

		freq := c.GetFrequency()
		c.worker.Process(buf, c.IsStereoEnabled(), 0, decoder.Echo{"freq": freq})
	}
}

// acquireReadSlot reserves one of the maxUnackedBlocks back-pressure
// slots, blocking until a slot frees up. It returns false without
// reserving a slot if ctx is canceled first.
func (c *Controller) acquireReadSlot(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.unackedBlocks >= maxUnackedBlocks {
		if ctx.Err() != nil {
			return false
		}
		c.spaceCond.Wait()
	}
	if ctx.Err() != nil {
		return false
	}
	c.unackedBlocks++
	return true
}

// releaseReadSlot frees one back-pressure slot reserved by
// acquireReadSlot and wakes a reader blocked waiting for one, called
// once a block has been either handed to the sink or abandoned.
func (c *Controller) releaseReadSlot() {
	c.mu.Lock()
	c.unackedBlocks--
	c.mu.Unlock()
	c.spaceCond.Signal()
}

// applyCoalescedRetune handles a pending set_frequency or scan step:
// small deltas resume immediately; large deltas re-tune and reset the
// buffer.
func (c *Controller) applyCoalescedRetune(ctx context.Context) {
	c.mu.Lock()
	state := c.state
	target := c.pendingFreq
	current := c.freq
	c.mu.Unlock()

	if state != StateChgFreq && state != StateScanningTuning {
		return
	}

	delta := math.Abs(float64(target - current))
	if delta > retuneThreshold {
		if err := c.dongle.SetCenterFrequency(ctx, target); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrTransport, err))
			return
		}
		if err := c.dongle.ResetBuffer(ctx); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrTransport, err))
			return
		}
	}

	c.mu.Lock()
	c.freq = target
	if state == StateScanningTuning {
		c.state = StateScanningDetecting
	} else {
		c.state = StatePlaying
	}
	c.mu.Unlock()
}

// audioLoop drains decoded blocks, applies volume, feeds the audio
// sink, tracks PPM estimation samples, and drives the SCANNING state
// machine based on each block's signalLevel.
func (c *Controller) audioLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-c.audio:
			if !ok {
				return
			}
			c.handleResult(res)
		}
	}
}

// handleResult consumes one decoded block. The read slot it was
// counted against (see acquireReadSlot) is only released once the sink
// has actually played it, on every path including a sink error, so
// unackedBlocks always reflects blocks genuinely unacknowledged by the
// sink rather than the transient state of any channel.
func (c *Controller) handleResult(res decoder.Result) {
	defer c.releaseReadSlot()

	c.mu.Lock()
	vol := c.volume
	stereo, _ := res.Echo["stereo"].(bool)
	level, _ := res.Echo["signalLevel"].(float64)
	if level < c.squelch {
		vol = 0
	}
	c.stereoFound = stereo
	estimating := c.estimatingPpm
	c.mu.Unlock()

	left := scale(res.Left, vol)
	right := scale(res.Right, vol)

	if c.sink != nil {
		if err := c.sink.Play(left, right); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrTransport, err))
			return
		}
	}

	if estimating {
		c.accumulatePpm(left)
	}

	if c.getState() == StateScanningDetecting {
		c.mu.Lock()
		min, max, step := c.scanMin, c.scanMax, c.scanStep
		cur := c.freq
		c.mu.Unlock()

		if level > squelchScanThreshold {
			c.SetFrequency(cur)
			return
		}

		next := cur + step
		if next > max {
			next = min
		}
		c.mu.Lock()
		c.pendingFreq = next
		c.state = StateScanningTuning
		c.mu.Unlock()
	}
}

func scale(in []float32, vol float64) []float32 {
	out := make([]float32, len(in))
	v := float32(vol)
	for i, x := range in {
		out[i] = x * v
	}
	return out
}

func (c *Controller) accumulatePpm(left []float32) {
	if len(left) == 0 {
		return
	}
	var sum float64
	for _, v := range left {
		sum += float64(v)
	}
	mean := sum / float64(len(left))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ppmSum += mean
	c.ppmBlocks++
	if c.ppmBlocks >= ppmEstimateBlocks {
		meanOffset := c.ppmSum / float64(c.ppmBlocks)
		estimate := math.Round(float64(c.ppm) - 1e6*(75000*meanOffset)/float64(c.freq))
		c.ppm = int(estimate)
		c.estimatingPpm = false
		c.ppmBlocks = 0
		c.ppmSum = 0
	}
}

// Stop transitions PLAYING/SCANNING/CHG_FREQ back to OFF: it drains
// in-flight reads, closes the tuner, then the USB device.
func (c *Controller) Stop(ctx context.Context) error {
	if c.getState() == StateOff {
		return nil
	}
	c.setState(StateStoppingAllOn)

	if c.cancel != nil {
		c.cancel()
	}
	// Wake a readLoop blocked in acquireReadSlot so it observes the
	// canceled context instead of waiting for a slot that will never
	// come, now that no further blocks will be acknowledged.
	c.spaceCond.Broadcast()
	if c.done != nil {
		close(c.done)
	}

	var err error
	if c.dongle != nil {
		err = c.dongle.Close(ctx)
	}
	c.setState(StateOff)
	return err
}

// SetFrequency requests a retune to hz. Per the coalescing invariant,
// repeated calls before the previous retune lands overwrite the
// pending target rather than queueing multiple tunes.
func (c *Controller) SetFrequency(hz rf.Hz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingFreq = hz
	switch c.state {
	case StatePlaying:
		c.state = StateChgFreq
	case StateScanningDetecting:
		c.state = StateChgFreq
	}
}

// GetFrequency returns the currently tuned center frequency.
func (c *Controller) GetFrequency() rf.Hz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freq
}

// SetMode replaces the active demodulator. Takes effect on the next
// decoded block.
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	c.mode = mode
	worker := c.worker
	c.mu.Unlock()
	if worker != nil {
		worker.SetMode(mode.factory())
	}
}

// GetMode returns the active demodulation mode.
func (c *Controller) GetMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetSquelch sets the squelch level: a decoded block whose signalLevel
// is below it is played as silence. Scans stop at the fixed
// squelchScanThreshold, independent of this level.
func (c *Controller) SetSquelch(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.squelch = level
}

// Scan starts a frequency sweep from min to max in step increments,
// stopping when a block's signalLevel exceeds the squelch scan
// threshold.
func (c *Controller) Scan(min, max, step rf.Hz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanMin, c.scanMax, c.scanStep = min, max, step
	c.pendingFreq = c.freq + step
	c.state = StateScanningTuning
}

// IsScanning reports whether a scan is in progress.
func (c *Controller) IsScanning() bool {
	s := c.getState()
	return s == StateScanningTuning || s == StateScanningDetecting
}

// IsPlaying reports whether the controller is actively playing audio.
func (c *Controller) IsPlaying() bool {
	s := c.getState()
	return s == StatePlaying || s == StateChgFreq || c.IsScanning()
}

// IsStereo reports whether the most recently decoded block was
// detected as stereo.
func (c *Controller) IsStereo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stereoFound
}

// IsStereoEnabled reports whether stereo decoding has been requested.
func (c *Controller) IsStereoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stereoEn
}

// EnableStereo requests (or disables) stereo decoding for WBFM.
func (c *Controller) EnableStereo(en bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stereoEn = en
}

// SetVolume sets the output volume multiplier.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
}

// SetCorrectionPPM sets the crystal PPM correction. It only takes
// effect on the next Start.
func (c *Controller) SetCorrectionPPM(ppm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ppm = ppm
}

// SetAutoGain re-enables the tuner's internal AGC.
func (c *Controller) SetAutoGain(ctx context.Context) error {
	c.mu.Lock()
	c.manualGain = nil
	dongle := c.dongle
	c.mu.Unlock()
	if dongle == nil {
		return nil
	}
	return dongle.SetAutoGain(ctx)
}

// SetManualGain sets a fixed manual gain in dB.
func (c *Controller) SetManualGain(ctx context.Context, db float64) error {
	c.mu.Lock()
	c.manualGain = &db
	dongle := c.dongle
	c.mu.Unlock()
	if dongle == nil {
		return nil
	}
	return dongle.SetGain(ctx, db)
}

// EstimatePPM starts or stops accumulating left-channel samples for a
// PPM correction estimate.
func (c *Controller) EstimatePPM(enable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimatingPpm = enable
	c.ppmBlocks = 0
	c.ppmSum = 0
}

// GetPPMEstimate returns the most recently completed PPM estimate.
func (c *Controller) GetPPMEstimate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ppm
}

// StartRecording begins persisting audio through a RecordingSink.
func (c *Controller) StartRecording(dest string) error {
	rs, ok := c.sink.(RecordingSink)
	if !ok {
		return fmt.Errorf("radio: audio sink does not support recording")
	}
	return rs.StartRecording(dest)
}

// StopRecording stops a recording started by StartRecording.
func (c *Controller) StopRecording() error {
	rs, ok := c.sink.(RecordingSink)
	if !ok {
		return nil
	}
	return rs.StopRecording()
}

// SetOnError installs the handler invoked when any operation fails
// fatally.
func (c *Controller) SetOnError(h func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = h
}

// waitForState polls until the controller reaches want or the timeout
// elapses, for tests that need to observe an asynchronous transition.
func (c *Controller) waitForState(want State, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.getState() == want {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.getState() == want
}
