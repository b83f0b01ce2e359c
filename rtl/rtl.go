// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtl drives the RTL2832U demodulator chip: register init,
// sample-rate programming with PPM correction, IF offset, buffer
// reset, and the bulk sample pump, composed on top of package usb,
// rtl/regs, and rtl/r820t.
package rtl

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/msiner/rtlradio-go/rtl/r820t"
	"github.com/msiner/rtlradio-go/rtl/regs"
	"github.com/msiner/rtlradio-go/usb"
	"hz.tools/rf"
)

// Fixed constants.
const (
	XtalFreq rf.Hz = 28_800_000
	IfFreq   rf.Hz = 3_570_000

	// BytesPerSample is 2 bytes (one byte each for I and Q) per IQ
	// sample pulled off the bulk endpoint.
	BytesPerSample = 2
)

// ErrUnsupportedTuner is returned by Open when the attached tuner does
// not identify itself as an R820T (I2C device 0x34, register 0 == 0x69).
var ErrUnsupportedTuner = errors.New("rtl: unsupported tuner chip")

// demodInit is the fixed ~36-entry demod register init table applied
// during Open, before the sample rate or center frequency are set.
// Values are (page, addr, value, length) in the same shape as
// regs.Registers.WriteDemodReg.
type demodInitEntry struct {
	page   uint16
	addr   uint8
	value  uint32
	length int
}

var demodInit = []demodInitEntry{
	{0, 0x01, 0x14, 1},
	{1, 0x01, 0x14, 1},
	{1, 0x15, 0x00, 1},
	{0, 0x08, 0x4d, 1},
	{0, 0x06, 0x80, 1},
	{0, 0x07, 0x03, 1},
	{0, 0x0a, 0x4d, 1},
	{0, 0x0d, 0x5f, 1},
	{0, 0x0e, 0xae, 1},
	{0, 0x0f, 0x67, 1},
	{0, 0x10, 0x00, 1},
	{0, 0x11, 0x14, 1},
	{1, 0x15, 0x01, 1},
	{1, 0x16, 0x0d, 1},
	{1, 0x17, 0xf4, 1},
	{1, 0x18, 0x00, 1},
	{1, 0x19, 0x00, 1},
	{1, 0x1a, 0x00, 1},
	{1, 0x1b, 0x00, 1},
	{1, 0x1c, 0xc0, 1},
	{1, 0x1d, 0x00, 1},
	{0, 0x19, 0x00, 1},
	{0, 0x1a, 0x00, 1},
	{0, 0x1b, 0x00, 1},
	{0, 0x15, 0x01, 1},
	{0, 0x16, 0x00, 1},
	{0, 0x17, 0x00, 1},
	{0, 0x18, 0x00, 1},
	{0, 0x1c, 0xca, 1},
	{0, 0x1d, 0xdc, 1},
	{0, 0x1e, 0xd7, 1},
	{0, 0x1f, 0xd8, 1},
	{0, 0x20, 0xe0, 1},
	{0, 0x21, 0xf2, 1},
	{0, 0x22, 0x0e, 1},
	{0, 0x23, 0x35, 1},
	{0, 0x24, 0x06, 1},
}

// sysctlPreludeEntry is one write in the USB/SYS sysctl prelude applied
// immediately after claiming the interface, before demodInit runs.
type sysctlPreludeEntry struct {
	block  regs.Block
	addr   uint16
	value  uint32
	length int
}

// sysctlPreludeTable brings up the USB bridge and system controller: enable
// the USB controller's SYSCTL, size endpoint A's max packet, and take
// the demodulator out of reset via the two DEMOD_CTL registers.
var sysctlPreludeTable = []sysctlPreludeEntry{
	{regs.BlockUSB, 0x2000, 0x09, 1},   // SYSCTL
	{regs.BlockUSB, 0x2158, 0x0200, 2}, // EPA_MAXPKT
	{regs.BlockSYS, 0x3000, 0xe8, 1},   // DEMOD_CTL
	{regs.BlockSYS, 0x300b, 0x22, 1},   // DEMOD_CTL_1
}

// sysctlPrelude writes the fixed USB/SYS bring-up sequence that must
// run once after the interface is claimed and before the demod init
// table is applied.
func (d *Dongle) sysctlPrelude(ctx context.Context) error {
	for _, e := range sysctlPreludeTable {
		if err := d.regs.WriteReg(ctx, e.block, e.addr, e.value, e.length); err != nil {
			return fmt.Errorf("rtl: sysctl prelude: %w", err)
		}
	}
	return nil
}

// Dongle drives a single RTL2832U/R820T device: the USB transport, the
// RTL2832U register/I2C bridge layer, and the R820T tuner.
type Dongle struct {
	dev    usb.Transport
	regs   *regs.Registers
	tuner  *r820t.Tuner
	ppm    int
	xtal   rf.Hz
	log    *log.Logger
	closed bool
}

// Option configures a Dongle at construction time, following the same
// functional-options convention as package usb.
type Option func(*Dongle)

// WithLogger sets the structured logger used for diagnostic messages.
func WithLogger(l *log.Logger) Option {
	return func(d *Dongle) { d.log = l }
}

// Open claims the device, runs the demod init table, computes the
// PPM-corrected crystal frequency, probes for an R820T tuner over I2C,
// programs the IF offset, initializes the tuner, and applies gain.
// gainDb is a pointer so nil selects automatic gain.
func Open(ctx context.Context, dev usb.Transport, ppm int, gainDb *float64, opts ...Option) (*Dongle, error) {
	d := &Dongle{
		dev:  dev,
		regs: regs.New(dev),
		ppm:  ppm,
		log:  log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := dev.ClaimInterface(); err != nil {
		return nil, fmt.Errorf("rtl: claim interface: %w", err)
	}

	if err := d.sysctlPrelude(ctx); err != nil {
		_ = dev.ReleaseInterface()
		return nil, err
	}

	for _, e := range demodInit {
		if err := d.regs.WriteDemodReg(ctx, e.page, e.addr, e.value, e.length); err != nil {
			_ = dev.ReleaseInterface()
			return nil, fmt.Errorf("rtl: demod init: %w", err)
		}
	}

	d.xtal = rf.Hz(float64(XtalFreq) * (1 + float64(ppm)/1e6))

	if err := d.regs.OpenI2C(ctx); err != nil {
		_ = dev.ReleaseInterface()
		return nil, fmt.Errorf("rtl: open i2c: %w", err)
	}
	id, err := d.regs.I2CReadReg(ctx, r820t.I2CAddr, 0x00)
	if err != nil {
		_ = d.regs.CloseI2C(ctx)
		_ = dev.ReleaseInterface()
		return nil, fmt.Errorf("rtl: probe tuner: %w", err)
	}
	if id != 0x69 {
		_ = d.regs.CloseI2C(ctx)
		_ = dev.ReleaseInterface()
		return nil, ErrUnsupportedTuner
	}

	ifOffset := -int64(float64(IfFreq) * (1 << 22) / float64(d.xtal))
	if err := d.regs.WriteDemodReg(ctx, 0, 0x19, uint32(ifOffset)&0xffffff, 3); err != nil {
		_ = d.regs.CloseI2C(ctx)
		_ = dev.ReleaseInterface()
		return nil, fmt.Errorf("rtl: set if offset: %w", err)
	}

	d.tuner = r820t.New(d.regs, d.xtal, d.log)
	if err := d.tuner.Init(ctx); err != nil {
		_ = d.regs.CloseI2C(ctx)
		_ = dev.ReleaseInterface()
		return nil, fmt.Errorf("rtl: tuner init: %w", err)
	}
	if err := d.regs.CloseI2C(ctx); err != nil {
		return nil, fmt.Errorf("rtl: close i2c: %w", err)
	}

	if gainDb != nil {
		if err := d.setGainOpen(ctx, *gainDb); err != nil {
			return nil, err
		}
	} else {
		if err := d.setAutoGainOpen(ctx); err != nil {
			return nil, err
		}
	}

	d.log.Debug("rtl dongle opened", "xtal", float64(d.xtal), "ppm", ppm)
	return d, nil
}

func (d *Dongle) setGainOpen(ctx context.Context, db float64) error {
	if err := d.regs.OpenI2C(ctx); err != nil {
		return fmt.Errorf("rtl: set gain: %w", err)
	}
	defer d.regs.CloseI2C(ctx)
	return d.tuner.SetGain(ctx, db)
}

func (d *Dongle) setAutoGainOpen(ctx context.Context) error {
	if err := d.regs.OpenI2C(ctx); err != nil {
		return fmt.Errorf("rtl: set auto gain: %w", err)
	}
	defer d.regs.CloseI2C(ctx)
	return d.tuner.SetAutoGain(ctx)
}

// SetGain sets a manual gain in dB.
func (d *Dongle) SetGain(ctx context.Context, db float64) error {
	return d.setGainOpen(ctx, db)
}

// SetAutoGain re-enables the tuner's internal AGC.
func (d *Dongle) SetAutoGain(ctx context.Context) error {
	return d.setAutoGainOpen(ctx)
}

// SetSampleRate programs the demod's resampling ratio and PPM offset
// registers, resets the demod, and returns the actual achieved rate
// (which may differ slightly from rate due to integer rounding).
func (d *Dongle) SetSampleRate(ctx context.Context, rate float64) (float64, error) {
	ratio := uint32(float64(XtalFreq)*(1<<22)/rate) & 0x0ffffffc
	actual := float64(XtalFreq) * (1 << 22) / float64(ratio)

	if err := d.regs.WriteDemodReg(ctx, 1, 0x9f, (ratio>>16)&0xffff, 2); err != nil {
		return 0, fmt.Errorf("rtl: set sample rate ratio hi: %w", err)
	}
	if err := d.regs.WriteDemodReg(ctx, 1, 0xa1, ratio&0xffff, 2); err != nil {
		return 0, fmt.Errorf("rtl: set sample rate ratio lo: %w", err)
	}

	ppmOffset := -int32(float64(d.ppm) * (1 << 24) / 1e6)
	if err := d.regs.WriteDemodReg(ctx, 1, 0x3e, uint32(uint16(ppmOffset>>8)), 1); err != nil {
		return 0, fmt.Errorf("rtl: set ppm offset hi: %w", err)
	}
	if err := d.regs.WriteDemodReg(ctx, 1, 0x3f, uint32(uint8(ppmOffset)), 1); err != nil {
		return 0, fmt.Errorf("rtl: set ppm offset lo: %w", err)
	}

	if err := d.regs.WriteDemodReg(ctx, 1, 0x01, 0x14, 1); err != nil {
		return 0, fmt.Errorf("rtl: reset demod (assert): %w", err)
	}
	if err := d.regs.WriteDemodReg(ctx, 1, 0x01, 0x10, 1); err != nil {
		return 0, fmt.Errorf("rtl: reset demod (deassert): %w", err)
	}

	return actual, nil
}

// SetCenterFrequency opens the I2C bridge, tunes the R820T to
// hz + IfFreq, and closes the bridge.
func (d *Dongle) SetCenterFrequency(ctx context.Context, hz rf.Hz) error {
	if err := d.regs.OpenI2C(ctx); err != nil {
		return fmt.Errorf("rtl: set center frequency: %w", err)
	}
	defer d.regs.CloseI2C(ctx)
	return d.tuner.SetFrequency(ctx, hz+IfFreq)
}

// ResetBuffer toggles the USB bulk endpoint control register (EPA_CTL,
// 0x2148) to flush
// any samples queued from before a retune.
func (d *Dongle) ResetBuffer(ctx context.Context) error {
	if err := d.regs.WriteReg(ctx, regs.BlockUSB, 0x2148, 0x0210, 2); err != nil {
		return fmt.Errorf("rtl: reset buffer (assert): %w", err)
	}
	if err := d.regs.WriteReg(ctx, regs.BlockUSB, 0x2148, 0x0000, 2); err != nil {
		return fmt.Errorf("rtl: reset buffer (deassert): %w", err)
	}
	return nil
}

// ReadSamples performs one bulk read of 2*n raw IQ bytes from endpoint
// 1.
func (d *Dongle) ReadSamples(ctx context.Context, n int) ([]byte, error) {
	buf, err := d.dev.BulkRead(ctx, n*BytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("rtl: read samples: %w", err)
	}
	return buf, nil
}

// Close powers down the tuner and releases the USB interface.
func (d *Dongle) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.regs.OpenI2C(ctx); err != nil {
		errs = append(errs, err)
	} else {
		if err := d.tuner.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := d.regs.CloseI2C(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.dev.ReleaseInterface(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
