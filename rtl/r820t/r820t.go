// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package r820t drives the R820T mixer/PLL tuner chip over the
// RTL2832U's I2C bridge. It owns the chip's register shadow and
// exposes only control operations: Init, SetFrequency, SetGain, and
// Close.
package r820t

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/msiner/rtlradio-go/rtl/regs"
	"hz.tools/rf"
)

// I2CAddr is the I2C device address of the R820T
const I2CAddr = 0x34

// calFreqHz is the PLL frequency used while calibrating the filter.
// The PLL reference itself is Tuner.pllRef, the PPM-corrected crystal
// frequency passed to New.
const calFreqHz = 56_000_000

// ErrPllNotLocked is returned by SetFrequency when the PLL fails to
// lock even after the charge-pump retry.
var ErrPllNotLocked = fmt.Errorf("r820t: pll did not lock")

// Tuner owns the R820T's 27-byte register shadow (registers
// 0x05..0x1F) and talks to the chip through the I2C bridge.
type Tuner struct {
	r      *regs.Registers
	pllRef rf.Hz
	shadow [shadowLen]byte
	log    *log.Logger
}

// New creates a Tuner bound to the given register layer. pllRef is the
// (PPM-corrected) crystal frequency used as the PLL reference.
func New(r *regs.Registers, pllRef rf.Hz, logger *log.Logger) *Tuner {
	if logger == nil {
		logger = log.Default()
	}
	return &Tuner{r: r, pllRef: pllRef, log: logger}
}

func (t *Tuner) i2cWrite(ctx context.Context, reg, value uint8) error {
	return t.r.I2CWriteReg(ctx, I2CAddr, reg, value)
}

// i2cRead reads a single R820T register and bit-reverses it.
func (t *Tuner) i2cRead(ctx context.Context, reg uint8) (uint8, error) {
	v, err := t.r.I2CReadReg(ctx, I2CAddr, reg)
	if err != nil {
		return 0, err
	}
	return reverseByte(v), nil
}

// i2cReadBlock reads length contiguous registers starting at reg and
// bit-reverses each byte.
func (t *Tuner) i2cReadBlock(ctx context.Context, reg uint8, length int) ([]byte, error) {
	buf, err := t.r.I2CReadRegBuf(ctx, I2CAddr, reg, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = reverseByte(b)
	}
	return out, nil
}

// writeMasked applies a masked write to the shadow and then the device,
// following the corrected read-modify-write semantic used throughout.
func (t *Tuner) writeMasked(ctx context.Context, mv maskVal) error {
	idx := mv.reg - shadowStart
	old := t.shadow[idx]
	next := (old &^ mv.mask) | (mv.value & mv.mask)
	t.shadow[idx] = next
	return t.i2cWrite(ctx, mv.reg, next)
}

func (t *Tuner) writeMaskedSeq(ctx context.Context, seq []maskVal) error {
	for _, mv := range seq {
		if err := t.writeMasked(ctx, mv); err != nil {
			return err
		}
	}
	return nil
}

// Init writes the default register block, runs the fixed
// init-electronics sequence, calibrates the filter, and applies a
// second pass of the init-electronics sequence, matching the R820T's
// documented power-up order.
func (t *Tuner) Init(ctx context.Context) error {
	for i, v := range defaultRegs {
		t.shadow[i] = v
		if err := t.i2cWrite(ctx, uint8(shadowStart+i), v); err != nil {
			return fmt.Errorf("r820t: init default regs: %w", err)
		}
	}
	if err := t.writeMaskedSeq(ctx, initElectronics); err != nil {
		return fmt.Errorf("r820t: init electronics: %w", err)
	}
	if err := t.calibrateFilter(ctx); err != nil {
		return err
	}
	if err := t.writeMaskedSeq(ctx, initElectronics); err != nil {
		return fmt.Errorf("r820t: init electronics (second pass): %w", err)
	}
	t.log.Debug("r820t initialized")
	return nil
}

// calibrateFilter sets the calibration PLL to 56 MHz, toggles
// calibration start, and reads the resulting filter cap from register
// 0x04. It retries once if the result is ambiguous.
func (t *Tuner) calibrateFilter(ctx context.Context) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := t.setPLL(ctx, calFreqHz); err != nil {
			return fmt.Errorf("r820t: filter cal pll: %w", err)
		}
		if err := t.writeMaskedSeq(ctx, calStart); err != nil {
			return fmt.Errorf("r820t: filter cal start: %w", err)
		}
		block, err := t.i2cReadBlock(ctx, 0x00, 5)
		if err != nil {
			return fmt.Errorf("r820t: filter cal read: %w", err)
		}
		cap := block[4] & 0x0f
		if cap == 0x0f {
			cap = 0
		}
		if cap != 0 || attempt == 1 {
			return t.writeMasked(ctx, maskVal{reg: 0x0a, mask: 0x0f, value: cap})
		}
		// cap == 0 on the first attempt: retry once.
	}
	return nil
}

// SetMux picks the largest muxTable entry whose freqMHz threshold is
// <= freq and writes its three mask/value triples, selecting the RF
// filter and mixer buffer/gain settings for that frequency band.
func (t *Tuner) SetMux(ctx context.Context, freq rf.Hz) error {
	freqMHz := int(float64(freq) / float64(rf.MHz))
	entry := muxTable[0]
	for _, e := range muxTable {
		if e.freqMHz > freqMHz {
			break
		}
		entry = e
	}
	for _, mv := range entry.writes {
		if err := t.writeMasked(ctx, mv); err != nil {
			return fmt.Errorf("r820t: set mux: %w", err)
		}
	}
	return nil
}

// SetFrequency tunes the PLL to freq. It returns ErrPllNotLocked if
// the PLL fails to lock even after the charge-pump retry
// ( and the set_frequency contract).
func (t *Tuner) SetFrequency(ctx context.Context, freq rf.Hz) error {
	if err := t.SetMux(ctx, freq); err != nil {
		return err
	}
	if err := t.setPLL(ctx, freq); err != nil {
		return err
	}
	t.log.Debug("r820t tuned", "hz", float64(freq))
	return nil
}

// setPLL programs the R820T's integer/fractional PLL divider chain to
// reach the requested tuned frequency.
func (t *Tuner) setPLL(ctx context.Context, freq rf.Hz) error {
	freqKHz := float64(freq) / float64(rf.KHz)

	divNum := int(math.Min(6, math.Floor(math.Log2(1770000/freqKHz))))

	fineTuneByte, err := t.i2cRead(ctx, 0x04)
	if err != nil {
		return fmt.Errorf("r820t: read vco fine tune: %w", err)
	}
	fineTune := (fineTuneByte >> 4) & 0x03
	switch {
	case fineTune > 2 && divNum > 0:
		divNum--
	case fineTune < 2:
		divNum++
	}

	if err := t.writeMasked(ctx, maskVal{reg: 0x10, mask: 0xe0, value: uint8(divNum) << 5}); err != nil {
		return fmt.Errorf("r820t: set div num: %w", err)
	}

	mixDiv := 1 << uint(divNum+1)
	vcoFreq := float64(freq) * float64(mixDiv)
	pllRefHz := float64(t.pllRef)

	nint := math.Floor(vcoFreq / (2 * pllRefHz))
	vcoFra := math.Floor((vcoFreq - 2*pllRefHz*nint) / 1000)

	if nint > 63 {
		return fmt.Errorf("r820t: pll n too large (%v): %w", nint, ErrPllNotLocked)
	}

	ni := math.Floor((nint - 13) / 4)
	si := nint - 4*ni - 13
	if err := t.writeMasked(ctx, maskVal{reg: 0x14, mask: 0xff, value: uint8(ni)<<1 | uint8(si)}); err != nil {
		return fmt.Errorf("r820t: set n/s int: %w", err)
	}

	pllRefKHz := pllRefHz / 1000
	sdm := math.Min(65535, math.Floor(32768*vcoFra/pllRefKHz))
	sdmInt := uint16(sdm)
	if err := t.writeMasked(ctx, maskVal{reg: 0x16, mask: 0xff, value: uint8(sdmInt >> 8)}); err != nil {
		return fmt.Errorf("r820t: set sdm hi: %w", err)
	}
	if err := t.writeMasked(ctx, maskVal{reg: 0x15, mask: 0xff, value: uint8(sdmInt)}); err != nil {
		return fmt.Errorf("r820t: set sdm lo: %w", err)
	}

	locked, err := t.pollLock(ctx)
	if err != nil {
		return err
	}
	if !locked {
		if err := t.writeMasked(ctx, maskVal{reg: 0x12, mask: 0xe0, value: 0x60}); err != nil {
			return fmt.Errorf("r820t: bump charge pump: %w", err)
		}
		locked, err = t.pollLock(ctx)
		if err != nil {
			return err
		}
		if !locked {
			return ErrPllNotLocked
		}
	}
	return nil
}

func (t *Tuner) pollLock(ctx context.Context) (bool, error) {
	v, err := t.i2cRead(ctx, 0x02)
	if err != nil {
		return false, fmt.Errorf("r820t: read lock status: %w", err)
	}
	return v&0x40 != 0, nil
}

// gainStep maps a manual gain in dB to a 0..28 gain step using three
// piecewise polynomials fit to the R820T mixer/LNA/VGA gain curve.
func gainStep(db float64) int {
	var step float64
	switch {
	case db <= 15:
		step = 0.0096*db*db + 1.53*db + 0.1
	case db <= 41.5:
		step = -0.0096*db*db + 2.05*db - 4.2
	default:
		step = 0.0167*db*db - 0.486*db + 21.6
	}
	s := int(math.Round(step))
	if s < 0 {
		s = 0
	}
	if s > 28 {
		s = 28
	}
	return s
}

// SetGain applies a manual gain (in dB) by splitting it into LNA and
// mixer gain steps.
func (t *Tuner) SetGain(ctx context.Context, db float64) error {
	step := gainStep(db)
	lna := uint8((step + 1) / 2)
	mixer := uint8(step / 2)
	if err := t.writeMasked(ctx, maskVal{reg: 0x05, mask: 0x0f, value: lna}); err != nil {
		return fmt.Errorf("r820t: set lna gain: %w", err)
	}
	if err := t.writeMasked(ctx, maskVal{reg: 0x07, mask: 0x0f, value: mixer}); err != nil {
		return fmt.Errorf("r820t: set mixer gain: %w", err)
	}
	return nil
}

// SetAutoGain enables the R820T's internal AGC loops for LNA and
// mixer gain instead of the manual values set by SetGain.
func (t *Tuner) SetAutoGain(ctx context.Context) error {
	if err := t.writeMasked(ctx, maskVal{reg: 0x05, mask: 0x10, value: 0x10}); err != nil {
		return fmt.Errorf("r820t: enable lna agc: %w", err)
	}
	if err := t.writeMasked(ctx, maskVal{reg: 0x07, mask: 0x10, value: 0x10}); err != nil {
		return fmt.Errorf("r820t: enable mixer agc: %w", err)
	}
	return nil
}

// Close writes the 11-entry power-down sequence that puts the LNA,
// mixer, and PLL into their low-power states.
func (t *Tuner) Close(ctx context.Context) error {
	if err := t.writeMaskedSeq(ctx, powerDown); err != nil {
		return fmt.Errorf("r820t: close: %w", err)
	}
	return nil
}
