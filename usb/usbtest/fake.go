// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package usbtest provides a fake usb.Transport for exercising the
// register, tuner, and controller layers without real hardware.
package usbtest

import (
	"context"
	"sync"
)

// regKey addresses a single control-transfer register by its value and
// index, matching how the real device distinguishes registers.
type regKey struct {
	value uint16
	index uint16
}

// i2cBlockIndex is the block ID used to address the I2C bridge
// (regs.BlockI2C), repeated here to avoid an import cycle.
const i2cBlockIndex = 0x600

// Fake is an in-memory usb.Transport. It stores the last bytes written
// to each (value, index) pair and returns them on a matching read,
// which is sufficient to model the block/register addressing the RTL
// protocol uses.
//
// Transfers addressed at the I2C block get extra modeling: each I2C
// device address has its own byte-addressable register file and a
// current register pointer, set by the first byte of any write and
// advanced automatically on multi-byte reads, matching how the R820T
// returns a contiguous run of registers starting from the last
// selected address.
type Fake struct {
	mu      sync.Mutex
	regs    map[regKey][]byte
	i2cRegs map[uint16]map[uint8]byte
	i2cPtr  map[uint16]uint8

	// BulkFn, when set, generates the bytes returned by BulkRead. It
	// defaults to returning length zero bytes (silence, centered at
	// zero rather than the true 127/128 IQ center, since tests that
	// care about sample content set BulkFn explicitly).
	BulkFn func(length int) ([]byte, error)

	// OnControlWrite, when set, is called for every ControlWrite, in
	// addition to the default store-and-echo behavior. Tests use this
	// to record call sequences (e.g. to assert SetCenterFrequency was
	// or was not called).
	OnControlWrite func(value, index uint16, data []byte)

	ClaimCalls   int
	ReleaseCalls int
	CloseCalls   int
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		regs:    make(map[regKey][]byte),
		i2cRegs: make(map[uint16]map[uint8]byte),
		i2cPtr:  make(map[uint16]uint8),
	}
}

func (f *Fake) ControlRead(ctx context.Context, value, index uint16, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Reads address with the write flag cleared, per the device
	// protocol (writes OR index with 0x10).
	idx := index &^ 0x10
	if idx == i2cBlockIndex {
		dev := f.i2cRegs[value]
		start := f.i2cPtr[value]
		out := make([]byte, length)
		for i := 0; i < length; i++ {
			out[i] = dev[start+uint8(i)]
		}
		return out, nil
	}
	key := regKey{value, idx}
	data := f.regs[key]
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

func (f *Fake) ControlWrite(ctx context.Context, value, index uint16, data []byte) error {
	f.mu.Lock()
	idx := index &^ 0x10
	if idx == i2cBlockIndex && len(data) > 0 {
		// I2C semantics: the first payload byte always sets the
		// current register pointer on the addressed device; any
		// following bytes are stored starting at that register.
		f.i2cPtr[value] = data[0]
		if len(data) > 1 {
			dev, ok := f.i2cRegs[value]
			if !ok {
				dev = make(map[uint8]byte)
				f.i2cRegs[value] = dev
			}
			for i, b := range data[1:] {
				dev[data[0]+uint8(i)] = b
			}
		}
	} else {
		key := regKey{value, idx}
		stored := make([]byte, len(data))
		copy(stored, data)
		f.regs[key] = stored
	}
	f.mu.Unlock()
	if f.OnControlWrite != nil {
		f.OnControlWrite(value, index, data)
	}
	return nil
}

func (f *Fake) BulkRead(ctx context.Context, length int) ([]byte, error) {
	if f.BulkFn != nil {
		return f.BulkFn(length)
	}
	return make([]byte, length), nil
}

func (f *Fake) ClaimInterface() error {
	f.ClaimCalls++
	return nil
}

func (f *Fake) ReleaseInterface() error {
	f.ReleaseCalls++
	return nil
}

func (f *Fake) Close() error {
	f.CloseCalls++
	return nil
}

// SetReg directly seeds the value returned by a future ControlRead,
// for tests that need to script a device response (e.g. PLL lock bit).
func (f *Fake) SetReg(value, index uint16, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[regKey{value, index &^ 0x10}] = append([]byte(nil), data...)
}

// SetI2CReg directly seeds register reg on I2C device i2cAddr, for
// tests that need to script a tuner response (e.g. PLL lock or VCO
// fine-tune bits) without going through a prior I2C write.
func (f *Fake) SetI2CReg(i2cAddr uint8, reg uint8, value byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dev, ok := f.i2cRegs[uint16(i2cAddr)]
	if !ok {
		dev = make(map[uint8]byte)
		f.i2cRegs[uint16(i2cAddr)] = dev
	}
	dev[reg] = value
}
