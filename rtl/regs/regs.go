// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package regs provides the RTL2832U block/register addressing scheme
// and the I2C bridge used to reach the R820T tuner, layered directly on
// top of package usb's vendor control transfers.
package regs

import (
	"context"

	"github.com/msiner/rtlradio-go/usb"
)

// Block identifies one of the RTL2832U's four addressable register
// blocks.
type Block uint16

// Register blocks
const (
	BlockDemod Block = 0x000
	BlockUSB   Block = 0x100
	BlockSYS   Block = 0x200
	BlockI2C   Block = 0x600
)

// demodRegFlag is OR'd into a demod register address to form the
// control-transfer value; the demod page is sent as the index
const demodRegFlag = 0x20

// Registers layers masked byte/word register access and the I2C
// bridge to the R820T on top of a usb.Transport.
type Registers struct {
	t usb.Transport
}

// New wraps t with the RTL2832U register addressing scheme.
func New(t usb.Transport) *Registers {
	return &Registers{t: t}
}

// WriteReg writes an up-to-4-byte little-endian value to reg within
// block.
func (r *Registers) WriteReg(ctx context.Context, block Block, reg uint16, value uint32, length int) error {
	buf := make([]byte, length)
	v := value
	for i := 0; i < length; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return r.t.ControlWrite(ctx, reg, uint16(block), buf)
}

// ReadReg reads an up-to-4-byte little-endian value from reg within
// block.
func (r *Registers) ReadReg(ctx context.Context, block Block, reg uint16, length int) (uint32, error) {
	buf, err := r.t.ControlRead(ctx, reg, uint16(block), length)
	if err != nil {
		return 0, err
	}
	var v uint32
	for i := len(buf) - 1; i >= 0; i-- {
		v = (v << 8) | uint32(buf[i])
	}
	return v, nil
}

// WriteRegMask performs a masked write to reg within block. If mask is
// 0xFF, it is a plain single-byte write. Otherwise it is a
// read-modify-write that combines the old device value with the new
// one as (old &^ mask) | (value & mask).
//
// The reference driver this protocol was ported from combines them as
// value | mask instead, which is a bug: it forces every masked-out bit
// to 1 rather than preserving the previous device state. This
// implementation always uses the corrected semantic; see DESIGN.md
// for the open question this resolves.
func (r *Registers) WriteRegMask(ctx context.Context, block Block, reg uint16, value, mask uint8) error {
	if mask == 0xFF {
		return r.WriteReg(ctx, block, reg, uint32(value), 1)
	}
	old, err := r.ReadReg(ctx, block, reg, 1)
	if err != nil {
		return err
	}
	newVal := (uint8(old) &^ mask) | (value & mask)
	return r.WriteReg(ctx, block, reg, uint32(newVal), 1)
}

// WriteDemodReg writes a big-endian value to a demod-block register
// (page 0 or 1)
func (r *Registers) WriteDemodReg(ctx context.Context, page uint16, addr uint8, value uint32, length int) error {
	bev := make([]byte, length)
	v := value
	for i := length - 1; i >= 0; i-- {
		bev[i] = byte(v)
		v >>= 8
	}
	idx := uint16(addr)<<8 | demodRegFlag
	return r.t.ControlWrite(ctx, idx, page, bev)
}

// ReadDemodReg reads a single byte from a demod-block register.
func (r *Registers) ReadDemodReg(ctx context.Context, page uint16, addr uint8) (uint8, error) {
	idx := uint16(addr)<<8 | demodRegFlag
	v, err := r.ReadReg(ctx, Block(page), idx, 1)
	return uint8(v), err
}

// OpenI2C enables the I2C bridge to the tuner.
func (r *Registers) OpenI2C(ctx context.Context) error {
	return r.WriteDemodReg(ctx, 1, 1, 0x18, 1)
}

// CloseI2C disables the I2C bridge.
func (r *Registers) CloseI2C(ctx context.Context) error {
	return r.WriteDemodReg(ctx, 1, 1, 0x10, 1)
}

// I2CWriteReg writes a single register on the I2C device at addr.
func (r *Registers) I2CWriteReg(ctx context.Context, addr uint8, reg, value uint8) error {
	return r.t.ControlWrite(ctx, uint16(addr), uint16(BlockI2C), []byte{reg, value})
}

// I2CReadReg reads a single register from the I2C device at addr.
func (r *Registers) I2CReadReg(ctx context.Context, addr uint8, reg uint8) (uint8, error) {
	if err := r.t.ControlWrite(ctx, uint16(addr), uint16(BlockI2C), []byte{reg}); err != nil {
		return 0, err
	}
	buf, err := r.t.ControlRead(ctx, uint16(addr), uint16(BlockI2C), 1)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	return buf[0], nil
}

// I2CWriteRegBuf writes reg followed by payload as a single control
// transfer, for multi-byte I2C register writes.
func (r *Registers) I2CWriteRegBuf(ctx context.Context, addr, reg uint8, payload []byte) error {
	buf := make([]byte, 1+len(payload))
	buf[0] = reg
	copy(buf[1:], payload)
	return r.t.ControlWrite(ctx, uint16(addr), uint16(BlockI2C), buf)
}

// I2CReadRegBuf reads length bytes from reg on the I2C device at addr.
func (r *Registers) I2CReadRegBuf(ctx context.Context, addr, reg uint8, length int) ([]byte, error) {
	if err := r.t.ControlWrite(ctx, uint16(addr), uint16(BlockI2C), []byte{reg}); err != nil {
		return nil, err
	}
	return r.t.ControlRead(ctx, uint16(addr), uint16(BlockI2C), length)
}
