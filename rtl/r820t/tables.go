// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package r820t

// These tables are the R820T's reverse-engineered bring-up sequences,
// left as plain data rather than decomposed into named bit fields.

// bitReverseNibble maps a 4-bit value to its bit-reversed form. Every
// byte read from the R820T is reversed nibble-by-nibble through this
// table.
var bitReverseNibble = [16]byte{
	0x0, 0x8, 0x4, 0xc, 0x2, 0xa, 0x6, 0xe,
	0x1, 0x9, 0x5, 0xd, 0x3, 0xb, 0x7, 0xf,
}

func reverseByte(b byte) byte {
	return bitReverseNibble[b&0x0f]<<4 | bitReverseNibble[b>>4]
}

// shadowStart and shadowLen describe the contiguous shadowed register
// range 0x05..0x1F (27 bytes).
const (
	shadowStart = 0x05
	shadowLen   = 27
)

// defaultRegs are the 27 default values written to registers
// 0x05..0x1F during Init, before the init-electronics sequence runs.
var defaultRegs = [shadowLen]byte{
	0x83, 0x32, 0x75, 0xc0, 0x40, 0xd6, 0x6c, 0xf5,
	0x63, 0x75, 0x68, 0x6c, 0x83, 0x80, 0x00, 0x0f,
	0x00, 0xc0, 0x30, 0x48, 0xcc, 0x60, 0x00, 0x54,
	0xae, 0x4a, 0xc0,
}

// maskVal is one (register, mask, value) write for a masked-write
// sequence table.
type maskVal struct {
	reg   uint8
	mask  uint8
	value uint8
}

// initElectronics is the fixed sequence of masked register writes
// applied after the default register block is loaded during Init.
var initElectronics = []maskVal{
	{0x05, 0x80, 0x00}, // LNA manual gain mode
	{0x06, 0x40, 0x00}, // filter power on
	{0x1a, 0x30, 0x30}, // RF filter: highest band
	{0x1f, 0x06, 0x00}, // channel filter current: max
	{0x0c, 0x0f, 0x08}, // VGA control, initial value
	{0x0f, 0x80, 0x00}, // precharge off
	{0x0f, 0x02, 0x00}, // SDR/IF freq select
	{0x1e, 0xc0, 0x00}, // Cable 1 / Cable 2 path off
	{0x13, 0x3f, 0x00}, // Filter calibration default
	{0x1a, 0x03, 0x01}, // mixer buffer power
	{0x1c, 0x04, 0x00}, // LNA narrow band
	{0x06, 0x03, 0x00}, // pre-detect
	{0x1d, 0x38, 0x00}, // filter comp off
	{0x0a, 0x10, 0x00}, // filter widest
	{0x1a, 0x40, 0x00}, // image gain adjustment off
	{0x1d, 0x07, 0x00}, // channel filter extension off
	{0x06, 0x0c, 0x00}, // RF poly filter min
	{0x1e, 0x01, 0x00}, // AGC clock 1 Khz, external det1 cap 1u
	{0x05, 0x60, 0x00}, // power detector 1/3 power level
	{0x1f, 0x80, 0x00}, // filter enable
	{0x14, 0x7f, 0x00}, // LNA VTH, VTL
	{0x15, 0xff, 0x00}, // mixer VTH, VTL
	{0x16, 0xff, 0x40}, // AGC clk
	{0x17, 0x07, 0x00}, // PLL analog low drop
	{0x10, 0x1f, 0x00}, // sigma-delta modulator default
	{0x06, 0x30, 0x10}, // LNA band, pre-detect
}

// calStart toggles the filter calibration PLL start/reset.
var calStart = []maskVal{
	{0x0b, 0x60, 0x60}, // cal clk enable, set cal PLL to 56 MHz target
	{0x0f, 0x04, 0x04}, // start cal
	{0x0f, 0x04, 0x00}, // stop cal
}

// muxEntry is one entry of the 15-row table keyed by center frequency
// in MHz.
type muxEntry struct {
	freqMHz int
	writes  [3]maskVal
}

// muxTable is ordered by ascending freqMHz; SetMux picks the largest
// entry whose threshold is <= freq.
var muxTable = []muxEntry{
	{0, [3]maskVal{{0x17, 0x38, 0x08}, {0x1a, 0xc0, 0x00}, {0x1b, 0xff, 0x00}}},
	{50, [3]maskVal{{0x17, 0x38, 0x08}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{55, [3]maskVal{{0x17, 0x38, 0x08}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{60, [3]maskVal{{0x17, 0x38, 0x08}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{65, [3]maskVal{{0x17, 0x38, 0x08}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{70, [3]maskVal{{0x17, 0x38, 0x10}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{75, [3]maskVal{{0x17, 0x38, 0x10}, {0x1a, 0xc0, 0x40}, {0x1b, 0xff, 0x00}}},
	{80, [3]maskVal{{0x17, 0x38, 0x10}, {0x1a, 0xc0, 0x80}, {0x1b, 0xff, 0x00}}},
	{90, [3]maskVal{{0x17, 0x38, 0x10}, {0x1a, 0xc0, 0x80}, {0x1b, 0xff, 0x00}}},
	{100, [3]maskVal{{0x17, 0x38, 0x18}, {0x1a, 0xc0, 0x80}, {0x1b, 0xff, 0x00}}},
	{110, [3]maskVal{{0x17, 0x38, 0x18}, {0x1a, 0xc0, 0x80}, {0x1b, 0xff, 0x00}}},
	{140, [3]maskVal{{0x17, 0x38, 0x18}, {0x1a, 0xc0, 0xc0}, {0x1b, 0xff, 0x00}}},
	{180, [3]maskVal{{0x17, 0x38, 0x20}, {0x1a, 0xc0, 0xc0}, {0x1b, 0xff, 0x00}}},
	{250, [3]maskVal{{0x17, 0x38, 0x28}, {0x1a, 0xc0, 0xc0}, {0x1b, 0xff, 0x00}}},
	{280, [3]maskVal{{0x17, 0x38, 0x30}, {0x1a, 0xc0, 0xc0}, {0x1b, 0xff, 0x00}}},
}

// powerDown is the 11-entry write sequence applied when the tuner is
// closed.
var powerDown = []maskVal{
	{0x06, 0x08, 0x08},
	{0x05, 0x80, 0x80},
	{0x07, 0x80, 0x00},
	{0x08, 0xff, 0x00},
	{0x09, 0xff, 0x00},
	{0x0a, 0xff, 0x00},
	{0x0c, 0xff, 0x00},
	{0x0f, 0x80, 0x80},
	{0x11, 0xff, 0x00},
	{0x17, 0x38, 0x00},
	{0x1a, 0xc0, 0x00},
}
