// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package demod composes package dsp's primitives into the four
// complete broadcast/voice demodulators the controller selects between:
// WBFM, NBFM, AM, and SSB, each sized for a fixed input/output rate
// pair.
package demod

// OutRate is the fixed audio output rate every demodulator produces.
const OutRate = 48000

// Result is one block of demodulated audio
type Result struct {
	Left, Right []float32
	Stereo      bool
	SignalLevel float64
}

// Demodulator converts one block of baseband I/Q samples to audio.
// inStereo requests stereo decoding when the mode supports it (WBFM);
// other modes ignore it.
type Demodulator interface {
	Demodulate(i, q []float32, inStereo bool) Result
}

// relPower is the mean per-sample power of an I/Q block, used by modes
// that derive signalLevel from received power rather than from an FM
// discriminator's own carrier check.
func relPower(i, q []float32) float64 {
	if len(i) == 0 {
		return 0
	}
	var sum float64
	for k := range i {
		sum += float64(i[k])*float64(i[k]) + float64(q[k])*float64(q[k])
	}
	return sum / float64(len(i))
}
