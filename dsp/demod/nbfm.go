// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package demod

import (
	"math"

	"github.com/msiner/rtlradio-go/dsp"
)

// NBFM is the narrowband FM demodulator used for voice channels (e.g.
// amateur/business-band repeaters).
type NBFM struct {
	iqDown   *dsp.IQDownsampler
	fm       *dsp.FM
	finalDown *dsp.Downsampler
}

// NewNBFM creates an NBFM demodulator for the given input sample rate
// and maximum deviation frequency maxF.
func NewNBFM(inRate, maxF float64) *NBFM {
	multiple := 1 + int(math.Floor((maxF-1)*7/75000))
	inter := float64(OutRate * multiple)

	antiAlias := dsp.LowpassFIRCoeffs(inRate, 0.8*maxF, 101)
	finalCoeffs := dsp.LowpassFIRCoeffs(inter, 8000, 41)

	return &NBFM{
		iqDown:    dsp.NewIQDownsampler(antiAlias, antiAlias, inRate, inter),
		fm:        dsp.NewFM(inter, maxF),
		finalDown: dsp.NewDownsampler(finalCoeffs, inter, OutRate),
	}
}

// Demodulate implements Demodulator. inStereo is ignored; NBFM is
// always mono.
func (n *NBFM) Demodulate(i, q []float32, inStereo bool) Result {
	di, dq := n.iqDown.Process(i, q)
	fmRes := n.fm.Process(di, dq)
	out := n.finalDown.Process(fmRes.Samples)

	level := 0.0
	if fmRes.CarrierPresent {
		level = 1
	}
	return Result{Left: out, Right: out, Stereo: false, SignalLevel: level}
}
