// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package demod

import (
	"math"

	"github.com/msiner/rtlradio-go/dsp"
)

// AM is the amplitude-modulation envelope demodulator.
type AM struct {
	iqDown *dsp.IQDownsampler
	am     *dsp.AM
}

// NewAM creates an AM demodulator for the given input sample rate and
// channel bandwidth bw.
func NewAM(inRate, bw float64) *AM {
	coeffs := dsp.LowpassFIRCoeffs(inRate, bw/2, 351)
	return &AM{
		iqDown: dsp.NewIQDownsampler(coeffs, coeffs, inRate, OutRate),
		am:     dsp.NewAM(),
	}
}

// Demodulate implements Demodulator. inStereo is ignored; AM is always
// mono.
func (a *AM) Demodulate(i, q []float32, inStereo bool) Result {
	di, dq := a.iqDown.Process(i, q)
	res := a.am.Process(di, dq)

	level := 3.5 * math.Sqrt(relPower(di, dq))
	if !res.CarrierPresent {
		level = 0
	}
	return Result{Left: res.Samples, Right: res.Samples, Stereo: false, SignalLevel: level}
}
