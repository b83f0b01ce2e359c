// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package demod

import "github.com/msiner/rtlradio-go/dsp"

// SSB is the single-sideband demodulator: it shifts one sideband to
// baseband with a Hilbert transformer and complex mixer.
type SSB struct {
	iqDown *dsp.IQDownsampler
	ssb    *dsp.SSB
}

// NewSSB creates an SSB demodulator for the given input sample rate,
// channel bandwidth bw, and sideband selection (upper=true selects USB,
// upper=false selects LSB).
func NewSSB(inRate, bw float64, upper bool) *SSB {
	antiAlias := dsp.LowpassFIRCoeffs(inRate, bw, 151)
	bandpass := dsp.LowpassFIRCoeffs(OutRate, bw, 151)
	return &SSB{
		iqDown: dsp.NewIQDownsampler(antiAlias, antiAlias, inRate, OutRate),
		ssb:    dsp.NewSSB(151, bandpass, upper),
	}
}

// Demodulate implements Demodulator. inStereo is ignored; SSB is
// always mono.
func (s *SSB) Demodulate(i, q []float32, inStereo bool) Result {
	di, dq := s.iqDown.Process(i, q)
	res := s.ssb.Process(di, dq)
	return Result{Left: res.Samples, Right: res.Samples, Stereo: false, SignalLevel: res.Level}
}
