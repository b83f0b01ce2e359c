// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

// HilbertCoeffs designs an odd-index-only windowed-sinc Hilbert
// transformer of the given (forced-odd) length, used to phase-shift
// one sideband 90 degrees for single-sideband demodulation.
// Even-indexed taps are exactly zero; odd taps alternate sign.
func HilbertCoeffs(length int) []float32 {
	if length%2 == 0 {
		length++
	}
	coeffs := make([]float32, length)
	center := (length - 1) / 2
	for i := 0; i < length; i++ {
		k := i - center
		if k%2 == 0 {
			continue
		}
		theta := 2 * math.Pi * float64(i) / float64(length-1)
		window := 0.42 - 0.5*math.Cos(theta) + 0.08*math.Cos(2*theta)
		v := 2 / (math.Pi * float64(k)) * window
		coeffs[i] = float32(v)
	}
	return coeffs
}

// SSB demodulates single-sideband by passing Q through a Hilbert
// transformer and adding (upper sideband) or subtracting (lower
// sideband) a matched-delay copy of I, then bandpass filtering and
// applying a slow/fast envelope AGC.
type SSB struct {
	hilbert    *FIRFilter
	delay      []float32
	bandpass   *FIRFilter
	upper      bool
	slowEnv    *ExpAverage
	fastEnv    *ExpAverage
}

// NewSSB creates an SSB demodulator. hilbertLen and bandpassCoeffs
// must already be sized/designed for the operating sample rate by the
// caller (package dsp/demod composes these per mode).
func NewSSB(hilbertLen int, bandpassCoeffs []float32, upper bool) *SSB {
	hc := HilbertCoeffs(hilbertLen)
	return &SSB{
		hilbert:  NewFIRFilter(hc, 1),
		delay:    make([]float32, (hilbertLen-1)/2),
		bandpass: NewFIRFilter(bandpassCoeffs, 1),
		upper:    upper,
		slowEnv:  NewExpAverage(4800),
		fastEnv:  NewExpAverage(48),
	}
}

// SSBResult is one demodulated SSB block and its AGC-driving envelope.
type SSBResult struct {
	Samples []float32
	Level   float64
}

// Process demodulates one block of downsampled I/Q at the output
// rate.
func (s *SSB) Process(i, q []float32) SSBResult {
	checkLen(i, q, "ssb input")
	n := len(i)

	hbuf := s.hilbert.Load(q)
	hilbertQ := make([]float32, n)
	for k := 0; k < n; k++ {
		hilbertQ[k] = s.hilbert.Get(hbuf, k)
	}

	delayBuf := make([]float32, len(s.delay)+n)
	copy(delayBuf, s.delay)
	copy(delayBuf[len(s.delay):], i)
	if len(delayBuf) >= len(s.delay) {
		s.delay = append(s.delay[:0], delayBuf[len(delayBuf)-len(s.delay):]...)
	}

	sideband := make([]float32, n)
	for k := 0; k < n; k++ {
		di := delayBuf[k]
		if s.upper {
			sideband[k] = di + hilbertQ[k]
		} else {
			sideband[k] = di - hilbertQ[k]
		}
	}

	bbuf := s.bandpass.Load(sideband)
	out := make([]float32, n)
	var sumAbs float64
	for k := 0; k < n; k++ {
		v := s.bandpass.Get(bbuf, k)
		out[k] = v
		sumAbs += math.Abs(float64(v))
	}

	meanAbs := 0.0
	if n > 0 {
		meanAbs = sumAbs / float64(n)
	}
	slow := s.slowEnv.Update(meanAbs)
	fast := s.fastEnv.Update(meanAbs)
	level := fast
	if slow > fast {
		level = slow
	}
	if level > 1e-6 {
		scale := float32(1 / level)
		for k := range out {
			out[k] *= scale
		}
	}

	return SSBResult{Samples: out, Level: level}
}
