// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

// LowpassFIRCoeffs designs a windowed-sinc lowpass filter for the
// given sample rate and cutoff frequency, targeting the given
// (possibly even) length. The returned length is forced odd, and the
// coefficients are normalized to unity DC gain.
func LowpassFIRCoeffs(rate, cutoff float64, length int) []float32 {
	if length%2 == 0 {
		length++
	}
	coeffs := make([]float32, length)
	center := float64(length-1) / 2
	fc := cutoff / rate

	var sum float64
	for i := 0; i < length; i++ {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		theta := 2 * math.Pi * float64(i) / float64(length-1)
		window := 0.42 - 0.5*math.Cos(theta) + 0.08*math.Cos(2*theta)
		v := sinc * window
		coeffs[i] = float32(v)
		sum += v
	}
	if sum != 0 {
		for i := range coeffs {
			coeffs[i] = float32(float64(coeffs[i]) / sum)
		}
	}
	return coeffs
}

// FIRFilter applies a fixed coefficient set to a stream of samples fed
// in blocks via Load, retaining just enough history between blocks to
// evaluate Get at any offset into the most recently loaded block.
//
// Get is the single CPU hotspot of the whole pipeline (per the
// original driver's own profiling notes); it is kept branch-free and
// allocation-free so callers can evaluate it in a tight loop.
type FIRFilter struct {
	coeffs []float32
	step   int
	hist   []float32
}

// NewFIRFilter creates a filter over coeffs, stepping through its
// input history by step samples per tap (step=2 lets one filter share
// history between interleaved I and Q streams).
func NewFIRFilter(coeffs []float32, step int) *FIRFilter {
	if step < 1 {
		step = 1
	}
	hist := make([]float32, (len(coeffs)-1)*step)
	return &FIRFilter{coeffs: coeffs, step: step, hist: hist}
}

// Load appends samples to the filter's working buffer, prefixed by the
// retained history, and returns the combined buffer. The returned
// slice is valid until the next call to Load.
func (f *FIRFilter) Load(samples []float32) []float32 {
	buf := make([]float32, len(f.hist)+len(samples))
	copy(buf, f.hist)
	copy(buf[len(f.hist):], samples)

	if len(buf) >= len(f.hist) {
		f.hist = append(f.hist[:0], buf[len(buf)-len(f.hist):]...)
	}
	return buf
}

// Get evaluates the filter at offset i into the buffer most recently
// returned by Load: y = sum_k coeffs[k] * buf[i + k*step], walking the
// coefficients in reverse (convolution, not correlation).
func (f *FIRFilter) Get(buf []float32, i int) float32 {
	var acc float32
	n := len(f.coeffs)
	for k := 0; k < n; k++ {
		acc += f.coeffs[n-1-k] * buf[i+k*f.step]
	}
	return acc
}
