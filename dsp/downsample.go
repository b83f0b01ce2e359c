// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

// Downsampler reduces a single real-valued stream from inRate to
// outRate by evaluating a lowpass FIR filter at a fractional stride.
type Downsampler struct {
	filter *FIRFilter
	stride float64
}

// NewDownsampler creates a Downsampler that filters with coeffs (an
// antialiasing lowpass designed for inRate/outRate) and reads it back
// at stride = inRate/outRate.
func NewDownsampler(coeffs []float32, inRate, outRate float64) *Downsampler {
	return &Downsampler{
		filter: NewFIRFilter(coeffs, 1),
		stride: inRate / outRate,
	}
}

// Process downsamples one block of input samples, returning
// floor(len(in)/stride) output samples: for each output index j, it
// reads filter.Get(floor(j*stride)) against the history-prefixed
// buffer from Load.
func (d *Downsampler) Process(in []float32) []float32 {
	buf := d.filter.Load(in)
	n := int(float64(len(in)) / d.stride)
	out := make([]float32, n)
	for j := 0; j < n; j++ {
		pos := int(float64(j) * d.stride)
		out[j] = d.filter.Get(buf, clampGetIndex(pos, len(buf), d.filter))
	}
	return out
}

// clampGetIndex keeps a buffer offset within the range where Get can
// read a full set of taps without running off the end of buf.
func clampGetIndex(i, bufLen int, f *FIRFilter) int {
	max := bufLen - (len(f.coeffs)-1)*f.step - 1
	if max < 0 {
		max = 0
	}
	if i > max {
		return max
	}
	if i < 0 {
		return 0
	}
	return i
}

// IQDownsampler downsamples an I/Q pair in one pass using two
// filters (one per channel) sharing the same stride.
type IQDownsampler struct {
	fi, fq *FIRFilter
	stride float64
}

// NewIQDownsampler creates an IQDownsampler from independent I and Q
// coefficient sets (typically identical) and the input/output rates.
func NewIQDownsampler(coeffsI, coeffsQ []float32, inRate, outRate float64) *IQDownsampler {
	return &IQDownsampler{
		fi:     NewFIRFilter(coeffsI, 1),
		fq:     NewFIRFilter(coeffsQ, 1),
		stride: inRate / outRate,
	}
}

// Process downsamples one block of I/Q samples.
func (d *IQDownsampler) Process(i, q []float32) (outI, outQ []float32) {
	checkLen(i, q, "iq downsampler input")
	bufI := d.fi.Load(i)
	bufQ := d.fq.Load(q)
	n := int(float64(len(i)) / d.stride)
	outI = make([]float32, n)
	outQ = make([]float32, n)
	for j := 0; j < n; j++ {
		pos := int(float64(j) * d.stride)
		outI[j] = d.fi.Get(bufI, clampGetIndex(pos, len(bufI), d.fi))
		outQ[j] = d.fq.Get(bufQ, clampGetIndex(pos, len(bufQ), d.fq))
	}
	return outI, outQ
}
