// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

// carrierThreshold is the sum-of-squares-per-sample threshold above
// which a block is considered to carry signal rather than noise,
// shared by the FM and AM carrier-present checks.
const carrierThreshold = 0.002

// FM is a frequency discriminator: Δφ = atan2(I·Q' − Q·I'), scaled by
// gain = outRate/(2π·maxF).
type FM struct {
	gain     float64
	prevI    float32
	prevQ    float32
	hasPrev  bool
}

// NewFM creates an FM discriminator for the given output rate and
// maximum deviation frequency.
func NewFM(outRate, maxF float64) *FM {
	return &FM{gain: outRate / (2 * math.Pi * maxF)}
}

// FMResult is one demodulated FM block along with whether its average
// power exceeded the carrier-present threshold.
type FMResult struct {
	Samples        []float32
	CarrierPresent bool
}

// Process demodulates one block of I/Q samples.
func (f *FM) Process(i, q []float32) FMResult {
	checkLen(i, q, "fm input")
	out := make([]float32, len(i))
	var sumSq float64

	pi, pq := f.prevI, f.prevQ
	if !f.hasPrev && len(i) > 0 {
		pi, pq = i[0], q[0]
	}
	for n := range i {
		delta := math.Atan2(float64(i[n]*pq-q[n]*pi), float64(i[n]*pi+q[n]*pq))
		out[n] = float32(delta * f.gain)
		sumSq += float64(i[n])*float64(i[n]) + float64(q[n])*float64(q[n])
		pi, pq = i[n], q[n]
	}
	if len(i) > 0 {
		f.prevI, f.prevQ, f.hasPrev = pi, pq, true
	}

	return FMResult{
		Samples:        out,
		CarrierPresent: len(i) > 0 && sumSq > carrierThreshold*float64(len(i)),
	}
}
