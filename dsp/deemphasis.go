// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

// Standard broadcast de-emphasis time constants, in microseconds.
const (
	DeemphasisTau50us = 50
	DeemphasisTau75us = 75
)

// Deemphasis is a single-pole IIR de-emphasis filter:
// y = (1-alpha)*x + alpha*y, alpha = exp(-1e6/(tau*rate)).
type Deemphasis struct {
	alpha float32
	prev  float32
}

// NewDeemphasis creates a de-emphasis filter for the given sample rate
// and time constant tau, in microseconds (use DeemphasisTau50us or
// DeemphasisTau75us).
func NewDeemphasis(rate, tau float64) *Deemphasis {
	return &Deemphasis{alpha: float32(math.Exp(-1e6 / (tau * rate)))}
}

// Process applies de-emphasis in place style, returning a new slice of
// the same length.
func (d *Deemphasis) Process(in []float32) []float32 {
	out := make([]float32, len(in))
	y := d.prev
	for i, x := range in {
		y = (1-d.alpha)*x + d.alpha*y
		out[i] = y
	}
	if len(in) > 0 {
		d.prev = y
	}
	return out
}
