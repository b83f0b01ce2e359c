// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

// AM is an envelope detector: y[i] = hypot(I-mean(I), Q-mean(Q)),
// DC-normalized by the mean envelope amplitude.
type AM struct{}

// NewAM creates an AM envelope detector.
func NewAM() *AM { return &AM{} }

// AMResult is one demodulated AM block, its mean envelope amplitude
// (useful for signalLevel scaling), and whether a carrier was present.
type AMResult struct {
	Samples        []float32
	MeanAmplitude  float64
	CarrierPresent bool
}

// Process demodulates one block of I/Q samples.
func (a *AM) Process(i, q []float32) AMResult {
	checkLen(i, q, "am input")
	n := len(i)
	if n == 0 {
		return AMResult{}
	}

	var meanI, meanQ float64
	for k := range i {
		meanI += float64(i[k])
		meanQ += float64(q[k])
	}
	meanI /= float64(n)
	meanQ /= float64(n)

	env := make([]float64, n)
	var meanEnv, sumSq float64
	for k := range i {
		di := float64(i[k]) - meanI
		dq := float64(q[k]) - meanQ
		env[k] = math.Hypot(di, dq)
		meanEnv += env[k]
		sumSq += float64(i[k])*float64(i[k]) + float64(q[k])*float64(q[k])
	}
	meanEnv /= float64(n)

	out := make([]float32, n)
	if meanEnv != 0 {
		for k, e := range env {
			out[k] = float32((e - meanEnv) / meanEnv)
		}
	}

	return AMResult{
		Samples:        out,
		MeanAmplitude:  meanEnv,
		CarrierPresent: sumSq > carrierThreshold*float64(n),
	}
}
