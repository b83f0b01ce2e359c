// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dsp provides the signal processing primitives the radio
// builds on: FIR filtering, polyphase-style downsampling, FM/AM/SSB
// demodulation, stereo pilot recovery, de-emphasis, and exponential
// averaging. Each Process call returns newly allocated output slices;
// FIRFilter.Get, the per-sample inner loop, does not allocate.
package dsp

import "fmt"

// IQ is a block of complex baseband samples at a common sample Rate.
type IQ struct {
	I, Q []float32
	Rate float64
}

// Mono is a block of demodulated mono audio samples.
type Mono struct {
	Samples []float32
	Rate    float64
}

// Stereo is a block of demodulated stereo audio: Left and Right must
// be the same length.
type Stereo struct {
	Left, Right []float32
	Rate        float64
}

// ErrRateMismatch describes two signals that do not share a sample
// rate. No function in this package returns it; mismatched block
// lengths panic in checkLen instead.
var ErrRateMismatch = fmt.Errorf("dsp: sample rate mismatch")

// checkLen panics on a length mismatch between two sample slices; this
// is a programmer error (mismatched block sizes within one pipeline
// stage), not a runtime condition callers can recover from.
func checkLen(a, b []float32, what string) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("dsp: %s length mismatch: %d != %d", what, len(a), len(b)))
	}
}
