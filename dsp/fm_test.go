// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFMRoundTripConstantTone pins Testable Property 5: a constant
// frequency offset on the unit circle demodulates to a constant FM
// output proportional to that offset.
func TestFMRoundTripConstantTone(t *testing.T) {
	const rate = 192000.0
	const toneFreq = 5000.0
	const maxF = 75000.0
	const outRate = 48000.0

	n := 2000
	i := make([]float32, n)
	q := make([]float32, n)
	phaseStep := 2 * math.Pi * toneFreq / rate
	phase := 0.0
	for k := 0; k < n; k++ {
		i[k] = float32(math.Cos(phase))
		q[k] = float32(math.Sin(phase))
		phase += phaseStep
	}

	fm := NewFM(outRate, maxF)
	res := fm.Process(i, q)

	// atan2(I*Q' - Q*I', ...) on a tone advancing by +phaseStep per
	// sample yields -phaseStep (the cross term is -sin(phaseStep)).
	expected := float32(-phaseStep * outRate / (2 * math.Pi * maxF))
	// Skip the first sample (no established previous phase).
	for _, v := range res.Samples[1:] {
		require.InDelta(t, expected, v, 0.02)
	}
	require.True(t, res.CarrierPresent)
}

func TestFMCarrierAbsentOnSilence(t *testing.T) {
	fm := NewFM(48000, 75000)
	i := make([]float32, 100)
	q := make([]float32, 100)
	res := fm.Process(i, q)
	require.False(t, res.CarrierPresent)
}
