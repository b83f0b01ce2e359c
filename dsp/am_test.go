// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAMRoundTripModulatedTone pins Testable Property 6: a carrier
// whose envelope varies sinusoidally demodulates to that same
// sinusoid after DC normalization.
func TestAMRoundTripModulatedTone(t *testing.T) {
	const n = 4000
	const rate = 48000.0
	const modFreq = 400.0
	const carrierAmp = 1.0
	const modDepth = 0.5
	const carrierFreq = 6000.0

	i := make([]float32, n)
	q := make([]float32, n)
	for k := 0; k < n; k++ {
		env := carrierAmp * (1 + modDepth*math.Sin(2*math.Pi*modFreq*float64(k)/rate))
		phase := 2 * math.Pi * carrierFreq * float64(k) / rate
		i[k] = float32(env * math.Cos(phase))
		q[k] = float32(env * math.Sin(phase))
	}

	am := NewAM()
	res := am.Process(i, q)
	require.True(t, res.CarrierPresent)
	require.InDelta(t, carrierAmp, res.MeanAmplitude, 0.05)

	// Peak-to-peak of the normalized output should track modDepth*2.
	var maxV, minV float32
	for _, v := range res.Samples {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	require.InDelta(t, 2*modDepth, float64(maxV-minV), 0.1)
}

func TestAMCarrierAbsentOnSilence(t *testing.T) {
	am := NewAM()
	res := am.Process(make([]float32, 100), make([]float32, 100))
	require.False(t, res.CarrierPresent)
}
