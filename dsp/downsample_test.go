// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDownsamplerConstantInput checks that downsampling a constant
// signal yields a constant signal of the expected reduced length.
func TestDownsamplerConstantInput(t *testing.T) {
	coeffs := LowpassFIRCoeffs(192000, 16000, 41)
	d := NewDownsampler(coeffs, 192000, 48000)

	in := make([]float32, 400)
	for i := range in {
		in[i] = 3.0
	}
	out := d.Process(in)
	require.Equal(t, 100, len(out))
	// Skip the initial filter transient; the tail should have settled.
	for _, v := range out[len(out)/2:] {
		require.InDelta(t, 3.0, v, 0.1)
	}
}

func TestIQDownsamplerPreservesLength(t *testing.T) {
	coeffs := LowpassFIRCoeffs(192000, 16000, 41)
	d := NewIQDownsampler(coeffs, coeffs, 192000, 48000)

	i := make([]float32, 400)
	q := make([]float32, 400)
	for n := range i {
		i[n] = 1.0
		q[n] = -1.0
	}
	outI, outQ := d.Process(i, q)
	require.Equal(t, 100, len(outI))
	require.Equal(t, 100, len(outQ))
}
