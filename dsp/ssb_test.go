// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHilbertCoeffsEvenTapsZero(t *testing.T) {
	coeffs := HilbertCoeffs(31)
	require.Equal(t, 31, len(coeffs))
	center := (len(coeffs) - 1) / 2
	for i, c := range coeffs {
		if (i-center)%2 == 0 {
			require.Equal(t, float32(0), c)
		}
	}
}

func TestSSBProcessPreservesLength(t *testing.T) {
	bp := LowpassFIRCoeffs(48000, 3000, 151)
	ssb := NewSSB(151, bp, true)

	n := 512
	i := make([]float32, n)
	q := make([]float32, n)
	for k := range i {
		i[k] = 0.1
		q[k] = 0.1
	}
	res := ssb.Process(i, q)
	require.Len(t, res.Samples, n)
}

func TestSSBUpperLowerDiffer(t *testing.T) {
	bp := LowpassFIRCoeffs(48000, 3000, 151)
	upper := NewSSB(151, bp, true)
	lower := NewSSB(151, bp, false)

	n := 256
	i := make([]float32, n)
	q := make([]float32, n)
	for k := range i {
		i[k] = float32(k % 7)
		q[k] = float32((k + 3) % 5)
	}
	ru := upper.Process(append([]float32(nil), i...), append([]float32(nil), q...))
	rl := lower.Process(append([]float32(nil), i...), append([]float32(nil), q...))
	require.NotEqual(t, ru.Samples, rl.Samples)
}
