// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpAverageConvergesToConstant(t *testing.T) {
	avg := NewExpAverage(10)
	var last float64
	for i := 0; i < 500; i++ {
		last = avg.Update(5.0)
	}
	require.InDelta(t, 5.0, last, 1e-6)
}

func TestExpVarianceZeroForConstantInput(t *testing.T) {
	v := NewExpVariance(10)
	var mean, variance float64
	for i := 0; i < 500; i++ {
		mean, variance = v.Update(3.0)
	}
	require.InDelta(t, 3.0, mean, 1e-6)
	require.InDelta(t, 0.0, variance, 1e-6)
}
