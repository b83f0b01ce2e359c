// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package callback

import (
	"math/rand"
	"testing"
)

func TestInterleave(t *testing.T) {
	t.Parallel()

	const maxSamples = 10000
	left := make([]float32, maxSamples)
	right := make([]float32, maxSamples)
	for i := range left {
		left[i] = rand.Float32()
		right[i] = rand.Float32()
	}
	inter := NewInterleaveFn()
	for i := 0; i < 100; i++ {
		numSamples := rand.Intn(maxSamples)
		x := inter(left[:numSamples], right[:numSamples])
		for j := range left[:numSamples] {
			curr := 2 * j
			if x[curr] != left[j] {
				t.Errorf("wrong value for left[%d]", j)
			}
			if x[curr+1] != right[j] {
				t.Errorf("wrong value for right[%d]", j)
			}
		}
	}

	x := inter(left, right[:1])
	if len(x) != 2 {
		t.Errorf("wrong length on unbalanced interleave; got %d, want 2", len(x))
	}
	x = inter(left[:1], right)
	if len(x) != 2 {
		t.Errorf("wrong length on unbalanced interleave; got %d, want 2", len(x))
	}
}

func BenchmarkInterleave(b *testing.B) {
	const maxSamples = 2048
	left := make([]float32, maxSamples)
	right := make([]float32, maxSamples)
	inter := NewInterleaveFn()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		inter(left, right)
	}
}
