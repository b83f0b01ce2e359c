// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

// ExpAverage is a weighted running average: avg = (w*avg + x)/(w+1).
type ExpAverage struct {
	weight float64
	avg    float64
	m2     float64
	init   bool
}

// NewExpAverage creates an averager with the given weight (larger
// weight means slower response to new samples).
func NewExpAverage(weight float64) *ExpAverage {
	return &ExpAverage{weight: weight}
}

// Update folds x into the running average and returns the new value.
func (e *ExpAverage) Update(x float64) float64 {
	if !e.init {
		e.avg = x
		e.init = true
		return e.avg
	}
	e.avg = (e.weight*e.avg + x) / (e.weight + 1)
	return e.avg
}

// Value returns the current average without updating it.
func (e *ExpAverage) Value() float64 { return e.avg }

// ExpVariance is the variance-tracking variant of ExpAverage: it
// folds x into a running mean and a running variance using the same
// recurrence.
type ExpVariance struct {
	mean ExpAverage
	var_ ExpAverage
}

// NewExpVariance creates a variance tracker with the given weight.
func NewExpVariance(weight float64) *ExpVariance {
	return &ExpVariance{mean: ExpAverage{weight: weight}, var_: ExpAverage{weight: weight}}
}

// Update folds x into the running mean/variance and returns them.
func (e *ExpVariance) Update(x float64) (mean, variance float64) {
	mean = e.mean.Update(x)
	d := x - mean
	variance = e.var_.Update(d * d)
	return mean, variance
}
