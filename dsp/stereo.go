// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsp

import "math"

const (
	pilotFreq = 19000

	// stereoTableBins and stereoTableStep give a ±40 Hz search range
	// around the 19 kHz pilot at 0.01 Hz resolution.
	stereoTableBins = 8001
	stereoTableStep = 0.01
	stereoTableSpan = 40

	// lockThreshold is the correlation-squared average below which the
	// pilot is considered locked.
	lockThreshold = 4
)

// sincosEntry holds the precomputed per-sample phase increment of one
// frequency-offset bin. buildSincosTable builds the full table of bins
// for a sample rate; each StereoSeparator builds its own copy.
type sincosEntry struct {
	deltaPhase float64
}

func buildSincosTable(rate float64) []sincosEntry {
	table := make([]sincosEntry, stereoTableBins)
	for i := range table {
		offset := -stereoTableSpan + float64(i)*stereoTableStep
		freq := pilotFreq + offset
		table[i].deltaPhase = 2 * math.Pi * freq / rate
	}
	return table
}

// StereoSeparator locks an internal oscillator to the 19 kHz pilot
// tone and recovers the L-R (side) signal by synchronous demodulation.
type StereoSeparator struct {
	table []sincosEntry
	phase float64
	index int

	vdev *ExpAverage
	hdev *ExpAverage
	lock *ExpAverage
}

// NewStereoSeparator creates a StereoSeparator for the given sample
// rate.
func NewStereoSeparator(rate float64) *StereoSeparator {
	return &StereoSeparator{
		table: buildSincosTable(rate),
		index: (stereoTableBins - 1) / 2,
		vdev:  NewExpAverage(1000),
		hdev:  NewExpAverage(1000),
		lock:  NewExpAverage(1000),
	}
}

// StereoResult is the recovered side-channel (L-R) signal and whether
// the pilot is currently locked.
type StereoResult struct {
	Side  []float32
	Found bool
}

// Process demodulates the pilot and side signal from one block of
// mono (sum, L+R) samples.
func (s *StereoSeparator) Process(mono []float32) StereoResult {
	out := make([]float32, len(mono))

	var corrSq float64
	for n, x := range mono {
		entry := s.table[s.index]
		sinV := math.Sin(s.phase)
		cosV := math.Cos(s.phase)

		vproj := float64(x) * sinV
		hproj := float64(x) * cosV
		vdev := s.vdev.Update(vproj)
		hdev := s.hdev.Update(hproj)

		var corr float64
		if hdev != 0 {
			corr = vdev / hdev
		}
		if corr > 4 {
			corr = 4
		}
		if corr < -4 {
			corr = -4
		}
		corrSq = corr * corr
		s.lock.Update(corrSq)

		offsetIdx := s.index + int(math.Round(corr*float64(stereoTableBins-1)/(2*stereoTableSpan/stereoTableStep)))
		if offsetIdx < 0 {
			offsetIdx = 0
		}
		if offsetIdx >= stereoTableBins {
			offsetIdx = stereoTableBins - 1
		}
		s.index = offsetIdx

		out[n] = float32(float64(x) * sinV * cosV * 2)

		s.phase += entry.deltaPhase
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}

	return StereoResult{
		Side:  out,
		Found: s.lock.Value() < lockThreshold && s.hdev.Value() != 0 && len(mono) > 0,
	}
}
