// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package demod

import "github.com/msiner/rtlradio-go/dsp"

// wbfmInterRate is the intermediate rate WBFM discriminates at: high
// enough to carry the 19 kHz pilot and 23-53 kHz stereo subcarrier
// ahead of the final downsample to OutRate.
const wbfmInterRate = 336000

const wbfmMaxF = 75000

// WBFM is the broadcast wideband FM demodulator with optional stereo
// (pilot-tone) decoding.
type WBFM struct {
	iqDown   *dsp.IQDownsampler
	fm       *dsp.FM
	stereo   *dsp.StereoSeparator
	monoDown *dsp.Downsampler
	sideDown *dsp.Downsampler
	deemphL  *dsp.Deemphasis
	deemphR  *dsp.Deemphasis
}

// NewWBFM creates a WBFM demodulator for the given input sample rate.
func NewWBFM(inRate float64) *WBFM {
	antiAlias := dsp.LowpassFIRCoeffs(inRate, 0.9*wbfmMaxF, 101)
	monoCutoff := dsp.LowpassFIRCoeffs(wbfmInterRate, 15000, 101)
	return &WBFM{
		iqDown:   dsp.NewIQDownsampler(antiAlias, antiAlias, inRate, wbfmInterRate),
		fm:       dsp.NewFM(wbfmInterRate, wbfmMaxF),
		stereo:   dsp.NewStereoSeparator(wbfmInterRate),
		monoDown: dsp.NewDownsampler(monoCutoff, wbfmInterRate, OutRate),
		sideDown: dsp.NewDownsampler(monoCutoff, wbfmInterRate, OutRate),
		deemphL:  dsp.NewDeemphasis(OutRate, dsp.DeemphasisTau50us),
		deemphR:  dsp.NewDeemphasis(OutRate, dsp.DeemphasisTau50us),
	}
}

// Demodulate implements Demodulator.
func (w *WBFM) Demodulate(i, q []float32, inStereo bool) Result {
	di, dq := w.iqDown.Process(i, q)
	fmRes := w.fm.Process(di, dq)

	mono := w.monoDown.Process(fmRes.Samples)

	if !inStereo {
		out := w.deemphL.Process(mono)
		return Result{
			Left:        out,
			Right:       out,
			Stereo:      false,
			SignalLevel: fmCarrierLevel(fmRes),
		}
	}

	stereoRes := w.stereo.Process(fmRes.Samples)
	side := w.sideDown.Process(stereoRes.Side)
	if !stereoRes.Found {
		out := w.deemphL.Process(mono)
		return Result{
			Left:        out,
			Right:       out,
			Stereo:      false,
			SignalLevel: fmCarrierLevel(fmRes),
		}
	}

	n := len(mono)
	if len(side) < n {
		n = len(side)
	}
	left := make([]float32, n)
	right := make([]float32, n)
	for k := 0; k < n; k++ {
		left[k] = mono[k] + side[k]
		right[k] = mono[k] - side[k]
	}

	return Result{
		Left:        w.deemphL.Process(left),
		Right:       w.deemphR.Process(right),
		Stereo:      stereoRes.Found,
		SignalLevel: fmCarrierLevel(fmRes),
	}
}

func fmCarrierLevel(res dsp.FMResult) float64 {
	if res.CarrierPresent {
		return 1
	}
	return 0
}
