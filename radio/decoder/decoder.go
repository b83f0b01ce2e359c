// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decoder runs the single-producer, single-consumer decode
// task that owns the currently selected demodulator: byte-to-IQ-float
// conversion, coarse heterodyne retuning, and demodulation.
package decoder

import (
	"context"
	"math"

	"github.com/msiner/rtlradio-go/dsp/demod"
)

// InRate and OutRate are the fixed rates every demodulator instance is
// sized for
const (
	InRate  = 1_024_000
	OutRate = 48_000
)

// byteToFloatOffset centers a raw unsigned IQ byte (0..255) on zero
// and slightly deadens DC bias introduced by the RTL2832U's ADC
// (I = byte/128 - 0.995).
const byteToFloatOffset = 0.995

// Echo carries caller-supplied fields through a Process call unchanged,
// merged with the stereo/signalLevel fields the decoder adds to the
// emitted Result.
type Echo map[string]any

// Result is one decoded audio block, emitted in the same order its
// Process request was submitted.
type Result struct {
	Left, Right []float32
	Echo        Echo
}

// Factory builds a fresh Demodulator instance sized to InRate/OutRate
// for the currently selected mode.
type Factory func() demod.Demodulator

type setModeMsg struct {
	factory Factory
}

type processMsg struct {
	data       []byte
	inStereo   bool
	freqOffset float64
	echo       Echo
}

// Worker owns the current demodulator instance and processes SetMode
// and Process requests strictly in submission order.
type Worker struct {
	in  chan any
	out chan<- Result

	demodulator demod.Demodulator
	cos, sin    float64
}

// NewWorker creates a Worker that emits decoded Results on out. It
// starts no goroutine: the caller must call Run to actually pump
// messages (kept separate from construction so callers can wire
// SetMode/Process before the task starts consuming).
func NewWorker(out chan<- Result) *Worker {
	return &Worker{
		in:  make(chan any, 8),
		out: out,
		sin: 0,
		cos: 1,
	}
}

// Run pumps queued messages until ctx is canceled. It is intended to
// be run in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.in:
			switch m := msg.(type) {
			case setModeMsg:
				w.demodulator = m.factory()
				w.cos, w.sin = 1, 0
			case processMsg:
				w.process(m)
			}
		}
	}
}

// SetMode requests that the worker replace its current demodulator
// with a fresh instance from factory.
func (w *Worker) SetMode(factory Factory) {
	w.in <- setModeMsg{factory: factory}
}

// Process requests that the worker decode data (raw interleaved IQ
// bytes) at the given frequency offset (Hz, for fine retuning without
// a hardware re-tune) and stereo preference, echoing echo's fields
// back with the result. Ownership of data moves to the worker; the
// caller must not read or write it after calling Process.
func (w *Worker) Process(data []byte, inStereo bool, freqOffset float64, echo Echo) {
	w.in <- processMsg{data: data, inStereo: inStereo, freqOffset: freqOffset, echo: echo}
}

func (w *Worker) process(m processMsg) {
	i, q := bytesToIQ(m.data)
	if m.freqOffset != 0 {
		w.heterodyne(i, q, m.freqOffset)
	}

	if w.demodulator == nil {
		return
	}
	res := w.demodulator.Demodulate(i, q, m.inStereo)

	echo := Echo{}
	for k, v := range m.echo {
		echo[k] = v
	}
	echo["stereo"] = res.Stereo
	echo["signalLevel"] = res.SignalLevel

	w.out <- Result{Left: res.Left, Right: res.Right, Echo: echo}
}

// bytesToIQ converts interleaved unsigned IQ bytes to centered float
// samples.
func bytesToIQ(data []byte) (i, q []float32) {
	n := len(data) / 2
	i = make([]float32, n)
	q = make([]float32, n)
	for k := 0; k < n; k++ {
		i[k] = float32(data[2*k])/128 - byteToFloatOffset
		q[k] = float32(data[2*k+1])/128 - byteToFloatOffset
	}
	return i, q
}

// heterodyne applies a coarse complex mixing by freqOffset Hz in
// place, carrying the running {cos,sin} oscillator state between
// blocks so phase stays continuous across Process calls.
func (w *Worker) heterodyne(i, q []float32, freqOffset float64) {
	step := 2 * math.Pi * freqOffset / InRate
	dCos, dSin := math.Cos(step), math.Sin(step)
	cos, sin := w.cos, w.sin
	for k := range i {
		ri := float64(i[k])*cos - float64(q[k])*sin
		rq := float64(i[k])*sin + float64(q[k])*cos
		i[k] = float32(ri)
		q[k] = float32(rq)

		ncos := cos*dCos - sin*dSin
		nsin := cos*dSin + sin*dCos
		cos, sin = ncos, nsin
	}
	// Renormalize periodically to stop accumulated rounding error
	// from growing the oscillator's magnitude away from unity.
	norm := math.Hypot(cos, sin)
	if norm != 0 {
		cos /= norm
		sin /= norm
	}
	w.cos, w.sin = cos, sin
}
