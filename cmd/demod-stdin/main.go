// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command demod-stdin reads unsigned 8-bit interleaved IQ samples from
// stdin and writes demodulated 16-bit signed little-endian interleaved
// stereo audio to stdout. It exercises the dsp/demod package directly,
// without any USB hardware or radio controller, which makes it useful
// for testing the DSP pipeline against a captured or synthesized IQ
// file.
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/msiner/rtlradio-go/dsp/demod"
	"github.com/msiner/rtlradio-go/helpers/callback"
)

const byteToFloatOffset = 0.995

func bytesToIQ(data []byte, i, q []float32) {
	n := len(data) / 2
	for k := 0; k < n; k++ {
		i[k] = float32(data[2*k])/128 - byteToFloatOffset
		q[k] = float32(data[2*k+1])/128 - byteToFloatOffset
	}
}

func buildDemodulator(mode string, inRate, maxF, bandwidth float64) (demod.Demodulator, error) {
	switch strings.ToUpper(mode) {
	case "WBFM":
		return demod.NewWBFM(inRate), nil
	case "NBFM":
		return demod.NewNBFM(inRate, maxF), nil
	case "AM":
		return demod.NewAM(inRate, bandwidth), nil
	default:
		return nil, fmt.Errorf("invalid mode; got %s, want AM|WBFM|NBFM", mode)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("demod-stdin", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: demod-stdin [FLAGS]

demod-stdin reads unsigned 8-bit interleaved IQ samples from stdin and
writes demodulated 16-bit signed little-endian interleaved stereo
audio to stdout.

Flags:
`))
		flags.PrintDefaults()
	}
	modOpt := flags.String("mod", "WBFM", "AM|WBFM|NBFM: demodulation mode")
	monoOpt := flags.Bool("mono", false, "Force mono output, skipping stereo pilot decoding")
	blockOpt := flags.Int("blocksize", 16384, "Number of IQ sample pairs read from stdin per block")
	inRateOpt := flags.Float64("inrate", 1_024_000, "Input IQ sample rate in Hz")
	outRateOpt := flags.Float64("outrate", demod.OutRate, "Output audio sample rate in Hz")
	maxFOpt := flags.Float64("maxf", 75_000, "Maximum modulation frequency in Hz (NBFM)")
	bandwidthOpt := flags.Float64("bandwidth", 10_000, "Channel bandwidth in Hz (AM)")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 0 {
		flags.Usage()
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	if *outRateOpt != demod.OutRate {
		return fmt.Errorf("invalid outrate; got %v, want %v", *outRateOpt, demod.OutRate)
	}
	if *blockOpt <= 0 {
		return fmt.Errorf("invalid blocksize; got %d, want > 0", *blockOpt)
	}

	demodulator, err := buildDemodulator(*modOpt, *inRateOpt, *maxFOpt, *bandwidthOpt)
	if err != nil {
		return err
	}
	inStereo := !*monoOpt

	in := bufio.NewReaderSize(stdin, 1024*1024)
	out := bufio.NewWriterSize(stdout, 1024*1024)
	defer out.Flush()

	interleave := callback.NewInterleaveFn()
	toInt16 := callback.NewConvertToInt16Fn()
	write := callback.NewWriteFn(binary.LittleEndian)

	raw := make([]byte, *blockOpt*2)
	i := make([]float32, *blockOpt)
	q := make([]float32, *blockOpt)

	for {
		n, err := io.ReadFull(in, raw)
		switch {
		case errors.Is(err, io.EOF):
			return out.Flush()
		case errors.Is(err, io.ErrUnexpectedEOF):
			// Trailing partial block; demodulate what arrived, then stop.
			numSamples := n / 2
			bytesToIQ(raw[:n], i[:numSamples], q[:numSamples])
			res := demodulator.Demodulate(i[:numSamples], q[:numSamples], inStereo)
			if _, err := write(out, toInt16(interleave(res.Left, res.Right))); err != nil {
				return err
			}
			return out.Flush()
		case err != nil:
			return err
		}

		bytesToIQ(raw, i, q)
		res := demodulator.Demodulate(i, q, inStereo)
		if _, err := write(out, toInt16(interleave(res.Left, res.Right))); err != nil {
			return err
		}
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
