// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command rtlwav connects to an RTL2832U/R820T dongle, tunes to the
// requested frequency, and records the decoded audio to a WAV file
// until interrupted or a maximum size is reached.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/msiner/rtlradio-go/dsp/demod"
	"github.com/msiner/rtlradio-go/helpers/callback"
	"github.com/msiner/rtlradio-go/helpers/parse"
	"github.com/msiner/rtlradio-go/helpers/wav"
	"github.com/msiner/rtlradio-go/radio"
	"hz.tools/rf"
)

// wavSink is a radio.AudioSink that writes every played block to an
// open WAV file, keeping a running frame count so the header can be
// finalized with the correct size on Close.
type wavSink struct {
	file   *os.File
	out    *bufio.Writer
	header *wav.Header
	frames uint32
	float  bool

	interleave callback.InterleaveFn
	toInt16    callback.ConvertToInt16Fn
	writeI16   func(out io.Writer, x []int16) (int, error)
	writeF32   func(out io.Writer, x []float32) (int, error)
}

func newWAVSink(path string, sampleRate uint32, useFloat bool) (*wavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	bytesPerSample := uint8(2)
	format := wav.LPCM
	if useFloat {
		bytesPerSample = 4
		format = wav.IEEEFloatingPoint
	}
	header, err := wav.NewHeader(sampleRate, 2, bytesPerSample, format, false, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("build wav header: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}

	return &wavSink{
		file:       f,
		out:        bufio.NewWriterSize(f, 1024*1024),
		header:     header,
		float:      useFloat,
		interleave: callback.NewInterleaveFn(),
		toInt16:    callback.NewConvertToInt16Fn(),
		writeI16:   callback.NewWriteFn(binary.LittleEndian),
		writeF32:   callback.NewFloat32WriteFn(binary.LittleEndian),
	}, nil
}

func (s *wavSink) Play(left, right []float32) error {
	mixed := s.interleave(left, right)
	var n int
	var err error
	if s.float {
		n, err = s.writeF32(s.out, mixed)
	} else {
		n, err = s.writeI16(s.out, s.toInt16(mixed))
	}
	if err != nil {
		return err
	}
	bytesPerFrame := int(s.header.Fmt.BitsPerSample) / 8 * int(s.header.Fmt.NumChannels)
	s.frames += uint32(n / bytesPerFrame)
	return nil
}

// Close flushes buffered audio, rewrites the header with the final
// frame count, and closes the underlying file.
func (s *wavSink) Close() error {
	if err := s.out.Flush(); err != nil {
		s.file.Close()
		return err
	}
	s.header.Update(s.frames)
	if _, err := s.file.Seek(0, 0); err != nil {
		s.file.Close()
		return err
	}
	if err := binary.Write(s.file, binary.LittleEndian, s.header); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func modeFromFlags(name string, maxF, bandwidth float64) (radio.Mode, error) {
	mode, err := parse.ParseMode(name)
	if err != nil {
		return radio.Mode{}, err
	}
	switch mode {
	case "SSBU":
		return radio.Mode{Name: "SSB", Upper: true, Bandwidth: bandwidth}, nil
	case "SSBL":
		return radio.Mode{Name: "SSB", Upper: false, Bandwidth: bandwidth}, nil
	default:
		return radio.Mode{Name: mode, MaxF: maxF, Bandwidth: bandwidth}, nil
	}
}

func run() error {
	flags := flag.NewFlagSet("rtlwav", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: rtlwav [FLAGS] <tuneHz>

rtlwav connects to an RTL2832U/R820T dongle, tunes to the given
frequency, and records the decoded audio to a WAV file until
interrupted (SIGINT) or a maximum file size is reached.

Arguments:
  tuneHz
	Tuner RF frequency in Hz. Can be specified with k, K, m, M, g, or G
	suffix (e.g. 88.5M).

Flags:
`))
		flags.PrintDefaults()
	}
	outOpt := flags.String("out", "rtlwav.wav", "Output WAV file path")
	modOpt := flags.String("mod", "WBFM", parse.ModeFlagHelp)
	gainOpt := flags.String("gain", "auto", parse.GainFlagHelp)
	ppmOpt := flags.Int("ppm", 0, "Frequency correction in parts-per-million")
	volOpt := flags.String("volume", "1.0", parse.VolumeFlagHelp)
	squelchOpt := flags.String("squelch", "0", parse.SquelchFlagHelp)
	maxFOpt := flags.Float64("maxf", 75_000, "Maximum modulation frequency in Hz (NBFM)")
	bandwidthOpt := flags.Float64("bandwidth", 10_000, "Channel bandwidth in Hz (AM/SSB)")
	stereoOpt := flags.Bool("stereo", true, "Enable stereo pilot decoding for WBFM")
	floatOpt := flags.Bool("float", false, "Write 32-bit IEEE float samples instead of 16-bit PCM")
	maxSizeOpt := flags.String("maxsize", "", "Maximum output file size (e.g. 100M); empty means unbounded")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("expected exactly one argument: tuneHz")
	}

	freq, err := parse.ParseTuneFrequency(flags.Arg(0))
	if err != nil {
		return err
	}
	gain, err := parse.ParseGainFlag(*gainOpt)
	if err != nil {
		return err
	}
	volume, err := parse.ParseVolumeFlag(*volOpt)
	if err != nil {
		return err
	}
	squelch, err := parse.ParseSquelchFlag(*squelchOpt)
	if err != nil {
		return err
	}
	mode, err := modeFromFlags(*modOpt, *maxFOpt, *bandwidthOpt)
	if err != nil {
		return err
	}
	var maxSize int64
	if *maxSizeOpt != "" {
		sz, err := parse.SizeInBytes(*maxSizeOpt)
		if err != nil {
			return err
		}
		maxSize = int64(sz)
	}

	sink, err := newWAVSink(*outOpt, uint32(demod.OutRate), *floatOpt)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Printf("close %s: %v", *outOpt, err)
		}
	}()

	ctrl, err := radio.New(radio.WithAudioSink(sink))
	if err != nil {
		return err
	}
	ctrl.SetOnError(func(err error) {
		log.Printf("radio error: %v", err)
	})
	ctrl.SetCorrectionPPM(*ppmOpt)
	ctrl.SetMode(mode)
	ctrl.SetVolume(volume)
	ctrl.SetSquelch(squelch)
	ctrl.EnableStereo(*stereoOpt)
	ctrl.SetFrequency(rf.Hz(freq))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer ctrl.Stop(context.Background())

	if gain != nil {
		if err := ctrl.SetManualGain(ctx, *gain); err != nil {
			log.Printf("set manual gain: %v", err)
		}
	} else {
		if err := ctrl.SetAutoGain(ctx); err != nil {
			log.Printf("set auto gain: %v", err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	if maxSize <= 0 {
		<-sig
		log.Println("signal received, stopping")
		return nil
	}

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(250 * time.Millisecond)
		defer t.Stop()
		for range t.C {
			info, err := sink.file.Stat()
			if err == nil && info.Size() >= maxSize {
				close(done)
				return
			}
		}
	}()

	select {
	case <-sig:
		log.Println("signal received, stopping")
	case <-done:
		log.Println("max size reached, stopping")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
