// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command rtlplay connects to an RTL2832U/R820T dongle, tunes to the
// requested frequency, demodulates it, and plays the decoded audio
// through the default PortAudio output device.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/msiner/rtlradio-go/helpers/parse"
	"github.com/msiner/rtlradio-go/radio"
	"hz.tools/rf"
)

// paSink is a radio.AudioSink backed by a PortAudio default output
// stream. It does not implement radio.RecordingSink, so
// Controller.StartRecording returns an error with this sink.
type paSink struct {
	stream *portaudio.Stream
	out    []float32
}

func newPASink(sampleRate float64, framesPerBuffer int) (*paSink, error) {
	s := &paSink{out: make([]float32, framesPerBuffer*2)}
	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, framesPerBuffer, &s.out)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open default stream: %w", err)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}
	return s, nil
}

func (s *paSink) Play(left, right []float32) error {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	if len(s.out) < n*2 {
		s.out = make([]float32, n*2)
	}
	for i := 0; i < n; i++ {
		s.out[2*i] = left[i]
		s.out[2*i+1] = right[i]
	}
	if err := s.stream.Write(); err != nil {
		return fmt.Errorf("portaudio: write: %w", err)
	}
	return nil
}

func (s *paSink) Close() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	return s.stream.Close()
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

func parseScanFlag(arg string) (min, max, step rf.Hz, ok bool, err error) {
	if arg == "" {
		return 0, 0, 0, false, nil
	}
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false, fmt.Errorf("invalid scan spec; got %s, want min:max:step", arg)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := parse.ParseFrequency(p)
		if err != nil {
			return 0, 0, 0, false, fmt.Errorf("invalid scan spec; %w", err)
		}
		vals[i] = v
	}
	return rf.Hz(vals[0]), rf.Hz(vals[1]), rf.Hz(vals[2]), true, nil
}

func run() error {
	flags := flag.NewFlagSet("rtlplay", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: rtlplay [FLAGS] <tuneHz>

rtlplay connects to an RTL2832U/R820T dongle, tunes to the given
frequency, and plays the decoded audio on the default PortAudio output
device.

Arguments:
  tuneHz
	Tuner RF frequency in Hz. Can be specified with k, K, m, M, g, or G
	suffix (e.g. 88.5M).

Flags:
`))
		flags.PrintDefaults()
	}
	modOpt := flags.String("mod", "WBFM", parse.ModeFlagHelp)
	gainOpt := flags.String("gain", "auto", parse.GainFlagHelp)
	ppmOpt := flags.Int("ppm", 0, "Frequency correction in parts-per-million")
	volOpt := flags.String("volume", "1.0", parse.VolumeFlagHelp)
	squelchOpt := flags.String("squelch", "0", parse.SquelchFlagHelp)
	maxFOpt := flags.Float64("maxf", 75_000, "Maximum modulation frequency in Hz (NBFM)")
	bandwidthOpt := flags.Float64("bandwidth", 10_000, "Channel bandwidth in Hz (AM/SSB)")
	stereoOpt := flags.Bool("stereo", true, "Enable stereo pilot decoding for WBFM")
	scanOpt := flags.String("scan", "", "min:max:step frequency scan range in Hz")

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
	scanMin, scanMax, scanStep, scanning, err := parseScanFlag(*scanOpt)
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 2048
	sink, err := newPASink(48000, framesPerBuffer)
	if err != nil {
		return err
	}
	defer sink.Close()

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

	if scanning {
		ctrl.Scan(scanMin, scanMax, scanStep)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	log.Println("signal received, stopping")

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
