// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/msiner/rtlradio-go/helpers/wav"
)

func TestModeFromFlags(t *testing.T) {
	mode, err := modeFromFlags("NBFM", 12_500, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode.Name != "NBFM" || mode.MaxF != 12_500 {
		t.Errorf("got %+v", mode)
	}
	if _, err := modeFromFlags("BOGUS", 0, 0); err == nil {
		t.Error("expected error for unsupported mode")
	}
}

func TestWAVSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := newWAVSink(path, 48000, false)
	if err != nil {
		t.Fatalf("newWAVSink: %v", err)
	}

	left := []float32{0.5, -0.5, 0.25, -0.25}
	right := []float32{-0.5, 0.5, -0.25, 0.25}
	if err := sink.Play(left, right); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer f.Close()

	var header wav.Header
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header.Fact.SampleLength != uint32(len(left)) {
		t.Errorf("got frame count %d, want %d", header.Fact.SampleLength, len(left))
	}
	if header.Fmt.NumChannels != 2 {
		t.Errorf("got %d channels, want 2", header.Fmt.NumChannels)
	}
	if header.Fmt.BitsPerSample != 16 {
		t.Errorf("got %d bits per sample, want 16", header.Fmt.BitsPerSample)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	wantSize := int64(binary.Size(header)) + int64(len(left))*4
	if info.Size() != wantSize {
		t.Errorf("got file size %d, want %d", info.Size(), wantSize)
	}
}

func TestWAVSinkFloat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := newWAVSink(path, 48000, true)
	if err != nil {
		t.Fatalf("newWAVSink: %v", err)
	}
	if err := sink.Play([]float32{0.1, 0.2}, []float32{0.3, 0.4}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var header wav.Header
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header.Fmt.AudioFormat != uint16(wav.IEEEFloatingPoint) {
		t.Errorf("got format %d, want IEEEFloatingPoint", header.Fmt.AudioFormat)
	}
	if header.Fmt.BitsPerSample != 32 {
		t.Errorf("got %d bits per sample, want 32", header.Fmt.BitsPerSample)
	}
}
