// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package radio

// AudioSink receives decoded stereo audio blocks. The controller calls
// it from its audio loop; recording is the separate RecordingSink
// interface.
type AudioSink interface {
	// Play is called with one decoded block as separate left and right
	// channel slices at demod.OutRate, already volume-scaled.
	Play(left, right []float32) error
}

// RecordingSink is implemented by an AudioSink that can additionally
// persist audio to a recording, started/stopped by
// Controller.StartRecording/StopRecording.
type RecordingSink interface {
	AudioSink
	StartRecording(dest string) error
	StopRecording() error
}
