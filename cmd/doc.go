// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package cmd contains command-line applications that exercise the
rtlradio-go module: a headless stdin/stdout demodulator, a full
tune-and-play receiver, and a WAV recorder.
*/
package cmd
