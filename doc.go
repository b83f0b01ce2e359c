// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package rtlradio is the top-level package of the rtlradio-go module.
It turns an RTL2832U/R820T USB dongle into a broadcast radio receiver.
See the usb package for the low-level USB transport, rtl for the
tuner driver, dsp and dsp/demod for the DSP pipeline, and radio for
the top-level controller state machine used by the cmd/* front ends.
*/
package rtlradio
