// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFrequency is a helper function to parse a frequency value
// specified as a command-line argument. For convenience, valid
// arguments can have a suffix of k, K, m, M, g, or G to indicate
// the value is in kHz, MHz, or GHz respectively (e.g. 1.42G). Any
// text before such a prefix must represent a valid floating point
// value as parsed by strconv.ParseFloat(). The return value is the
// parsed frequency in Hz.
func ParseFrequency(arg string) (float64, error) {
	var mult float64 = 1
	arg = strings.ToLower(arg)
	switch {
	case arg == "":
		// do nothing
	case strings.HasSuffix(arg, "k"):
		mult = 1000
		arg = strings.TrimSuffix(arg, "k")
	case strings.HasSuffix(arg, "m"):
		mult = 1000 * 1000
		arg = strings.TrimSuffix(arg, "m")
	case strings.HasSuffix(arg, "g"):
		mult = 1000 * 1000 * 1000
		arg = strings.TrimSuffix(arg, "g")
	}
	freq, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, err
	}
	return freq * mult, nil
}

// ParseTuneFrequency is a wrapper around ParseFrequency that also
// guarantees the result is a valid tune frequency for an R820T-based
// dongle. The usable range for the R820T mixer, including the
// 3.57 MHz IF offset added by the tuner driver, is roughly 24 MHz to
// 1.766 GHz.
func ParseTuneFrequency(arg string) (float64, error) {
	freq, err := ParseFrequency(arg)
	if err != nil {
		return 0, err
	}
	const (
		minFreq = 24e6
		maxFreq = 1766e6
	)
	if freq < minFreq || freq > maxFreq {
		return 0, fmt.Errorf("invalid tune frequency; got %f Hz, want %gHz<=Freq<=%gHz", freq, minFreq, maxFreq)
	}
	return freq, nil
}
