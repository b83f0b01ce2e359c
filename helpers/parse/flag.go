// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parse

import (
	"fmt"
	"strconv"
	"strings"
)

const ModeFlagHelp = `AM|WBFM|NBFM|SSB[U|L]: Demodulation Mode
Selects the demodulator used to decode the tuned signal. WBFM is
broadcast-band wide FM with stereo pilot decoding. NBFM is narrowband
FM for land-mobile style signals. SSBU and SSBL select upper and
lower sideband single-sideband demodulation.`

// ParseMode validates a mode name against the set of modes the
// controller knows how to construct a demodulator for. The comparison
// is case-insensitive; the canonical upper-case name is returned.
func ParseMode(arg string) (string, error) {
	switch strings.ToUpper(arg) {
	case "AM":
		return "AM", nil
	case "WBFM":
		return "WBFM", nil
	case "NBFM":
		return "NBFM", nil
	case "SSBU":
		return "SSBU", nil
	case "SSBL":
		return "SSBL", nil
	default:
		return "", fmt.Errorf("invalid mode; got %s, want AM|WBFM|NBFM|SSBU|SSBL", arg)
	}
}

const GainFlagHelp = `auto|dB: Tuner Gain
Sets the R820T tuner gain. The special value "auto" enables the
tuner's automatic gain control. Any other value is parsed as a
manual gain in dB and mapped to the nearest supported gain step.`

// ParseGainFlag parses a gain flag value. A nil return indicates
// automatic gain control should be used.
func ParseGainFlag(arg string) (*float64, error) {
	if strings.EqualFold(arg, "auto") || arg == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid gain; %v", err)
	}
	return &val, nil
}

const PPMFlagHelp = `N: Frequency Correction
Crystal frequency correction in parts-per-million. Positive values
correct for a crystal that runs fast.`

// ParsePPMFlag parses an integer PPM correction value.
func ParsePPMFlag(arg string) (int, error) {
	if arg == "" {
		return 0, nil
	}
	val, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ppm correction; %v", err)
	}
	return int(val), nil
}

const VolumeFlagHelp = `0.0-2.0: Output Volume
Linear scale factor applied to decoded audio before it reaches the
audio sink.`

// ParseVolumeFlag parses a volume scale factor.
func ParseVolumeFlag(arg string) (float64, error) {
	if arg == "" {
		return 1.0, nil
	}
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume; %v", err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid volume; got %f, want >= 0", val)
	}
	return val, nil
}

const SquelchFlagHelp = `0.0-1.0: Squelch Level
Minimum demodulated signal level required before audio is produced;
quieter blocks are played as silence.`

// ParseSquelchFlag parses a squelch threshold.
func ParseSquelchFlag(arg string) (float64, error) {
	if arg == "" {
		return 0, nil
	}
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid squelch; %v", err)
	}
	return val, nil
}
