// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package profile loads the small set of startup defaults (PPM
// correction, gain, volume, squelch) the controller is seeded with.
// Presets and frequency bands remain the responsibility of the UI
// collaborator; this package only covers the device-tuning defaults a
// deployment wants fixed across restarts.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the YAML-backed set of startup defaults.
type Profile struct {
	CorrectionPPM int      `yaml:"correction_ppm"`
	ManualGainDb  *float64 `yaml:"manual_gain_db"`
	Volume        float64  `yaml:"volume"`
	Squelch       float64  `yaml:"squelch"`
	Mode          string   `yaml:"mode"`
	FrequencyHz   float64  `yaml:"frequency_hz"`
}

// Default returns the built-in defaults used when no profile file is
// present.
func Default() Profile {
	return Profile{
		Volume:      1.0,
		Mode:        "WBFM",
		FrequencyHz: 100_000_000,
	}
}

// Load reads and parses a YAML profile file at path, applying Default
// for any field the file omits (zero-value fields are not
// distinguishable from omitted ones for numeric fields, so Default's
// values only apply when this Profile is used as a base before
// unmarshaling on top of it).
func Load(path string) (Profile, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path as YAML.
func Save(path string, p Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("profile: write %s: %w", path, err)
	}
	return nil
}
