// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parse

import "testing"

func TestParseMode(t *testing.T) {
	specs := []struct {
		arg   string
		want  string
		valid bool
	}{
		{"am", "AM", true},
		{"WBFM", "WBFM", true},
		{"nbfm", "NBFM", true},
		{"ssbu", "SSBU", true},
		{"SSBL", "SSBL", true},
		{"fm", "", false},
	}
	for _, spec := range specs {
		got, err := ParseMode(spec.arg)
		if spec.valid && err != nil {
			t.Errorf("%s: unexpected error: %v", spec.arg, err)
		}
		if !spec.valid && err == nil {
			t.Errorf("%s: expected error, got none", spec.arg)
		}
		if spec.valid && got != spec.want {
			t.Errorf("%s: got %s, want %s", spec.arg, got, spec.want)
		}
	}
}

func TestParseGainFlag(t *testing.T) {
	g, err := ParseGainFlag("auto")
	if err != nil || g != nil {
		t.Errorf("auto: got %v, %v, want nil, nil", g, err)
	}
	g, err = ParseGainFlag("")
	if err != nil || g != nil {
		t.Errorf("empty: got %v, %v, want nil, nil", g, err)
	}
	g, err = ParseGainFlag("20.5")
	if err != nil || g == nil || *g != 20.5 {
		t.Errorf("20.5: got %v, %v, want 20.5, nil", g, err)
	}
	if _, err := ParseGainFlag("nope"); err == nil {
		t.Error("expected error for invalid gain")
	}
}

func TestParsePPMFlag(t *testing.T) {
	ppm, err := ParsePPMFlag("-5")
	if err != nil || ppm != -5 {
		t.Errorf("got %v, %v, want -5, nil", ppm, err)
	}
	if _, err := ParsePPMFlag("abc"); err == nil {
		t.Error("expected error for invalid ppm")
	}
}

func TestParseVolumeFlag(t *testing.T) {
	v, err := ParseVolumeFlag("")
	if err != nil || v != 1.0 {
		t.Errorf("default: got %v, %v, want 1.0, nil", v, err)
	}
	if _, err := ParseVolumeFlag("-1"); err == nil {
		t.Error("expected error for negative volume")
	}
}
