// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package radio

import "errors"

// Error kinds, for classifying a failure with errors.Is. Failures in
// the read loop, in a retune and in the audio sink wrap ErrTransport;
// Start called outside OFF wraps ErrInvalidState; the default device
// opener wraps ErrDeviceNotFound. Errors from opening and configuring
// the dongle in Start are returned as package rtl reports them, without
// a sentinel from this package. ErrPermissionDenied,
// ErrUnsupportedTuner and ErrPllNotLocked are not returned by this
// package.
var (
	ErrPermissionDenied = errors.New("radio: usb permission denied")
	ErrDeviceNotFound   = errors.New("radio: no compatible dongle found")
	ErrUnsupportedTuner = errors.New("radio: unsupported tuner chip")
	ErrPllNotLocked     = errors.New("radio: pll did not lock")
	ErrTransport        = errors.New("radio: usb transport error")
	ErrInvalidState     = errors.New("radio: operation not valid in current state")
)
