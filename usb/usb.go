// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package usb wraps the small slice of the USB protocol that the
// RTL2832U dongle actually uses: vendor control transfers on the device
// recipient and a single bulk IN endpoint. It is intentionally narrow;
// it is not a general-purpose USB library.
package usb

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/gousb"
)

// VendorID and ProductIDs identify the supported RTL2832U dongles.
// Device discovery beyond this small list is out of scope.
const (
	VendorID = gousb.ID(0x0bda)
)

// ProductIDs lists the RTL2832U USB product IDs recognized by Find.
var ProductIDs = []gousb.ID{0x2832, 0x2838}

const (
	interfaceNum = 1
	altSetting   = 0
	bulkEndpoint = 1

	controlTimeout = time.Second
	bulkTimeout    = 2 * time.Second
)

// writeFlag is OR'd into the index of a control transfer to select the
// OUT direction, per the device's vendor protocol.
const writeFlag = 0x10

// Transport is the small slice of USB operations the register and
// tuner layers depend on. *Device implements it; tests substitute a
// fake to exercise the register/tuner/controller layers without real
// hardware.
type Transport interface {
	ControlRead(ctx context.Context, value, index uint16, length int) ([]byte, error)
	ControlWrite(ctx context.Context, value, index uint16, data []byte) error
	BulkRead(ctx context.Context, length int) ([]byte, error)
	ClaimInterface() error
	ReleaseInterface() error
	Close() error
}

var _ Transport = (*Device)(nil)

// Device wraps a single claimed RTL2832U USB interface. The zero value
// is not usable; construct with Open.
type Device struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	in     *gousb.InEndpoint
	log    *log.Logger
	closed bool
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithLogger installs a structured logger used for USB-layer
// diagnostics. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(d *Device) { d.log = l }
}

// Open finds the first RTL2832U dongle from ProductIDs, claims
// interface 1, and resolves the bulk IN endpoint. The caller owns the
// returned Device exclusively until Close is called.
func Open(opts ...Option) (*Device, error) {
	ctx := gousb.NewContext()

	d := &Device{ctx: ctx, log: log.Default()}
	for _, opt := range opts {
		opt(d)
	}

	var found *gousb.Device
	var lastErr error
	for _, pid := range ProductIDs {
		dev, err := ctx.OpenDeviceWithVIDPID(VendorID, pid)
		if err != nil {
			lastErr = err
			continue
		}
		if dev != nil {
			found = dev
			break
		}
	}
	if found == nil {
		ctx.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, lastErr)
		}
		return nil, ErrDeviceNotFound
	}
	d.dev = found

	cfg, err := found.Config(1)
	if err != nil {
		d.closeAll()
		return nil, fmt.Errorf("usb: set config: %w", err)
	}
	d.cfg = cfg

	if err := d.claimInterface(); err != nil {
		d.closeAll()
		return nil, err
	}

	d.log.Debug("usb device opened", "vendor", VendorID, "product", found.Desc.Product)
	return d, nil
}

func (d *Device) claimInterface() error {
	intf, err := d.cfg.Interface(interfaceNum, altSetting)
	if err != nil {
		return fmt.Errorf("usb: claim interface %d: %w", interfaceNum, err)
	}
	in, err := intf.InEndpoint(bulkEndpoint)
	if err != nil {
		intf.Close()
		return fmt.Errorf("usb: open bulk endpoint %d: %w", bulkEndpoint, err)
	}
	d.intf = intf
	d.in = in
	return nil
}

// ReleaseInterface releases the claimed interface without closing the
// device or config handle.
func (d *Device) ReleaseInterface() error {
	if d.intf == nil {
		return nil
	}
	d.intf.Close()
	d.intf = nil
	d.in = nil
	return nil
}

// ClaimInterface re-claims interface 1 after a prior release.
func (d *Device) ClaimInterface() error {
	if d.intf != nil {
		return nil
	}
	return d.claimInterface()
}

func (d *Device) closeAll() {
	if d.intf != nil {
		d.intf.Close()
	}
	if d.cfg != nil {
		d.cfg.Close()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	d.ctx.Close()
}

// Close releases the interface, closes the device and the USB context.
// It is safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.closeAll()
	return nil
}

// ControlRead performs a vendor/device/IN control transfer, request
// code 0, reading length bytes.
func (d *Device) ControlRead(ctx context.Context, value, index uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	rType := uint8(gousb.ControlVendor | gousb.ControlDevice | gousb.ControlIn)
	n, err := d.control(ctx, rType, value, index, buf, controlTimeout)
	if err != nil {
		return nil, &TransportError{Op: "control_read", Value: value, Index: index, Err: err}
	}
	return buf[:n], nil
}

// ControlWrite performs a vendor/device/OUT control transfer, request
// code 0. The index has writeFlag (0x10) OR'd in, per the device
// protocol, so callers pass the raw index.
func (d *Device) ControlWrite(ctx context.Context, value, index uint16, data []byte) error {
	rType := uint8(gousb.ControlVendor | gousb.ControlDevice | gousb.ControlOut)
	_, err := d.control(ctx, rType, value, index|writeFlag, data, controlTimeout)
	if err != nil {
		return &TransportError{Op: "control_write", Value: value, Index: index, Err: err}
	}
	return nil
}

func (d *Device) control(ctx context.Context, rType uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	if d.dev == nil {
		return 0, fmt.Errorf("usb: device not open")
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := d.dev.Control(rType, 0, value, index, data)
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-cctx.Done():
		return 0, cctx.Err()
	}
}

// BulkRead reads exactly up to length bytes from the bulk IN endpoint.
func (d *Device) BulkRead(ctx context.Context, length int) ([]byte, error) {
	if d.in == nil {
		return nil, fmt.Errorf("usb: bulk endpoint not claimed")
	}
	cctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	buf := make([]byte, length)
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := d.in.Read(buf)
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &TransportError{Op: "bulk_read", Err: r.err}
		}
		return buf[:r.n], nil
	case <-cctx.Done():
		return nil, &TransportError{Op: "bulk_read", Err: cctx.Err()}
	}
}
