// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package callback

import (
	"encoding/binary"
	"io"
	"math"
)

// NewWriteFn creates a function that writes the provided int16 samples
// to the provided io.Writer. The function is roughly equivalent to
// binary.Write() except for some application specific optimizations.
// The function uses a persistent buffer to avoid allocations.
func NewWriteFn(order binary.ByteOrder) func(out io.Writer, x []int16) (int, error) {
	const sizeOfScalar = 2
	buf := make([]byte, 4096)
	return func(out io.Writer, x []int16) (int, error) {
		numBytes := len(x) * sizeOfScalar
		if len(buf) < numBytes {
			next := len(buf) * 2
			if next < numBytes {
				next = numBytes
			}
			buf = make([]byte, next)
		}
		switch order {
		case binary.LittleEndian:
			bi := 0
			for i := range x {
				binary.LittleEndian.PutUint16(buf[bi:], uint16(x[i]))
				bi += sizeOfScalar
			}
		case binary.BigEndian:
			bi := 0
			for i := range x {
				binary.BigEndian.PutUint16(buf[bi:], uint16(x[i]))
				bi += sizeOfScalar
			}
		default:
			bi := 0
			for i := range x {
				order.PutUint16(buf[bi:], uint16(x[i]))
				bi += sizeOfScalar
			}
		}
		return out.Write(buf[:numBytes])
	}
}

// NewFloat32WriteFn creates a function that writes the provided
// float32 samples to the provided io.Writer. The function is roughly
// equivalent to binary.Write() except for some application specific
// optimizations. The function uses a persistent buffer to avoid
// allocations.
func NewFloat32WriteFn(order binary.ByteOrder) func(out io.Writer, x []float32) (int, error) {
	const sizeOfScalar = 4
	buf := make([]byte, 4096)
	return func(out io.Writer, x []float32) (int, error) {
		numBytes := len(x) * sizeOfScalar
		if len(buf) < numBytes {
			next := len(buf) * 2
			if next < numBytes {
				next = numBytes
			}
			buf = make([]byte, next)
		}
		switch order {
		case binary.LittleEndian:
			bi := 0
			for i := range x {
				binary.LittleEndian.PutUint32(buf[bi:], math.Float32bits(x[i]))
				bi += sizeOfScalar
			}
		case binary.BigEndian:
			bi := 0
			for i := range x {
				binary.BigEndian.PutUint32(buf[bi:], math.Float32bits(x[i]))
				bi += sizeOfScalar
			}
		default:
			bi := 0
			for i := range x {
				order.PutUint32(buf[bi:], math.Float32bits(x[i]))
				bi += sizeOfScalar
			}
		}
		return out.Write(buf[:numBytes])
	}
}
