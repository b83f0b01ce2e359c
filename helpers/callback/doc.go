// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package callback provides types and functions for handling decoded
audio blocks on their way to a file or a pipe.

To avoid extra allocations and complexity on a hot path, many of the
types in this package are designed with internal buffers. This allows,
for example, the InterleaveFn function type to simply accept two
channel buffers and return a single interleaved buffer. The returning
function still owns the buffer, but this design allows functions to be
chained together and the caller does not need to worry about providing
an adequately sized buffer as an input argument.

	write := NewWriteFn(binary.LittleEndian)
	interleave := NewInterleaveFn()
	toInt16 := NewConvertToInt16Fn()
	...
	n, err := write(out, toInt16(interleave(left, right)))

The buffers returned by such functions must not be stored, reused, or
otherwise allowed to escape. Copy samples out of the buffer if they
need to be used later.
*/
package callback
