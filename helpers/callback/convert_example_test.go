// Copyright 2021 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package callback_test

import (
	"fmt"

	"github.com/msiner/rtlradio-go/helpers/callback"
)

func ExampleConvertToInt16Fn() {
	convert := callback.NewConvertToInt16Fn()

	floats := []float32{0, 0.5, 1, -0.5, -1}
	ints := convert(floats)
	fmt.Println(ints)
	// Output:
	// [0 16383 32767 -16383 -32767]
}
