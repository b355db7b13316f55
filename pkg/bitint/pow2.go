/*
Package bitint provides the power-of-two helpers used to size transform
blocks.

	// Smallest FFT block that holds a window of 1000 frames
	block := bitint.NextPowerOfTwo(1000) // 1024

	// Check a requested block before building a transform for it
	ok := bitint.IsPowerOfTwo(block)

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves: bits.Len(8-1) is 3 and 1<<3 is 8, whereas
bits.Len(8) is 4 and would double the input.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Sizes of zero
// or less return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. Powers of two
// have a single bit set, so clearing the lowest set bit with n&(n-1) leaves
// zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
