// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decfloat converts DEC (PDP-11/VAX) single precision floating
// point bit patterns to IEEE-754.
//
// A DEC float stores the two 16-bit halves of the word swapped with
// respect to IEEE-754, uses an excess-128 exponent and hides a leading
// 0.5 fraction bit instead of 1.0. Swapping the halves and decrementing
// the exponent by 2 therefore yields the IEEE encoding of the same
// value. The decrement is an approximation: exponents of 0 or 1 cannot
// be decremented without adjusting the fraction, so denormal-range
// inputs convert inexactly. Several vendor files only read correctly
// with this exact behaviour, so it is kept as is.
package decfloat

import "math"

// ToIEEE converts the 32-bit pattern of a DEC float, read as a
// little-endian unsigned integer, to the equivalent IEEE-754 value.
func ToIEEE(v uint32) float32 {
	// Swap the 16-bit halves, then the word reads sign-exponent-fraction.
	r := v>>16 | v<<16
	exp := ((r & 0xff000000) - 1) & 0xff000000
	r = r&0x00ffffff | exp
	return math.Float32frombits(r)
}

// FromBytes converts the first 4 bytes of p, holding one DEC float in
// file byte order, to the equivalent IEEE-754 value.
func FromBytes(p []byte) float32 {
	b3 := p[1]
	if b3&0x7f == 0 {
		b3++
	}
	b3--
	bits := uint32(b3)<<24 | uint32(p[0])<<16 | uint32(p[3])<<8 | uint32(p[2])
	return math.Float32frombits(bits)
}

// Slice converts a byte stream of packed DEC floats to IEEE-754 values,
// 4 bytes per value.
func Slice(p []byte) []float32 {
	vs := make([]float32, len(p)/4)
	for i := range vs {
		vs[i] = FromBytes(p[4*i:])
	}
	return vs
}
