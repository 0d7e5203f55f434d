// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import "errors"

const (
	blockSize = 512  // all major file sections are aligned on 512-byte blocks
	magic     = 0x50 // C3D magic byte, second byte of the header

	// longEventKey flags 4-character event labels in the header.
	longEventKey = 0x3039

	// maxEvents is the capacity of the header event sub-block.
	maxEvents = 18

	// uint16Max saturates 16-bit frame counters; larger frame numbers
	// move to POINT:LONG_FRAMES and the TRIAL group.
	uint16Max = 65535
)

var (
	// ErrMagic is returned when the header magic byte is not 80.
	ErrMagic = errors.New("c3d: invalid magic byte")

	// ErrProcessor is returned when the processor byte of the parameter
	// section preamble is not one of the Intel, DEC or MIPS codes.
	ErrProcessor = errors.New("c3d: unsupported processor")

	// ErrDuplicateKey is returned when adding or renaming a group or
	// parameter would overwrite an existing name or numeric id.
	ErrDuplicateKey = errors.New("c3d: duplicate key")

	// ErrShapeMismatch is returned when buffered frames disagree on the
	// point or analog sample layout.
	ErrShapeMismatch = errors.New("c3d: frame shape mismatch")

	// ErrEmptyWrite is returned when writing a file with no frames.
	ErrEmptyWrite = errors.New("c3d: no frames to write")
)

// Point is one 3D marker sample.
//
// Residual is the scaled error estimate reported by the capture system;
// -1 marks an invalid or unobserved sample, 0 marks modeled
// (interpolated or filtered) data. Cameras holds the raw camera bitmask,
// or the number of observing cameras when decoded with CameraSum.
type Point struct {
	X, Y, Z  float32
	Residual float32
	Cameras  float32
}

// Frame is one frame of motion data: a point sample for each marker and
// the analog samples recorded during that frame interval.
//
// Analog is laid out channel-major: all samples of channel 0, then all
// samples of channel 1, with AnalogPerFrame samples per channel.
type Frame struct {
	Index  int
	Points []Point
	Analog []float32
}

// Event is one entry of the header event sub-block: a timing relative
// to frame 1, a label of at most 4 characters and a display flag.
type Event struct {
	Time    float32
	Label   string
	Display bool
}
