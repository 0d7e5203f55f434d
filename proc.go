// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/xerrors"

	"github.com/go-mocap/c3d/internal/decfloat"
)

// ProcessorKind identifies the binary encoding of a C3D file: the byte
// order of its integers and the bit layout of its floats.
type ProcessorKind uint8

const (
	ProcIntel ProcessorKind = 84 // little-endian, IEEE-754 floats
	ProcDEC   ProcessorKind = 85 // little-endian ints, DEC floats
	ProcMIPS  ProcessorKind = 86 // big-endian, IEEE-754 floats
)

func (p ProcessorKind) String() string {
	switch p {
	case ProcIntel:
		return "INTEL"
	case ProcDEC:
		return "DEC"
	case ProcMIPS:
		return "MIPS"
	}
	return "INVALID"
}

var hostLittle = func() bool {
	var v uint16 = 1
	return *(*byte)(unsafe.Pointer(&v)) == 1
}()

// Native reports whether the host byte order matches the file encoding.
// DEC files are never native: their floats need a bit shuffle on any
// host.
func (p ProcessorKind) Native() bool {
	switch p {
	case ProcIntel:
		return hostLittle
	case ProcMIPS:
		return !hostLittle
	}
	return false
}

// procType is the decode strategy for one processor format. It is
// resolved once, when the processor byte of the parameter section is
// read, and threaded through every subsequent byte reinterpretation.
type procType struct {
	kind  ProcessorKind
	order binary.ByteOrder
}

func newProcType(kind ProcessorKind) (procType, error) {
	switch kind {
	case ProcIntel, ProcDEC:
		return procType{kind: kind, order: binary.LittleEndian}, nil
	case ProcMIPS:
		return procType{kind: kind, order: binary.BigEndian}, nil
	}
	return procType{}, xerrors.Errorf("c3d: unknown processor byte 0x%x: %w", uint8(kind), ErrProcessor)
}

func (p procType) isIEEE() bool { return p.kind == ProcIntel }
func (p procType) isDEC() bool  { return p.kind == ProcDEC }
func (p procType) isMIPS() bool { return p.kind == ProcMIPS }

func (p procType) uint16(b []byte) uint16 { return p.order.Uint16(b) }
func (p procType) uint32(b []byte) uint32 { return p.order.Uint32(b) }
func (p procType) int16(b []byte) int16   { return int16(p.order.Uint16(b)) }
func (p procType) int32(b []byte) int32   { return int32(p.order.Uint32(b)) }

// float32bits reinterprets a 32-bit pattern already read in the file
// byte order as a float of the file format.
func (p procType) float32bits(v uint32) float32 {
	if p.isDEC() {
		return decfloat.ToIEEE(v)
	}
	return math.Float32frombits(v)
}

// float32 decodes one 4-byte float word.
func (p procType) float32(b []byte) float32 {
	if p.isDEC() {
		return decfloat.FromBytes(b)
	}
	return math.Float32frombits(p.order.Uint32(b))
}

// float64 decodes one 8-byte float word. 64-bit DEC floats are not a
// thing this package supports; callers check isDEC first.
func (p procType) float64(b []byte) float64 {
	return math.Float64frombits(p.order.Uint64(b))
}

// decodeString decodes raw parameter bytes to text: UTF-8 when valid,
// with a Latin-1 fallback so that decoding never fails.
func (p procType) decodeString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
