// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"encoding/binary"
	"io"
	"math"
)

// wbuf writes little-endian words to an output stream, tracking the
// stream offset for block padding and latching the first error so
// serialization code can write first and check once. Output is always
/// little-endian: the writer only produces Intel format files.
type wbuf struct {
	w   io.Writer
	buf []byte
	off int
	err error
}

func newWbuf(w io.Writer) *wbuf {
	return &wbuf{w: w, buf: make([]byte, 8)}
}

func (w *wbuf) write(p []byte) {
	if w.err != nil {
		return
	}
	var n int
	n, w.err = w.w.Write(p)
	w.off += n
}

func (w *wbuf) writeU8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *wbuf) writeI8(v int8) {
	w.writeU8(uint8(v))
}

func (w *wbuf) writeU16(v uint16) {
	const n = 2
	binary.LittleEndian.PutUint16(w.buf[:n], v)
	w.write(w.buf[:n])
}

func (w *wbuf) writeI16(v int16) {
	w.writeU16(uint16(v))
}

func (w *wbuf) writeU32(v uint32) {
	const n = 4
	binary.LittleEndian.PutUint32(w.buf[:n], v)
	w.write(w.buf[:n])
}

func (w *wbuf) writeF32(v float32) {
	w.writeU32(math.Float32bits(v))
}

// pad writes n zero bytes.
func (w *wbuf) pad(n int) {
	var zero [64]byte
	for n > 0 && w.err == nil {
		k := n
		if k > len(zero) {
			k = len(zero)
		}
		w.write(zero[:k])
		n -= k
	}
}

// padBlock zero-fills up to the next 512-byte block boundary.
func (w *wbuf) padBlock() {
	if extra := w.off % blockSize; extra != 0 {
		w.pad(blockSize - extra)
	}
}
