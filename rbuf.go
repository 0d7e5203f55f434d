// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"golang.org/x/xerrors"
)

// rbuf is a sticky-error cursor over a bounded byte section, used to
// walk the parameter directory. A read past the end of the section
// latches an error and every subsequent read is a no-op, so record
// parsers can decode first and check once.
type rbuf struct {
	p   []byte
	c   int
	err error
}

func (r *rbuf) remain() int { return len(r.p) - r.c }

func (r *rbuf) load(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remain() < n {
		r.err = xerrors.Errorf("c3d: malformed record: want %d bytes, have %d", n, r.remain())
		return nil
	}
	b := r.p[r.c : r.c+n]
	r.c += n
	return b
}

func (r *rbuf) readU8() uint8 {
	b := r.load(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *rbuf) readI8() int8 {
	return int8(r.readU8())
}

// read returns the next n bytes of the section without copying.
func (r *rbuf) read(n int) []byte {
	return r.load(n)
}
