// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"math"

	"golang.org/x/xerrors"

	"github.com/go-mocap/c3d/internal/decfloat"
)

// ElemKind describes the element type of a parameter payload, encoded
// on the wire as the signed bytes-per-element field.
type ElemKind int8

const (
	KindChar    ElemKind = -1
	KindByte    ElemKind = 1
	KindInt16   ElemKind = 2
	KindFloat32 ElemKind = 4
)

func (k ElemKind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindByte:
		return "byte"
	case KindInt16:
		return "int16"
	case KindFloat32:
		return "float32"
	}
	return "invalid"
}

// size returns the element size in bytes.
func (k ElemKind) size() int {
	if k < 0 {
		return int(-k)
	}
	return int(k)
}

// Param is a named parameter inside a group. The payload is kept as
// raw bytes in the source processor format; dims follow the column
// major convention of the file, with the fastest varying dimension
// first. An empty dims slice denotes a scalar.
type Param struct {
	Name string
	Desc string

	kind ElemKind
	dims []uint8
	data []byte

	proc procType
}

func newParam(name, desc string, kind ElemKind, dims []uint8, data []byte, proc procType) *Param {
	return &Param{
		Name: name,
		Desc: desc,
		kind: kind,
		dims: dims,
		data: data,
		proc: proc,
	}
}

// Kind returns the element type of the payload.
func (p *Param) Kind() ElemKind { return p.kind }

// Dims returns the raw column major dimensions.
func (p *Param) Dims() []int {
	dims := make([]int, len(p.dims))
	for i, d := range p.dims {
		dims[i] = int(d)
	}
	return dims
}

// NaturalShape returns the row major shape of the payload: the wire
// dimensions reversed, with the string length dimension dropped for
// character arrays. A scalar has an empty shape.
func (p *Param) NaturalShape() []int {
	dims := p.dims
	if p.kind == KindChar && len(dims) > 1 {
		dims = dims[1:]
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[len(dims)-1-i] = int(d)
	}
	return shape
}

func (p *Param) elems() int {
	n := 1
	for _, d := range p.dims {
		n *= int(d)
	}
	return n
}

func (p *Param) totalBytes() int { return p.elems() * p.kind.size() }

// binarySize returns the number of bytes the parameter record occupies
// on the wire.
func (p *Param) binarySize() int {
	return 7 + len(p.Name) + len(p.dims) + p.totalBytes() + len(p.Desc)
}

// parse decodes the parameter body that follows the name and offset
// fields of a parameter record.
func (p *Param) parse(r *rbuf, proc procType) error {
	p.proc = proc
	p.kind = ElemKind(r.readI8())
	ndims := int(r.readU8())
	p.dims = append([]uint8(nil), r.read(ndims)...)
	if r.err != nil {
		return xerrors.Errorf("c3d: could not decode parameter %q: %w", p.Name, r.err)
	}
	p.data = append([]byte(nil), r.read(p.totalBytes())...)
	dlen := int(r.readU8())
	p.Desc = proc.decodeString(r.read(dlen))
	if r.err != nil {
		return xerrors.Errorf("c3d: could not decode parameter %q: %w", p.Name, r.err)
	}
	return nil
}

// write serializes the full parameter record, offset field included.
func (p *Param) write(groupID int8, w *wbuf) {
	w.writeI8(int8(len(p.Name)))
	w.writeI8(groupID)
	w.write([]byte(p.Name))
	w.writeI16(int16(p.binarySize() - 2 - len(p.Name)))
	w.writeI8(int8(p.kind))
	w.writeU8(uint8(len(p.dims)))
	w.write(p.dims)
	w.write(p.data)
	w.writeU8(uint8(len(p.Desc)))
	w.write([]byte(p.Desc))
}

func (p *Param) wantBytes(n int) error {
	if len(p.data) < n {
		return xerrors.Errorf("c3d: parameter %q holds %d bytes, want %d", p.Name, len(p.data), n)
	}
	return nil
}

// Bytes returns the raw payload.
func (p *Param) Bytes() []byte { return p.data }

func (p *Param) Int8() (int8, error) {
	if err := p.wantBytes(1); err != nil {
		return 0, err
	}
	return int8(p.data[0]), nil
}

func (p *Param) Uint8() (uint8, error) {
	if err := p.wantBytes(1); err != nil {
		return 0, err
	}
	return p.data[0], nil
}

func (p *Param) Int16() (int16, error) {
	if err := p.wantBytes(2); err != nil {
		return 0, err
	}
	return p.proc.int16(p.data), nil
}

func (p *Param) Uint16() (uint16, error) {
	if err := p.wantBytes(2); err != nil {
		return 0, err
	}
	return p.proc.uint16(p.data), nil
}

func (p *Param) Int32() (int32, error) {
	if err := p.wantBytes(4); err != nil {
		return 0, err
	}
	return p.proc.int32(p.data), nil
}

func (p *Param) Uint32() (uint32, error) {
	if err := p.wantBytes(4); err != nil {
		return 0, err
	}
	return p.proc.uint32(p.data), nil
}

func (p *Param) Float32() (float32, error) {
	if err := p.wantBytes(4); err != nil {
		return 0, err
	}
	return p.proc.float32(p.data), nil
}

func (p *Param) Float64() (float64, error) {
	if err := p.wantBytes(8); err != nil {
		return 0, err
	}
	return p.proc.float64(p.data), nil
}

// Float returns the scalar value as a float64 whatever the element
// type; vendors store nominally integer quantities as floats and the
// other way round.
func (p *Param) Float() (float64, error) {
	switch p.kind {
	case KindFloat32:
		v, err := p.Float32()
		return float64(v), err
	case KindInt16:
		v, err := p.Int16()
		return float64(v), err
	case KindByte:
		v, err := p.Uint8()
		return float64(v), err
	}
	return 0, xerrors.Errorf("c3d: parameter %q is not numeric (kind=%v)", p.Name, p.kind)
}

// Int returns the scalar value as an int whatever the element type.
func (p *Param) Int() (int, error) {
	switch p.kind {
	case KindFloat32:
		v, err := p.Float32()
		return int(v), err
	case KindInt16:
		v, err := p.Uint16()
		return int(v), err
	case KindByte:
		v, err := p.Uint8()
		return int(v), err
	}
	return 0, xerrors.Errorf("c3d: parameter %q is not numeric (kind=%v)", p.Name, p.kind)
}

// String returns the payload decoded as text.
func (p *Param) String() string {
	return p.proc.decodeString(p.data)
}

func (p *Param) Int16s() ([]int16, error) {
	n := len(p.data) / 2
	vs := make([]int16, n)
	for i := range vs {
		vs[i] = p.proc.int16(p.data[2*i:])
	}
	return vs, nil
}

func (p *Param) Uint16s() ([]uint16, error) {
	n := len(p.data) / 2
	vs := make([]uint16, n)
	for i := range vs {
		vs[i] = p.proc.uint16(p.data[2*i:])
	}
	return vs, nil
}

func (p *Param) Float32s() ([]float32, error) {
	n := len(p.data) / 4
	if p.proc.kind == ProcDEC {
		return decfloat.Slice(p.data[:4*n]), nil
	}
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = p.proc.float32(p.data[4*i:])
	}
	return vs, nil
}

// Floats returns the payload as float64 values whatever the element
// type.
func (p *Param) Floats() ([]float64, error) {
	switch p.kind {
	case KindFloat32:
		vs, err := p.Float32s()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = float64(v)
		}
		return out, nil
	case KindInt16:
		vs, err := p.Int16s()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = float64(v)
		}
		return out, nil
	case KindByte:
		out := make([]float64, len(p.data))
		for i, v := range p.data {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, xerrors.Errorf("c3d: parameter %q is not numeric (kind=%v)", p.Name, p.kind)
}

// BytesArray splits a character payload into fixed width byte strings,
// the width being the first (fastest varying) dimension. Elements come
// out in file order.
func (p *Param) BytesArray() ([][]byte, error) {
	if len(p.dims) < 2 {
		return nil, xerrors.Errorf("c3d: parameter %q is not a string array (dims=%v)", p.Name, p.dims)
	}
	width := int(p.dims[0])
	n := 1
	for _, d := range p.dims[1:] {
		n *= int(d)
	}
	if err := p.wantBytes(width * n); err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = p.data[i*width : (i+1)*width]
	}
	return out, nil
}

// Strings returns a character payload as trimmed strings, one per
// element of the remaining dimensions.
func (p *Param) Strings() ([]string, error) {
	raw, err := p.BytesArray()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, b := range raw {
		out[i] = trimSpace(p.proc.decodeString(b))
	}
	return out, nil
}

// asFrameCount interprets the payload as a frame counter, which
// vendors store either as a float or as a 16-bit integer.
func (p *Param) asFrameCount() (int, bool) {
	switch {
	case p.kind == KindFloat32 && len(p.data) >= 4:
		v := p.proc.float32(p.data)
		if math.IsNaN(float64(v)) {
			return 0, false
		}
		return int(v), true
	case len(p.data) >= 2:
		return int(p.proc.uint16(p.data)), true
	}
	return 0, false
}

func trimSpace(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == 0) {
		i--
	}
	j := 0
	for j < i && (s[j] == ' ' || s[j] == 0) {
		j++
	}
	return s[j:i]
}
