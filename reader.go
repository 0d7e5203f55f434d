// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strings"

	"golang.org/x/xerrors"
)

// Reader decodes a C3D file from an io.ReadSeeker. The header and the
// parameter section are decoded eagerly by NewReader; frame data is
// streamed on demand by Frames.
type Reader struct {
	*Manager

	rs   io.ReadSeeker
	proc procType
}

// NewReader reads the header and the parameter section of a C3D file.
// Structural defects (bad magic, unknown processor, truncated or
// malformed parameter records) are errors; metadata inconsistencies
// are collected as warnings.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	h := new(Header)
	err := h.read(rs, binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	off := int64(h.ParamBlock-1) * blockSize
	_, err = rs.Seek(off, io.SeekStart)
	if err != nil {
		return nil, xerrors.Errorf("c3d: could not seek to parameter section: %w", err)
	}
	var pre [4]byte
	_, err = io.ReadFull(rs, pre[:])
	if err != nil {
		return nil, xerrors.Errorf("c3d: could not read parameter preamble: %w", err)
	}
	proc, err := newProcType(ProcessorKind(pre[3]))
	if err != nil {
		return nil, err
	}

	err = h.processorConvert(proc, rs)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		Manager: newManager(h, proc),
		rs:      rs,
		proc:    proc,
	}

	nblocks := int(pre[2])
	if nblocks == 0 {
		nblocks = int(h.DataBlock) - int(h.ParamBlock)
		r.warnf("parameter preamble reports 0 blocks, assuming %d", nblocks)
	}
	if nblocks <= 0 {
		return nil, xerrors.Errorf("c3d: invalid parameter section size (%d blocks)", nblocks)
	}
	section := make([]byte, nblocks*blockSize-4)
	_, err = rs.Seek(off+4, io.SeekStart)
	if err != nil {
		return nil, xerrors.Errorf("c3d: could not seek to parameter records: %w", err)
	}
	_, err = io.ReadFull(rs, section)
	if err != nil {
		return nil, xerrors.Errorf("c3d: could not read parameter section: %w", err)
	}

	err = r.parseParams(section)
	if err != nil {
		return nil, err
	}
	r.checkMetadata()
	return r, nil
}

// parseParams walks the parameter records. A record whose offset field
// is zero is the last one; parameters may precede their group record,
// in which case a shell group is created and filled in later.
func (r *Reader) parseParams(section []byte) error {
	buf := section
	for len(buf) >= 2 {
		nameLen := int8(buf[0])
		groupID := int8(buf[1])
		if nameLen == 0 || groupID == 0 {
			break
		}
		n := int(nameLen)
		if n < 0 {
			n = -n
		}
		if len(buf) < 2+n+2 {
			return xerrors.Errorf("c3d: truncated parameter record (%d bytes left)", len(buf))
		}
		name := strings.ToUpper(trimSpace(r.proc.decodeString(buf[2 : 2+n])))
		offset := int(r.proc.int16(buf[2+n:]))

		var body []byte
		switch {
		case offset == 0:
			body = buf[2+n+2:]
			buf = nil
		case offset < 2 || 2+n+offset > len(buf):
			return xerrors.Errorf("c3d: invalid record offset %d for %q", offset, name)
		default:
			body = buf[2+n+2 : 2+n+offset]
			buf = buf[2+n+offset:]
		}

		switch {
		case groupID < 0:
			err := r.addGroupRecord(-groupID, name, body)
			if err != nil {
				return err
			}
		default:
			err := r.addParamRecord(groupID, name, body)
			if err != nil {
				return err
			}
		}
	}
	r.nameShellGroups()
	return nil
}

func (r *Reader) addGroupRecord(id int8, name string, body []byte) error {
	rb := &rbuf{p: body}
	dlen := int(rb.readU8())
	desc := r.proc.decodeString(rb.read(dlen))
	if rb.err != nil {
		return xerrors.Errorf("c3d: could not decode group %q: %w", name, rb.err)
	}

	if g, ok := r.byID[id]; ok {
		if g.Name != "" {
			r.warnf("duplicate group id %d (%s, %s), keeping the first", id, g.Name, name)
			return nil
		}
		// shell group created by an out of order parameter
		g.Name = name
		g.Desc = desc
		r.byName[name] = g
		r.order = append(r.order, name)
		return nil
	}
	if _, dup := r.byName[name]; dup {
		r.warnf("duplicate group name %q, keeping the first", name)
		return nil
	}
	g := newGroup(id, name, desc, r.proc)
	r.byID[id] = g
	r.byName[name] = g
	r.order = append(r.order, name)
	return nil
}

func (r *Reader) addParamRecord(id int8, name string, body []byte) error {
	g, ok := r.byID[id]
	if !ok {
		g = newGroup(id, "", "", r.proc)
		r.byID[id] = g
	}
	p := &Param{Name: name}
	err := p.parse(&rbuf{p: body}, r.proc)
	if err != nil {
		return err
	}
	err = g.AddParam(p)
	if err != nil {
		r.warnf("duplicate parameter %s:%s, keeping the first", g.Name, name)
	}
	return nil
}

// nameShellGroups registers groups that never got a group record under
// a synthetic name.
func (r *Reader) nameShellGroups() {
	for id, g := range r.byID {
		if g.Name != "" {
			continue
		}
		name := fmt.Sprintf("GROUP%d", id)
		r.warnf("group id %d has parameters but no group record, naming it %s", id, name)
		g.Name = name
		r.byName[name] = g
		r.order = append(r.order, name)
	}
}

// Processor returns the processor format the file was stored in.
func (r *Reader) Processor() ProcessorKind { return r.proc.kind }

// FrameOptions tunes frame decoding.
type FrameOptions struct {
	// NoCopy reuses the point and analog buffers between frames; the
	// caller must copy what it keeps.
	NoCopy bool

	// RawAnalog skips the per-channel offset and scale transform.
	RawAnalog bool

	// KeepNaN keeps non-finite coordinates instead of zeroing and
	// invalidating the point.
	KeepNaN bool

	// CameraSum reports the number of observing cameras instead of the
	// raw camera bitmask.
	CameraSum bool
}

// FrameSeq iterates over the frames of a file.
//
//	seq, err := r.Frames(c3d.FrameOptions{})
//	for seq.Next() {
//		f := seq.Frame()
//		...
//	}
//	if err := seq.Err(); err != nil { ... }
type FrameSeq struct {
	r    *Reader
	opts FrameOptions

	buf    []byte
	points []Point
	analog []float32

	floatMode bool
	itemSize  int
	scaleMag  float32
	npoints   int
	nchan     int
	perFrame  int
	xf        analogXform

	first, count, idx int
	err               error
}

// Frames positions the source at the data section and returns a frame
// iterator. The point and analog layout is fixed from the metadata at
// this point; calling Frames again restarts from the first frame.
func (r *Reader) Frames(opts FrameOptions) (*FrameSeq, error) {
	xf := r.analogTransform()
	scale := r.PointScale()
	seq := &FrameSeq{
		r:         r,
		opts:      opts,
		floatMode: scale < 0,
		itemSize:  2,
		scaleMag:  scale,
		npoints:   r.PointUsed(),
		nchan:     r.AnalogUsed(),
		perFrame:  r.AnalogPerFrame(),
		xf:        xf,
		first:     r.FirstFrame(),
		count:     r.FrameCount(),
	}
	if seq.floatMode {
		seq.itemSize = 4
		seq.scaleMag = -scale
	}
	// analog words are 16-bit integers in this mode
	if !seq.floatMode && xf.unsigned {
		if p := r.GetParam("ANALOG:BITS"); p != nil {
			if v, err := p.Int(); err == nil && v != 16 {
				return nil, xerrors.Errorf("c3d: unsupported analog resolution (%d bits)", v)
			}
		}
	}
	seq.buf = make([]byte, (4*seq.npoints+seq.nchan*seq.perFrame)*seq.itemSize)

	_, err := r.rs.Seek(int64(r.Header.DataBlock-1)*blockSize, io.SeekStart)
	if err != nil {
		return nil, xerrors.Errorf("c3d: could not seek to frame data: %w", err)
	}
	return seq, nil
}

// Next advances to the next frame. It returns false at the end of the
// recording or on error; a truncated recording stops the iteration
// with a warning, not an error.
func (s *FrameSeq) Next() bool {
	if s.err != nil || s.idx >= s.count {
		return false
	}
	if s.idx == 0 {
		s.checkLayout()
		if s.err != nil {
			return false
		}
	}
	_, err := io.ReadFull(s.r.rs, s.buf)
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		s.r.warnf("frame data ends after %d of %d frames", s.idx, s.count)
		s.idx = s.count
		return false
	case err != nil:
		s.err = xerrors.Errorf("c3d: could not read frame %d: %w", s.first+s.idx, err)
		return false
	}

	if !s.opts.NoCopy || s.points == nil {
		s.points = make([]Point, s.npoints)
		s.analog = make([]float32, s.nchan*s.perFrame)
	}
	s.decodePoints()
	s.decodeAnalog()
	s.idx++

	if s.idx == s.count {
		s.checkTrailing()
	}
	return true
}

func (s *FrameSeq) checkLayout() {
	if s.npoints == 0 && s.nchan == 0 {
		s.err = xerrors.Errorf("c3d: no point or analog data declared")
	}
}

// Frame returns the current frame. With NoCopy set the slices are
// only valid until the next call to Next.
func (s *FrameSeq) Frame() Frame {
	return Frame{
		Index:  s.first + s.idx - 1,
		Points: s.points,
		Analog: s.analog,
	}
}

// Err returns the first error encountered while iterating.
func (s *FrameSeq) Err() error { return s.err }

func (s *FrameSeq) decodePoints() {
	proc := s.r.proc
	for i := range s.points {
		b := s.buf[4*s.itemSize*i:]
		var (
			x, y, z float32
			w       int32
		)
		switch {
		case s.floatMode:
			x = proc.float32(b[0:4])
			y = proc.float32(b[4:8])
			z = proc.float32(b[8:12])
			w = int32(proc.float32(b[12:16]))
		default:
			x = float32(proc.int16(b[0:2])) * s.scaleMag
			y = float32(proc.int16(b[2:4])) * s.scaleMag
			z = float32(proc.int16(b[4:6])) * s.scaleMag
			w = int32(proc.int16(b[6:8]))
		}

		cam := uint32(w&0x7f00) >> 8
		pt := Point{
			X:        x,
			Y:        y,
			Z:        z,
			Residual: float32(w&0xff) * s.scaleMag,
			Cameras:  float32(cam),
		}
		if s.opts.CameraSum {
			pt.Cameras = float32(bits.OnesCount32(cam))
		}
		invalid := w < 0
		if !s.opts.KeepNaN && !finite(pt.X, pt.Y, pt.Z) {
			pt.X, pt.Y, pt.Z = 0, 0, 0
			invalid = true
		}
		if invalid {
			pt.Residual = -1
		}
		s.points[i] = pt
	}
}

// decodeAnalog transposes the sample major file layout to channel
// major and applies the channel transform.
func (s *FrameSeq) decodeAnalog() {
	if s.nchan == 0 {
		return
	}
	proc := s.r.proc
	base := 4 * s.itemSize * s.npoints
	for samp := 0; samp < s.perFrame; samp++ {
		for ch := 0; ch < s.nchan; ch++ {
			b := s.buf[base+(samp*s.nchan+ch)*s.itemSize:]
			var v float32
			switch {
			case s.floatMode:
				v = proc.float32(b[0:4])
			case s.xf.unsigned:
				v = float32(proc.uint16(b[0:2]))
			default:
				v = float32(proc.int16(b[0:2]))
			}
			if !s.opts.RawAnalog {
				v = (v - s.xf.offsets[ch]) * s.xf.scales[ch] * s.xf.genScale
			}
			s.analog[ch*s.perFrame+samp] = v
		}
	}
}

// checkTrailing warns when at least one full block of data follows the
// last frame.
func (s *FrameSeq) checkTrailing() {
	var b [blockSize]byte
	n, _ := io.ReadFull(s.r.rs, b[:])
	if n >= blockSize {
		s.r.warnf("at least %d bytes of data after the last frame", n)
	}
}

// ReadFrames decodes every frame into memory.
func (r *Reader) ReadFrames() ([]Frame, error) {
	seq, err := r.Frames(FrameOptions{})
	if err != nil {
		return nil, err
	}
	var frames []Frame
	for seq.Next() {
		frames = append(frames, seq.Frame())
	}
	if seq.Err() != nil {
		return nil, seq.Err()
	}
	return frames, nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
