// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// Header is the fixed 512-byte first block of a C3D file.
//
// AnalogCount is the total number of analog values stored per point
// frame, i.e. channels times samples-per-frame. ScaleFactor < 0 means
// point data is stored as floats, >= 0 as scaled 16-bit integers.
// Header fields should agree with the equivalent POINT/ANALOG
// parameters; vendors violate this inconsistently, so disagreement is
// reported as a warning, never an error.
type Header struct {
	ParamBlock      uint8  // 1-indexed block where the parameter section starts
	PointCount      uint16 // number of 3D points per frame
	AnalogCount     uint16 // analog values per point frame
	FirstFrame      uint16
	LastFrame       uint16 // saturates at 65535
	MaxGap          uint16
	ScaleFactor     float32
	DataBlock       uint16 // 1-indexed block where frame data starts
	AnalogPerFrame  uint16 // analog samples per channel per point frame
	FrameRate       float32
	LongEventLabels bool
	EventCount      uint16
	Events          []Event

	// Raw float bit patterns as read by the generic first pass; they
	// are only interpreted once the processor format is known.
	rawScale uint32
	rawRate  uint32

	eventBlock [164]byte
}

// Event sub-block layout inside the 164-byte header region.
const (
	evTimeOff  = 0  // 18 4-byte timings
	evFlagOff  = 72 // 18 display flags
	evLabelOff = 92 // 18 4-byte labels, after 2 reserved bytes
)

// newHeader returns a Header with the defaults for a fresh file.
func newHeader() *Header {
	return &Header{
		ParamBlock:  2,
		DataBlock:   3,
		PointCount:  50,
		FirstFrame:  1,
		LastFrame:   1,
		FrameRate:   60.0,
		ScaleFactor: -1.0,
	}
}

// read parses the 512-byte header block with the given byte order,
// keeping the float fields as raw bit patterns until the processor
// format is known.
func (h *Header) read(rs io.ReadSeeker, order binary.ByteOrder) error {
	_, err := rs.Seek(0, io.SeekStart)
	if err != nil {
		return xerrors.Errorf("c3d: could not seek to header: %w", err)
	}
	var raw [blockSize]byte
	_, err = io.ReadFull(rs, raw[:])
	if err != nil {
		return xerrors.Errorf("c3d: could not read header: %w", err)
	}

	if m := raw[1]; m != magic {
		return xerrors.Errorf("c3d: invalid magic byte (got=0x%x, want=0x%x): %w", m, magic, ErrMagic)
	}

	h.ParamBlock = raw[0]
	h.PointCount = order.Uint16(raw[2:])
	h.AnalogCount = order.Uint16(raw[4:])
	h.FirstFrame = order.Uint16(raw[6:])
	h.LastFrame = order.Uint16(raw[8:])
	h.MaxGap = order.Uint16(raw[10:])
	h.rawScale = order.Uint32(raw[12:])
	h.DataBlock = order.Uint16(raw[16:])
	h.AnalogPerFrame = order.Uint16(raw[18:])
	h.rawRate = order.Uint32(raw[20:])
	h.LongEventLabels = order.Uint16(raw[298:]) == longEventKey
	h.EventCount = order.Uint16(raw[300:])
	copy(h.eventBlock[:], raw[304:304+len(h.eventBlock)])
	return nil
}

// processorConvert reinterprets the header once the processor format is
// known: MIPS files are re-read with a big-endian layout, then the
// float bit patterns and the event sub-block are decoded.
func (h *Header) processorConvert(p procType, rs io.ReadSeeker) error {
	if p.isMIPS() {
		err := h.read(rs, binary.BigEndian)
		if err != nil {
			return err
		}
	}
	h.ScaleFactor = p.float32bits(h.rawScale)
	h.FrameRate = p.float32bits(h.rawRate)
	h.parseEvents(p)
	return nil
}

func (h *Header) parseEvents(p procType) {
	n := int(h.EventCount)
	if n > maxEvents {
		n = maxEvents
	}
	h.Events = make([]Event, n)
	for i := range h.Events {
		bits := p.uint32(h.eventBlock[evTimeOff+4*i:])
		h.Events[i] = Event{
			Time:    p.float32bits(bits),
			Label:   p.decodeString(h.eventBlock[evLabelOff+4*i : evLabelOff+4*i+4]),
			Display: h.eventBlock[evFlagOff+i] > 0,
		}
	}
}

// encodeEvents packs up to 18 events into the event sub-block and
// returns the number of events that did not fit. Timings are relative
// to frame 1, labels are truncated or padded to 4 characters.
func (h *Header) encodeEvents(events []Event) (dropped int) {
	n := len(events)
	if n > maxEvents {
		dropped = n - maxEvents
		n = maxEvents
	}

	h.eventBlock = [164]byte{}
	for i, ev := range events[:n] {
		binary.LittleEndian.PutUint32(h.eventBlock[evTimeOff+4*i:], math.Float32bits(ev.Time))
		h.eventBlock[evFlagOff+i] = 1
		var label [4]byte
		copy(label[:], ev.Label)
		for j := len(ev.Label); j < 4; j++ {
			label[j] = ' '
		}
		copy(h.eventBlock[evLabelOff+4*i:], label[:])
	}

	h.LongEventLabels = true
	h.EventCount = uint16(n)
	h.Events = make([]Event, n)
	copy(h.Events, events[:n])
	for i := range h.Events {
		h.Events[i].Display = true
	}
	return dropped
}

// write serializes the header in the Intel layout. Exactly 512 bytes
// are written.
func (h *Header) write(w *wbuf) {
	w.writeU8(h.ParamBlock)
	w.writeU8(magic)
	w.writeU16(h.PointCount)
	w.writeU16(h.AnalogCount)
	w.writeU16(h.FirstFrame)
	w.writeU16(h.LastFrame)
	w.writeU16(h.MaxGap)
	w.writeF32(h.ScaleFactor)
	w.writeU16(h.DataBlock)
	w.writeU16(h.AnalogPerFrame)
	w.writeF32(h.FrameRate)
	w.pad(274)
	switch {
	case h.LongEventLabels:
		w.writeU16(longEventKey)
	default:
		w.writeU16(0)
	}
	w.writeU16(h.EventCount)
	w.writeU16(0)
	w.write(h.eventBlock[:])
	w.pad(44)
}
