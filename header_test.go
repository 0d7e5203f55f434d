// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	want := newHeader()
	want.PointCount = 24
	want.AnalogCount = 12
	want.FirstFrame = 1
	want.LastFrame = 100
	want.MaxGap = 10
	want.ScaleFactor = -0.1
	want.DataBlock = 5
	want.AnalogPerFrame = 2
	want.FrameRate = 200
	want.encodeEvents([]Event{
		{Time: 0.5, Label: "RHS"},
		{Time: 1.25, Label: "LTO"},
	})

	buf := new(bytes.Buffer)
	wb := newWbuf(buf)
	want.write(wb)
	if wb.err != nil {
		t.Fatalf("could not write header: %+v", wb.err)
	}
	if got, want := buf.Len(), blockSize; got != want {
		t.Fatalf("invalid header size: got=%d, want=%d", got, want)
	}

	var got Header
	err := got.read(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	if err != nil {
		t.Fatalf("could not read header: %+v", err)
	}
	intel, _ := newProcType(ProcIntel)
	err = got.processorConvert(intel, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("could not convert header: %+v", err)
	}

	if got.PointCount != want.PointCount ||
		got.AnalogCount != want.AnalogCount ||
		got.FirstFrame != want.FirstFrame ||
		got.LastFrame != want.LastFrame ||
		got.MaxGap != want.MaxGap ||
		got.DataBlock != want.DataBlock ||
		got.AnalogPerFrame != want.AnalogPerFrame {
		t.Fatalf("invalid header:\ngot= %#v\nwant=%#v", got, *want)
	}
	if got.ScaleFactor != want.ScaleFactor || got.FrameRate != want.FrameRate {
		t.Fatalf("invalid floats: got=(%v, %v), want=(%v, %v)",
			got.ScaleFactor, got.FrameRate, want.ScaleFactor, want.FrameRate)
	}
	if !got.LongEventLabels {
		t.Fatalf("long event labels flag not set")
	}
	if len(got.Events) != 2 {
		t.Fatalf("invalid events: %#v", got.Events)
	}
	for i, ev := range []Event{
		{Time: 0.5, Label: "RHS ", Display: true},
		{Time: 1.25, Label: "LTO ", Display: true},
	} {
		if got.Events[i] != ev {
			t.Fatalf("invalid event %d:\ngot= %#v\nwant=%#v", i, got.Events[i], ev)
		}
	}
}

func TestHeaderEventsOverflow(t *testing.T) {
	h := newHeader()
	events := make([]Event, maxEvents+3)
	for i := range events {
		events[i].Label = "EV"
	}
	if got, want := h.encodeEvents(events), 3; got != want {
		t.Fatalf("invalid dropped count: got=%d, want=%d", got, want)
	}
	if got, want := int(h.EventCount), maxEvents; got != want {
		t.Fatalf("invalid event count: got=%d, want=%d", got, want)
	}
}

func TestHeaderBadMagic(t *testing.T) {
	raw := make([]byte, blockSize)
	raw[0] = 2
	raw[1] = 0x42

	var h Header
	err := h.read(bytes.NewReader(raw), binary.LittleEndian)
	if err == nil {
		t.Fatalf("expected an error for a bad magic byte")
	}
	if !errors.Is(err, ErrMagic) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrMagic)
	}
	if got, want := err.Error(), "c3d: invalid magic byte (got=0x42, want=0x50): c3d: invalid magic byte"; got != want {
		t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
	}
}

func TestHeaderShort(t *testing.T) {
	var h Header
	err := h.read(bytes.NewReader(make([]byte, 100)), binary.LittleEndian)
	if err == nil {
		t.Fatalf("expected an error for a truncated header")
	}
}
