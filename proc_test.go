// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"errors"
	"testing"
)

func TestProcessorKind(t *testing.T) {
	for _, tc := range []struct {
		kind ProcessorKind
		want string
	}{
		{ProcIntel, "INTEL"},
		{ProcDEC, "DEC"},
		{ProcMIPS, "MIPS"},
		{ProcessorKind(99), "INVALID"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Fatalf("invalid name: got=%q, want=%q", got, tc.want)
			}
		})
	}

	if ProcDEC.Native() {
		t.Fatalf("DEC floats can not be native")
	}
	if ProcIntel.Native() == ProcMIPS.Native() {
		t.Fatalf("INTEL and MIPS can not both match the host order")
	}
}

func TestNewProcType(t *testing.T) {
	for _, kind := range []ProcessorKind{ProcIntel, ProcDEC, ProcMIPS} {
		_, err := newProcType(kind)
		if err != nil {
			t.Fatalf("could not resolve %v: %+v", kind, err)
		}
	}

	_, err := newProcType(ProcessorKind(42))
	if err == nil {
		t.Fatalf("expected an error for an unknown processor byte")
	}
	if !errors.Is(err, ErrProcessor) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrProcessor)
	}
	if got, want := err.Error(), "c3d: unknown processor byte 0x2a: c3d: unsupported processor"; got != want {
		t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
	}
}

func TestDecodeFloat(t *testing.T) {
	intel, _ := newProcType(ProcIntel)
	dec, _ := newProcType(ProcDEC)
	mips, _ := newProcType(ProcMIPS)

	for _, tc := range []struct {
		name string
		proc procType
		raw  []byte
		want float32
	}{
		{"intel-one", intel, []byte{0x00, 0x00, 0x80, 0x3f}, 1.0},
		{"mips-one", mips, []byte{0x3f, 0x80, 0x00, 0x00}, 1.0},
		{"dec-one", dec, []byte{0x80, 0x40, 0x00, 0x00}, 1.0},
		{"dec-hundred", dec, []byte{0xc8, 0x43, 0x00, 0x00}, 100.0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.proc.float32(tc.raw); got != tc.want {
				t.Fatalf("invalid float: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestDecodeString(t *testing.T) {
	proc, _ := newProcType(ProcIntel)

	if got, want := proc.decodeString([]byte("POINT")), "POINT"; got != want {
		t.Fatalf("invalid string: got=%q, want=%q", got, want)
	}
	// Latin-1 bytes that are not valid UTF-8
	if got, want := proc.decodeString([]byte{'m', 0xb5, 'm'}), "mµm"; got != want {
		t.Fatalf("invalid string: got=%q, want=%q", got, want)
	}
}
