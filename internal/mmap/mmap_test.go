// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	dir, err := os.MkdirTemp("", "mmap-")
	if err != nil {
		t.Fatalf("could not create tmpdir: %+v", err)
	}
	defer os.RemoveAll(dir)

	fname := filepath.Join(dir, "data.bin")
	want := []byte("hello mmap")
	err = os.WriteFile(fname, want, 0644)
	if err != nil {
		t.Fatalf("could not create data file: %+v", err)
	}

	h, err := Open(fname)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}
	defer h.Close()

	if got, want := h.Len(), len(want); got != want {
		t.Fatalf("invalid length: got=%d, want=%d", got, want)
	}
	if got, want := h.At(0), byte('h'); got != want {
		t.Fatalf("invalid byte: got=%q, want=%q", got, want)
	}

	got := make([]byte, len(want))
	n, err := h.ReadAt(got, 0)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if n != len(want) || string(got) != string(want) {
		t.Fatalf("invalid read: got=%q, want=%q", got, want)
	}

	_, err = h.ReadAt(got, int64(len(want)+1))
	if err == nil {
		t.Fatalf("expected an error for an out of range offset")
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close: %+v", err)
	}
	_, err = h.ReadAt(got, 0)
	if err != errClosed {
		t.Fatalf("invalid error: got=%v, want=%v", err, errClosed)
	}
}

func TestReadAtShort(t *testing.T) {
	h := &Handle{data: []byte("abc")}

	buf := make([]byte, 5)
	n, err := h.ReadAt(buf, 1)
	if err != io.EOF {
		t.Fatalf("invalid error: got=%v, want=%v", err, io.EOF)
	}
	if n != 2 || string(buf[:n]) != "bc" {
		t.Fatalf("invalid read: n=%d buf=%q", n, buf[:n])
	}
}
