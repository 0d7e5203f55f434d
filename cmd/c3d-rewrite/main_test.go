// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-mocap/c3d"
)

func TestProcess(t *testing.T) {
	tmp, err := os.MkdirTemp("", "c3d-rewrite-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "walk.c3d")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create data file: %+v", err)
	}
	defer f.Close()

	w, err := c3d.NewWriter(100, 200, -0.5)
	if err != nil {
		t.Fatalf("could not create writer: %+v", err)
	}
	w.SetPointLabels([]string{"HIP"})
	w.SetAnalogLabels([]string{"FZ"})
	err = w.AddFrames([]c3d.Frame{
		{
			Points: []c3d.Point{{X: 1, Y: 2, Z: 3, Residual: 0.5, Cameras: 3}},
			Analog: []float32{-1.5, 2.5},
		},
	})
	if err != nil {
		t.Fatalf("could not add frames: %+v", err)
	}
	err = w.Write(f)
	if err != nil {
		t.Fatalf("could not write file: %+v", err)
	}
	_ = f.Close()

	oname := filepath.Join(tmp, "walk-intel.c3d")
	err = process(oname, fname)
	if err != nil {
		t.Fatalf("could not process file: %+v", err)
	}

	out, err := os.Open(oname)
	if err != nil {
		t.Fatalf("could not open output: %+v", err)
	}
	defer out.Close()

	r, err := c3d.NewReader(out)
	if err != nil {
		t.Fatalf("could not decode output: %+v", err)
	}
	if got, want := r.Processor(), c3d.ProcIntel; got != want {
		t.Fatalf("invalid processor: got=%v, want=%v", got, want)
	}
	if got, want := r.PointUsed(), 1; got != want {
		t.Fatalf("invalid point count: got=%d, want=%d", got, want)
	}

	frames, err := r.ReadFrames()
	if err != nil {
		t.Fatalf("could not read frames: %+v", err)
	}
	if got, want := len(frames), 1; got != want {
		t.Fatalf("invalid frame count: got=%d, want=%d", got, want)
	}
	pt := frames[0].Points[0]
	if pt.X != 1 || pt.Y != 2 || pt.Z != 3 {
		t.Fatalf("invalid point: %+v", pt)
	}
	if got, want := pt.Residual, float32(0.5); got != want {
		t.Fatalf("invalid residual: got=%v, want=%v", got, want)
	}
	if got, want := frames[0].Analog, []float32{-1.5, 2.5}; got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("invalid analog: got=%v, want=%v", got, want)
	}
}
