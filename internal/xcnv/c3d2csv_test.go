// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-mocap/c3d"
	"go-hep.org/x/hep/csvutil"
)

func TestC3D2CSV(t *testing.T) {
	dir, err := os.MkdirTemp("", "xcnv-")
	if err != nil {
		t.Fatalf("could not create tmpdir: %+v", err)
	}
	defer os.RemoveAll(dir)

	w, err := c3d.NewWriter(100, 200, -1)
	if err != nil {
		t.Fatalf("could not create writer: %+v", err)
	}
	w.SetPointLabels([]string{"HIP", "KNEE"})
	w.SetAnalogLabels([]string{"FZ"})

	var frames []c3d.Frame
	for i := 0; i < 3; i++ {
		frames = append(frames, c3d.Frame{
			Points: []c3d.Point{
				{X: float32(i), Y: 1, Z: 2},
				{X: 3, Y: 4, Z: float32(i)},
			},
			Analog: []float32{float32(10 * i), float32(10*i + 1)},
		})
	}
	err = w.AddFrames(frames)
	if err != nil {
		t.Fatalf("could not add frames: %+v", err)
	}

	raw := new(bytes.Buffer)
	err = w.Write(raw)
	if err != nil {
		t.Fatalf("could not write file: %+v", err)
	}

	r, err := c3d.NewReader(bytes.NewReader(raw.Bytes()))
	if err != nil {
		t.Fatalf("could not read file back: %+v", err)
	}

	fname := filepath.Join(dir, "out.csv")
	tbl, err := csvutil.Create(fname)
	if err != nil {
		t.Fatalf("could not create CSV table: %+v", err)
	}
	tbl.Writer.Comma = ','

	err = C3D2CSV(tbl, r, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not convert: %+v", err)
	}
	err = tbl.Close()
	if err != nil {
		t.Fatalf("could not close CSV table: %+v", err)
	}

	out, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read CSV: %+v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if got, want := len(lines), 1+3; got != want {
		t.Fatalf("invalid number of lines: got=%d, want=%d\n%s", got, want, out)
	}
	if got, want := lines[0], "frame,HIP.x,HIP.y,HIP.z,HIP.err,KNEE.x,KNEE.y,KNEE.z,KNEE.err,FZ.0,FZ.1"; got != want {
		t.Fatalf("invalid header:\ngot= %q\nwant=%q", got, want)
	}
	if !strings.HasPrefix(lines[1], "1,0,1,2,0,3,4,0,0,0,1") {
		t.Fatalf("invalid first row: %q", lines[1])
	}
}
