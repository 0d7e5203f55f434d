// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-mocap/c3d"
)

func newTestShell(t *testing.T) (*shell, *strings.Builder) {
	t.Helper()

	w, err := c3d.NewWriter(100, 0, -1)
	if err != nil {
		t.Fatalf("could not create writer: %+v", err)
	}
	w.SetPointLabels([]string{"HIP", "KNEE"})
	err = w.AddFrames([]c3d.Frame{
		{Points: []c3d.Point{{X: 1}, {Y: 2}}},
	})
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

	out := new(strings.Builder)
	return &shell{r: r, w: out}, out
}

func TestShell(t *testing.T) {
	for _, tc := range []struct {
		cmds []string
		want string
		err  string
	}{
		{
			cmds: []string{"groups"},
			want: "POINT (id=1)",
		},
		{
			cmds: []string{"params POINT"},
			want: "RATE",
		},
		{
			cmds: []string{"get POINT:RATE"},
			want: "POINT:RATE float32 dims=[] value=100",
		},
		{
			cmds: []string{"get POINT:UNITS"},
			want: `value="mm"`,
		},
		{
			cmds: []string{"get POINT:LABELS"},
			want: `value=["HIP" "KNEE"]`,
		},
		{
			cmds: []string{"set POINT:UNITS m", "get POINT:UNITS"},
			want: `value="m"`,
		},
		{
			cmds: []string{"rename POINT MARKERS", "groups"},
			want: "MARKERS (id=1)",
		},
		{
			cmds: []string{"rm POINT:UNITS", "get POINT:UNITS"},
			err:  `no parameter "POINT:UNITS"`,
		},
		{
			cmds: []string{"get POINT:NOPE"},
			err:  `no parameter "POINT:NOPE"`,
		},
		{
			cmds: []string{"bogus"},
			err:  `unknown command "bogus", try "help"`,
		},
		{
			cmds: []string{"params"},
			err:  "usage: params GROUP",
		},
	} {
		t.Run(strings.Join(tc.cmds, ";"), func(t *testing.T) {
			sh, out := newTestShell(t)

			var err error
			for _, cmd := range tc.cmds {
				err = sh.run(cmd)
			}
			switch {
			case tc.err != "":
				if err == nil {
					t.Fatalf("expected an error")
				}
				if got, want := err.Error(), tc.err; got != want {
					t.Fatalf("invalid error:\ngot= %s\nwant=%s", got, want)
				}
			default:
				if err != nil {
					t.Fatalf("could not run %q: %+v", tc.cmds, err)
				}
				if !strings.Contains(out.String(), tc.want) {
					t.Fatalf("missing %q in output:\n%s", tc.want, out.String())
				}
			}
		})
	}
}

func TestShellQuit(t *testing.T) {
	sh, _ := newTestShell(t)
	if err := sh.run("quit"); err != errQuit {
		t.Fatalf("invalid error: got=%v, want=%v", err, errQuit)
	}
}

func TestShellSave(t *testing.T) {
	tmp, err := os.MkdirTemp("", "c3d-meta-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	sh, _ := newTestShell(t)
	err = sh.run("set POINT:UNITS m")
	if err != nil {
		t.Fatalf("could not set units: %+v", err)
	}

	oname := filepath.Join(tmp, "out.c3d")
	err = sh.run("save " + oname)
	if err != nil {
		t.Fatalf("could not save: %+v", err)
	}

	f, err := os.Open(oname)
	if err != nil {
		t.Fatalf("could not open output: %+v", err)
	}
	defer f.Close()

	r, err := c3d.NewReader(f)
	if err != nil {
		t.Fatalf("could not decode output: %+v", err)
	}
	if got, want := r.PointUnits(), "m"; got != want {
		t.Fatalf("invalid units: got=%q, want=%q", got, want)
	}
}
