// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// c3d-dump decodes and displays C3D motion capture files.
//
// Usage: c3d-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> c3d-dump ./testdata/walk.c3d
//	=== walk.c3d ===
//	processor:    INTEL
//	points:       24
//	analog chans:  6
//	frames:       [1, 100]
//	point rate:   200 Hz
//	analog rate:  400 Hz
//	units:        mm
//	 -- group POINT (id=1) --
//	    USED      int16
//	    RATE      float32
//	 [...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-mocap/c3d"
	"github.com/go-mocap/c3d/internal/mmap"
	"gonum.org/v1/gonum/stat"
)

func main() {
	log.SetPrefix("c3d-dump: ")
	log.SetFlags(0)

	stats := flag.Bool("stats", false, "display point coordinate statistics")

	flag.Usage = func() {
		fmt.Printf(`c3d-dump decodes and displays C3D motion capture files.

Usage: c3d-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> c3d-dump ./testdata/walk.c3d
 === walk.c3d ===
 processor:    INTEL
 points:       24
 analog chans:  6
 frames:       [1, 100]
 point rate:   200 Hz
 analog rate:  400 Hz
 units:        mm
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input C3D file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *stats)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, stats bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not mmap %q: %w", fname, err)
	}
	defer f.Close()

	r, err := c3d.NewReader(io.NewSectionReader(f, 0, int64(f.Len())))
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", fname, err)
	}

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	fmt.Fprintf(wbuf, "processor:    %v\n", r.Processor())
	fmt.Fprintf(wbuf, "points:       %d\n", r.PointUsed())
	fmt.Fprintf(wbuf, "analog chans: %2d\n", r.AnalogUsed())
	fmt.Fprintf(wbuf, "frames:       [%d, %d]\n", r.FirstFrame(), r.LastFrame())
	fmt.Fprintf(wbuf, "point rate:   %g Hz\n", r.PointRate())
	fmt.Fprintf(wbuf, "analog rate:  %g Hz\n", r.AnalogRate())
	fmt.Fprintf(wbuf, "units:        %s\n", r.PointUnits())

	for _, g := range r.Groups() {
		fmt.Fprintf(wbuf, " -- group %s (id=%d) --\n", g.Name, g.ID)
		for _, p := range g.Params() {
			fmt.Fprintf(wbuf, "    %-20s %-8v dims=%v\n", p.Name, p.Kind(), p.Dims())
		}
	}

	if stats {
		err = displayStats(wbuf, r)
		if err != nil {
			return fmt.Errorf("could not compute statistics for %q: %w", fname, err)
		}
	}

	for _, warn := range r.Warnings() {
		fmt.Fprintf(wbuf, "warning: %s\n", warn)
	}
	return nil
}

// displayStats prints the mean and standard deviation of the valid
// samples of each point coordinate axis.
func displayStats(w io.Writer, r *c3d.Reader) error {
	seq, err := r.Frames(c3d.FrameOptions{NoCopy: true})
	if err != nil {
		return err
	}

	var xs, ys, zs []float64
	for seq.Next() {
		for _, pt := range seq.Frame().Points {
			if pt.Residual < 0 {
				continue
			}
			xs = append(xs, float64(pt.X))
			ys = append(ys, float64(pt.Y))
			zs = append(zs, float64(pt.Z))
		}
	}
	if err := seq.Err(); err != nil {
		return err
	}
	if len(xs) == 0 {
		fmt.Fprintf(w, "stats:        no valid samples\n")
		return nil
	}

	for _, axis := range []struct {
		name string
		vs   []float64
	}{
		{"x", xs},
		{"y", ys},
		{"z", zs},
	} {
		fmt.Fprintf(w, "stats %s:      mean=%+.3f std=%.3f\n",
			axis.name, stat.Mean(axis.vs, nil), stat.StdDev(axis.vs, nil),
		)
	}
	return nil
}
