// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// c3d-rewrite re-encodes C3D files in the Intel processor format.
//
// DEC and MIPS files are decoded and rebuilt from scratch; Intel files
// keep their metadata as-is. Files are processed concurrently.
//
// Usage: c3d-rewrite [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> c3d-rewrite -outdir ./intel ./testdata/*.c3d
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-mocap/c3d"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("c3d-rewrite: ")
	log.SetFlags(0)

	var (
		outdir = flag.String("outdir", ".", "directory for the rewritten files")
		nproc  = flag.Int("j", runtime.NumCPU(), "number of files to process concurrently")
	)

	flag.Usage = func() {
		fmt.Printf(`c3d-rewrite re-encodes C3D files in the Intel processor format.

Usage: c3d-rewrite [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> c3d-rewrite -outdir ./intel ./testdata/*.c3d

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input C3D file")
	}

	err := os.MkdirAll(*outdir, 0755)
	if err != nil {
		log.Fatalf("could not create output directory: %+v", err)
	}

	grp := new(errgroup.Group)
	grp.SetLimit(*nproc)
	for _, fname := range flag.Args() {
		fname := fname
		grp.Go(func() error {
			oname := filepath.Join(*outdir, filepath.Base(fname))
			err := process(oname, fname)
			if err != nil {
				return fmt.Errorf("could not rewrite %q: %w", fname, err)
			}
			log.Printf("rewrote %q to %q", fname, oname)
			return nil
		})
	}
	err = grp.Wait()
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func process(oname, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	r, err := c3d.NewReader(f)
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", fname, err)
	}

	var w *c3d.Writer
	switch r.Processor() {
	case c3d.ProcIntel:
		w, err = r.ToWriter(c3d.Consume)
		if err != nil {
			return fmt.Errorf("could not prepare writer: %w", err)
		}
	default:
		// metadata payloads cannot be carried over as raw bytes,
		// rebuild them from the decoded quantities.
		w, err = r.ToWriter(c3d.CopyHeader)
		if err != nil {
			return fmt.Errorf("could not prepare writer: %w", err)
		}
		frames, err := r.ReadFrames()
		if err != nil {
			return fmt.Errorf("could not read frames: %w", err)
		}
		err = w.AddFrames(frames)
		if err != nil {
			return fmt.Errorf("could not add frames: %w", err)
		}
	}

	out, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", oname, err)
	}
	defer out.Close()

	err = w.Write(out)
	if err != nil {
		return fmt.Errorf("could not encode %q: %w", oname, err)
	}
	return out.Close()
}
