// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// c3d2csv converts the frame data of a C3D file to a CSV table.
//
// Usage: c3d2csv [OPTIONS] FILE.c3d
//
// Example:
//
//	$> c3d2csv -o out.csv ./testdata/walk.c3d
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-mocap/c3d"
	"github.com/go-mocap/c3d/internal/xcnv"
	"go-hep.org/x/hep/csvutil"
)

func main() {
	log.SetPrefix("c3d2csv: ")
	log.SetFlags(0)

	oname := flag.String("o", "", "path to output CSV file")

	flag.Usage = func() {
		fmt.Printf(`c3d2csv converts the frame data of a C3D file to a CSV table.

Usage: c3d2csv [OPTIONS] FILE.c3d

Example:

 $> c3d2csv -o out.csv ./testdata/walk.c3d

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing path to input C3D file")
	}

	fname := flag.Arg(0)
	if *oname == "" {
		*oname = strings.TrimSuffix(fname, ".c3d") + ".csv"
	}

	err := process(*oname, fname)
	if err != nil {
		log.Fatalf("could not convert %q: %+v", fname, err)
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
	for _, warn := range r.Warnings() {
		log.Printf("warning: %s", warn)
	}

	tbl, err := csvutil.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", oname, err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = ','

	err = xcnv.C3D2CSV(tbl, r, log.Default())
	if err != nil {
		return fmt.Errorf("could not convert: %w", err)
	}

	err = tbl.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", oname, err)
	}
	return nil
}
