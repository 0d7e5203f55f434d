// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv converts motion capture data between file formats.
package xcnv

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-mocap/c3d"
	"go-hep.org/x/hep/csvutil"
)

// C3D2CSV writes one CSV row per frame: the frame index, then x, y,
// z and residual for every point, then every analog sample of the
// frame in channel major order.
func C3D2CSV(tbl *csvutil.Table, r *c3d.Reader, msg *log.Logger) error {
	var (
		points = r.PointLabels()
		analog = r.AnalogLabels()
		per    = r.AnalogPerFrame()
	)

	cols := []string{"frame"}
	for _, label := range points {
		cols = append(cols,
			label+".x", label+".y", label+".z", label+".err",
		)
	}
	for _, label := range analog {
		for s := 0; s < per; s++ {
			cols = append(cols, fmt.Sprintf("%s.%d", label, s))
		}
	}
	err := tbl.WriteHeader(strings.Join(cols, string(tbl.Writer.Comma)) + "\n")
	if err != nil {
		return fmt.Errorf("could not write CSV header: %w", err)
	}

	seq, err := r.Frames(c3d.FrameOptions{NoCopy: true})
	if err != nil {
		return fmt.Errorf("could not decode frames: %w", err)
	}

	row := make([]interface{}, 0, len(cols))
	for seq.Next() {
		frame := seq.Frame()
		if n := frame.Index - r.FirstFrame(); n%100 == 0 {
			msg.Printf("processing frame %d...", frame.Index)
		}

		row = row[:0]
		row = append(row, frame.Index)
		for _, pt := range frame.Points {
			row = append(row, pt.X, pt.Y, pt.Z, pt.Residual)
		}
		for _, v := range frame.Analog {
			row = append(row, v)
		}
		err = tbl.WriteRow(row...)
		if err != nil {
			return fmt.Errorf("could not write frame %d: %w", frame.Index, err)
		}
	}
	if err := seq.Err(); err != nil {
		return fmt.Errorf("could not decode frames: %w", err)
	}
	return nil
}
