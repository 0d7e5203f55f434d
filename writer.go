// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"io"
	"math"

	"golang.org/x/xerrors"
)

// CopyMode selects how much of a Reader is transferred to a Writer by
// NewWriterFrom.
type CopyMode int

const (
	// Consume moves the header, the groups and the decoded frames,
	// leaving the Reader metadata unusable.
	Consume CopyMode = iota

	// Copy deep copies the header, the groups and the frames.
	Copy

	// CopyMetadata deep copies the header and the groups, but no
	// frames.
	CopyMetadata

	// CopyShallow moves the header and the groups without copying,
	// and reads no frames.
	CopyShallow

	// CopyHeader copies only the header quantities (rates, scale,
	// start frame, events).
	CopyHeader
)

// Writer accumulates frames and metadata and serializes them as an
// Intel format C3D file.
type Writer struct {
	*Manager

	pointRate  float32
	analogRate float32
	pointScale float32
	genScale   float32

	units        string
	pointLabels  []string
	pointDescs   []string
	analogLabels []string
	analogDescs  []string
	scales       []float32
	offsets      []int16
	screenX      string
	screenY      string
	events       []Event
	startFrame   int

	npoints     int // points per frame, fixed by the first frame added
	analogTotal int // analog values per frame, fixed likewise

	frames []Frame
}

// NewWriter returns a Writer for the given point frame rate, analog
// sampling rate and point scale factor. A negative scale selects
// floating point storage. The analog rate must be zero or an integer
// multiple of the point rate.
func NewWriter(pointRate, analogRate, pointScale float32) (*Writer, error) {
	if pointRate <= 0 {
		return nil, xerrors.Errorf("c3d: invalid point rate %g", pointRate)
	}
	perFrame := 0
	if analogRate != 0 {
		ratio := analogRate / pointRate
		perFrame = int(ratio)
		if ratio != float32(perFrame) || perFrame < 1 {
			return nil, xerrors.Errorf("c3d: analog rate %g is not an integer multiple of the point rate %g", analogRate, pointRate)
		}
	}

	h := newHeader()
	h.FrameRate = pointRate
	h.ScaleFactor = pointScale
	h.AnalogPerFrame = uint16(perFrame)

	proc, _ := newProcType(ProcIntel)
	return &Writer{
		Manager:    newManager(h, proc),
		pointRate:  pointRate,
		analogRate: analogRate,
		pointScale: pointScale,
		genScale:   1,
		units:      "mm",
		startFrame: 1,
		npoints:    -1,
	}, nil
}

// NewWriterFrom builds a Writer from a Reader according to the copy
// mode. Modes that transfer parameter payloads require an Intel
// source, since payloads are carried as raw bytes; for DEC and MIPS
// files use CopyHeader and rebuild the metadata.
func NewWriterFrom(r *Reader, mode CopyMode) (*Writer, error) {
	w, err := NewWriter(r.PointRate(), r.AnalogRate(), r.PointScale())
	if err != nil {
		return nil, err
	}
	w.startFrame = r.FirstFrame()
	w.events = append([]Event(nil), r.Header.Events...)
	if units := r.PointUnits(); units != "" {
		w.units = units
	}
	w.screenX, w.screenY = r.ScreenAxes()
	w.pointLabels = r.PointLabels()
	w.analogLabels = r.AnalogLabels()
	if ss, ok := r.GetStrings("POINT:DESCRIPTIONS"); ok {
		w.pointDescs = ss
	}
	if ss, ok := r.GetStrings("ANALOG:DESCRIPTIONS"); ok {
		w.analogDescs = ss
	}

	if mode == CopyHeader {
		return w, nil
	}
	if !r.proc.isIEEE() {
		return nil, xerrors.Errorf("c3d: cannot copy %v parameters as raw bytes, use CopyHeader", r.proc.kind)
	}

	// the source header field may disagree with the parameter derived
	// rates the frame codec uses
	perFrame := w.Header.AnalogPerFrame
	switch mode {
	case Consume, CopyShallow:
		w.Manager.Header = r.Header
		w.Manager.byName = r.byName
		w.Manager.byID = r.byID
		w.Manager.order = r.order
	case Copy, CopyMetadata:
		w.Manager.Header = r.Header.clone()
		for _, g := range r.Groups() {
			w.byName[g.Name] = g.clone()
			w.byID[g.ID] = w.byName[g.Name]
			w.order = append(w.order, g.Name)
		}
	}
	w.Header.AnalogPerFrame = perFrame

	switch mode {
	case Consume, Copy:
		frames, err := r.ReadFrames()
		if err != nil {
			return nil, err
		}
		err = w.AddFrames(frames)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ToWriter is shorthand for NewWriterFrom(r, mode).
func (r *Reader) ToWriter(mode CopyMode) (*Writer, error) {
	return NewWriterFrom(r, mode)
}

// Frames returns the frames buffered so far.
func (w *Writer) Frames() []Frame { return w.frames }

// AddFrames appends frames to the recording. Every frame must carry
// the same number of points and of analog values, and the analog
// values must fill whole per-channel sample runs.
func (w *Writer) AddFrames(frames []Frame) error {
	return w.InsertFrames(frames, len(w.frames))
}

// InsertFrames inserts frames before position at.
func (w *Writer) InsertFrames(frames []Frame, at int) error {
	if at < 0 || at > len(w.frames) {
		return xerrors.Errorf("c3d: frame position %d out of range [0, %d]", at, len(w.frames))
	}
	for _, f := range frames {
		err := w.checkShape(f)
		if err != nil {
			return err
		}
	}
	w.frames = append(w.frames[:at], append(append([]Frame(nil), frames...), w.frames[at:]...)...)
	return nil
}

func (w *Writer) checkShape(f Frame) error {
	if w.npoints < 0 {
		perFrame := int(w.Header.AnalogPerFrame)
		if len(f.Analog) > 0 {
			if perFrame == 0 {
				return xerrors.Errorf("c3d: analog samples without an analog rate: %w", ErrShapeMismatch)
			}
			if len(f.Analog)%perFrame != 0 {
				return xerrors.Errorf("c3d: %d analog values do not fill %d samples per channel: %w",
					len(f.Analog), perFrame, ErrShapeMismatch)
			}
		}
		w.npoints = len(f.Points)
		w.analogTotal = len(f.Analog)
		return nil
	}
	if len(f.Points) != w.npoints || len(f.Analog) != w.analogTotal {
		return xerrors.Errorf("c3d: frame holds %d points and %d analog values, want %d and %d: %w",
			len(f.Points), len(f.Analog), w.npoints, w.analogTotal, ErrShapeMismatch)
	}
	return nil
}

// SetPointLabels sets the marker labels.
func (w *Writer) SetPointLabels(labels []string) { w.pointLabels = labels }

// SetPointDescriptions sets the marker descriptions.
func (w *Writer) SetPointDescriptions(descs []string) { w.pointDescs = descs }

// SetAnalogLabels sets the analog channel labels.
func (w *Writer) SetAnalogLabels(labels []string) { w.analogLabels = labels }

// SetAnalogDescriptions sets the analog channel descriptions.
func (w *Writer) SetAnalogDescriptions(descs []string) { w.analogDescs = descs }

// SetAnalogScales sets the per-channel analog scale factors.
func (w *Writer) SetAnalogScales(scales []float32) { w.scales = scales }

// SetAnalogOffsets sets the per-channel analog offsets.
func (w *Writer) SetAnalogOffsets(offsets []int16) { w.offsets = offsets }

// SetGenScale sets the global analog scale factor.
func (w *Writer) SetGenScale(s float32) { w.genScale = s }

// SetUnits sets the point coordinate unit label.
func (w *Writer) SetUnits(units string) { w.units = units }

// SetStartFrame sets the 1-based index of the first frame.
func (w *Writer) SetStartFrame(n int) { w.startFrame = n }

// SetScreenAxes sets the X and Y screen axis labels, e.g. "+X", "+Z".
func (w *Writer) SetScreenAxes(x, y string) {
	w.screenX = x
	w.screenY = y
}

// SetEvents sets the header events; at most 18 fit in the header.
func (w *Writer) SetEvents(events []Event) { w.events = events }

// nchannels returns the number of analog channels.
func (w *Writer) nchannels() int {
	if per := int(w.Header.AnalogPerFrame); per > 0 && w.analogTotal > 0 {
		return w.analogTotal / per
	}
	return 0
}

// group returns the named group, creating it under the next free
// numeric id when missing.
func (w *Writer) group(name string) *Group {
	if g := w.GetGroup(name); g != nil {
		return g
	}
	var max int8
	for id := range w.byID {
		if id > max {
			max = id
		}
	}
	g, _ := w.AddGroup(max+1, name, "")
	return g
}

func pad(ss []string, n int) []string {
	out := make([]string, n)
	copy(out, ss)
	return out
}

// Write serializes the recording.
func (w *Writer) Write(out io.Writer) error {
	if len(w.frames) == 0 {
		return xerrors.Errorf("c3d: %w", ErrEmptyWrite)
	}

	start := w.startFrame
	if start <= 0 {
		start = 1
	}
	var (
		npoints  = w.npoints
		nchan    = w.nchannels()
		perFrame = int(w.Header.AnalogPerFrame)
		count    = len(w.frames)
		last     = start + count - 1
	)

	point := w.group("POINT")
	point.SetUint16("USED", uint16(npoints))
	point.SetFloat32("SCALE", w.pointScale)
	point.SetFloat32("RATE", w.pointRate)
	point.SetString("UNITS", w.units)
	point.SetStrings("LABELS", pad(w.pointLabels, npoints))
	point.SetStrings("DESCRIPTIONS", pad(w.pointDescs, npoints))
	switch {
	case count >= uint16Max:
		point.SetUint16("FRAMES", uint16Max)
		point.SetFloat32("LONG_FRAMES", float32(count))
	default:
		point.SetUint16("FRAMES", uint16(count))
		// must not survive from a longer recording
		point.RemoveParam("LONG_FRAMES")
	}
	point.SetUint16("DATA_START", 0) // fixed below

	analog := w.group("ANALOG")
	analog.SetUint16("USED", uint16(nchan))
	analog.SetFloat32("RATE", w.analogRate)
	analog.SetFloat32("GEN_SCALE", w.genScale)
	scales := make([]float32, nchan)
	for i := range scales {
		scales[i] = 1
	}
	copy(scales, w.scales)
	analog.SetFloat32s("SCALE", scales)
	analog.SetInt16s("OFFSET", pad16(w.offsets, nchan))
	analog.SetStrings("LABELS", pad(w.analogLabels, nchan))
	analog.SetStrings("DESCRIPTIONS", pad(w.analogDescs, nchan))

	trial := w.group("TRIAL")
	trial.SetUint32("ACTUAL_START_FIELD", uint32(start))
	trial.SetUint32("ACTUAL_END_FIELD", uint32(last))

	if w.screenX != "" || w.screenY != "" {
		point.SetString("X_SCREEN", w.screenX)
		point.SetString("Y_SCREEN", w.screenY)
	}

	blocks := w.parameterBlocks()
	dataBlock := 2 + blocks
	point.SetUint16("DATA_START", uint16(dataBlock))

	h := w.Header
	h.ParamBlock = 2
	h.DataBlock = uint16(dataBlock)
	h.PointCount = uint16(npoints)
	h.AnalogCount = uint16(nchan * perFrame)
	h.FirstFrame = uint16(start)
	if start > uint16Max {
		h.FirstFrame = uint16Max
	}
	h.LastFrame = uint16(last)
	if last > uint16Max {
		h.LastFrame = uint16Max
	}
	h.ScaleFactor = w.pointScale
	h.FrameRate = w.pointRate
	if dropped := h.encodeEvents(w.events); dropped > 0 {
		w.warnf("dropped %d events beyond the header capacity of %d", dropped, maxEvents)
	}

	wb := newWbuf(out)
	h.write(wb)
	w.writeMetadata(wb)
	w.writeFrames(wb)
	wb.padBlock()
	return wb.err
}

func (w *Writer) writeFrames(wb *wbuf) {
	var (
		floatMode = w.pointScale < 0
		scaleMag  = w.pointScale
		nchan     = w.nchannels()
		perFrame  = int(w.Header.AnalogPerFrame)
	)
	if floatMode {
		scaleMag = -scaleMag
	}

	// analog values are stored as raw ADC words, undo the channel
	// transform the reader applies
	gen := w.genScale
	if gen == 0 {
		gen = 1
	}
	scales := make([]float32, nchan)
	for i := range scales {
		scales[i] = 1
	}
	for i, v := range w.scales {
		if i == nchan {
			break
		}
		if v != 0 {
			scales[i] = v
		}
	}
	offsets := make([]float32, nchan)
	for i, v := range w.offsets {
		if i == nchan {
			break
		}
		offsets[i] = float32(v)
	}

	for _, f := range w.frames {
		for _, pt := range f.Points {
			var word int32 = -1
			if pt.Residual >= 0 {
				res := math.RoundToEven(float64(pt.Residual / scaleMag))
				if res > 255 {
					res = 255
				}
				word = int32(res) | (int32(pt.Cameras)&0x7f)<<8
			}
			switch {
			case floatMode:
				wb.writeF32(pt.X)
				wb.writeF32(pt.Y)
				wb.writeF32(pt.Z)
				wb.writeF32(float32(word))
			default:
				wb.writeI16(int16(pt.X / scaleMag))
				wb.writeI16(int16(pt.Y / scaleMag))
				wb.writeI16(int16(pt.Z / scaleMag))
				wb.writeI16(int16(word))
			}
		}
		for samp := 0; samp < perFrame; samp++ {
			for ch := 0; ch < nchan; ch++ {
				v := f.Analog[ch*perFrame+samp]/(scales[ch]*gen) + offsets[ch]
				switch {
				case floatMode:
					wb.writeF32(v)
				default:
					wb.writeI16(int16(v))
				}
			}
		}
	}
}

func pad16(vs []int16, n int) []int16 {
	out := make([]int16, n)
	copy(out, vs)
	return out
}

func (h *Header) clone() *Header {
	c := *h
	c.Events = append([]Event(nil), h.Events...)
	return &c
}

func (g *Group) clone() *Group {
	c := newGroup(g.ID, g.Name, g.Desc, g.proc)
	c.order = append([]string(nil), g.order...)
	for key, p := range g.params {
		c.params[key] = p.clone()
	}
	return c
}

func (p *Param) clone() *Param {
	c := *p
	c.dims = append([]uint8(nil), p.dims...)
	c.data = append([]byte(nil), p.data...)
	return &c
}
