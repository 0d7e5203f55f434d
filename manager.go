// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/xerrors"
)

// Manager owns the header and the group directory of a file and
// derives the quantities the frame codec needs from them. Groups are
// addressable both by name and by numeric id.
type Manager struct {
	Header *Header

	byName map[string]*Group
	byID   map[int8]*Group
	order  []string

	proc     procType
	warnings []string
}

func newManager(h *Header, proc procType) *Manager {
	return &Manager{
		Header: h,
		byName: make(map[string]*Group),
		byID:   make(map[int8]*Group),
		proc:   proc,
	}
}

func (m *Manager) warnf(format string, args ...interface{}) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the non-fatal inconsistencies found so far, in the
// order they were detected.
func (m *Manager) Warnings() []string { return m.warnings }

// Groups returns all groups in insertion order.
func (m *Manager) Groups() []*Group {
	gs := make([]*Group, 0, len(m.order))
	for _, name := range m.order {
		gs = append(gs, m.byName[name])
	}
	return gs
}

// GetGroup returns the named group, or nil. Lookup is case
// insensitive.
func (m *Manager) GetGroup(name string) *Group {
	return m.byName[strings.ToUpper(name)]
}

// GetGroupByID returns the group with the given numeric id, or nil.
func (m *Manager) GetGroupByID(id int8) *Group {
	return m.byID[id]
}

// AddGroup creates a group with the given id and name.
func (m *Manager) AddGroup(id int8, name, desc string) (*Group, error) {
	if id <= 0 {
		return nil, xerrors.Errorf("c3d: invalid group id %d", id)
	}
	key := strings.ToUpper(name)
	if _, dup := m.byName[key]; dup {
		return nil, xerrors.Errorf("c3d: group %q already exists: %w", name, ErrDuplicateKey)
	}
	if _, dup := m.byID[id]; dup {
		return nil, xerrors.Errorf("c3d: group id %d already exists: %w", id, ErrDuplicateKey)
	}
	g := newGroup(id, key, desc, m.proc)
	m.byName[key] = g
	m.byID[id] = g
	m.order = append(m.order, key)
	return g, nil
}

// RemoveGroup drops the named group, if present.
func (m *Manager) RemoveGroup(name string) {
	key := strings.ToUpper(name)
	g, ok := m.byName[key]
	if !ok {
		return
	}
	delete(m.byName, key)
	delete(m.byID, g.ID)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// RemoveGroupByID drops the group with the given id, if present.
func (m *Manager) RemoveGroupByID(id int8) {
	if g, ok := m.byID[id]; ok {
		m.RemoveGroup(g.Name)
	}
}

// RenameGroup gives an existing group a new name.
func (m *Manager) RenameGroup(name, to string) error {
	key := strings.ToUpper(name)
	g, ok := m.byName[key]
	if !ok {
		return xerrors.Errorf("c3d: no group %q", name)
	}
	newKey := strings.ToUpper(to)
	if _, dup := m.byName[newKey]; dup && newKey != key {
		return xerrors.Errorf("c3d: group %q already exists: %w", to, ErrDuplicateKey)
	}
	delete(m.byName, key)
	g.Name = newKey
	m.byName[newKey] = g
	for i, k := range m.order {
		if k == key {
			m.order[i] = newKey
			break
		}
	}
	return nil
}

// RenumberGroup moves an existing group to a new numeric id.
func (m *Manager) RenumberGroup(name string, id int8) error {
	g := m.GetGroup(name)
	if g == nil {
		return xerrors.Errorf("c3d: no group %q", name)
	}
	if id <= 0 {
		return xerrors.Errorf("c3d: invalid group id %d", id)
	}
	if other, dup := m.byID[id]; dup && other != g {
		return xerrors.Errorf("c3d: group id %d already exists: %w", id, ErrDuplicateKey)
	}
	delete(m.byID, g.ID)
	g.ID = id
	m.byID[id] = g
	return nil
}

// GetParam resolves a "GROUP:PARAM" or "GROUP.PARAM" key, or returns
// nil when either part is missing.
func (m *Manager) GetParam(key string) *Param {
	i := strings.IndexAny(key, ":.")
	if i < 0 {
		return nil
	}
	g := m.GetGroup(key[:i])
	if g == nil {
		return nil
	}
	return g.Get(key[i+1:])
}

// GetUint16 resolves a parameter key to a 16-bit scalar.
func (m *Manager) GetUint16(key string) (uint16, bool) {
	p := m.GetParam(key)
	if p == nil {
		return 0, false
	}
	v, err := p.Uint16()
	return v, err == nil
}

// GetFloat resolves a parameter key to a numeric scalar.
func (m *Manager) GetFloat(key string) (float64, bool) {
	p := m.GetParam(key)
	if p == nil {
		return 0, false
	}
	v, err := p.Float()
	return v, err == nil
}

// GetString resolves a parameter key to its trimmed text payload.
func (m *Manager) GetString(key string) (string, bool) {
	p := m.GetParam(key)
	if p == nil {
		return "", false
	}
	return trimSpace(p.String()), true
}

// GetStrings resolves a parameter key to a string array.
func (m *Manager) GetStrings(key string) ([]string, bool) {
	p := m.GetParam(key)
	if p == nil {
		return nil, false
	}
	ss, err := p.Strings()
	return ss, err == nil
}

// PointUsed returns the number of points per frame.
func (m *Manager) PointUsed() int {
	if p := m.GetParam("POINT:USED"); p != nil {
		if v, err := p.Int(); err == nil {
			return v
		}
	}
	return int(m.Header.PointCount)
}

// PointRate returns the point frame rate in Hz.
func (m *Manager) PointRate() float32 {
	if p := m.GetParam("POINT:RATE"); p != nil {
		if v, err := p.Float(); err == nil {
			return float32(v)
		}
	}
	return m.Header.FrameRate
}

// PointScale returns the point scale factor; a negative value means
// coordinates are stored as floats.
func (m *Manager) PointScale() float32 {
	if p := m.GetParam("POINT:SCALE"); p != nil {
		if v, err := p.Float(); err == nil {
			return float32(v)
		}
	}
	return m.Header.ScaleFactor
}

// AnalogUsed returns the number of analog channels.
func (m *Manager) AnalogUsed() int {
	if p := m.GetParam("ANALOG:USED"); p != nil {
		if v, err := p.Int(); err == nil {
			return v
		}
	}
	if m.Header.AnalogPerFrame > 0 {
		return int(m.Header.AnalogCount) / int(m.Header.AnalogPerFrame)
	}
	return 0
}

// AnalogRate returns the analog sampling rate in Hz.
func (m *Manager) AnalogRate() float32 {
	if p := m.GetParam("ANALOG:RATE"); p != nil {
		if v, err := p.Float(); err == nil {
			return float32(v)
		}
	}
	return float32(m.Header.AnalogPerFrame) * m.PointRate()
}

// AnalogPerFrame returns the number of analog samples per channel in
// one point frame.
func (m *Manager) AnalogPerFrame() int {
	if rate := m.PointRate(); rate > 0 {
		if n := int(m.AnalogRate() / rate); n > 0 {
			return n
		}
	}
	return 1
}

// AnalogSampleCount returns the total number of analog samples per
// channel over the whole recording.
func (m *Manager) AnalogSampleCount() int {
	return m.FrameCount() * m.AnalogPerFrame()
}

// FirstFrame returns the 1-based index of the first stored frame,
// preferring the TRIAL counters over the 16-bit header field.
func (m *Manager) FirstFrame() int {
	if p := m.GetParam("TRIAL:ACTUAL_START_FIELD"); p != nil {
		if v, err := p.Uint32(); err == nil {
			return int(v)
		}
	}
	return int(m.Header.FirstFrame)
}

// LastFrame returns the 1-based index of the last stored frame. The
// header pair is trusted only when it is strictly increasing and not
// saturated; otherwise the largest of the candidate counters wins.
func (m *Manager) LastFrame() int {
	hlf := int(m.Header.LastFrame)
	if int(m.Header.FirstFrame) < hlf && hlf != uint16Max {
		return hlf
	}
	end := hlf
	if p := m.GetParam("TRIAL:ACTUAL_END_FIELD"); p != nil {
		if v, err := p.Uint32(); err == nil && int(v) > end {
			end = int(v)
		}
	}
	if p := m.GetParam("POINT:LONG_FRAMES"); p != nil {
		if v, ok := p.asFrameCount(); ok && v > end {
			end = v
		}
	}
	if p := m.GetParam("POINT:FRAMES"); p != nil {
		if v, ok := p.asFrameCount(); ok && v > end {
			end = v
		}
	}
	return end
}

// FrameCount returns the number of stored frames.
func (m *Manager) FrameCount() int {
	return m.LastFrame() - m.FirstFrame() + 1
}

// PointLabels returns the marker labels, padded or truncated to the
// number of used points.
func (m *Manager) PointLabels() []string {
	return m.labels("POINT:LABELS", m.PointUsed())
}

// AnalogLabels returns the analog channel labels, padded or truncated
// to the number of used channels.
func (m *Manager) AnalogLabels() []string {
	return m.labels("ANALOG:LABELS", m.AnalogUsed())
}

func (m *Manager) labels(key string, n int) []string {
	out := make([]string, n)
	if p := m.GetParam(key); p != nil {
		if ss, err := p.Strings(); err == nil {
			copy(out, ss)
		}
	}
	for i, s := range out {
		if s == "" {
			out[i] = fmt.Sprintf("M%03d", i+1)
		}
	}
	return out
}

// ScreenAxes returns the X and Y screen axis labels, or empty strings.
func (m *Manager) ScreenAxes() (x, y string) {
	if p := m.GetParam("POINT:X_SCREEN"); p != nil {
		x = trimSpace(p.String())
	}
	if p := m.GetParam("POINT:Y_SCREEN"); p != nil {
		y = trimSpace(p.String())
	}
	return x, y
}

// PointUnits returns the unit label of the point coordinates.
func (m *Manager) PointUnits() string {
	if p := m.GetParam("POINT:UNITS"); p != nil {
		return trimSpace(p.String())
	}
	return ""
}

// analogXform is the per-channel affine transform applied to raw
// analog words.
type analogXform struct {
	genScale float32
	scales   []float32
	offsets  []float32
	unsigned bool
}

// analogTransform collects the ANALOG transform parameters, padded
// with identity values when they cover fewer channels than used.
func (m *Manager) analogTransform() analogXform {
	used := m.AnalogUsed()
	xf := analogXform{
		genScale: 1,
		scales:   make([]float32, used),
		offsets:  make([]float32, used),
	}
	for i := range xf.scales {
		xf.scales[i] = 1
	}

	if p := m.GetParam("ANALOG:FORMAT"); p != nil {
		xf.unsigned = strings.EqualFold(trimSpace(p.String()), "UNSIGNED")
	}
	if p := m.GetParam("ANALOG:GEN_SCALE"); p != nil {
		if v, err := p.Float(); err == nil {
			xf.genScale = float32(v)
		}
	}
	if p := m.GetParam("ANALOG:SCALE"); p != nil {
		if vs, err := p.Float32s(); err == nil {
			copy(xf.scales, vs)
		}
	}
	if p := m.GetParam("ANALOG:OFFSET"); p != nil {
		switch {
		case xf.unsigned:
			vs, err := p.Uint16s()
			if err == nil {
				for i, v := range vs {
					if i == used {
						break
					}
					xf.offsets[i] = float32(v)
				}
			}
		default:
			vs, err := p.Int16s()
			if err == nil {
				for i, v := range vs {
					if i == used {
						break
					}
					xf.offsets[i] = float32(v)
				}
			}
		}
	}
	return xf
}

// parameterBlocks returns the number of 512-byte blocks the parameter
// section occupies, preamble included.
func (m *Manager) parameterBlocks() int {
	n := 4
	for _, name := range m.order {
		n += m.byName[name].binarySize()
	}
	return (n + blockSize - 1) / blockSize
}

// checkMetadata records a warning for every disagreement between the
// header fields and the equivalent parameters.
func (m *Manager) checkMetadata() {
	if p := m.GetParam("POINT:USED"); p != nil {
		if v, err := p.Int(); err == nil && v != int(m.Header.PointCount) {
			m.warnf("point count mismatch (header=%d, POINT:USED=%d)", m.Header.PointCount, v)
		}
	}
	if p := m.GetParam("POINT:SCALE"); p != nil {
		if v, err := p.Float(); err == nil && !closeEnough(float32(v), m.Header.ScaleFactor) {
			m.warnf("scale factor mismatch (header=%g, POINT:SCALE=%g)", m.Header.ScaleFactor, v)
		}
	}
	if p := m.GetParam("POINT:RATE"); p != nil {
		if v, err := p.Float(); err == nil && !closeEnough(float32(v), m.Header.FrameRate) {
			m.warnf("frame rate mismatch (header=%g, POINT:RATE=%g)", m.Header.FrameRate, v)
		}
	}
	if used, per := m.AnalogUsed(), m.AnalogPerFrame(); used*per != int(m.Header.AnalogCount) {
		m.warnf("analog count mismatch (header=%d, %d channels x %d samples)",
			m.Header.AnalogCount, used, per)
	}
	if p := m.GetParam("POINT:DATA_START"); p != nil {
		if v, err := p.Int(); err == nil && v != int(m.Header.DataBlock) {
			m.warnf("data start mismatch (header=%d, POINT:DATA_START=%d)", m.Header.DataBlock, v)
		}
	}
	if m.PointUsed() > 0 && m.GetParam("POINT:LABELS") == nil {
		m.warnf("no POINT:LABELS parameter")
	}
}

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-4*math.Max(1, math.Abs(float64(b)))
}

// writeMetadata serializes the parameter section: the 4-byte preamble,
// every group record and zero padding to the block boundary.
func (m *Manager) writeMetadata(w *wbuf) {
	w.writeU8(0)
	w.writeU8(0)
	w.writeU8(uint8(m.parameterBlocks()))
	w.writeU8(uint8(ProcIntel))
	for _, name := range m.order {
		m.byName[name].write(w)
	}
	w.padBlock()
}
