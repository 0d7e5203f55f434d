// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/xerrors"
)

// Group is a named set of parameters. Parameter insertion order is
// preserved so a file can be re-serialized the way it was read.
type Group struct {
	ID   int8 // positive group id, written negated on the wire
	Name string
	Desc string

	params map[string]*Param
	order  []string
	proc   procType
}

func newGroup(id int8, name, desc string, proc procType) *Group {
	return &Group{
		ID:     id,
		Name:   name,
		Desc:   desc,
		params: make(map[string]*Param),
		proc:   proc,
	}
}

// Params returns the group's parameters in insertion order.
func (g *Group) Params() []*Param {
	ps := make([]*Param, 0, len(g.order))
	for _, name := range g.order {
		ps = append(ps, g.params[name])
	}
	return ps
}

// Get returns the named parameter, or nil. Lookup is case
// insensitive.
func (g *Group) Get(name string) *Param {
	return g.params[strings.ToUpper(name)]
}

// AddParam adds a parameter to the group.
func (g *Group) AddParam(p *Param) error {
	key := strings.ToUpper(p.Name)
	if _, dup := g.params[key]; dup {
		return xerrors.Errorf("c3d: parameter %s:%s already exists: %w", g.Name, p.Name, ErrDuplicateKey)
	}
	g.params[key] = p
	g.order = append(g.order, key)
	return nil
}

// RemoveParam drops the named parameter, if present.
func (g *Group) RemoveParam(name string) {
	key := strings.ToUpper(name)
	if _, ok := g.params[key]; !ok {
		return
	}
	delete(g.params, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// RenameParam gives an existing parameter a new name.
func (g *Group) RenameParam(name, to string) error {
	key := strings.ToUpper(name)
	p, ok := g.params[key]
	if !ok {
		return xerrors.Errorf("c3d: no parameter %s:%s", g.Name, name)
	}
	newKey := strings.ToUpper(to)
	if _, dup := g.params[newKey]; dup && newKey != key {
		return xerrors.Errorf("c3d: parameter %s:%s already exists: %w", g.Name, to, ErrDuplicateKey)
	}
	delete(g.params, key)
	p.Name = to
	g.params[newKey] = p
	for i, k := range g.order {
		if k == key {
			g.order[i] = newKey
			break
		}
	}
	return nil
}

// binarySize returns the wire size of the group record together with
// all of its parameter records.
func (g *Group) binarySize() int {
	n := 5 + len(g.Name) + len(g.Desc)
	for _, name := range g.order {
		n += g.params[name].binarySize()
	}
	return n
}

// write serializes the group record followed by its parameter records.
func (g *Group) write(w *wbuf) {
	w.writeI8(int8(len(g.Name)))
	w.writeI8(-g.ID)
	w.write([]byte(g.Name))
	w.writeI16(int16(3 + len(g.Desc)))
	w.writeU8(uint8(len(g.Desc)))
	w.write([]byte(g.Desc))
	for _, name := range g.order {
		g.params[name].write(g.ID, w)
	}
}

// set adds or replaces a parameter built from raw parts.
func (g *Group) set(name string, kind ElemKind, dims []uint8, data []byte) {
	key := strings.ToUpper(name)
	p := newParam(key, "", kind, dims, data, g.proc)
	if _, ok := g.params[key]; !ok {
		g.order = append(g.order, key)
	}
	g.params[key] = p
}

// SetUint16 stores a scalar 16-bit value.
func (g *Group) SetUint16(name string, v uint16) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, v)
	g.set(name, KindInt16, []uint8{}, data)
}

// SetUint32 stores a 32-bit value as two consecutive 16-bit words, the
// layout used for frame counters above 65535.
func (g *Group) SetUint32(name string, v uint32) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	g.set(name, KindInt16, []uint8{2}, data)
}

// SetFloat32 stores a scalar float.
func (g *Group) SetFloat32(name string, v float32) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, math.Float32bits(v))
	g.set(name, KindFloat32, []uint8{}, data)
}

// SetInt16s stores a vector of 16-bit values.
func (g *Group) SetInt16s(name string, vs []int16) {
	data := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(v))
	}
	g.set(name, KindInt16, []uint8{uint8(len(vs))}, data)
}

// SetFloat32s stores a vector of floats.
func (g *Group) SetFloat32s(name string, vs []float32) {
	data := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	g.set(name, KindFloat32, []uint8{uint8(len(vs))}, data)
}

// SetString stores a single string.
func (g *Group) SetString(name, s string) {
	g.set(name, KindChar, []uint8{uint8(len(s))}, []byte(s))
}

// SetStrings stores a string array, each entry space padded to the
// longest one.
func (g *Group) SetStrings(name string, ss []string) {
	width := 0
	for _, s := range ss {
		if len(s) > width {
			width = len(s)
		}
	}
	data := make([]byte, width*len(ss))
	for i := range data {
		data[i] = ' '
	}
	for i, s := range ss {
		copy(data[i*width:], s)
	}
	g.set(name, KindChar, []uint8{uint8(width), uint8(len(ss))}, data)
}

// SetEmpty stores an empty placeholder parameter.
func (g *Group) SetEmpty(name string) {
	g.set(name, 0, []uint8{0}, nil)
}
