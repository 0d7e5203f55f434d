// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c3d

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func testGroup(t *testing.T) *Group {
	t.Helper()
	intel, _ := newProcType(ProcIntel)
	return newGroup(1, "POINT", "point data", intel)
}

func TestGroupParams(t *testing.T) {
	g := testGroup(t)
	g.SetUint16("USED", 24)
	g.SetFloat32("RATE", 200)
	g.SetString("UNITS", "mm")

	var names []string
	for _, p := range g.Params() {
		names = append(names, p.Name)
	}
	if want := []string{"USED", "RATE", "UNITS"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("invalid order: got=%v, want=%v", names, want)
	}

	if g.Get("rate") == nil {
		t.Fatalf("lookup should not be case sensitive")
	}
	if g.Get("NOPE") != nil {
		t.Fatalf("unexpected parameter")
	}

	g.RemoveParam("rate")
	if g.Get("RATE") != nil {
		t.Fatalf("parameter not removed")
	}
	if got, want := len(g.Params()), 2; got != want {
		t.Fatalf("invalid number of parameters: got=%d, want=%d", got, want)
	}
}

func TestGroupAddDup(t *testing.T) {
	g := testGroup(t)
	g.SetUint16("USED", 24)

	intel, _ := newProcType(ProcIntel)
	err := g.AddParam(newParam("used", "", KindInt16, nil, nil, intel))
	if err == nil {
		t.Fatalf("expected an error for a duplicate parameter")
	}
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDuplicateKey)
	}
}

func TestGroupRenameParam(t *testing.T) {
	g := testGroup(t)
	g.SetUint16("USED", 24)
	g.SetFloat32("RATE", 200)

	err := g.RenameParam("USED", "RATE")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDuplicateKey)
	}

	err = g.RenameParam("USED", "COUNT")
	if err != nil {
		t.Fatalf("could not rename: %+v", err)
	}
	if g.Get("USED") != nil || g.Get("COUNT") == nil {
		t.Fatalf("rename did not move the parameter")
	}

	err = g.RenameParam("NOPE", "X")
	if err == nil {
		t.Fatalf("expected an error for a missing parameter")
	}
}

func TestGroupSetters(t *testing.T) {
	g := testGroup(t)

	g.SetUint16("USED", 24)
	p := g.Get("USED")
	if p.Kind() != KindInt16 || len(p.Dims()) != 0 {
		t.Fatalf("invalid scalar: kind=%v dims=%v", p.Kind(), p.Dims())
	}
	if v, _ := p.Uint16(); v != 24 {
		t.Fatalf("invalid value: got=%d, want=24", v)
	}

	g.SetUint32("ACTUAL_END_FIELD", 70000)
	p = g.Get("ACTUAL_END_FIELD")
	if p.Kind() != KindInt16 || !reflect.DeepEqual(p.Dims(), []int{2}) {
		t.Fatalf("invalid 32-bit layout: kind=%v dims=%v", p.Kind(), p.Dims())
	}
	if v, _ := p.Uint32(); v != 70000 {
		t.Fatalf("invalid value: got=%d, want=70000", v)
	}

	g.SetStrings("LABELS", []string{"HIP", "KNEE", "X"})
	p = g.Get("LABELS")
	if !reflect.DeepEqual(p.Dims(), []int{4, 3}) {
		t.Fatalf("invalid dims: got=%v, want=[4 3]", p.Dims())
	}
	ss, err := p.Strings()
	if err != nil {
		t.Fatalf("could not decode strings: %+v", err)
	}
	if want := []string{"HIP", "KNEE", "X"}; !reflect.DeepEqual(ss, want) {
		t.Fatalf("invalid strings: got=%q, want=%q", ss, want)
	}

	g.SetEmpty("DESCRIPTIONS")
	p = g.Get("DESCRIPTIONS")
	if p.Kind() != 0 || !reflect.DeepEqual(p.Dims(), []int{0}) {
		t.Fatalf("invalid empty parameter: kind=%v dims=%v", p.Kind(), p.Dims())
	}

	// setting an existing name replaces in place
	g.SetUint16("USED", 12)
	if v, _ := g.Get("USED").Uint16(); v != 12 {
		t.Fatalf("invalid value: got=%d, want=12", v)
	}
	if got, want := len(g.Params()), 4; got != want {
		t.Fatalf("invalid number of parameters: got=%d, want=%d", got, want)
	}
}

func TestGroupWrite(t *testing.T) {
	g := testGroup(t)
	g.SetUint16("USED", 24)
	g.SetString("UNITS", "mm")

	buf := new(bytes.Buffer)
	g.write(newWbuf(buf))

	raw := buf.Bytes()
	if got, want := len(raw), g.binarySize(); got != want {
		t.Fatalf("invalid wire size: got=%d, want=%d", got, want)
	}
	if raw[0] != 5 || int8(raw[1]) != -1 {
		t.Fatalf("invalid group prefix: % x", raw[:2])
	}
	if got, want := string(raw[2:7]), "POINT"; got != want {
		t.Fatalf("invalid name: got=%q, want=%q", got, want)
	}
	intel, _ := newProcType(ProcIntel)
	if got, want := int(intel.int16(raw[7:9])), 3+len(g.Desc); got != want {
		t.Fatalf("invalid offset: got=%d, want=%d", got, want)
	}
}
