// Copyright 2021 The go-mocap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// c3d-meta is an interactive shell to inspect and edit the metadata of
// a C3D file.
//
// Usage: c3d-meta FILE.c3d
//
// Example:
//
//	$> c3d-meta ./testdata/walk.c3d
//	c3d> groups
//	POINT (id=1) 7 parameters
//	ANALOG (id=2) 6 parameters
//	c3d> get POINT:RATE
//	POINT:RATE float32 dims=[] value=200
//	c3d> set POINT:RATE 100
//	c3d> save ./walk-100hz.c3d
//	c3d> quit
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-mocap/c3d"
	"github.com/peterh/liner"
	"golang.org/x/xerrors"
)

func main() {
	log.SetPrefix("c3d-meta: ")
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Printf(`c3d-meta is an interactive shell to inspect and edit the metadata
of a C3D file.

Usage: c3d-meta FILE.c3d

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing path to input C3D file")
	}

	err := run(flag.Arg(0))
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(fname string) error {
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

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	sh := &shell{r: r, w: os.Stdout}
	for {
		cmd, err := term.Prompt("c3d> ")
		switch {
		case err == io.EOF || err == liner.ErrPromptAborted:
			fmt.Fprintf(sh.w, "\n")
			return nil
		case err != nil:
			return fmt.Errorf("could not read command: %w", err)
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		term.AppendHistory(cmd)

		err = sh.run(cmd)
		switch {
		case err == errQuit:
			return nil
		case err != nil:
			log.Printf("%+v", err)
		}
	}
}

var errQuit = xerrors.New("quit")

type shell struct {
	r *c3d.Reader
	w io.Writer
}

func (sh *shell) run(cmd string) error {
	args := strings.Fields(cmd)
	switch args[0] {
	case "help":
		return sh.cmdHelp()
	case "groups":
		return sh.cmdGroups()
	case "params":
		if len(args) != 2 {
			return xerrors.New("usage: params GROUP")
		}
		return sh.cmdParams(args[1])
	case "get":
		if len(args) != 2 {
			return xerrors.New("usage: get GROUP:PARAM")
		}
		return sh.cmdGet(args[1])
	case "set":
		if len(args) != 3 {
			return xerrors.New("usage: set GROUP:PARAM VALUE")
		}
		return sh.cmdSet(args[1], args[2])
	case "rename":
		if len(args) != 3 {
			return xerrors.New("usage: rename GROUP NEWNAME")
		}
		return sh.r.RenameGroup(args[1], args[2])
	case "rm":
		if len(args) != 2 {
			return xerrors.New("usage: rm GROUP[:PARAM]")
		}
		return sh.cmdRemove(args[1])
	case "save":
		if len(args) != 2 {
			return xerrors.New("usage: save FILE")
		}
		return sh.cmdSave(args[1])
	case "quit", "exit":
		return errQuit
	}
	return xerrors.Errorf("unknown command %q, try \"help\"", args[0])
}

func (sh *shell) cmdHelp() error {
	fmt.Fprintf(sh.w, `commands:
  groups              list the groups
  params GROUP        list the parameters of a group
  get GROUP:PARAM     display a parameter
  set GROUP:PARAM V   set a scalar or string parameter
  rename GROUP NAME   rename a group
  rm GROUP[:PARAM]    remove a group or a parameter
  save FILE           save the file, Intel format
  quit                exit
`)
	return nil
}

func (sh *shell) cmdGroups() error {
	for _, g := range sh.r.Groups() {
		fmt.Fprintf(sh.w, "%s (id=%d) %d parameters\n", g.Name, g.ID, len(g.Params()))
	}
	return nil
}

func (sh *shell) cmdParams(name string) error {
	g := sh.r.GetGroup(name)
	if g == nil {
		return xerrors.Errorf("no group %q", name)
	}
	for _, p := range g.Params() {
		fmt.Fprintf(sh.w, "%-20s %-8v dims=%v\n", p.Name, p.Kind(), p.Dims())
	}
	return nil
}

func (sh *shell) cmdGet(key string) error {
	p := sh.r.GetParam(key)
	if p == nil {
		return xerrors.Errorf("no parameter %q", key)
	}
	fmt.Fprintf(sh.w, "%s %v dims=%v value=%s\n", key, p.Kind(), p.Dims(), display(p))
	return nil
}

func display(p *c3d.Param) string {
	switch p.Kind() {
	case c3d.KindChar:
		if len(p.Dims()) > 1 {
			if ss, err := p.Strings(); err == nil {
				return fmt.Sprintf("%q", ss)
			}
		}
		return strconv.Quote(p.String())
	case c3d.KindFloat32:
		if vs, err := p.Float32s(); err == nil {
			return trimOne(fmt.Sprintf("%v", vs))
		}
	case c3d.KindInt16:
		if vs, err := p.Int16s(); err == nil {
			return trimOne(fmt.Sprintf("%v", vs))
		}
	case c3d.KindByte:
		return fmt.Sprintf("%v", p.Bytes())
	}
	return fmt.Sprintf("%x", p.Bytes())
}

// trimOne drops the brackets around single element lists.
func trimOne(s string) string {
	if !strings.Contains(s, " ") {
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
	}
	return s
}

func (sh *shell) cmdSet(key, value string) error {
	i := strings.IndexAny(key, ":.")
	if i < 0 {
		return xerrors.Errorf("invalid parameter key %q", key)
	}
	g := sh.r.GetGroup(key[:i])
	if g == nil {
		return xerrors.Errorf("no group %q", key[:i])
	}
	p := g.Get(key[i+1:])
	if p == nil {
		return xerrors.Errorf("no parameter %q", key)
	}

	name := p.Name
	switch p.Kind() {
	case c3d.KindChar:
		g.SetString(name, value)
	case c3d.KindFloat32:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return xerrors.Errorf("invalid float %q: %w", value, err)
		}
		g.SetFloat32(name, float32(v))
	case c3d.KindInt16:
		v, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return xerrors.Errorf("invalid integer %q: %w", value, err)
		}
		g.SetUint16(name, uint16(v))
	default:
		return xerrors.Errorf("cannot set %v parameter %q", p.Kind(), key)
	}
	return nil
}

func (sh *shell) cmdRemove(key string) error {
	i := strings.IndexAny(key, ":.")
	if i < 0 {
		if sh.r.GetGroup(key) == nil {
			return xerrors.Errorf("no group %q", key)
		}
		sh.r.RemoveGroup(key)
		return nil
	}
	g := sh.r.GetGroup(key[:i])
	if g == nil {
		return xerrors.Errorf("no group %q", key[:i])
	}
	if g.Get(key[i+1:]) == nil {
		return xerrors.Errorf("no parameter %q", key)
	}
	g.RemoveParam(key[i+1:])
	return nil
}

func (sh *shell) cmdSave(oname string) error {
	w, err := sh.r.ToWriter(c3d.Consume)
	if err != nil {
		return xerrors.Errorf("could not prepare writer: %w", err)
	}

	f, err := os.Create(oname)
	if err != nil {
		return xerrors.Errorf("could not create %q: %w", oname, err)
	}
	defer f.Close()

	err = w.Write(f)
	if err != nil {
		return xerrors.Errorf("could not encode %q: %w", oname, err)
	}
	err = f.Close()
	if err != nil {
		return xerrors.Errorf("could not close %q: %w", oname, err)
	}
	fmt.Fprintf(sh.w, "saved %s\n", oname)
	return nil
}
