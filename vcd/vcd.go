// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package vcd writes value change dump files.
//
// Variable names are dotted paths; each path element but the last becomes a
// nested scope in the dump header.
//
package vcd

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hwsoc"
	"github.com/pkg/errors"
)

// A Var is a traced variable.
//
type Var struct {
	Name  string
	Width int
}

// A Writer writes a value change dump. Values are only written when they
// change.
//
type Writer struct {
	w         *bufio.Writer
	timescale string
	vars      []Var
	ids       []string
	last      []uint64
	started   bool
	err       error
}

// NewWriter returns a new Writer for the given variables. timescale is the
// unit of the times passed to Sample, like "1ns".
//
func NewWriter(w io.Writer, timescale string, vars []Var) *Writer {
	ids := make([]string, len(vars))
	for i := range ids {
		ids[i] = ident(i)
	}
	return &Writer{w: bufio.NewWriter(w), timescale: timescale, vars: vars, ids: ids, last: make([]uint64, len(vars))}
}

// ident returns a short identifier made of printable ASCII characters.
//
func ident(n int) string {
	var b []byte
	for {
		b = append(b, byte('!'+n%94))
		n /= 94
		if n == 0 {
			return string(b)
		}
		n--
	}
}

type scope struct {
	name     string
	children []*scope
	vars     []int
}

func (s *scope) child(name string) *scope {
	for _, c := range s.children {
		if c.name == name {
			return c
		}
	}
	c := &scope{name: name}
	s.children = append(s.children, c)
	return c
}

func (w *Writer) printf(ss ...string) {
	if w.err != nil {
		return
	}
	for _, s := range ss {
		if _, w.err = w.w.WriteString(s); w.err != nil {
			return
		}
	}
}

func (w *Writer) writeScope(s *scope) {
	w.printf("$scope module ", s.name, " $end\n")
	for _, i := range s.vars {
		v := w.vars[i]
		leaf := v.Name[strings.LastIndexByte(v.Name, '.')+1:]
		w.printf("$var wire ", strconv.Itoa(v.Width), " ", w.ids[i], " ", leaf, " $end\n")
	}
	for _, c := range s.children {
		w.writeScope(c)
	}
	w.printf("$upscope $end\n")
}

func (w *Writer) header() {
	top := &scope{name: "top"}
	for i, v := range w.vars {
		s := top
		path := strings.Split(v.Name, ".")
		for _, p := range path[:len(path)-1] {
			s = s.child(p)
		}
		s.vars = append(s.vars, i)
	}
	w.printf("$version hwsoc $end\n$timescale ", w.timescale, " $end\n")
	w.writeScope(top)
	w.printf("$enddefinitions $end\n")
}

func (w *Writer) value(i int, v uint64) {
	if w.vars[i].Width == 1 {
		w.printf(strconv.FormatUint(v&1, 2), w.ids[i], "\n")
		return
	}
	w.printf("b", strconv.FormatUint(v, 2), " ", w.ids[i], "\n")
}

// Sample records the values of all variables at time t. values[i] holds the
// value of the i-th variable, least significant bit first. Times must be
// increasing.
//
func (w *Writer) Sample(t uint64, values []uint64) error {
	if len(values) != len(w.vars) {
		return errors.Errorf("got %d values for %d variables", len(values), len(w.vars))
	}
	if !w.started {
		w.header()
		w.printf("#", strconv.FormatUint(t, 10), "\n$dumpvars\n")
		for i, v := range values {
			w.value(i, v)
			w.last[i] = v
		}
		w.printf("$end\n")
		w.started = true
		return w.err
	}
	stamped := false
	for i, v := range values {
		if v == w.last[i] {
			continue
		}
		if !stamped {
			w.printf("#", strconv.FormatUint(t, 10), "\n")
			stamped = true
		}
		w.value(i, v)
		w.last[i] = v
	}
	return w.err
}

// Flush writes any buffered data to the underlying writer.
//
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Err returns the first error encountered while writing.
//
func (w *Writer) Err() error { return w.err }

// Tracer returns a part sampling its probe inputs on every rising edge in the
// cycle range [start, end] and recording them with w, one Var per probe
// group in the order of w's variables. A negative end disables the upper
// bound. Times are expressed in cycles multiplied by period.
//
//	Inputs: probe[sum of variable widths]
//
func Tracer(w *Writer, period uint64, start, end int64) hwsoc.NewPartFn {
	width := 0
	for _, v := range w.vars {
		width += v.Width
	}
	return (&hwsoc.PartSpec{
		Name:   "VCDTracer",
		Inputs: hwsoc.IO("probe[" + strconv.Itoa(width) + "]"),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			probe := s.Bus("probe", width)
			values := make([]uint64, len(w.vars))
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if !c.AtTick() || c.Cycle() == 0 {
					return
				}
				// the rising edge samples the cycle that just ended.
				cycle := int64(c.Cycle() - 1)
				if cycle < start || end >= 0 && cycle > end {
					return
				}
				off := 0
				for i, v := range w.vars {
					values[i] = c.GetInt(probe[off : off+v.Width])
					off += v.Width
				}
				w.Sample(uint64(cycle)*period, values)
			}}
		}}).NewPart
}
