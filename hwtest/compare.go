// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits and bus
// mapped cores.
//
package hwtest

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/hwlib"
)

// maxExhaustive is the input count up to which ComparePart tries every input
// combination.
const maxExhaustive = 12

// identity returns the connection string mapping every pin to a container
// wire of the same name.
//
func identity(pins ...[]string) string {
	var cs []string
	for _, ps := range pins {
		for _, p := range ps {
			cs = append(cs, p+"="+p)
		}
	}
	return strings.Join(cs, ", ")
}

// declare turns a flat pin list back into an IO declaration like "a, bus[4]".
//
func declare(pins []string) string {
	width := make(map[string]int)
	var decl []string
	for _, p := range pins {
		i := strings.IndexRune(p, '[')
		if i < 0 {
			decl = append(decl, p)
			continue
		}
		n, err := strconv.Atoi(p[i+1 : len(p)-1])
		if err != nil {
			panic(err)
		}
		if n+1 > width[p[:i]] {
			width[p[:i]] = n + 1
		}
	}
	for b, w := range width {
		decl = append(decl, b+"["+strconv.Itoa(w)+"]")
	}
	sort.Strings(decl)
	return strings.Join(decl, ", ")
}

// probe wraps part into a chip with no outputs that reports its output
// states into out.
//
func probe(t *testing.T, name string, part hwsoc.Part, out []bool) hwsoc.NewPartFn {
	t.Helper()
	parts := hwsoc.Parts{part}
	for i, o := range part.Outputs {
		p := &out[i]
		parts = append(parts, hwlib.Output(func(b bool) { *p = b })("in="+o))
	}
	w, err := hwsoc.Chip(name, hwsoc.IO(declare(part.Inputs)), nil, parts)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func samePins(t *testing.T, what string, a, b []string) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%s count mismatch: %d != %d", what, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("%s %d mismatch: %q != %q", what, i, a[i], b[i])
		}
	}
}

// ComparePart takes two parts and compares their outputs given the same inputs.
// Both parts must have the same Input/Output interface.
//
// Inputs are changed at the falling edge of the clock and outputs compared
// after the next rising edge. Parts with up to 12 inputs are tested with every
// input combination, larger parts with random inputs.
//
func ComparePart(t *testing.T, tpc uint, part1 hwsoc.NewPartFn, part2 hwsoc.NewPartFn) {
	t.Helper()

	spec := part1("").PartSpec
	conns := identity(spec.Inputs, spec.Outputs)
	p1, p2 := part1(conns), part2(conns)
	samePins(t, "input", p1.Inputs, p2.Inputs)
	samePins(t, "output", p1.Outputs, p2.Outputs)

	in := make([]bool, len(p1.Inputs))
	out1 := make([]bool, len(p1.Outputs))
	out2 := make([]bool, len(p2.Outputs))

	var parts hwsoc.Parts
	for i, n := range p1.Inputs {
		p := &in[i]
		parts = append(parts, hwlib.Input(func() bool { return *p })("out="+n))
	}
	ic := identity(p1.Inputs)
	parts = append(parts,
		probe(t, "compare1", p1, out1)(ic),
		probe(t, "compare2", p2, out2)(ic))

	c := NewCircuit(t, tpc, parts)

	check := func() {
		t.Helper()
		for o := range out1 {
			if out1[o] == out2[o] {
				continue
			}
			var b strings.Builder
			for i, n := range p1.Inputs {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(n + "=" + strconv.FormatBool(in[i]))
			}
			t.Fatalf("%s: %s => %s = %v, %s = %v", b.String(), p1.Name, p1.Outputs[o], out1[o], p2.Name, out2[o])
		}
	}
	step := func() {
		t.Helper()
		c.Tock()
		c.Tick()
		check()
	}

	start := time.Now()
	c.Tick()
	check()

	if len(in) <= maxExhaustive {
		for v := 0; v < 1<<uint(len(in)); v++ {
			for i := range in {
				in[i] = v&(1<<uint(i)) != 0
			}
			step()
		}
	} else {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for k := 0; k < 1<<maxExhaustive; k++ {
			for i := range in {
				in[i] = rnd.Int63()&1 != 0
			}
			step()
		}
	}

	elapsed := time.Since(start)
	t.Logf("%d components, %d cycles in %v (%.2f Hz)", c.Size(), c.Cycles(), elapsed, float64(c.Cycles())/elapsed.Seconds())
}
