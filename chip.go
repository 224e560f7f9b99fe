// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsoc

import (
	"github.com/pkg/errors"
)

// A PartSpec wraps a part specification (its blueprint).
//
// Custom parts are implemented by creating a PartSpec:
//
//	notSpec := &hwsoc.PartSpec{
//		Name: "Not",
//		Inputs: hwsoc.IO("in"),
//		Outputs: hwsoc.IO("out"),
//		Mount: func (s *hwsoc.Socket) []hwsoc.Component {
//			in, out := s.Pin("in"), s.Pin("out")
//			return []hwsoc.Component{
//				func (c *hwsoc.Circuit) { c.Set(out, !c.Get(in)) }
//			}
//		}}
//
// Then get a NewPartFn for that PartSpec:
//
//	var notGate = notSpec.NewPart
//
// Which can the be used as a NewPartFn when building other chips:
//
//	c, _ := Chip("dummy", IO("a, b"), IO("c, d"), Parts{
//		notGate("in=a, out=c"),
//		notGate("in=b, out=d"),
//	})
//
type PartSpec struct {
	// Part name.
	Name string
	// Input pin names. Must be distinct pin names.
	// Use the IO() function to expand an input description like
	// "a, b, bus[2]" to []string{"a", "b", "bus[0]", "bus[1]"}
	Inputs []string
	// Output pin name. Must be distinct pin names.
	// Use the IO() function to expand an output description string.
	Outputs []string

	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
// It panics if the connection string cannot be parsed. Connections that do not
// match the part's pins are reported when the part is used in Chip or
// NewCircuit.
//
func (p *PartSpec) NewPart(connections string) Part {
	conns, err := ParseConnections(connections)
	if err != nil {
		panic(err)
	}
	return p.Wire(conns)
}

// Wire is like NewPart but takes already parsed connections.
//
func (p *PartSpec) Wire(conns []Connection) Part {
	w, err := p.expand(conns)
	return Part{PartSpec: p, Conns: conns, wires: w, err: err}
}

// A NewPartFn is a function that takes a connection configuration and returns a
// new Part. See ParseConnections for the syntax of the connection configuration
// string.
//
type NewPartFn func(c string) Part

// A Part wraps a part specification together with its connections within a host
// chip.
//
type Part struct {
	*PartSpec
	Conns []Connection

	wires map[string]string // part pin -> container wire
	err   error
}

// Parts is a convenience wrapper for []Part.
//
type Parts []Part

// Chip composes existing parts into a new part packaged into a chip.
// The pin names specified as inputs and outputs will be the inputs
// and outputs of the chip.
//
// An Xor gate could be created like this:
//
//	xor, err := Chip("XOR", IO("a, b"), IO("out"), Parts{
//			hwlib.Nand("a=a, b=b, out=nandAB"),
//			hwlib.Nand("a=a, b=nandAB, out=w0"),
//			hwlib.Nand("a=b, b=nandAB, out=w1"),
//			hwlib.Nand("a=w0, b=w1, out=out"),
//		})
//
// The returned value is a function of type NewPartFn that can be used to
// compose the new part with others into other chips.
//
// Chip checks that every internal wire read by a part is driven by exactly
// one part output or chip input, and that no output drives a constant or a
// chip input.
//
func Chip(name string, inputs []string, outputs []string, parts Parts) (NewPartFn, error) {
	drivers := make(map[string]string, len(inputs)+len(parts))
	drivers[True] = True
	drivers[False] = False
	for _, i := range inputs {
		drivers[i] = name + "." + i
	}

	for _, p := range parts {
		if p.err != nil {
			return nil, p.err
		}
		for _, o := range p.Outputs {
			w, ok := p.wires[o]
			if !ok {
				continue
			}
			pn := p.Name + "." + o + ":" + w
			switch d := drivers[w]; {
			case isConstant(w):
				return nil, errors.New(pn + ": output pin connected to constant " + w + " input")
			case d == name+"."+w:
				return nil, errors.New(pn + ": chip input pin used as output")
			case d != "":
				return nil, errors.New(pn + ": output pin already used as output by " + d)
			}
			drivers[w] = p.Name + "." + o
		}
	}
	for _, p := range parts {
		for _, i := range p.Inputs {
			if w, ok := p.wires[i]; ok && drivers[w] == "" {
				return nil, errors.New("pin " + w + " not connected to any output")
			}
		}
	}
	for _, o := range outputs {
		if drivers[o] == "" {
			return nil, errors.New("pin " + o + " not connected to any output")
		}
	}

	spec := &PartSpec{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		Mount: func(s *Socket) []Component {
			var cs []Component
			for _, p := range parts {
				cs = append(cs, s.Mount(p)...)
			}
			return cs
		},
	}
	return spec.NewPart, nil
}
