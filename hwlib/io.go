// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/hwsoc"
)

// Input creates a function based input.
//
//	Outputs: out
//	Function: out = f()
//
func Input(f func() bool) hwsoc.NewPartFn {
	p := &hwsoc.PartSpec{
		Name:    "Input",
		Inputs:  nil,
		Outputs: []string{pOut},
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			pin := s.Pin(pOut)
			return []hwsoc.Component{
				func(c *hwsoc.Circuit) {
					c.Set(pin, f())
				},
			}
		},
	}
	return p.NewPart
}

// Output creates an output or probe. The fn function is
// called with the named pin state on every circuit update.
//
//	Inputs: in
//	Function: f(in)
//
func Output(f func(bool)) hwsoc.NewPartFn {
	p := &hwsoc.PartSpec{
		Name:    "Output",
		Inputs:  []string{pIn},
		Outputs: nil,
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			in := s.Pin(pIn)
			return []hwsoc.Component{
				func(c *hwsoc.Circuit) { f(c.Get(in)) },
			}
		},
	}
	return p.NewPart
}

// InputN creates an input bus of the given bits size.
//
//	Outputs: out[bits]
//	Function: out = f()
//
func InputN(bits int, f func() uint64) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "INPUT" + strconv.Itoa(bits),
		Inputs:  nil,
		Outputs: bus(bits, pOut),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			pins := s.Bus(pOut, bits)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				c.SetInt(pins, f())
			}}
		}}).NewPart
}

// OutputN creates an output bus of the given bits size.
//
//	Inputs: in[bits]
//	Function: f(in)
//
func OutputN(bits int, f func(uint64)) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "OUTPUT" + strconv.Itoa(bits),
		Inputs:  bus(bits, pIn),
		Outputs: nil,
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			pins := s.Bus(pIn, bits)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				f(c.GetInt(pins))
			}}
		}}).NewPart
}
