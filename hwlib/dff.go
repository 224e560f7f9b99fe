// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/hwsoc"
)

// DFF returns a clocked data flip flop.
//
//	Inputs: in
//	Outputs: out
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
//
func DFF(w string) hwsoc.Part {
	return dff.NewPart(w)
}

var dff = hwsoc.PartSpec{
	Name:    "DFF",
	Inputs:  []string{pIn},
	Outputs: []string{pOut},
	Mount: func(s *hwsoc.Socket) []hwsoc.Component {
		in, out := s.Pin(pIn), s.Pin(pOut)
		var curOut bool
		return []hwsoc.Component{
			func(c *hwsoc.Circuit) {
				// raising edge?
				if c.AtTick() {
					curOut = c.Get(in)
				}
				c.Set(out, curOut)
			}}
	}}

// DFFN returns a N-bits data flip flop with synchronous reset.
//
//	Inputs: in[bits], rst
//	Outputs: out[bits]
//	Function: out(t) = rst(t-1) ? 0 : in(t-1)
//
func DFFN(bits int) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "DFF" + strconv.Itoa(bits),
		Inputs:  append(bus(bits, pIn), "rst"),
		Outputs: bus(bits, pOut),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			in, rst, out := s.Bus(pIn, bits), s.Pin("rst"), s.Bus(pOut, bits)
			var cur uint64
			return []hwsoc.Component{
				func(c *hwsoc.Circuit) {
					if c.AtTick() {
						if c.Get(rst) {
							cur = 0
						} else {
							cur = c.GetInt(in)
						}
					}
					c.SetInt(out, cur)
				}}
		}}).NewPart
}
