// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	hl "github.com/db47h/hwsoc/hwlib"
)

// Top-level reset wires.
const (
	resetPad = "sys_reset"
	porWire  = "sys_por"
)

// powerOnReset returns a part holding its output high during the first cycles
// clock cycles.
//
//	Outputs: out
//
func powerOnReset(cycles int) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "PowerOnReset",
		Outputs: hwsoc.IO("out"),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			out := s.Pin("out")
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				c.Set(out, c.Cycle() < uint64(cycles))
			}}
		}}).NewPart
}

// addCRG adds the clock/reset generator: the system reset is asserted during
// power-on or while the external reset pad is high.
//
func addCRG(ctx *build.Context, cycles int) error {
	ctx.Add(
		powerOnReset(cycles)("out="+porWire),
		hl.Or("a="+porWire+", b="+resetPad+", out="+build.ResetWire),
	)
	return ctx.Signals().Add(build.Signal{Name: "sys.rst", Wire: build.ResetWire, Width: 1})
}
