// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package core implements the placeholder core logic block: an 8 bits wide
// registered pass-through from input pins to output pins, controlled and
// observed through a bus mapped register block.
//
// The data path is built from library parts:
//
//	in ──┬─► Mux8 ──► Mux8 ──► DFF8 ──► out
//	     │    ▲ sel    ▲ sel    ▲ rst
//	override  │      hold ◄─ out
//
// The input side is exposed as a stream endpoint ("source") whose valid is
// asserted outside of reset and whose ready is deasserted while the output
// register holds its value. Its payload samples the input pins at every rising
// edge, except while a beat is stalled: the stalled beat is presented
// unchanged until hold is released and it commits. The output side is exposed as a stream endpoint
// ("sink") that is always ready.
//
package core

import (
	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/stream"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// DataWidth is the width of the core's data path.
const DataWidth = 8

// Layout is the payload layout of the core's stream endpoints.
var Layout = stream.Layout{{Name: "data", Width: DataWidth}}

// Register offsets.
const (
	RegOverride  = 0x00
	RegCtrl      = 0x04
	RegInStatus  = 0x08
	RegOutStatus = 0x0c
	RegScratch   = 0x10
	RegTransfers = 0x14
)

// Control register bits.
const (
	CtrlOverride = 1 << 0
	CtrlHold     = 1 << 1
)

// A Core is a mounted core logic block.
//
type Core struct {
	name    string
	adapter *wishbone.Adapter

	inV, outV uint32
	transfers uint32
}

// New creates a core named name reading its input from the 8 bits top-level
// bus named in and driving the bus named out. It registers the core's bus
// slave, its signals and its parts with ctx.
//
// Registered signals: <name>.source.data, <name>.source.valid,
// <name>.source.ready, <name>.sink.data, <name>.sink.valid,
// <name>.sink.ready, and the slave bus as <name>.bus.*.
//
func New(ctx *build.Context, name, in, out string) (*Core, error) {
	k := &Core{name: name}
	regs := []*wishbone.Register{
		wishbone.NewStorage("override", RegOverride, DataWidth, 0, "Value driven on the outputs while override is enabled."),
		wishbone.NewStorage("ctrl", RegCtrl, 2, 0, "Bit 0: drive the override value. Bit 1: hold the outputs."),
		wishbone.NewStatus("in_status", RegInStatus, DataWidth, func() uint32 { return k.inV }, "Current value of the input pins."),
		wishbone.NewStatus("out_status", RegOutStatus, DataWidth, func() uint32 { return k.outV }, "Current value of the output pins."),
		wishbone.NewStorage("scratch", RegScratch, 32, 0x12345678, "Scratch register."),
		wishbone.NewStatus("transfers", RegTransfers, 32, func() uint32 { return k.transfers }, "Number of input transfers since reset."),
	}
	a, err := ctx.AddSlave(name, wishbone.IO, regs)
	if err != nil {
		return nil, errors.Wrapf(err, "core %s", name)
	}
	k.adapter = a

	chip, err := k.chip()
	if err != nil {
		return nil, errors.Wrapf(err, "core %s", name)
	}
	source := stream.Endpoint{Name: name + "_source", Layout: Layout}
	sink := stream.Endpoint{Name: name + "_sink", Layout: Layout}
	bus := build.SlaveBus(name)
	conns := "in=" + in + ", out=" + out + ", rst=" + build.ResetWire + ", " +
		wishbone.Interface{Name: "bus"}.Wires(bus) + ", " +
		stream.Endpoint{Name: "source", Layout: Layout}.Wires(source) + ", " +
		stream.Endpoint{Name: "sink", Layout: Layout}.Wires(sink)
	ctx.Add(chip(conns))

	sigs := ctx.Signals()
	if err = sigs.AddEndpoint(name+".source", source); err != nil {
		return nil, err
	}
	if err = sigs.AddEndpoint(name+".sink", sink); err != nil {
		return nil, err
	}
	if err = sigs.AddBus(name+".bus", bus); err != nil {
		return nil, err
	}
	return k, nil
}

// Name returns the core name.
//
func (k *Core) Name() string { return k.name }

// Adapter returns the core's bus slave adapter.
//
func (k *Core) Adapter() *wishbone.Adapter { return k.adapter }

// Transfers returns the number of input transfers since the last reset.
//
func (k *Core) Transfers() uint32 { return k.transfers }

func (k *Core) chip() (hwsoc.NewPartFn, error) {
	bus := wishbone.Interface{Name: "bus"}
	source := stream.Endpoint{Name: "source", Layout: Layout}
	sink := stream.Endpoint{Name: "sink", Layout: Layout}
	ins := append(hwsoc.IO("in[8], rst"), bus.Request()...)
	outs := append(hwsoc.IO("out[8]"), bus.Response()...)
	outs = append(outs, source.ProducerPins()...)
	outs = append(outs, source.ConsumerPins()...)
	outs = append(outs, sink.ProducerPins()...)
	outs = append(outs, sink.ConsumerPins()...)
	return hwsoc.Chip("DummyCore", ins, outs, hwsoc.Parts{
		k.ctrl().NewPart("in=in, out=out, rst=rst, fire=fire, " + bus.Wires(bus) +
			", ovr=ovr, sel=sel, hold=hold, " + source.Wires(source) + ", " + sink.Wires(sink)),
		hl.And("a=source_valid, b=source_ready, out=fire"),
		hl.MuxN(DataWidth)("a=in, b=ovr, sel=sel, out=next"),
		hl.MuxN(DataWidth)("a=next, b=out, sel=hold, out=d"),
		hl.DFFN(DataWidth)("in=d, rst=rst, out=out"),
	})
}

// ctrl services the register block, drives the data path controls and the
// endpoint mirrors, and counts committed input transfers.
//
func (k *Core) ctrl() *hwsoc.PartSpec {
	bus := wishbone.Interface{Name: "bus"}
	source := stream.Endpoint{Name: "source", Layout: Layout}
	sink := stream.Endpoint{Name: "sink", Layout: Layout}
	ins := append(hwsoc.IO("in[8], out[8], rst, fire"), bus.Request()...)
	outs := append(hwsoc.IO("ovr[8], sel, hold"), bus.Response()...)
	outs = append(outs, source.ProducerPins()...)
	outs = append(outs, source.ConsumerPins()...)
	outs = append(outs, sink.ProducerPins()...)
	outs = append(outs, sink.ConsumerPins()...)
	return &hwsoc.PartSpec{
		Name:    "DummyCtrl",
		Inputs:  ins,
		Outputs: outs,
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			in, out, rst, fire := s.Bus("in", DataWidth), s.Bus("out", DataWidth), s.Pin("rst"), s.Pin("fire")
			ovr, sel, hold := s.Bus("ovr", DataWidth), s.Pin("sel"), s.Pin("hold")
			slave := bus.BindSlave(s)
			src, snk := source.Bind(s), sink.Bind(s)
			ovrReg, ctrlReg := k.adapter.Register("override"), k.adapter.Register("ctrl")
			// source endpoint state, registered at the rising edge.
			var (
				payload      uint64
				valid, ready bool
			)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				r := c.Get(rst)
				if c.AtTick() {
					k.inV = uint32(c.GetInt(in))
					k.outV = uint32(c.GetInt(out))
					switch {
					case r:
						k.adapter.Reset()
						k.transfers = 0
					case c.Get(fire):
						k.transfers++
					}
					// a stalled beat is kept until it commits.
					if !valid || ready || r {
						payload = uint64(k.inV)
					}
					valid = !r
					ready = ctrlReg.Value()&CtrlHold == 0 && !r
				}
				slave.Update(c, k.adapter, r)
				ctl := ctrlReg.Value()
				c.SetInt(ovr, uint64(ovrReg.Value()))
				c.Set(sel, ctl&CtrlOverride != 0)
				c.Set(hold, ctl&CtrlHold != 0)

				src.SetBeat(c, stream.Beat{Payload: []uint64{payload}})
				src.SetValid(c, valid)
				src.SetReady(c, ready)
				snk.SetBeat(c, stream.Beat{Payload: []uint64{c.GetInt(out)}})
				snk.SetValid(c, !r)
				snk.SetReady(c, true)
			}}
		}}
}
