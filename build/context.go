// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package build provides the explicit context threaded through component
// constructors while a system is assembled: the clock domain, the bus address
// map with its masters and slaves, the registry of observable signals and the
// list of parts making up the system.
//
// Components never register themselves in global state. They receive a
// *Context, declare what they need (an address region, a master port,
// signals) and add their parts to it.
//
package build

import (
	"strings"

	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// Name of the synchronous reset wire generated by the clock/reset generator.
const ResetWire = "sys_rst"

// A ClockDomain names the single system clock and its frequency in Hz.
//
type ClockDomain struct {
	Name string
	Freq uint64
}

// A Placement overrides the address region of a named slave. A zero Size
// selects the smallest power of two covering the slave's registers.
//
type Placement struct {
	Base uint32
	Size uint32
}

// A Context collects the description of a system under construction.
//
type Context struct {
	Clock ClockDomain

	placements map[string]Placement
	next       uint32
	addrMap    wishbone.Map
	slaves     []*wishbone.Adapter
	masters    []string
	signals    Registry
	parts      hwsoc.Parts
}

// NewContext returns a new build context. Slaves named in placements get the
// given region; the others are allocated from the lowest free address at or
// above autoBase.
//
func NewContext(clk ClockDomain, placements map[string]Placement, autoBase uint32) *Context {
	return &Context{Clock: clk, placements: placements, next: autoBase}
}

// SlaveBus returns the name of the top-level bus wires of the named slave.
//
func SlaveBus(name string) wishbone.Interface { return wishbone.Interface{Name: name + "_bus"} }

// MasterBus returns the name of the top-level bus wires of the named master.
//
func MasterBus(name string) wishbone.Interface { return wishbone.Interface{Name: name + "_bus"} }

// AddSlave reserves an address region for the named slave and returns the
// adapter mapping regs onto it. The region must not overlap any region
// already reserved.
//
func (x *Context) AddSlave(name string, typ wishbone.RegionType, regs []*wishbone.Register) (*wishbone.Adapter, error) {
	fp := wishbone.Footprint(regs)
	var (
		r   wishbone.Region
		err error
	)
	if p, ok := x.placements[name]; ok {
		size := p.Size
		if size == 0 {
			size = wishbone.AlignSize(fp)
		}
		if size < fp {
			return nil, errors.Errorf("region %s: size 0x%x does not cover the 0x%x bytes of its registers", name, size, fp)
		}
		r = wishbone.Region{Name: name, Base: p.Base, Size: size, Type: typ}
		err = x.addrMap.Add(r)
	} else {
		r, err = x.addrMap.Alloc(name, fp, typ, x.next)
	}
	if err != nil {
		return nil, err
	}
	a, err := wishbone.NewAdapter(r, regs)
	if err != nil {
		return nil, err
	}
	x.slaves = append(x.slaves, a)
	return a, nil
}

// AddMaster registers a named bus master. Masters are arbitrated in
// registration order.
//
func (x *Context) AddMaster(name string) error {
	for _, m := range x.masters {
		if m == name {
			return errors.Errorf("duplicate bus master name %s", name)
		}
	}
	x.masters = append(x.masters, name)
	return nil
}

// Slaves returns the slave adapters in registration order.
//
func (x *Context) Slaves() []*wishbone.Adapter { return x.slaves }

// Masters returns the master names in registration order.
//
func (x *Context) Masters() []string { return x.masters }

// Regions returns the reserved address regions in registration order.
//
func (x *Context) Regions() []wishbone.Region { return x.addrMap.Regions() }

// Signals returns the signal registry.
//
func (x *Context) Signals() *Registry { return &x.signals }

// Add adds parts to the system.
//
func (x *Context) Add(parts ...hwsoc.Part) { x.parts = append(x.parts, parts...) }

// Parts returns all parts added so far.
//
func (x *Context) Parts() hwsoc.Parts { return x.parts }

// Interconnect returns the shared bus part connecting every registered master
// to every registered slave.
//
func (x *Context) Interconnect(arb wishbone.Arbitration) hwsoc.Part {
	var conns []string
	for _, m := range x.masters {
		conns = append(conns, wishbone.MasterInterface(m).Wires(MasterBus(m)))
	}
	regions := make([]wishbone.Region, len(x.slaves))
	for i, s := range x.slaves {
		regions[i] = s.Region()
		conns = append(conns, wishbone.SlaveInterface(regions[i]).Wires(SlaveBus(regions[i].Name)))
	}
	return wishbone.Interconnect(x.masters, regions, arb)(strings.Join(conns, ", "))
}
