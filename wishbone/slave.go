// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import "github.com/db47h/hwsoc"

// SlavePort runs the slave side of the bus protocol for a part.
//
type SlavePort struct {
	adr, datW, datR []int
	we, stb, ack    int

	acked bool
	datRv uint32
}

// BindSlave looks up the pins of a slave interface in socket s.
//
func (i Interface) BindSlave(s *hwsoc.Socket) *SlavePort {
	return &SlavePort{
		adr:  s.Bus(i.Adr(), AddrWidth),
		datW: s.Bus(i.DatW(), DataWidth),
		datR: s.Bus(i.DatR(), DataWidth),
		we:   s.Pin(i.We()),
		stb:  s.Pin(i.Stb()),
		ack:  s.Pin(i.Ack()),
	}
}

// Update must be called by the owning component on every step. On a rising
// edge where the strobe is asserted and the previous transaction is not being
// acknowledged, the request is passed to h; ack is asserted for one cycle if h
// accepts it. rst clears the pending acknowledge.
//
func (p *SlavePort) Update(c *hwsoc.Circuit, h Handler, rst bool) {
	if c.AtTick() {
		switch {
		case rst || !c.Get(p.stb) || p.acked:
			p.acked = false
			p.datRv = 0
		default:
			tx := h.Handle(Transaction{
				Addr: uint32(c.GetInt(p.adr)),
				DatW: uint32(c.GetInt(p.datW)),
				We:   c.Get(p.we),
				Stb:  true,
			})
			p.acked = tx.Ack
			p.datRv = 0
			if tx.Ack && !tx.We {
				p.datRv = tx.DatR
			}
		}
	}
	c.Set(p.ack, p.acked)
	c.SetInt(p.datR, uint64(p.datRv))
}

// Slave returns a part exposing h on a slave bus interface named "bus".
// rst clears any pending acknowledge.
//
//	Inputs: bus_adr[32], bus_dat_w[32], bus_we, bus_stb, rst
//	Outputs: bus_dat_r[32], bus_ack
//
func Slave(name string, h Handler) hwsoc.NewPartFn {
	bus := Interface{Name: "bus"}
	return (&hwsoc.PartSpec{
		Name:    name,
		Inputs:  append(bus.Request(), "rst"),
		Outputs: bus.Response(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p, rst := bus.BindSlave(s), s.Pin("rst")
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				p.Update(c, h, c.Get(rst))
			}}
		}}).NewPart
}
