// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package wishbone implements a shared, address-mapped register bus: slave
// adapters exposing a core's registers, an interconnect arbitrating between
// masters and decoding addresses to slaves, and a Go driven bus master.
//
// A bus interface carries a 32 bits byte address (adr), write data (dat_w),
// read data (dat_r), a write enable (we), a strobe (stb) signalling a valid
// transaction and an acknowledge (ack). A master holds stb and the request
// lines until it sees ack, then drops stb for at least one cycle. A slave
// acknowledges every accepted transaction exactly once. Transactions to
// addresses not mapped to any slave are never acknowledged; masters bound the
// wait with a timeout.
//
package wishbone

import (
	"fmt"

	"github.com/db47h/hwsoc"
	"github.com/pkg/errors"
)

// Bus widths.
const (
	AddrWidth = 32
	DataWidth = 32
)

// ErrTimeout is returned by masters when a transaction is not acknowledged in
// time.
var ErrTimeout = errors.New("bus access timed out")

// A Transaction is a single bus access.
//
type Transaction struct {
	Addr uint32
	DatW uint32
	DatR uint32
	We   bool
	Stb  bool
	Ack  bool
}

func (t Transaction) String() string {
	if t.We {
		return fmt.Sprintf("write 0x%08x <- 0x%08x (ack=%v)", t.Addr, t.DatW, t.Ack)
	}
	return fmt.Sprintf("read 0x%08x -> 0x%08x (ack=%v)", t.Addr, t.DatR, t.Ack)
}

// A Handler services bus transactions.
//
type Handler interface {
	Handle(tx Transaction) Transaction
}

// An Accessor issues register reads and writes on a bus from the host side.
//
type Accessor interface {
	Read(addr uint32) (uint32, error)
	Write(addr uint32, v uint32) error
}

// Interface names the pins of a bus port. Pins are <name>_adr[32],
// <name>_dat_w[32], <name>_dat_r[32], <name>_we, <name>_stb and <name>_ack.
// An empty name yields unprefixed pin names.
//
type Interface struct {
	Name string
}

func (i Interface) pin(n string) string {
	if i.Name == "" {
		return n
	}
	return i.Name + "_" + n
}

// Adr returns the name of the address bus.
func (i Interface) Adr() string { return i.pin("adr") }

// DatW returns the name of the write data bus.
func (i Interface) DatW() string { return i.pin("dat_w") }

// DatR returns the name of the read data bus.
func (i Interface) DatR() string { return i.pin("dat_r") }

// We returns the name of the write enable pin.
func (i Interface) We() string { return i.pin("we") }

// Stb returns the name of the strobe pin.
func (i Interface) Stb() string { return i.pin("stb") }

// Ack returns the name of the acknowledge pin.
func (i Interface) Ack() string { return i.pin("ack") }

// Request returns the expanded names of the pins driven by a master.
//
func (i Interface) Request() []string {
	pins := hwsoc.IO(fmt.Sprintf("%s[%d], %s[%d]", i.Adr(), AddrWidth, i.DatW(), DataWidth))
	return append(pins, i.We(), i.Stb())
}

// Response returns the expanded names of the pins driven by a slave.
//
func (i Interface) Response() []string {
	pins := hwsoc.IO(fmt.Sprintf("%s[%d]", i.DatR(), DataWidth))
	return append(pins, i.Ack())
}

// Wires returns a connection string mapping the pins of i, as declared by a
// part, onto the wires of w.
//
func (i Interface) Wires(w Interface) string {
	return fmt.Sprintf("%s=%s, %s=%s, %s=%s, %s=%s, %s=%s, %s=%s",
		i.Adr(), w.Adr(), i.DatW(), w.DatW(), i.DatR(), w.DatR(),
		i.We(), w.We(), i.Stb(), w.Stb(), i.Ack(), w.Ack())
}

// Signals returns the names and widths of the bus signals, in the order
// adr, dat_w, dat_r, we, stb, ack.
//
func (i Interface) Signals() (names []string, widths []int) {
	return []string{i.Adr(), i.DatW(), i.DatR(), i.We(), i.Stb(), i.Ack()},
		[]int{AddrWidth, DataWidth, DataWidth, 1, 1, 1}
}

// MasterPort holds the pins of a master side bus interface.
//
type MasterPort struct {
	adr, datW, datR []int
	we, stb, ack    int
}

// BindMaster looks up the pins of a master interface in socket s.
//
func (i Interface) BindMaster(s *hwsoc.Socket) *MasterPort {
	return &MasterPort{
		adr:  s.Bus(i.Adr(), AddrWidth),
		datW: s.Bus(i.DatW(), DataWidth),
		datR: s.Bus(i.DatR(), DataWidth),
		we:   s.Pin(i.We()),
		stb:  s.Pin(i.Stb()),
		ack:  s.Pin(i.Ack()),
	}
}

// Drive drives the request lines. A nil tx releases the bus.
//
func (p *MasterPort) Drive(c *hwsoc.Circuit, tx *Transaction) {
	if tx == nil {
		c.SetInt(p.adr, 0)
		c.SetInt(p.datW, 0)
		c.Set(p.we, false)
		c.Set(p.stb, false)
		return
	}
	c.SetInt(p.adr, uint64(tx.Addr))
	c.SetInt(p.datW, uint64(tx.DatW))
	c.Set(p.we, tx.We)
	c.Set(p.stb, true)
}

// Ack returns the state of the ack pin.
//
func (p *MasterPort) Ack(c *hwsoc.Circuit) bool { return c.Get(p.ack) }

// DatR returns the read data.
//
func (p *MasterPort) DatR(c *hwsoc.Circuit) uint32 { return uint32(c.GetInt(p.datR)) }
