// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import (
	"sort"

	"github.com/pkg/errors"
)

// Access is the bus access mode of a register.
//
type Access int

// Access modes.
const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	}
	return "rw"
}

// A Register is a single 32 bits word in a slave's address window.
//
// Storage registers are written by the bus and read by the hardware. Status
// registers are produced by the hardware and read by the bus. Action
// registers call a function on every bus write.
//
type Register struct {
	Name   string
	Offset uint32 // byte offset, multiple of 4
	Width  int
	Access Access
	Reset  uint32
	Doc    string

	value  uint32
	status func() uint32
	action func(uint32)
}

// NewStorage returns a read/write register holding its last written value.
//
func NewStorage(name string, offset uint32, width int, reset uint32, doc string) *Register {
	r := &Register{Name: name, Offset: offset, Width: width, Access: ReadWrite, Reset: reset, Doc: doc}
	r.value = reset & r.mask()
	return r
}

// NewStatus returns a read-only register whose value is produced by fn.
//
func NewStatus(name string, offset uint32, width int, fn func() uint32, doc string) *Register {
	return &Register{Name: name, Offset: offset, Width: width, Access: ReadOnly, Doc: doc, status: fn}
}

// NewAction returns a write-only register calling fn with every written value.
//
func NewAction(name string, offset uint32, width int, fn func(uint32), doc string) *Register {
	return &Register{Name: name, Offset: offset, Width: width, Access: WriteOnly, Doc: doc, action: fn}
}

func (r *Register) mask() uint32 {
	if r.Width >= 32 {
		return 0xffffffff
	}
	return 1<<uint(r.Width) - 1
}

// Value returns the current value of a storage register, or the value
// produced by a status register.
//
func (r *Register) Value() uint32 {
	if r.status != nil {
		return r.status() & r.mask()
	}
	return r.value
}

func (r *Register) write(v uint32) {
	v &= r.mask()
	switch {
	case r.action != nil:
		r.action(v)
	case r.Access == ReadWrite:
		r.value = v
	}
}

// Footprint returns the number of bytes spanned by regs.
//
func Footprint(regs []*Register) uint32 {
	var end uint32
	for _, r := range regs {
		if e := r.Offset + 4; e > end {
			end = e
		}
	}
	return end
}

// An Adapter maps a set of registers onto an address region. All bus
// accesses to the registers go through Handle.
//
type Adapter struct {
	region Region
	regs   []*Register
	byOff  map[uint32]*Register
}

// NewAdapter returns a new adapter exposing regs in region r.
//
func NewAdapter(r Region, regs []*Register) (*Adapter, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	a := &Adapter{region: r, byOff: make(map[uint32]*Register, len(regs))}
	for _, reg := range regs {
		switch {
		case reg.Offset&3 != 0:
			return nil, errors.Errorf("%s: register %s: offset 0x%x is not word aligned", r.Name, reg.Name, reg.Offset)
		case reg.Width < 1 || reg.Width > DataWidth:
			return nil, errors.Errorf("%s: register %s: invalid width %d", r.Name, reg.Name, reg.Width)
		case reg.Offset >= r.Size:
			return nil, errors.Errorf("%s: register %s: offset 0x%x outside of region size 0x%x", r.Name, reg.Name, reg.Offset, r.Size)
		}
		if o, ok := a.byOff[reg.Offset]; ok {
			return nil, errors.Errorf("%s: registers %s and %s share offset 0x%x", r.Name, o.Name, reg.Name, reg.Offset)
		}
		a.byOff[reg.Offset] = reg
		a.regs = append(a.regs, reg)
	}
	sort.Slice(a.regs, func(i, j int) bool { return a.regs[i].Offset < a.regs[j].Offset })
	return a, nil
}

// Region returns the address region of a.
//
func (a *Adapter) Region() Region { return a.region }

// Registers returns the registers of a sorted by offset.
//
func (a *Adapter) Registers() []*Register { return a.regs }

// Register returns the named register or nil.
//
func (a *Adapter) Register(name string) *Register {
	for _, r := range a.regs {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Reset restores storage registers to their reset value.
//
func (a *Adapter) Reset() {
	for _, r := range a.regs {
		r.value = r.Reset & r.mask()
	}
}

// Handle services a bus transaction. Transactions without strobe or with an
// address outside of the adapter's region are returned unacknowledged.
// Addresses are decoded relative to the region base on 32 bits word
// boundaries. Unmapped words within the region read as zero and ignore
// writes. Writes to read-only registers are acknowledged and ignored.
//
func (a *Adapter) Handle(tx Transaction) Transaction {
	tx.Ack = false
	if !tx.Stb || !a.region.Contains(tx.Addr) {
		return tx
	}
	reg := a.byOff[(tx.Addr-a.region.Base)&^3]
	if tx.We {
		if reg != nil {
			reg.write(tx.DatW)
		}
	} else {
		tx.DatR = 0
		if reg != nil && reg.Access != WriteOnly {
			tx.DatR = reg.Value()
		}
	}
	tx.Ack = true
	return tx
}
