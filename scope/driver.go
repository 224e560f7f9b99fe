// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package scope

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// A Trigger builds the value/mask pair of a trigger condition.
//
type Trigger struct {
	probes []Probe
	value  *bitset.BitSet
	mask   *bitset.BitSet
}

// NewTrigger returns a trigger that fires immediately for a sample made of
// the given probes.
//
func NewTrigger(probes []Probe) *Trigger {
	n := uint(32 * Words(probes))
	return &Trigger{probes: probes, value: bitset.New(n), mask: bitset.New(n)}
}

func (t *Trigger) offset(name string) (int, int, error) {
	off := 0
	for _, p := range t.probes {
		if p.Name == name {
			return off, p.Width, nil
		}
		off += p.Width
	}
	return 0, 0, errors.Errorf("no probe named %s", name)
}

// Equal adds the condition that the named probe equals v.
//
func (t *Trigger) Equal(name string, v uint64) error {
	return t.Match(name, v, ^uint64(0))
}

// Match adds the condition that the bits of the named probe selected by mask
// equal those of v.
//
func (t *Trigger) Match(name string, v, mask uint64) error {
	off, w, err := t.offset(name)
	if err != nil {
		return err
	}
	for i := 0; i < w && i < 64; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		t.mask.Set(uint(off + i))
		t.value.SetTo(uint(off+i), v&(1<<uint(i)) != 0)
	}
	return nil
}

// Words returns the trigger value and mask as 32 bits register words.
//
func (t *Trigger) Words() (value, mask []uint32) {
	k := Words(t.probes)
	value, mask = make([]uint32, k), make([]uint32, k)
	for i := 0; i < k; i++ {
		value[i], mask[i] = word(t.value, i), word(t.mask, i)
	}
	return value, mask
}

type burstReader interface {
	ReadN(addr uint32, n int) ([]uint32, error)
}

type burstWriter interface {
	WriteN(addr uint32, words []uint32) error
}

// A Driver controls a capture unit from the host.
//
type Driver struct {
	bus    wishbone.Accessor
	base   uint32
	probes []Probe
	words  int
}

// NewDriver returns a driver for the capture unit at base sampling the given
// probes. Accessors implementing ReadN and WriteN are used for burst
// transfers.
//
func NewDriver(bus wishbone.Accessor, base uint32, probes []Probe) *Driver {
	return &Driver{bus: bus, base: base, probes: probes, words: Words(probes)}
}

func (d *Driver) read(off uint32) (uint32, error) { return d.bus.Read(d.base + off) }

func (d *Driver) write(off, v uint32) error { return d.bus.Write(d.base+off, v) }

func (d *Driver) readN(off uint32, n int) ([]uint32, error) {
	if b, ok := d.bus.(burstReader); ok {
		return b.ReadN(d.base+off, n)
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := d.read(off + 4*uint32(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Driver) writeN(off uint32, words []uint32) error {
	if b, ok := d.bus.(burstWriter); ok {
		return b.WriteN(d.base+off, words)
	}
	for i, w := range words {
		if err := d.write(off+4*uint32(i), w); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies that the unit's depth and sample width match the driver's
// probes and returns the depth.
//
func (d *Driver) Check() (int, error) {
	depth, err := d.read(RegDepth)
	if err != nil {
		return 0, err
	}
	width, err := d.read(RegWidth)
	if err != nil {
		return 0, err
	}
	w := 0
	for _, p := range d.probes {
		w += p.Width
	}
	if int(width) != w {
		return 0, errors.Errorf("sample width mismatch: unit has %d bits, probes have %d", width, w)
	}
	return int(depth), nil
}

// SetTrigger writes the trigger condition.
//
func (d *Driver) SetTrigger(t *Trigger) error {
	value, mask := t.Words()
	vOff, mOff, _ := Layout(d.words)
	if err := d.writeN(vOff, value); err != nil {
		return errors.Wrap(err, "set trigger value")
	}
	return errors.Wrap(d.writeN(mOff, mask), "set trigger mask")
}

// SetPostTrigger sets the number of samples captured after the trigger. It
// takes effect on the next Arm.
//
func (d *Driver) SetPostTrigger(n int) error { return d.write(RegPost, uint32(n)) }

// Arm empties the buffer and arms the trigger.
//
func (d *Driver) Arm() error { return d.write(RegArm, 1) }

// State returns the capture state.
//
func (d *Driver) State() (State, error) {
	v, err := d.read(RegState)
	return State(v), err
}

// Wait polls the unit until it is frozen, at most polls times.
//
func (d *Driver) Wait(polls int) error {
	for i := 0; i < polls; i++ {
		s, err := d.State()
		if err != nil {
			return err
		}
		if s == Frozen {
			return nil
		}
	}
	return errors.Errorf("capture not frozen after %d polls", polls)
}

// Upload reads back the captured window. The unit should be frozen.
//
func (d *Driver) Upload() (*Capture, error) {
	n, err := d.read(RegLength)
	if err != nil {
		return nil, err
	}
	pos, err := d.read(RegTrigPos)
	if err != nil {
		return nil, err
	}
	_, _, dOff := Layout(d.words)
	c := &Capture{Probes: d.probes, TriggerPos: int(pos)}
	for i := 0; i < int(n); i++ {
		if err = d.write(RegReadIndex, uint32(i)); err != nil {
			return nil, err
		}
		words, err := d.readN(dOff, d.words)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		c.Samples = append(c.Samples, decode(d.probes, words))
	}
	return c, nil
}

// decode splits a raw sample into per-probe values.
//
func decode(probes []Probe, words []uint32) []uint64 {
	out := make([]uint64, len(probes))
	off := 0
	for i, p := range probes {
		var v uint64
		for b := 0; b < p.Width && b < 64; b++ {
			bit := off + b
			if words[bit/32]&(1<<uint(bit%32)) != 0 {
				v |= 1 << uint(b)
			}
		}
		out[i] = v
		off += p.Width
	}
	return out
}
