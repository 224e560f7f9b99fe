// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package scope implements an on-chip logic analyzer: a bus mapped signal
// capture unit sampling a set of signals every clock cycle into a circular
// buffer, freezing a window of samples around a trigger condition for the
// host to read back.
//
// Capture runs through the states ARMED, CAPTURING, TRIGGERED_DRAINING and
// FROZEN. Arming empties the buffer. While ARMED the unit collects the
// pre-trigger samples (depth - post - 1), then evaluates the trigger on every
// sample while CAPTURING. Without pre-trigger samples, the unit stays ARMED
// until the next sample, which is the first one checked against the trigger. Once the trigger fires, post more samples are
// collected before the buffer freezes with the triggering sample at position
// depth - post - 1. Nothing is written to a frozen buffer until it is
// re-armed.
//
// The trigger is a value/mask pair over the full sample: it fires when
// sample & mask == value & mask. An all-zero mask triggers immediately.
//
package scope

import (
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// State is the state of a capture unit.
//
type State int

// Capture states. The power-on state is Frozen with an empty window.
const (
	Frozen State = iota
	Armed
	Capturing
	TriggeredDraining
)

var stateNames = [...]string{"FROZEN", "ARMED", "CAPTURING", "TRIGGERED_DRAINING"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Register offsets. Trigger value, trigger mask and read data registers
// follow at RegTrigValue, one word per 32 bits of sample width each.
const (
	RegArm       = 0x00
	RegState     = 0x04
	RegPost      = 0x08
	RegLength    = 0x0c
	RegTrigPos   = 0x10
	RegReadIndex = 0x14
	RegDepth     = 0x18
	RegWidth     = 0x1c
	RegTrigValue = 0x20
)

// A Probe is a named group of sampled bits.
//
type Probe struct {
	Name  string
	Width int
}

// Words returns the number of 32 bits words spanned by a sample of the given
// probes.
//
func Words(probes []Probe) int {
	w := 0
	for _, p := range probes {
		w += p.Width
	}
	return (w + 31) / 32
}

// Layout returns the register offsets of the trigger value, trigger mask and
// read data banks for a sample of k words.
//
func Layout(k int) (value, mask, data uint32) {
	return RegTrigValue, RegTrigValue + 4*uint32(k), RegTrigValue + 8*uint32(k)
}

// capture is the capture state machine.
//
type capture struct {
	buf      *Buffer
	state    State
	post     int
	pre      int
	drained  int
	trigSlot int
	trigged  bool
}

func (c *capture) reset() {
	c.buf.Reset()
	c.state, c.trigged = Frozen, false
}

func (c *capture) arm(post int) {
	if post > c.buf.Depth()-1 {
		post = c.buf.Depth() - 1
	}
	c.buf.Reset()
	c.post, c.pre = post, c.buf.Depth()-post-1
	c.drained, c.trigged = 0, false
	c.state = Armed
}

func (c *capture) sample(s *bitset.BitSet, match func(*bitset.BitSet) bool) {
	if c.state == Armed {
		if c.pre > 0 {
			c.buf.Push(s)
			if c.buf.Len() >= c.pre {
				c.state = Capturing
			}
			return
		}
		// no pre-trigger window: this sample is the first trigger candidate.
		c.state = Capturing
	}
	switch c.state {
	case Capturing:
		slot := c.buf.Push(s)
		if match(s) {
			c.trigSlot, c.trigged = slot, true
			c.state = TriggeredDraining
			if c.post == 0 {
				c.state = Frozen
			}
		}
	case TriggeredDraining:
		c.buf.Push(s)
		if c.drained++; c.drained >= c.post {
			c.state = Frozen
		}
	}
}

func (c *capture) trigPos() int {
	if !c.trigged {
		return 0
	}
	return c.buf.Position(c.trigSlot)
}

// Config configures a capture unit.
//
type Config struct {
	Name        string
	Depth       int
	PostTrigger int
	Signals     []build.Signal
}

// An Analyzer is a mounted capture unit.
//
type Analyzer struct {
	name    string
	probes  []Probe
	words   int
	cap     capture
	adapter *wishbone.Adapter

	value, mask []*wishbone.Register
}

// New creates a capture unit sampling the given signals, registers its bus
// slave with ctx and adds its part.
//
func New(ctx *build.Context, cfg Config) (*Analyzer, error) {
	if cfg.Depth < 2 {
		return nil, errors.Errorf("analyzer %s: invalid depth %d", cfg.Name, cfg.Depth)
	}
	if cfg.PostTrigger < 0 || cfg.PostTrigger >= cfg.Depth {
		return nil, errors.Errorf("analyzer %s: post trigger count %d out of range [0, %d)", cfg.Name, cfg.PostTrigger, cfg.Depth)
	}
	if len(cfg.Signals) == 0 {
		return nil, errors.Errorf("analyzer %s: no signals", cfg.Name)
	}
	a := &Analyzer{name: cfg.Name}
	for _, s := range cfg.Signals {
		a.probes = append(a.probes, Probe{Name: s.Name, Width: s.Width})
	}
	cs, width := build.Probe("probe", cfg.Signals)
	a.words = Words(a.probes)
	a.cap.buf = NewBuffer(cfg.Depth, uint(width))

	regs := []*wishbone.Register{
		wishbone.NewAction("arm", RegArm, 1, func(uint32) { a.cap.arm(int(a.adapter.Register("post").Value())) }, "Write to empty the buffer and arm the trigger."),
		wishbone.NewStatus("state", RegState, 2, func() uint32 { return uint32(a.cap.state) }, "Capture state: 0 frozen, 1 armed, 2 capturing, 3 triggered."),
		wishbone.NewStorage("post", RegPost, 16, uint32(cfg.PostTrigger), "Number of samples captured after the trigger, latched when armed."),
		wishbone.NewStatus("length", RegLength, 16, func() uint32 { return uint32(a.cap.buf.Len()) }, "Number of valid samples in the window."),
		wishbone.NewStatus("trig_pos", RegTrigPos, 16, func() uint32 { return uint32(a.cap.trigPos()) }, "Position of the triggering sample in the window."),
		wishbone.NewStorage("read_index", RegReadIndex, 16, 0, "Window position selected for read_data."),
		wishbone.NewStatus("depth", RegDepth, 16, func() uint32 { return uint32(cfg.Depth) }, "Buffer depth in samples."),
		wishbone.NewStatus("width", RegWidth, 16, func() uint32 { return uint32(width) }, "Sample width in bits."),
	}
	vOff, mOff, dOff := Layout(a.words)
	for k := 0; k < a.words; k++ {
		k := k
		sfx := strconv.Itoa(k)
		a.value = append(a.value, wishbone.NewStorage("trig_value"+sfx, vOff+4*uint32(k), 32, 0, "Trigger value, sample bits "+bitRange(k, width)+"."))
		a.mask = append(a.mask, wishbone.NewStorage("trig_mask"+sfx, mOff+4*uint32(k), 32, 0, "Trigger mask, sample bits "+bitRange(k, width)+"."))
		regs = append(regs, wishbone.NewStatus("read_data"+sfx, dOff+4*uint32(k), 32, func() uint32 {
			return a.cap.buf.Word(int(a.adapter.Register("read_index").Value()), k)
		}, "Selected sample, bits "+bitRange(k, width)+"."))
	}
	regs = append(regs, a.value...)
	regs = append(regs, a.mask...)

	ad, err := ctx.AddSlave(cfg.Name, wishbone.IO, regs)
	if err != nil {
		return nil, errors.Wrapf(err, "analyzer %s", cfg.Name)
	}
	a.adapter = ad

	conns := wishbone.Interface{Name: "bus"}.Wires(build.SlaveBus(cfg.Name)) + ", rst=" + build.ResetWire
	more, err := hwsoc.ParseConnections(conns)
	if err != nil {
		return nil, errors.Wrapf(err, "analyzer %s", cfg.Name)
	}
	ctx.Add(a.part(width).Wire(append(cs, more...)))
	return a, nil
}

func bitRange(k, width int) string {
	hi := 32*k + 31
	if hi >= width {
		hi = width - 1
	}
	return strconv.Itoa(32*k) + "-" + strconv.Itoa(hi)
}

func (a *Analyzer) part(width int) *hwsoc.PartSpec {
	bus := wishbone.Interface{Name: "bus"}
	ins := append(hwsoc.IO("probe["+strconv.Itoa(width)+"], rst"), bus.Request()...)
	return &hwsoc.PartSpec{
		Name:    "Analyzer(" + a.name + ")",
		Inputs:  ins,
		Outputs: bus.Response(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			probe, rst, slave := s.Bus("probe", width), s.Pin("rst"), bus.BindSlave(s)
			smp := bitset.New(uint(width))
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				r := c.Get(rst)
				if c.AtTick() {
					if r {
						a.cap.reset()
						a.adapter.Reset()
					} else if a.cap.state != Frozen {
						for i, p := range probe {
							smp.SetTo(uint(i), c.Get(p))
						}
						a.cap.sample(smp, a.match)
					}
				}
				slave.Update(c, a.adapter, r)
			}}
		}}
}

func (a *Analyzer) match(s *bitset.BitSet) bool {
	for k := range a.mask {
		m := a.mask[k].Value()
		if word(s, k)&m != a.value[k].Value()&m {
			return false
		}
	}
	return true
}

// Name returns the analyzer name.
//
func (a *Analyzer) Name() string { return a.name }

// Probes returns the sampled probes in sample order.
//
func (a *Analyzer) Probes() []Probe { return a.probes }

// Depth returns the buffer depth.
//
func (a *Analyzer) Depth() int { return a.cap.buf.Depth() }

// PostTrigger returns the power-on post trigger count.
//
func (a *Analyzer) PostTrigger() int { return int(a.adapter.Register("post").Reset) }

// Adapter returns the analyzer's bus slave adapter.
//
func (a *Analyzer) Adapter() *wishbone.Adapter { return a.adapter }

// State returns the capture state.
//
func (a *Analyzer) State() State { return a.cap.state }

// Buffer returns the sample buffer.
//
func (a *Analyzer) Buffer() *Buffer { return a.cap.buf }
