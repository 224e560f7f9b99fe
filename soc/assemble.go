// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package soc assembles complete systems from a configuration: a clock/reset
// generator, the cores with their bus slaves, serial bus bridges, a shared
// bus interconnect and a logic analyzer observing the configured signals.
//
// Assembly is all or nothing: Assemble either returns a complete System or
// an error, usually a *ConfigurationError naming the offending key.
//
package soc

import (
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	"github.com/db47h/hwsoc/core"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/scope"
	"github.com/db47h/hwsoc/uartbridge"
	"github.com/db47h/hwsoc/vcd"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Lowest address of automatically allocated regions.
const autoBase = 0x1000

// DefaultStepsPerCycle is the default number of simulation steps per clock
// cycle.
const DefaultStepsPerCycle = 16

// Options control how a system is assembled and simulated.
//
// The Reset, Input and Output functions drive the board pads. They are
// called from the simulation's worker goroutines.
//
type Options struct {
	Sim           bool // use clk_sim as the system clock
	Workers       int  // simulation worker goroutines, 0 for GOMAXPROCS
	StepsPerCycle uint

	Reset  func() bool              // external reset pad, nil for never
	Input  func(core string) uint64 // input pads of the named core, nil for 0
	Output func(core string, v uint64)

	// When Trace is not nil, the signals observed by the analyzer are dumped
	// to it as a VCD in the cycle range [TraceStart, TraceEnd]. A negative
	// TraceEnd traces until the end of the simulation.
	Trace      io.Writer
	TraceStart int64
	TraceEnd   int64
}

// A System is an assembled system.
//
type System struct {
	Name        string
	Clock       build.ClockDomain
	Arbitration wishbone.Arbitration
	Context     *build.Context
	Circuit     *hwsoc.Circuit

	Cores    []*core.Core
	Bridges  []*uartbridge.Bridge
	Hosts    []*uartbridge.Host // serial peer of each bridge
	Analyzer *scope.Analyzer
	Observed []build.Signal // signals sampled by the analyzer
	Pads     []Pad
	csvName  string

	trace *vcd.Writer
}

// A Pad is a top-level input or output of the system.
//
type Pad struct {
	Name   string
	Width  int
	Output bool
}

func padName(i int, core, pad string) string {
	if i == 0 {
		return pad
	}
	return core + "_" + pad
}

// Assemble builds the system described by cfg. cfg must have been returned
// by Parse or Load.
//
func Assemble(cfg *Config, opts Options) (*System, error) {
	clk := cfg.Clock(opts.Sim)
	arb, err := wishbone.ParseArbitration(cfg.Arbitration)
	if err != nil {
		return nil, configError("arbitration", "%v", err)
	}
	placements := make(map[string]build.Placement)
	for _, k := range cfg.Cores {
		if k.Base != nil {
			placements[k.Name] = build.Placement{Base: *k.Base, Size: k.Size}
		}
	}
	if a := cfg.Analyzer; a.Base != nil {
		placements[a.Name] = build.Placement{Base: *a.Base}
	}
	ctx := build.NewContext(build.ClockDomain{Name: "sys", Freq: clk}, placements, autoBase)
	s := &System{
		Name:        cfg.Name,
		Clock:       ctx.Clock,
		Arbitration: arb,
		Context:     ctx,
		csvName:     cfg.Analyzer.CSV,
	}
	if err = addCRG(ctx, cfg.ResetCycles); err != nil {
		return nil, err
	}
	var platform hwsoc.Parts
	reset := opts.Reset
	if reset == nil {
		reset = func() bool { return false }
	}
	platform = append(platform, hl.Input(reset)("out="+resetPad))
	s.Pads = append(s.Pads, Pad{Name: resetPad, Width: 1})

	for i, kc := range cfg.Cores {
		in, out := padName(i, kc.Name, "input_bus"), padName(i, kc.Name, "output_bus")
		k, err := core.New(ctx, kc.Name, in, out)
		if err != nil {
			return nil, configError("cores["+strconv.Itoa(i)+"]", "%v", err)
		}
		s.Cores = append(s.Cores, k)
		s.Pads = append(s.Pads, Pad{Name: in, Width: core.DataWidth}, Pad{Name: out, Width: core.DataWidth, Output: true})
		name := kc.Name
		input := func() uint64 { return 0 }
		if opts.Input != nil {
			input = func() uint64 { return opts.Input(name) }
		}
		platform = append(platform, hl.InputN(core.DataWidth, input)("out="+in))
		if opts.Output != nil {
			platform = append(platform, hl.OutputN(core.DataWidth, func(v uint64) { opts.Output(name, v) })("in="+out))
		}
	}

	for i, bc := range cfg.Bridges {
		div := uartbridge.ClocksPerBit(clk, bc.Baudrate)
		b, err := uartbridge.Add(ctx, uartbridge.Config{Name: bc.Name, ClocksPerBit: div})
		if err != nil {
			return nil, configError("bridges["+strconv.Itoa(i)+"]", "%v", err)
		}
		h := uartbridge.NewHost(bc.Name+"_host", div)
		s.Bridges = append(s.Bridges, b)
		s.Hosts = append(s.Hosts, h)
		s.Pads = append(s.Pads, Pad{Name: b.RXWire(), Width: 1}, Pad{Name: b.TXWire(), Width: 1, Output: true})
		platform = append(platform, h.Part("tx="+b.RXWire()+", rx="+b.TXWire()))
	}

	ac := cfg.Analyzer
	seen := make(map[string]bool)
	for i, ref := range ac.Signals {
		sigs, err := ctx.Signals().Resolve(ref)
		if err != nil {
			return nil, configError("analyzer.signals["+strconv.Itoa(i)+"]", "%v", err)
		}
		for _, sig := range sigs {
			if !seen[sig.Name] {
				seen[sig.Name] = true
				s.Observed = append(s.Observed, sig)
			}
		}
	}
	s.Analyzer, err = scope.New(ctx, scope.Config{
		Name:        ac.Name,
		Depth:       ac.Depth,
		PostTrigger: *ac.PostTrigger,
		Signals:     s.Observed,
	})
	if err != nil {
		return nil, configError("analyzer", "%v", err)
	}

	ctx.Add(ctx.Interconnect(arb))
	for _, r := range ctx.Regions() {
		log.WithFields(log.Fields{"base": hex(r.Base), "size": hex(r.Size), "type": r.Type}).Debug("region ", r.Name)
	}
	for i, m := range ctx.Masters() {
		log.WithFields(log.Fields{"index": i, "arbitration": arb}).Debug("master ", m)
	}

	if opts.Trace != nil {
		vars := make([]vcd.Var, len(s.Observed))
		for i, sig := range s.Observed {
			vars[i] = vcd.Var{Name: sig.Name, Width: sig.Width}
		}
		s.trace = vcd.NewWriter(opts.Trace, "1ps", vars)
		conns, _ := build.Probe("probe", s.Observed)
		cs := make([]string, len(conns))
		for i, c := range conns {
			cs[i] = c.PP + "=" + c.CP
		}
		platform = append(platform, vcd.Tracer(s.trace, 1e12/clk, opts.TraceStart, opts.TraceEnd)(strings.Join(cs, ", ")))
	}

	spc := opts.StepsPerCycle
	if spc == 0 {
		spc = DefaultStepsPerCycle
	}
	parts := append(append(hwsoc.Parts(nil), ctx.Parts()...), platform...)
	s.Circuit, err = hwsoc.NewCircuit(opts.Workers, spc, parts)
	if err != nil {
		return nil, errors.Wrap(err, "assemble "+cfg.Name)
	}
	for _, h := range s.Hosts {
		h.Attach(s.Circuit)
	}
	log.WithFields(log.Fields{"components": s.Circuit.Size(), "clock": clk}).Debug("assembled ", cfg.Name)
	return s, nil
}

func hex(v uint32) string { return "0x" + strconv.FormatUint(uint64(v), 16) }

// Client returns a bus client talking to the named bridge through its
// simulated serial peer.
//
func (s *System) Client(bridge string) (*uartbridge.Client, error) {
	for i, b := range s.Bridges {
		if b.Name() == bridge {
			return uartbridge.NewClient(s.Hosts[i]), nil
		}
	}
	return nil, errors.Errorf("no bridge named %s", bridge)
}

// Region returns the address region of the named slave.
//
func (s *System) Region(name string) (wishbone.Region, bool) {
	for _, r := range s.Context.Regions() {
		if r.Name == name {
			return r, true
		}
	}
	return wishbone.Region{}, false
}

// Run simulates the system for the given number of clock cycles.
//
func (s *System) Run(cycles int) error {
	s.Circuit.Run(cycles)
	if s.trace != nil {
		return s.trace.Flush()
	}
	return nil
}

// Close flushes the trace, if any, and releases the simulation's resources.
//
func (s *System) Close() error {
	var err error
	if s.trace != nil {
		err = s.trace.Flush()
	}
	s.Circuit.Dispose()
	return err
}
