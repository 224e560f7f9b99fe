// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultSimCycles is the default length of a simulation run.
const DefaultSimCycles = 100000

// An Invocation is a request to generate, build, load, flash, document or
// simulate the system described by a configuration file.
//
type Invocation struct {
	Config string

	Generate bool
	Build    bool
	Load     bool
	Flash    bool
	Doc      bool
	Sim      bool

	Trace      bool
	TraceStart int64
	TraceEnd   int64 // negative for the end of the simulation
	OptLevel   string
	Cycles     int

	OutputDir string
}

// Validate checks the invocation flags. It touches neither the configuration
// file nor the output directory.
//
func (inv *Invocation) Validate() error {
	if inv.Sim {
		var f []string
		for _, c := range []struct {
			set  bool
			flag string
		}{{inv.Build, "--build"}, {inv.Load, "--load"}, {inv.Flash, "--flash"}} {
			if c.set {
				f = append(f, c.flag)
			}
		}
		if len(f) > 0 {
			return &InvocationConflictError{Flags: append([]string{"--sim"}, f...)}
		}
	}
	if _, err := inv.Workers(); err != nil {
		return err
	}
	if inv.Trace && !inv.Sim {
		return errors.New("--trace requires --sim")
	}
	if inv.TraceStart < 0 || inv.TraceEnd >= 0 && inv.TraceEnd < inv.TraceStart {
		return errors.Errorf("invalid trace range [%d, %d]", inv.TraceStart, inv.TraceEnd)
	}
	if inv.Cycles < 0 {
		return errors.Errorf("invalid cycle count %d", inv.Cycles)
	}
	return nil
}

// Workers returns the number of simulation workers for the optimization
// level: O0 runs on a single goroutine, O3 on GOMAXPROCS.
//
func (inv *Invocation) Workers() (int, error) {
	switch inv.OptLevel {
	case "O0":
		return 1, nil
	case "O1":
		return 2, nil
	case "O2":
		return 4, nil
	case "", "O3":
		return 0, nil
	}
	return 0, errors.Errorf("invalid optimization level %q", inv.OptLevel)
}

func (inv *Invocation) outputDir() string {
	if inv.OutputDir == "" {
		return "build"
	}
	return inv.OutputDir
}

// Run validates the invocation, loads the configuration and runs the
// requested steps: build, flash and load, generate, then documentation. A
// simulation runs alone.
//
func (inv *Invocation) Run(ctx context.Context) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	cfg, err := Load(inv.Config)
	if err != nil {
		return err
	}
	if inv.Sim {
		if err = inv.simulate(cfg); err != nil {
			return err
		}
		if inv.Doc {
			return inv.document(cfg, true)
		}
		return nil
	}

	if !(inv.Generate || inv.Build || inv.Load || inv.Flash || inv.Doc) {
		log.Warn("nothing to do")
		return nil
	}
	if cfg.Vendor == "sim" && (inv.Generate || inv.Build || inv.Load || inv.Flash) {
		return configError("vendor", "vendor sim only supports --sim and --doc")
	}
	tc := NewToolchain(cfg, inv.outputDir())
	if inv.Build {
		// check the command before generating anything
		if _, err = tc.Command("build"); err != nil {
			return err
		}
		if err = inv.generate(cfg, tc); err != nil {
			return err
		}
		if err = tc.Run(ctx, "build"); err != nil {
			return err
		}
	}
	if inv.Flash {
		if err = tc.Run(ctx, "flash"); err != nil {
			return err
		}
	}
	if inv.Load {
		if err = tc.Run(ctx, "load"); err != nil {
			return err
		}
	}
	if inv.Generate && !inv.Build {
		if err = inv.generate(cfg, tc); err != nil {
			return err
		}
	}
	if inv.Doc {
		return inv.document(cfg, false)
	}
	return nil
}

// writeFile creates the named file and its directory and writes it with f.
//
func writeFile(name string, f func(w io.Writer) error) (err error) {
	if err = os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	fd, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer multierr.AppendInvoke(&err, multierr.Close(fd))
	bw := bufio.NewWriter(fd)
	if err = f(bw); err != nil {
		return errors.Wrap(err, name)
	}
	return errors.Wrap(bw.Flush(), name)
}

func (inv *Invocation) writeDebugFiles(s *System) error {
	dir := inv.outputDir()
	if err := writeFile(filepath.Join(dir, "csr.csv"), s.RegisterMap().WriteCSV); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, s.csvName), s.Analyzer.Describe().WriteCSV)
}

func (inv *Invocation) generate(cfg *Config, tc *Toolchain) (err error) {
	s, err := Assemble(cfg, Options{})
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.Close))
	if err = writeFile(tc.Netlist(), s.Netlist().WriteJSON); err != nil {
		return err
	}
	if err = inv.writeDebugFiles(s); err != nil {
		return err
	}
	log.WithField("netlist", tc.Netlist()).Info("generated ", cfg.Name)
	return nil
}

func (inv *Invocation) document(cfg *Config, sim bool) (err error) {
	s, err := Assemble(cfg, Options{Sim: sim})
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.Close))
	name := filepath.Join(inv.outputDir(), "doc", cfg.Name+".md")
	err = writeFile(name, func(w io.Writer) error {
		return s.RegisterMap().WriteMarkdown(w, cfg.Name)
	})
	if err == nil {
		log.WithField("file", name).Info("documentation generated")
	}
	return err
}

func (inv *Invocation) simulate(cfg *Config) (err error) {
	workers, _ := inv.Workers()
	opts := Options{Sim: true, Workers: workers, TraceStart: inv.TraceStart, TraceEnd: inv.TraceEnd}
	if inv.Trace {
		name := filepath.Join(inv.outputDir(), "gateware", "sim.vcd")
		if err = os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
		var f *os.File
		if f, err = os.Create(name); err != nil {
			return errors.Wrap(err, "create trace file")
		}
		defer multierr.AppendInvoke(&err, multierr.Close(f))
		opts.Trace = f
		log.WithField("file", name).Info("tracing enabled")
	}
	s, err := Assemble(cfg, opts)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.Close))
	if err = inv.writeDebugFiles(s); err != nil {
		return err
	}
	cycles := inv.Cycles
	if cycles == 0 {
		cycles = DefaultSimCycles
	}
	log.WithFields(log.Fields{"cycles": cycles, "clock": s.Clock.Freq, "workers": workers}).Info("simulating ", cfg.Name)
	start := time.Now()
	if err = s.Run(cycles); err != nil {
		return err
	}
	d := time.Since(start)
	log.WithFields(log.Fields{
		"elapsed":    d.Round(time.Millisecond),
		"cycles/sec": int64(float64(cycles) / d.Seconds()),
	}).Info("simulation done")
	for _, k := range s.Cores {
		log.WithField("transfers", k.Transfers()).Debug("core ", k.Name())
	}
	return nil
}
