// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Default programmer commands.
var (
	defaultLoad  = []string{"openFPGALoader", "{bitstream}"}
	defaultFlash = []string{"openFPGALoader", "-f", "{bitstream}"}
)

// A Toolchain runs the external commands of the build, load and flash steps.
//
// Command arguments may contain the placeholders {name}, {vendor},
// {device}, {toolchain}, {build_dir}, {gateware_dir}, {netlist} and
// {bitstream}, replaced by their value before the command runs.
//
type Toolchain struct {
	Design   string
	Vendor   string
	Name     string
	Device   string
	Commands Commands
	BuildDir string
}

// NewToolchain returns the toolchain configured by cfg, building in dir.
//
func NewToolchain(cfg *Config, dir string) *Toolchain {
	return &Toolchain{
		Design:   cfg.Name,
		Vendor:   cfg.Vendor,
		Name:     cfg.Toolchain,
		Device:   cfg.Device,
		Commands: cfg.Commands,
		BuildDir: dir,
	}
}

// GatewareDir returns the directory of the generated files.
//
func (t *Toolchain) GatewareDir() string { return filepath.Join(t.BuildDir, "gateware") }

// Netlist returns the path of the generated netlist.
//
func (t *Toolchain) Netlist() string { return filepath.Join(t.GatewareDir(), t.Design+".json") }

// Bitstream returns the path of the bitstream produced by the build step.
//
func (t *Toolchain) Bitstream() string { return filepath.Join(t.GatewareDir(), t.Design+".bit") }

// Expand replaces the placeholders in args.
//
func (t *Toolchain) Expand(args []string) []string {
	r := strings.NewReplacer(
		"{name}", t.Design,
		"{vendor}", t.Vendor,
		"{device}", t.Device,
		"{toolchain}", t.Name,
		"{build_dir}", t.BuildDir,
		"{gateware_dir}", t.GatewareDir(),
		"{netlist}", t.Netlist(),
		"{bitstream}", t.Bitstream(),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// Command returns the expanded command line of the named step: "build",
// "load" or "flash". The build step has no default command.
//
func (t *Toolchain) Command(step string) ([]string, error) {
	var args []string
	switch step {
	case "build":
		args = t.Commands.Build
	case "load":
		args = t.Commands.Load
		if len(args) == 0 {
			args = defaultLoad
		}
	case "flash":
		args = t.Commands.Flash
		if len(args) == 0 {
			args = defaultFlash
		}
	default:
		return nil, configError("commands", "unknown step %q", step)
	}
	if len(args) == 0 {
		return nil, configError("commands."+step, "no %s command for toolchain %s", step, t.Name)
	}
	return t.Expand(args), nil
}

// Run runs the command of the named step in the build directory. On failure
// the returned *ToolchainError carries the command's output.
//
func (t *Toolchain) Run(ctx context.Context, step string) error {
	args, err := t.Command(step)
	if err != nil {
		return err
	}
	log.WithField("step", step).Info(strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = t.BuildDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ToolchainError{Step: step, Args: args, Output: out, Err: err}
	}
	log.WithField("step", step).Debug(string(out))
	return nil
}
