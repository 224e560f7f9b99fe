// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"os"

	"github.com/db47h/hwsoc/soc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hwsoc CONFIG",
		Short: "Bus-mapped core system manager.",
		Long: `Generate, build, load, flash, document or simulate the system described by
the YAML configuration file CONFIG. --sim cannot be combined with --build,
--load or --flash.`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := invocation(cmd, args[0])
			if err != nil {
				return err
			}
			return inv.Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.Bool("generate", false, "generate the netlist and debug files")
	f.Bool("build", false, "generate and build the gateware bitstream")
	f.Bool("load", false, "load the bitstream")
	f.Bool("flash", false, "flash the bitstream")
	f.Bool("doc", false, "generate the register documentation")
	f.Bool("sim", false, "simulate the system")
	f.Bool("trace", false, "enable VCD tracing (sim mode)")
	f.Int64("trace-start", 0, "cycle to start VCD tracing (sim mode)")
	f.Int64("trace-end", -1, "cycle to end VCD tracing, -1 for the end of the simulation (sim mode)")
	f.String("opt-level", "O3", "simulation optimization level, O0 to O3 (sim mode)")
	f.Int("cycles", soc.DefaultSimCycles, "number of cycles to simulate (sim mode)")
	f.String("output-dir", "build", "output directory")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")

	cmd.AddCommand(newClientCmd())
	return cmd
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	tty := term.IsTerminal(int(os.Stderr.Fd()))
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:      tty,
		DisableColors:    !tty,
		DisableTimestamp: !tty,
		FullTimestamp:    true,
	})
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

// invocation builds an invocation from the command line flags.
//
func invocation(cmd *cobra.Command, config string) (*soc.Invocation, error) {
	f := cmd.Flags()
	inv := &soc.Invocation{Config: config}
	for _, b := range []struct {
		name string
		p    *bool
	}{
		{"generate", &inv.Generate},
		{"build", &inv.Build},
		{"load", &inv.Load},
		{"flash", &inv.Flash},
		{"doc", &inv.Doc},
		{"sim", &inv.Sim},
		{"trace", &inv.Trace},
	} {
		v, err := f.GetBool(b.name)
		if err != nil {
			return nil, err
		}
		*b.p = v
	}
	var err error
	if inv.TraceStart, err = f.GetInt64("trace-start"); err != nil {
		return nil, err
	}
	if inv.TraceEnd, err = f.GetInt64("trace-end"); err != nil {
		return nil, err
	}
	if inv.OptLevel, err = f.GetString("opt-level"); err != nil {
		return nil, err
	}
	if inv.Cycles, err = f.GetInt("cycles"); err != nil {
		return nil, err
	}
	if inv.OutputDir, err = f.GetString("output-dir"); err != nil {
		return nil, err
	}
	return inv, nil
}
