// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Command hwsoc generates, builds, loads, documents or simulates a system
// made of bus-mapped cores, a serial bus bridge and a logic analyzer, as
// described by a YAML configuration file. Its client subcommand talks to the
// bridge of a running device over a serial port.
//
package main

import (
	"os"

	"github.com/db47h/hwsoc/soc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(exitCode(err))
	}
}

// exitCode returns 2 for usage and configuration errors, 1 otherwise.
//
func exitCode(err error) int {
	var (
		ce  *soc.ConfigurationError
		ice *soc.InvocationConflictError
	)
	if errors.As(err, &ce) || errors.As(err, &ice) {
		return 2
	}
	return 1
}
