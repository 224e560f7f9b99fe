// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"testing"

	"github.com/db47h/hwsoc"
)

// NewCircuit builds a circuit from parts with the given number of steps per
// clock cycle. It fails the test on error and disposes of the circuit when
// the test completes.
//
func NewCircuit(t testing.TB, tpc uint, parts hwsoc.Parts) *hwsoc.Circuit {
	t.Helper()
	c, err := hwsoc.NewCircuit(0, tpc, parts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	t.Cleanup(c.Dispose)
	return c
}

// WaitFor runs c one clock cycle at a time until cond returns true and
// returns the number of cycles run. The test fails if cond does not hold
// after max cycles.
//
func WaitFor(t testing.TB, c *hwsoc.Circuit, max int, cond func() bool) int {
	t.Helper()
	for i := 0; i < max; i++ {
		if cond() {
			return i
		}
		c.TickTock()
	}
	if !cond() {
		t.Fatalf("condition not met after %d cycles", max)
	}
	return max
}
