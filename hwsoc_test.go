package hwsoc_test

import (
	"testing"

	hw "github.com/db47h/hwsoc"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/hwtest"
)

func Test_gate_custom(t *testing.T) {
	and, err := hw.Chip("AND", hw.IO("a, b"), hw.IO("out"), hw.Parts{
		hl.Nand("a=a, b=b, out=nand"),
		hl.Nand("a=nand, b=nand, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	or, err := hw.Chip("OR", hw.IO("a, b"), hw.IO("out"), hw.Parts{
		hl.Nand("a=a, b=a, out=notA"),
		hl.Nand("a=b, b=b, out=notB"),
		hl.Nand("a=notA, b=notB, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	nor, err := hw.Chip("NOR", hw.IO("a, b"), hw.IO("out"), hw.Parts{
		or("a=a, b=b, out=orAB"),
		hl.Nand("a=orAB, b=orAB, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	not, err := hw.Chip("NOT", hw.IO("in"), hw.IO("out"), hw.Parts{
		hl.Nand("a=in, b=in, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	mux, err := hw.Chip("MUX", hw.IO("a, b, sel"), hw.IO("out"), hw.Parts{
		hl.Not("in=sel, out=notSel"),
		hl.And("a=a, b=notSel, out=w0"),
		hl.And("a=b, b=sel, out=w1"),
		hl.Or("a=w0, b=w1, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	td := []struct {
		name    string
		builtin hw.NewPartFn
		custom  hw.NewPartFn
	}{
		{"AND", hl.And, and},
		{"OR", hl.Or, or},
		{"NOR", hl.Nor, nor},
		{"NOT", hl.Not, not},
		{"MUX", hl.Mux, mux},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			hwtest.ComparePart(t, testTPC, d.builtin, d.custom)
		})
	}
}

// Test a basic clock with a Nor gate.
//
// The purpose of this test is to catch changes in propagation delays
// from Inputs and Outputs as well as testing loops between input and outputs.
//
func Test_clock(t *testing.T) {
	var disable, tick bool

	clk, err := hw.Chip("CLK", hw.IO("disable"), hw.IO("tick"), hw.Parts{
		hl.Nor("a=disable, b=tick, out=tick"),
	})
	if err != nil {
		t.Fatal(err)
	}
	c := hwtest.NewCircuit(t, testTPC, hw.Parts{
		hl.Input(func() bool { return disable })("out=disable"),
		clk("disable=disable, tick=out"),
		hl.Output(func(out bool) { tick = out })("in=out"),
	})
	check := func(v bool) {
		t.Helper()
		if tick != v {
			t.Errorf("step %d: expected %v, got %v", c.Steps(), v, tick)
		}
	}

	// Output sees the Nor output one step after it is updated.
	disable = true
	for _, v := range []bool{false, true, false, false} {
		c.Step()
		check(v)
	}
	// the clock starts ticking on the third step.
	disable = false
	for _, v := range []bool{false, false, true, false, true} {
		c.Step()
		check(v)
	}
	// and stops two steps after being disabled.
	disable = true
	for _, v := range []bool{false, true, false, false} {
		c.Step()
		check(v)
	}
}

func TestCircuit_counters(t *testing.T) {
	var ticks, tocks []uint64
	probe := &hw.PartSpec{
		Name:    "probe",
		Inputs:  nil,
		Outputs: hw.IO("out"),
		Mount: func(s *hw.Socket) []hw.Component {
			out := s.Pin("out")
			return []hw.Component{func(c *hw.Circuit) {
				if c.AtTick() {
					ticks = append(ticks, c.Cycle())
				}
				if c.AtTock() {
					tocks = append(tocks, c.Steps())
				}
				c.Set(out, c.AtTick())
			}}
		}}
	c, err := hw.NewCircuit(1, 5, hw.Parts{probe.NewPart("out=clk")})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	if c.SPC() != 8 {
		t.Fatalf("SPC() = %d, expected 8", c.SPC())
	}
	c.Run(3)
	if c.Steps() != 24 || c.Cycles() != 3 {
		t.Fatalf("Steps() = %d, Cycles() = %d", c.Steps(), c.Cycles())
	}
	if len(ticks) != 3 || ticks[0] != 0 || ticks[2] != 2 {
		t.Fatalf("ticks at cycles %v", ticks)
	}
	if len(tocks) != 3 || tocks[0] != 4 || tocks[1] != 12 {
		t.Fatalf("tocks at steps %v", tocks)
	}
	if _, ok := c.Wire("clk"); !ok {
		t.Fatal("top-level wire clk not found")
	}
	if _, ok := c.WireBus("clk", 2); ok {
		t.Fatal("unexpected bus clk")
	}
}
