package hwsoc_test

import (
	"strings"
	"testing"

	hw "github.com/db47h/hwsoc"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/hwtest"
)

const testTPC = 16

func TestChip_errors(t *testing.T) {
	unkChip, err := hw.Chip("TESTCHIP", hw.IO("a, b"), hw.IO("out"), hw.Parts{
		// chip input a is unused
		hl.Nand("a=b, b=b, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	data := []struct {
		name  string
		parts hw.Parts
		err   string
	}{
		{"true_out", hw.Parts{
			hl.Nand("a=a, b=b, out=true"),
			hl.Nand("a=a, b=b, out=out"),
		}, "NAND.out:true: output pin connected to constant true input"},
		{"false_out", hw.Parts{
			hl.Nand("a=a, b=b, out=false"),
			hl.Nand("a=a, b=b, out=out"),
		}, "NAND.out:false: output pin connected to constant false input"},
		{"multi_out", hw.Parts{
			hl.Nand("a=a, b=b, out=a"),
			hl.Nand("a=a, b=b, out=out"),
		}, "NAND.out:a: chip input pin used as output"},
		{"multi_out2", hw.Parts{
			hl.Nand("a=a, b=b, out=x"),
			hl.Nand("a=a, b=b, out=x"),
			hl.Not("in=x, out=out"),
		}, "NAND.out:x: output pin already used as output by NAND.out"},
		{"no_output", hw.Parts{
			hl.Nand("a=a, b=wx, out=out"),
		}, "pin wx not connected to any output"},
		{"dangling_output", hw.Parts{
			hl.Nand("a=a, b=b, out=foo"),
			hl.Nand("a=a, b=b, out=out"),
		}, ""},
		{"undriven_chip_output", hw.Parts{}, "pin out not connected to any output"},
		{"unknown_pin", hw.Parts{
			hl.Nand("a=a, typo=b, out=out"),
		}, "invalid pin name typo for part NAND"},
		{"unknown_chip_pin", hw.Parts{
			unkChip("a=a, typo=b, out=out"),
		}, "invalid pin name typo for part TESTCHIP"},
		{"chip", hw.Parts{
			unkChip("a=a, b=b, out=out"),
		}, ""},
		{"pin_twice", hw.Parts{
			hl.Nand("a=a, a=b, out=out"),
		}, "pin a of part NAND connected more than once"},
		{"count_mismatch", hw.Parts{
			hl.Not("in=x[0..1], out=out"),
		}, "pin count mismatch in pin mapping: in=x[0..1]"},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, err := hw.Chip(d.name, hw.IO("a, b"), hw.IO("out"), d.parts)
			if err == nil && d.err != "" || err != nil && err.Error() != d.err {
				t.Errorf("Got error %v, expected %q", err, d.err)
			}
		})
	}
}

func TestChip_omitted_pins(t *testing.T) {
	var a, b, tr, f, o0, o1 int
	dummy := (&hw.PartSpec{
		Name:    "dummy",
		Inputs:  hw.IO("a, b, t, f"),
		Outputs: hw.IO("o0, o1"),
		Mount: func(s *hw.Socket) []hw.Component {
			a, b, tr, f, o0, o1 = s.Pin("a"), s.Pin("b"), s.Pin("t"), s.Pin("f"), s.Pin("o0"), s.Pin("o1")
			return nil
		}}).NewPart
	// unconnected chip inputs are wired to false, unconnected outputs get
	// a private wire.
	wrapper, err := hw.Chip("wrapper", hw.IO("wa, wb"), hw.IO("wo0"), hw.Parts{
		dummy("a=wa, t=true, f=false, o0=wo0"),
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := hw.NewCircuit(0, 0, hw.Parts{wrapper("")})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	if a != 0 || b != 0 || f != 0 { // 0 = false
		t.Errorf("a = %v, b = %v, f = %v, all must be 0", a, b, f)
	}
	if tr != 1 { // 1 = true
		t.Errorf("t = %v, must be 1", tr)
	}
	if o0 < 2 || o1 < 2 || o0 == o1 {
		t.Errorf("o0 = %v, o1 = %v, must be distinct and >= 2", o0, o1)
	}
	if c.SPC() != 2 {
		t.Errorf("SPC() = %d, expected 2", c.SPC())
	}
}

func TestChip_bus_ranges(t *testing.T) {
	swap, err := hw.Chip("SWAP", hw.IO("in[4]"), hw.IO("out[4]"), hw.Parts{
		hl.Or("a=in[0], b=false, out=out[2]"),
		hl.Or("a=in[1], b=false, out=out[3]"),
		hl.And("a=in[2], b=true, out=out[0]"),
		hl.And("a=in[3], b=true, out=out[1]"),
	})
	if err != nil {
		t.Fatal(err)
	}
	var in, out uint64
	c := hwtest.NewCircuit(t, testTPC, hw.Parts{
		hl.InputN(8, func() uint64 { return in })("out=x"),
		swap("in=x[0..3], out[0..1]=y[4..5], out[2..3]=y[6..7]"),
		swap("in=x[4..7], out=y[0..3]"),
		hl.OutputN(8, func(v uint64) { out = v })("in=y"),
	})
	for _, v := range []uint64{0x00, 0x12, 0xa5, 0xff} {
		in = v
		c.TickTock()
		// each nibble has its halves swapped, then nibbles are swapped.
		exp := (v&0x33)<<2 | (v&0xcc)>>2
		exp = exp>>4 | (exp&0xf)<<4
		if out != exp {
			t.Fatalf("in = 0x%02x: got 0x%02x, expected 0x%02x", v, out, exp)
		}
	}
}

func TestNewCircuit_errors(t *testing.T) {
	if _, err := hw.NewCircuit(0, 8, nil); err == nil {
		t.Fatal("expected error for empty part list")
	}
	_, err := hw.NewCircuit(0, 8, hw.Parts{
		hl.Not("in=nowhere, out=x"),
	})
	if err == nil || !strings.Contains(err.Error(), "pin nowhere not connected to any output") {
		t.Fatalf("got error %v", err)
	}
}

func TestParseConnections(t *testing.T) {
	cs, err := hw.ParseConnections(" a = b, bus[0..1]=w[2..3],, c=true ")
	if err != nil {
		t.Fatal(err)
	}
	exp := []hw.Connection{{PP: "a", CP: "b"}, {PP: "bus[0..1]", CP: "w[2..3]"}, {PP: "c", CP: "true"}}
	if len(cs) != len(exp) {
		t.Fatalf("got %v", cs)
	}
	for i := range exp {
		if cs[i] != exp[i] {
			t.Errorf("connection %d: got %v, expected %v", i, cs[i], exp[i])
		}
	}
	for _, s := range []string{"a", "a=", "=b"} {
		if _, err = hw.ParseConnections(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestIO(t *testing.T) {
	got := strings.Join(hw.IO("a, bus[3],b"), " ")
	if got != "a bus[0] bus[1] bus[2] b" {
		t.Fatalf("got %q", got)
	}
	for _, s := range []string{"bus[", "bus[0]", "[2]"} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%q: expected panic", s)
				}
			}()
			hw.IO(s)
		}()
	}
}
