package core_test

import (
	"testing"

	hw "github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	"github.com/db47h/hwsoc/core"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/hwtest"
	"github.com/db47h/hwsoc/stream"
	wb "github.com/db47h/hwsoc/wishbone"
)

type bench struct {
	c    *hw.Circuit
	k    *core.Core
	host *wb.Driver
	in   uint64
	out  uint64
	rst  bool

	violations []*stream.Violation
	committed  []uint64 // beats committed on the source endpoint
}

func newBench(t *testing.T) *bench {
	t.Helper()
	b := &bench{}
	ctx := build.NewContext(build.ClockDomain{Name: "sys", Freq: 1e6},
		map[string]build.Placement{"dummy": {Base: 0x2000, Size: 0x2000}}, 0)
	k, err := core.New(ctx, "dummy", "pads_in", "pads_out")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b.k = k
	b.host = wb.NewDriver("host", 16)
	if err = ctx.AddMaster("host"); err != nil {
		t.Fatal(err)
	}
	ctx.Add(
		hl.Input(func() bool { return b.rst })("out="+build.ResetWire),
		hl.InputN(core.DataWidth, func() uint64 { return b.in })("out=pads_in"),
		hl.OutputN(core.DataWidth, func(v uint64) { b.out = v })("in=pads_out"),
		b.host.Part(wb.Interface{}.Wires(build.MasterBus("host"))),
		ctx.Interconnect(wb.RoundRobin),
	)
	violation := func(v *stream.Violation) { b.violations = append(b.violations, v) }
	src := stream.Endpoint{Name: "dummy_source", Layout: core.Layout}
	snk := stream.Endpoint{Name: "dummy_sink", Layout: core.Layout}
	ctx.Add(
		stream.Monitor(src, violation, func(bt stream.Beat) { b.committed = append(b.committed, bt.Payload[0]) })(src.Wires(src)),
		stream.Monitor(snk, violation, nil)(snk.Wires(snk)),
	)
	b.c = hwtest.NewCircuit(t, 16, ctx.Parts())
	b.host.Attach(b.c)
	return b
}

func (b *bench) read(t *testing.T, off uint32) uint32 {
	t.Helper()
	v, err := b.host.Read(0x2000 + off)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return v
}

func (b *bench) write(t *testing.T, off, v uint32) {
	t.Helper()
	if err := b.host.Write(0x2000+off, v); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestCore_passThrough(t *testing.T) {
	b := newBench(t)
	for _, v := range []uint64{0x00, 0xa5, 0xff, 0x3c} {
		b.in = v
		hwtest.WaitFor(t, b.c, 4, func() bool { return b.out == v })
	}
	b.c.Run(2)
	if v := b.read(t, core.RegInStatus); v != 0x3c {
		t.Errorf("in_status = 0x%x", v)
	}
	if v := b.read(t, core.RegOutStatus); v != 0x3c {
		t.Errorf("out_status = 0x%x", v)
	}
}

func TestCore_override(t *testing.T) {
	b := newBench(t)
	b.in = 0x11
	b.write(t, core.RegOverride, 0x5a)
	b.c.Run(3)
	if b.out != 0x11 {
		t.Fatalf("output 0x%x, expected the input value", b.out)
	}
	b.write(t, core.RegCtrl, core.CtrlOverride)
	hwtest.WaitFor(t, b.c, 4, func() bool { return b.out == 0x5a })
	b.in = 0x22
	b.c.Run(3)
	if b.out != 0x5a {
		t.Fatalf("override lost: 0x%x", b.out)
	}
	b.write(t, core.RegCtrl, 0)
	hwtest.WaitFor(t, b.c, 4, func() bool { return b.out == 0x22 })
}

func TestCore_hold(t *testing.T) {
	b := newBench(t)
	b.in = 0x42
	b.c.Run(3)
	b.write(t, core.RegCtrl, core.CtrlHold)
	b.c.Run(2)
	n := b.k.Transfers()
	b.in = 0x24
	b.c.Run(8)
	if b.out != 0x42 {
		t.Fatalf("output changed while held: 0x%x", b.out)
	}
	if b.k.Transfers() != n {
		t.Fatalf("transfers counted while held: %d -> %d", n, b.k.Transfers())
	}
	b.write(t, core.RegCtrl, 0)
	hwtest.WaitFor(t, b.c, 4, func() bool { return b.out == 0x24 })
	if b.read(t, core.RegTransfers) <= n {
		t.Fatal("transfer counter did not resume")
	}
}

func TestCore_stalledBeat(t *testing.T) {
	b := newBench(t)
	b.in = 0x42
	b.c.Run(3)
	b.write(t, core.RegCtrl, core.CtrlHold)
	b.c.Run(2)
	mark := len(b.committed)
	for _, v := range []uint64{0x24, 0x99, 0x10} {
		b.in = v
		b.c.Run(3)
	}
	if len(b.committed) != mark {
		t.Fatalf("%d beats committed while held", len(b.committed)-mark)
	}
	b.in = 0x24
	b.write(t, core.RegCtrl, 0)
	hwtest.WaitFor(t, b.c, 4, func() bool { return b.out == 0x24 })
	b.c.Run(2)
	if len(b.committed) <= mark+1 {
		t.Fatalf("no transfer after release")
	}
	if v := b.committed[mark]; v != 0x42 {
		t.Fatalf("first beat after release: 0x%x, expected the stalled beat 0x42", v)
	}
	if v := b.committed[len(b.committed)-1]; v != 0x24 {
		t.Fatalf("last beat 0x%x, expected 0x24", v)
	}
	for _, v := range b.violations {
		t.Error(v)
	}
}

func TestCore_registers(t *testing.T) {
	b := newBench(t)
	if v := b.read(t, core.RegScratch); v != 0x12345678 {
		t.Fatalf("scratch reset value 0x%x", v)
	}
	b.write(t, core.RegScratch, 0xab)
	if v := b.read(t, core.RegScratch); v != 0xab {
		t.Fatalf("scratch = 0x%x, expected 0xab", v)
	}
	// read-only registers ignore writes
	b.in = 0x81
	b.c.Run(2)
	b.write(t, core.RegInStatus, 0)
	if v := b.read(t, core.RegInStatus); v != 0x81 {
		t.Fatalf("in_status = 0x%x", v)
	}
	// holes read as zero
	if v := b.read(t, 0x100); v != 0 {
		t.Fatalf("hole reads 0x%x", v)
	}
	// reset restores storage registers
	b.rst = true
	b.c.Run(2)
	if n := b.k.Transfers(); n != 0 {
		t.Fatalf("transfer counter not reset: %d", n)
	}
	b.rst = false
	b.c.Run(1)
	if v := b.read(t, core.RegScratch); v != 0x12345678 {
		t.Fatalf("scratch after reset 0x%x", v)
	}
}

func TestCore_signals(t *testing.T) {
	ctx := build.NewContext(build.ClockDomain{Name: "sys", Freq: 1e6}, nil, 0x1000)
	if _, err := core.New(ctx, "dummy", "i", "o"); err != nil {
		t.Fatal(err)
	}
	sigs, err := ctx.Signals().Resolve("dummy.sink")
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 3 || sigs[0].Name != "dummy.sink.data" || sigs[0].Width != 8 {
		t.Fatalf("got %v", sigs)
	}
	if r := ctx.Regions(); len(r) != 1 || r[0].Base != 0x1000 || r[0].Size != 0x20 {
		t.Fatalf("got regions %v", r)
	}
	if _, err := core.New(ctx, "dummy", "i2", "o2"); err == nil {
		t.Fatal("expected duplicate region name error")
	}
}
