package scope_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	hw "github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/hwtest"
	"github.com/db47h/hwsoc/scope"
	wb "github.com/db47h/hwsoc/wishbone"
)

type bench struct {
	c    *hw.Circuit
	a    *scope.Analyzer
	host *wb.Driver
	d    *scope.Driver
}

// newBench samples an 8 bits cycle counter and its low bit.
func newBench(t *testing.T, depth, post int) *bench {
	t.Helper()
	b := &bench{}
	ctx := build.NewContext(build.ClockDomain{Name: "sys", Freq: 1e6}, nil, 0x1000)
	cycle := func() uint64 {
		if b.c == nil {
			return 0
		}
		return b.c.Cycle()
	}
	sigs := []build.Signal{
		{Name: "cnt", Wire: "cnt", Width: 8, Bus: true},
		{Name: "odd", Wire: "odd", Width: 1},
	}
	for _, s := range sigs {
		if err := ctx.Signals().Add(s); err != nil {
			t.Fatal(err)
		}
	}
	a, err := scope.New(ctx, scope.Config{Name: "la", Depth: depth, PostTrigger: post, Signals: sigs})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b.a = a
	b.host = wb.NewDriver("host", 16)
	if err = ctx.AddMaster("host"); err != nil {
		t.Fatal(err)
	}
	ctx.Add(
		hl.Input(func() bool { return false })("out="+build.ResetWire),
		hl.InputN(8, func() uint64 { return cycle() & 0xff })("out=cnt"),
		hl.Input(func() bool { return cycle()&1 != 0 })("out=odd"),
		b.host.Part(wb.Interface{}.Wires(build.MasterBus("host"))),
		ctx.Interconnect(wb.RoundRobin),
	)
	c := hwtest.NewCircuit(t, 16, ctx.Parts())
	b.host.Attach(c)
	b.c = c
	b.d = scope.NewDriver(b.host, a.Adapter().Region().Base, a.Probes())
	return b
}

func (b *bench) capture(t *testing.T, tr *scope.Trigger) *scope.Capture {
	t.Helper()
	if err := b.d.SetTrigger(tr); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := b.d.Arm(); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := b.d.Wait(1000); err != nil {
		t.Fatalf("%+v", err)
	}
	c, err := b.d.Upload()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return c
}

func checkConsecutive(t *testing.T, c *scope.Capture) {
	t.Helper()
	for i := range c.Samples {
		cnt, _ := c.Value(i, "cnt")
		odd, _ := c.Value(i, "odd")
		if odd != cnt&1 {
			t.Fatalf("sample %d: cnt %d, odd %d", i, cnt, odd)
		}
		if i > 0 {
			prev, _ := c.Value(i-1, "cnt")
			if cnt != (prev+1)&0xff {
				t.Fatalf("sample %d: cnt %d follows %d", i, cnt, prev)
			}
		}
	}
}

func TestAnalyzer_trigger(t *testing.T) {
	const depth, post = 16, 4
	b := newBench(t, depth, post)

	if n, err := b.d.Check(); err != nil || n != depth {
		t.Fatalf("Check() = %d, %v", n, err)
	}
	if s, _ := b.d.State(); s != scope.Frozen {
		t.Fatalf("power-on state %v", s)
	}
	if c, err := b.d.Upload(); err != nil || len(c.Samples) != 0 {
		t.Fatalf("power-on window: %v, %v", c, err)
	}

	tr := scope.NewTrigger(b.a.Probes())
	if err := tr.Equal("cnt", 200); err != nil {
		t.Fatal(err)
	}
	if err := tr.Equal("nope", 1); err == nil {
		t.Fatal("expected error for unknown probe")
	}
	c := b.capture(t, tr)
	if len(c.Samples) != depth || c.TriggerPos != depth-post-1 {
		t.Fatalf("got %d samples, trigger at %d", len(c.Samples), c.TriggerPos)
	}
	if v, _ := c.Value(c.TriggerPos, "cnt"); v != 200 {
		t.Fatalf("trigger sample cnt = %d", v)
	}
	checkConsecutive(t, c)

	// frozen window is stable
	b.c.Run(50)
	c2, err := b.d.Upload()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, c2) {
		t.Fatal("frozen window changed")
	}

	// re-arm
	if err = b.d.Arm(); err != nil {
		t.Fatal(err)
	}
	if s := b.a.State(); s != scope.Armed || b.a.Buffer().Len() >= depth-post-1 {
		t.Fatalf("after re-arm: %v, %d samples", s, b.a.Buffer().Len())
	}
}

func TestAnalyzer_immediate(t *testing.T) {
	const depth = 8
	b := newBench(t, depth, 2)
	if err := b.d.SetPostTrigger(depth - 1); err != nil {
		t.Fatal(err)
	}
	c := b.capture(t, scope.NewTrigger(b.a.Probes()))
	if len(c.Samples) != depth || c.TriggerPos != 0 {
		t.Fatalf("got %d samples, trigger at %d", len(c.Samples), c.TriggerPos)
	}
	checkConsecutive(t, c)
}

func TestAnalyzer_config(t *testing.T) {
	ctx := build.NewContext(build.ClockDomain{Name: "sys", Freq: 1e6}, nil, 0)
	sig := []build.Signal{{Name: "x", Wire: "x", Width: 1}}
	data := []scope.Config{
		{Name: "la", Depth: 1, Signals: sig},
		{Name: "la", Depth: 8, PostTrigger: 8, Signals: sig},
		{Name: "la", Depth: 8, PostTrigger: -1, Signals: sig},
		{Name: "la", Depth: 8},
		{Name: "la,x", Depth: 8, Signals: sig}, // breaks the bus connection string
	}
	for _, cfg := range data {
		if _, err := scope.New(ctx, cfg); err == nil {
			t.Errorf("%+v: expected error", cfg)
		}
	}
}

func TestDescription(t *testing.T) {
	b := newBench(t, 32, 8)
	d := b.a.Describe()
	if d.Base != 0x1000 || d.Depth != 32 || d.PostTrigger != 8 || len(d.Probes) != 2 {
		t.Fatalf("got %+v", d)
	}
	var buf bytes.Buffer
	if err := d.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "signal,8,odd,1\n") {
		t.Fatalf("unexpected CSV:\n%s", buf.String())
	}
	d2, err := scope.ReadDescription(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d, d2) {
		t.Fatalf("got %+v, expected %+v", d2, d)
	}

	for _, in := range []string{
		"config,depth,x\n",
		"signal,4,a,1\n",
		"bogus\n",
	} {
		if _, err := scope.ReadDescription(strings.NewReader(in)); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestCapture_WriteVCD(t *testing.T) {
	c := &scope.Capture{
		Probes:     []scope.Probe{{Name: "x", Width: 2}},
		Samples:    [][]uint64{{1}, {1}, {2}},
		TriggerPos: 1,
	}
	var buf bytes.Buffer
	if err := c.WriteVCD(&buf, "1ns", 10); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{
		"$var wire 2 ! x $end\n",
		"$var wire 1 \" trigger $end\n",
		"#10\n1\"\n",
		"#20\nb10 !\n0\"\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}
