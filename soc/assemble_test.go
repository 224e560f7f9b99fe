package soc_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/db47h/hwsoc/core"
	"github.com/db47h/hwsoc/soc"
	"github.com/pkg/errors"
)

const simConfig = `
vendor: sim
clk_freq: 100e6
clk_sim: 1MHz
baudrate: 250000
mem_map:
  dummyphy: 0x2000
`

func parse(t *testing.T, in string) *soc.Config {
	t.Helper()
	cfg, err := soc.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return cfg
}

func assemble(t *testing.T, cfg *soc.Config, opts soc.Options) *soc.System {
	t.Helper()
	s, err := soc.Assemble(cfg, opts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssemble_bridgeRoundTrip(t *testing.T) {
	s := assemble(t, parse(t, simConfig), soc.Options{Sim: true})
	r, ok := s.Region("dummyphy")
	if !ok || r.Base != 0x2000 || r.Size != 0x2000 {
		t.Fatalf("got region %v", r)
	}
	if b := s.Bridges[0].Config().ClocksPerBit; b != 4 {
		t.Fatalf("%d clocks per bit", b)
	}
	if err := s.Run(16); err != nil {
		t.Fatal(err)
	}
	c, err := s.Client("uart_bridge")
	if err != nil {
		t.Fatal(err)
	}
	if err = c.Write(0x2000, 0xab); err != nil {
		t.Fatalf("%+v", err)
	}
	v, err := c.Read(0x2000)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if v != 0xab {
		t.Fatalf("read back 0x%x, expected 0xab", v)
	}
	if v, err = c.Read(0x2000 + core.RegScratch); err != nil || v != 0x12345678 {
		t.Fatalf("scratch: 0x%x, %v", v, err)
	}
	if _, err = s.Client("nope"); err == nil {
		t.Fatal("expected error for unknown bridge")
	}
}

func TestAssemble_pads(t *testing.T) {
	var out uint64
	cfg := parse(t, simConfig)
	s := assemble(t, cfg, soc.Options{
		Sim:    true,
		Input:  func(string) uint64 { return 0x5a },
		Output: func(_ string, v uint64) { out = v },
	})
	if err := s.Run(cfg.ResetCycles + 4); err != nil {
		t.Fatal(err)
	}
	if out != 0x5a {
		t.Fatalf("output pads 0x%x", out)
	}
	if s.Cores[0].Transfers() == 0 {
		t.Fatal("no transfers counted")
	}
}

func TestAssemble_overlap(t *testing.T) {
	cfg := parse(t, `
vendor: sim
clk_freq: 1e6
cores:
  - {name: core_a, base: 0x2000, size: 0x1000}
  - {name: core_b, base: 0x2000, size: 0x1000}
`)
	_, err := soc.Assemble(cfg, soc.Options{})
	var ce *soc.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	if ce.Key != "cores[1]" || !strings.Contains(ce.Msg, "core_a") || !strings.Contains(ce.Msg, "core_b") {
		t.Fatalf("got %v", err)
	}
}

func TestAssemble_errors(t *testing.T) {
	data := []struct {
		name string
		cfg  string
		key  string
	}{
		{"misaligned", "cores: [{name: a, base: 0x2100, size: 0x1000}]", "cores[0]"},
		{"undersized", "cores: [{name: a, base: 0x2000, size: 0x10}]", "cores[0]"},
		{"unresolved signal", "analyzer: {signals: [dummyphy.sink, dummyphy.nope]}", "analyzer.signals[1]"},
		{"analyzer overlap", "mem_map: {dummyphy: 0x2000, analyzer: 0x2000}", "analyzer"},
		{"baudrate", "baudrate: 1000000", "bridges[0]"},
	}
	for _, d := range data {
		cfg := parse(t, "vendor: sim\nclk_freq: 1e6\n"+d.cfg+"\n")
		s, err := soc.Assemble(cfg, soc.Options{})
		var ce *soc.ConfigurationError
		if !errors.As(err, &ce) || ce.Key != d.key {
			t.Errorf("%s: got %v", d.name, err)
		}
		if s != nil {
			t.Errorf("%s: got a partial system", d.name)
		}
	}
}

func TestAssemble_signals(t *testing.T) {
	cfg := parse(t, simConfig+"analyzer: {signals: [dummyphy.sink, dummyphy.sink.data, uart_bridge.rx, sys.rst]}\n")
	s := assemble(t, cfg, soc.Options{})
	var names []string
	for _, sig := range s.Observed {
		names = append(names, sig.Name)
	}
	if got := strings.Join(names, ","); got != "dummyphy.sink.data,dummyphy.sink.valid,dummyphy.sink.ready,uart_bridge.rx,sys.rst" {
		t.Fatalf("got %s", got)
	}
	if n := len(s.Analyzer.Probes()); n != 5 {
		t.Fatalf("%d probes", n)
	}
}

func TestAssemble_trace(t *testing.T) {
	var buf bytes.Buffer
	cfg := parse(t, simConfig+"analyzer: {signals: [dummyphy.source]}\n")
	s := assemble(t, cfg, soc.Options{Sim: true, Trace: &buf, TraceStart: 2, TraceEnd: -1})
	if err := s.Run(20); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"$timescale 1ps $end\n",
		"$scope module dummyphy $end\n$scope module source $end\n",
		"$var wire 8 ! data $end\n",
		"#2000000\n$dumpvars\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
}

func TestSystem_RegisterMap(t *testing.T) {
	s := assemble(t, parse(t, simConfig), soc.Options{})
	m := s.RegisterMap()
	e, ok := m.Lookup("dummyphy_scratch")
	if !ok || e.Addr != 0x2010 || e.Width != 32 || e.Access != "rw" {
		t.Fatalf("got %+v", e)
	}
	var buf bytes.Buffer
	if err := m.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"constant,config_clock_frequency,100000000,,\n",
		"csr_register,dummyphy_in_status,0x00002008,8,ro\n",
		"memory_region,dummyphy,0x00002000,8192,io\n",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("csr.csv missing %q:\n%s", want, buf.String())
		}
	}
	m2, err := soc.ReadRegisterMap(&buf)
	if err != nil {
		t.Fatal(err)
	}
	e2, ok := m2.Lookup("dummyphy_scratch")
	if !ok || e2.Slave != "dummyphy" || e2.Name != "scratch" || e2.Addr != e.Addr {
		t.Fatalf("got %+v", e2)
	}
	if len(m2.Regions) != len(m.Regions) || len(m2.Registers) != len(m.Registers) {
		t.Fatalf("got %d regions, %d registers", len(m2.Regions), len(m2.Registers))
	}

	buf.Reset()
	if err = m.WriteMarkdown(&buf, "test"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "| scratch | 0x00002010 | 32 | rw | 0x12345678 | Scratch register. |\n") {
		t.Fatalf("unexpected documentation:\n%s", buf.String())
	}
}

func TestSystem_Netlist(t *testing.T) {
	s := assemble(t, parse(t, simConfig), soc.Options{})
	var buf bytes.Buffer
	if err := s.Netlist().WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	n, err := soc.ReadNetlist(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n.Name != "hwsoc_core" || n.Clock.Freq != 100e6 || n.Arbitration != "round-robin" {
		t.Fatalf("got %+v", n)
	}
	if len(n.Regions) != 2 || n.Regions[0].Name != "dummyphy" || n.Regions[1].Name != "analyzer" {
		t.Fatalf("got regions %+v", n.Regions)
	}
	if len(n.Masters) != 1 || n.Masters[0] != "uart_bridge" {
		t.Fatalf("got masters %v", n.Masters)
	}
	pads := make(map[string]soc.NetPad)
	for _, p := range n.Pads {
		pads[p.Name] = p
	}
	if p := pads["output_bus"]; p.Width != 8 || p.Direction != "output" {
		t.Fatalf("got pad %+v", p)
	}
	if _, ok := pads["uart_bridge_rx"]; !ok {
		t.Fatal("missing bridge pad")
	}
	if len(n.Parts) == 0 || len(n.Observed) == 0 {
		t.Fatal("empty netlist")
	}
}
