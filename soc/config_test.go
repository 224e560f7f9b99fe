package soc

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestParseFrequency(t *testing.T) {
	data := []struct {
		in  string
		out Frequency
	}{
		{"100000000", 100000000},
		{"100e6", 100000000},
		{"12.5MHz", 12500000},
		{"32k", 32000},
		{"1 GHz", 1000000000},
		{"50 Hz", 50},
	}
	for _, d := range data {
		f, err := ParseFrequency(d.in)
		if err != nil {
			t.Errorf("%q: %v", d.in, err)
			continue
		}
		if f != d.out {
			t.Errorf("%q: got %d, expected %d", d.in, f, d.out)
		}
	}
	for _, in := range []string{"", "fast", "-1", "0.1", "MHz"} {
		if _, err := ParseFrequency(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestParse_defaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
vendor: lattice
device: LFE5U-25F-6BG381C
clk_freq: 100e6
mem_map:
  dummyphy: 0x2000
`))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.Toolchain != "diamond" || cfg.ClkSim != 100e6 || cfg.Baudrate != DefaultBaudrate || cfg.Arbitration != "round-robin" {
		t.Fatalf("bad defaults: %+v", cfg)
	}
	if len(cfg.Cores) != 1 || cfg.Cores[0].Name != DefaultCoreName || *cfg.Cores[0].Base != 0x2000 || cfg.Cores[0].Size != DefaultCoreSize {
		t.Fatalf("bad core defaults: %+v", cfg.Cores)
	}
	if len(cfg.Bridges) != 1 || cfg.Bridges[0].Name != DefaultBridgeName || cfg.Bridges[0].Baudrate != DefaultBaudrate {
		t.Fatalf("bad bridge defaults: %+v", cfg.Bridges)
	}
	a := cfg.Analyzer
	if a.Depth != DefaultAnalyzerDepth || *a.PostTrigger != DefaultAnalyzerDepth/2 || a.CSV != "analyzer.csv" ||
		strings.Join(a.Signals, ",") != "dummyphy.sink,dummyphy.source,dummyphy.bus" {
		t.Fatalf("bad analyzer defaults: %+v", a)
	}
	if cfg.Clock(true) != 100e6 {
		t.Fatalf("clock %d", cfg.Clock(true))
	}
}

func TestParse_errors(t *testing.T) {
	data := []struct {
		name string
		in   string
		key  string
	}{
		{"unknown vendor", "vendor: acme\nclk_freq: 1e6\n", "vendor"},
		{"unknown toolchain", "vendor: xilinx\ndevice: xc7a35t\ntoolchain: quartus\nclk_freq: 1e6\n", "toolchain"},
		{"sim toolchain", "vendor: sim\ntoolchain: vivado\nclk_freq: 1e6\n", "toolchain"},
		{"missing device", "vendor: altera\nclk_freq: 1e6\n", "device"},
		{"missing clock", "vendor: sim\n", "clk_freq"},
		{"bad clock", "vendor: sim\nclk_freq: fast\n", "document"},
		{"unknown key", "vendor: sim\nclk_freq: 1e6\nsoc: {}\n", "document"},
		{"arbitration", "vendor: sim\nclk_freq: 1e6\narbitration: lottery\n", "arbitration"},
		{"duplicate name", "vendor: sim\nclk_freq: 1e6\ncores: [{name: a}, {name: a}]\n", "cores[1].name"},
		{"name clash", "vendor: sim\nclk_freq: 1e6\nbridges: [{name: analyzer}]\n", "analyzer.name"},
		{"bad name", "vendor: sim\nclk_freq: 1e6\ncores: [{name: a.b}]\n", "cores[0].name"},
		{"size without base", "vendor: sim\nclk_freq: 1e6\ncores: [{name: a, size: 0x100}]\n", "cores[0].size"},
		{"depth", "vendor: sim\nclk_freq: 1e6\nanalyzer: {depth: 1}\n", "analyzer.depth"},
		{"post trigger", "vendor: sim\nclk_freq: 1e6\nanalyzer: {depth: 16, post_trigger: 16}\n", "analyzer.post_trigger"},
		{"mem_map", "vendor: sim\nclk_freq: 1e6\nmem_map: {nope: 0x1000}\n", "mem_map.nope"},
	}
	for _, d := range data {
		_, err := Parse(strings.NewReader(d.in))
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected a configuration error, got %v", d.name, err)
			continue
		}
		if ce.Key != d.key {
			t.Errorf("%s: got key %q, expected %q (%v)", d.name, ce.Key, d.key, err)
		}
	}
}

func TestLoad(t *testing.T) {
	_, err := Load("testdata/nope.yml")
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Key != "testdata/nope.yml" {
		t.Fatalf("expected a configuration error naming the file, got %v", err)
	}
	cfg, err := Load("../examples/example.yml")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.Vendor != "lattice" || cfg.Toolchain != "trellis" {
		t.Fatalf("got %+v", cfg)
	}
}
