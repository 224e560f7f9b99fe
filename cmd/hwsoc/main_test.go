package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/hwsoc/scope"
	"github.com/db47h/hwsoc/soc"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestRoot_conflict(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	err := execute(filepath.Join(dir, "nope.yml"), "--sim", "--build", "--output-dir", out)
	var ice *soc.InvocationConflictError
	if !errors.As(err, &ice) {
		t.Fatalf("got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code %d", exitCode(err))
	}
	if _, err = os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("output directory created")
	}
}

func TestRoot_generate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	cfg := filepath.Join(dir, "cfg.yml")
	if err := os.WriteFile(cfg, []byte("vendor: xilinx\ndevice: xc7a35t\nclk_freq: 100MHz\nanalyzer: {depth: 32}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := execute(cfg, "--generate", "--doc", "-v", "--output-dir", out); err != nil {
		t.Fatalf("%+v", err)
	}
	for _, f := range []string{"gateware/hwsoc_core.json", "csr.csv", "analyzer.csv", "doc/hwsoc_core.md"} {
		if _, err := os.Stat(filepath.Join(out, f)); err != nil {
			t.Error(err)
		}
	}
	if err := execute(filepath.Join(dir, "nope.yml"), "--generate"); err == nil || exitCode(err) != 2 {
		t.Fatalf("got %v", err)
	}
	if err := execute(); err == nil {
		t.Fatal("expected error for missing configuration")
	}
}

func TestClient_args(t *testing.T) {
	for _, args := range [][]string{
		{"client", "read"},
		{"client", "write", "0x2000"},
		{"client", "capture", "extra"},
	} {
		if err := execute(args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestParseAddr(t *testing.T) {
	regs := &soc.RegisterMap{
		Regions:   []wishbone.Region{{Name: "dummyphy", Base: 0x2000, Size: 0x2000}},
		Registers: []soc.RegisterEntry{{Slave: "dummyphy", Name: "scratch", Addr: 0x2010, Width: 32}},
	}
	data := []struct {
		in   string
		addr uint32
		ok   bool
	}{
		{"0x2000", 0x2000, true},
		{"8192", 0x2000, true},
		{"0x2002", 0, false},
		{"dummyphy_scratch", 0x2010, true},
		{"dummyphy_nope", 0, false},
	}
	for _, d := range data {
		a, err := parseAddr(d.in, regs)
		if (err == nil) != d.ok || a != d.addr {
			t.Errorf("%s: got 0x%x, %v", d.in, a, err)
		}
	}
	if _, err := parseAddr("dummyphy_scratch", nil); err == nil {
		t.Error("resolved a register name without a register map")
	}
}

func TestParseTrigger(t *testing.T) {
	tr := scope.NewTrigger([]scope.Probe{{Name: "a", Width: 4}, {Name: "b", Width: 8}})
	for _, c := range []string{"a=0x5", "b=0xa0/0xf0"} {
		if err := parseTrigger(tr, c); err != nil {
			t.Fatal(err)
		}
	}
	v, m := tr.Words()
	if v[0] != 0xa05 || m[0] != 0xf0f {
		t.Fatalf("got value 0x%x, mask 0x%x", v[0], m[0])
	}
	for _, c := range []string{"a", "=1", "a=x", "a=1/x", "c=1"} {
		if err := parseTrigger(tr, c); err == nil {
			t.Errorf("%q: expected error", c)
		}
	}
}
