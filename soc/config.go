// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"bytes"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Configuration defaults.
const (
	DefaultName          = "hwsoc_core"
	DefaultBaudrate      = 115200
	DefaultCoreName      = "dummyphy"
	DefaultCoreSize      = 0x2000
	DefaultBridgeName    = "uart_bridge"
	DefaultAnalyzerName  = "analyzer"
	DefaultAnalyzerDepth = 512
	DefaultResetCycles   = 8
)

// Supported vendors and their toolchains. The first toolchain is the
// vendor's default.
var toolchains = map[string][]string{
	"altera":  {"quartus"},
	"lattice": {"diamond", "trellis", "icestorm", "radiant", "oxide"},
	"xilinx":  {"vivado", "ise", "symbiflow", "yosys+nextpnr"},
	"sim":     nil,
}

// A Frequency is a clock frequency in Hz. It decodes from integers, floats
// like 100e6 or strings like "100MHz".
//
type Frequency uint64

// ParseFrequency parses a frequency. An optional "Hz" suffix may be preceded
// by one of the multipliers k, M or G.
//
func ParseFrequency(s string) (Frequency, error) {
	v := strings.TrimSpace(s)
	if strings.HasSuffix(strings.ToLower(v), "hz") {
		v = strings.TrimSpace(v[:len(v)-2])
	}
	m := 1.0
	if n := len(v); n > 0 {
		switch v[n-1] {
		case 'k', 'K':
			m = 1e3
		case 'M':
			m = 1e6
		case 'G':
			m = 1e9
		}
		if m != 1 {
			v = strings.TrimSpace(v[:n-1])
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f*m < 1 || f*m > math.MaxUint32*1e3 {
		return 0, errors.Errorf("invalid frequency %q", s)
	}
	return Frequency(math.Round(f * m)), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
//
func (f *Frequency) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: frequency must be a scalar", n.Line)
	}
	v, err := ParseFrequency(n.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	*f = v
	return nil
}

func (f Frequency) String() string {
	return strconv.FormatUint(uint64(f), 10) + "Hz"
}

// A Config is a system configuration.
//
type Config struct {
	Name        string            `yaml:"name"`
	Vendor      string            `yaml:"vendor"`
	Device      string            `yaml:"device"`
	Toolchain   string            `yaml:"toolchain"`
	ClkFreq     Frequency         `yaml:"clk_freq"`
	ClkSim      Frequency         `yaml:"clk_sim"`
	Baudrate    int               `yaml:"baudrate"`
	Arbitration string            `yaml:"arbitration"`
	ResetCycles int               `yaml:"reset_cycles"`
	MemMap      map[string]uint32 `yaml:"mem_map"`
	Cores       []CoreConfig      `yaml:"cores"`
	Bridges     []BridgeConfig    `yaml:"bridges"`
	Analyzer    *AnalyzerConfig   `yaml:"analyzer"`
	Commands    Commands          `yaml:"commands"`
}

// CoreConfig configures a core. A nil Base selects the mem_map entry of the
// same name, if any, or an automatically allocated region.
//
type CoreConfig struct {
	Name string  `yaml:"name"`
	Base *uint32 `yaml:"base"`
	Size uint32  `yaml:"size"`
}

// BridgeConfig configures a serial bus bridge. A zero Baudrate selects the
// global baudrate.
//
type BridgeConfig struct {
	Name     string `yaml:"name"`
	Baudrate int    `yaml:"baudrate"`
}

// AnalyzerConfig configures the logic analyzer. Signals are references to
// registered signals or signal groups. An empty list selects the sink,
// source and bus of the first core.
//
type AnalyzerConfig struct {
	Name        string   `yaml:"name"`
	Base        *uint32  `yaml:"base"`
	Depth       int      `yaml:"depth"`
	PostTrigger *int     `yaml:"post_trigger"`
	Signals     []string `yaml:"signals"`
	CSV         string   `yaml:"csv"`
}

// Commands holds the external commands run for the build, load and flash
// steps. See Toolchain for the placeholders they may contain.
//
type Commands struct {
	Build []string `yaml:"build"`
	Load  []string `yaml:"load"`
	Flash []string `yaml:"flash"`
}

// Load reads, checks and completes the configuration in the named file.
//
func Load(name string) (*Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, &ConfigurationError{Key: name, Msg: err.Error()}
	}
	cfg, err := parse(bytes.NewReader(data), name)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration, rejecting unknown keys, fills in the
// defaults and validates the result. Documents that cannot be decoded are
// reported with the key "document".
//
func Parse(r io.Reader) (*Config, error) {
	return parse(r, "document")
}

func parse(r io.Reader, doc string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, &ConfigurationError{Key: doc, Msg: err.Error()}
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Toolchain == "" && len(toolchains[c.Vendor]) > 0 {
		c.Toolchain = toolchains[c.Vendor][0]
	}
	if c.ClkSim == 0 {
		c.ClkSim = c.ClkFreq
	}
	if c.Baudrate == 0 {
		c.Baudrate = DefaultBaudrate
	}
	if c.Arbitration == "" {
		c.Arbitration = wishbone.RoundRobin.String()
	}
	if c.ResetCycles == 0 {
		c.ResetCycles = DefaultResetCycles
	}
	if len(c.Cores) == 0 {
		c.Cores = []CoreConfig{{Name: DefaultCoreName}}
	}
	for i := range c.Cores {
		k := &c.Cores[i]
		if k.Base == nil {
			if b, ok := c.MemMap[k.Name]; ok {
				k.Base = &b
			}
		}
		if k.Base != nil && k.Size == 0 {
			k.Size = DefaultCoreSize
		}
	}
	if len(c.Bridges) == 0 {
		c.Bridges = []BridgeConfig{{Name: DefaultBridgeName}}
	}
	for i := range c.Bridges {
		if c.Bridges[i].Baudrate == 0 {
			c.Bridges[i].Baudrate = c.Baudrate
		}
	}
	if c.Analyzer == nil {
		c.Analyzer = &AnalyzerConfig{}
	}
	a := c.Analyzer
	if a.Name == "" {
		a.Name = DefaultAnalyzerName
	}
	if a.Base == nil {
		if b, ok := c.MemMap[a.Name]; ok {
			a.Base = &b
		}
	}
	if a.Depth == 0 {
		a.Depth = DefaultAnalyzerDepth
	}
	if a.PostTrigger == nil {
		p := a.Depth / 2
		a.PostTrigger = &p
	}
	if len(a.Signals) == 0 {
		n := c.Cores[0].Name
		a.Signals = []string{n + ".sink", n + ".source", n + ".bus"}
	}
	if a.CSV == "" {
		a.CSV = "analyzer.csv"
	}
}

// Validate checks a configuration with defaults filled in.
//
func (c *Config) Validate() error {
	tcs, ok := toolchains[c.Vendor]
	if !ok {
		return configError("vendor", "unsupported vendor %q", c.Vendor)
	}
	if c.Vendor == "sim" && c.Toolchain != "" {
		return configError("toolchain", "no toolchain for vendor sim")
	}
	if c.Vendor != "sim" && !contains(tcs, c.Toolchain) {
		return configError("toolchain", "unsupported toolchain %q for vendor %s (supported: %s)", c.Toolchain, c.Vendor, strings.Join(tcs, ", "))
	}
	if c.Vendor != "sim" && c.Device == "" {
		return configError("device", "missing device for vendor %s", c.Vendor)
	}
	if c.ClkFreq == 0 {
		return configError("clk_freq", "missing clock frequency")
	}
	if c.Baudrate < 0 {
		return configError("baudrate", "invalid baudrate %d", c.Baudrate)
	}
	if _, err := wishbone.ParseArbitration(c.Arbitration); err != nil {
		return configError("arbitration", "%v", err)
	}
	if c.ResetCycles < 0 {
		return configError("reset_cycles", "invalid cycle count %d", c.ResetCycles)
	}

	names := make(map[string]string)
	unique := func(key, name string) error {
		if name == "" {
			return configError(key, "missing name")
		}
		if strings.ContainsAny(name, ".,=[] ") {
			return configError(key, "invalid name %q", name)
		}
		if k, ok := names[name]; ok {
			return configError(key, "name %q already used by %s", name, k)
		}
		names[name] = key
		return nil
	}
	for i, k := range c.Cores {
		key := "cores[" + strconv.Itoa(i) + "]"
		if err := unique(key+".name", k.Name); err != nil {
			return err
		}
		if k.Base == nil && k.Size != 0 {
			return configError(key+".size", "size without base address")
		}
	}
	for i, b := range c.Bridges {
		key := "bridges[" + strconv.Itoa(i) + "]"
		if err := unique(key+".name", b.Name); err != nil {
			return err
		}
		if b.Baudrate <= 0 {
			return configError(key+".baudrate", "invalid baudrate %d", b.Baudrate)
		}
	}
	a := c.Analyzer
	if err := unique("analyzer.name", a.Name); err != nil {
		return err
	}
	if a.Depth < 2 {
		return configError("analyzer.depth", "invalid depth %d", a.Depth)
	}
	if p := *a.PostTrigger; p < 0 || p >= a.Depth {
		return configError("analyzer.post_trigger", "%d out of range [0, %d)", p, a.Depth)
	}
	for name := range c.MemMap {
		if _, ok := names[name]; !ok {
			return configError("mem_map."+name, "no such core or analyzer")
		}
	}
	return nil
}

// Clock returns the system clock frequency, clk_sim in simulation mode.
//
func (c *Config) Clock(sim bool) uint64 {
	if sim {
		return uint64(c.ClkSim)
	}
	return uint64(c.ClkFreq)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
