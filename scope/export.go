// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package scope

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/db47h/hwsoc/vcd"
	"github.com/pkg/errors"
)

// A Capture is an uploaded window of samples.
//
type Capture struct {
	Probes     []Probe
	Samples    [][]uint64 // Samples[i][j] is the value of Probes[j] in the i-th sample
	TriggerPos int
}

// Value returns the value of the named probe in the i-th sample.
//
func (c *Capture) Value(i int, name string) (uint64, bool) {
	if i < 0 || i >= len(c.Samples) {
		return 0, false
	}
	for j, p := range c.Probes {
		if p.Name == name {
			return c.Samples[i][j], true
		}
	}
	return 0, false
}

// WriteVCD writes the capture as a value change dump, one sample per period
// time units. The trigger position is marked by a "trigger" variable.
//
func (c *Capture) WriteVCD(w io.Writer, timescale string, period uint64) error {
	vars := make([]vcd.Var, 0, len(c.Probes)+1)
	for _, p := range c.Probes {
		vars = append(vars, vcd.Var{Name: p.Name, Width: p.Width})
	}
	vars = append(vars, vcd.Var{Name: "trigger", Width: 1})
	vw := vcd.NewWriter(w, timescale, vars)
	values := make([]uint64, len(vars))
	for i, s := range c.Samples {
		copy(values, s)
		values[len(values)-1] = 0
		if i == c.TriggerPos {
			values[len(values)-1] = 1
		}
		if err := vw.Sample(uint64(i)*period, values); err != nil {
			return err
		}
	}
	return vw.Flush()
}

// A Description describes the configuration of a capture unit, as exported
// alongside generated gateware for host tools.
//
type Description struct {
	Name        string
	Base        uint32
	Depth       int
	PostTrigger int
	Probes      []Probe
}

// Describe returns the description of a.
//
func (a *Analyzer) Describe() Description {
	return Description{
		Name:        a.name,
		Base:        a.adapter.Region().Base,
		Depth:       a.Depth(),
		PostTrigger: a.PostTrigger(),
		Probes:      a.probes,
	}
}

// WriteCSV writes d as CSV records:
//
//	config,name,<name>
//	config,base,<base>
//	config,depth,<depth>
//	config,post_trigger,<post>
//	signal,<bit offset>,<name>,<width>
//
func (d Description) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	recs := [][]string{
		{"config", "name", d.Name},
		{"config", "base", "0x" + strconv.FormatUint(uint64(d.Base), 16)},
		{"config", "depth", strconv.Itoa(d.Depth)},
		{"config", "post_trigger", strconv.Itoa(d.PostTrigger)},
	}
	off := 0
	for _, p := range d.Probes {
		recs = append(recs, []string{"signal", strconv.Itoa(off), p.Name, strconv.Itoa(p.Width)})
		off += p.Width
	}
	if err := cw.WriteAll(recs); err != nil {
		return errors.Wrap(err, "write analyzer description")
	}
	return nil
}

// ReadDescription reads a description written by WriteCSV.
//
func ReadDescription(r io.Reader) (Description, error) {
	var d Description
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return d, errors.Wrap(err, "read analyzer description")
	}
	off := 0
	for i, rec := range recs {
		bad := func() error { return errors.Errorf("analyzer description line %d: invalid record %q", i+1, rec) }
		switch {
		case len(rec) == 3 && rec[0] == "config":
			switch rec[1] {
			case "name":
				d.Name = rec[2]
			case "base":
				v, err := strconv.ParseUint(rec[2], 0, 32)
				if err != nil {
					return d, bad()
				}
				d.Base = uint32(v)
			case "depth", "post_trigger":
				v, err := strconv.Atoi(rec[2])
				if err != nil {
					return d, bad()
				}
				if rec[1] == "depth" {
					d.Depth = v
				} else {
					d.PostTrigger = v
				}
			}
		case len(rec) == 4 && rec[0] == "signal":
			o, err1 := strconv.Atoi(rec[1])
			w, err2 := strconv.Atoi(rec[3])
			if err1 != nil || err2 != nil || o != off || w <= 0 {
				return d, bad()
			}
			d.Probes = append(d.Probes, Probe{Name: rec[2], Width: w})
			off += w
		default:
			return d, bad()
		}
	}
	return d, nil
}
