// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// A Netlist is a serializable description of an assembled system: its pads,
// address map, bus masters, parts with their connections and the signals
// observed by the logic analyzer.
//
type Netlist struct {
	Name        string      `json:"name"`
	Clock       NetClock    `json:"clock"`
	Arbitration string      `json:"arbitration"`
	Pads        []NetPad    `json:"pads"`
	Regions     []NetRegion `json:"regions"`
	Masters     []string    `json:"masters"`
	Parts       []NetPart   `json:"parts"`
	Observed    []NetSignal `json:"observed"`
}

// NetClock describes the system clock.
type NetClock struct {
	Name string `json:"name"`
	Freq uint64 `json:"freq"`
}

// NetPad describes a top-level pad.
type NetPad struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Direction string `json:"direction"`
}

// NetRegion describes an address region.
type NetRegion struct {
	Name string `json:"name"`
	Base uint32 `json:"base"`
	Size uint32 `json:"size"`
	Type string `json:"type"`
}

// NetPart describes a part and its connections, part pin first.
type NetPart struct {
	Name  string      `json:"name"`
	Conns [][2]string `json:"connections"`
}

// NetSignal describes an observed signal.
type NetSignal struct {
	Name  string   `json:"name"`
	Width int      `json:"width"`
	Wires []string `json:"wires"`
}

// Netlist returns the netlist of s. Board pads models are not included.
//
func (s *System) Netlist() *Netlist {
	n := &Netlist{
		Name:        s.Name,
		Clock:       NetClock{Name: s.Clock.Name, Freq: s.Clock.Freq},
		Arbitration: s.Arbitration.String(),
		Masters:     s.Context.Masters(),
	}
	for _, p := range s.Pads {
		d := "input"
		if p.Output {
			d = "output"
		}
		n.Pads = append(n.Pads, NetPad{Name: p.Name, Width: p.Width, Direction: d})
	}
	for _, r := range s.Context.Regions() {
		n.Regions = append(n.Regions, NetRegion{Name: r.Name, Base: r.Base, Size: r.Size, Type: r.Type.String()})
	}
	for _, p := range s.Context.Parts() {
		np := NetPart{Name: p.Name}
		for _, c := range p.Conns {
			np.Conns = append(np.Conns, [2]string{c.PP, c.CP})
		}
		n.Parts = append(n.Parts, np)
	}
	for _, sig := range s.Observed {
		n.Observed = append(n.Observed, NetSignal{Name: sig.Name, Width: sig.Width, Wires: sig.Pins()})
	}
	return n
}

// WriteJSON writes n as indented JSON.
//
func (n *Netlist) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode netlist")
	}
	_, err = w.Write(append(data, '\n'))
	return errors.Wrap(err, "write netlist")
}

// ReadNetlist decodes a netlist written by WriteJSON.
//
func ReadNetlist(r io.Reader) (*Netlist, error) {
	var n Netlist
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, errors.Wrap(err, "decode netlist")
	}
	return &n, nil
}
