// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package build

import (
	"sort"
	"strings"

	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/stream"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// A Signal is a named, observable group of top-level wires.
//
// Names are dotted paths like "dummy.sink.data". Wire is the name of the
// top-level wire, or bus base name when Bus is true.
//
type Signal struct {
	Name  string
	Wire  string
	Width int
	Bus   bool
}

// Pins returns the names of the top-level wires carrying s, least
// significant bit first.
//
func (s Signal) Pins() []string {
	if !s.Bus {
		return []string{s.Wire}
	}
	pins := make([]string, s.Width)
	for i := range pins {
		pins[i] = hwsoc.BusPinName(s.Wire, i)
	}
	return pins
}

// A Registry maps signal names to signals.
//
type Registry struct {
	sigs   []Signal
	byName map[string]int
}

// Add registers a signal.
//
func (r *Registry) Add(s Signal) error {
	if s.Name == "" || s.Width <= 0 {
		return errors.Errorf("invalid signal %q of width %d", s.Name, s.Width)
	}
	if r.byName == nil {
		r.byName = make(map[string]int)
	}
	if _, ok := r.byName[s.Name]; ok {
		return errors.Errorf("duplicate signal name %s", s.Name)
	}
	r.byName[s.Name] = len(r.sigs)
	r.sigs = append(r.sigs, s)
	return nil
}

// AddEndpoint registers the signals of the stream endpoint ep, whose wires
// are prefixed with wire, under the name prefix: <prefix>.<field>,
// <prefix>.valid and <prefix>.ready, plus <prefix>.last if the endpoint
// has one.
//
func (r *Registry) AddEndpoint(prefix string, ep stream.Endpoint) error {
	for _, f := range ep.Layout {
		if err := r.Add(Signal{Name: prefix + "." + f.Name, Wire: ep.Field(f.Name), Width: f.Width, Bus: true}); err != nil {
			return err
		}
	}
	ctl := []string{"valid", ep.Valid(), "ready", ep.Ready()}
	if ep.Last {
		ctl = append(ctl, "last", ep.LastPin())
	}
	for i := 0; i < len(ctl); i += 2 {
		if err := r.Add(Signal{Name: prefix + "." + ctl[i], Wire: ctl[i+1], Width: 1}); err != nil {
			return err
		}
	}
	return nil
}

// AddBus registers the signals of the bus interface bus under the name
// prefix: <prefix>.adr, <prefix>.dat_w, and so on.
//
func (r *Registry) AddBus(prefix string, bus wishbone.Interface) error {
	names, widths := bus.Signals()
	short := []string{"adr", "dat_w", "dat_r", "we", "stb", "ack"}
	for i, n := range names {
		if err := r.Add(Signal{Name: prefix + "." + short[i], Wire: n, Width: widths[i], Bus: widths[i] > 1}); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the signal with the given name.
//
func (r *Registry) Lookup(name string) (Signal, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Signal{}, false
	}
	return r.sigs[i], true
}

// Resolve resolves a signal reference. A reference names either a single
// signal or a group of signals sharing the reference as a dotted prefix
// ("dummy.sink" selects every "dummy.sink.*" signal), in registration order.
//
func (r *Registry) Resolve(ref string) ([]Signal, error) {
	if s, ok := r.Lookup(ref); ok {
		return []Signal{s}, nil
	}
	var out []Signal
	for _, s := range r.sigs {
		if strings.HasPrefix(s.Name, ref+".") {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.Errorf("unresolved signal reference %q", ref)
	}
	return out, nil
}

// Signals returns all registered signals in registration order.
//
func (r *Registry) Signals() []Signal { return r.sigs }

// Names returns the sorted names of all registered signals.
//
func (r *Registry) Names() []string {
	names := make([]string, len(r.sigs))
	for i, s := range r.sigs {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

// Probe returns the connections of the bus pin of a part to the wires of
// sigs, packed in order, and the total width.
//
func Probe(bus string, sigs []Signal) ([]hwsoc.Connection, int) {
	var conns []hwsoc.Connection
	for _, s := range sigs {
		for _, p := range s.Pins() {
			conns = append(conns, hwsoc.Connection{PP: hwsoc.BusPinName(bus, len(conns)), CP: p})
		}
	}
	return conns, len(conns)
}
