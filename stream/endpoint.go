// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package stream implements valid/ready handshaked data channels between
// hardware stages.
//
// A transfer commits in a cycle where both valid and ready are asserted. The
// producer drives valid, the payload fields and the optional last flag; the
// consumer drives ready. Once valid is asserted, the producer must hold valid
// and the payload unchanged until the transfer commits.
//
package stream

import (
	"strconv"
	"strings"

	"github.com/db47h/hwsoc"
)

// A Field is a named fixed-width payload field.
//
type Field struct {
	Name  string
	Width int
}

// A Layout describes the payload of an endpoint.
//
type Layout []Field

// Width returns the total payload width in bits.
//
func (l Layout) Width() int {
	w := 0
	for _, f := range l {
		w += f.Width
	}
	return w
}

// A Beat is the payload transferred in a single cycle. Payload holds one value
// per layout field.
//
type Beat struct {
	Payload []uint64
	Last    bool
}

// Equal returns true if b and o carry the same payload and last flag.
//
func (b Beat) Equal(o Beat) bool {
	if b.Last != o.Last || len(b.Payload) != len(o.Payload) {
		return false
	}
	for i := range b.Payload {
		if b.Payload[i] != o.Payload[i] {
			return false
		}
	}
	return true
}

// Endpoint describes a stream interface. Its pins are named after the
// endpoint name: <name>_<field>[width], <name>_valid, <name>_ready and
// <name>_last. An empty name yields unprefixed pin names.
//
type Endpoint struct {
	Name   string
	Layout Layout
	Last   bool
}

func (e Endpoint) pin(n string) string {
	if e.Name == "" {
		return n
	}
	return e.Name + "_" + n
}

// Field returns the bus name of the given payload field.
//
func (e Endpoint) Field(name string) string { return e.pin(name) }

// Valid returns the name of the valid pin.
//
func (e Endpoint) Valid() string { return e.pin("valid") }

// Ready returns the name of the ready pin.
//
func (e Endpoint) Ready() string { return e.pin("ready") }

// LastPin returns the name of the last pin.
//
func (e Endpoint) LastPin() string { return e.pin("last") }

// ProducerPins returns the expanded names of the pins driven by the producer.
//
func (e Endpoint) ProducerPins() []string {
	var pins []string
	for _, f := range e.Layout {
		pins = append(pins, hwsoc.IO(e.Field(f.Name)+"["+strconv.Itoa(f.Width)+"]")...)
	}
	pins = append(pins, e.Valid())
	if e.Last {
		pins = append(pins, e.LastPin())
	}
	return pins
}

// ConsumerPins returns the names of the pins driven by the consumer.
//
func (e Endpoint) ConsumerPins() []string {
	return []string{e.Ready()}
}

// Wires returns a connection string that maps the pins of e, as declared by a
// part, onto the wires of endpoint w in the part's container. Both endpoints
// must share the same layout.
//
func (e Endpoint) Wires(w Endpoint) string {
	var b strings.Builder
	add := func(pp, cp string) {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pp)
		b.WriteByte('=')
		b.WriteString(cp)
	}
	for _, f := range e.Layout {
		add(e.Field(f.Name), w.Field(f.Name))
	}
	add(e.Valid(), w.Valid())
	add(e.Ready(), w.Ready())
	if e.Last && w.Last {
		add(e.LastPin(), w.LastPin())
	}
	return b.String()
}

// Pins holds the pin numbers of an endpoint mounted in a socket.
//
type Pins struct {
	fields [][]int
	valid  int
	ready  int
	last   int
}

// Bind looks up the pins of e in socket s.
//
func (e Endpoint) Bind(s *hwsoc.Socket) *Pins {
	p := &Pins{
		fields: make([][]int, len(e.Layout)),
		valid:  s.Pin(e.Valid()),
		ready:  s.Pin(e.Ready()),
		last:   -1,
	}
	for i, f := range e.Layout {
		p.fields[i] = s.Bus(e.Field(f.Name), f.Width)
	}
	if e.Last {
		p.last = s.Pin(e.LastPin())
	}
	return p
}

// Beat returns the payload and last flag currently on the endpoint.
//
func (p *Pins) Beat(c *hwsoc.Circuit) Beat {
	b := Beat{Payload: make([]uint64, len(p.fields))}
	for i, f := range p.fields {
		b.Payload[i] = c.GetInt(f)
	}
	if p.last >= 0 {
		b.Last = c.Get(p.last)
	}
	return b
}

// SetBeat drives the payload and last flag.
//
func (p *Pins) SetBeat(c *hwsoc.Circuit, b Beat) {
	for i, f := range p.fields {
		var v uint64
		if i < len(b.Payload) {
			v = b.Payload[i]
		}
		c.SetInt(f, v)
	}
	if p.last >= 0 {
		c.Set(p.last, b.Last)
	}
}

// Valid returns the state of the valid pin.
//
func (p *Pins) Valid(c *hwsoc.Circuit) bool { return c.Get(p.valid) }

// Ready returns the state of the ready pin.
//
func (p *Pins) Ready(c *hwsoc.Circuit) bool { return c.Get(p.ready) }

// SetValid drives the valid pin.
//
func (p *Pins) SetValid(c *hwsoc.Circuit, v bool) { c.Set(p.valid, v) }

// SetReady drives the ready pin.
//
func (p *Pins) SetReady(c *hwsoc.Circuit, v bool) { c.Set(p.ready, v) }

// Fire returns true if a transfer commits in the current cycle.
//
func (p *Pins) Fire(c *hwsoc.Circuit) bool { return c.Get(p.valid) && c.Get(p.ready) }
