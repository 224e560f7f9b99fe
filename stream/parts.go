// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package stream

import (
	"fmt"

	"github.com/db47h/hwsoc"
)

// Source returns a producer part for endpoint ep. On every rising edge where
// no beat is pending, next is called to fetch the next beat; ok == false
// leaves valid deasserted. A pending beat is held, payload included, until the
// consumer accepts it.
//
//	Inputs: <ep>_ready
//	Outputs: <ep> payload fields, <ep>_valid, <ep>_last
//
func Source(ep Endpoint, next func() (b Beat, ok bool)) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "StreamSource",
		Inputs:  ep.ConsumerPins(),
		Outputs: ep.ProducerPins(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p := ep.Bind(s)
			var (
				cur  Beat
				have bool
			)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					if have && p.Ready(c) {
						have = false
					}
					if !have {
						cur, have = next()
					}
				}
				p.SetValid(c, have)
				p.SetBeat(c, cur)
			}}
		}}).NewPart
}

// Sink returns a consumer part for endpoint ep. ready is polled on every
// rising edge to decide the state of the ready pin for the next cycle; recv
// is called with every committed beat.
//
//	Inputs: <ep> payload fields, <ep>_valid, <ep>_last
//	Outputs: <ep>_ready
//
func Sink(ep Endpoint, ready func() bool, recv func(Beat)) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:    "StreamSink",
		Inputs:  ep.ProducerPins(),
		Outputs: ep.ConsumerPins(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p := ep.Bind(s)
			var rdy bool
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					if rdy && p.Valid(c) {
						recv(p.Beat(c))
					}
					rdy = ready()
				}
				p.SetReady(c, rdy)
			}}
		}}).NewPart
}

// A Violation reports a producer breaking the no-take-back rule.
//
type Violation struct {
	Endpoint string
	Cycle    uint64
	Want     Beat
	Got      Beat
	Dropped  bool // valid was retracted
}

func (v *Violation) Error() string {
	if v.Dropped {
		return fmt.Sprintf("%s: cycle %d: valid retracted before transfer", v.Endpoint, v.Cycle)
	}
	return fmt.Sprintf("%s: cycle %d: payload changed while stalled: %v -> %v", v.Endpoint, v.Cycle, v.Want.Payload, v.Got.Payload)
}

// Monitor returns a passive part that observes endpoint ep and checks the
// commit law every cycle: whenever valid is asserted and ready is not, the
// next cycle must still present valid with the same payload. Violations are
// reported to f. transfers, if not nil, is called for every committed beat.
//
//	Inputs: all pins of ep
//
func Monitor(ep Endpoint, f func(*Violation), transfers func(Beat)) hwsoc.NewPartFn {
	return (&hwsoc.PartSpec{
		Name:   "StreamMonitor",
		Inputs: append(ep.ProducerPins(), ep.ConsumerPins()...),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p := ep.Bind(s)
			var (
				stalled bool
				prev    Beat
			)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if !c.AtTick() || c.Cycle() == 0 {
					return
				}
				// the rising edge samples the state of the cycle that just ended.
				cycle := c.Cycle() - 1
				valid, ready := p.Valid(c), p.Ready(c)
				b := p.Beat(c)
				if stalled {
					switch {
					case !valid:
						f(&Violation{Endpoint: ep.Name, Cycle: cycle, Want: prev, Dropped: true})
					case !b.Equal(prev):
						f(&Violation{Endpoint: ep.Name, Cycle: cycle, Want: prev, Got: b})
					}
				}
				if valid && ready && transfers != nil {
					transfers(b)
				}
				stalled = valid && !ready
				prev = b
			}}
		}}).NewPart
}

// FIFO returns a synchronous first-in first-out buffer of the given depth
// between a sink endpoint (upstream) and a source endpoint (downstream). Both
// endpoints share ep's layout and are named "sink" and "source".
//
//	Inputs: sink payload fields, sink_valid, sink_last, source_ready, rst
//	Outputs: sink_ready, source payload fields, source_valid, source_last
//
func FIFO(ep Endpoint, depth int) hwsoc.NewPartFn {
	if depth < 1 {
		panic("invalid FIFO depth")
	}
	sink := Endpoint{Name: "sink", Layout: ep.Layout, Last: ep.Last}
	source := Endpoint{Name: "source", Layout: ep.Layout, Last: ep.Last}
	ins := append(sink.ProducerPins(), source.ConsumerPins()...)
	return (&hwsoc.PartSpec{
		Name:    fmt.Sprintf("FIFO%d", depth),
		Inputs:  append(ins, "rst"),
		Outputs: append(sink.ConsumerPins(), source.ProducerPins()...),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			in, out, rst := sink.Bind(s), source.Bind(s), s.Pin("rst")
			var (
				buf       = make([]Beat, depth)
				rd, count int
			)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					switch {
					case c.Get(rst):
						rd, count = 0, 0
					default:
						pop := count > 0 && out.Ready(c)
						push := count < depth && in.Valid(c)
						if pop {
							rd = (rd + 1) % depth
							count--
						}
						if push {
							buf[(rd+count)%depth] = in.Beat(c)
							count++
						}
					}
				}
				in.SetReady(c, count < depth)
				out.SetValid(c, count > 0)
				if count > 0 {
					out.SetBeat(c, buf[rd])
				} else {
					out.SetBeat(c, Beat{})
				}
			}}
		}}).NewPart
}
