// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package uartbridge

import (
	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/stream"
)

// ByteLayout is the payload layout of byte streams.
var ByteLayout = stream.Layout{{Name: "data", Width: 8}}

// ClocksPerBit returns the number of clock cycles per bit for the given
// clock frequency and baud rate, rounded to the nearest integer.
//
func ClocksPerBit(freq uint64, baud int) int {
	if baud <= 0 {
		return 0
	}
	return int((freq + uint64(baud)/2) / uint64(baud))
}

// receiver is an 8N1 serial receiver sampling the line once per clock cycle.
//
type receiver struct {
	div   int
	state int
	cnt   int
	bit   uint
	shift byte
}

const (
	rxIdle = iota
	rxStart
	rxData
	rxStop
)

// step samples the line and returns a byte when a complete character with a
// valid stop bit has been received.
//
func (r *receiver) step(line bool) (byte, bool) {
	if r.state == rxIdle {
		if !line {
			// sample in the middle of each bit.
			r.state, r.cnt = rxStart, r.div/2
		}
		return 0, false
	}
	if r.cnt--; r.cnt > 0 {
		return 0, false
	}
	r.cnt = r.div
	switch r.state {
	case rxStart:
		if line {
			r.state = rxIdle // glitch
			break
		}
		r.state, r.bit, r.shift = rxData, 0, 0
	case rxData:
		if line {
			r.shift |= 1 << r.bit
		}
		if r.bit++; r.bit == 8 {
			r.state = rxStop
		}
	case rxStop:
		r.state = rxIdle
		if line {
			return r.shift, true
		}
	}
	return 0, false
}

// transmitter is an 8N1 serial transmitter.
//
type transmitter struct {
	div   int
	cnt   int
	bits  int
	shift uint16
}

func (t *transmitter) busy() bool { return t.bits > 0 }

func (t *transmitter) load(b byte) {
	t.shift = uint16(b)<<1 | 1<<9
	t.bits, t.cnt = 10, t.div
}

// line returns the current line level. The line idles high.
//
func (t *transmitter) line() bool {
	return t.bits == 0 || t.shift&1 != 0
}

// step advances the transmitter by one clock cycle.
//
func (t *transmitter) step() {
	if t.bits == 0 {
		return
	}
	if t.cnt--; t.cnt <= 0 {
		t.shift >>= 1
		t.bits--
		t.cnt = t.div
	}
}

// RX returns a serial receiver part. Received bytes are presented on the
// source endpoint until accepted; a byte that is not accepted before the next
// one is received is lost.
//
//	Inputs: rx, source_ready
//	Outputs: source_data[8], source_valid
//
func RX(clocksPerBit int) hwsoc.NewPartFn {
	src := stream.Endpoint{Name: "source", Layout: ByteLayout}
	return (&hwsoc.PartSpec{
		Name:    "UART_RX",
		Inputs:  append(hwsoc.IO("rx"), src.ConsumerPins()...),
		Outputs: src.ProducerPins(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			rx, p := s.Pin("rx"), src.Bind(s)
			r := receiver{div: clocksPerBit}
			var (
				cur  byte
				have bool
			)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					if have && p.Ready(c) {
						have = false
					}
					if b, ok := r.step(c.Get(rx)); ok {
						cur, have = b, true
					}
				}
				p.SetValid(c, have)
				p.SetBeat(c, stream.Beat{Payload: []uint64{uint64(cur)}})
			}}
		}}).NewPart
}

// TX returns a serial transmitter part sending the bytes received on its sink
// endpoint.
//
//	Inputs: sink_data[8], sink_valid
//	Outputs: sink_ready, tx
//
func TX(clocksPerBit int) hwsoc.NewPartFn {
	snk := stream.Endpoint{Name: "sink", Layout: ByteLayout}
	return (&hwsoc.PartSpec{
		Name:    "UART_TX",
		Inputs:  snk.ProducerPins(),
		Outputs: append(snk.ConsumerPins(), "tx"),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			tx, p := s.Pin("tx"), snk.Bind(s)
			t := transmitter{div: clocksPerBit}
			var rdy bool
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					t.step()
					if rdy && p.Valid(c) {
						t.load(byte(p.Beat(c).Payload[0]))
					}
					rdy = !t.busy()
				}
				p.SetReady(c, rdy)
				c.Set(tx, t.line())
			}}
		}}).NewPart
}
