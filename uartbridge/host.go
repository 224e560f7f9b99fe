// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package uartbridge

import (
	"github.com/db47h/hwsoc"
	"github.com/pkg/errors"
)

// A Host is a simulated serial peer of a bridge. It implements Port by
// stepping the circuit it is attached to until the response is received.
//
// The host part must be mounted exactly once.
//
type Host struct {
	name string
	div  int
	c    *hwsoc.Circuit

	// BusTimeout is the bus timeout of the bridge, in cycles, used to bound
	// the wait for responses.
	BusTimeout int

	rx   receiver
	tx   transmitter
	outq []byte
	inq  []byte
}

// NewHost returns a new simulated host sending and receiving at the given
// bit time.
//
func NewHost(name string, clocksPerBit int) *Host {
	return &Host{
		name:       name,
		div:        clocksPerBit,
		BusTimeout: 256,
		rx:         receiver{div: clocksPerBit},
		tx:         transmitter{div: clocksPerBit},
	}
}

// Part returns the host part.
//
//	Inputs: rx
//	Outputs: tx
//
func (h *Host) Part(connections string) hwsoc.Part {
	return (&hwsoc.PartSpec{
		Name:    "Host(" + h.name + ")",
		Inputs:  hwsoc.IO("rx"),
		Outputs: hwsoc.IO("tx"),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			rx, tx := s.Pin("rx"), s.Pin("tx")
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					if b, ok := h.rx.step(c.Get(rx)); ok {
						h.inq = append(h.inq, b)
					}
					h.tx.step()
					if !h.tx.busy() && len(h.outq) > 0 {
						h.tx.load(h.outq[0])
						h.outq = h.outq[1:]
					}
				}
				c.Set(tx, h.tx.line())
			}}
		}}).NewPart(connections)
}

// Attach sets the circuit stepped by Exchange.
//
func (h *Host) Attach(c *hwsoc.Circuit) { h.c = c }

// Send queues raw bytes for transmission.
//
func (h *Host) Send(b ...byte) { h.outq = append(h.outq, b...) }

// Recv returns and clears the bytes received so far.
//
func (h *Host) Recv() []byte {
	b := h.inq
	h.inq = nil
	return b
}

// Idle returns true if all queued bytes have been sent.
//
func (h *Host) Idle() bool { return len(h.outq) == 0 && !h.tx.busy() }

// Exchange implements Port.
//
func (h *Host) Exchange(frame []byte, respLen int) ([]byte, error) {
	if h.c == nil {
		return nil, errors.Errorf("%s: not attached to a circuit", h.name)
	}
	h.inq = h.inq[:0]
	h.Send(frame...)
	// character time is 10 bits, one extra cycle per stop bit.
	chars := len(frame) + respLen + 2
	words := len(frame)/4 + respLen/4 + 1
	max := chars*(10*h.div+2) + words*(h.BusTimeout+8)
	for i := 0; i < max; i++ {
		h.c.TickTock()
		if len(h.inq) > 0 && (h.inq[0] != StatusOK || len(h.inq) >= respLen) {
			return h.Recv(), nil
		}
	}
	return h.Recv(), errors.Errorf("%s: no response after %d cycles", h.name, max)
}
