// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import (
	"github.com/db47h/hwsoc"
	"github.com/pkg/errors"
)

// A Driver is a bus master controlled from Go. It implements Accessor by
// stepping the circuit it is attached to until the transaction completes.
//
// The driver part must be mounted exactly once.
//
type Driver struct {
	name    string
	timeout int
	c       *hwsoc.Circuit

	req    *Transaction // set by the host, picked up on the next rising edge
	active *Transaction
	waited int
	done   bool
	res    Transaction
	err    error
}

// NewDriver returns a new bus master. timeout is the maximum number of cycles
// to wait for an acknowledge before the transaction is withdrawn.
//
func NewDriver(name string, timeout int) *Driver {
	if timeout <= 0 {
		timeout = 64
	}
	return &Driver{name: name, timeout: timeout}
}

// Name returns the name of the master.
//
func (d *Driver) Name() string { return d.name }

// Part returns the bus master part. Its pins are those of an unnamed master
// Interface: adr, dat_w, we and stb are outputs; dat_r and ack are inputs.
//
func (d *Driver) Part(connections string) hwsoc.Part {
	bus := Interface{}
	return (&hwsoc.PartSpec{
		Name:    "Driver(" + d.name + ")",
		Inputs:  bus.Response(),
		Outputs: bus.Request(),
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p := bus.BindMaster(s)
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if c.AtTick() {
					d.tick(c, p)
				}
				p.Drive(c, d.active)
			}}
		}}).NewPart(connections)
}

func (d *Driver) tick(c *hwsoc.Circuit, p *MasterPort) {
	switch {
	case d.active != nil && p.Ack(c):
		d.res = *d.active
		d.res.Ack = true
		if !d.res.We {
			d.res.DatR = p.DatR(c)
		}
		d.active, d.done = nil, true
	case d.active != nil:
		d.waited++
		if d.waited > d.timeout {
			d.res = *d.active
			d.err = errors.Wrapf(ErrTimeout, "%s: %v", d.name, d.res)
			d.active, d.done = nil, true
		}
	case d.req != nil:
		d.active, d.req = d.req, nil
		d.waited = 0
	}
}

// Attach sets the circuit stepped by Read and Write.
//
func (d *Driver) Attach(c *hwsoc.Circuit) { d.c = c }

// Submit queues tx for execution without stepping the circuit. Only one
// transaction may be in flight.
//
func (d *Driver) Submit(tx Transaction) error {
	if d.Busy() {
		return errors.Errorf("%s: transaction already in flight", d.name)
	}
	tx.Stb, tx.Ack = true, false
	d.req, d.done, d.err = &tx, false, nil
	return nil
}

// Busy returns true if a transaction has been submitted and has not completed.
//
func (d *Driver) Busy() bool { return d.req != nil || d.active != nil }

// Result returns the outcome of the last completed transaction.
//
func (d *Driver) Result() (Transaction, bool, error) { return d.res, d.done, d.err }

// Do submits tx and runs the circuit until it completes.
//
func (d *Driver) Do(tx Transaction) (Transaction, error) {
	if d.c == nil {
		return tx, errors.Errorf("%s: not attached to a circuit", d.name)
	}
	if err := d.Submit(tx); err != nil {
		return tx, err
	}
	for !d.done {
		d.c.TickTock()
	}
	return d.res, d.err
}

// Read implements Accessor.
//
func (d *Driver) Read(addr uint32) (uint32, error) {
	r, err := d.Do(Transaction{Addr: addr})
	return r.DatR, err
}

// Write implements Accessor.
//
func (d *Driver) Write(addr uint32, v uint32) error {
	_, err := d.Do(Transaction{Addr: addr, DatW: v, We: true})
	return err
}
