// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package uartbridge

import (
	"encoding/binary"
	"strconv"

	"github.com/db47h/hwsoc"
	"github.com/db47h/hwsoc/build"
	"github.com/db47h/hwsoc/stream"
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// State is the state of the bridge command processor.
//
type State int

// Bridge states.
const (
	Idle State = iota
	DecodeCommand
	IssueBusTransaction
	AwaitAck
	EmitResponse
)

var stateNames = [...]string{"IDLE", "DECODE_COMMAND", "ISSUE_BUS_TRANSACTION", "AWAIT_ACK", "EMIT_RESPONSE"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Config configures a bridge.
//
type Config struct {
	Name         string
	ClocksPerBit int // serial bit time in clock cycles, at least 4
	FrameTimeout int // maximum gap between bytes of a frame, in cycles. Defaults to 4 character times
	BusTimeout   int // maximum wait for a bus acknowledge, in cycles. Defaults to 256
	FIFODepth    int // depth of the receive and transmit FIFOs. Defaults to 16
}

// A Bridge is a bus master executing register read and write commands
// received over a serial line.
//
type Bridge struct {
	cfg  Config
	part hwsoc.NewPartFn
	log  *log.Entry

	state     State
	discarded int
}

// New returns a new bridge.
//
func New(cfg Config) (*Bridge, error) {
	if cfg.ClocksPerBit < 4 {
		return nil, errors.Errorf("bridge %s: %d clock cycles per bit, need at least 4", cfg.Name, cfg.ClocksPerBit)
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = 40 * cfg.ClocksPerBit
	}
	if cfg.BusTimeout <= 0 {
		cfg.BusTimeout = 256
	}
	if cfg.FIFODepth <= 0 {
		cfg.FIFODepth = 16
	}
	b := &Bridge{cfg: cfg, log: log.WithField("bridge", cfg.Name)}
	if err := b.build(); err != nil {
		return nil, errors.Wrapf(err, "bridge %s", cfg.Name)
	}
	return b, nil
}

// Add creates a bridge and registers it with ctx as a bus master. Its serial
// pins are wired to the top-level wires <name>_rx and <name>_tx.
//
// Registered signals: <name>.rx, <name>.tx and the master bus as
// <name>.bus.*.
//
func Add(ctx *build.Context, cfg Config) (*Bridge, error) {
	b, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err = ctx.AddMaster(cfg.Name); err != nil {
		return nil, err
	}
	bus := build.MasterBus(cfg.Name)
	ctx.Add(b.Part("rx=" + b.RXWire() + ", tx=" + b.TXWire() + ", rst=" + build.ResetWire + ", " +
		wishbone.Interface{Name: "bus"}.Wires(bus)))
	sigs := ctx.Signals()
	if err = sigs.Add(build.Signal{Name: cfg.Name + ".rx", Wire: b.RXWire(), Width: 1}); err != nil {
		return nil, err
	}
	if err = sigs.Add(build.Signal{Name: cfg.Name + ".tx", Wire: b.TXWire(), Width: 1}); err != nil {
		return nil, err
	}
	if err = sigs.AddBus(cfg.Name+".bus", bus); err != nil {
		return nil, err
	}
	return b, nil
}

// Name returns the bridge name.
//
func (b *Bridge) Name() string { return b.cfg.Name }

// Config returns the bridge configuration, defaults applied.
//
func (b *Bridge) Config() Config { return b.cfg }

// RXWire returns the name of the top-level wire the bridge receives on.
//
func (b *Bridge) RXWire() string { return b.cfg.Name + "_rx" }

// TXWire returns the name of the top-level wire the bridge transmits on.
//
func (b *Bridge) TXWire() string { return b.cfg.Name + "_tx" }

// State returns the current state of the command processor.
//
func (b *Bridge) State() State { return b.state }

// Discarded returns the number of malformed frames discarded so far.
//
func (b *Bridge) Discarded() int { return b.discarded }

// Part returns the bridge part.
//
//	Inputs: rx, rst, bus_dat_r[32], bus_ack
//	Outputs: tx, bus_adr[32], bus_dat_w[32], bus_we, bus_stb
//
func (b *Bridge) Part(connections string) hwsoc.Part { return b.part(connections) }

func (b *Bridge) build() error {
	bus := wishbone.Interface{Name: "bus"}
	rxb := stream.Endpoint{Name: "rxb", Layout: ByteLayout}
	rxq := stream.Endpoint{Name: "rxq", Layout: ByteLayout}
	txq := stream.Endpoint{Name: "txq", Layout: ByteLayout}
	txb := stream.Endpoint{Name: "txb", Layout: ByteLayout}
	src := stream.Endpoint{Name: "source", Layout: ByteLayout}
	snk := stream.Endpoint{Name: "sink", Layout: ByteLayout}
	fifo := stream.FIFO(stream.Endpoint{Layout: ByteLayout}, b.cfg.FIFODepth)
	cmd := stream.Endpoint{Name: "cmd", Layout: ByteLayout}
	resp := stream.Endpoint{Name: "resp", Layout: ByteLayout}

	ins := append(hwsoc.IO("rx, rst"), bus.Response()...)
	outs := append(hwsoc.IO("tx"), bus.Request()...)
	chip, err := hwsoc.Chip("UARTBridge", ins, outs, hwsoc.Parts{
		RX(b.cfg.ClocksPerBit)("rx=rx, " + src.Wires(rxb)),
		fifo(snk.Wires(rxb) + ", " + src.Wires(rxq) + ", rst=rst"),
		b.fsm()(cmd.Wires(rxq) + ", " + resp.Wires(txq) + ", rst=rst, " + bus.Wires(bus)),
		fifo(snk.Wires(txq) + ", " + src.Wires(txb) + ", rst=rst"),
		TX(b.cfg.ClocksPerBit)(snk.Wires(txb) + ", tx=tx"),
	})
	b.part = chip
	return err
}

// fsm returns the command processor part. It consumes command bytes on the
// cmd endpoint, masters the bus and produces response bytes on the resp
// endpoint.
//
func (b *Bridge) fsm() hwsoc.NewPartFn {
	bus := wishbone.Interface{Name: "bus"}
	cmd := stream.Endpoint{Name: "cmd", Layout: ByteLayout}
	resp := stream.Endpoint{Name: "resp", Layout: ByteLayout}
	ins := append(cmd.ProducerPins(), resp.ConsumerPins()...)
	ins = append(append(ins, bus.Response()...), "rst")
	outs := append(cmd.ConsumerPins(), resp.ProducerPins()...)
	outs = append(outs, bus.Request()...)
	return (&hwsoc.PartSpec{
		Name:    "BridgeFSM",
		Inputs:  ins,
		Outputs: outs,
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			p := &processor{b: b, in: cmd.Bind(s), out: resp.Bind(s), m: bus.BindMaster(s), rst: s.Pin("rst")}
			return []hwsoc.Component{p.update}
		}}).NewPart
}

type processor struct {
	b   *Bridge
	in  *stream.Pins
	out *stream.Pins
	m   *wishbone.MasterPort
	rst int

	dec    frameDecoder
	word   int
	active *wishbone.Transaction
	waited int
	gap    int
	rdata  []byte
	obuf   []byte
	opos   int

	accept   bool
	offering bool
}

func (p *processor) update(c *hwsoc.Circuit) {
	if c.AtTick() {
		if c.Get(p.rst) {
			p.dec.reset()
			p.active, p.obuf, p.opos = nil, p.obuf[:0], 0
			p.b.state = Idle
		} else {
			p.tick(c)
		}
		st := p.b.state
		p.accept = st == Idle || st == DecodeCommand
		p.offering = st == EmitResponse && p.opos < len(p.obuf)
	}
	p.in.SetReady(c, p.accept)
	p.out.SetValid(c, p.offering)
	var v uint64
	if p.offering {
		v = uint64(p.obuf[p.opos])
	}
	p.out.SetBeat(c, stream.Beat{Payload: []uint64{v}})
	p.m.Drive(c, p.active)
}

func (p *processor) discard(reason string) {
	p.b.discarded++
	p.b.log.WithFields(log.Fields{"reason": reason, "bytes": len(p.dec.buf)}).Debug("discarding malformed frame")
	p.dec.reset()
	p.b.state = Idle
}

func (p *processor) emit(status byte) {
	p.obuf = append(p.obuf[:0], status)
	if status == StatusOK {
		p.obuf = append(p.obuf, p.rdata...)
	}
	p.opos = 0
	p.b.state = EmitResponse
}

func (p *processor) tick(c *hwsoc.Circuit) {
	b := p.b
	f := &p.dec.f
	switch b.state {
	case Idle, DecodeCommand:
		if !p.accept || !p.in.Valid(c) {
			if b.state == DecodeCommand {
				if p.gap++; p.gap > b.cfg.FrameTimeout {
					p.discard("inter-byte timeout")
				}
			}
			return
		}
		p.gap = 0
		done, err := p.dec.push(byte(p.in.Beat(c).Payload[0]))
		switch {
		case err != nil:
			p.discard(err.Error())
		case done:
			p.word, p.rdata = 0, p.rdata[:0]
			b.state = IssueBusTransaction
			b.log.WithFields(log.Fields{"cmd": f.cmd, "addr": f.addr, "count": f.count}).Debug("command")
		default:
			b.state = DecodeCommand
		}
	case IssueBusTransaction:
		tx := wishbone.Transaction{Addr: f.addr + 4*uint32(p.word), We: f.cmd == CmdWrite}
		if tx.We {
			tx.DatW = f.data[p.word]
		}
		p.active, p.waited = &tx, 0
		b.state = AwaitAck
	case AwaitAck:
		if p.m.Ack(c) {
			if f.cmd == CmdRead {
				var w [4]byte
				binary.BigEndian.PutUint32(w[:], p.m.DatR(c))
				p.rdata = append(p.rdata, w[:]...)
			}
			p.active = nil
			if p.word++; p.word < f.count {
				b.state = IssueBusTransaction
			} else {
				p.emit(StatusOK)
			}
			return
		}
		if p.waited++; p.waited > b.cfg.BusTimeout {
			b.log.WithField("tx", p.active.String()).Debug("bus timeout")
			p.active = nil
			p.emit(StatusBusTimeout)
		}
	case EmitResponse:
		if p.offering && p.out.Ready(c) {
			p.opos++
		}
		if p.opos >= len(p.obuf) {
			p.dec.reset()
			b.state = Idle
		}
	}
}
