// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

// Package uartbridge implements a bus master driven by a host over a serial
// line, the simulated and real host side clients that talk to it, and the
// UART receiver and transmitter parts it is built from.
//
// Frames sent by the host are:
//
//	cmd(1) count(1) addr(4) [data(4) x count]
//
// where cmd is 0x01 for writes and 0x02 for reads, count is the number of
// 32 bits words to transfer (1 to 255) and addr is the byte address of the
// first word. Multi-byte fields are big endian. Words are transferred at
// consecutive word addresses.
//
// Every command is answered with a status byte (0x00 for success, 0x01 if a
// bus transaction was not acknowledged in time), followed by count data words
// for successful reads. Malformed frames (unknown command, zero count, or a
// frame interrupted for longer than the inter-byte timeout) are discarded
// without response.
//
package uartbridge

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Commands.
const (
	CmdWrite byte = 0x01
	CmdRead  byte = 0x02
)

// Response status codes.
const (
	StatusOK         byte = 0x00
	StatusBusTimeout byte = 0x01
)

// MaxWords is the maximum word count of a single frame.
const MaxWords = 255

const headerLen = 6

// ErrBusTimeout is returned by clients when the bridge reports that a bus
// transaction was not acknowledged.
var ErrBusTimeout = errors.New("bridge bus transaction timed out")

// EncodeWrite encodes a write command frame.
//
func EncodeWrite(addr uint32, words []uint32) ([]byte, error) {
	if len(words) == 0 || len(words) > MaxWords {
		return nil, errors.Errorf("invalid word count %d", len(words))
	}
	b := make([]byte, headerLen+4*len(words))
	b[0], b[1] = CmdWrite, byte(len(words))
	binary.BigEndian.PutUint32(b[2:], addr)
	for i, w := range words {
		binary.BigEndian.PutUint32(b[headerLen+4*i:], w)
	}
	return b, nil
}

// EncodeRead encodes a read command frame.
//
func EncodeRead(addr uint32, n int) ([]byte, error) {
	if n <= 0 || n > MaxWords {
		return nil, errors.Errorf("invalid word count %d", n)
	}
	b := make([]byte, headerLen)
	b[0], b[1] = CmdRead, byte(n)
	binary.BigEndian.PutUint32(b[2:], addr)
	return b, nil
}

// ResponseLen returns the length of a successful response to a command.
//
func ResponseLen(cmd byte, n int) int {
	if cmd == CmdRead {
		return 1 + 4*n
	}
	return 1
}

// DecodeResponse decodes the response to a command transferring n words.
//
func DecodeResponse(cmd byte, n int, resp []byte) ([]uint32, error) {
	if len(resp) == 0 {
		return nil, errors.New("empty response")
	}
	switch resp[0] {
	case StatusOK:
	case StatusBusTimeout:
		return nil, ErrBusTimeout
	default:
		return nil, errors.Errorf("invalid response status 0x%02x", resp[0])
	}
	if l := ResponseLen(cmd, n); len(resp) != l {
		return nil, errors.Errorf("response length %d, expected %d", len(resp), l)
	}
	if cmd != CmdRead {
		return nil, nil
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(resp[1+4*i:])
	}
	return words, nil
}

// frame is a decoded command frame.
//
type frame struct {
	cmd   byte
	count int
	addr  uint32
	data  []uint32
}

// frameDecoder accumulates command frame bytes.
//
type frameDecoder struct {
	buf []byte
	f   frame
}

func (d *frameDecoder) reset() {
	d.buf = d.buf[:0]
	d.f = frame{}
}

// push adds a byte to the frame being decoded. It returns true once the
// frame is complete, or an error if the frame is malformed.
//
func (d *frameDecoder) push(b byte) (bool, error) {
	d.buf = append(d.buf, b)
	switch n := len(d.buf); {
	case n == 1:
		if b != CmdWrite && b != CmdRead {
			return false, errors.Errorf("unknown command 0x%02x", b)
		}
		d.f.cmd = b
	case n == 2:
		if b == 0 {
			return false, errors.New("zero word count")
		}
		d.f.count = int(b)
	case n == headerLen:
		d.f.addr = binary.BigEndian.Uint32(d.buf[2:])
	case n > headerLen && (n-headerLen)%4 == 0:
		d.f.data = append(d.f.data, binary.BigEndian.Uint32(d.buf[n-4:]))
	}
	if len(d.buf) < headerLen {
		return false, nil
	}
	if d.f.cmd == CmdRead {
		return true, nil
	}
	return len(d.f.data) == d.f.count, nil
}
