// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package uartbridge

import (
	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// A Port carries command frames to a bridge and returns its responses.
//
// Exchange sends frame and returns the response: a single status byte if the
// status is not StatusOK, otherwise respLen bytes.
//
type Port interface {
	Exchange(frame []byte, respLen int) ([]byte, error)
}

// A Client issues register accesses through a bridge.
//
type Client struct {
	p Port
}

var _ wishbone.Accessor = (*Client)(nil)

// NewClient returns a new client using port p.
//
func NewClient(p Port) *Client { return &Client{p: p} }

// ReadN reads n consecutive words starting at byte address addr.
//
func (c *Client) ReadN(addr uint32, n int) ([]uint32, error) {
	var out []uint32
	for n > 0 {
		cnt := n
		if cnt > MaxWords {
			cnt = MaxWords
		}
		f, err := EncodeRead(addr, cnt)
		if err != nil {
			return out, err
		}
		r, err := c.p.Exchange(f, ResponseLen(CmdRead, cnt))
		if err != nil {
			return out, errors.Wrapf(err, "read 0x%08x", addr)
		}
		words, err := DecodeResponse(CmdRead, cnt, r)
		if err != nil {
			return out, errors.Wrapf(err, "read 0x%08x", addr)
		}
		out = append(out, words...)
		addr += 4 * uint32(cnt)
		n -= cnt
	}
	return out, nil
}

// WriteN writes words at consecutive word addresses starting at byte address
// addr.
//
func (c *Client) WriteN(addr uint32, words []uint32) error {
	for len(words) > 0 {
		cnt := len(words)
		if cnt > MaxWords {
			cnt = MaxWords
		}
		f, err := EncodeWrite(addr, words[:cnt])
		if err != nil {
			return err
		}
		r, err := c.p.Exchange(f, ResponseLen(CmdWrite, cnt))
		if err != nil {
			return errors.Wrapf(err, "write 0x%08x", addr)
		}
		if _, err = DecodeResponse(CmdWrite, cnt, r); err != nil {
			return errors.Wrapf(err, "write 0x%08x", addr)
		}
		addr += 4 * uint32(cnt)
		words = words[cnt:]
	}
	return nil
}

// Read implements wishbone.Accessor.
//
func (c *Client) Read(addr uint32) (uint32, error) {
	w, err := c.ReadN(addr, 1)
	if err != nil {
		return 0, err
	}
	return w[0], nil
}

// Write implements wishbone.Accessor.
//
func (c *Client) Write(addr uint32, v uint32) error {
	return c.WriteN(addr, []uint32{v})
}
