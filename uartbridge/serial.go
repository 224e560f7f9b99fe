// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package uartbridge

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/term"
)

// A Serial is a Port over a byte stream, typically a serial device.
//
type Serial struct {
	rw      io.ReadWriter
	timeout time.Duration
	flush   func() error
	close   func() error
}

// NewSerial returns a Serial port over rw. timeout bounds the wait for each
// response.
//
func NewSerial(rw io.ReadWriter, timeout time.Duration) *Serial {
	return &Serial{rw: rw, timeout: timeout}
}

// OpenSerial opens the serial device dev in raw mode at the given baud rate.
//
func OpenSerial(dev string, baud int, timeout time.Duration) (*Serial, error) {
	t, err := term.Open(dev, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dev)
	}
	if err = t.SetReadTimeout(50 * time.Millisecond); err != nil {
		t.Close()
		return nil, errors.Wrapf(err, "%s: set read timeout", dev)
	}
	s := NewSerial(t, timeout)
	s.flush, s.close = t.Flush, t.Close
	return s, nil
}

// Close closes the underlying device, if any.
//
func (s *Serial) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Exchange implements Port.
//
func (s *Serial) Exchange(frame []byte, respLen int) ([]byte, error) {
	if s.flush != nil {
		// drop stale input
		if err := s.flush(); err != nil {
			return nil, errors.Wrap(err, "flush")
		}
	}
	if _, err := s.rw.Write(frame); err != nil {
		return nil, errors.Wrap(err, "write frame")
	}
	var (
		resp     = make([]byte, 0, respLen)
		buf      = make([]byte, respLen)
		deadline = time.Now().Add(s.timeout)
	)
	for {
		n, err := s.rw.Read(buf[:respLen-len(resp)])
		resp = append(resp, buf[:n]...)
		if len(resp) > 0 && (resp[0] != StatusOK || len(resp) >= respLen) {
			if resp[0] != StatusOK {
				resp = resp[:1]
			}
			return resp, nil
		}
		if err != nil && err != io.EOF {
			return resp, errors.Wrap(err, "read response")
		}
		if time.Now().After(deadline) {
			return resp, errors.Errorf("no response after %v (%d of %d bytes)", s.timeout, len(resp), respLen)
		}
	}
}
