package uartbridge_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	ub "github.com/db47h/hwsoc/uartbridge"
	"github.com/pkg/errors"
)

// device answers bridge commands from a word map, one byte per Read call.
type device struct {
	mem  map[uint32]uint32
	resp bytes.Buffer
}

func (d *device) Write(p []byte) (int, error) {
	if len(p) < 6 {
		return len(p), nil
	}
	n, addr := int(p[1]), binary.BigEndian.Uint32(p[2:])
	switch p[0] {
	case ub.CmdWrite:
		for i := 0; i < n; i++ {
			d.mem[addr+4*uint32(i)] = binary.BigEndian.Uint32(p[6+4*i:])
		}
		d.resp.WriteByte(ub.StatusOK)
	case ub.CmdRead:
		if _, ok := d.mem[addr]; !ok {
			d.resp.WriteByte(ub.StatusBusTimeout)
			break
		}
		d.resp.WriteByte(ub.StatusOK)
		for i := 0; i < n; i++ {
			var w [4]byte
			binary.BigEndian.PutUint32(w[:], d.mem[addr+4*uint32(i)])
			d.resp.Write(w[:])
		}
	}
	return len(p), nil
}

func (d *device) Read(p []byte) (int, error) {
	if d.resp.Len() == 0 {
		return 0, io.EOF
	}
	return d.resp.Read(p[:1])
}

func TestSerial(t *testing.T) {
	d := &device{mem: map[uint32]uint32{}}
	c := ub.NewClient(ub.NewSerial(d, 100*time.Millisecond))
	if err := c.WriteN(0x2000, []uint32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	w, err := c.ReadN(0x2000, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(w) != 3 || w[0] != 1 || w[2] != 3 {
		t.Fatalf("got %v", w)
	}
	if _, err = c.Read(0x4000); !errors.Is(err, ub.ErrBusTimeout) {
		t.Fatalf("expected ErrBusTimeout, got %v", err)
	}
}

type mute struct{}

func (mute) Write(p []byte) (int, error) { return len(p), nil }
func (mute) Read(p []byte) (int, error)  { return 0, io.EOF }

func TestSerial_timeout(t *testing.T) {
	c := ub.NewClient(ub.NewSerial(mute{}, 10*time.Millisecond))
	if _, err := c.Read(0); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_split(t *testing.T) {
	d := &device{mem: map[uint32]uint32{}}
	c := ub.NewClient(ub.NewSerial(d, 100*time.Millisecond))
	words := make([]uint32, 300)
	for i := range words {
		words[i] = uint32(i * 3)
	}
	if err := c.WriteN(0x1000, words); err != nil {
		t.Fatal(err)
	}
	got, err := c.ReadN(0x1000, len(words))
	if err != nil {
		t.Fatal(err)
	}
	for i := range words {
		if got[i] != words[i] {
			t.Fatalf("word %d: got %d, expected %d", i, got[i], words[i])
		}
	}
}
