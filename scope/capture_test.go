package scope

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
)

func sampleOf(v uint64) *bitset.BitSet {
	return bitset.From([]uint64{v})
}

func TestCapture(t *testing.T) {
	const depth, post = 8, 2
	c := capture{buf: NewBuffer(depth, 64)}
	if c.state != Frozen || c.buf.Len() != 0 {
		t.Fatalf("power-on state %v, %d samples", c.state, c.buf.Len())
	}
	match := func(s *bitset.BitSet) bool { return s.Words()[0] == 10 }

	c.arm(post)
	if c.state != Armed || c.buf.Cursor() != 0 || c.buf.Len() != 0 {
		t.Fatalf("after arm: %v, cursor %d, len %d", c.state, c.buf.Cursor(), c.buf.Len())
	}
	var v uint64
	for ; c.state != Frozen && v < 100; v++ {
		c.sample(sampleOf(v), match)
		if v == depth-post-2 && c.state != Capturing {
			t.Fatalf("state %v after %d pre-trigger samples", c.state, v+1)
		}
	}
	if v != 13 {
		t.Fatalf("froze after sample %d, expected 12", v-1)
	}
	if p := c.trigPos(); p != depth-post-1 {
		t.Fatalf("trigger position %d, expected %d", p, depth-post-1)
	}
	for i := 0; i < depth; i++ {
		if w := c.buf.Word(i, 0); w != uint32(5+i) {
			t.Fatalf("sample %d = %d, expected %d", i, w, 5+i)
		}
	}

	// frozen: no more writes
	cur := c.buf.Cursor()
	for i := 0; i < 20; i++ {
		c.sample(sampleOf(10), match)
	}
	if c.buf.Cursor() != cur || c.buf.Word(depth-1, 0) != 12 || c.state != Frozen {
		t.Fatal("buffer modified after freeze")
	}

	// re-arm
	c.arm(post)
	if c.state != Armed || c.buf.Cursor() != 0 || c.buf.Len() != 0 || c.trigPos() != 0 {
		t.Fatalf("after re-arm: %v, cursor %d, len %d", c.state, c.buf.Cursor(), c.buf.Len())
	}
}

func TestCapture_edges(t *testing.T) {
	always := func(*bitset.BitSet) bool { return true }
	data := []struct {
		depth, post int
		samples     int // samples until frozen
		trigPos     int
	}{
		{4, 0, 4, 3},
		{4, 3, 4, 0},
		{4, 9, 4, 0}, // clamped to depth - 1
		{16, 5, 16, 10},
	}
	for _, d := range data {
		c := capture{buf: NewBuffer(d.depth, 8)}
		c.arm(d.post)
		if c.state != Armed {
			t.Errorf("depth %d post %d: state %v after arm", d.depth, d.post, c.state)
		}
		n := 0
		for c.state != Frozen && n < 100 {
			c.sample(sampleOf(uint64(n)), always)
			n++
		}
		if n != d.samples || c.trigPos() != d.trigPos || c.buf.Len() != d.depth {
			t.Errorf("depth %d post %d: frozen after %d samples, trigger at %d, len %d", d.depth, d.post, n, c.trigPos(), c.buf.Len())
		}
	}
}

func TestBuffer_wrap(t *testing.T) {
	b := NewBuffer(4, 32)
	for i := 0; i < 6; i++ {
		b.Push(sampleOf(uint64(i)))
	}
	if b.Len() != 4 || b.Cursor() != 2 {
		t.Fatalf("len %d, cursor %d", b.Len(), b.Cursor())
	}
	for i := 0; i < 4; i++ {
		if w := b.Word(i, 0); w != uint32(i+2) {
			t.Fatalf("sample %d = %d", i, w)
		}
	}
	if p := b.Position(1); p != 3 {
		t.Fatalf("position of slot 1: %d", p)
	}
	if w := b.Word(4, 0); w != 0 {
		t.Fatalf("out of range read %d", w)
	}
}
