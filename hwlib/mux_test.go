package hwlib_test

import (
	"testing"

	hw "github.com/db47h/hwsoc"
	hl "github.com/db47h/hwsoc/hwlib"
	"github.com/db47h/hwsoc/hwtest"
)

func TestMuxN(t *testing.T) {
	m, err := hw.Chip("myMux4", hw.IO("a[4], b[4], sel"), hw.IO("out[4]"), hw.Parts{
		hl.Mux("a=a[0], b=b[0], sel=sel, out=out[0]"),
		hl.Mux("a=a[1], b=b[1], sel=sel, out=out[1]"),
		hl.Mux("a=a[2], b=b[2], sel=sel, out=out[2]"),
		hl.Mux("a=a[3], b=b[3], sel=sel, out=out[3]"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, testTPC, hl.MuxN(4), m)
}

func TestMuxN_4way(t *testing.T) {
	mux4 := hl.MuxN(4)
	mux44, err := hw.Chip("myMux4Way4", hw.IO("a[4], b[4], c[4], d[4], sel[2]"), hw.IO("out[4]"), hw.Parts{
		mux4("a=a, b=b, sel=sel[0], out=m0"),
		mux4("a=c, b=d, sel=sel[0], out=m1"),
		mux4("a=m0, b=m1, sel=sel[1], out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	flat, err := hw.Chip("flatMux4Way4", hw.IO("a[4], b[4], c[4], d[4], sel[2]"), hw.IO("out[4]"), hw.Parts{
		mux4("a[0..3]=a[0..3], b[0..3]=b[0..3], sel=sel[0], out[0..3]=x[0..3]"),
		mux4("a[0..3]=c[0..3], b[0..3]=d[0..3], sel=sel[0], out[0..3]=y[0..3]"),
		mux4("a[0..3]=x[0..3], b[0..3]=y[0..3], sel=sel[1], out[0..3]=out[0..3]"),
	})
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, testTPC, mux44, flat)
}
