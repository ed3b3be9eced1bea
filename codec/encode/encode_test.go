package encode

import (
	"testing"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
)

func solidRGBFrame(p *pool.Pool, w, h int, r, g, b byte) *frame.Frame {
	buf := p.Acquire(pool.Class{Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24})
	for i := 0; i+2 < len(buf.Bytes); i += 3 {
		buf.Bytes[i], buf.Bytes[i+1], buf.Bytes[i+2] = r, g, b
	}
	buf.Len = w * h * 3
	return &frame.Frame{Buf: buf, Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24}
}

func TestEncodeProducesExpectedByteCount(t *testing.T) {
	p := pool.New(2, nil)
	f := solidRGBFrame(p, 4, 2, 128, 128, 128)
	e := New(p)

	out, err := e.Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(out.Bytes()), 4*2*2; got != want {
		t.Fatalf("encoded length = %d, want %d", got, want)
	}
}

func TestEncodeGrayMapsToNeutralChroma(t *testing.T) {
	p := pool.New(2, nil)
	f := solidRGBFrame(p, 2, 1, 128, 128, 128)
	e := New(p)

	out, err := e.Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	data := out.Bytes()
	// Neutral gray should produce chroma near the 128 center.
	if u := data[1]; u < 120 || u > 136 {
		t.Fatalf("U = %d, want near 128", u)
	}
	if v := data[3]; v < 120 || v > 136 {
		t.Fatalf("V = %d, want near 128", v)
	}
}

func TestEncodeRejectsNonRGB24(t *testing.T) {
	p := pool.New(2, nil)
	buf := p.Acquire(pool.Class{Width: 2, Height: 2, Format: pool.FmtYUYV})
	f := &frame.Frame{Buf: buf, Width: 2, Height: 2, Format: pool.FmtYUYV}
	e := New(p)

	if _, err := e.Encode(f); err == nil {
		t.Fatal("expected error for non-RGB24 input")
	}
}
