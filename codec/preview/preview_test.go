package preview

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
)

func TestEncodeInactiveReturnsNil(t *testing.T) {
	f := &frame.Frame{Width: 2, Height: 2, Format: pool.FmtRGB24}
	out, err := Encode(f, false)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Fatal("inactive encode should return nil bytes")
	}
}

func TestEncodeActiveProducesValidJPEG(t *testing.T) {
	p := pool.New(1, nil)
	buf := p.Acquire(pool.Class{Width: 4, Height: 4, Format: pool.FmtRGB24})
	for i := range buf.Bytes {
		buf.Bytes[i] = byte(i % 255)
	}
	buf.Len = len(buf.Bytes)
	f := &frame.Frame{Buf: buf, Width: 4, Height: 4, Format: pool.FmtRGB24}

	out, err := Encode(f, true)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("encoded output is not valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Fatalf("decoded size = %v, want 4x4", img.Bounds())
	}
}
