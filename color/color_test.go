package color

import (
	"testing"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

func solidFrame(p *pool.Pool, w, h int, r, g, b byte) *frame.Frame {
	buf := p.Acquire(pool.Class{Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24})
	for i := 0; i+2 < len(buf.Bytes); i += 3 {
		buf.Bytes[i] = r
		buf.Bytes[i+1] = g
		buf.Bytes[i+2] = b
	}
	buf.Len = len(buf.Bytes)
	return &frame.Frame{Buf: buf, Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24}
}

func TestApplyDisabledIsIdentity(t *testing.T) {
	p := pool.New(2, nil)
	f := solidFrame(p, 2, 2, 10, 20, 30)
	s := New()
	defer s.Close()

	cs := state.DefaultColor()
	cs.Enabled = false
	if err := s.Apply(f, &cs); err != nil {
		t.Fatal(err)
	}
	if f.Bytes()[0] != 10 || f.Bytes()[1] != 20 || f.Bytes()[2] != 30 {
		t.Fatal("disabled color stage should not modify pixels")
	}
}

func TestApplyIdentityGainsIsNoOp(t *testing.T) {
	p := pool.New(2, nil)
	f := solidFrame(p, 2, 2, 100, 100, 100)
	s := New()
	defer s.Close()

	cs := state.DefaultColor()
	cs.Enabled = true
	if err := s.Apply(f, &cs); err != nil {
		t.Fatal(err)
	}
	if f.Bytes()[0] != 100 || f.Bytes()[1] != 100 || f.Bytes()[2] != 100 {
		t.Fatalf("identity settings changed pixel: %v", f.Bytes()[:3])
	}
}

func TestApplyBrightnessContrastCentersOnMidGray(t *testing.T) {
	p := pool.New(2, nil)
	f := solidFrame(p, 2, 2, 128, 128, 128)
	s := New()
	defer s.Close()

	cs := state.DefaultColor()
	cs.Enabled = true
	cs.Contrast = 2
	if err := s.Apply(f, &cs); err != nil {
		t.Fatal(err)
	}
	if got := f.Bytes()[0]; got != 128 {
		t.Fatalf("mid-gray under pure contrast change = %d, want 128 (contrast must center on 128, not shift it)", got)
	}
}

func TestApplyBrightnessScalesFromUIRangeToPixelRange(t *testing.T) {
	p := pool.New(2, nil)
	f := solidFrame(p, 2, 2, 50, 50, 50)
	s := New()
	defer s.Close()

	cs := state.DefaultColor()
	cs.Enabled = true
	cs.Brightness = 100
	if err := s.Apply(f, &cs); err != nil {
		t.Fatal(err)
	}
	// 50 + 100*2.55 = 305, clamped to 255.
	if got := f.Bytes()[0]; got != 255 {
		t.Fatalf("brightness=100 on pixel 50 = %d, want 255 (clamped)", got)
	}
}

// awbTestData builds n pixels of RGB24 data with a constant red cast
// (R > G == B) but brightness alternating every awbSampleStride pixels,
// so the sparse AWB sampler sees nonzero variance across samples while
// the gray-world ratio between channels stays exact.
func awbTestData(n int) []byte {
	data := make([]byte, n*3)
	for i := 0; i < n; i++ {
		s := 0.7
		if (i/awbSampleStride)%2 == 0 {
			s = 1.3
		}
		r := byte(150 * s)
		g := byte(75 * s)
		data[i*3] = r
		data[i*3+1] = g
		data[i*3+2] = g
	}
	return data
}

func TestAutoWhiteBalanceGainsNeutralizesCast(t *testing.T) {
	data := awbTestData(4 * awbSampleStride)

	red, green, blue, err := AutoWhiteBalanceGains(data)
	if err != nil {
		t.Fatal(err)
	}
	if green != 1 {
		t.Fatalf("green gain should be the fixed reference, got %v", green)
	}
	if red >= 1 {
		t.Fatalf("red gain should pull red down (< 1) to correct cast, got %v", red)
	}
	if blue != 1 {
		t.Fatalf("blue gain should be 1 when blue==green, got %v", blue)
	}
}

func TestAutoWhiteBalanceGainsRejectsFlatDarkScene(t *testing.T) {
	p := pool.New(2, nil)
	f := solidFrame(p, 4, 4, 1, 1, 1)

	_, _, _, err := AutoWhiteBalanceGains(f.Bytes())
	if _, ok := err.(*LowSignal); !ok {
		t.Fatalf("err = %v, want *LowSignal", err)
	}
}
