/*
DESCRIPTION
  encode.go converts the pipeline's working RGB24 frame back to YUYV,
  the format every downstream V4L2 loopback consumer expects. Output
  colorimetry is fixed at BT.709, limited range, regardless of the
  source's colorspace: the pipeline is a single working color space
  from decode onward, and the output contract promises a stable,
  predictable encode rather than mirroring whatever the capture device
  happened to negotiate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package encode converts RGB24 frames to YUYV for V4L2 loopback output.
package encode

import (
	"fmt"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
)

// EncodeError wraps a failure to encode a working frame; the pipeline
// treats it as a recoverable, per-frame error.
type EncodeError struct{ Cause error }

func (e *EncodeError) Error() string { return fmt.Sprintf("encode: %v", e.Cause) }
func (e *EncodeError) Unwrap() error  { return e.Cause }

// Encoder converts an RGB24 frame.Frame to a YUYV frame.Frame, acquiring
// its output buffer from pool.
type Encoder struct {
	pool *pool.Pool
}

// New returns an Encoder drawing output buffers from p.
func New(p *pool.Pool) *Encoder { return &Encoder{pool: p} }

// kr and kb are the BT.709 matrix coefficients of the fixed output
// colorimetry, which uses limited-range luma/chroma quantization.
const (
	kr = 0.2126
	kb = 0.0722
)

// Encode converts src (RGB24) to a YUYV frame.Frame, averaging each
// horizontal pixel pair's chroma, matching the YUYV 4:2:2 subsampling
// the V4L2 loopback device expects.
func (e *Encoder) Encode(src *frame.Frame) (*frame.Frame, error) {
	if src.Format != pool.FmtRGB24 {
		return nil, &EncodeError{Cause: fmt.Errorf("encode requires RGB24, got %v", src.Format)}
	}
	w, h := int(src.Width), int(src.Height)
	in := src.Bytes()
	if len(in) < w*h*3 {
		return nil, &EncodeError{Cause: fmt.Errorf("short RGB24 buffer: got %d bytes, want %d", len(in), w*h*3)}
	}

	class := pool.Class{Width: src.Width, Height: src.Height, Format: pool.FmtYUYV}
	buf := e.pool.Acquire(class)
	out := buf.Bytes

	oi := 0
	for y := 0; y < h; y++ {
		rowBase := y * w * 3
		for x := 0; x+1 < w; x += 2 {
			i0 := rowBase + x*3
			i1 := i0 + 3
			y0, u0, v0 := rgbToYUV(in[i0], in[i0+1], in[i0+2])
			y1, u1, v1 := rgbToYUV(in[i1], in[i1+1], in[i1+2])
			u := byte((int(u0) + int(u1)) / 2)
			v := byte((int(v0) + int(v1)) / 2)

			out[oi] = y0
			out[oi+1] = u
			out[oi+2] = y1
			out[oi+3] = v
			oi += 4
		}
		if w%2 == 1 {
			i := rowBase + (w-1)*3
			y0, u0, v0 := rgbToYUV(in[i], in[i+1], in[i+2])
			out[oi], out[oi+1], out[oi+2], out[oi+3] = y0, u0, y0, v0
			oi += 4
		}
	}
	buf.Len = oi

	return &frame.Frame{
		Buf: buf, Width: src.Width, Height: src.Height, Format: pool.FmtYUYV,
		Seq: src.Seq, TS: src.TS,
	}, nil
}

// rgbToYUV converts one RGB24 pixel to limited-range YUV using the
// BT.709 matrix, the inverse of decode's yuvMatrix.apply.
func rgbToYUV(r, g, b byte) (y, u, v byte) {
	kg := 1 - kr - kb
	rf, gf, bf := float64(r), float64(g), float64(b)

	yf := kr*rf + kg*gf + kb*bf
	uf := (bf - yf) / (2 * (1 - kb))
	vf := (rf - yf) / (2 * (1 - kr))

	// Limited range: luma occupies 16-235, chroma 16-240 centered on 128.
	yOut := 16 + yf*(219.0/255.0)
	uOut := 128 + uf*(224.0/255.0)
	vOut := 128 + vf*(224.0/255.0)
	return clampByte(yOut), clampByte(uOut), clampByte(vOut)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
