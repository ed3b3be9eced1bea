/*
DESCRIPTION
  decode.go converts captured frames (MJPEG or YUYV) into RGB24, the
  working format every downstream stage operates on.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decode converts captured MJPEG or YUYV frames to RGB24.
package decode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

// DecodeError wraps a failure to decode a captured frame; the pipeline
// treats it as a recoverable, per-frame error (drop the frame, continue).
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.Cause) }
func (e *DecodeError) Unwrap() error  { return e.Cause }

// Decoder converts a captured frame to an RGB24 frame.Frame, acquiring
// its output buffer from pool.
type Decoder struct {
	pool *pool.Pool
}

// New returns a Decoder drawing output buffers from p.
func New(p *pool.Pool) *Decoder {
	return &Decoder{pool: p}
}

// Decode converts src (MJPEG or YUYV) into an RGB24 frame.Frame using
// space/rng to interpret YUYV chroma/luma, or the embedded JFIF markers
// for MJPEG. The caller owns src and is responsible for releasing it.
func (d *Decoder) Decode(src *frame.Frame, space state.ColorSpace, rng state.InputRange) (*frame.Frame, error) {
	switch src.Format {
	case pool.FmtMJPEG:
		return d.decodeMJPEG(src)
	case pool.FmtYUYV:
		return d.decodeYUYV(src, space, rng)
	default:
		return nil, &DecodeError{Cause: fmt.Errorf("unsupported source format %v", src.Format)}
	}
}

func (d *Decoder) decodeMJPEG(src *frame.Frame) (*frame.Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(src.Bytes()))
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	class := pool.Class{Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24}
	buf := d.pool.Acquire(class)

	switch im := img.(type) {
	case *image.YCbCr:
		yCbCrToRGB(im, buf.Bytes)
	default:
		genericToRGB(img, buf.Bytes, w, h)
	}
	buf.Len = w * h * 3

	return &frame.Frame{
		Buf: buf, Width: uint32(w), Height: uint32(h), Format: pool.FmtRGB24,
		Seq: src.Seq, TS: src.TS,
	}, nil
}

// yCbCrToRGB handles the common case: image/jpeg always decodes into
// *image.YCbCr for standard 4:2:0/4:2:2/4:4:4 JPEGs. It converts each
// pixel through At().RGBA(), the same per-pixel path as genericToRGB.
func yCbCrToRGB(im *image.YCbCr, out []byte) {
	bounds := im.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := im.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
}

func genericToRGB(img image.Image, out []byte, w, h int) {
	bounds := img.Bounds()
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
}

func (d *Decoder) decodeYUYV(src *frame.Frame, space state.ColorSpace, rng state.InputRange) (*frame.Frame, error) {
	w, h := int(src.Width), int(src.Height)
	in := src.Bytes()
	if src.Buf != nil && src.Buf.Len < len(in) {
		in = in[:src.Buf.Len]
	}
	if len(in) < w*h*2 {
		return nil, &DecodeError{Cause: fmt.Errorf("short YUYV buffer: got %d bytes, want %d", len(in), w*h*2)}
	}

	class := pool.Class{Width: src.Width, Height: src.Height, Format: pool.FmtRGB24}
	buf := d.pool.Acquire(class)
	out := buf.Bytes

	m := matrixFor(space)
	lumaOff, lumaScale, chromaScale := rangeScale(rng)

	oi := 0
	for i := 0; i+3 < len(in); i += 4 {
		y0 := float64(in[i]) - lumaOff
		u := float64(in[i+1]) - 128
		y1 := float64(in[i+2]) - lumaOff
		v := float64(in[i+3]) - 128

		u *= chromaScale
		v *= chromaScale
		y0 *= lumaScale
		y1 *= lumaScale

		r0, g0, b0 := m.apply(y0, u, v)
		out[oi], out[oi+1], out[oi+2] = r0, g0, b0
		oi += 3

		r1, g1, b1 := m.apply(y1, u, v)
		out[oi], out[oi+1], out[oi+2] = r1, g1, b1
		oi += 3
	}
	buf.Len = w * h * 3

	return &frame.Frame{
		Buf: buf, Width: src.Width, Height: src.Height, Format: pool.FmtRGB24,
		Seq: src.Seq, TS: src.TS,
	}, nil
}

// yuvMatrix holds the Kr/Kb coefficients that determine a colorspace's
// YUV<->RGB conversion.
type yuvMatrix struct {
	kr, kb float64
}

func matrixFor(space state.ColorSpace) yuvMatrix {
	switch space {
	case state.BT601:
		return yuvMatrix{kr: 0.299, kb: 0.114}
	case state.BT2020:
		return yuvMatrix{kr: 0.2627, kb: 0.0593}
	default: // BT709
		return yuvMatrix{kr: 0.2126, kb: 0.0722}
	}
}

// apply converts a single YUV sample to clamped 8-bit RGB using the
// standard ITU-R conversion for this matrix's Kr/Kb.
func (m yuvMatrix) apply(y, u, v float64) (byte, byte, byte) {
	kg := 1 - m.kr - m.kb
	r := y + 2*(1-m.kr)*v
	b := y + 2*(1-m.kb)*u
	g := (y - m.kr*r - m.kb*b) / kg
	return clampByte(r), clampByte(g), clampByte(b)
}

// rangeScale returns the luma offset/scale and chroma scale that map a
// range's quantized values onto full-scale [0,255] before matrix
// conversion: Limited range reserves 16-235 for luma and 16-240 for
// chroma, Full range uses the entire 0-255 span as-is.
func rangeScale(rng state.InputRange) (lumaOff, lumaScale, chromaScale float64) {
	if rng == state.Full {
		return 0, 1, 1
	}
	return 16, 255.0 / 219.0, 255.0 / 224.0
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
