/*
DESCRIPTION
  frame.go defines Frame, the pixel buffer tagged with format, sequence and
  timestamp that flows through the capture -> decode -> color -> warp ->
  output pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame defines the Frame type shared by every pipeline stage.
package frame

import (
	"time"

	"github.com/loopvid/keystone/pool"
)

// Frame is a single pixel buffer acquired from a pool.Pool, filled once by
// a producer stage and consumed once by the next, then returned.
type Frame struct {
	Buf    *pool.Buffer
	Width  uint32
	Height uint32
	Format pool.PixFmt
	Seq    uint64
	TS     time.Time
}

// Bytes returns the valid pixel data for the frame. For fixed-size formats
// (RGB24, YUYV) this is the whole buffer; for MJPEG it's truncated to
// Buf.Len.
func (f *Frame) Bytes() []byte {
	if f == nil || f.Buf == nil {
		return nil
	}
	if f.Format == pool.FmtMJPEG {
		return f.Buf.Bytes[:f.Buf.Len]
	}
	return f.Buf.Bytes
}

// Class returns the pool.Class this frame's buffer was drawn from.
func (f *Frame) Class() pool.Class {
	return pool.Class{Width: f.Width, Height: f.Height, Format: f.Format}
}
