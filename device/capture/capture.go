/*
DESCRIPTION
  capture.go wraps a V4L2 capture device, negotiating the requested pixel
  format and frame rate and delivering raw frames (MJPEG or YUYV) onto a
  pool.Buffer-backed frame.Frame channel.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package capture provides the video capture source, reading frames from
// a V4L2 device such as /dev/video0.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
)

// DeviceLost is returned from Next when the underlying device's output
// channel closes unexpectedly, signalling the pipeline should give up on
// this device rather than retry a read.
type DeviceLost struct{ Path string }

func (e *DeviceLost) Error() string { return fmt.Sprintf("capture: device lost: %s", e.Path) }

// Timeout is returned from Next when no frame arrives within the
// configured per-read deadline. Unlike DeviceLost, a Timeout does not
// mean the device is gone: the caller should drop the frame and keep
// reading, not end the pipeline.
type Timeout struct{ Path string }

func (e *Timeout) Error() string { return fmt.Sprintf("capture: timeout waiting for frame: %s", e.Path) }

// FormatChanged is returned from Open when the device negotiated a
// different width, height or pixel format than requested.
type FormatChanged struct {
	Requested, Actual v4l2.PixFormat
}

func (e *FormatChanged) Error() string {
	return fmt.Sprintf("capture: format changed: requested %dx%d fmt=%d, got %dx%d fmt=%d",
		e.Requested.Width, e.Requested.Height, e.Requested.PixelFormat,
		e.Actual.Width, e.Actual.Height, e.Actual.PixelFormat)
}

// Applied is the actually-negotiated capture format, which may differ
// from what was requested.
type Applied struct {
	Width, Height uint32
	Format        pool.PixFmt
	FPS           uint32
}

// Source captures raw frames from a V4L2 device into pool.Buffer-backed
// frame.Frame values.
type Source struct {
	log  logging.Logger
	pool *pool.Pool
	dev  *device.Device
	path string

	applied Applied
	// timeout bounds how long Next waits for a frame before returning
	// *Timeout; zero disables the deadline.
	timeout time.Duration

	mu      sync.Mutex
	seq     uint64
	running bool
}

// wantedPixFmt chooses the requested V4L2 fourcc: MJPEG is preferred
// since it halves the bus bandwidth a raw YUYV capture would need at the
// same resolution, falling back to YUYV only when the caller demands it
// (see Open's mjpeg parameter).
func wantedPixFmt(width, height uint32, mjpeg bool) v4l2.PixFormat {
	f := v4l2.PixFormat{Width: width, Height: height}
	if mjpeg {
		f.PixelFormat = v4l2.PixelFmtMJPEG
	} else {
		f.PixelFormat = v4l2.PixelFmtYUYV
	}
	return f
}

// Open opens the V4L2 device at path and negotiates the requested
// format. If the driver negotiates a different resolution or pixel
// format, Open still succeeds but returns a *FormatChanged wrapping the
// actual values, so the caller can log it and proceed with Applied().
// timeout bounds how long Next will wait for a frame before returning
// *Timeout; zero disables the deadline.
func Open(path string, width, height uint32, fps uint32, mjpeg bool, bufSize uint32, timeout time.Duration, p *pool.Pool, log logging.Logger) (*Source, error) {
	requested := wantedPixFmt(width, height, mjpeg)
	dev, err := device.Open(path,
		device.WithBufferSize(bufSize),
		device.WithPixFormat(requested),
		device.WithFPS(fps),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "capture: open %s", path)
	}

	actual, err := dev.GetPixFormat()
	if err != nil {
		dev.Close()
		return nil, errors.Wrap(err, "capture: get negotiated pix format")
	}

	actualFPS, err := dev.GetFrameRate()
	if err != nil {
		actualFPS = fps
	}

	s := &Source{
		log:     log,
		pool:    p,
		dev:     dev,
		path:    path,
		timeout: timeout,
		applied: Applied{
			Width:  actual.Width,
			Height: actual.Height,
			Format: pixFmtOf(actual.PixelFormat),
			FPS:    actualFPS,
		},
	}

	if actual.Width != requested.Width || actual.Height != requested.Height || actual.PixelFormat != requested.PixelFormat {
		log.Warning(pkg+"device negotiated a different format than requested",
			"requestedW", requested.Width, "requestedH", requested.Height,
			"actualW", actual.Width, "actualH", actual.Height)
		return s, &FormatChanged{Requested: requested, Actual: actual}
	}
	return s, nil
}

func pixFmtOf(f v4l2.FourCCType) pool.PixFmt {
	if f == v4l2.PixelFmtMJPEG {
		return pool.FmtMJPEG
	}
	return pool.FmtYUYV
}

// Applied returns the actually-negotiated capture format.
func (s *Source) Applied() Applied { return s.applied }

// Start begins streaming. ctx cancellation stops the underlying capture
// loop; callers should also call Stop for a clean device shutdown.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	if err := s.dev.Start(ctx); err != nil {
		return errors.Wrap(err, "capture: start")
	}
	return nil
}

// Stop halts streaming and releases the device.
func (s *Source) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	if err := s.dev.Stop(); err != nil {
		return errors.Wrap(err, "capture: stop")
	}
	return s.dev.Close()
}

// Next blocks for the next captured frame, copying the driver's buffer
// into a frame.Frame drawn from the pool so downstream stages own a
// buffer they're free to hold past the driver's reuse window. If no
// frame arrives within the configured timeout, Next returns *Timeout
// rather than blocking indefinitely; the caller should treat that as a
// dropped frame, not device loss.
func (s *Source) Next(ctx context.Context) (*frame.Frame, error) {
	var timeoutC <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case raw, ok := <-s.dev.GetOutput():
		if !ok {
			return nil, &DeviceLost{Path: s.path}
		}
		class := pool.Class{Width: s.applied.Width, Height: s.applied.Height, Format: s.applied.Format}
		buf := s.pool.Acquire(class)
		n := copy(buf.Bytes, raw)
		buf.Len = n

		s.mu.Lock()
		s.seq++
		seq := s.seq
		s.mu.Unlock()

		return &frame.Frame{
			Buf:    buf,
			Width:  s.applied.Width,
			Height: s.applied.Height,
			Format: s.applied.Format,
			Seq:    seq,
			TS:     time.Now(),
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeoutC:
		return nil, &Timeout{Path: s.path}
	}
}

const pkg = "capture: "
