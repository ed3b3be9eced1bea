/*
DESCRIPTION
  output.go wraps a V4L2 loopback output device (e.g. /dev/video10,
  created by the v4l2loopback kernel module), writing processed frames
  back out as YUYV so downstream consumers (browsers, video
  conferencing apps) can open it like any other camera.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package output provides the V4L2 loopback sink the transformed video
// is written to.
package output

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/frame"
)

// ShortWrite is returned when the frame handed to Write holds fewer bytes
// than a YUYV frame at the sink's dimensions requires.
type ShortWrite struct {
	Wanted, Got int
}

func (e *ShortWrite) Error() string {
	return fmt.Sprintf("output: short write: wanted %d bytes, wrote %d", e.Wanted, e.Got)
}

// Sink writes YUYV frames to a V4L2 loopback device.
type Sink struct {
	log    logging.Logger
	dev    *device.Device
	in     chan []byte
	width  uint32
	height uint32
}

// Open opens the loopback device at path and configures it for YUYV
// output at the given dimensions, matching the format the encode stage
// produces (see spec for the output contract: always YUYV, regardless of
// the capture source's format).
func Open(path string, width, height uint32, log logging.Logger) (*Sink, error) {
	dev, err := device.Open(path,
		device.WithPixFormat(v4l2.PixFormat{
			Width:       width,
			Height:      height,
			PixelFormat: v4l2.PixelFmtYUYV,
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "output: open %s", path)
	}

	in := make(chan []byte, 2)
	dev.SetInput(in)

	return &Sink{log: log, dev: dev, in: in, width: width, height: height}, nil
}

// Write sends f's bytes to the loopback device. f must already be YUYV
// at the sink's configured dimensions; callers are responsible for
// running the encode stage's RGB24-to-YUYV conversion first.
func (s *Sink) Write(f *frame.Frame) error {
	want := int(s.width) * int(s.height) * 2
	data := f.Bytes()
	if len(data) < want {
		return &ShortWrite{Wanted: want, Got: len(data)}
	}
	select {
	case s.in <- data[:want]:
		return nil
	default:
		s.log.Warning(pkg + "output device not keeping up, dropping frame")
		return nil
	}
}

// Close shuts down the output device.
func (s *Sink) Close() error {
	close(s.in)
	return s.dev.Close()
}

const pkg = "output: "
