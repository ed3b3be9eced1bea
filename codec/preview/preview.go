/*
DESCRIPTION
  preview.go encodes RGB24 frames to JPEG for the HTTP preview
  endpoints, only when at least one client has activated preview
  (ref-counted via state.PreviewState), so an idle control plane costs
  nothing in the hot loop.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package preview encodes RGB24 working frames to JPEG for the HTTP
// preview endpoints.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
)

// Quality is the JPEG encode quality used for both raw and corrected
// previews.
const Quality = 85

// Encode renders f (RGB24) as a JPEG, returning the encoded bytes. It
// returns nil, nil if active is false, so callers can unconditionally
// call Encode every frame and rely on the zero-cost fast path.
func Encode(f *frame.Frame, active bool) ([]byte, error) {
	if !active {
		return nil, nil
	}
	if f.Format != pool.FmtRGB24 {
		return nil, fmt.Errorf("preview: frame is not RGB24: %v", f.Format)
	}

	img := &image.RGBA{
		Pix:    rgbToRGBA(f.Bytes()),
		Stride: int(f.Width) * 4,
		Rect:   image.Rect(0, 0, int(f.Width), int(f.Height)),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("preview: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// rgbToRGBA expands a tightly packed RGB24 buffer to RGBA with full
// alpha, since image/jpeg's encoder wants an image.Image and RGBA is the
// stdlib type requiring no per-pixel color-model lookups.
func rgbToRGBA(rgb []byte) []byte {
	n := len(rgb) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = rgb[i*3]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 255
	}
	return out
}
