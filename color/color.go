/*
DESCRIPTION
  color.go applies the color-correction pipeline (per-channel gain,
  brightness, contrast, saturation, hue, gamma) to an RGB24 frame via
  gocv LUTs and matrix operations, mirroring the gocv.Mat lifecycle
  conventions used for motion detection.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package color applies live-adjustable color correction to RGB24
// frames: gain, brightness, contrast, saturation, hue and gamma.
package color

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

// Stage applies a state.ColorState to RGB24 frames in place. It holds two
// gocv.Mat fields that Close releases; Apply does not use them and wraps
// each frame's bytes in a fresh gocv.Mat.
type Stage struct {
	scratch gocv.Mat
	lut     gocv.Mat
}

// New returns an idle Stage with its two empty gocv.Mat fields allocated.
func New() *Stage {
	return &Stage{scratch: gocv.NewMat(), lut: gocv.NewMat()}
}

// Close releases the Stage's gocv.Mat resources. gocv.Mat wraps C memory
// that Go's garbage collector does not know about, so Close must be
// called explicitly, the same contract filter.Diff's Close documents.
func (s *Stage) Close() {
	s.scratch.Close()
	s.lut.Close()
}

// Apply adjusts f's pixels in place according to cs, returning f
// unchanged if cs.Enabled is false (the identity case every caller must
// support per the "Enable Gate" invariant).
func (s *Stage) Apply(f *frame.Frame, cs *state.ColorState) error {
	if !cs.Enabled {
		return nil
	}
	if f.Format != pool.FmtRGB24 {
		return fmt.Errorf("color: frame is not RGB24: %v", f.Format)
	}

	mat, err := gocv.NewMatFromBytes(int(f.Height), int(f.Width), gocv.MatTypeCV8UC3, f.Bytes())
	if err != nil {
		return fmt.Errorf("color: wrap frame bytes: %w", err)
	}
	defer mat.Close()

	// Order follows the documented pipeline: gain, gamma, contrast and
	// brightness, then saturation and hue. Gamma is a nonlinear power
	// curve, so applying it before or after the linear contrast/brightness
	// step produces materially different pixel values.
	applyGains(&mat, cs.RedGain, cs.GreenGain, cs.BlueGain)
	if cs.Gamma != 1 {
		applyGamma(&mat, cs.Gamma)
	}
	applyBrightnessContrast(&mat, cs.Brightness, cs.Contrast)
	if cs.Saturation != 1 || cs.Hue != 0 {
		applyHSL(&mat, cs.Saturation, cs.Hue)
	}
	return nil
}

// applyGains scales each RGB channel independently via gocv.Split,
// per-channel ConvertToWithParams scaling, and gocv.Merge.
func applyGains(mat *gocv.Mat, rg, gg, bg float64) {
	if rg == 1 && gg == 1 && bg == 1 {
		return
	}
	chans := gocv.Split(*mat)
	defer func() {
		for _, c := range chans {
			c.Close()
		}
	}()
	chans[0].ConvertToWithParams(&chans[0], gocv.MatTypeCV8UC1, rg, 0)
	chans[1].ConvertToWithParams(&chans[1], gocv.MatTypeCV8UC1, gg, 0)
	chans[2].ConvertToWithParams(&chans[2], gocv.MatTypeCV8UC1, bg, 0)
	gocv.Merge(chans, mat)
}

// applyBrightnessContrast implements
// c' = clamp((c-128)*contrast + 128 + brightness*2.55) via gocv's
// ConvertToWithParams (alpha=contrast, beta=128*(1-contrast)+brightness*2.55).
// Centering on mid-gray keeps contrast from also shifting brightness, and
// the 2.55 factor rescales brightness from its [-100,100] UI range onto
// the 0-255 pixel range; ConvertTo itself saturates to [0,255].
func applyBrightnessContrast(mat *gocv.Mat, brightness, contrast float64) {
	if brightness == 0 && contrast == 1 {
		return
	}
	beta := 128*(1-contrast) + brightness*2.55
	mat.ConvertToWithParams(mat, gocv.MatTypeCV8UC3, contrast, beta)
}

// applyHSL converts to HLS, scales saturation and rotates hue, then
// converts back; gocv exposes HLS directly via ColorBGRToHLS/ColorHLSToBGR,
// so there's no need to round-trip through HSV, which defines saturation
// differently.
func applyHSL(mat *gocv.Mat, saturation, hue float64) {
	hls := gocv.NewMat()
	defer hls.Close()
	gocv.CvtColor(*mat, &hls, gocv.ColorBGRToHLS)

	chans := gocv.Split(hls)
	defer func() {
		for _, c := range chans {
			c.Close()
		}
	}()

	if hue != 0 {
		// OpenCV's HLS hue channel is 0-179; a +-180 degree UI range maps
		// onto it at half scale.
		shift := hue / 2
		chans[0].ConvertToWithParams(&chans[0], gocv.MatTypeCV8UC1, 1, shift)
	}
	if saturation != 1 {
		// HLS channel order is H, L, S: saturation is channel 2.
		chans[2].ConvertToWithParams(&chans[2], gocv.MatTypeCV8UC1, saturation, 0)
	}

	gocv.Merge(chans, &hls)
	gocv.CvtColor(hls, mat, gocv.ColorHLSToBGR)
}

// applyGamma builds an 8-bit lookup table for out = 255*(in/255)^(1/gamma)
// and applies it via gocv.LUT, the standard fast-path for a per-pixel
// power-law curve.
func applyGamma(mat *gocv.Mat, gamma float64) {
	lutData := make([]byte, 256)
	invGamma := 1.0 / gamma
	for i := 0; i < 256; i++ {
		v := math.Pow(float64(i)/255.0, invGamma) * 255.0
		if v > 255 {
			v = 255
		}
		lutData[i] = byte(v)
	}
	lut, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8UC1, lutData)
	if err != nil {
		return
	}
	defer lut.Close()
	gocv.LUT(*mat, lut, mat)
}
