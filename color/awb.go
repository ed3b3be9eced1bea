/*
DESCRIPTION
  awb.go implements a one-shot gray-world auto white balance: average the
  R, G and B channels over a frame and derive per-channel gains that pull
  the averages back into balance.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package color

import "fmt"

// awbSampleStride samples roughly 1 in 256 pixel positions rather than
// every pixel, enough to estimate gray-world channel means cheaply even
// on a large frame.
const awbSampleStride = 256

// Quality gate thresholds: a scene this dark or this flat doesn't carry
// enough signal to trust a gray-world gain estimate.
const (
	awbMinMean     = 8.0
	awbMinVariance = 1.0
)

// LowSignal is returned when the sampled frame is too dark or too flat
// (near-zero brightness variance) to compute trustworthy white-balance
// gains from.
type LowSignal struct {
	Mean, Variance float64
}

func (e *LowSignal) Error() string {
	return fmt.Sprintf("color: AWB: low signal (mean=%.2f variance=%.2f)", e.Mean, e.Variance)
}

// AutoWhiteBalanceGains computes red/green/blue gain values for a tightly
// packed RGB24 buffer under the gray-world assumption: a correctly
// balanced scene averages to neutral gray, so scaling each channel by
// green's average over its own brings all three into line, green held
// fixed as the reference channel. It samples a sparse uniform grid of
// pixels (~1 in 256) rather than scanning the whole frame, and rejects
// with LowSignal when the scene is too dark or too flat to trust.
func AutoWhiteBalanceGains(data []byte) (red, green, blue float64, err error) {
	if len(data) < 3 {
		return 0, 0, 0, fmt.Errorf("color: AWB frame too small")
	}

	var sumR, sumG, sumB, sumBrightSq float64
	var n int
	stride := 3 * awbSampleStride
	for i := 0; i+2 < len(data); i += stride {
		r := float64(data[i])
		g := float64(data[i+1])
		b := float64(data[i+2])
		sumR += r
		sumG += g
		sumB += b
		brightness := (r + g + b) / 3
		sumBrightSq += brightness * brightness
		n++
	}
	if n == 0 {
		return 0, 0, 0, fmt.Errorf("color: AWB frame too small")
	}

	avgR := sumR / float64(n)
	avgG := sumG / float64(n)
	avgB := sumB / float64(n)
	mean := (avgR + avgG + avgB) / 3
	variance := sumBrightSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	if mean < awbMinMean || variance < awbMinVariance || avgR < 1 || avgB < 1 {
		return 0, 0, 0, &LowSignal{Mean: mean, Variance: variance}
	}

	red = clampGain(avgG / avgR)
	green = 1
	blue = clampGain(avgG / avgB)
	return red, green, blue, nil
}

func clampGain(g float64) float64 {
	if g < 0.5 {
		return 0.5
	}
	if g > 2.0 {
		return 2.0
	}
	return g
}
