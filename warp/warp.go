/*
DESCRIPTION
  warp.go applies the keystone correction: the calibration polygon
  (four corners, plus any edge points) is treated as a quad mesh over
  the source frame, each cell independently warped onto its uniform
  destination cell via a 3x3 projective transform, generalizing the
  single static TransformMatrix pattern used for the turbidity probe to
  a full per-sub-quad mesh.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package warp applies polygon-based perspective (keystone) correction
// to RGB24 frames.
package warp

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/loopvid/keystone/frame"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

// Stage applies a state.CalibrationState's polygon to RGB24 frames,
// caching the per-cell transforms across calls as long as the
// CalibrationState pointer is unchanged: since CalibrationState
// snapshots are immutable (copy-on-write), pointer equality is a valid,
// cheap staleness check.
type Stage struct {
	lastCal *state.CalibrationState
	lastW   int
	lastH   int
	mesh    [][]Point // (rows+1) x (cols+1) grid of source-space points, in pixels.
	cols    int
	rows    int
}

// New returns an idle warp Stage.
func New() *Stage { return &Stage{} }

// Apply warps f in place according to cal, leaving pixels outside the
// calibration polygon black. If cal.Enabled is false, f is returned
// unchanged (the identity case).
func (s *Stage) Apply(f *frame.Frame, cal *state.CalibrationState) error {
	if !cal.Enabled {
		return nil
	}
	if f.Format != pool.FmtRGB24 {
		return fmt.Errorf("warp: frame is not RGB24: %v", f.Format)
	}
	w, h := int(f.Width), int(f.Height)

	if s.lastCal != cal || s.lastW != w || s.lastH != h {
		s.rebuild(cal, w, h)
		s.lastCal = cal
		s.lastW = w
		s.lastH = h
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, f.Bytes())
	if err != nil {
		return fmt.Errorf("warp: wrap frame: %w", err)
	}
	defer src.Close()

	out := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer out.Close()
	// out starts zeroed (black), satisfying "outside the polygon is
	// black" for any frame area the mesh doesn't cover.

	cellW := float64(w) / float64(s.cols)
	cellH := float64(h) / float64(s.rows)

	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			srcQuad := [4]Point{
				s.mesh[r][c], s.mesh[r][c+1], s.mesh[r+1][c+1], s.mesh[r+1][c],
			}
			dstQuad := [4]Point{
				{X: float64(c) * cellW, Y: float64(r) * cellH},
				{X: float64(c+1) * cellW, Y: float64(r) * cellH},
				{X: float64(c+1) * cellW, Y: float64(r+1) * cellH},
				{X: float64(c) * cellW, Y: float64(r+1) * cellH},
			}
			if err := warpCell(src, &out, srcQuad, dstQuad, w, h); err != nil {
				return err
			}
		}
	}

	copy(f.Bytes(), out.ToBytes())
	return nil
}

// warpCell warps the whole src image by the homography taking srcQuad to
// dstQuad, then copies only the dstQuad's bounding cell rectangle from
// that warped result into out, leaving every other cell of out
// untouched.
func warpCell(src gocv.Mat, out *gocv.Mat, srcQuad, dstQuad [4]Point, w, h int) error {
	hMat, err := Solve(srcQuad, dstQuad)
	if err != nil {
		// A degenerate cell (zero-area source quad) is left black, per
		// the "outside the polygon is black" rule.
		return nil
	}
	m := floatToMat(hMat)
	defer m.Close()

	tmp := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer tmp.Close()
	gocv.WarpPerspective(src, &tmp, m, image.Pt(w, h))

	rect := cellBoundingRect(dstQuad, w, h)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil
	}
	tmpRoi := tmp.Region(rect)
	defer tmpRoi.Close()
	outRoi := out.Region(rect)
	defer outRoi.Close()
	tmpRoi.CopyTo(&outRoi)
	return nil
}

func cellBoundingRect(q [4]Point, w, h int) image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	r := image.Rect(int(minX), int(minY), int(maxX), int(maxY))
	return r.Intersect(image.Rect(0, 0, w, h))
}

// floatToMat converts a row-major 3x3 homography to a gocv.Mat, the same
// conversion shape used to install a static turbidity transform matrix.
func floatToMat(h [9]float64) gocv.Mat {
	mat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			mat.SetDoubleAt(i, j, h[i*3+j])
		}
	}
	return mat
}

// rebuild recomputes the quad mesh for a (possibly new) calibration
// state and frame size. Columns come from the top/bottom edge points,
// rows from the left/right edge points; if either pair's point counts
// disagree, that axis falls back to a single row or column (no
// subdivision), which is always a valid 1x1 mesh.
func (s *Stage) rebuild(cal *state.CalibrationState, w, h int) {
	top := edgeRun(cal, state.EdgeTop, cal.Corners[0], cal.Corners[1], false)
	bottom := edgeRun(cal, state.EdgeBottom, cal.Corners[3], cal.Corners[2], true)
	left := edgeRun(cal, state.EdgeLeft, cal.Corners[0], cal.Corners[3], true)
	right := edgeRun(cal, state.EdgeRight, cal.Corners[1], cal.Corners[2], false)

	cols := len(top) - 1
	if len(bottom)-1 != cols {
		cols = 1
		top = []state.CalibrationPoint{cal.Corners[0], cal.Corners[1]}
		bottom = []state.CalibrationPoint{cal.Corners[3], cal.Corners[2]}
	}
	rows := len(left) - 1
	if len(right)-1 != rows {
		rows = 1
		left = []state.CalibrationPoint{cal.Corners[0], cal.Corners[3]}
		right = []state.CalibrationPoint{cal.Corners[1], cal.Corners[2]}
	}

	c00 := toPixel(cal.Corners[0], w, h) // top-left
	c10 := toPixel(cal.Corners[1], w, h) // top-right
	c01 := toPixel(cal.Corners[3], w, h) // bottom-left
	c11 := toPixel(cal.Corners[2], w, h) // bottom-right

	mesh := make([][]Point, rows+1)
	for r := 0; r <= rows; r++ {
		v := float64(r) / float64(rows)
		mesh[r] = make([]Point, cols+1)
		for c := 0; c <= cols; c++ {
			u := float64(c) / float64(cols)
			topP := toPixel(top[c], w, h)
			botP := toPixel(bottom[c], w, h)
			leftP := toPixel(left[r], w, h)
			rightP := toPixel(right[r], w, h)

			// Coons-patch transfinite interpolation: blend the four
			// boundary curves, then subtract the bilinear corner term
			// counted twice by the two blends above.
			bilinear := Point{
				X: (1-u)*(1-v)*c00.X + u*(1-v)*c10.X + (1-u)*v*c01.X + u*v*c11.X,
				Y: (1-u)*(1-v)*c00.Y + u*(1-v)*c10.Y + (1-u)*v*c01.Y + u*v*c11.Y,
			}
			mesh[r][c] = Point{
				X: (1-v)*topP.X + v*botP.X + (1-u)*leftP.X + u*rightP.X - bilinear.X,
				Y: (1-v)*topP.Y + v*botP.Y + (1-u)*leftP.Y + u*rightP.Y - bilinear.Y,
			}
		}
	}

	s.mesh = mesh
	s.cols = cols
	s.rows = rows
}

// edgeRun returns the ordered boundary point list from corner `from` to
// corner `to` (inclusive), consulting cal's edge points for side e and
// reversing them first when the side's natural EdgesOn order runs
// opposite to the from->to direction requested here.
func edgeRun(cal *state.CalibrationState, e int, from, to state.CalibrationPoint, reverse bool) []state.CalibrationPoint {
	mid := cal.EdgesOn(e)
	if reverse {
		for i, j := 0, len(mid)-1; i < j; i, j = i+1, j-1 {
			mid[i], mid[j] = mid[j], mid[i]
		}
	}
	out := make([]state.CalibrationPoint, 0, len(mid)+2)
	out = append(out, from)
	out = append(out, mid...)
	out = append(out, to)
	return out
}

func toPixel(p state.CalibrationPoint, w, h int) Point {
	return Point{X: p.X * float64(w), Y: p.Y * float64(h)}
}
