/*
DESCRIPTION
  homography.go solves the 3x3 projective transform mapping four source
  points onto four destination points, the linear-algebra step behind
  the perspective warp. warpCell calls this gonum-backed Solve for every
  mesh cell and hands the result to gocv.WarpPerspective;
  gocv.GetPerspectiveTransform is not used.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package warp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Point is a 2D coordinate, used both in normalized [0,1] source space
// and pixel destination space.
type Point struct{ X, Y float64 }

// Solve returns the 9 coefficients (row-major, h[8]=1 normalized) of the
// projective transform H such that, for each i, applying H to src[i]
// yields dst[i] in homogeneous coordinates. Panics-free: returns an error
// if the four source points are degenerate (no unique solution).
func Solve(src, dst [4]Point) ([9]float64, error) {
	// Each correspondence (x,y) -> (x',y') contributes two rows to the
	// linear system A*h = b, with h8 fixed to 1 (the standard 8-DOF
	// projective-transform parameterization):
	//
	//   x*h0 + y*h1 + h2 - x'*x*h6 - x'*y*h7 = x'
	//   x*h3 + y*h4 + h5 - y'*x*h6 - y'*y*h7 = y'
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y
		r0 := 2 * i
		r1 := 2*i + 1

		a.SetRow(r0, []float64{x, y, 1, 0, 0, 0, -xp * x, -xp * y})
		a.SetRow(r1, []float64{0, 0, 0, x, y, 1, -yp * x, -yp * y})
		b.SetVec(r0, xp)
		b.SetVec(r1, yp)
	}

	var lu mat.LU
	lu.Factorize(a)
	if lu.Cond() > 1e14 {
		return [9]float64{}, fmt.Errorf("warp: degenerate point configuration")
	}

	var h mat.VecDense
	if err := lu.SolveVecTo(&h, false, b); err != nil {
		return [9]float64{}, fmt.Errorf("warp: solve homography: %w", err)
	}

	var out [9]float64
	for i := 0; i < 8; i++ {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	return out, nil
}

// Apply maps p through the row-major 3x3 homography h, performing the
// perspective divide.
func Apply(h [9]float64, p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point{}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}
