package calib

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerate reports that captured corner points do not span the plane,
// so the normal-equation matrix is singular.
var ErrDegenerate = errors.New("degenerate calibration points")

// Point is a raw or screen-space sample used while fitting.
type Point struct {
	X float64
	Y float64
}

// CornerTargets returns the four on-screen targets (top-left, top-right,
// bottom-right, bottom-left) inset from the edges, in capture order.
func CornerTargets(screenW, screenH, inset int) [4]Point {
	w := float64(screenW - 1 - inset)
	h := float64(screenH - 1 - inset)
	i := float64(inset)

	return [4]Point{{i, i}, {w, i}, {w, h}, {i, h}}
}

// FitMinMax derives axis bounds from four captured raw corners given in the
// order top-left, top-right, bottom-right, bottom-left. Each edge bound is
// the average of its two corner samples; marginPercent shrinks every edge
// inward by that percentage of the axis range.
func FitMinMax(points [4]Point, screenW, screenH int, marginPercent float64) Calibration {
	c := Default()
	c.ScreenWidth = screenW
	c.ScreenHeight = screenH
	c.MarginPercent = marginPercent

	minX := (points[0].X + points[3].X) / 2
	maxX := (points[1].X + points[2].X) / 2
	minY := (points[0].Y + points[1].Y) / 2
	maxY := (points[2].Y + points[3].Y) / 2

	if marginPercent > 0 {
		mx := (maxX - minX) * marginPercent / 100
		my := (maxY - minY) * marginPercent / 100
		minX += mx
		maxX -= mx
		minY += my
		maxY -= my
	}

	c.SetMinMax(minX, maxX, minY, maxY)

	return c
}

// FitAffine solves for the six coefficients mapping the raw corners onto the
// screen targets by least squares. The same 3x3 normal-equation matrix
// serves both output axes. Returns ErrDegenerate when the raw points are
// collinear or coincident.
func FitAffine(raw, target [4]Point) ([6]float64, error) {
	var m [3][3]float64
	var bx, by [3]float64

	for i := range raw {
		r := [3]float64{raw[i].X, raw[i].Y, 1}

		for j := range 3 {
			for k := range 3 {
				m[j][k] += r[j] * r[k]
			}

			bx[j] += r[j] * target[i].X
			by[j] += r[j] * target[i].Y
		}
	}

	xs, err := solve3(m, bx)
	if err != nil {
		return [6]float64{}, fmt.Errorf("solving x axis: %w", err)
	}

	ys, err := solve3(m, by)
	if err != nil {
		return [6]float64{}, fmt.Errorf("solving y axis: %w", err)
	}

	return [6]float64{xs[0], xs[1], xs[2], ys[0], ys[1], ys[2]}, nil
}

const pivotEpsilon = 1e-9

// solve3 runs Gaussian elimination with partial pivoting on a 3x3 system.
func solve3(m [3][3]float64, b [3]float64) ([3]float64, error) {
	var a [3][4]float64
	for i := range 3 {
		copy(a[i][:3], m[i][:])
		a[i][3] = b[i]
	}

	for col := range 3 {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}

		if math.Abs(a[pivot][col]) < pivotEpsilon {
			return [3]float64{}, ErrDegenerate
		}

		a[col], a[pivot] = a[pivot], a[col]

		for row := range 3 {
			if row == col {
				continue
			}

			f := a[row][col] / a[col][col]
			for k := col; k < 4; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	var x [3]float64
	for i := range 3 {
		x[i] = a[i][3] / a[i][i]
	}

	return x, nil
}
