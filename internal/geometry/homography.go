package geometry

import (
	"errors"
	"math"
)

// Matrix is a 3×3 projective transform in row-major order.
type Matrix [9]float64

// Vec is a point in continuous image coordinates.
type Vec struct {
	X, Y float64
}

// ErrDegenerate is returned when four correspondences do not define a
// projective transform (three or more points are collinear).
var ErrDegenerate = errors.New("geometry: degenerate point correspondence")

// Apply maps p through m.
func (m Matrix) Apply(p Vec) Vec {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if w == 0 {
		return Vec{math.Inf(1), math.Inf(1)}
	}
	return Vec{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}
}

// Homography solves for the transform that maps each src[i] to dst[i].
//
// The eight unknowns h0..h7 (h8 fixed at 1) follow from two linear equations
// per correspondence:
//
//	x' = (h0·x + h1·y + h2) / (h6·x + h7·y + 1)
//	y' = (h3·x + h4·y + h5) / (h6·x + h7·y + 1)
func Homography(src, dst [4]Vec) (Matrix, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	h, err := solve8(a)
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// solve8 runs Gauss-Jordan elimination with partial pivoting on an 8×8
// augmented system.
func solve8(a [8][9]float64) ([8]float64, error) {
	const eps = 1e-10
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < eps {
			return [8]float64{}, ErrDegenerate
		}
		a[col], a[pivot] = a[pivot], a[col]

		p := a[col][col]
		for c := col; c < 9; c++ {
			a[col][c] /= p
		}
		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var x [8]float64
	for i := range x {
		x[i] = a[i][8]
	}
	return x, nil
}
