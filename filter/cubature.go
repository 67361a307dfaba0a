// Package filter implements a nonlinear Kalman filter via the
// third-degree spherical-radial cubature rule (CKF), operating on a mean
// vector and a full covariance matrix supplied by the caller.
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rotblauer/trackd/motion"
)

// jitterEpsilon is added to the diagonal on Cholesky retry after
// re-symmetrizing a covariance that has lost positive-definiteness to
// roundoff.
const jitterEpsilon = 1e-6

// ErrNotPositiveDefinite is returned when a covariance fails Cholesky
// decomposition even after the re-symmetrize+jitter retry. The caller
// (Track, via TrackManager) is expected to mark the owning track lost.
var ErrNotPositiveDefinite = fmt.Errorf("filter: covariance is not positive-definite after retry")

// cubaturePoints generates 2n points from (x, P) via the spherical-radial
// rule: point_i = x + sqrt(n)*S*e_i, point_{i+n} = x - sqrt(n)*S*e_i,
// where S is the lower Cholesky factor of P.
func cubaturePoints(x *mat.VecDense, p mat.Symmetric) ([]*mat.VecDense, error) {
	n := x.Len()

	var chol mat.Cholesky
	ok := chol.Factorize(p)
	if !ok {
		sym := resymmetrizeJitter(p, n)
		ok = chol.Factorize(sym)
		if !ok {
			return nil, ErrNotPositiveDefinite
		}
	}

	var lower mat.TriDense
	chol.LTo(&lower)

	sqrtN := math.Sqrt(float64(n))
	points := make([]*mat.VecDense, 2*n)
	for i := 0; i < n; i++ {
		col := mat.Col(nil, i, &lower)
		plus := mat.NewVecDense(n, nil)
		minus := mat.NewVecDense(n, nil)
		for k := 0; k < n; k++ {
			delta := sqrtN * col[k]
			plus.SetVec(k, x.AtVec(k)+delta)
			minus.SetVec(k, x.AtVec(k)-delta)
		}
		points[i] = plus
		points[i+n] = minus
	}
	return points, nil
}

// resymmetrizeJitter rebuilds P as ½(P+P') + eps*I, the specified failure
// recovery before a single retry of the Cholesky factorization.
func resymmetrizeJitter(p mat.Symmetric, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (p.At(i, j) + p.At(j, i))
			if i == j {
				v += jitterEpsilon
			}
			sym.SetSym(i, j, v)
		}
	}
	return sym
}

// Predict propagates (x, P) through model over dt cubature-fashion,
// mutating both in place. x and p must already be sized for
// model.StateDim().
func Predict(x *mat.VecDense, p *mat.SymDense, model motion.Model, dt float64) error {
	n := model.StateDim()

	points, err := cubaturePoints(x, p)
	if err != nil {
		return err
	}

	propagated := make([]*mat.VecDense, len(points))
	mean := mat.NewVecDense(n, nil)
	for i, pt := range points {
		dst := mat.NewVecDense(n, nil)
		model.Predict(dst, pt, dt)
		propagated[i] = dst
		mean.AddVec(mean, dst)
	}
	mean.ScaleVec(1.0/float64(2*n), mean)

	cov := mat.NewDense(n, n, nil)
	diff := mat.NewVecDense(n, nil)
	outer := mat.NewDense(n, n, nil)
	for _, pt := range propagated {
		diff.SubVec(pt, mean)
		outer.Outer(1, diff, diff)
		cov.Add(cov, outer)
	}
	cov.Scale(1.0/float64(2*n), cov)

	q := model.ProcessNoise(dt)
	cov.Add(cov, q)

	x.CopyVec(mean)
	symFromDense(p, cov, n)
	return nil
}

// Update applies the measurement z (dimension model.MeasurementDim()) with
// noise covariance r to (x, P), mutating both in place.
func Update(x *mat.VecDense, p *mat.SymDense, model motion.Model, z *mat.VecDense, r *mat.SymDense) error {
	n := model.StateDim()
	m := model.MeasurementDim()

	points, err := cubaturePoints(x, p)
	if err != nil {
		return err
	}

	zPoints := make([]*mat.VecDense, len(points))
	zMean := mat.NewVecDense(m, nil)
	for i, pt := range points {
		zi := mat.NewVecDense(m, nil)
		model.Observe(zi, pt)
		zPoints[i] = zi
		zMean.AddVec(zMean, zi)
	}
	zMean.ScaleVec(1.0/float64(2*n), zMean)

	pzz := mat.NewDense(m, m, nil)
	pxz := mat.NewDense(n, m, nil)
	zDiff := mat.NewVecDense(m, nil)
	xDiff := mat.NewVecDense(n, nil)
	outerZZ := mat.NewDense(m, m, nil)
	outerXZ := mat.NewDense(n, m, nil)
	for i, pt := range points {
		zDiff.SubVec(zPoints[i], zMean)
		xDiff.SubVec(pt, x)
		outerZZ.Outer(1, zDiff, zDiff)
		outerXZ.Outer(1, xDiff, zDiff)
		pzz.Add(pzz, outerZZ)
		pxz.Add(pxz, outerXZ)
	}
	pzz.Scale(1.0/float64(2*n), pzz)
	pxz.Scale(1.0/float64(2*n), pxz)
	pzz.Add(pzz, r)

	// Kalman gain K = Pxz * Pzz^-1, solved without materializing the
	// inverse: K' solves Pzz * K' = Pxz'.
	var k mat.Dense
	if err := k.Solve(pzzSym(pzz, m), pxzT(pxz, n, m)); err != nil {
		return fmt.Errorf("filter: solving for Kalman gain: %w", err)
	}
	// k is now K' (m x n); we need K (n x m) = k.T()
	gain := mat.NewDense(n, m, nil)
	gain.Copy(k.T())

	innovation := mat.NewVecDense(m, nil)
	innovation.SubVec(z, zMean)

	correction := mat.NewVecDense(n, nil)
	correction.MulVec(gain, innovation)
	x.AddVec(x, correction)

	kPzz := mat.NewDense(n, m, nil)
	kPzz.Mul(gain, pzz)
	kPzzKt := mat.NewDense(n, n, nil)
	kPzzKt.Mul(kPzz, gain.T())

	newP := mat.NewDense(n, n, nil)
	newP.Sub(p, kPzzKt)
	symFromDense(p, newP, n)
	return nil
}

// pzzSym returns Pzz (symmetric up to roundoff) unchanged as a general
// mat.Matrix for Dense.Solve; it is not converted to a mat.Symmetric.
func pzzSym(pzz *mat.Dense, m int) mat.Matrix {
	return pzz
}

// pxzT returns Pxz' (m x n), the right-hand side for solving K' = Pzz^-1 Pxz'.
func pxzT(pxz *mat.Dense, n, m int) mat.Matrix {
	return pxz.T()
}

// symFromDense copies the symmetric part of src into dst, re-symmetrizing
// to absorb any roundoff asymmetry accumulated by the outer-product sums.
func symFromDense(dst *mat.SymDense, src mat.Matrix, n int) {
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (src.At(i, j) + src.At(j, i))
			dst.SetSym(i, j, v)
		}
	}
}
