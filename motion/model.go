// Package motion defines the kinematic motion models that drive the
// tracker's nonlinear Kalman filter: the deterministic state transition,
// the observation function, and the noise covariances that parameterize
// them.
package motion

import "gonum.org/v1/gonum/mat"

// Model is the capability set a motion model must provide. Implementations
// are stateless descriptors — they carry configuration (noise standard
// deviations, uncertainty priors) but never the state vector itself.
// A Track owns exactly one Model for its lifetime.
type Model interface {
	// StateDim is the dimension n of the state vector.
	StateDim() int
	// MeasurementDim is the dimension of the observation; 3 for every
	// variant currently defined (position only).
	MeasurementDim() int
	// Predict evaluates the deterministic transition f(x, dt) and writes
	// the result into dst. dst and x may alias.
	Predict(dst, x *mat.VecDense, dt float64)
	// Observe evaluates h(x) and writes the result into dst.
	Observe(dst, x *mat.VecDense)
	// ProcessNoise returns Q(dt), a symmetric PSD stateDim x stateDim
	// matrix.
	ProcessNoise(dt float64) *mat.SymDense
	// InitialCovariance returns P0, a symmetric PD stateDim x stateDim
	// matrix used to seed a new track.
	InitialCovariance() *mat.SymDense
}

// Config carries the configurable noise/uncertainty parameters shared by
// every motion model variant (§6 of the spec). A variant reads only the
// fields relevant to it.
type Config struct {
	ProcessNoiseStd                float64
	InitialPositionUncertainty     float64
	InitialVelocityUncertainty     float64
	InitialAccelerationUncertainty float64
}

// symmetrize returns ½(m + m') as a SymDense of size n, guarding against
// roundoff asymmetry introduced by the G*G' construction of Q.
func symmetrize(m mat.Matrix, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			sym.SetSym(i, j, v)
		}
	}
	return sym
}
