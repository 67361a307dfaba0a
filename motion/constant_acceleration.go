package motion

import "gonum.org/v1/gonum/mat"

// ConstantAccelerationModel is a 9-dimensional motion model with state
// layout [p(3), v(3), a(3)]. This is the default model for new tracks
// (Design Notes §9): the source hard-codes it for parity even though
// ConstantVelocityModel is also available.
type ConstantAccelerationModel struct {
	processNoiseStd float64
	posUncertainty  float64
	velUncertainty  float64
	accUncertainty  float64
}

// NewConstantAccelerationModel builds a ConstantAccelerationModel from
// config, using every field as given; zero fields are not replaced. The
// documented defaults (§6, see config.Defaults) are ProcessNoiseStd 1.0,
// InitialPositionUncertainty 10.0, InitialVelocityUncertainty 100.0,
// InitialAccelerationUncertainty 10.0.
func NewConstantAccelerationModel(cfg Config) *ConstantAccelerationModel {
	return &ConstantAccelerationModel{
		processNoiseStd: cfg.ProcessNoiseStd,
		posUncertainty:  cfg.InitialPositionUncertainty,
		velUncertainty:  cfg.InitialVelocityUncertainty,
		accUncertainty:  cfg.InitialAccelerationUncertainty,
	}
}

func (m *ConstantAccelerationModel) StateDim() int       { return 9 }
func (m *ConstantAccelerationModel) MeasurementDim() int { return 3 }

// Predict: p' = p + v*dt + 0.5*a*dt^2; v' = v + a*dt; a' = a.
func (m *ConstantAccelerationModel) Predict(dst, x *mat.VecDense, dt float64) {
	half := 0.5 * dt * dt
	for i := 0; i < 3; i++ {
		p, v, a := x.AtVec(i), x.AtVec(i+3), x.AtVec(i+6)
		dst.SetVec(i, p+v*dt+half*a)
		dst.SetVec(i+3, v+a*dt)
		dst.SetVec(i+6, a)
	}
}

// Observe returns the leading 3 components (position).
func (m *ConstantAccelerationModel) Observe(dst, x *mat.VecDense) {
	dst.SetVec(0, x.AtVec(0))
	dst.SetVec(1, x.AtVec(1))
	dst.SetVec(2, x.AtVec(2))
}

// ProcessNoise builds the continuous white-noise-jerk Q, block-wise in dt,
// scaled by sigma_jerk^2.
func (m *ConstantAccelerationModel) ProcessNoise(dt float64) *mat.SymDense {
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt

	qPos := dt5 / 20.0
	qPosVel := dt4 / 8.0
	qPosAcc := dt3 / 6.0
	qVel := dt3 / 3.0
	qVelAcc := dt2 / 2.0
	qAcc := dt

	q := mat.NewDense(9, 9, nil)
	for i := 0; i < 3; i++ {
		q.Set(i, i, qPos)
		q.Set(i, i+3, qPosVel)
		q.Set(i+3, i, qPosVel)
		q.Set(i, i+6, qPosAcc)
		q.Set(i+6, i, qPosAcc)
		q.Set(i+3, i+3, qVel)
		q.Set(i+3, i+6, qVelAcc)
		q.Set(i+6, i+3, qVelAcc)
		q.Set(i+6, i+6, qAcc)
	}

	sigma2 := m.processNoiseStd * m.processNoiseStd
	q.Scale(sigma2, q)
	return symmetrize(q, 9)
}

// InitialCovariance is block-diagonal: position, velocity, acceleration
// variance.
func (m *ConstantAccelerationModel) InitialCovariance() *mat.SymDense {
	p := mat.NewSymDense(9, nil)
	for i := 0; i < 3; i++ {
		p.SetSym(i, i, m.posUncertainty)
		p.SetSym(i+3, i+3, m.velUncertainty)
		p.SetSym(i+6, i+6, m.accUncertainty)
	}
	return p
}
