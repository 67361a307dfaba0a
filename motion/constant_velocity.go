package motion

import "gonum.org/v1/gonum/mat"

// ConstantVelocityModel is a 6-dimensional motion model with state layout
// [px, py, pz, vx, vy, vz]. Position evolves linearly with velocity;
// velocity is constant between process-noise perturbations.
type ConstantVelocityModel struct {
	processNoiseStd float64
	posUncertainty  float64
	velUncertainty  float64
}

// NewConstantVelocityModel builds a ConstantVelocityModel from config.
// Every field is used as given; zero fields are not replaced. The
// documented defaults (§6, see config.Defaults) are ProcessNoiseStd 0.1,
// InitialPositionUncertainty 10.0, InitialVelocityUncertainty 100.0.
func NewConstantVelocityModel(cfg Config) *ConstantVelocityModel {
	return &ConstantVelocityModel{
		processNoiseStd: cfg.ProcessNoiseStd,
		posUncertainty:  cfg.InitialPositionUncertainty,
		velUncertainty:  cfg.InitialVelocityUncertainty,
	}
}

func (m *ConstantVelocityModel) StateDim() int       { return 6 }
func (m *ConstantVelocityModel) MeasurementDim() int { return 3 }

// Predict: p' = p + v*dt; v' = v.
func (m *ConstantVelocityModel) Predict(dst, x *mat.VecDense, dt float64) {
	var px, py, pz, vx, vy, vz float64
	px, py, pz = x.AtVec(0), x.AtVec(1), x.AtVec(2)
	vx, vy, vz = x.AtVec(3), x.AtVec(4), x.AtVec(5)
	dst.SetVec(0, px+vx*dt)
	dst.SetVec(1, py+vy*dt)
	dst.SetVec(2, pz+vz*dt)
	dst.SetVec(3, vx)
	dst.SetVec(4, vy)
	dst.SetVec(5, vz)
}

// Observe returns the leading 3 components (position).
func (m *ConstantVelocityModel) Observe(dst, x *mat.VecDense) {
	dst.SetVec(0, x.AtVec(0))
	dst.SetVec(1, x.AtVec(1))
	dst.SetVec(2, x.AtVec(2))
}

// ProcessNoise builds Q(dt) = G*G'*sigma^2 from the discrete
// white-noise-acceleration model, where G is 6x3 with top block
// 0.5*dt^2*I3 and bottom block dt*I3.
func (m *ConstantVelocityModel) ProcessNoise(dt float64) *mat.SymDense {
	g := mat.NewDense(6, 3, nil)
	half := 0.5 * dt * dt
	for i := 0; i < 3; i++ {
		g.Set(i, i, half)
		g.Set(i+3, i, dt)
	}
	var q mat.Dense
	q.Mul(g, g.T())
	q.Scale(m.processNoiseStd*m.processNoiseStd, &q)
	return symmetrize(&q, 6)
}

// InitialCovariance is block-diagonal: position variance, then velocity
// variance.
func (m *ConstantVelocityModel) InitialCovariance() *mat.SymDense {
	p := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		p.SetSym(i, i, m.posUncertainty)
		p.SetSym(i+3, i+3, m.velUncertainty)
	}
	return p
}
