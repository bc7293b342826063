package robust

import (
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/lpsolve"
	"sfneuman.com/goril/mdp"
	"sfneuman.com/goril/utils/matutils"
)

// SyedOptions configures the margin-matching linear program.
type SyedOptions struct {
	// EmpiricalOccupancy overrides the expert occupancy estimate
	// computed from the demonstrations. When nil, the plug-in
	// estimator is used.
	EmpiricalOccupancy *mat.Dense

	// AddLinearConstraint restricts the feasible set to Υ via the
	// demonstration constraint vector.
	AddLinearConstraint bool
}

// Syed solves the LPAL margin-matching linear program: it finds the
// occupancy frequency whose feature expectation deviates least, in the
// L∞ sense, from the expert's estimated feature expectation V̂ = ûφ:
//
//	min B  s.t.  B ≥ ±(uφ - V̂)ⱼ ∀j,  Wᵀu = p0,  u ≥ 0
//
// It returns the occupancy frequency, the achieved margin radius B,
// and the return of u under the model's true reward.
func Syed(m *mdp.Model, d demo.Set, opts SyedOptions) (*mat.Dense, float64,
	float64, error) {
	sa := m.NumStates() * m.NumActions()
	phi := m.FeatureMatrix()

	uHat := opts.EmpiricalOccupancy
	if uHat == nil {
		uHat = m.EmpiricalOccupancy(d)
	}
	vHat := m.FeatureExpectation(m.Flatten(uHat))

	p := lpsolve.NewProblem("syed margin matching")
	u := p.AddNonNegVars(sa)
	margin := p.AddNonNegVars(1)

	for i := 0; i < m.NumFeatures(); i++ {
		// (uφ)ᵢ - B ≤ V̂ᵢ
		row := p.Row()
		for l := 0; l < sa; l++ {
			row[u.At(l)] = phi.At(l, i)
		}
		row[margin.At(0)] = -1
		p.AddLe(row, vHat.AtVec(i))

		// -(uφ)ᵢ - B ≤ -V̂ᵢ
		row = p.Row()
		for l := 0; l < sa; l++ {
			row[u.At(l)] = -phi.At(l, i)
		}
		row[margin.At(0)] = -1
		p.AddLe(row, -vHat.AtVec(i))
	}

	p.AddEqMat(m.DesignMatrix().T(), u, m.InitialDist().RawVector().Data)
	if opts.AddLinearConstraint {
		addUpsilonConstraint(p, u, m.ConstraintVector(d))
	}

	obj := p.Row()
	obj[margin.At(0)] = 1
	p.Minimize(obj)

	res, err := p.Solve()
	if err != nil {
		return nil, 0, 0, err
	}

	flat := matutils.ClampNonNegative(res.X[u.Off : u.Off+u.Len])
	uMat := m.Reshape(flat)
	return uMat, res.Objective, m.Return(uMat), nil
}
