package mdp

import (
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/lpsolve"
	"sfneuman.com/goril/utils/matutils"
)

// policyMassTol is the smallest row mass of an occupancy frequency that
// still normalizes to a policy row; rows with less mass belong to
// states the occupancy never reaches and fall back to uniform.
const policyMassTol = 1e-10

// SolveOptimalOccupancy solves the Bellman-flow linear program
//
//	max rᵀu  s.t.  Wᵀu = p0,  u ≥ 0
//
// returning the optimal occupancy frequency and its return. This is
// the dual of the standard Bellman program min p0ᵀv; only the primal u
// and objective are needed downstream. Negative solver noise in u is
// clamped to zero and the total mass is verified to equal 1/(1-γ)
// within tolerance.
func (m *Model) SolveOptimalOccupancy() (*mat.Dense, float64, error) {
	return m.solveFlowLP("optimal occupancy", true)
}

// SolveWorstOccupancy solves the same Bellman-flow linear program as
// SolveOptimalOccupancy but minimizes, returning the worst return
// achievable by any feasible occupancy frequency. Used as a
// baseline/normalizer.
func (m *Model) SolveWorstOccupancy() (*mat.Dense, float64, error) {
	return m.solveFlowLP("worst occupancy", false)
}

func (m *Model) solveFlowLP(op string, maximize bool) (*mat.Dense, float64,
	error) {
	sa := m.numStates * m.numActions

	p := lpsolve.NewProblem(op)
	u := p.AddNonNegVars(sa)
	p.AddEqMat(m.design.T(), u, m.initial.RawVector().Data)

	obj := p.Row()
	for i := 0; i < sa; i++ {
		obj[u.At(i)] = m.rewards[i]
	}
	if maximize {
		p.Maximize(obj)
	} else {
		p.Minimize(obj)
	}

	res, err := p.Solve()
	if err != nil {
		return nil, 0, err
	}

	flat := matutils.ClampNonNegative(res.X)
	if err := m.CheckMass(flat, op+" mass"); err != nil {
		return nil, 0, err
	}
	return m.Reshape(flat), res.Objective, nil
}

// EmpiricalOccupancy computes the plug-in estimate û of the occupancy
// frequency of whatever policy generated the demonstration set: each
// trajectory contributes γᵗ at the (state, action) visited at time t,
// averaged over trajectories. The estimate is biased but consistent
// and need not satisfy the Bellman-flow constraint.
func (m *Model) EmpiricalOccupancy(d demo.Set) *mat.Dense {
	u := mat.NewDense(m.numStates, m.numActions, nil)
	if len(d) == 0 {
		return u
	}

	for _, trajectory := range d {
		weight := 1.0
		for _, step := range trajectory {
			u.Set(step.State, step.Action,
				u.At(step.State, step.Action)+weight)
			weight *= m.discount
		}
	}
	u.Scale(1.0/float64(len(d)), u)
	return u
}

// OccupancyToPolicy converts an S×A occupancy frequency to an S×A
// row-stochastic policy. When deterministic, each state's row is
// one-hot on the occupancy argmax. Otherwise each row is the occupancy
// row normalized by its mass; states whose occupancy row carries no
// mass were never reached, and their policy rows fall back to the
// uniform distribution so that every row is still a valid simplex
// point.
func (m *Model) OccupancyToPolicy(u *mat.Dense, deterministic bool) *mat.Dense {
	policy := mat.NewDense(m.numStates, m.numActions, nil)

	for state := 0; state < m.numStates; state++ {
		row := u.RowView(state)

		if deterministic {
			policy.Set(state, matutils.MaxVec(row), 1.0)
			continue
		}

		mass := 0.0
		for action := 0; action < m.numActions; action++ {
			mass += row.AtVec(action)
		}
		if mass > policyMassTol {
			for action := 0; action < m.numActions; action++ {
				policy.Set(state, action, row.AtVec(action)/mass)
			}
		} else {
			uniform := 1.0 / float64(m.numActions)
			for action := 0; action < m.numActions; action++ {
				policy.Set(state, action, uniform)
			}
		}
	}
	return policy
}

// ConstraintVector encodes the feasible set Υ of occupancy frequencies
// consistent with a demonstration set. Entry Index(s, a) is 1 when
// state s was observed in the demonstrations and a differs from the
// observed action, marking the pair forbidden; feasibility of u then
// requires cᵀu = 0. States never observed contribute all-zero rows.
// When a state is observed with conflicting actions across
// trajectories, the first observation wins.
func (m *Model) ConstraintVector(d demo.Set) *mat.VecDense {
	observed := make(map[int]int)
	for _, step := range d.Flatten() {
		if _, ok := observed[step.State]; !ok {
			observed[step.State] = step.Action
		}
	}

	c := mat.NewVecDense(m.numStates*m.numActions, nil)
	for state, expertAction := range observed {
		for action := 0; action < m.numActions; action++ {
			if action != expertAction {
				c.SetVec(m.Index(state, action), 1.0)
			}
		}
	}
	return c
}

// ExpertObservations returns one (state, action) pair per state, taking
// the deterministic optimal action everywhere. The result is a fully
// observing demonstration: a constraint vector built from it permits
// exactly the optimal actions.
func (m *Model) ExpertObservations() demo.Trajectory {
	trajectory := make(demo.Trajectory, m.numStates)
	for state := 0; state < m.numStates; state++ {
		trajectory[state] = demo.Step{
			State:  state,
			Action: matutils.MaxVec(m.optPolicy.RowView(state)),
		}
	}
	return trajectory
}
