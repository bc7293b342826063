package lpsolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveKnownLP(t *testing.T) {
	// max 3x + 2y  s.t.  x + y = 4,  x ≤ 3,  x, y ≥ 0
	p := NewProblem("known")
	v := p.AddNonNegVars(2)

	row := p.Row()
	row[v.At(0)] = 1
	row[v.At(1)] = 1
	p.AddEq(row, 4)

	row = p.Row()
	row[v.At(0)] = 1
	p.AddLe(row, 3)

	obj := p.Row()
	obj[v.At(0)] = 3
	obj[v.At(1)] = 2
	p.Maximize(obj)

	res, err := p.Solve()
	require.NoError(t, err)
	require.Equal(t, Optimal, res.Status)
	require.InDelta(t, 11.0, res.Objective, 1e-8)
	require.InDelta(t, 3.0, res.X[v.At(0)], 1e-8)
	require.InDelta(t, 1.0, res.X[v.At(1)], 1e-8)
}

func TestSolveMinimize(t *testing.T) {
	// min x + y  s.t.  x + y = 4,  x, y ≥ 0
	p := NewProblem("minimize")
	v := p.AddNonNegVars(2)

	row := p.Row()
	row[v.At(0)] = 1
	row[v.At(1)] = 1
	p.AddEq(row, 4)
	p.Minimize(row)

	res, err := p.Solve()
	require.NoError(t, err)
	require.InDelta(t, 4.0, res.Objective, 1e-8)
}

func TestSolveFreeVariables(t *testing.T) {
	// min x  s.t.  x + y = 1,  y ≤ -2  with x, y free forces x ≥ 3.
	p := NewProblem("free")
	v := p.AddVars(2)

	row := p.Row()
	row[v.At(0)] = 1
	row[v.At(1)] = 1
	p.AddEq(row, 1)

	row = p.Row()
	row[v.At(1)] = 1
	p.AddLe(row, -2)

	obj := p.Row()
	obj[v.At(0)] = 1
	p.Minimize(obj)

	res, err := p.Solve()
	require.NoError(t, err)
	require.InDelta(t, 3.0, res.Objective, 1e-8)
	require.InDelta(t, -2.0, res.X[v.At(1)], 1e-8)
}

func TestSolveInfeasible(t *testing.T) {
	// x = -1 with x ≥ 0 has no solution.
	p := NewProblem("negative rhs")
	v := p.AddNonNegVars(1)

	row := p.Row()
	row[v.At(0)] = 1
	p.AddEq(row, -1)
	p.Minimize(row)

	_, err := p.Solve()
	require.Error(t, err)

	var solverErr *SolverError
	require.True(t, errors.As(err, &solverErr))
	require.Equal(t, Infeasible, solverErr.Status)
	require.Equal(t, "negative rhs", solverErr.Op)
}

func TestSolveUnbounded(t *testing.T) {
	// max x  s.t.  x - y = 0,  x, y ≥ 0 grows without bound.
	p := NewProblem("unbounded")
	v := p.AddNonNegVars(2)

	row := p.Row()
	row[v.At(0)] = 1
	row[v.At(1)] = -1
	p.AddEq(row, 0)

	obj := p.Row()
	obj[v.At(0)] = 1
	p.Maximize(obj)

	_, err := p.Solve()
	var solverErr *SolverError
	require.True(t, errors.As(err, &solverErr))
	require.Equal(t, Unbounded, solverErr.Status)
}

// A Bellman-flow program over a 2×2 gridworld with an absorbing goal:
// 16 non-negative variables tied by 4 equality rows, with heavy
// degeneracy from the deterministic transitions. The optimum is the
// two-step path to the goal, worth -0.1 - 0.09 + 8.1 = 7.91, and any
// feasible point has total mass 1/(1-γ) = 10.
func TestSolveDegenerateFlowProgram(t *testing.T) {
	const states, actions = 4, 4
	const discount = 0.9
	goal := 3
	next := [states][actions]int{
		{0, 1, 0, 2},
		{0, 1, 1, 3},
		{2, 3, 0, 2},
		{3, 3, 3, 3},
	}

	p := NewProblem("flow")
	u := p.AddNonNegVars(states * actions)

	for s := 0; s < states; s++ {
		row := p.Row()
		for state := 0; state < states; state++ {
			for action := 0; action < actions; action++ {
				coeff := 0.0
				if state == s {
					coeff++
				}
				if next[state][action] == s {
					coeff -= discount
				}
				row[u.At(action*states+state)] = coeff
			}
		}
		rhs := 0.0
		if s == 0 {
			rhs = 1
		}
		p.AddEq(row, rhs)
	}

	obj := p.Row()
	for state := 0; state < states; state++ {
		for action := 0; action < actions; action++ {
			reward := -0.1
			if state == goal {
				reward = 1.0
			}
			obj[u.At(action*states+state)] = reward
		}
	}
	p.Maximize(obj)

	res, err := p.Solve()
	require.NoError(t, err)
	require.InDelta(t, 7.91, res.Objective, 1e-8)

	mass := 0.0
	for i := 0; i < u.Len; i++ {
		require.GreaterOrEqual(t, res.X[u.At(i)], -1e-9)
		mass += res.X[u.At(i)]
	}
	require.InDelta(t, 10.0, mass, 1e-8)
}

func TestSolveRejectsEmptyProblems(t *testing.T) {
	p := NewProblem("empty")
	if _, err := p.Solve(); err == nil {
		t.Error("expected an error for a problem with no variables")
	}

	p = NewProblem("no objective")
	p.AddNonNegVars(1)
	if _, err := p.Solve(); err == nil {
		t.Error("expected an error for a problem with no objective")
	}
}
