package mdp

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/goril/demo"
)

// sampleCategorical draws an index from the categorical distribution
// with the given weights.
func sampleCategorical(weights []float64, src rand.Source) int {
	dist := distuv.NewCategorical(weights, src)
	return int(dist.Rand())
}

// sampleRow draws a column index from one row of a matrix whose rows
// are probability distributions.
func sampleRow(matrix *mat.Dense, row int, src rand.Source) int {
	_, c := matrix.Dims()
	weights := make([]float64, c)
	for j := 0; j < c; j++ {
		weights[j] = matrix.At(row, j)
	}
	return sampleCategorical(weights, src)
}

// NextState draws the next state from the transition kernel for the
// given (state, action) pair.
func (m *Model) NextState(state, action int, src rand.Source) int {
	return sampleRow(m.actionP[action], state, src)
}

// sampleStart draws an initial state from p0.
func (m *Model) sampleStart(src rand.Source) int {
	return sampleCategorical(m.initial.RawVector().Data, src)
}

// SampleTrajectories samples episodes trajectories of the given horizon
// by following a row-stochastic S×A policy through the model, starting
// each trajectory from a fresh draw of the initial distribution.
func (m *Model) SampleTrajectories(policy *mat.Dense, episodes, horizon int,
	seed uint64) demo.Set {
	src := rand.NewSource(seed)

	d := make(demo.Set, episodes)
	for episode := range d {
		trajectory := make(demo.Trajectory, horizon)
		state := m.sampleStart(src)
		for t := 0; t < horizon; t++ {
			action := sampleRow(policy, state, src)
			trajectory[t] = demo.Step{State: state, Action: action}
			state = m.NextState(state, action, src)
		}
		d[episode] = trajectory
	}
	return d
}

// SampleOffPolicy samples trajectories whose recorded actions come from
// actionPolicy while the visited states evolve under behaviorPolicy.
// The resulting demonstrations show what the action policy would have
// done along state sequences it did not itself generate, which is a
// partial and possibly biased view of the action policy.
func (m *Model) SampleOffPolicy(actionPolicy, behaviorPolicy *mat.Dense,
	episodes, horizon int, seed uint64) demo.Set {
	src := rand.NewSource(seed)

	d := make(demo.Set, episodes)
	for episode := range d {
		trajectory := make(demo.Trajectory, horizon)
		state := m.sampleStart(src)
		for t := 0; t < horizon; t++ {
			trajectory[t] = demo.Step{
				State:  state,
				Action: sampleRow(actionPolicy, state, src),
			}
			state = m.NextState(state, sampleRow(behaviorPolicy, state, src),
				src)
		}
		d[episode] = trajectory
	}
	return d
}

// SampleTask captures one sampling job by value so that it can be
// dispatched to a worker pool through plain message passing. Each task
// carries its own seed, so independent tasks draw independent
// trajectories.
type SampleTask struct {
	Model    *Model
	Policy   *mat.Dense
	Episodes int
	Horizon  int
	Seed     uint64
}

// Run executes the sampling job.
func (t SampleTask) Run() demo.Set {
	return t.Model.SampleTrajectories(t.Policy, t.Episodes, t.Horizon, t.Seed)
}
