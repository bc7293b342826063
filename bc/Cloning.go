// Package bc implements behavioral-cloning baselines: direct recovery
// of a policy from demonstrated actions, without any robustness to the
// demonstrations being partial or biased.
package bc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/mdp"
)

// Classifier fits state features to observed discrete actions and
// predicts per-class probabilities. Implementations must order the
// probability columns by ascending class label, with one column per
// distinct label seen during Fit.
type Classifier interface {
	Fit(x *mat.Dense, labels []int) error
	Probabilities(x *mat.Dense) (*mat.Dense, error)
}

// Clone fits a multinomial classifier to the demonstrated (state,
// action) pairs and evaluates the resulting policy exactly. Each state
// is described by an A·K feature row assembled from the features of
// its most likely successor under every action. Actions never observed
// in the demonstrations get zero probability everywhere. When the
// classifier cannot fit — typically because the demonstrations contain
// a single action class — the model's cached uniform-random policy
// result is returned as the fallback.
func Clone(m *mdp.Model, d demo.Set, clf Classifier) (*mat.Dense, float64,
	error) {
	steps := d.Flatten()
	if len(steps) == 0 {
		return nil, 0, fmt.Errorf("bc: no demonstrated pairs to clone")
	}

	stateFeatures := successorFeatures(m)

	x := mat.NewDense(len(steps), m.NumActions()*m.NumFeatures(), nil)
	labels := make([]int, len(steps))
	observed := make(map[int]bool)
	for i, step := range steps {
		x.SetRow(i, stateFeatures.RawRowView(step.State))
		labels[i] = step.Action
		observed[step.Action] = true
	}

	if err := clf.Fit(x, labels); err != nil {
		return m.RandomOccupancy(), m.RandomReturn(), nil
	}

	probs, err := clf.Probabilities(stateFeatures)
	if err != nil {
		return nil, 0, fmt.Errorf("bc: predicting action probabilities: %v",
			err)
	}

	policy := padPolicy(m, probs, observed)
	u, err := m.ImpliedOccupancy(policy)
	if err != nil {
		return nil, 0, err
	}
	return u, m.Return(u), nil
}

// NaiveClone clones the expert by normalizing the empirical occupancy
// estimate into a policy and evaluating that policy exactly.
func NaiveClone(m *mdp.Model, d demo.Set) (*mat.Dense, float64, error) {
	policy := m.OccupancyToPolicy(m.EmpiricalOccupancy(d), false)
	u, err := m.ImpliedOccupancy(policy)
	if err != nil {
		return nil, 0, err
	}
	return u, m.Return(u), nil
}

// successorFeatures assembles the S×(A·K) classifier feature matrix:
// block a of row s holds the feature vector of the pair (s', a), where
// s' is the most likely successor of (s, a).
func successorFeatures(m *mdp.Model) *mat.Dense {
	k := m.NumFeatures()
	phi := m.FeatureMatrix()

	features := mat.NewDense(m.NumStates(), m.NumActions()*k, nil)
	for state := 0; state < m.NumStates(); state++ {
		for action := 0; action < m.NumActions(); action++ {
			next := m.ArgmaxNextState(state, action)
			pair := m.Index(next, action)
			for i := 0; i < k; i++ {
				features.Set(state, action*k+i, phi.At(pair, i))
			}
		}
	}
	return features
}

// padPolicy expands the classifier's probability columns, which cover
// only the observed action labels in ascending order, into a full S×A
// policy with zero probability on unobserved actions.
func padPolicy(m *mdp.Model, probs *mat.Dense, observed map[int]bool) *mat.Dense {
	policy := mat.NewDense(m.NumStates(), m.NumActions(), nil)

	col := 0
	for action := 0; action < m.NumActions(); action++ {
		if !observed[action] {
			continue
		}
		for state := 0; state < m.NumStates(); state++ {
			policy.Set(state, action, probs.At(state, col))
		}
		col++
	}
	return policy
}
