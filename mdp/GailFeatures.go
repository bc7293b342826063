package mdp

import "gorgonia.org/tensor"

// GailIndex returns the single nonzero coordinate of the adversarial
// indicator feature vector for a (state, action) pair. The feature
// space has dimension A·S·A: each action owns a disjoint block of size
// S·A, and within its block the pair lights up position s, so
//
//	GailIndex(s, a) = a·S·A + s
//
// Dot products against these features reduce to a single coordinate
// lookup, which the adversarial solver exploits.
func (m *Model) GailIndex(state, action int) int {
	return action*m.numStates*m.numActions + state
}

// GailFeatureDim returns the dimension A·S·A of the adversarial
// indicator feature space.
func (m *Model) GailFeatureDim() int {
	return m.numActions * m.numStates * m.numActions
}

// GailFeatures returns the S×A×(A·S·A) indicator feature tensor. Entry
// [s, a, GailIndex(s, a)] is 1 and all others are 0. The tensor grows
// cubically in the model dimensions, so it is materialized on first
// use and cached; the adversarial solver itself works through the
// GailIndex coordinate shortcut and never pays for it.
func (m *Model) GailFeatures() *tensor.Dense {
	m.gailOnce.Do(func() {
		m.gailFeatures = m.buildGailFeatures()
	})
	return m.gailFeatures
}

// buildGailFeatures materializes the indicator feature tensor.
func (m *Model) buildGailFeatures() *tensor.Dense {
	dim := m.GailFeatureDim()
	backing := make([]float64, m.numStates*m.numActions*dim)
	for state := 0; state < m.numStates; state++ {
		for action := 0; action < m.numActions; action++ {
			offset := (state*m.numActions + action) * dim
			backing[offset+m.GailIndex(state, action)] = 1.0
		}
	}

	return tensor.New(
		tensor.WithShape(m.numStates, m.numActions, dim),
		tensor.WithBacking(backing),
	)
}
