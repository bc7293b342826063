// Package demo implements demonstration data recorded by following a
// policy through an MDP. Trajectories are treated as opaque evidence:
// downstream consumers only ever look at the ordered (state, action)
// pairs and at the set of distinct pairs observed.
package demo

// A Step is a single (state, action) pair observed at one time step of
// a trajectory.
type Step struct {
	State  int
	Action int
}

// A Trajectory is an ordered sequence of state-action pairs of fixed
// horizon.
type Trajectory []Step

// A Set is a collection of trajectories, usually all sampled from the
// same policy.
type Set []Trajectory

// Flatten returns the distinct state-action pairs observed anywhere in
// the Set, in order of first observation. Duplicate pairs are dropped.
func (d Set) Flatten() []Step {
	seen := make(map[Step]struct{})
	var flat []Step

	for _, trajectory := range d {
		for _, step := range trajectory {
			if _, ok := seen[step]; ok {
				continue
			}
			seen[step] = struct{}{}
			flat = append(flat, step)
		}
	}
	return flat
}

// NumSteps returns the total number of steps across all trajectories
// in the Set.
func (d Set) NumSteps() int {
	steps := 0
	for _, trajectory := range d {
		steps += len(trajectory)
	}
	return steps
}
