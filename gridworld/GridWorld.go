// Package gridworld builds finite MDP models of 2D gridworld
// navigation tasks. The agent starts in the top-left cell, moves with
// deterministic left/right/up/down actions that clamp at the walls,
// and is absorbed at a goal cell. The reward is linear in a two-value
// feature map distinguishing goal pairs from all others, so the models
// plug directly into feature-based robust estimation.
package gridworld

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"sfneuman.com/goril/mdp"
)

// Actions of the gridworld, one per movement direction.
const (
	Left = iota
	Right
	Up
	Down
	NumActions
)

// numFeatures counts the feature map's values: one indicator for goal
// pairs and one for every other pair.
const numFeatures = 2

// New builds the MDP model of a rows×cols gridworld with the goal at
// (goalX, goalY). Every non-goal pair earns stepReward, the goal's
// pairs earn goalReward, and the agent starts at cell (0, 0).
func New(rows, cols, goalX, goalY int, stepReward, goalReward,
	discount float64) (*mdp.Model, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("gridworld: need positive dimensions, got "+
			"%d×%d", rows, cols)
	}
	if goalX < 0 || goalX >= cols || goalY < 0 || goalY >= rows {
		return nil, fmt.Errorf("gridworld: goal (%d, %d) outside %d×%d grid",
			goalX, goalY, rows, cols)
	}

	states := rows * cols
	goal := goalY*cols + goalX
	sa := states * NumActions

	transitions := tensor.New(
		tensor.WithShape(states, states, NumActions),
		tensor.WithBacking(make([]float64, states*states*NumActions)),
	)
	for state := 0; state < states; state++ {
		for action := 0; action < NumActions; action++ {
			next := state
			if state != goal { // the goal absorbs
				next = move(state, action, rows, cols)
			}
			if err := transitions.SetAt(1.0, state, next, action); err != nil {
				return nil, fmt.Errorf("gridworld: building transitions: %v",
					err)
			}
		}
	}

	features := mat.NewDense(sa, numFeatures, nil)
	rewards := make([]float64, sa)
	for state := 0; state < states; state++ {
		for action := 0; action < NumActions; action++ {
			pair := action*states + state // flat ordering of mdp.Index
			if state == goal {
				features.Set(pair, 0, 1)
				rewards[pair] = goalReward
			} else {
				features.Set(pair, 1, 1)
				rewards[pair] = stepReward
			}
		}
	}

	initial := make([]float64, states)
	initial[0] = 1

	return mdp.New(mdp.Config{
		States:        states,
		Actions:       NumActions,
		Features:      numFeatures,
		Discount:      discount,
		Transitions:   transitions,
		FeatureMatrix: features,
		InitialDist:   initial,
		Rewards:       rewards,
	})
}

// move applies one movement action to a flattened cell index, clamping
// at the grid boundary.
func move(state, action, rows, cols int) int {
	row, col := state/cols, state%cols

	switch action {
	case Left:
		if col > 0 {
			col--
		}
	case Right:
		if col < cols-1 {
			col++
		}
	case Up:
		if row > 0 {
			row--
		}
	case Down:
		if row < rows-1 {
			row++
		}
	}
	return row*cols + col
}
