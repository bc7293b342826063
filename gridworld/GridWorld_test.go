package gridworld

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadGeometry(t *testing.T) {
	if _, err := New(0, 3, 0, 0, -0.1, 1, 0.9); err == nil {
		t.Error("expected an error for zero rows")
	}
	if _, err := New(3, 3, 3, 0, -0.1, 1, 0.9); err == nil {
		t.Error("expected an error for a goal outside the grid")
	}
	if _, err := New(3, 3, 0, -1, -0.1, 1, 0.9); err == nil {
		t.Error("expected an error for a negative goal coordinate")
	}
}

func TestNewModelShape(t *testing.T) {
	m, err := New(3, 4, 3, 2, -0.1, 1, 0.9)
	require.NoError(t, err)

	require.Equal(t, 12, m.NumStates())
	require.Equal(t, NumActions, m.NumActions())
	require.Equal(t, numFeatures, m.NumFeatures())
	require.InDelta(t, 0.9, m.Discount(), 1e-12)
	require.InDelta(t, 1.0, m.InitialDist().AtVec(0), 1e-12)
}

func TestMovesClampAtWalls(t *testing.T) {
	m, err := New(2, 2, 1, 1, -0.1, 1, 0.9)
	require.NoError(t, err)

	// From the top-left corner, left/up are walls.
	require.Equal(t, 0, m.ArgmaxNextState(0, Left))
	require.Equal(t, 0, m.ArgmaxNextState(0, Up))
	require.Equal(t, 1, m.ArgmaxNextState(0, Right))
	require.Equal(t, 2, m.ArgmaxNextState(0, Down))
}

func TestGoalAbsorbs(t *testing.T) {
	m, err := New(2, 2, 1, 1, -0.1, 1, 0.9)
	require.NoError(t, err)

	goal := 3
	for action := 0; action < NumActions; action++ {
		require.Equal(t, goal, m.ArgmaxNextState(goal, action))
	}
}

func TestOptimalReturn(t *testing.T) {
	m, err := New(2, 2, 1, 1, -0.1, 1, 0.9)
	require.NoError(t, err)

	// Two steps at -0.1 to reach the goal, then the absorbing goal
	// collects the remaining discounted mass 10 - 1.9 = 8.1 at reward 1.
	require.InDelta(t, 7.91, m.OptimalReturn(), 1e-6)
}

func TestOptimalPolicyReachesGoal(t *testing.T) {
	m, err := New(4, 4, 3, 3, -0.1, 1, 0.9)
	require.NoError(t, err)

	policy := m.OptimalPolicy()
	goal := 15
	state := 0
	for step := 0; step < m.NumStates(); step++ {
		if state == goal {
			break
		}
		action := 0
		for a := 1; a < m.NumActions(); a++ {
			if policy.At(state, a) > policy.At(state, action) {
				action = a
			}
		}
		state = m.ArgmaxNextState(state, action)
	}
	require.Equal(t, goal, state)
}
