package demo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	d := Set{
		Trajectory{{State: 0, Action: 1}, {State: 1, Action: 0}},
		Trajectory{{State: 0, Action: 1}, {State: 2, Action: 1}},
	}

	// Distinct pairs in order of first observation, duplicates dropped.
	want := []Step{
		{State: 0, Action: 1},
		{State: 1, Action: 0},
		{State: 2, Action: 1},
	}
	require.Equal(t, want, d.Flatten())
}

func TestFlattenEmpty(t *testing.T) {
	require.Empty(t, Set{}.Flatten())
	require.Empty(t, Set{Trajectory{}}.Flatten())
}

func TestNumSteps(t *testing.T) {
	d := Set{
		Trajectory{{State: 0, Action: 0}},
		Trajectory{{State: 1, Action: 1}, {State: 0, Action: 1}},
	}
	require.Equal(t, 3, d.NumSteps())
	require.Equal(t, 0, Set{}.NumSteps())
}
