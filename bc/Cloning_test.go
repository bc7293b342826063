package bc

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/gridworld"
	"sfneuman.com/goril/mdp"
)

func testModel(t *testing.T) *mdp.Model {
	t.Helper()
	m, err := gridworld.New(2, 2, 1, 1, -0.1, 1.0, 0.9)
	require.NoError(t, err)
	return m
}

// uniformClassifier predicts the uniform distribution over the classes
// seen during Fit. Fit fails on fewer than two classes, mimicking
// multinomial fitters that cannot train on a single label.
type uniformClassifier struct {
	classes []int
}

func (c *uniformClassifier) Fit(x *mat.Dense, labels []int) error {
	seen := make(map[int]struct{})
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("need at least two classes, got %d", len(seen))
	}

	c.classes = c.classes[:0]
	for label := range seen {
		c.classes = append(c.classes, label)
	}
	sort.Ints(c.classes)
	return nil
}

func (c *uniformClassifier) Probabilities(x *mat.Dense) (*mat.Dense, error) {
	rows, _ := x.Dims()
	probs := mat.NewDense(rows, len(c.classes), nil)
	p := 1.0 / float64(len(c.classes))
	for i := 0; i < rows; i++ {
		for j := range c.classes {
			probs.Set(i, j, p)
		}
	}
	return probs, nil
}

func TestClone(t *testing.T) {
	m := testModel(t)

	d := demo.Set{demo.Trajectory{
		{State: 0, Action: gridworld.Right},
		{State: 1, Action: gridworld.Down},
	}}

	u, ret, err := Clone(m, d, &uniformClassifier{})
	require.NoError(t, err)

	mass := 0.0
	for state := 0; state < m.NumStates(); state++ {
		// Unobserved actions get zero probability, hence zero mass.
		require.Equal(t, 0.0, u.At(state, gridworld.Left))
		require.Equal(t, 0.0, u.At(state, gridworld.Up))
		for action := 0; action < m.NumActions(); action++ {
			require.GreaterOrEqual(t, u.At(state, action), 0.0)
			mass += u.At(state, action)
		}
	}
	require.InDelta(t, 1.0/(1.0-m.Discount()), mass, 1e-9)
	require.InDelta(t, m.Return(u), ret, 1e-12)
}

func TestCloneFallsBackOnSingleActionDemos(t *testing.T) {
	m := testModel(t)

	d := demo.Set{demo.Trajectory{{State: 0, Action: gridworld.Right}}}
	u, ret, err := Clone(m, d, &uniformClassifier{})
	require.NoError(t, err)

	require.Equal(t, m.RandomReturn(), ret)
	require.True(t, mat.Equal(m.RandomOccupancy(), u))
}

func TestCloneRejectsEmptyDemos(t *testing.T) {
	m := testModel(t)

	_, _, err := Clone(m, nil, &uniformClassifier{})
	require.Error(t, err)
}

// A fully observing expert demonstration makes the naive clone exact.
func TestNaiveCloneRecoversTheExpert(t *testing.T) {
	m := testModel(t)

	d := demo.Set{m.ExpertObservations()}
	u, ret, err := NaiveClone(m, d)
	require.NoError(t, err)

	require.InDelta(t, m.OptimalReturn(), ret, 1e-8)
	require.NoError(t, m.CheckMass(m.Flatten(u), "cloned occupancy"))
}

func TestNaiveClonePartialDemos(t *testing.T) {
	m := testModel(t)

	// Only state 0 is observed; the clone acts uniformly elsewhere but
	// still induces a valid occupancy frequency.
	d := demo.Set{demo.Trajectory{{State: 0, Action: gridworld.Right}}}
	u, ret, err := NaiveClone(m, d)
	require.NoError(t, err)

	require.NoError(t, m.CheckMass(m.Flatten(u), "cloned occupancy"))
	require.GreaterOrEqual(t, mat.Min(u), 0.0)
	require.InDelta(t, m.Return(u), ret, 1e-12)
}
