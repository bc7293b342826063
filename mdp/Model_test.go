package mdp

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// twoStateConfig describes a two-state, two-action chain. Action 0
// keeps state 0 in place, action 1 moves it to state 1, and state 1 is
// absorbing. Only the pair (0, 1) earns reward, and the two features
// indicate the rewarding pair and state-1 pairs respectively. With
// γ = 0.9 the optimal return is 1 and the worst return is 0.
func twoStateConfig(t *testing.T) Config {
	t.Helper()

	transitions := tensor.New(
		tensor.WithShape(2, 2, 2),
		tensor.WithBacking(make([]float64, 8)),
	)
	set := func(state, next, action int) {
		require.NoError(t, transitions.SetAt(1.0, state, next, action))
	}
	set(0, 0, 0)
	set(0, 1, 1)
	set(1, 1, 0)
	set(1, 1, 1)

	// Rows ordered by Index(s, a): (0,0), (1,0), (0,1), (1,1).
	features := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		0, 1,
	})

	return Config{
		States:        2,
		Actions:       2,
		Features:      2,
		Discount:      0.9,
		Transitions:   transitions,
		FeatureMatrix: features,
		InitialDist:   []float64{1, 0},
		Rewards:       []float64{0, 0, 1, 0},
	}
}

func twoStateModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(twoStateConfig(t))
	require.NoError(t, err)
	return m
}

// assertFlow checks the Bellman-flow constraint Wᵀu = p0.
func assertFlow(t *testing.T, m *Model, u *mat.Dense) {
	t.Helper()

	flat := m.Flatten(u)
	var residual mat.VecDense
	residual.MulVec(m.DesignMatrix().T(), mat.NewVecDense(len(flat), flat))
	residual.SubVec(&residual, m.InitialDist())

	for i := 0; i < residual.Len(); i++ {
		require.InDelta(t, 0.0, residual.AtVec(i), 1e-6,
			"flow residual at state %d", i)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero states", func(c *Config) { c.States = 0 }},
		{"negative actions", func(c *Config) { c.Actions = -1 }},
		{"discount one", func(c *Config) { c.Discount = 1 }},
		{"negative discount", func(c *Config) { c.Discount = -0.1 }},
		{"nil kernel", func(c *Config) { c.Transitions = nil }},
		{"wrong kernel shape", func(c *Config) {
			c.Transitions = tensor.New(
				tensor.WithShape(2, 2),
				tensor.WithBacking(make([]float64, 4)),
			)
		}},
		{"nil features", func(c *Config) { c.FeatureMatrix = nil }},
		{"wrong feature rows", func(c *Config) {
			c.FeatureMatrix = mat.NewDense(3, 2, nil)
		}},
		{"short initial distribution", func(c *Config) {
			c.InitialDist = []float64{1}
		}},
		{"initial distribution not summing to one", func(c *Config) {
			c.InitialDist = []float64{0.5, 0.4}
		}},
		{"negative initial probability", func(c *Config) {
			c.InitialDist = []float64{1.5, -0.5}
		}},
		{"wrong reward length", func(c *Config) {
			c.Rewards = []float64{1, 2, 3}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := twoStateConfig(t)
			tc.mutate(&c)

			_, err := New(c)
			require.Error(t, err)

			var constructionErr *ConstructionError
			require.True(t, errors.As(err, &constructionErr))
		})
	}
}

func TestNewRejectsNonStochasticKernel(t *testing.T) {
	c := twoStateConfig(t)
	require.NoError(t, c.Transitions.SetAt(0.5, 0, 0, 0))

	_, err := New(c)
	require.Error(t, err)

	var constructionErr *ConstructionError
	require.True(t, errors.As(err, &constructionErr))
}

func TestIndexRoundTrip(t *testing.T) {
	m := twoStateModel(t)

	for state := 0; state < m.NumStates(); state++ {
		for action := 0; action < m.NumActions(); action++ {
			i := m.Index(state, action)
			gotState, gotAction := m.Unflatten(i)
			require.Equal(t, state, gotState)
			require.Equal(t, action, gotAction)
		}
	}

	// Index(s, a) = a·S + s orders pairs action-major.
	require.Equal(t, 0, m.Index(0, 0))
	require.Equal(t, 1, m.Index(1, 0))
	require.Equal(t, 2, m.Index(0, 1))
	require.Equal(t, 3, m.Index(1, 1))
}

func TestFlattenReshapeRoundTrip(t *testing.T) {
	m := twoStateModel(t)

	u := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	require.True(t, mat.Equal(u, m.Reshape(m.Flatten(u))))

	flat := []float64{5, 6, 7, 8}
	require.Equal(t, flat, m.Flatten(m.Reshape(flat)))
}

func TestDesignMatrix(t *testing.T) {
	m := twoStateModel(t)

	want := mat.NewDense(4, 2, []float64{
		0.1, 0, // (0, 0): stays in state 0
		0, 0.1, // (1, 0): absorbed
		1, -0.9, // (0, 1): moves to state 1
		0, 0.1, // (1, 1): absorbed
	})
	require.True(t, mat.EqualApprox(want, m.DesignMatrix(), 1e-12))
}

func TestCachedSolutions(t *testing.T) {
	m := twoStateModel(t)

	require.InDelta(t, 1.0, m.OptimalReturn(), 1e-6)
	require.InDelta(t, 0.0, m.WorstReturn(), 1e-6)
	// The uniform policy leaves state 0 with probability 1/2 per step,
	// collecting the reward with discounted mass (1/2)/(1 - γ/2).
	require.InDelta(t, 10.0/11.0, m.RandomReturn(), 1e-6)

	require.LessOrEqual(t, m.WorstReturn(), m.RandomReturn())
	require.LessOrEqual(t, m.RandomReturn(), m.OptimalReturn())

	for name, u := range map[string]*mat.Dense{
		"optimal": m.OptimalOccupancy(),
		"random":  m.RandomOccupancy(),
		"worst":   m.WorstOccupancy(),
	} {
		assertFlow(t, m, u)
		require.NoError(t, m.CheckMass(m.Flatten(u), name))
		require.GreaterOrEqual(t, mat.Min(u), 0.0, "%v occupancy", name)
	}

	// Only action 1 at state 0 collects reward.
	require.InDelta(t, 1.0, m.OptimalOccupancy().At(0, 1), 1e-6)
	require.InDelta(t, 1.0, m.OptimalPolicy().At(0, 1), 1e-12)
}

func TestReturnMatchesCachedReturns(t *testing.T) {
	m := twoStateModel(t)

	require.InDelta(t, m.OptimalReturn(), m.Return(m.OptimalOccupancy()), 1e-8)
	require.InDelta(t, m.WorstReturn(), m.Return(m.WorstOccupancy()), 1e-8)
}

func TestFeatureExpectation(t *testing.T) {
	m := twoStateModel(t)

	v := m.FeatureExpectation(m.Flatten(m.OptimalOccupancy()))
	require.Equal(t, 2, v.Len())
	require.InDelta(t, 1.0, v.AtVec(0), 1e-6) // mass on the rewarding pair
	require.InDelta(t, 9.0, v.AtVec(1), 1e-6) // discounted mass in state 1
}

func TestImpliedOccupancy(t *testing.T) {
	m := twoStateModel(t)

	// Deterministic policy: leave state 0 immediately, then action 0.
	policy := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	u, err := m.ImpliedOccupancy(policy)
	require.NoError(t, err)

	require.InDelta(t, 0.0, u.At(0, 0), 1e-10)
	require.InDelta(t, 1.0, u.At(0, 1), 1e-10)
	require.InDelta(t, 9.0, u.At(1, 0), 1e-10)
	require.InDelta(t, 0.0, u.At(1, 1), 1e-10)
	assertFlow(t, m, u)
	require.NoError(t, m.CheckMass(m.Flatten(u), "implied occupancy"))
}

func TestArgmaxNextState(t *testing.T) {
	m := twoStateModel(t)

	require.Equal(t, 0, m.ArgmaxNextState(0, 0))
	require.Equal(t, 1, m.ArgmaxNextState(0, 1))
	require.Equal(t, 1, m.ArgmaxNextState(1, 0))
}

func TestCheckMass(t *testing.T) {
	m := twoStateModel(t)

	require.NoError(t, m.CheckMass([]float64{10, 0, 0, 0}, "exact"))
	require.NoError(t, m.CheckMass([]float64{10.005, 0, 0, 0}, "in band"))

	err := m.CheckMass([]float64{9, 0, 0, 0}, "low")
	require.Error(t, err)
	var tolErr *ToleranceError
	require.True(t, errors.As(err, &tolErr))
	require.Equal(t, "low", tolErr.Quantity)

	require.Error(t, m.CheckMass([]float64{11, 0, 0, 0}, "high"))
}

// The indicator tensor is built on first use and shared afterwards,
// including across concurrent readers.
func TestGailFeaturesBuiltOnce(t *testing.T) {
	m := twoStateModel(t)

	var wg sync.WaitGroup
	got := make([]*tensor.Dense, 4)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.GailFeatures()
		}(i)
	}
	wg.Wait()

	for _, feats := range got {
		require.Same(t, m.GailFeatures(), feats)
	}
}

func TestGailFeatures(t *testing.T) {
	m := twoStateModel(t)

	require.Equal(t, 8, m.GailFeatureDim())
	require.Equal(t, 4, m.GailIndex(0, 1)) // a·S·A + s

	feats := m.GailFeatures()
	require.True(t, feats.Shape().Eq(tensor.Shape{2, 2, 8}))

	for state := 0; state < 2; state++ {
		for action := 0; action < 2; action++ {
			hot := m.GailIndex(state, action)
			for i := 0; i < m.GailFeatureDim(); i++ {
				v, err := feats.At(state, action, i)
				require.NoError(t, err)
				want := 0.0
				if i == hot {
					want = 1.0
				}
				require.Equal(t, want, v.(float64))
			}
		}
	}
}
