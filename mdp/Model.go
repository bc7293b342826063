// Package mdp implements finite Markov Decision Processes together
// with the occupancy-frequency machinery needed to solve and imitate
// them. The central object is the occupancy frequency: the expected
// discounted visitation count of every state-action pair under some
// policy, starting from the initial state distribution. Policy
// evaluation and optimal-policy recovery are cast as linear programs
// over occupancy frequencies through the Bellman-flow constraint
//
//	Wᵀu = p0,  u ≥ 0
//
// where W is the design matrix stacking (I - γPₐ) over actions.
//
// All flattening of S×A quantities into length S·A vectors uses the
// single mapping Index(s, a) = a·S + s, which also orders the rows of
// the design matrix. Every component of this module goes through
// Index rather than deriving its own layout.
package mdp

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"sfneuman.com/goril/utils/matutils"
)

const (
	// distTol is the tolerance used when validating that probability
	// distributions sum to 1.
	distTol = 1e-6

	// massTol is the tolerance on an occupancy frequency's total mass,
	// which must equal 1/(1-γ).
	massTol = 1e-2
)

// Config fully describes a finite MDP.
type Config struct {
	States   int
	Actions  int
	Features int

	// Discount is the discount factor γ ∈ [0, 1). γ < 1 ensures every
	// occupancy frequency has finite total mass 1/(1-γ).
	Discount float64

	// Transitions is the S×S×A transition kernel. Transitions[s, s', a]
	// is the probability of moving to s' when taking action a in state
	// s. Each (s, a) row must sum to 1.
	Transitions *tensor.Dense

	// FeatureMatrix is the (S·A)×K feature matrix φ, rows ordered by
	// Index(s, a).
	FeatureMatrix *mat.Dense

	// InitialDist is the initial state distribution p0 of length S. It
	// must sum to 1.
	InitialDist []float64

	// Rewards is the flat reward vector of length S·A, ordered by
	// Index(s, a).
	Rewards []float64
}

// Model holds a validated MDP together with derived quantities: the
// Bellman-flow design matrix, per-action transition slices, the reward
// reshaped S×A, and cached ground-truth solutions (the optimal,
// uniform-random, and worst-case occupancy frequencies and returns).
//
// A Model is immutable after construction and is safe to share between
// concurrent readers.
type Model struct {
	numStates   int
	numActions  int
	numFeatures int
	discount    float64

	transitions  *tensor.Dense // S×S×A kernel
	actionP      []*mat.Dense  // per-action S×S transition matrices
	rewards      []float64     // flat, ordered by Index
	rewardMatrix *mat.Dense    // S×A
	features     *mat.Dense    // (S·A)×K
	initial      *mat.VecDense // S

	// design is the (S·A)×S matrix W stacking (I - γPₐ) vertically over
	// actions. Any valid occupancy frequency u satisfies Wᵀu = p0.
	design *mat.Dense

	gailOnce     sync.Once
	gailFeatures *tensor.Dense // S×A×(A·S·A) indicator features, built on demand

	optOccupancy   *mat.Dense
	optReturn      float64
	optPolicy      *mat.Dense
	randOccupancy  *mat.Dense
	randReturn     float64
	worstOccupancy *mat.Dense
	worstReturn    float64
}

// New validates the configuration and constructs a Model. On success
// the Model's ground-truth optimal, uniform-random, and worst-case
// occupancy frequencies have been computed and cached. Any malformed
// parameter or non-optimal cached solve returns a *ConstructionError.
func New(c Config) (*Model, error) {
	if c.States <= 0 || c.Actions <= 0 || c.Features <= 0 {
		return nil, &ConstructionError{Reason: fmt.Sprintf("need positive "+
			"dimensions, got S=%d A=%d K=%d", c.States, c.Actions, c.Features)}
	}
	if c.Discount < 0 || c.Discount >= 1 {
		return nil, &ConstructionError{Reason: fmt.Sprintf("discount %v "+
			"outside [0, 1)", c.Discount)}
	}

	s, a, k := c.States, c.Actions, c.Features
	sa := s * a

	if c.Transitions == nil || !c.Transitions.Shape().Eq(tensor.Shape{s, s, a}) {
		return nil, &ConstructionError{Reason: fmt.Sprintf("transition kernel "+
			"must have shape (%d, %d, %d)", s, s, a)}
	}
	if c.FeatureMatrix == nil {
		return nil, &ConstructionError{Reason: "feature matrix is nil"}
	}
	if r, cols := c.FeatureMatrix.Dims(); r != sa || cols != k {
		return nil, &ConstructionError{Reason: fmt.Sprintf("feature matrix is "+
			"%d×%d, want %d×%d", r, cols, sa, k)}
	}
	if len(c.InitialDist) != s {
		return nil, &ConstructionError{Reason: fmt.Sprintf("initial "+
			"distribution has %d entries, want %d", len(c.InitialDist), s)}
	}
	if len(c.Rewards) != sa {
		return nil, &ConstructionError{Reason: fmt.Sprintf("reward vector has "+
			"%d entries, want %d", len(c.Rewards), sa)}
	}

	m := &Model{
		numStates:   s,
		numActions:  a,
		numFeatures: k,
		discount:    c.Discount,
		transitions: c.Transitions,
		features:    c.FeatureMatrix,
	}

	// Validate and copy the initial distribution.
	p0Sum := 0.0
	for _, p := range c.InitialDist {
		if p < 0 {
			return nil, &ConstructionError{Reason: "initial distribution has " +
				"a negative entry"}
		}
		p0Sum += p
	}
	if math.Abs(p0Sum-1) > distTol {
		return nil, &ConstructionError{Reason: fmt.Sprintf("initial "+
			"distribution sums to %v, want 1", p0Sum)}
	}
	p0 := make([]float64, s)
	copy(p0, c.InitialDist)
	m.initial = mat.NewVecDense(s, p0)

	// Materialize per-action S×S transition slices from the kernel and
	// validate row-stochasticity per (s, a).
	m.actionP = make([]*mat.Dense, a)
	for action := 0; action < a; action++ {
		slice := mat.NewDense(s, s, nil)
		for state := 0; state < s; state++ {
			rowSum := 0.0
			for next := 0; next < s; next++ {
				v, err := c.Transitions.At(state, next, action)
				if err != nil {
					return nil, &ConstructionError{
						Reason: "reading transition kernel", Err: err,
					}
				}
				p := v.(float64)
				if p < 0 {
					return nil, &ConstructionError{Reason: fmt.Sprintf(
						"negative transition probability at (%d, %d, %d)",
						state, next, action)}
				}
				slice.Set(state, next, p)
				rowSum += p
			}
			if math.Abs(rowSum-1) > distTol {
				return nil, &ConstructionError{Reason: fmt.Sprintf(
					"transition row (s=%d, a=%d) sums to %v, want 1",
					state, action, rowSum)}
			}
		}
		m.actionP[action] = slice
	}

	rewards := make([]float64, sa)
	copy(rewards, c.Rewards)
	m.rewards = rewards
	m.rewardMatrix = mat.NewDense(s, a, nil)
	for state := 0; state < s; state++ {
		for action := 0; action < a; action++ {
			m.rewardMatrix.Set(state, action, rewards[m.Index(state, action)])
		}
	}

	m.design = m.buildDesignMatrix()

	if err := m.cacheSolutions(); err != nil {
		return nil, err
	}
	return m, nil
}

// buildDesignMatrix constructs W, the vertical stack over actions of
// (I - γPₐ). Row Index(s, a) of W corresponds to the (s, a) pair, so
// the matrix rows share the module-wide flat ordering.
func (m *Model) buildDesignMatrix() *mat.Dense {
	s := m.numStates
	design := mat.NewDense(s*m.numActions, s, nil)

	for action := 0; action < m.numActions; action++ {
		p := m.actionP[action]
		for state := 0; state < s; state++ {
			row := design.RawRowView(m.Index(state, action))
			for next := 0; next < s; next++ {
				row[next] = -m.discount * p.At(state, next)
			}
			row[state] += 1
		}
	}
	return design
}

// cacheSolutions computes the ground-truth optimal, uniform-random, and
// worst-case occupancy frequencies and returns.
func (m *Model) cacheSolutions() error {
	u, ret, err := m.SolveOptimalOccupancy()
	if err != nil {
		return &ConstructionError{Reason: "solving for the optimal occupancy " +
			"frequency", Err: err}
	}
	m.optOccupancy, m.optReturn = u, ret
	m.optPolicy = m.OccupancyToPolicy(u, true)

	uniform := mat.NewDense(m.numStates, m.numActions, nil)
	prob := 1.0 / float64(m.numActions)
	for state := 0; state < m.numStates; state++ {
		for action := 0; action < m.numActions; action++ {
			uniform.Set(state, action, prob)
		}
	}
	uRand, err := m.ImpliedOccupancy(uniform)
	if err != nil {
		return &ConstructionError{Reason: "solving for the uniform-random " +
			"occupancy frequency", Err: err}
	}
	m.randOccupancy, m.randReturn = uRand, m.Return(uRand)

	uWorst, worstRet, err := m.SolveWorstOccupancy()
	if err != nil {
		return &ConstructionError{Reason: "solving for the worst-case " +
			"occupancy frequency", Err: err}
	}
	m.worstOccupancy, m.worstReturn = uWorst, worstRet

	return nil
}

// Index maps a (state, action) pair to its flat position a·S + s. The
// mapping matches the row layout of the design matrix and is the only
// flattening convention used anywhere in this module.
func (m *Model) Index(state, action int) int {
	return action*m.numStates + state
}

// Unflatten inverts Index, returning the (state, action) pair at flat
// position i.
func (m *Model) Unflatten(i int) (state, action int) {
	return i % m.numStates, i / m.numStates
}

// Flatten copies an S×A matrix into a flat vector ordered by Index.
func (m *Model) Flatten(u *mat.Dense) []float64 {
	flat := make([]float64, m.numStates*m.numActions)
	for state := 0; state < m.numStates; state++ {
		for action := 0; action < m.numActions; action++ {
			flat[m.Index(state, action)] = u.At(state, action)
		}
	}
	return flat
}

// Reshape copies a flat vector ordered by Index into an S×A matrix.
func (m *Model) Reshape(flat []float64) *mat.Dense {
	u := mat.NewDense(m.numStates, m.numActions, nil)
	for state := 0; state < m.numStates; state++ {
		for action := 0; action < m.numActions; action++ {
			u.Set(state, action, flat[m.Index(state, action)])
		}
	}
	return u
}

// NumStates returns the number of states S.
func (m *Model) NumStates() int { return m.numStates }

// NumActions returns the number of actions A.
func (m *Model) NumActions() int { return m.numActions }

// NumFeatures returns the number of reward features K.
func (m *Model) NumFeatures() int { return m.numFeatures }

// Discount returns the discount factor γ.
func (m *Model) Discount() float64 { return m.discount }

// DesignMatrix returns the (S·A)×S Bellman-flow design matrix W. The
// returned matrix must not be modified.
func (m *Model) DesignMatrix() *mat.Dense { return m.design }

// ActionTransitions returns the S×S transition matrix of one action.
// The returned matrix must not be modified.
func (m *Model) ActionTransitions(action int) *mat.Dense {
	return m.actionP[action]
}

// Transitions returns the S×S×A transition kernel tensor.
func (m *Model) Transitions() *tensor.Dense { return m.transitions }

// FeatureMatrix returns the (S·A)×K feature matrix φ. The returned
// matrix must not be modified.
func (m *Model) FeatureMatrix() *mat.Dense { return m.features }

// Rewards returns the flat reward vector ordered by Index. The
// returned slice must not be modified.
func (m *Model) Rewards() []float64 { return m.rewards }

// RewardMatrix returns the reward reshaped S×A. The returned matrix
// must not be modified.
func (m *Model) RewardMatrix() *mat.Dense { return m.rewardMatrix }

// InitialDist returns the initial state distribution p0. The returned
// vector must not be modified.
func (m *Model) InitialDist() *mat.VecDense { return m.initial }

// OptimalOccupancy returns a copy of the cached optimal occupancy
// frequency.
func (m *Model) OptimalOccupancy() *mat.Dense {
	return mat.DenseCopyOf(m.optOccupancy)
}

// OptimalReturn returns the cached optimal return.
func (m *Model) OptimalReturn() float64 { return m.optReturn }

// OptimalPolicy returns a copy of the deterministic optimal policy.
func (m *Model) OptimalPolicy() *mat.Dense {
	return mat.DenseCopyOf(m.optPolicy)
}

// RandomOccupancy returns a copy of the cached occupancy frequency of
// the uniformly-random policy.
func (m *Model) RandomOccupancy() *mat.Dense {
	return mat.DenseCopyOf(m.randOccupancy)
}

// RandomReturn returns the cached return of the uniformly-random
// policy.
func (m *Model) RandomReturn() float64 { return m.randReturn }

// WorstOccupancy returns a copy of the cached worst-case occupancy
// frequency.
func (m *Model) WorstOccupancy() *mat.Dense {
	return mat.DenseCopyOf(m.worstOccupancy)
}

// WorstReturn returns the cached worst-case return.
func (m *Model) WorstReturn() float64 { return m.worstReturn }

// Return computes the expected discounted return Σ u[s,a]·r[s,a] of an
// occupancy frequency.
func (m *Model) Return(u *mat.Dense) float64 {
	total := 0.0
	for state := 0; state < m.numStates; state++ {
		for action := 0; action < m.numActions; action++ {
			total += u.At(state, action) * m.rewardMatrix.At(state, action)
		}
	}
	return total
}

// FeatureExpectation computes uᵀφ, the length-K feature expectation of
// a flat occupancy frequency.
func (m *Model) FeatureExpectation(flat []float64) *mat.VecDense {
	v := mat.NewVecDense(m.numFeatures, nil)
	v.MulVec(m.features.T(), mat.NewVecDense(len(flat), flat))
	return v
}

// ImpliedOccupancy computes the exact occupancy frequency of a
// row-stochastic S×A policy by solving the linear system
// (I - γP_πᵀ)d = p0 and scaling each state's visitation d[s] by the
// policy row.
func (m *Model) ImpliedOccupancy(policy *mat.Dense) (*mat.Dense, error) {
	s := m.numStates

	// P_π[s, s'] = Σ_a π(a|s)·P[s, s', a]
	pPi := mat.NewDense(s, s, nil)
	for state := 0; state < s; state++ {
		for next := 0; next < s; next++ {
			p := 0.0
			for action := 0; action < m.numActions; action++ {
				p += policy.At(state, action) * m.actionP[action].At(state, next)
			}
			pPi.Set(state, next, p)
		}
	}

	system := mat.NewDense(s, s, nil)
	system.Scale(-m.discount, pPi.T())
	for state := 0; state < s; state++ {
		system.Set(state, state, system.At(state, state)+1)
	}

	var visits mat.VecDense
	if err := visits.SolveVec(system, m.initial); err != nil {
		return nil, fmt.Errorf("implied occupancy: singular flow system: %v",
			err)
	}

	u := mat.NewDense(s, m.numActions, nil)
	for state := 0; state < s; state++ {
		for action := 0; action < m.numActions; action++ {
			u.Set(state, action, visits.AtVec(state)*policy.At(state, action))
		}
	}
	return u, nil
}

// ArgmaxNextState returns the most likely next state under the
// transition kernel for the given (state, action) pair.
func (m *Model) ArgmaxNextState(state, action int) int {
	return matutils.MaxVec(m.actionP[action].RowView(state))
}

// CheckMass verifies that a flat occupancy frequency's total mass is
// 1/(1-γ) within tolerance. Both directions of deviation are checked.
func (m *Model) CheckMass(flat []float64, quantity string) error {
	mass := 0.0
	for _, v := range flat {
		mass += v
	}
	want := 1.0 / (1.0 - m.discount)
	if math.Abs(mass-want) > massTol {
		return &ToleranceError{Quantity: quantity, Got: mass, Want: want,
			Tol: massTol}
	}
	return nil
}
