// Package gail implements an adversarial imitation-learning solver
// that co-trains a softmax policy against a discriminator. The policy
// is parameterized over indicator features with one coordinate per
// (action, state, action) triple, so the discriminator score and the
// policy logits of a pair both reduce to single coordinate lookups.
//
// The training loop alternates a discriminator gradient-ascent step,
// pushing the discriminator to separate expert pairs from policy
// pairs, with a policy gradient-descent step through the standard
// softmax score function. No convergence check is performed: the loop
// runs a fixed iteration count, and whether the coupled updates ascend
// a well-defined minimax objective is not established. The returned
// occupancy frequency is always exact for the final parameters — it is
// recovered from the closed-form flow system rather than from the
// noisy sampled estimate — so its structural invariants hold even when
// training has not converged.
package gail

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/mdp"
	"sfneuman.com/goril/utils/matutils"
)

// Default hyperparameters of the adversarial training loop.
const (
	DefaultIterations   = 20
	DefaultLearningRate = 10_000.0
)

// Config collects the solver's hyperparameters. Zero values for
// Iterations and LearningRate select the defaults.
type Config struct {
	// Iterations is the number of outer co-training iterations.
	Iterations int

	// LearningRate is the fixed step size shared by the discriminator
	// and policy updates.
	LearningRate float64

	// Horizon is the length of each trajectory sampled from the
	// current policy.
	Horizon int

	// Seed seeds trajectory sampling.
	Seed uint64
}

// Solver co-trains a softmax policy parameter vector θ and a
// discriminator parameter vector w, both of dimension A·S·A over the
// model's indicator feature space. A Solver is single-use: construct a
// fresh one per training run.
type Solver struct {
	model  *mdp.Model
	config Config
	theta  *mat.VecDense
	disc   *mat.VecDense
	src    rand.Source
}

// New returns a Solver for the given model. Both parameter vectors are
// initialized to all ones.
func New(m *mdp.Model, c Config) *Solver {
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
	}
	if c.LearningRate == 0 {
		c.LearningRate = DefaultLearningRate
	}

	dim := m.GailFeatureDim()
	return &Solver{
		model:  m,
		config: c,
		theta:  matutils.VecOnes(dim),
		disc:   matutils.VecOnes(dim),
		src:    rand.NewSource(c.Seed),
	}
}

// Solve runs the fixed-iteration co-training loop against the expert
// demonstrations and returns the exact occupancy frequency implied by
// the final policy parameters together with its return under the
// model's true reward.
func (s *Solver) Solve(expert demo.Set) (*mat.Dense, float64, error) {
	if s.config.Horizon <= 0 {
		return nil, 0, fmt.Errorf("gail: horizon must be positive, got %d",
			s.config.Horizon)
	}

	uExpert := s.model.EmpiricalOccupancy(expert)
	dim := s.model.GailFeatureDim()
	eta := s.config.LearningRate

	gradDisc := make([]float64, dim)
	gradTheta := make([]float64, dim)

	for iteration := 0; iteration < s.config.Iterations; iteration++ {
		sampled := s.samplePolicyTrajectories(1, s.config.Horizon)
		uTheta := s.model.EmpiricalOccupancy(sampled)

		for i := range gradDisc {
			gradDisc[i] = 0
			gradTheta[i] = 0
		}

		// Discriminator ascent: raise the score on pairs the policy
		// visits, lower it on pairs the expert visits.
		for _, trajectory := range sampled {
			for _, step := range trajectory {
				idx := s.model.GailIndex(step.State, step.Action)
				visits := uTheta.At(step.State, step.Action)
				gradDisc[idx] += visits * (1 - sigmoid(s.disc.AtVec(idx)))
			}
		}
		for _, trajectory := range expert {
			for _, step := range trajectory {
				idx := s.model.GailIndex(step.State, step.Action)
				visits := uExpert.At(step.State, step.Action)
				gradDisc[idx] -= visits * sigmoid(s.disc.AtVec(idx))
			}
		}
		s.disc.AddScaledVec(s.disc, eta, mat.NewVecDense(dim, gradDisc))

		// Scalar baseline for the policy update.
		baseline := 0.0
		for _, trajectory := range sampled {
			for _, step := range trajectory {
				idx := s.model.GailIndex(step.State, step.Action)
				baseline += uTheta.At(step.State, step.Action) *
					sigmoid(s.disc.AtVec(idx))
			}
		}
		baseline /= float64(len(sampled))

		// Policy descent through the softmax score function:
		// ∇θ log π(a|s) = φ(s,a) - Σ_a' π(a'|s)·φ(s,a').
		for _, trajectory := range sampled {
			for _, step := range trajectory {
				idx := s.model.GailIndex(step.State, step.Action)
				visits := uTheta.At(step.State, step.Action)
				q := baseline + visits*logSigmoid(s.disc.AtVec(idx))
				scale := visits * q

				pi := s.policyRow(step.State)
				gradTheta[idx] += scale
				for action := 0; action < s.model.NumActions(); action++ {
					gradTheta[s.model.GailIndex(step.State, action)] -=
						scale * pi[action]
				}
			}
		}
		s.theta.AddScaledVec(s.theta, -eta, mat.NewVecDense(dim, gradTheta))
	}

	u, err := s.model.ImpliedOccupancy(s.PolicyMatrix())
	if err != nil {
		return nil, 0, err
	}
	return u, s.model.Return(u), nil
}

// PolicyMatrix returns the S×A row-stochastic policy described by the
// current policy parameters.
func (s *Solver) PolicyMatrix() *mat.Dense {
	policy := mat.NewDense(s.model.NumStates(), s.model.NumActions(), nil)
	for state := 0; state < s.model.NumStates(); state++ {
		policy.SetRow(state, s.policyRow(state))
	}
	return policy
}

// Theta returns a copy of the current policy parameters.
func (s *Solver) Theta() *mat.VecDense {
	return mat.VecDenseCopyOf(s.theta)
}

// Discriminator returns a copy of the current discriminator
// parameters.
func (s *Solver) Discriminator() *mat.VecDense {
	return mat.VecDenseCopyOf(s.disc)
}

// policyRow computes π_θ(·|state) as a numerically stable softmax over
// the indicator-feature logits.
func (s *Solver) policyRow(state int) []float64 {
	numActions := s.model.NumActions()
	logits := make([]float64, numActions)
	maxLogit := math.Inf(-1)
	for action := 0; action < numActions; action++ {
		logits[action] = s.theta.AtVec(s.model.GailIndex(state, action))
		if logits[action] > maxLogit {
			maxLogit = logits[action]
		}
	}

	total := 0.0
	for action, logit := range logits {
		logits[action] = math.Exp(logit - maxLogit)
		total += logits[action]
	}
	for action := range logits {
		logits[action] /= total
	}
	return logits
}

// samplePolicyTrajectories samples trajectories from the current
// softmax policy.
func (s *Solver) samplePolicyTrajectories(episodes, horizon int) demo.Set {
	d := make(demo.Set, episodes)
	for episode := range d {
		trajectory := make(demo.Trajectory, horizon)
		state := s.sampleStart()
		for t := 0; t < horizon; t++ {
			action := sampleIndex(s.policyRow(state), s.src)
			trajectory[t] = demo.Step{State: state, Action: action}
			state = s.model.NextState(state, action, s.src)
		}
		d[episode] = trajectory
	}
	return d
}

func (s *Solver) sampleStart() int {
	return sampleIndex(s.model.InitialDist().RawVector().Data, s.src)
}

// sampleIndex draws an index from the categorical distribution with
// the given weights.
func sampleIndex(weights []float64, src rand.Source) int {
	dist := distuv.NewCategorical(weights, src)
	return int(dist.Rand())
}

// sigmoid is the logistic function, computed without overflow for
// large negative arguments.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// logSigmoid computes log σ(x) without underflowing to -Inf for large
// |x|.
func logSigmoid(x float64) float64 {
	if x >= 0 {
		return -math.Log1p(math.Exp(-x))
	}
	return x - math.Log1p(math.Exp(x))
}
