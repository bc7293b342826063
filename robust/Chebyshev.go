// Package robust implements robust estimation of occupancy frequencies
// from partial, possibly biased expert demonstrations. The estimators
// share a common shape: the reward is known only to be linear in the
// model's features with weights in the L1 ball, and the returned
// occupancy frequency minimizes a worst-case deviation or regret
// against that adversarial weight set, subject to the Bellman-flow
// constraint and to consistency with the observed demonstrations.
package robust

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/lpsolve"
	"sfneuman.com/goril/mdp"
	"sfneuman.com/goril/utils/matutils"
)

// ChebyshevCenter computes the Chebyshev center of the set of
// occupancy frequencies consistent with the demonstrations: the u ∈ Υ
// minimizing the worst-case L∞ deviation between its feature
// expectation and that of any occupancy frequency the adversarial
// reward set cannot distinguish from the expert's. The full duality
// transformation is solved as a single linear program with auxiliary
// dual variables α, α̂ ∈ ℝᴷ and β, β̂ ∈ ℝ^{S×K}.
//
// It returns the occupancy frequency, the Chebyshev radius σ, and the
// return of u under the model's true reward.
func ChebyshevCenter(m *mdp.Model, d demo.Set) (*mat.Dense, float64, float64,
	error) {
	s := m.NumStates()
	k := m.NumFeatures()
	sa := s * m.NumActions()
	phi := m.FeatureMatrix()
	w := m.DesignMatrix()
	p0 := m.InitialDist()
	c := m.ConstraintVector(d)

	p := lpsolve.NewProblem("chebyshev center")
	sigma := p.AddNonNegVars(1)
	u := p.AddNonNegVars(sa)
	alpha := p.AddVars(k)
	alphaHat := p.AddVars(k)
	beta := p.AddVars(s * k)    // column i of β occupies beta[i·S : (i+1)·S]
	betaHat := p.AddVars(s * k) // likewise for β̂

	for i := 0; i < k; i++ {
		// p0ᵀβ_i ≤ σ + φ_iᵀu
		row := p.Row()
		for j := 0; j < s; j++ {
			row[beta.At(i*s+j)] = p0.AtVec(j)
		}
		row[sigma.At(0)] = -1
		for l := 0; l < sa; l++ {
			row[u.At(l)] = -phi.At(l, i)
		}
		p.AddLe(row, 0)

		// p0ᵀβ̂_i ≤ σ - φ_iᵀu
		row = p.Row()
		for j := 0; j < s; j++ {
			row[betaHat.At(i*s+j)] = p0.AtVec(j)
		}
		row[sigma.At(0)] = -1
		for l := 0; l < sa; l++ {
			row[u.At(l)] = phi.At(l, i)
		}
		p.AddLe(row, 0)

		// φ_i ≤ α_i·c + W·β_i, one row per (state, action) pair
		for l := 0; l < sa; l++ {
			row = p.Row()
			row[alpha.At(i)] = -c.AtVec(l)
			for j := 0; j < s; j++ {
				row[beta.At(i*s+j)] = -w.At(l, j)
			}
			p.AddLe(row, -phi.At(l, i))
		}

		// -φ_i ≤ α̂_i·c + W·β̂_i
		for l := 0; l < sa; l++ {
			row = p.Row()
			row[alphaHat.At(i)] = -c.AtVec(l)
			for j := 0; j < s; j++ {
				row[betaHat.At(i*s+j)] = -w.At(l, j)
			}
			p.AddLe(row, phi.At(l, i))
		}
	}

	p.AddEqMat(w.T(), u, p0.RawVector().Data)
	addUpsilonConstraint(p, u, c)

	obj := p.Row()
	obj[sigma.At(0)] = 1
	p.Minimize(obj)

	res, err := p.Solve()
	if err != nil {
		return nil, 0, 0, err
	}

	flat := matutils.ClampNonNegative(res.X[u.Off : u.Off+u.Len])
	uMat := m.Reshape(flat)
	return uMat, res.Objective, m.Return(uMat), nil
}

// ChebyshevOptions configures the sampled cutting-plane variant of the
// Chebyshev-center computation.
type ChebyshevOptions struct {
	// AddLinearConstraint restricts the inner maximization's feasible
	// set to Υ via the demonstration constraint vector.
	AddLinearConstraint bool

	// AddLInfConstraint bounds the inner maximization's feature
	// expectation within an L∞ band of width Epsilon around the
	// empirical expert feature expectation.
	AddLInfConstraint bool

	// Epsilon is the width of the L∞ band. When 0, the width defaults
	// to ‖(u_E - û)φ‖∞ + 1, an empirical slack around the mismatch
	// between the true and estimated expert occupancy frequencies.
	Epsilon float64

	// Prune replaces the 2K exact extreme points of the L1 ball with
	// 100 directions sampled uniformly from the ball, pruned to the
	// top decile by projected empirical-occupancy score. This trades
	// tightness for speed.
	Prune bool

	// Seed seeds direction sampling when Prune is set.
	Seed uint64
}

// numSampledDirections is the number of L1-ball directions drawn when
// pruning, and pruneQuantile the score quantile a direction must reach
// to be kept.
const (
	numSampledDirections = 100
	pruneQuantile        = 0.9
)

// ChebyshevCenterSampled approximates the Chebyshev center with a
// two-phase cutting-plane scheme. Phase 1 enumerates a finite set of
// feature-weight directions — the 2K signed unit vectors, or a pruned
// random sample when opts.Prune is set — and solves one inner
// maximization per direction over the Bellman-flow polytope,
// optionally restricted to Υ and to an L∞ band around the empirical
// expert feature expectation. Phase 2 minimizes the worst-case regret
// of u against the finite direction set found in phase 1.
//
// It returns the ε used for the band, the occupancy frequency, the
// radius, and the return of u under the model's true reward. A
// non-optimal status on any sub-program aborts the whole call.
func ChebyshevCenterSampled(m *mdp.Model, d demo.Set, opts ChebyshevOptions) (
	float64, *mat.Dense, float64, float64, error) {
	sa := m.NumStates() * m.NumActions()
	c := m.ConstraintVector(d)
	uHat := m.Flatten(m.EmpiricalOccupancy(d))
	vHat := m.FeatureExpectation(uHat)

	eps := opts.Epsilon
	if eps == 0 {
		diff := m.Flatten(m.OptimalOccupancy())
		for i := range diff {
			diff[i] -= uHat[i]
		}
		eps = mat.Norm(m.FeatureExpectation(diff), math.Inf(1)) + 1
	}

	directions := signedUnitDirections(m.NumFeatures())
	if opts.Prune {
		directions = prunedDirections(m, vHat, opts.Seed)
	}

	// Phase 1: inner maximization per direction.
	best := make([]float64, len(directions))
	for i, direction := range directions {
		inner := innerConstraints{
			constraint: c,
			restrict:   opts.AddLinearConstraint,
		}
		if opts.AddLInfConstraint {
			inner.band = vHat
			inner.eps = eps
		}
		value, err := innerMaximize(m, direction, inner)
		if err != nil {
			return 0, nil, 0, 0, err
		}
		best[i] = value
	}

	// Phase 2: outer minimization of the worst-case regret against the
	// direction set.
	p := lpsolve.NewProblem("chebyshev outer minimization")
	sigma := p.AddNonNegVars(1)
	u := p.AddNonNegVars(sa)

	for i, direction := range directions {
		projected := projectFeatures(m, direction)
		row := p.Row()
		for l := 0; l < sa; l++ {
			row[u.At(l)] = -projected[l]
		}
		row[sigma.At(0)] = -1
		p.AddLe(row, -best[i])
	}
	p.AddEqMat(m.DesignMatrix().T(), u, m.InitialDist().RawVector().Data)
	addUpsilonConstraint(p, u, c)

	obj := p.Row()
	obj[sigma.At(0)] = 1
	p.Minimize(obj)

	res, err := p.Solve()
	if err != nil {
		return 0, nil, 0, 0, err
	}

	flat := matutils.ClampNonNegative(res.X[u.Off : u.Off+u.Len])
	if err := m.CheckMass(flat, "chebyshev outer minimization mass"); err != nil {
		return 0, nil, 0, 0, err
	}
	uMat := m.Reshape(flat)
	return eps, uMat, res.Objective, m.Return(uMat), nil
}

// innerConstraints collects the optional restrictions on the inner
// maximization's feasible set.
type innerConstraints struct {
	constraint *mat.VecDense // Υ constraint vector
	restrict   bool          // require cᵀv = 0
	band       *mat.VecDense // empirical feature expectation, nil for no band
	eps        float64
}

// innerMaximize solves max wᵀφᵀv over the Bellman-flow polytope with
// the given optional restrictions, for one feature-weight direction w.
func innerMaximize(m *mdp.Model, direction []float64,
	inner innerConstraints) (float64, error) {
	sa := m.NumStates() * m.NumActions()
	phi := m.FeatureMatrix()

	p := lpsolve.NewProblem("inner maximization")
	v := p.AddNonNegVars(sa)
	p.AddEqMat(m.DesignMatrix().T(), v, m.InitialDist().RawVector().Data)
	if inner.restrict {
		addUpsilonConstraint(p, v, inner.constraint)
	}
	if inner.band != nil {
		for i := 0; i < m.NumFeatures(); i++ {
			row := p.Row()
			for l := 0; l < sa; l++ {
				row[v.At(l)] = phi.At(l, i)
			}
			p.AddLe(row, inner.band.AtVec(i)+inner.eps)

			row = p.Row()
			for l := 0; l < sa; l++ {
				row[v.At(l)] = -phi.At(l, i)
			}
			p.AddLe(row, inner.eps-inner.band.AtVec(i))
		}
	}

	projected := projectFeatures(m, direction)
	obj := p.Row()
	for l := 0; l < sa; l++ {
		obj[v.At(l)] = projected[l]
	}
	p.Maximize(obj)

	res, err := p.Solve()
	if err != nil {
		return 0, err
	}
	return res.Objective, nil
}

// projectFeatures computes φw, the per-pair reward implied by one
// feature-weight direction.
func projectFeatures(m *mdp.Model, direction []float64) []float64 {
	var projected mat.VecDense
	projected.MulVec(m.FeatureMatrix(),
		mat.NewVecDense(len(direction), direction))
	return projected.RawVector().Data
}

// addUpsilonConstraint adds cᵀu = 0 to the problem. An all-zero
// constraint vector means no state was observed, and the trivial row
// is skipped.
func addUpsilonConstraint(p *lpsolve.Problem, u lpsolve.VarBlock,
	c *mat.VecDense) {
	nonZero := false
	for l := 0; l < c.Len(); l++ {
		if c.AtVec(l) != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return
	}

	row := p.Row()
	for l := 0; l < c.Len(); l++ {
		row[u.At(l)] = c.AtVec(l)
	}
	p.AddEq(row, 0)
}

// signedUnitDirections returns the 2K signed unit vectors, the exact
// extreme points of the L1 ball in feature-weight space.
func signedUnitDirections(k int) [][]float64 {
	directions := make([][]float64, 2*k)
	for i := 0; i < k; i++ {
		plus := make([]float64, k)
		plus[i] = 1
		minus := make([]float64, k)
		minus[i] = -1
		directions[i] = plus
		directions[i+k] = minus
	}
	return directions
}

// prunedDirections samples directions uniformly from the L1 ball —
// rejecting cube draws that land outside it, so the surface projection
// is not biased toward the corners — and keeps only those whose
// projected empirical-occupancy score reaches the top decile.
func prunedDirections(m *mdp.Model, vHat *mat.VecDense,
	seed uint64) [][]float64 {
	k := m.NumFeatures()
	rng := rand.New(rand.NewSource(seed))

	sampled := make([][]float64, numSampledDirections)
	scores := make([]float64, numSampledDirections)
	for i := range sampled {
		direction := make([]float64, k)
		norm := 0.0
		for norm == 0 || norm > 1 {
			for j := range direction {
				direction[j] = rng.Float64()*2 - 1
			}
			norm = 0
			for _, v := range direction {
				norm += math.Abs(v)
			}
		}
		for j := range direction {
			direction[j] /= norm
		}
		sampled[i] = direction

		for j := 0; j < k; j++ {
			scores[i] += vHat.AtVec(j) * direction[j]
		}
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(pruneQuantile, stat.Empirical, sorted, nil)

	var kept [][]float64
	for i, direction := range sampled {
		if scores[i] >= threshold {
			kept = append(kept, direction)
		}
	}
	return kept
}
