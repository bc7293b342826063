package robust

import (
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/mdp"
)

// WorstCaseRegret computes the worst-case return gap between any
// occupancy frequency consistent with the demonstrations and the
// supplied u, over the worst reward in the L1 feature-weight ball:
//
//	max_w max_{v ∈ Υ} wᵀφᵀv - wᵀφᵀu
//
// The outer maximum runs over the 2K signed unit directions, which are
// the extreme points of the L1 ball; each direction's inner maximum is
// one linear program over the Bellman-flow polytope restricted to Υ.
func WorstCaseRegret(m *mdp.Model, d demo.Set, u *mat.Dense) (float64, error) {
	c := m.ConstraintVector(d)
	uFlat := m.Flatten(u)

	regret := 0.0
	for i, direction := range signedUnitDirections(m.NumFeatures()) {
		best, err := innerMaximize(m, direction, innerConstraints{
			constraint: c,
			restrict:   true,
		})
		if err != nil {
			return 0, err
		}

		achieved := 0.0
		for l, p := range projectFeatures(m, direction) {
			achieved += p * uFlat[l]
		}
		if gap := best - achieved; i == 0 || gap > regret {
			regret = gap
		}
	}
	return regret, nil
}
