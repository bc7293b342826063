// Package experiment implements functionality for running an
// experiment that compares imitation methods on one model. Expert
// demonstrations are sampled from the model's optimal policy at a
// range of episode counts, every registered method is run against
// every demonstration set, and the collected returns are normalized
// against the model's worst-case and optimal returns for comparison
// across models.
package experiment

import (
	"fmt"
	"io"

	"sfneuman.com/goril/bc"
	"sfneuman.com/goril/demo"
	"sfneuman.com/goril/gail"
	"sfneuman.com/goril/mdp"
	"sfneuman.com/goril/robust"
	"sfneuman.com/goril/utils/progressbar"
)

// A Method is one imitation algorithm under comparison. Run consumes a
// demonstration set and reports the achieved return and, when the
// method optimizes one, a radius (0 otherwise).
type Method struct {
	Name string
	Run  func(m *mdp.Model, d demo.Set, seed uint64) (ret, radius float64,
		err error)
}

// Syed returns the margin-matching method with the Υ constraint
// enabled.
func Syed() Method {
	return Method{
		Name: "syed",
		Run: func(m *mdp.Model, d demo.Set, _ uint64) (float64, float64,
			error) {
			_, radius, ret, err := robust.Syed(m, d, robust.SyedOptions{
				AddLinearConstraint: true,
			})
			return ret, radius, err
		},
	}
}

// ChebyshevSampled returns the cutting-plane Chebyshev-center method
// over the full signed-unit direction set.
func ChebyshevSampled() Method {
	return Method{
		Name: "chebyshev",
		Run: func(m *mdp.Model, d demo.Set, _ uint64) (float64, float64,
			error) {
			_, _, radius, ret, err := robust.ChebyshevCenterSampled(m, d,
				robust.ChebyshevOptions{
					AddLinearConstraint: true,
					AddLInfConstraint:   true,
				})
			return ret, radius, err
		},
	}
}

// ChebyshevExact returns the exact duality-based Chebyshev-center
// method.
func ChebyshevExact() Method {
	return Method{
		Name: "chebyshev-exact",
		Run: func(m *mdp.Model, d demo.Set, _ uint64) (float64, float64,
			error) {
			_, radius, ret, err := robust.ChebyshevCenter(m, d)
			return ret, radius, err
		},
	}
}

// NaiveBC returns the occupancy-cloning baseline.
func NaiveBC() Method {
	return Method{
		Name: "naive-bc",
		Run: func(m *mdp.Model, d demo.Set, _ uint64) (float64, float64,
			error) {
			_, ret, err := bc.NaiveClone(m, d)
			return ret, 0, err
		},
	}
}

// GAIL returns the adversarial policy-gradient method, sampling
// policy trajectories of the given horizon.
func GAIL(horizon int) Method {
	return Method{
		Name: "gail",
		Run: func(m *mdp.Model, d demo.Set, seed uint64) (float64, float64,
			error) {
			solver := gail.New(m, gail.Config{Horizon: horizon, Seed: seed})
			_, ret, err := solver.Solve(d)
			return ret, 0, err
		},
	}
}

// Config parameterizes a comparison run.
type Config struct {
	// EpisodeCounts are the demonstration-set sizes to sweep.
	EpisodeCounts []int

	// Horizon is the length of each demonstration trajectory.
	Horizon int

	// Runs repeats the whole sweep with reseeded demonstrations.
	Runs int

	// Seed seeds demonstration sampling; run i uses Seed+i.
	Seed uint64
}

// Runner compares a set of methods on one model.
type Runner struct {
	model   *mdp.Model
	methods []Method
	config  Config
}

// NewRunner returns a Runner over the given model and methods.
func NewRunner(m *mdp.Model, methods []Method, c Config) *Runner {
	return &Runner{model: m, methods: methods, config: c}
}

// Run executes the full sweep, drawing a progress bar to out, and
// returns one Result per (run, episode count, method). A method
// failure aborts the sweep.
func (r *Runner) Run(out io.Writer) ([]Result, error) {
	runs := r.config.Runs
	if runs <= 0 {
		runs = 1
	}

	total := runs * len(r.config.EpisodeCounts) * len(r.methods)
	bar := progressbar.New(out, 40, total)
	defer bar.Close()

	expert := r.model.OptimalPolicy()

	var results []Result
	for run := 0; run < runs; run++ {
		seed := r.config.Seed + uint64(run)
		for _, episodes := range r.config.EpisodeCounts {
			d := r.model.SampleTrajectories(expert, episodes,
				r.config.Horizon, seed)

			for _, method := range r.methods {
				ret, radius, err := method.Run(r.model, d, seed)
				if err != nil {
					return nil, fmt.Errorf("experiment: %v with %d episodes: "+
						"%w", method.Name, episodes, err)
				}
				results = append(results, Result{
					Method:   method.Name,
					Episodes: episodes,
					Return:   ret,
					Radius:   radius,
				})
				bar.Increment()
			}
		}
	}
	return results, nil
}
