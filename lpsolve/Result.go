package lpsolve

import "fmt"

// Status reports the outcome of solving a linear program.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Failed
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "failed"
	}
}

// Result holds the primal solution of a successfully solved Problem.
// X contains one value per variable added to the Problem, in the order
// the variables were added. Objective is the value of the objective in
// the orientation it was set: maximized objectives are not negated.
type Result struct {
	Status    Status
	X         []float64
	Objective float64
}

// SolverError is returned whenever a linear program does not solve to
// optimality. Infeasibility and unboundedness both signal a logic or
// data error in the formulation, so neither is retried.
type SolverError struct {
	Op     string
	Status Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: no optimal solution (%v): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%v: no optimal solution (%v)", e.Op, e.Status)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
