package mdp

import "fmt"

// ConstructionError reports malformed MDP parameters or a failure to
// compute one of the cached solutions during model construction.
type ConstructionError struct {
	Reason string
	Err    error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mdp: %v: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("mdp: %v", e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// ToleranceError reports an occupancy frequency whose total mass
// deviates from 1/(1-γ) beyond tolerance after a solve that was
// expected to be feasible. The check is two-sided.
type ToleranceError struct {
	Quantity string
	Got      float64
	Want     float64
	Tol      float64
}

func (e *ToleranceError) Error() string {
	return fmt.Sprintf("mdp: %v = %v, want %v within %v", e.Quantity, e.Got,
		e.Want, e.Tol)
}
