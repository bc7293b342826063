// Package lpsolve wraps a dense linear-programming solver behind a
// declarative problem builder. Callers add variables and constraints,
// set an objective, and perform a single Solve call that returns a
// typed result. Problems are single-shot: every sub-problem of a larger
// computation builds a fresh Problem, and a Problem must not be shared
// between goroutines.
package lpsolve

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// VarBlock identifies a contiguous block of variables in a Problem.
type VarBlock struct {
	Off int
	Len int
}

// At returns the column index of the i'th variable in the block.
func (v VarBlock) At(i int) int {
	if i < 0 || i >= v.Len {
		panic(fmt.Sprintf("at: index %d out of range for block of %d variables",
			i, v.Len))
	}
	return v.Off + i
}

// Problem accumulates variables, linear constraints, and a linear
// objective for one dense linear program. All variables should be added
// before any constraint rows are built with Row.
type Problem struct {
	op       string
	numVars  int
	nonNeg   []bool
	eqRows   [][]float64
	eqRHS    []float64
	leRows   [][]float64
	leRHS    []float64
	obj      []float64
	maximize bool
}

// NewProblem returns an empty Problem. The op string names the
// computation for error reporting.
func NewProblem(op string) *Problem {
	return &Problem{op: op}
}

// AddVars adds n free (unbounded) continuous variables and returns the
// block identifying them.
func (p *Problem) AddVars(n int) VarBlock {
	return p.addVars(n, false)
}

// AddNonNegVars adds n continuous variables constrained to be
// non-negative and returns the block identifying them.
func (p *Problem) AddNonNegVars(n int) VarBlock {
	return p.addVars(n, true)
}

func (p *Problem) addVars(n int, nonNeg bool) VarBlock {
	block := VarBlock{Off: p.numVars, Len: n}
	p.numVars += n
	for i := 0; i < n; i++ {
		p.nonNeg = append(p.nonNeg, nonNeg)
	}
	return block
}

// Row returns a zeroed coefficient row spanning all variables added so
// far.
func (p *Problem) Row() []float64 {
	return make([]float64, p.numVars)
}

// AddEq adds the equality constraint row · x = rhs.
func (p *Problem) AddEq(row []float64, rhs float64) {
	p.eqRows = append(p.eqRows, p.pad(row))
	p.eqRHS = append(p.eqRHS, rhs)
}

// AddLe adds the inequality constraint row · x ≤ rhs.
func (p *Problem) AddLe(row []float64, rhs float64) {
	p.leRows = append(p.leRows, p.pad(row))
	p.leRHS = append(p.leRHS, rhs)
}

// AddEqMat adds the matrix equality constraint A · x_block = rhs, where
// A has one column per variable in the block.
func (p *Problem) AddEqMat(a mat.Matrix, block VarBlock, rhs []float64) {
	r, c := a.Dims()
	if c != block.Len {
		panic(fmt.Sprintf("addeqmat: matrix has %d columns but block has %d "+
			"variables", c, block.Len))
	}
	if r != len(rhs) {
		panic(fmt.Sprintf("addeqmat: matrix has %d rows but rhs has %d entries",
			r, len(rhs)))
	}

	for i := 0; i < r; i++ {
		row := p.Row()
		for j := 0; j < c; j++ {
			row[block.At(j)] = a.At(i, j)
		}
		p.AddEq(row, rhs[i])
	}
}

// Minimize sets the objective to minimize row · x.
func (p *Problem) Minimize(row []float64) {
	p.obj = p.pad(row)
	p.maximize = false
}

// Maximize sets the objective to maximize row · x.
func (p *Problem) Maximize(row []float64) {
	p.obj = p.pad(row)
	p.maximize = true
}

// pad copies row, extending it with zeros to span all variables. Rows
// built before later AddVars calls stay valid this way.
func (p *Problem) pad(row []float64) []float64 {
	if len(row) > p.numVars {
		panic(fmt.Sprintf("pad: row has %d coefficients but problem has %d "+
			"variables", len(row), p.numVars))
	}
	padded := make([]float64, p.numVars)
	copy(padded, row)
	return padded
}

// column maps one Problem variable to its standard-form column(s). A
// non-negative variable occupies the single column pos; a free variable
// is split into a positive part at pos and a negative part at neg, with
// neg < 0 marking an unsplit variable.
type column struct {
	pos int
	neg int
}

// Solve assembles and solves the accumulated linear program. A nil
// error implies Result.Status == Optimal; any other solver outcome is
// reported as a *SolverError and the Result is zero.
//
// The standard form Ax = b, x ≥ 0 is built directly: non-negative
// variables map to single standard-form columns, only free variables
// are split into positive and negative parts, and each inequality row
// gains one slack column. Splitting every variable and re-imposing
// non-negativity through extra inequality rows makes the simplex
// iterate over a doubled, degenerate basis on which it misreports
// bounded flow programs as unbounded.
func (p *Problem) Solve() (Result, error) {
	if p.numVars == 0 {
		return Result{}, fmt.Errorf("solve: %v: problem has no variables", p.op)
	}
	if p.obj == nil {
		return Result{}, fmt.Errorf("solve: %v: problem has no objective", p.op)
	}
	if len(p.eqRows) == 0 && len(p.leRows) == 0 {
		return Result{}, fmt.Errorf("solve: %v: problem has no constraints", p.op)
	}

	cols := 0
	columns := make([]column, p.numVars)
	for i, nonNeg := range p.nonNeg {
		if nonNeg {
			columns[i] = column{pos: cols, neg: -1}
			cols++
		} else {
			columns[i] = column{pos: cols, neg: cols + 1}
			cols += 2
		}
	}
	slackOff := cols
	cols += len(p.leRows)

	rows := len(p.eqRows) + len(p.leRows)
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	for r, row := range p.eqRows {
		expandRow(a, r, row, columns)
		b[r] = p.eqRHS[r]
	}
	for r, row := range p.leRows {
		i := len(p.eqRows) + r
		expandRow(a, i, row, columns)
		a.Set(i, slackOff+r, 1)
		b[i] = p.leRHS[r]
	}

	c := make([]float64, cols)
	for i, v := range p.obj {
		if p.maximize {
			v = -v
		}
		c[columns[i].pos] = v
		if columns[i].neg >= 0 {
			c[columns[i].neg] = -v
		}
	}

	objective, xStd, err := lp.Simplex(c, a, b, 1e-9, nil)
	if err != nil {
		status := Failed
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			status = Infeasible
		case errors.Is(err, lp.ErrUnbounded):
			status = Unbounded
		}
		return Result{}, &SolverError{Op: p.op, Status: status, Err: err}
	}

	x := make([]float64, p.numVars)
	for i, col := range columns {
		x[i] = xStd[col.pos]
		if col.neg >= 0 {
			x[i] -= xStd[col.neg]
		}
	}
	if p.maximize {
		objective = -objective
	}

	return Result{Status: Optimal, X: x, Objective: objective}, nil
}

// expandRow writes a general-form coefficient row into the
// standard-form columns of one constraint row.
func expandRow(a *mat.Dense, r int, row []float64, columns []column) {
	for i, v := range row {
		if v == 0 {
			continue
		}
		a.Set(r, columns[i].pos, v)
		if columns[i].neg >= 0 {
			a.Set(r, columns[i].neg, -v)
		}
	}
}
