// Package matutils implements utility functions for working with
// mat.Matrix structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// MaxVec finds and returns the index of the maximum value in a vector.
// If multiple equal max values exist, only the first one is returned.
func MaxVec(values mat.Vector) int {
	max, idx := values.AtVec(0), 0
	length, _ := values.Dims()

	for i := 0; i < length; i++ {
		if values.AtVec(i) > max {
			max = values.AtVec(i)
			idx = i
		}
	}
	return idx
}

// VecOnes returns a vector of 1.0's
func VecOnes(length int) *mat.VecDense {
	oneSlice := make([]float64, length)
	for i := 0; i < length; i++ {
		oneSlice[i] = 1.0
	}
	return mat.NewVecDense(length, oneSlice)
}

// ClampNonNegative sets every negative entry of x to 0.0 in place and
// returns x. Linear-programming solvers routinely report tiny negative
// values for variables that are exactly 0 in the true solution, so
// negativity here is floating-point slack rather than an error.
func ClampNonNegative(x []float64) []float64 {
	for i, v := range x {
		if v < 0 {
			x[i] = 0.0
		}
	}
	return x
}

// RowSums returns the sum of each row of a matrix.
func RowSums(matrix *mat.Dense) []float64 {
	r, c := matrix.Dims()
	sums := make([]float64, r)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sums[i] += matrix.At(i, j)
		}
	}
	return sums
}
