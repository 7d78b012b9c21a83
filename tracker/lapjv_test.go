package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func dense(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func TestLapjv(t *testing.T) {

	tests := []struct {
		name      string
		cost      [][]float64
		expectedX []int
		expectedY []int
	}{
		{
			name: "diagonal heavy",
			cost: [][]float64{
				{4, 1, 3, 2},
				{2, 0, 5, 3},
				{3, 2, 2, 3},
				{2, 3, 3, 2},
			},
			expectedX: []int{3, 1, 2, 0},
			expectedY: []int{3, 1, 2, 0},
		},
		{
			name: "shared minimum column",
			cost: [][]float64{
				{10, 19, 8, 15},
				{10, 18, 7, 17},
				{13, 16, 9, 14},
				{12, 19, 8, 18},
			},
			expectedX: []int{3, 0, 1, 2},
			expectedY: []int{1, 2, 3, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.cost)
			x := make([]int, n)
			y := make([]int, n)

			require.NoError(t, lapjv(n, dense(tc.cost), x, y))
			assert.Equal(t, tc.expectedX, x)
			assert.Equal(t, tc.expectedY, y)
		})
	}
}

func TestSolveGated(t *testing.T) {

	tests := []struct {
		name   string
		cost   [][]float64
		limit  float64
		rowsol []int
		colsol []int
	}{
		{
			name:   "cheaper row wins the only column",
			cost:   [][]float64{{0.5}, {0.1}},
			limit:  2,
			rowsol: []int{-1, 0},
			colsol: []int{1},
		},
		{
			name:   "cost over limit is never assigned",
			cost:   [][]float64{{4, 4}, {4, 0.2}},
			limit:  2,
			rowsol: []int{-1, 1},
			colsol: []int{-1, 1},
		},
		{
			name:   "one to one swap beats greedy",
			cost:   [][]float64{{0.1, 0.2}, {0.3, 1.5}},
			limit:  2,
			rowsol: []int{1, 0},
			colsol: []int{1, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rowsol, colsol, err := solveGated(dense(tc.cost), tc.limit)

			require.NoError(t, err)
			assert.Equal(t, tc.rowsol, rowsol)
			assert.Equal(t, tc.colsol, colsol)
		})
	}
}
