package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// LARGE bounds every cost the solver is given
	LARGE = 1000000.0
)

var errLapjv = errors.New("lapjv: no augmenting path")

// solveGated performs a rectangular linear assignment on cost, where rows and
// columns may be left unassigned.  Any pairing whose cost is not below limit
// is never chosen.  rowsol[i] is the column assigned to row i and colsol[j]
// the row assigned to column j, or -1 when unassigned.
func solveGated(cost *mat.Dense, limit float64) (rowsol, colsol []int, err error) {

	nRows, nCols := cost.Dims()
	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	// extend the cost matrix to a square matrix of size rows+cols.  the top
	// right and bottom left blocks hold limit/2 so pairing a real row with a
	// dummy column and a dummy row with a real column costs exactly limit
	n := nRows + nCols
	ext := mat.NewDense(n, n, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i < nRows && j < nCols:
				ext.Set(i, j, cost.At(i, j))
			case i >= nRows && j >= nCols:
				ext.Set(i, j, 0)
			default:
				ext.Set(i, j, limit/2.0)
			}
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	if err := lapjv(n, ext, x, y); err != nil {
		return nil, nil, fmt.Errorf("assignment failed: %w", err)
	}

	for i := 0; i < nRows; i++ {
		rowsol[i] = x[i]
		if x[i] >= nCols {
			rowsol[i] = -1
		}
	}

	for j := 0; j < nCols; j++ {
		colsol[j] = y[j]
		if y[j] >= nRows {
			colsol[j] = -1
		}
	}

	return rowsol, colsol, nil
}

// lapjv solves the dense square linear assignment problem with the
// Jonker-Volgenant algorithm.  On return x[i] is the column assigned to row i
// and y[j] the row assigned to column j.
func lapjv(n int, cost mat.Matrix, x, y []int) error {

	freeRows := make([]int, n)
	v := make([]float64, n)

	ret := ccrrt(n, cost, freeRows, x, y, v)

	for i := 0; ret > 0 && i < 2; i++ {
		ret = carr(n, cost, ret, freeRows, x, y, v)
	}

	if ret > 0 {
		return ca(n, cost, ret, freeRows, x, y, v)
	}

	return nil
}

// ccrrt performs column-reduction and reduction transfer
func ccrrt(n int, cost mat.Matrix, freeRows, x, y []int, v []float64) int {

	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		x[i] = -1
		v[i] = LARGE
		y[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost.At(i, j); c < v[j] {
				v[j] = c
				y[j] = i
			}
		}
	}

	for i := 0; i < n; i++ {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := y[j]
		if x[i] < 0 {
			x[i] = j
		} else {
			unique[i] = false
			y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if x[i] < 0 {
			freeRows[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := x[i]
		minVal := LARGE

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}
			if c := cost.At(i, j2) - v[j2]; c < minVal {
				minVal = c
			}
		}

		v[j] -= minVal
	}

	return nFree
}

// carr performs augmenting row reduction
func carr(n int, cost mat.Matrix, nFree int, freeRows, x, y []int,
	v []float64) int {

	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := freeRows[current]
		current++

		j1 := 0
		v1 := cost.At(freeI, 0) - v[0]
		j2 := -1
		v2 := LARGE

		for j := 1; j < n; j++ {
			c := cost.At(freeI, j) - v[j]
			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := y[j1]
		v1New := v[j1] - (v2 - v1)
		v1Lowers := v1New < v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					freeRows[current] = i0
				} else {
					freeRows[newFree] = i0
					newFree++
				}
			}

		} else if i0 >= 0 {
			freeRows[newFree] = i0
			newFree++
		}

		x[freeI] = j1
		y[j1] = freeI
	}

	return newFree
}

// find moves the columns with minimum d[j] onto the SCAN list
func find(n, lo int, d []float64, cols, y []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < n; k++ {
		j := cols[k]

		if d[j] <= mind {
			if d[j] < mind {
				hi = lo
				mind = d[j]
			}

			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}

	return hi
}

// scan tries to decrease d of the TODO columns using the SCAN columns
func scan(n int, cost mat.Matrix, lo, hi *int, d []float64, cols, pred,
	y []int, v []float64) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := y[j]
		mind := d[j]
		h := cost.At(i, j) - v[j] - mind

		for k := *hi; k < n; k++ {
			j = cols[k]
			cred := cost.At(i, j) - v[j] - h

			if cred < d[j] {
				d[j] = cred
				pred[j] = i

				if cred == mind {
					if y[j] < 0 {
						return j
					}

					cols[k] = cols[*hi]
					cols[*hi] = j
					*hi++
				}
			}
		}
	}

	return -1
}

// findPath runs a single iteration of the modified Dijkstra shortest path
// search from the JV paper
func findPath(n int, cost mat.Matrix, startI int, y []int, v []float64,
	pred []int) int {

	lo, hi := 0, 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = startI
		d[i] = cost.At(startI, i) - v[i]
	}

	for finalJ == -1 {
		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = find(n, lo, d, cols, y)

			for k := lo; k < hi; k++ {
				if j := cols[k]; y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = scan(n, cost, &lo, &hi, d, cols, pred, y, v)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		v[j] += d[j] - mind
	}

	return finalJ
}

// ca performs the final augmentation of the remaining free rows
func ca(n int, cost mat.Matrix, nFree int, freeRows, x, y []int,
	v []float64) error {

	pred := make([]int, n)

	for _, freeI := range freeRows[:nFree] {

		i := -1
		k := 0

		j := findPath(n, cost, freeI, y, v, pred)

		if j < 0 || j >= n {
			return errLapjv
		}

		for i != freeI {
			i = pred[j]
			y[j] = i
			j, x[i] = x[i], j
			k++

			if k > n {
				return errLapjv
			}
		}
	}

	return nil
}
