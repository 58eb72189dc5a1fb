package param

import (
	stdmath "math"

	"github.com/pkg/errors"
)

// errNotConverged is returned when conjugate gradients runs out of iterations.
var errNotConverged = errors.New("conjugate gradients did not converge")

// sparseMatrix is a row-major compressed sparse matrix built one row at a time.
type sparseMatrix struct {
	cols   int
	rowPtr []int
	colIdx []int
	values []float64
}

func newSparseMatrix(cols, rowHint, nnzHint int) *sparseMatrix {
	m := &sparseMatrix{
		cols:   cols,
		rowPtr: make([]int, 1, rowHint+1),
		colIdx: make([]int, 0, nnzHint),
		values: make([]float64, 0, nnzHint),
	}
	return m
}

// rows returns the number of completed rows.
func (m *sparseMatrix) rows() int { return len(m.rowPtr) - 1 }

// set appends an entry to the row under construction. Zero values are dropped.
func (m *sparseMatrix) set(col int, v float64) {
	if v == 0 {
		return
	}
	m.colIdx = append(m.colIdx, col)
	m.values = append(m.values, v)
}

// endRow closes the row under construction.
func (m *sparseMatrix) endRow() {
	m.rowPtr = append(m.rowPtr, len(m.colIdx))
}

// mulVec computes out = A x.
func (m *sparseMatrix) mulVec(x, out []float64) {
	for r := 0; r < m.rows(); r++ {
		sum := 0.0
		for k := m.rowPtr[r]; k < m.rowPtr[r+1]; k++ {
			sum += m.values[k] * x[m.colIdx[k]]
		}
		out[r] = sum
	}
}

// mulTransVec computes out = Aᵀ y.
func (m *sparseMatrix) mulTransVec(y, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for r := 0; r < m.rows(); r++ {
		yr := y[r]
		if yr == 0 {
			continue
		}
		for k := m.rowPtr[r]; k < m.rowPtr[r+1]; k++ {
			out[m.colIdx[k]] += m.values[k] * yr
		}
	}
}

// columnNormsSq returns the diagonal of AᵀA.
func (m *sparseMatrix) columnNormsSq() []float64 {
	d := make([]float64, m.cols)
	for k, c := range m.colIdx {
		d[c] += m.values[k] * m.values[k]
	}
	return d
}

// solveLeastSquares minimises |Ax - b| through the normal equations AᵀA x = Aᵀb using
// Jacobi preconditioned conjugate gradients. x holds the starting guess and the result.
func solveLeastSquares(a *sparseMatrix, b, x []float64, maxIter int, tol float64) (int, error) {
	n := a.cols
	if len(x) != n || len(b) != a.rows() {
		return 0, errors.Errorf("system size mismatch: %d unknowns, %d rows, x %d, b %d",
			n, a.rows(), len(x), len(b))
	}
	if n == 0 {
		return 0, nil
	}

	tmp := make([]float64, a.rows())
	normal := func(v, out []float64) {
		a.mulVec(v, tmp)
		a.mulTransVec(tmp, out)
	}

	inv := a.columnNormsSq()
	for i, d := range inv {
		if d > 0 {
			inv[i] = 1 / d
		}
	}

	rhs := make([]float64, n)
	a.mulTransVec(b, rhs)
	rhsNorm := norm(rhs)
	if rhsNorm == 0 {
		rhsNorm = 1
	}

	r := make([]float64, n)
	normal(x, r)
	for i := range r {
		r[i] = rhs[i] - r[i]
	}
	if norm(r) <= tol*rhsNorm {
		return 0, nil
	}

	z := make([]float64, n)
	for i := range z {
		z[i] = inv[i] * r[i]
	}
	p := append([]float64(nil), z...)
	ap := make([]float64, n)
	rz := dot(r, z)

	for it := 1; it <= maxIter; it++ {
		normal(p, ap)
		pap := dot(p, ap)
		if pap <= 0 || stdmath.IsNaN(pap) {
			if norm(r) <= tol*rhsNorm {
				return it, nil
			}
			return it, errors.Errorf("search direction lost curvature at iteration %d", it)
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		res := norm(r)
		if res <= tol*rhsNorm {
			return it, nil
		}
		for i := range z {
			z[i] = inv[i] * r[i]
		}
		rzNext := dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}

	res := norm(r) / rhsNorm
	if res <= stdmath.Sqrt(tol) {
		return maxIter, nil
	}
	return maxIter, errors.Wrapf(errNotConverged, "relative residual %g after %d iterations", res, maxIter)
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return stdmath.Sqrt(dot(a, a))
}
