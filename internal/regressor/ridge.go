package regressor

import (
	"fmt"
	"math"
)

// Ridge is L2-regularized linear regression on standardized features.
// The intercept is not penalized.
type Ridge struct {
	alpha float64
}

// NewRidge creates a ridge regressor
func NewRidge(alpha float64) *Ridge {
	if alpha < 0 {
		alpha = 0
	}
	return &Ridge{alpha: alpha}
}

// Name returns the regressor kind
func (r *Ridge) Name() string {
	return KindRidge
}

// Fit solves (ZᵀZ + αI)β = Zᵀ(y - ȳ) on the standardized design Z
func (r *Ridge) Fit(X [][]float64, y []float64) (Model, error) {
	width, err := validateXY(X, y)
	if err != nil {
		return nil, fmt.Errorf("fit ridge: %w", err)
	}
	n := float64(len(X))

	means := make([]float64, width)
	scales := make([]float64, width)
	for j := 0; j < width; j++ {
		for _, row := range X {
			means[j] += row[j]
		}
		means[j] /= n
		var ss float64
		for _, row := range X {
			d := row[j] - means[j]
			ss += d * d
		}
		scales[j] = math.Sqrt(ss / n)
		if scales[j] == 0 {
			scales[j] = 1 // constant column contributes nothing after centering
		}
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= n

	// normal equations
	a := make([][]float64, width)
	b := make([]float64, width)
	for j := range a {
		a[j] = make([]float64, width)
	}
	z := make([]float64, width)
	for i, row := range X {
		for j := 0; j < width; j++ {
			z[j] = (row[j] - means[j]) / scales[j]
		}
		for j := 0; j < width; j++ {
			b[j] += z[j] * (y[i] - yMean)
			for k := 0; k < width; k++ {
				a[j][k] += z[j] * z[k]
			}
		}
	}
	for j := 0; j < width; j++ {
		a[j][j] += r.alpha
	}

	coef, err := solve(a, b)
	if err != nil {
		return nil, fmt.Errorf("fit ridge: %w", err)
	}

	return &linearModel{
		means:     means,
		scales:    scales,
		coef:      coef,
		intercept: yMean,
	}, nil
}

type linearModel struct {
	means     []float64
	scales    []float64
	coef      []float64
	intercept float64
}

// Predict evaluates the linear model
func (m *linearModel) Predict(X [][]float64) ([]float64, error) {
	if err := checkWidth(X, len(m.coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := m.intercept
		for j, x := range row {
			v += m.coef[j] * (x - m.means[j]) / m.scales[j]
		}
		out[i] = v
	}
	return out, nil
}

// solve runs Gaussian elimination with partial pivoting on copies of a and b.
// A singular system leaves the free coefficients at 0.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append(append([]float64{}, a[i]...), b[i])
	}

	const eps = 1e-12
	pivots := make([]int, n)
	for i := range pivots {
		pivots[i] = -1
	}

	row := 0
	for col := 0; col < n && row < n; col++ {
		best := row
		for r := row + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[best][col]) {
				best = r
			}
		}
		if math.Abs(m[best][col]) < eps {
			continue
		}
		m[row], m[best] = m[best], m[row]
		for r := 0; r < n; r++ {
			if r == row {
				continue
			}
			factor := m[r][col] / m[row][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[row][c]
			}
		}
		pivots[col] = row
		row++
	}

	x := make([]float64, n)
	for col, r := range pivots {
		if r < 0 {
			continue
		}
		x[col] = m[r][n] / m[r][col]
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("ill-conditioned system: %w", ErrBadInput)
		}
	}
	return x, nil
}
