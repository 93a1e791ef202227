package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"climatrend/domain/climate"
	"climatrend/internal/errors"
)

// Polyfit computes an ordinary least-squares polynomial fit, returning
// coefficients in ascending power order. Inputs must be equal length and
// free of missing values; a degree-d fit needs at least d+1 points, below
// that it fails with an insufficient-data error.
func Polyfit(xs, ys []float64, degree int) ([]float64, error) {
	if degree < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("polynomial degree must be >= 1, got %d", degree))
	}
	if len(xs) != len(ys) {
		return nil, errors.InvalidInput(fmt.Sprintf("mismatched series lengths %d and %d", len(xs), len(ys)))
	}
	if len(xs) < degree+1 {
		return nil, errors.InsufficientData(fmt.Sprintf(
			"degree-%d fit needs at least %d valid points, have %d", degree, degree+1, len(xs)))
	}

	// Vandermonde design matrix: row i is [1, x_i, x_i^2, ...]
	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	b := mat.NewVecDense(len(ys), ys)

	var qr mat.QR
	qr.Factorize(a)

	coeffs := mat.NewVecDense(degree+1, nil)
	if err := qr.SolveVecTo(coeffs, false, b); err != nil {
		return nil, errors.InsufficientData(fmt.Sprintf("degree-%d fit is rank deficient: %v", degree, err))
	}

	out := make([]float64, degree+1)
	for i := range out {
		out[i] = coeffs.AtVec(i)
	}
	return out, nil
}

// FitSeries fits a value series against its years, ignoring pairs whose
// value is missing
func FitSeries(s climate.Series, degree int) (*climate.Trend, error) {
	xs, ys := s.ValidPairs()
	coeffs, err := Polyfit(xs, ys, degree)
	if err != nil {
		return nil, err
	}
	return &climate.Trend{
		Degree: degree,
		Coeffs: coeffs,
		Points: len(xs),
	}, nil
}
