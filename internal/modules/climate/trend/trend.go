// Package trend fits a least-squares line of temperature against sample index.
package trend

import "climate-tracker/internal/modules/climate/types"

// FitIndex computes the OLS fit of ys against x = 0..n-1.
// With no points it returns the zero Fit; with one point the line is flat at that point.
func FitIndex(ys []float64) types.Fit {
	n := len(ys)
	switch n {
	case 0:
		return types.Fit{}
	case 1:
		return types.Fit{Slope: 0, Intercept: ys[0]}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	// x is 0..n-1 so the denominator is n²(n²-1)/12, nonzero for n >= 2.
	denom := fn*sumXX - sumX*sumX
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	return types.Fit{Slope: slope, Intercept: intercept}
}

// Line evaluates fit at every index 0..n-1.
func Line(fit types.Fit, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = fit.At(i)
	}
	return out
}

// Table projects readings into rows carrying the fitted regression value.
func Table(readings []types.Reading) ([]types.Row, types.Fit) {
	ys := make([]float64, len(readings))
	for i, r := range readings {
		ys[i] = r.TemperatureC
	}
	fit := FitIndex(ys)
	line := Line(fit, len(readings))
	rows := make([]types.Row, len(readings))
	for i, r := range readings {
		rows[i] = types.Row{
			TemperatureC: r.TemperatureC,
			Timestamp:    r.Timestamp,
			Regression:   line[i],
		}
	}
	return rows, fit
}
