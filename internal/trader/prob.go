package trader

import "math"

// DefaultSigma is the assumed standard deviation of the forecast error
// in degrees Celsius.
const DefaultSigma = 1.5

// NormalCDF evaluates the standard normal CDF with the Abramowitz-Stegun
// rational approximation. Deterministic, no iteration, absolute error on
// the order of 1e-7.
func NormalCDF(x float64) float64 {
	t := 1 / (1 + 0.2316419*math.Abs(x))
	d := 0.3989423 * math.Exp(-x*x/2)
	p := d * t * (0.3193815 + t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))
	if x > 0 {
		return 1 - p
	}
	return p
}

// ProbTempEquals is the probability that the realized temperature rounds
// to an integer threshold, integrating the forecast-error Gaussian over
// the ±0.5 band around it.
func ProbTempEquals(forecast, threshold, sigma float64) float64 {
	z1 := (threshold - 0.5 - forecast) / sigma
	z2 := (threshold + 0.5 - forecast) / sigma
	return clamp01(NormalCDF(z2) - NormalCDF(z1))
}

// ProbTempInRange is the probability that the realized temperature falls
// inside [low, high].
func ProbTempInRange(forecast, low, high, sigma float64) float64 {
	z1 := (low - forecast) / sigma
	z2 := (high - forecast) / sigma
	return clamp01(NormalCDF(z2) - NormalCDF(z1))
}

// ProbTempInequality is the probability that the realized temperature
// satisfies "threshold or below" (OpLE) or "threshold or above" (OpGE).
func ProbTempInequality(forecast, threshold float64, op string, sigma float64) float64 {
	z := (threshold - forecast) / sigma
	if op == OpLE {
		return clamp01(NormalCDF(z))
	}
	return clamp01(1 - NormalCDF(z))
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
