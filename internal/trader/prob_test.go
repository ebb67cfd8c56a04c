package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "zero", x: 0, want: 0.5},
		{name: "one sigma", x: 1, want: 0.841345},
		{name: "minus one sigma", x: -1, want: 0.158655},
		{name: "two sigma", x: 2, want: 0.977250},
		{name: "deep left tail", x: -4, want: 0.0000317},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalCDF(tt.x), 1e-5)
		})
	}
}

func TestNormalCDFSymmetry(t *testing.T) {
	for _, x := range []float64{0.3, 1.1, 2.7, 4.2} {
		assert.InDelta(t, 1.0, NormalCDF(x)+NormalCDF(-x), 1e-6)
	}
}

func TestProbTempEquals(t *testing.T) {
	// Probability mass of a ±0.5 band around the threshold.
	peak := ProbTempEquals(20, 20, DefaultSigma)
	assert.Greater(t, peak, 0.2)
	assert.Less(t, peak, 0.3)

	// The band probability is maximized when forecast equals threshold.
	for _, offset := range []float64{0.5, 1, 2, 5} {
		assert.Less(t, ProbTempEquals(20+offset, 20, DefaultSigma), peak)
		assert.Less(t, ProbTempEquals(20-offset, 20, DefaultSigma), peak)
	}

	// Far-away thresholds carry essentially no mass.
	assert.InDelta(t, 0, ProbTempEquals(20, 35, DefaultSigma), 1e-6)

	for _, f := range []float64{-10, 0, 19.5, 20, 25, 40} {
		p := ProbTempEquals(f, 20, DefaultSigma)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestProbTempInRange(t *testing.T) {
	// Forecast dead-center in a wide range: near certainty.
	assert.Greater(t, ProbTempInRange(20, 10, 30, DefaultSigma), 0.999)

	// Forecast at the lower bound: about half the mass inside.
	assert.InDelta(t, 0.5, ProbTempInRange(10, 10, 30, DefaultSigma), 1e-3)

	// Forecast far outside the range.
	assert.Less(t, ProbTempInRange(0, 10, 30, DefaultSigma), 1e-6)
}

func TestProbTempInequality(t *testing.T) {
	// Forecast exactly at the threshold splits the mass evenly.
	assert.InDelta(t, 0.5, ProbTempInequality(10, 10, OpLE, DefaultSigma), 1e-6)
	assert.InDelta(t, 0.5, ProbTempInequality(10, 10, OpGE, DefaultSigma), 1e-6)

	// The two directions are complements.
	le := ProbTempInequality(12, 10, OpLE, DefaultSigma)
	ge := ProbTempInequality(12, 10, OpGE, DefaultSigma)
	assert.InDelta(t, 1.0, le+ge, 1e-6)

	// Forecast well below "10 or below" is near-certain.
	assert.Greater(t, ProbTempInequality(4, 10, OpLE, DefaultSigma), 0.999)
	assert.Less(t, ProbTempInequality(4, 10, OpGE, DefaultSigma), 1e-3)
}
