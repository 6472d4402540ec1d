package anomaly

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
)

func series(pairs ...any) []core.SalesObservation {
	out := make([]core.SalesObservation, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, core.SalesObservation{Period: pairs[i].(string), Amount: toFloat(pairs[i+1])})
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	panic("unsupported amount type")
}

func TestDetect_ScenarioA_LargeValueDoesNotCrossThreshold(t *testing.T) {
	in := series("Jan", 100, "Feb", 102, "Mar", 98, "Apr", 500)

	out, err := Detect(in, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, out.Points, 4)

	assert.Equal(t, 200.0, out.MeanAmount())
	assert.Equal(t, 1.73, out.Points[3].ZScore)
	assert.Equal(t, -0.58, out.Points[0].ZScore)
	for _, p := range out.Points {
		assert.False(t, p.IsAnomaly, "period %s should not be flagged", p.Period)
	}
	assert.Equal(t, 0, out.AnomalyCount())
}

func TestDetect_ScenarioB_OutlierFlagged(t *testing.T) {
	in := series("Jan", 100, "Feb", 105, "Mar", 98, "Apr", 102, "May", 400)

	out, err := Detect(in, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, out.Points, 5)

	may := out.Points[4]
	assert.Equal(t, "May", may.Period)
	assert.Equal(t, 2.0, may.ZScore)
	assert.True(t, may.IsAnomaly)
	assert.Equal(t, 1, out.AnomalyCount())
}

func TestDetect_UnroundedScoresClassifyOnRawValue(t *testing.T) {
	in := series("Jan", 100, "Feb", 105, "Mar", 98, "Apr", 102, "May", 400)

	out, err := NewDetector(DefaultThreshold, NoRounding).Detect(in)
	require.NoError(t, err)

	may := out.Points[4]
	assert.InDelta(t, 1.99962, may.ZScore, 1e-4)
	assert.False(t, may.IsAnomaly)
}

func TestDetect_ThresholdIsInclusive(t *testing.T) {
	// mean 1, population sigma exactly 2, last z exactly 2.0
	in := series("d1", 0, "d2", 0, "d3", 0, "d4", 0, "d5", 5)

	for _, precision := range []int{NoRounding, DefaultPrecision} {
		out, err := NewDetector(2.0, precision).Detect(in)
		require.NoError(t, err)
		assert.Equal(t, 2.0, out.Points[4].ZScore)
		assert.True(t, out.Points[4].IsAnomaly, "precision %d", precision)
		assert.Equal(t, -0.5, out.Points[0].ZScore)
		assert.False(t, out.Points[0].IsAnomaly)
	}
}

func TestDetect_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		in   []core.SalesObservation
	}{
		{"empty", nil},
		{"single point", series("Jan", 1000)},
		{"zero variance", series("Jan", 50, "Feb", 50, "Mar", 50)},
		{"zero variance with inexact mean", series("Jan", 0.1, "Feb", 0.1, "Mar", 0.1)},
		{"all zero", series("Jan", 0, "Feb", 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Detect(tt.in, DefaultThreshold)
			require.NoError(t, err)
			require.Len(t, out.Points, len(tt.in))
			for i, p := range out.Points {
				assert.Equal(t, tt.in[i], p.SalesObservation)
				assert.Zero(t, p.ZScore)
				assert.False(t, p.IsAnomaly)
			}
		})
	}
}

func TestDetect_PreservesOrderAndLength(t *testing.T) {
	in := series("Mar", 10, "Jan", 300, "Dec", 20, "Feb", 15, "Jan-2", 12, "Oct", 18)

	out, err := Detect(in, 1.5)
	require.NoError(t, err)
	require.Len(t, out.Points, len(in))
	for i := range in {
		assert.Equal(t, in[i].Period, out.Points[i].Period)
		assert.Equal(t, in[i].Amount, out.Points[i].Amount)
	}
	assert.Equal(t, 1.5, out.Threshold)
	assert.True(t, out.Points[1].IsAnomaly)
}

func TestDetect_Deterministic(t *testing.T) {
	in := series("Jan", 12.5, "Feb", 13.75, "Mar", 99.1, "Apr", 11.0, "May", 12.0, "Jun", 0.3)
	d := NewDetector(1.2, NoRounding)

	first, err := d.Detect(in)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := d.Detect(in)
			assert.NoError(t, err)
			for j := range first.Points {
				assert.Equal(t, math.Float64bits(first.Points[j].ZScore), math.Float64bits(again.Points[j].ZScore))
				assert.Equal(t, first.Points[j].IsAnomaly, again.Points[j].IsAnomaly)
			}
		}()
	}
	wg.Wait()
}

func TestDetect_RejectsNonFiniteAmounts(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		in := series("Jan", 100, "Feb", bad, "Mar", 98)

		out, err := Detect(in, DefaultThreshold)
		require.Error(t, err)
		assert.Empty(t, out.Points)
		assert.True(t, errors.Is(err, core.ErrInvalidInput))

		var invalid *core.InvalidInputError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, 1, invalid.Index)
		assert.Equal(t, "Feb", invalid.Period)
	}
}

func TestDetect_HugeAmountsAreScored(t *testing.T) {
	tests := []struct {
		name string
		in   []core.SalesObservation
		want []float64
	}{
		{"two points", series("Jan", 1e200, "Feb", 0), []float64{1, -1}},
		{"max float", series("Jan", math.MaxFloat64, "Feb", math.MaxFloat64/2, "Mar", 0), []float64{1.22, 0, -1.22}},
		{"tiny amounts", series("Jan", 1e-200, "Feb", 0), []float64{1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Detect(tt.in, DefaultThreshold)
			require.NoError(t, err)
			require.Equal(t, len(tt.want), out.Len())
			for i, z := range tt.want {
				assert.Equal(t, z, out.Points[i].ZScore, "point %d", i)
				assert.False(t, out.Points[i].IsAnomaly)
				assert.Equal(t, tt.in[i].Amount, out.Points[i].Amount, "amount copied unchanged")
			}
		})
	}
}

func TestThresholdFallback(t *testing.T) {
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Equal(t, DefaultThreshold, NewDetector(bad, DefaultPrecision).Threshold)
	}

	d := Default()
	assert.Equal(t, 3.0, d.WithThreshold(3).Threshold)
	assert.Equal(t, DefaultThreshold, d.WithThreshold(-2).Threshold)
	assert.Equal(t, DefaultThreshold, d.Threshold)
}

func TestDetect_LowerThresholdFlagsMore(t *testing.T) {
	in := series("Jan", 100, "Feb", 102, "Mar", 98, "Apr", 500)

	out, err := Default().WithThreshold(1.7).Detect(in)
	require.NoError(t, err)
	assert.True(t, out.Points[3].IsAnomaly)
	assert.Equal(t, 1, out.AnomalyCount())
}
