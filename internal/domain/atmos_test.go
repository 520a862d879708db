package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask_Boundary(t *testing.T) {
	in := []float64{DataUpperLimit, DataUpperLimit + 1, 0, -5, math.NaN(), 3.4e38}
	out := Mask(in)

	assert.Equal(t, float64(DataUpperLimit), out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 0.0, out[2])
	assert.Equal(t, -5.0, out[3])
	assert.True(t, math.IsNaN(out[4]))
	assert.True(t, math.IsNaN(out[5]))

	filled := make([]float64, len(out))
	for i, v := range out {
		filled[i] = Filled(v)
	}
	assert.Equal(t, []float64{DataUpperLimit, FillValue, 0, -5, FillValue, FillValue}, filled)

	// The input is left untouched.
	assert.Equal(t, float64(DataUpperLimit+1), in[1])
}

func TestScale_SkipsMissing(t *testing.T) {
	data := Mask([]float64{850, 2e6, 1013.25})
	Scale(data, 100)

	assert.InDelta(t, 85000.0, data[0], 1e-9)
	assert.True(t, math.IsNaN(data[1]))
	assert.InDelta(t, 101325.0, data[2], 1e-9)
	assert.Equal(t, FillValue, Filled(data[1]))
}

func TestDewPoint_RoundTrip(t *testing.T) {
	cases := []struct {
		q, tempK, pressurePa float64
	}{
		{0.005, 293.15, 100000},
		{0.002, 273.15, 80000},
		{0.010, 303.15, 100000},
		{0.0005, 250.15, 50000},
	}

	for _, tc := range cases {
		tempC := tc.tempK - 273.15
		rh := RelativeHumidity(tc.q, tempC, tc.pressurePa/100)
		assert.Greater(t, rh, 0.0)
		assert.Less(t, rh, 100.0)

		td := DewPoint(tc.q, tc.tempK, tc.pressurePa)
		assert.LessOrEqual(t, td, tc.tempK)
		assert.InDelta(t, rh, RelativeHumidityFromDewPoint(td-273.15, tempC), 1e-6)
	}
}

func TestDewPoint_ClampsSupersaturation(t *testing.T) {
	// Far more vapour than saturation allows: RH is clamped to 100%.
	assert.Equal(t, 100.0, RelativeHumidity(0.05, 0, 1000))
	assert.InDelta(t, 273.15, DewPoint(0.05, 273.15, 100000), 1e-9)
}

func TestDewPoint_ClampsNegativeHumidity(t *testing.T) {
	assert.Equal(t, 0.0, RelativeHumidity(-0.001, 10, 1000))
	assert.True(t, math.IsInf(DewPoint(-0.001, 283.15, 100000), -1))
}

func TestDewPointField_PropagatesMissing(t *testing.T) {
	nan := math.NaN()
	q := []float64{0.005, nan, 0.005, -0.001}
	tk := []float64{293.15, 293.15, nan, 283.15}
	p := []float64{100000, 100000, 100000, 100000}

	out := DewPointField(q, tk, p)
	assert.InDelta(t, DewPoint(0.005, 293.15, 100000), out[0], 1e-12)
	assert.True(t, math.IsNaN(out[1]))
	assert.True(t, math.IsNaN(out[2]))
	assert.True(t, math.IsNaN(out[3]), "zero humidity has no finite dew point")
}
