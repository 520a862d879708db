package domain

import "math"

const (
	// DataUpperLimit is the largest raw value treated as a measurement.
	DataUpperLimit = 1_000_000
	// FillValue marks missing samples in products.
	FillValue = -9.0
	// GeoFillValue marks missing latitude/longitude in products.
	GeoFillValue = -999.0

	kelvinOffset = 273.15
)

// Mask returns a copy of data with every value above DataUpperLimit, and
// every NaN, replaced by NaN.
func Mask(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if math.IsNaN(v) || v > DataUpperLimit {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

// Scale multiplies every present value by f in place.
func Scale(data []float64, f float64) {
	for i, v := range data {
		if !math.IsNaN(v) {
			data[i] = v * f
		}
	}
}

// Filled returns v, or FillValue when v is missing.
func Filled(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FillValue
	}
	return v
}

// SaturationVaporPressure returns es in hPa for a temperature in Celsius
// (Bolton 1980).
func SaturationVaporPressure(tempC float64) float64 {
	return 6.112 * math.Exp(17.67*tempC/(tempC+243.5))
}

// RelativeHumidity returns relative humidity in percent from specific
// humidity (kg/kg), temperature (C) and pressure (hPa). The ratio e/es is
// clamped to [0, 1].
func RelativeHumidity(q, tempC, pressureHPa float64) float64 {
	es := SaturationVaporPressure(tempC)
	e := q * pressureHPa / (0.378*q + 0.622)
	rh := e / es
	switch {
	case rh > 1:
		rh = 1
	case rh < 0:
		rh = 0
	}
	return rh * 100
}

// DewPointFromRH inverts the saturation formula: it returns the dew point in
// Celsius for a temperature in Celsius and relative humidity in percent.
// Zero humidity yields -Inf.
func DewPointFromRH(tempC, rh float64) float64 {
	if rh <= 0 {
		return math.Inf(-1)
	}
	e := SaturationVaporPressure(tempC) * rh / 100
	x := math.Log(e / 6.112)
	return x * 243.5 / (17.67 - x)
}

// RelativeHumidityFromDewPoint returns relative humidity in percent for a dew
// point and temperature, both in Celsius.
func RelativeHumidityFromDewPoint(dewC, tempC float64) float64 {
	return 100 * SaturationVaporPressure(dewC) / SaturationVaporPressure(tempC)
}

// DewPoint returns the dew point in Kelvin from specific humidity (kg/kg),
// temperature (K) and pressure (Pa).
func DewPoint(q, tempK, pressurePa float64) float64 {
	tempC := tempK - kelvinOffset
	rh := RelativeHumidity(q, tempC, pressurePa/100)
	return DewPointFromRH(tempC, rh) + kelvinOffset
}

// DewPointField computes DewPoint element-wise. An element is NaN when any
// input is NaN or the result is not finite.
func DewPointField(q, tempK, pressurePa []float64) []float64 {
	out := make([]float64, len(q))
	for i := range q {
		if math.IsNaN(q[i]) || math.IsNaN(tempK[i]) || math.IsNaN(pressurePa[i]) {
			out[i] = math.NaN()
			continue
		}
		td := DewPoint(q[i], tempK[i], pressurePa[i])
		if math.IsInf(td, 0) {
			td = math.NaN()
		}
		out[i] = td
	}
	return out
}
