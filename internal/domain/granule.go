package domain

import "time"

// GranuleInfo is the identity of a granule as encoded in its filename.
type GranuleInfo struct {
	SourceName   string
	PlatformCode string
	Platform     string
	Start        time.Time
	End          time.Time
}

// Midpoint returns the centre of the sensing interval.
func (g GranuleInfo) Midpoint() time.Time {
	return g.Start.Add(g.End.Sub(g.Start) / 2)
}

// Array is a dense row-major numeric array.
type Array struct {
	Shape []int
	Data  []float64
}

// Len returns the element count implied by the shape.
func (a Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// RawGranule is the swath-ordered content of a sensor file. Geolocation and
// surface fields are (rows, cols); profile fields are (rows, cols, levels).
type RawGranule struct {
	Info      GranuleInfo
	Latitude  Array
	Longitude Array
	Fields    map[FieldKind]Array
}

// Field is one de-interleaved physical quantity. Data is level-major:
// index (l*AlongTrack + y)*CrossTrack + x. Missing values are NaN.
type Field struct {
	Spec   FieldSpec
	Levels int
	Data   []float64
}

// NormalizedGranule is a granule on the de-interleaved product grid.
type NormalizedGranule struct {
	Info       GranuleInfo
	AlongTrack int
	CrossTrack int
	Levels     int
	Latitude   []float64
	Longitude  []float64
	Fields     []Field
}

// Field returns the field of kind k.
func (g *NormalizedGranule) Field(k FieldKind) (Field, bool) {
	for _, f := range g.Fields {
		if f.Spec.Kind == k {
			return f, true
		}
	}
	return Field{}, false
}
