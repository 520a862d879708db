package product

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
)

// Dimension names of the product grid.
const (
	DimTime          = "time"
	DimBounds        = "nv"
	DimLevel         = "level"
	DimSurface       = "height0"
	DimAlongTrack    = "alongTrack"
	DimCrossTrack    = "crossTrack"
	DimSegments      = "locationSegments"
	DimSegmentLabel  = "locationLabelLength"
	timeUnits        = "seconds since 1970-01-01 00:00:00.00 +00:00"
	institution      = "Swedish Meteorological and Hydrological Institute"
	conventions      = "CF-1.6"
	coordinatesValue = "longitude latitude"
)

// Attribute is one named metadata value. Values are string, int32, float32,
// float64 or a slice of those.
type Attribute struct {
	Name  string
	Value any
}

// Variable is a flat, row-major array with its dimensions. Values is one of
// []float32, []float64, []int32 or []string; strings span the last
// dimension.
type Variable struct {
	Dims   []string
	Shape  []int
	Values any
	Attrs  []Attribute
}

// GridWriter receives the variables of one product file.
type GridWriter interface {
	AddGlobalAttrs(attrs []Attribute) error
	AddVar(name string, v Variable) error
	Close() error
}

// WriterFactory opens a GridWriter that creates the file at path.
type WriterFactory func(path string) (GridWriter, error)

// Encoder writes normalized granules as product files.
type Encoder struct {
	create WriterFactory
}

// NewEncoder creates an Encoder using create for each output file.
func NewEncoder(create WriterFactory) *Encoder {
	return &Encoder{create: create}
}

// Encode writes g to path in the framing selected by v. id is stored as the
// file's global id attribute; when empty the base name of path is used.
func (e *Encoder) Encode(g *domain.NormalizedGranule, path, id string, v domain.Variant) (err error) {
	w, err := e.create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrIO, path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", domain.ErrIO, path, cerr)
		}
	}()

	if id == "" {
		id = filepath.Base(path)
	}

	vars := buildVariables(g, v)
	for _, nv := range vars {
		if err := w.AddVar(nv.name, nv.Variable); err != nil {
			return fmt.Errorf("%w: write variable %s: %v", domain.ErrIO, nv.name, err)
		}
	}

	if err := w.AddGlobalAttrs([]Attribute{
		{Name: "id", Value: id},
		{Name: "platform", Value: g.Info.Platform},
		{Name: "Conventions", Value: conventions},
		{Name: "institution", Value: institution},
	}); err != nil {
		return fmt.Errorf("%w: write global attributes: %v", domain.ErrIO, err)
	}
	return nil
}

type namedVariable struct {
	name string
	Variable
}

// buildVariables lays out the variables of one product file in write order.
func buildVariables(g *domain.NormalizedGranule, v domain.Variant) []namedVariable {
	a, x, l := g.AlongTrack, g.CrossTrack, g.Levels
	start := float64(g.Info.Start.Unix())
	end := float64(g.Info.End.Unix())

	vars := []namedVariable{
		{"time", Variable{
			Dims: []string{DimTime}, Shape: []int{1},
			Values: []float64{(start + end) / 2},
			Attrs: []Attribute{
				{"long_name", "time"},
				{"units", timeUnits},
				{"bounds", "time_bnds"},
			},
		}},
		{"time_bnds", Variable{
			Dims: []string{DimTime, DimBounds}, Shape: []int{1, 2},
			Values: []float64{start, end},
		}},
		{DimLevel, Variable{
			Dims: []string{DimLevel}, Shape: []int{l},
			Values: sequence(l, 1),
			Attrs: []Attribute{
				{"long_name", "retrieval level index"},
				{"positive", "down"},
			},
		}},
		{DimAlongTrack, Variable{
			Dims: []string{DimAlongTrack}, Shape: []int{a},
			Values: sequence(a, 0),
			Attrs: []Attribute{
				{"units", "1"},
				{"long_name", "along-track sample index"},
			},
		}},
		{DimCrossTrack, Variable{
			Dims: []string{DimCrossTrack}, Shape: []int{x},
			Values: sequence(x, 0),
			Attrs: []Attribute{
				{"units", "1"},
				{"long_name", "cross-track sample index"},
			},
		}},
		{"latitude", geoVariable(g.Latitude, a, x, "latitude", "Latitude at the centre of each pixel", "degrees_north", "Lat", 90)},
		{"longitude", geoVariable(g.Longitude, a, x, "longitude", "Longitude at the centre of each pixel", "degrees_east", "Lon", 180)},
	}

	for _, f := range g.Fields {
		vars = append(vars, namedVariable{f.Spec.VarName, fieldVariable(f, a, x)})
	}

	if v == domain.VerticalCrossSection {
		segs := domain.LocationSegments(g.Latitude, g.Longitude, domain.SegmentLength)
		if len(segs) == 0 {
			// Swaths shorter than one segment carry no cross-section index;
			// a zero-length dimension cannot be written.
			return vars
		}
		labels := make([]string, len(segs))
		bounds := make([]int32, 0, 2*len(segs))
		for i, s := range segs {
			labels[i] = padLabel(s.Label)
			bounds = append(bounds, int32(s.Start), int32(s.End))
		}
		vars = append(vars,
			namedVariable{"vcross_name", Variable{
				Dims:   []string{DimSegments, DimSegmentLabel},
				Shape:  []int{len(segs), domain.LocationLabelLength},
				Values: labels,
				Attrs:  []Attribute{{"bounds", "vcross_bnds"}},
			}},
			namedVariable{"vcross_bnds", Variable{
				Dims:   []string{DimSegments, DimBounds},
				Shape:  []int{len(segs), 2},
				Values: bounds,
				Attrs: []Attribute{{"description",
					"First and last (inclusive) flat grid index of each cross-section"}},
			}},
		)
	}
	return vars
}

func geoVariable(data []float64, a, x int, name, long, units, axis string, limit float64) Variable {
	out := make([]float32, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = float32(domain.GeoFillValue)
			continue
		}
		out[i] = float32(v)
	}
	return Variable{
		Dims: []string{DimAlongTrack, DimCrossTrack}, Shape: []int{a, x},
		Values: out,
		Attrs: []Attribute{
			{"_FillValue", float32(domain.GeoFillValue)},
			{"_CoordinateAxisType", axis},
			{"standard_name", name},
			{"long_name", long},
			{"units", units},
			{"valid_range", []float32{float32(-limit), float32(limit)}},
		},
	}
}

func fieldVariable(f domain.Field, a, x int) Variable {
	num := func(v float64) any { return numeric(f.Spec.Numeric, v) }

	var values any
	switch f.Spec.Numeric {
	case domain.Float64:
		out := make([]float64, len(f.Data))
		for i, v := range f.Data {
			out[i] = domain.Filled(v)
		}
		values = out
	default:
		out := make([]float32, len(f.Data))
		for i, v := range f.Data {
			out[i] = float32(domain.Filled(v))
		}
		values = out
	}

	levelDim := DimLevel
	if f.Spec.Dimensionality == domain.Surface {
		levelDim = DimSurface
	}

	attrs := []Attribute{
		{"_FillValue", num(domain.FillValue)},
		{"standard_name", f.Spec.Attributes.StandardName},
		{"long_name", f.Spec.Attributes.LongName},
		{"units", f.Spec.Attributes.Units},
		{"coordinates", coordinatesValue},
	}
	if r := f.Spec.Attributes.ValidRange; len(r) == 2 {
		var vr any = []float32{float32(r[0]), float32(r[1])}
		if f.Spec.Numeric == domain.Float64 {
			vr = []float64{r[0], r[1]}
		}
		attrs = append(attrs, Attribute{"valid_range", vr})
	}
	if s := f.Spec.Attributes.ScaleFactor; s != nil {
		attrs = append(attrs, Attribute{"scale_factor", num(*s)})
	}
	if o := f.Spec.Attributes.AddOffset; o != nil {
		attrs = append(attrs, Attribute{"add_offset", num(*o)})
	}

	return Variable{
		Dims:   []string{DimTime, levelDim, DimAlongTrack, DimCrossTrack},
		Shape:  []int{1, f.Levels, a, x},
		Values: values,
		Attrs:  attrs,
	}
}

// numeric converts a scalar attribute to the element type of its variable.
func numeric(k domain.NumericKind, v float64) any {
	if k == domain.Float64 {
		return v
	}
	return float32(v)
}

func sequence(n int, first int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = first + int32(i)
	}
	return out
}

// padLabel NUL-pads s to the fixed label width, truncating longer labels.
func padLabel(s string) string {
	if len(s) >= domain.LocationLabelLength {
		return s[:domain.LocationLabelLength]
	}
	return s + strings.Repeat("\x00", domain.LocationLabelLength-len(s))
}
