package domain

// FieldKind enumerates the physical quantities carried by a granule.
type FieldKind int

const (
	Temperature FieldKind = iota
	DewPointTemperature
	SpecificHumidity
	Pressure
	Ozone
	SkinTemperature
	Topography
)

// Dimensionality tells whether a field has a vertical axis.
type Dimensionality int

const (
	// Profile fields are (level, alongTrack, crossTrack).
	Profile Dimensionality = iota
	// Surface fields are (alongTrack, crossTrack) on a singleton level.
	Surface
)

// NumericKind is the on-disk element type of a product variable.
type NumericKind int

const (
	Float32 NumericKind = iota
	Float64
)

// Attributes are the descriptive metadata written with a field.
type Attributes struct {
	StandardName string
	LongName     string
	Units        string
	ValidRange   []float64
	ScaleFactor  *float64
	AddOffset    *float64
}

// FieldSpec describes how a field kind is read and written.
type FieldSpec struct {
	Kind FieldKind
	// Source is the dataset path in the sensor file; empty for derived fields.
	Source         string
	VarName        string
	Numeric        NumericKind
	Dimensionality Dimensionality
	Attributes     Attributes
}

// Derived reports whether the field is computed rather than read.
func (s FieldSpec) Derived() bool { return s.Source == "" }

// Source dataset paths that are not fields themselves.
const (
	SourceLatitude  = "L1C/Latitude"
	SourceLongitude = "L1C/Longitude"
)

// FieldRegistry lists every field in product order.
var FieldRegistry = []FieldSpec{
	{
		Kind: Temperature, Source: "PWLR/T", VarName: "air_temperature_ml",
		Numeric: Float32, Dimensionality: Profile,
		Attributes: Attributes{StandardName: "air_temperature_ml", LongName: "Air temperature", Units: "K"},
	},
	{
		Kind: DewPointTemperature, VarName: "dew_point_temperature",
		Numeric: Float32, Dimensionality: Profile,
		Attributes: Attributes{StandardName: "dew_point_temperature", LongName: "Dew Point Temperature", Units: "K"},
	},
	{
		Kind: SpecificHumidity, Source: "PWLR/W", VarName: "specific_humidity_ml",
		Numeric: Float32, Dimensionality: Profile,
		Attributes: Attributes{StandardName: "specific_humidity_ml", LongName: "Specific Humidity", Units: "1"},
	},
	{
		Kind: Pressure, Source: "PWLR/P", VarName: "air_pressure",
		Numeric: Float32, Dimensionality: Profile,
		Attributes: Attributes{StandardName: "air_pressure", LongName: "Air Pressure", Units: "Pa"},
	},
	{
		Kind: Ozone, Source: "PWLR/O", VarName: "mass_fraction_of_ozone_in_air",
		Numeric: Float32, Dimensionality: Profile,
		Attributes: Attributes{StandardName: "fraction_of_ozone_in_air", LongName: "Ozone mixing ratio vertical profile", Units: "1"},
	},
	{
		Kind: SkinTemperature, Source: "PWLR/Ts", VarName: "surface_temperature",
		Numeric: Float32, Dimensionality: Surface,
		Attributes: Attributes{StandardName: "surface_temperature", LongName: "Surface skin temperature", Units: "K"},
	},
	{
		Kind: Topography, Source: "Maps/Height", VarName: "surface_elevation",
		Numeric: Float32, Dimensionality: Surface,
		Attributes: Attributes{StandardName: "surface_elevation", LongName: "Topography", Units: "m"},
	},
}

// Spec returns the registry entry for k.
func (k FieldKind) Spec() FieldSpec {
	for _, s := range FieldRegistry {
		if s.Kind == k {
			return s
		}
	}
	panic("domain: unregistered field kind")
}

func (k FieldKind) String() string { return k.Spec().VarName }
