// Package hdf5 reads IASI level-2 PW3 granules from HDF5 files.
package hdf5

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	nchdf5 "github.com/batchatco/go-native-netcdf/netcdf/hdf5"
	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
)

// Reader loads the datasets listed in domain.FieldRegistry plus geolocation.
// It implements product.SourceReader.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadGranule opens path and returns its swath datasets. Structural problems
// are reported as domain.ErrFormat, open failures as domain.ErrIO.
func (r *Reader) ReadGranule(path string) (domain.RawGranule, error) {
	root, err := nchdf5.Open(path)
	if err != nil {
		return domain.RawGranule{}, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	defer root.Close()

	lat, err := readDataset(root, domain.SourceLatitude)
	if err != nil {
		return domain.RawGranule{}, err
	}
	lon, err := readDataset(root, domain.SourceLongitude)
	if err != nil {
		return domain.RawGranule{}, err
	}

	g := domain.RawGranule{
		Latitude:  lat,
		Longitude: lon,
		Fields:    make(map[domain.FieldKind]domain.Array),
	}
	for _, spec := range domain.FieldRegistry {
		if spec.Derived() {
			continue
		}
		a, err := readDataset(root, spec.Source)
		if err != nil {
			return domain.RawGranule{}, err
		}
		g.Fields[spec.Kind] = a
	}

	r.logger.Debug("source read", "path", path, "shape", lat.Shape)
	return g, nil
}

// readDataset resolves a slash-separated dataset path and flattens it.
func readDataset(root api.Group, path string) (domain.Array, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	g := root
	for _, name := range parts[:len(parts)-1] {
		sub, err := g.GetGroup(name)
		if err != nil {
			return domain.Array{}, fmt.Errorf("%w: group %s in %s: %v", domain.ErrFormat, name, path, err)
		}
		g = sub
	}

	v, err := g.GetVariable(parts[len(parts)-1])
	if err != nil {
		return domain.Array{}, fmt.Errorf("%w: dataset %s: %v", domain.ErrFormat, path, err)
	}

	a, err := Flatten(v.Values)
	if err != nil {
		return domain.Array{}, fmt.Errorf("%w: dataset %s: %v", domain.ErrFormat, path, err)
	}
	return a, nil
}

// Flatten converts a (possibly nested) slice of numbers into a row-major
// Array. Nested slices must be rectangular.
func Flatten(values any) (domain.Array, error) {
	v := reflect.ValueOf(values)
	if !v.IsValid() || v.Kind() != reflect.Slice {
		return domain.Array{}, fmt.Errorf("expected slice, got %T", values)
	}

	var shape []int
	for t := v; ; {
		shape = append(shape, t.Len())
		if t.Type().Elem().Kind() != reflect.Slice {
			break
		}
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, 0, n)
	if err := appendValues(&data, v, shape, 0); err != nil {
		return domain.Array{}, err
	}
	return domain.Array{Shape: shape, Data: data}, nil
}

func appendValues(dst *[]float64, v reflect.Value, shape []int, depth int) error {
	if v.Len() != shape[depth] {
		return fmt.Errorf("ragged array at depth %d: length %d, want %d", depth, v.Len(), shape[depth])
	}
	if depth < len(shape)-1 {
		for i := 0; i < v.Len(); i++ {
			if err := appendValues(dst, v.Index(i), shape, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < v.Len(); i++ {
		e := v.Index(i)
		switch e.Kind() {
		case reflect.Float32, reflect.Float64:
			*dst = append(*dst, e.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			*dst = append(*dst, float64(e.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			*dst = append(*dst, float64(e.Uint()))
		default:
			return fmt.Errorf("unsupported element type %s", e.Type())
		}
	}
	return nil
}
