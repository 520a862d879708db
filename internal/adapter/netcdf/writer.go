// Package netcdf writes product files in the NetCDF classic format.
package netcdf

import (
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/couchcryptid/iasi-l2-converter/internal/product"
)

// cdfWriter is the subset of the CDF writer used here.
type cdfWriter interface {
	AddVar(name string, v api.Variable) error
	AddGlobalAttrs(attrs api.AttributeMap) error
	Close() error
}

// Writer adapts a CDF writer to product.GridWriter.
type Writer struct {
	cw cdfWriter
}

// Create opens a new NetCDF file at path. It satisfies product.WriterFactory.
func Create(path string) (product.GridWriter, error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf writer: %w", err)
	}
	return &Writer{cw: cw}, nil
}

// AddGlobalAttrs writes file-level attributes.
func (w *Writer) AddGlobalAttrs(attrs []product.Attribute) error {
	m, err := attributeMap(attrs)
	if err != nil {
		return err
	}
	return w.cw.AddGlobalAttrs(m)
}

// AddVar writes one variable, reshaping its flat values to the declared shape.
func (w *Writer) AddVar(name string, v product.Variable) error {
	values, err := Nest(v.Values, v.Shape)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	attrs, err := attributeMap(v.Attrs)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	return w.cw.AddVar(name, api.Variable{
		Values:     values,
		Dimensions: v.Dims,
		Attributes: attrs,
	})
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	return w.cw.Close()
}

func attributeMap(attrs []product.Attribute) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(attrs))
	vals := make(map[string]any, len(attrs))
	for _, a := range attrs {
		if _, dup := vals[a.Name]; dup {
			return nil, fmt.Errorf("duplicate attribute %q", a.Name)
		}
		keys = append(keys, a.Name)
		vals[a.Name] = a.Value
	}
	return util.NewOrderedMap(keys, vals)
}

// Nest reshapes a flat row-major slice into nested slices matching shape.
// For string slices the last dimension is the string length and is not
// nested.
func Nest(flat any, shape []int) (any, error) {
	v := reflect.ValueOf(flat)
	if !v.IsValid() || v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected slice, got %T", flat)
	}

	dims := shape
	if v.Type().Elem().Kind() == reflect.String {
		if len(shape) < 2 {
			return nil, fmt.Errorf("string variable needs at least 2 dimensions, got %v", shape)
		}
		dims = shape[:len(shape)-1]
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("empty shape")
	}

	n := 1
	for _, d := range dims {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in %v", shape)
		}
		n *= d
	}
	if v.Len() != n {
		return nil, fmt.Errorf("shape %v needs %d values, have %d", shape, n, v.Len())
	}
	if len(dims) == 1 {
		return flat, nil
	}
	return nest(v, dims).Interface(), nil
}

func nest(v reflect.Value, dims []int) reflect.Value {
	if len(dims) == 1 {
		return v
	}
	t := v.Type()
	for range dims[1:] {
		t = reflect.SliceOf(t)
	}
	out := reflect.MakeSlice(t, dims[0], dims[0])
	if dims[0] == 0 {
		return out
	}
	stride := v.Len() / dims[0]
	for i := 0; i < dims[0]; i++ {
		out.Index(i).Set(nest(v.Slice(i*stride, (i+1)*stride), dims[1:]))
	}
	return out
}
