package product

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
)

const testSource = "IASI_PW3_02_M01_20230327091606Z_20230327092820Z_N_O_20230327093500Z.h5"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syntheticGranule builds a (rows, cols[, levels]) swath with simple,
// position-dependent values. The humidity sample at input (0, 0, 0) is above
// the data limit.
func syntheticGranule(rows, cols, levels int) domain.RawGranule {
	n := rows * cols
	lat := make([]float64, n)
	lon := make([]float64, n)
	ts := make([]float64, n)
	height := make([]float64, n)
	for i := range n {
		r, c := i/cols, i%cols
		lat[i] = 50 + float64(r) + float64(c)*0.01
		lon[i] = 10 + float64(c)*0.1
		ts[i] = 280
		height[i] = float64(i)
	}

	profile := func(f func(l int) float64) domain.Array {
		data := make([]float64, n*levels)
		for i := range n {
			for l := range levels {
				data[i*levels+l] = f(l)
			}
		}
		return domain.Array{Shape: []int{rows, cols, levels}, Data: data}
	}

	q := profile(func(int) float64 { return 0.001 })
	q.Data[0] = 2e6

	return domain.RawGranule{
		Latitude:  domain.Array{Shape: []int{rows, cols}, Data: lat},
		Longitude: domain.Array{Shape: []int{rows, cols}, Data: lon},
		Fields: map[domain.FieldKind]domain.Array{
			domain.Temperature:      profile(func(l int) float64 { return 250 + float64(l) }),
			domain.SpecificHumidity: q,
			domain.Pressure:         profile(func(l int) float64 { return 500 + 100*float64(l) }),
			domain.Ozone:            profile(func(int) float64 { return 1e-6 }),
			domain.SkinTemperature:  {Shape: []int{rows, cols}, Data: ts},
			domain.Topography:       {Shape: []int{rows, cols}, Data: height},
		},
	}
}

type fakeReader struct {
	granule domain.RawGranule
	err     error
	calls   int
}

func (f *fakeReader) ReadGranule(string) (domain.RawGranule, error) {
	f.calls++
	return f.granule, f.err
}

// recordingWriter keeps everything written to one product file.
type recordingWriter struct {
	path    string
	order   []string
	vars    map[string]Variable
	globals []Attribute
	closed  bool
}

func (w *recordingWriter) AddGlobalAttrs(attrs []Attribute) error {
	w.globals = append(w.globals, attrs...)
	return nil
}

func (w *recordingWriter) AddVar(name string, v Variable) error {
	w.order = append(w.order, name)
	w.vars[name] = v
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return os.WriteFile(w.path, []byte("product"), 0o600)
}

func (w *recordingWriter) attr(name string) (any, bool) {
	for _, a := range w.globals {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// recorder is a WriterFactory that remembers every writer it opened.
type recorder struct {
	mu      sync.Mutex
	writers []*recordingWriter
	failOn  func(path string) bool
}

func (r *recorder) create(path string) (GridWriter, error) {
	if r.failOn != nil && r.failOn(path) {
		return nil, errors.New("disk full")
	}
	w := &recordingWriter{path: path, vars: make(map[string]Variable)}
	r.mu.Lock()
	r.writers = append(r.writers, w)
	r.mu.Unlock()
	return w, nil
}

func attrValue(attrs []Attribute, name string) (any, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}
