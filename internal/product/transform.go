// Package product turns a swath-ordered IASI level-2 source file into the
// gridded products announced downstream.
package product

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
)

// SourceReader loads the datasets of a sensor file. The returned granule's
// Info is filled in by the caller.
type SourceReader interface {
	ReadGranule(path string) (domain.RawGranule, error)
}

// Transformer converts source files into normalized granules.
type Transformer struct {
	reader SourceReader
	logger *slog.Logger
}

// NewTransformer creates a Transformer reading through r.
func NewTransformer(r SourceReader, logger *slog.Logger) *Transformer {
	return &Transformer{reader: r, logger: logger}
}

// Transform reads path and de-interleaves, masks and derives every registered
// field. Filename and shape problems are reported as domain.ErrFormat.
func (t *Transformer) Transform(path string) (*domain.NormalizedGranule, error) {
	info, err := domain.ParseSourceName(path)
	if err != nil {
		return nil, err
	}

	raw, err := t.reader.ReadGranule(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", info.SourceName, err)
	}
	raw.Info = info

	g, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", info.SourceName, err)
	}

	t.logger.Debug("granule normalized",
		"granule", info.SourceName,
		"platform", info.Platform,
		"along_track", g.AlongTrack,
		"cross_track", g.CrossTrack,
		"levels", g.Levels,
	)
	return g, nil
}

// Normalize applies the scan de-interleaving to every dataset of raw, masks
// out-of-range samples, converts pressure from hPa to Pa and derives the dew
// point profile. Fields are returned in registry order.
func Normalize(raw domain.RawGranule) (*domain.NormalizedGranule, error) {
	rows, cols, levels, err := checkShapes(raw)
	if err != nil {
		return nil, err
	}

	idx, err := domain.InterleaveIndex(rows, cols)
	if err != nil {
		return nil, err
	}

	g := &domain.NormalizedGranule{
		Info:       raw.Info,
		AlongTrack: 2 * rows,
		CrossTrack: cols / 2,
		Levels:     levels,
		Latitude:   domain.Reindex2D(raw.Latitude.Data, idx),
		Longitude:  domain.Reindex2D(raw.Longitude.Data, idx),
	}

	computed := make(map[domain.FieldKind][]float64, len(domain.FieldRegistry))
	for _, spec := range domain.FieldRegistry {
		if spec.Derived() {
			continue
		}
		masked := domain.Mask(raw.Fields[spec.Kind].Data)
		if spec.Dimensionality == domain.Profile {
			computed[spec.Kind] = domain.ReindexProfile(masked, idx, levels)
		} else {
			computed[spec.Kind] = domain.Reindex2D(masked, idx)
		}
	}

	domain.Scale(computed[domain.Pressure], 100)
	computed[domain.DewPointTemperature] = domain.DewPointField(
		computed[domain.SpecificHumidity],
		computed[domain.Temperature],
		computed[domain.Pressure],
	)

	g.Fields = make([]domain.Field, 0, len(domain.FieldRegistry))
	for _, spec := range domain.FieldRegistry {
		lv := levels
		if spec.Dimensionality == domain.Surface {
			lv = 1
		}
		g.Fields = append(g.Fields, domain.Field{Spec: spec, Levels: lv, Data: computed[spec.Kind]})
	}
	return g, nil
}

// checkShapes verifies that every dataset shares the (rows, cols) swath and
// that all profiles share one level count.
func checkShapes(raw domain.RawGranule) (rows, cols, levels int, err error) {
	lat := raw.Latitude
	if len(lat.Shape) != 2 || lat.Len() != len(lat.Data) {
		return 0, 0, 0, fmt.Errorf("%w: latitude shape %v", domain.ErrFormat, lat.Shape)
	}
	rows, cols = lat.Shape[0], lat.Shape[1]

	if !sameShape(raw.Longitude, rows, cols) {
		return 0, 0, 0, fmt.Errorf("%w: longitude shape %v, want [%d %d]", domain.ErrFormat, raw.Longitude.Shape, rows, cols)
	}

	levels = -1
	for _, spec := range domain.FieldRegistry {
		if spec.Derived() {
			continue
		}
		a, ok := raw.Fields[spec.Kind]
		if !ok {
			return 0, 0, 0, fmt.Errorf("%w: missing dataset %s", domain.ErrFormat, spec.Source)
		}
		if spec.Dimensionality == domain.Surface {
			if !sameShape(a, rows, cols) {
				return 0, 0, 0, fmt.Errorf("%w: %s shape %v, want [%d %d]", domain.ErrFormat, spec.Source, a.Shape, rows, cols)
			}
			continue
		}
		if len(a.Shape) != 3 || a.Shape[0] != rows || a.Shape[1] != cols || a.Len() != len(a.Data) || a.Shape[2] <= 0 {
			return 0, 0, 0, fmt.Errorf("%w: %s shape %v, want [%d %d L]", domain.ErrFormat, spec.Source, a.Shape, rows, cols)
		}
		if levels >= 0 && a.Shape[2] != levels {
			return 0, 0, 0, fmt.Errorf("%w: %s has %d levels, want %d", domain.ErrFormat, spec.Source, a.Shape[2], levels)
		}
		levels = a.Shape[2]
	}
	return rows, cols, levels, nil
}

func sameShape(a domain.Array, rows, cols int) bool {
	return len(a.Shape) == 2 && a.Shape[0] == rows && a.Shape[1] == cols && len(a.Data) == rows*cols
}
