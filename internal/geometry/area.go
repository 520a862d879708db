// Package geometry decides whether a satellite pass is relevant to a
// configured area of interest.
package geometry

import (
	"fmt"
	"os"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// Area is a named lon/lat polygon.
type Area struct {
	ID          string
	Description string
	Polygon     orb.Polygon
}

// Contains reports whether the point lies inside the area's outer ring and
// outside any holes. Ring edges are great-circle arcs between corners, so
// an edge between two corners on one parallel bows towards the pole.
func (a Area) Contains(lon, lat float64) bool {
	if len(a.Polygon) == 0 {
		return false
	}
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	if !sphericalLoop(a.Polygon[0]).ContainsPoint(p) {
		return false
	}
	for _, hole := range a.Polygon[1:] {
		if sphericalLoop(hole).ContainsPoint(p) {
			return false
		}
	}
	return true
}

// sphericalLoop converts a lon/lat ring to an s2 loop enclosing the smaller
// of the two regions it bounds, whatever the winding order of the corners.
func sphericalLoop(r orb.Ring) *s2.Loop {
	if r.Closed() {
		r = r[:len(r)-1]
	}
	pts := make([]s2.Point, len(r))
	for i, c := range r {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat(), c.Lon()))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop
}

type areaFile struct {
	Areas []areaDef `yaml:"areas"`
}

type areaDef struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description"`
	Corners     [][2]float64 `yaml:"corners"`
}

// LoadAreas reads area definitions from a YAML file.
func LoadAreas(path string) (map[string]Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	return ParseAreas(data)
}

// ParseAreas decodes area definitions. Each area needs an id and at least
// three [lon, lat] corners; the ring is closed automatically.
func ParseAreas(data []byte) (map[string]Area, error) {
	var f areaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode areas: %w", err)
	}

	areas := make(map[string]Area, len(f.Areas))
	for i, def := range f.Areas {
		if def.ID == "" {
			return nil, fmt.Errorf("area %d: missing id", i)
		}
		if len(def.Corners) < 3 {
			return nil, fmt.Errorf("area %q: need at least 3 corners, got %d", def.ID, len(def.Corners))
		}
		if _, dup := areas[def.ID]; dup {
			return nil, fmt.Errorf("area %q: defined twice", def.ID)
		}

		ring := make(orb.Ring, 0, len(def.Corners)+1)
		for _, c := range def.Corners {
			if c[0] < -180 || c[0] > 180 || c[1] < -90 || c[1] > 90 {
				return nil, fmt.Errorf("area %q: corner %v out of range", def.ID, c)
			}
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}

		areas[def.ID] = Area{
			ID:          def.ID,
			Description: def.Description,
			Polygon:     orb.Polygon{ring},
		}
	}
	return areas, nil
}

// LoadArea reads the areas file and returns the area named id.
func LoadArea(path, id string) (Area, error) {
	areas, err := LoadAreas(path)
	if err != nil {
		return Area{}, err
	}
	a, ok := areas[id]
	if !ok {
		return Area{}, fmt.Errorf("%w: unknown area %q in %s", domain.ErrGeometry, id, path)
	}
	return a, nil
}
