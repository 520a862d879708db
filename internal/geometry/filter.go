package geometry

import (
	"fmt"
	"time"
)

// IsRelevant reports whether the platform's ground position at start or at
// end lies inside area. Only the two endpoints are sampled: a pass that
// enters and leaves a small area strictly between them is reported as
// irrelevant.
func IsRelevant(pos Positioner, start, end time.Time, platform string, area Area) (bool, error) {
	for _, t := range []time.Time{start, end} {
		lon, lat, err := pos.SubSatellitePoint(platform, t)
		if err != nil {
			return false, fmt.Errorf("relevance at %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		if area.Contains(lon, lat) {
			return true, nil
		}
	}
	return false, nil
}

// Filter binds a position source to one area of interest.
type Filter struct {
	pos  Positioner
	area Area
}

// NewFilter creates a Filter for area.
func NewFilter(pos Positioner, area Area) *Filter {
	return &Filter{pos: pos, area: area}
}

// Area returns the area of interest.
func (f *Filter) Area() Area { return f.area }

// IsRelevant applies the endpoint test against the filter's area.
func (f *Filter) IsRelevant(start, end time.Time, platform string) (bool, error) {
	return IsRelevant(f.pos, start, end, platform, f.area)
}
