package domain

import (
	"fmt"
	"math"
)

const (
	// SegmentLength is the number of along-track samples per cross-section.
	SegmentLength = 60
	// LocationLabelLength is the fixed width of a cross-section label.
	LocationLabelLength = 80
)

// PositionLabel formats a position as a compact label, e.g. "N7330;E00500".
// Values are truncated to hundredths of a degree.
func PositionLabel(lat, lon float64) string {
	var latName, lonName string
	if lat > 0 {
		latName = fmt.Sprintf("N%04d", int(lat*100))
	} else {
		latName = fmt.Sprintf("S%04d", int(math.Abs(lat*100)))
	}
	if lon > 0 {
		lonName = fmt.Sprintf("E%05d", int(lon*100))
	} else {
		lonName = fmt.Sprintf("W%05d", int(math.Abs(lon*100)))
	}
	return latName + ";" + lonName
}

// LocationSegment names one cross-section by its first and last position.
// Start and End are inclusive flat indices into the product grid.
type LocationSegment struct {
	Label string
	Start int
	End   int
}

// LocationSegments splits the flattened grid into blocks of size samples.
// A trailing partial block is dropped.
func LocationSegments(lat, lon []float64, size int) []LocationSegment {
	if size <= 0 {
		return nil
	}
	n := len(lat) / size
	segs := make([]LocationSegment, 0, n)
	for k := 0; k < n; k++ {
		start := k * size
		end := start + size - 1
		segs = append(segs, LocationSegment{
			Label: PositionLabel(lat[start], lon[start]) + " " + PositionLabel(lat[end], lon[end]),
			Start: start,
			End:   end,
		})
	}
	return segs
}
