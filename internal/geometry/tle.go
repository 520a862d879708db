package geometry

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	satellite "github.com/joshuaferrara/go-satellite"
)

// Positioner returns the sub-satellite point of a platform at a given time.
type Positioner interface {
	SubSatellitePoint(platform string, t time.Time) (lon, lat float64, err error)
}

const (
	tleLineLength = 69
	gravityModel  = "wgs84"
)

// TLEPositioner propagates two-line element sets with SGP4.
type TLEPositioner struct {
	sats map[string]satellite.Satellite
}

// LoadTLE reads a three-line TLE file (name, line 1, line 2 per satellite).
func LoadTLE(path string) (*TLEPositioner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tle file: %w", err)
	}
	defer f.Close()
	return ParseTLE(f)
}

// ParseTLE decodes three-line TLE sets. Names are matched case-insensitively.
func ParseTLE(r io.Reader) (*TLEPositioner, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tle: %w", err)
	}
	if len(lines)%3 != 0 {
		return nil, fmt.Errorf("tle: expected name/line1/line2 triples, got %d lines", len(lines))
	}

	p := &TLEPositioner{sats: make(map[string]satellite.Satellite, len(lines)/3)}
	for i := 0; i < len(lines); i += 3 {
		name := strings.TrimSpace(strings.TrimPrefix(lines[i], "0 "))
		l1, l2 := lines[i+1], lines[i+2]
		if err := checkTLELine(l1, '1'); err != nil {
			return nil, fmt.Errorf("tle %q: %w", name, err)
		}
		if err := checkTLELine(l2, '2'); err != nil {
			return nil, fmt.Errorf("tle %q: %w", name, err)
		}
		p.sats[normalizeName(name)] = satellite.TLEToSat(l1, l2, gravityModel)
	}
	return p, nil
}

// Platforms returns the number of loaded element sets.
func (p *TLEPositioner) Platforms() int { return len(p.sats) }

// SubSatellitePoint implements Positioner. Longitude is normalized to
// [-180, 180).
func (p *TLEPositioner) SubSatellitePoint(platform string, t time.Time) (lon, lat float64, err error) {
	sat, ok := p.sats[normalizeName(domain.PlatformName(platform))]
	if !ok {
		return 0, 0, fmt.Errorf("%w: no orbital elements for platform %q", domain.ErrGeometry, platform)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: propagate %q: %v", domain.ErrGeometry, platform, r)
		}
	}()

	t = t.UTC()
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	pos, _ := satellite.Propagate(sat, y, int(mo), d, h, mi, s)
	gmst := satellite.GSTimeFromDate(y, int(mo), d, h, mi, s)
	_, _, ll := satellite.ECIToLLA(pos, gmst)

	lat = ll.Latitude * 180 / math.Pi
	lon = math.Mod(ll.Longitude*180/math.Pi+540, 360) - 180
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return 0, 0, fmt.Errorf("%w: propagate %q: orbit decayed or elements stale", domain.ErrGeometry, platform)
	}
	return lon, lat, nil
}

// normalizeName folds case and drops separators so "Metop-B" matches
// "METOP B" and "METOPB".
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checkTLELine validates the line number, length, and modulo-10 checksum.
func checkTLELine(line string, num byte) error {
	if len(line) != tleLineLength {
		return fmt.Errorf("line %c: length %d, want %d", num, len(line), tleLineLength)
	}
	if line[0] != num {
		return fmt.Errorf("line %c: starts with %q", num, line[0])
	}
	sum := 0
	for _, c := range line[:tleLineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	if want := int(line[tleLineLength-1] - '0'); sum%10 != want {
		return fmt.Errorf("line %c: checksum %d, want %d", num, sum%10, want)
	}
	return nil
}
