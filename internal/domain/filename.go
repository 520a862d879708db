package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const filenameTimeLayout = "20060102150405"

var (
	// earsNameRe matches EARS direct-broadcast names, e.g.
	// W_XX-EUMETSAT-kan,iasi,metopb+kan_C_EUMS_20170419171127_IASI_PW3_02_M01_20170419164952Z_20170419170214Z.hdf
	earsNameRe = regexp.MustCompile(`^W_XX-EUMETSAT-[^,]{3},iasi,[^+]{6}\+[^_]{3}_C_EUMS_\d{14}_IASI_PW3_02_([A-Z0-9]{3})_(\d{14})Z_(\d{14})Z`)

	// archiveNameRe matches EUMETSAT archive names, e.g.
	// IASI_PW3_02_M01_20160418132052Z_20160418132356Z_N_O_20160418140305Z.h5
	archiveNameRe = regexp.MustCompile(`^IASI_PW3_02_([A-Z0-9]{3})_(\d{14})Z_(\d{14})Z_N_O_\d{14}Z`)
)

// ParseSourceName extracts platform and sensing times from a source filename.
func ParseSourceName(name string) (GranuleInfo, error) {
	base := filepath.Base(name)

	m := earsNameRe.FindStringSubmatch(base)
	if m == nil {
		m = archiveNameRe.FindStringSubmatch(base)
	}
	if m == nil {
		return GranuleInfo{}, fmt.Errorf("%w: filename %q does not match a PW3 pattern", ErrFormat, base)
	}

	start, err := time.Parse(filenameTimeLayout, m[2])
	if err != nil {
		return GranuleInfo{}, fmt.Errorf("%w: start time in %q: %v", ErrFormat, base, err)
	}
	end, err := time.Parse(filenameTimeLayout, m[3])
	if err != nil {
		return GranuleInfo{}, fmt.Errorf("%w: end time in %q: %v", ErrFormat, base, err)
	}
	if end.Before(start) {
		return GranuleInfo{}, fmt.Errorf("%w: end time before start time in %q", ErrFormat, base)
	}

	return GranuleInfo{
		SourceName:   base,
		PlatformCode: m[1],
		Platform:     PlatformName(m[1]),
		Start:        start,
		End:          end,
	}, nil
}

// ProductBaseName turns a source filename into the stem shared by its
// products: everything before the first dot, with '+' and ',' replaced by '_'.
func ProductBaseName(source string) string {
	base := filepath.Base(source)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.NewReplacer("+", "_", ",", "_").Replace(base)
}

// ProductFileName returns the product filename for a source and variant.
func ProductFileName(source string, v Variant) string {
	return ProductBaseName(source) + "_" + v.Suffix() + ".nc"
}
