package domain

import "strings"

// platforms maps EUMETSAT platform codes to the names used by orbit tables.
var platforms = map[string]string{
	"M01":    "Metop-B",
	"M02":    "Metop-A",
	"M03":    "Metop-C",
	"METOPA": "Metop-A",
	"METOPB": "Metop-B",
	"METOPC": "Metop-C",
}

// PlatformName resolves a platform code. Unknown codes are returned as given.
func PlatformName(code string) string {
	if name, ok := platforms[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}
