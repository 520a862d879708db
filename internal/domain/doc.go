// Package domain models EUMETSAT IASI level-2 (PW3) granules and the
// notifications that announce them.
//
// # Data Source
//
// Granules arrive as HDF5 files from the EARS direct-broadcast network. Each
// file holds one ~3 to 15 minute slice of a Metop pass. The filename encodes
// the platform code and the sensing start/end times, e.g.
//
//	W_XX-EUMETSAT-kan,iasi,metopb+kan_C_EUMS_20170419171127_IASI_PW3_02_M01_20170419164952Z_20170419170214Z.hdf
//
// Platform codes follow the EUMETSAT convention: M01 is Metop-B, M02 is
// Metop-A, M03 is Metop-C. See [PlatformName].
//
// # Scan Geometry
//
// IASI measures four fields of view (FOVs) per dwell, laid out as a 2x2 square
// on the ground. The PW3 product stores them flattened in scan order: 30 dwells
// of 4 FOVs give 120 samples per scan line. FOV positions 3 and 0 sit on one
// ground row, 2 and 1 on the next. [InterleaveIndex] splits every physical
// scan line into those two virtual scan lines so that the output grid has
// twice the along-track and half the cross-track resolution of the input:
//
//	input  (R, C)      -> output (2R, C/2)
//	row 2r   : 3, 0, 7, 4, 11, 8, ...   (offset by 4 per dwell)
//	row 2r+1 : 2, 1, 6, 5, 10, 9, ...
//
// The mapping is a permutation; no value is duplicated, dropped or resampled.
//
// # Missing Data
//
// Raw samples above [DataUpperLimit] are missing. They are carried as NaN
// while the granule is in memory and written as [FillValue] in products.
//
// # Dew Point
//
// Dew point is derived from specific humidity, temperature and pressure using
// the Bolton (1980) saturation vapour pressure approximation. Relative
// humidity is clamped to [0, 100] percent before inversion, so supersaturated
// or negative humidity inputs are silently pulled onto the valid range. See
// [DewPoint].
package domain
