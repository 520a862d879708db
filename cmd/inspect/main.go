// Command inspect converts IASI L2 source granules into vertical-profile and
// vertical cross-section products without a message bus. It is meant for
// operators reprocessing archived files or checking a suspect granule.
//
// Usage:
//
//	go run ./cmd/inspect \
//	  -output-dir /tmp/products \
//	  -areas configs/areas.yaml -area euron1 -tle configs/tle.txt \
//	  /data/iasi/IASI_PW3_02_M01_20230327091606Z_20230327092820Z_N_O_20230327101110Z.h5
//
// Without -tle, the area gate is skipped and every file is converted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/iasi-l2-converter/internal/adapter/hdf5"
	"github.com/couchcryptid/iasi-l2-converter/internal/adapter/netcdf"
	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/geometry"
	"github.com/couchcryptid/iasi-l2-converter/internal/product"
)

type options struct {
	outputDir string
	areasFile string
	areaID    string
	tleFile   string
	logLevel  string
	sources   []string
}

func main() {
	var opts options
	flag.StringVar(&opts.outputDir, "output-dir", ".", "directory to write products to")
	flag.StringVar(&opts.areasFile, "areas", "configs/areas.yaml", "area definitions file")
	flag.StringVar(&opts.areaID, "area", "euron1", "area of interest id")
	flag.StringVar(&opts.tleFile, "tle", "", "two-line element file; enables the area gate")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flag.Parse()
	opts.sources = flag.Args()

	if len(opts.sources) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	logger := sharedobs.NewLogger(opts.logLevel, "text")

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		return 1
	}

	var filter *geometry.Filter
	if opts.tleFile != "" {
		f, err := loadFilter(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load area gate: %v\n", err)
			return 1
		}
		filter = f
	}

	converter := product.NewConverter(
		product.NewTransformer(hdf5.NewReader(logger), logger),
		product.NewEncoder(netcdf.Create),
		opts.outputDir,
		logger,
	)

	failed := 0
	for _, src := range opts.sources {
		if err := inspect(context.Background(), converter, filter, src, logger); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", filepath.Base(src), err)
			failed++
		}
	}

	fmt.Printf("%d of %d granules converted\n", len(opts.sources)-failed, len(opts.sources))
	if failed > 0 {
		return 1
	}
	return 0
}

func loadFilter(opts options) (*geometry.Filter, error) {
	area, err := geometry.LoadArea(opts.areasFile, opts.areaID)
	if err != nil {
		return nil, err
	}
	pos, err := geometry.LoadTLE(opts.tleFile)
	if err != nil {
		return nil, err
	}
	return geometry.NewFilter(pos, area), nil
}

func inspect(ctx context.Context, c *product.Converter, filter *geometry.Filter, src string, logger *slog.Logger) error {
	info, err := domain.ParseSourceName(filepath.Base(src))
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  platform %s (%s)\n  sensing  %s .. %s\n",
		info.SourceName, info.Platform, info.PlatformCode,
		info.Start.Format("2006-01-02T15:04:05Z"), info.End.Format("2006-01-02T15:04:05Z"))

	if filter != nil {
		relevant, err := filter.IsRelevant(info.Start, info.End, info.PlatformCode)
		if err != nil {
			return err
		}
		if !relevant {
			fmt.Printf("  outside area %s, skipped\n", filter.Area().ID)
			return nil
		}
	}

	artifacts, err := c.Convert(ctx, src)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		fmt.Printf("  %-15s %s\n", a.Variant.ProductTag(), a.Path)
	}
	logger.Debug("granule inspected", "source", src, "products", len(artifacts))
	return nil
}
