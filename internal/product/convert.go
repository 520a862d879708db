package product

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
)

// Converter runs the full source-to-products conversion for one granule.
type Converter struct {
	transformer *Transformer
	encoder     *Encoder
	outputDir   string
	logger      *slog.Logger
}

// NewConverter creates a Converter writing products into outputDir.
func NewConverter(t *Transformer, e *Encoder, outputDir string, logger *slog.Logger) *Converter {
	return &Converter{transformer: t, encoder: e, outputDir: outputDir, logger: logger}
}

// Convert transforms sourcePath and writes one file per variant. Each product
// is first written under a temporary name in the output directory and only
// renamed once every variant has been encoded. On failure no product file is
// left behind. Artifacts are returned in domain.Variants order.
func (c *Converter) Convert(ctx context.Context, sourcePath string) ([]domain.OutputArtifact, error) {
	g, err := c.transformer.Transform(sourcePath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type pending struct {
		tmp, final string
		variant    domain.Variant
	}
	var staged []pending
	var renamed []string
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p.tmp) //nolint:errcheck // best-effort cleanup
		}
		for _, path := range renamed {
			os.Remove(path) //nolint:errcheck // best-effort cleanup
		}
	}

	for _, v := range domain.Variants {
		name := domain.ProductFileName(sourcePath, v)
		tmp, err := c.tempPath(name)
		if err != nil {
			cleanup()
			return nil, err
		}
		staged = append(staged, pending{tmp: tmp, final: filepath.Join(c.outputDir, name), variant: v})

		if err := c.encoder.Encode(g, tmp, name, v); err != nil {
			cleanup()
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
	}

	artifacts := make([]domain.OutputArtifact, 0, len(staged))
	for _, p := range staged {
		if err := os.Rename(p.tmp, p.final); err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: rename %s: %v", domain.ErrIO, p.final, err)
		}
		renamed = append(renamed, p.final)
		artifacts = append(artifacts, domain.NewOutputArtifact(p.final, p.variant))
	}

	c.logger.Info("products written",
		"granule", g.Info.SourceName,
		"platform", g.Info.Platform,
		"files", len(artifacts),
		"output_dir", c.outputDir,
	)
	return artifacts, nil
}

// tempPath reserves a unique temporary filename next to the final product.
func (c *Converter) tempPath(name string) (string, error) {
	f, err := os.CreateTemp(c.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", domain.ErrIO, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path) //nolint:errcheck // best-effort cleanup
		return "", fmt.Errorf("%w: close temp file: %v", domain.ErrIO, err)
	}
	return path, nil
}
