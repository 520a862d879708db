package domain

import (
	"path/filepath"
	"strings"
)

// Variant selects one of the two product framings written per granule.
type Variant int

const (
	VerticalProfile Variant = iota
	VerticalCrossSection
)

// Variants lists the variants in publication order.
var Variants = []Variant{VerticalProfile, VerticalCrossSection}

// Suffix is the filename tag of the variant.
func (v Variant) Suffix() string {
	if v == VerticalCrossSection {
		return "vcross"
	}
	return "vprof"
}

// ProductTag is the product identifier announced downstream.
func (v Variant) ProductTag() string {
	return "iasi_l2_" + v.Suffix()
}

func (v Variant) String() string { return v.Suffix() }

// VariantFromFilename derives the variant from a product filename.
func VariantFromFilename(name string) (Variant, bool) {
	base := filepath.Base(name)
	switch {
	case strings.Contains(base, "vcross"):
		return VerticalCrossSection, true
	case strings.Contains(base, "vprof"):
		return VerticalProfile, true
	default:
		return 0, false
	}
}

// OutputArtifact is one persisted product file.
type OutputArtifact struct {
	Path    string
	URI     string
	UID     string
	Variant Variant
}

// NewOutputArtifact describes a product file at path.
func NewOutputArtifact(path string, v Variant) OutputArtifact {
	return OutputArtifact{
		Path:    path,
		URI:     path,
		UID:     filepath.Base(path),
		Variant: v,
	}
}
