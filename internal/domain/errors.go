package domain

import "errors"

// Error taxonomy. Wrap these with fmt.Errorf("...: %w", ...) and classify
// with errors.Is.
var (
	// ErrValidation marks a malformed or irrelevant inbound notification.
	ErrValidation = errors.New("invalid notification")
	// ErrDuplicate marks a granule already admitted within the suppression window.
	ErrDuplicate = errors.New("duplicate granule")
	// ErrGeometry marks a relevance test that could not be evaluated.
	ErrGeometry = errors.New("geometry lookup failed")
	// ErrFormat marks a source file whose name or content does not match the schema.
	ErrFormat = errors.New("unexpected source format")
	// ErrIO marks a failed product write or rename.
	ErrIO = errors.New("product io failed")
)

// ErrorClass returns a short metric label for err.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrGeometry):
		return "geometry"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}
