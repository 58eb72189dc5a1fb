package atlas

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to classify errors returned by the package.
var (
	ErrValidation = errors.New("validation error")
	ErrRange      = errors.New("range error")
	ErrIndex      = errors.New("index error")
)

// ValidationError reports malformed input shapes or invalid options.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RangeError reports a triangle index outside the mesh's vertex range.
type RangeError struct {
	Triangle    int
	Index       uint32
	VertexCount int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("index %d of triangle %d out of range (mesh has %d vertices)",
		e.Index, e.Triangle, e.VertexCount)
}

// Unwrap returns ErrRange.
func (e *RangeError) Unwrap() error { return ErrRange }

// IndexError reports retrieval of a mesh that has no result.
type IndexError struct {
	Index int
	// Count is the number of meshes the last Generate produced results for.
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("mesh index %d out of bounds for atlas with %d generated meshes.", e.Index, e.Count)
}

// Unwrap returns ErrIndex.
func (e *IndexError) Unwrap() error { return ErrIndex }
