// Package errs defines the error kinds shared by the mesh packages. Specific
// errors wrap exactly one kind, so callers can match either with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrInvalidHandle             = errors.New("invalid handle")
	ErrDimensionMismatch         = errors.New("dimension mismatch")
	ErrUnsupportedElementType    = errors.New("unsupported element type")
	ErrNumericDegenerate         = errors.New("numerically degenerate")
	ErrSerializationIncompatible = errors.New("serialization incompatible")
	ErrStructuralPrecondition    = errors.New("structural precondition violated")
)

// Specific errors
var (
	ErrInvalidElementID  = kind(ErrInvalidHandle, "invalid element id")
	ErrInvalidVertexID   = kind(ErrInvalidHandle, "invalid vertex id")
	ErrInvalidRegionID   = kind(ErrInvalidHandle, "invalid region id")
	ErrInvalidMesh       = kind(ErrInvalidHandle, "invalid mesh")
	ErrInvalidVertexList = kind(ErrInvalidHandle, "invalid vertex list")

	ErrInvalidElementType = kind(ErrUnsupportedElementType, "invalid element type for dimension")

	ErrGeometricDimensionLocked = kind(ErrDimensionMismatch, "geometric dimension is locked")
	ErrTopologicalDimension     = kind(ErrDimensionMismatch, "invalid topological dimension")

	ErrRootMeshesMustDiffer = kind(ErrStructuralPrecondition, "root meshes must differ")
	ErrMeshMustBeRoot       = kind(ErrStructuralPrecondition, "mesh must be root")
	ErrMalformedMeshTree    = kind(ErrStructuralPrecondition, "malformed mesh tree")
	ErrInvalidLayout        = kind(ErrStructuralPrecondition, "invalid storage layout")

	ErrMagicMismatch   = kind(ErrSerializationIncompatible, "magic mismatch")
	ErrVersionMismatch = kind(ErrSerializationIncompatible, "version mismatch")
	ErrTruncated       = kind(ErrSerializationIncompatible, "truncated data")
	ErrTooLarge        = kind(ErrSerializationIncompatible, "decoded size limit exceeded")
)

type kindError struct {
	kind error
	msg  string
}

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Wrap attaches formatted context to err, keeping it matchable with errors.Is
func Wrap(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
