package hierarchy

import (
	"fmt"

	"github.com/notargets/DGMesh/errs"
)

// VertexStore is a flat coordinate buffer holding one fixed-stride record per
// vertex id.
type VertexStore struct {
	dim    int       // Geometric dimension, the record stride
	coords []float64 // Length Len()*dim
}

func newVertexStore(dim int) VertexStore {
	return VertexStore{dim: dim}
}

// Len returns the number of vertices
func (vs *VertexStore) Len() int {
	if vs.dim == 0 {
		return 0
	}
	return len(vs.coords) / vs.dim
}

// Dimension returns the geometric dimension (record stride)
func (vs *VertexStore) Dimension() int { return vs.dim }

func (vs *VertexStore) checkID(id int) error {
	if id < 0 || id >= vs.Len() {
		return errs.Wrap(errs.ErrInvalidVertexID, "vertex %d of %d", id, vs.Len())
	}
	return nil
}

func (vs *VertexStore) checkCoords(coords []float64) error {
	if len(coords) != vs.dim {
		return errs.Wrap(errs.ErrDimensionMismatch,
			"got %d coordinates for geometric dimension %d", len(coords), vs.dim)
	}
	return nil
}

func (vs *VertexStore) append(coords []float64) (int, error) {
	if err := vs.checkCoords(coords); err != nil {
		return -1, err
	}
	id := vs.Len()
	vs.coords = append(vs.coords, coords...)
	return id, nil
}

// Get returns a copy of the coordinates of vertex id
func (vs *VertexStore) Get(id int) ([]float64, error) {
	if err := vs.checkID(id); err != nil {
		return nil, err
	}
	out := make([]float64, vs.dim)
	copy(out, vs.coords[id*vs.dim:(id+1)*vs.dim])
	return out, nil
}

// Ref returns the coordinate record of vertex id in place. Writes through the
// slice change the stored vertex. The slice must not be held across a vertex
// creation: the backing buffer may be reallocated.
func (vs *VertexStore) Ref(id int) ([]float64, error) {
	if err := vs.checkID(id); err != nil {
		return nil, err
	}
	return vs.coords[id*vs.dim : (id+1)*vs.dim : (id+1)*vs.dim], nil
}

// Set overwrites the coordinates of vertex id
func (vs *VertexStore) Set(id int, coords []float64) error {
	if err := vs.checkID(id); err != nil {
		return err
	}
	if err := vs.checkCoords(coords); err != nil {
		return err
	}
	copy(vs.coords[id*vs.dim:], coords)
	return nil
}

// Coordinates returns a copy of the flattened coordinate buffer
func (vs *VertexStore) Coordinates() []float64 {
	out := make([]float64, len(vs.coords))
	copy(out, vs.coords)
	return out
}

func (vs *VertexStore) setDimension(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("geometric dimension must be positive, got %d", dim)
	}
	if len(vs.coords) > 0 && dim != vs.dim {
		return errs.Wrap(errs.ErrGeometricDimensionLocked,
			"%d vertices stored with dimension %d", vs.Len(), vs.dim)
	}
	vs.dim = dim
	return nil
}

func (vs *VertexStore) reset() {
	vs.coords = nil
}
