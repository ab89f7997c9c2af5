package hierarchy

import (
	"github.com/notargets/DGMesh/errs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func (m Mesh) rootHierarchy() (*Hierarchy, error) {
	if _, err := m.node(); err != nil {
		return nil, err
	}
	if !m.IsRoot() {
		return nil, errs.Wrap(errs.ErrMeshMustBeRoot, "mesh %q", m.Name())
	}
	return m.h, nil
}

// AffineTransform maps every vertex x of the hierarchy to A*x + b. A is a
// row-major D×D matrix and b a length D translation (nil for none), D being
// the geometric dimension. Only the root mesh may be transformed.
func (m Mesh) AffineTransform(A []float64, b []float64) error {
	h, err := m.rootHierarchy()
	if err != nil {
		return err
	}
	d := h.GeometricDimension()
	if len(A) != d*d {
		return errs.Wrap(errs.ErrDimensionMismatch, "matrix has %d entries, want %d", len(A), d*d)
	}
	if b != nil && len(b) != d {
		return errs.Wrap(errs.ErrDimensionMismatch, "translation has %d entries, want %d", len(b), d)
	}
	T := mat.NewDense(d, d, A)
	x := mat.NewVecDense(d, nil)
	y := mat.NewVecDense(d, nil)
	for v := 0; v < h.vertices.Len(); v++ {
		rec, _ := h.vertices.Ref(v)
		copy(x.RawVector().Data, rec)
		y.MulVec(T, x)
		copy(rec, y.RawVector().Data)
		if b != nil {
			floats.Add(rec, b)
		}
	}
	h.bump()
	return nil
}

// Scale maps every vertex x of the hierarchy to center + factor*(x - center).
// A nil center scales about the origin. Only the root mesh may be scaled.
func (m Mesh) Scale(factor float64, center []float64) error {
	h, err := m.rootHierarchy()
	if err != nil {
		return err
	}
	d := h.GeometricDimension()
	if center != nil && len(center) != d {
		return errs.Wrap(errs.ErrDimensionMismatch, "center has %d entries, want %d", len(center), d)
	}
	for v := 0; v < h.vertices.Len(); v++ {
		rec, _ := h.vertices.Ref(v)
		if center != nil {
			floats.Sub(rec, center)
		}
		floats.Scale(factor, rec)
		if center != nil {
			floats.Add(rec, center)
		}
	}
	h.bump()
	return nil
}
