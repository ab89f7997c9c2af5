package refine

import (
	"github.com/notargets/DGMesh/geometry"
	"github.com/notargets/DGMesh/hierarchy"
	"github.com/notargets/DGMesh/quantity"
)

// Selector picks the edges of a source mesh to split
type Selector func(src hierarchy.Mesh) ([]int, error)

// AllEdges splits every edge, the uniform refinement
func AllEdges() Selector {
	return func(src hierarchy.Mesh) ([]int, error) {
		return src.Elements(1)
	}
}

// EdgeSet splits exactly the listed edges
func EdgeSet(ids ...int) Selector {
	return func(hierarchy.Mesh) ([]int, error) {
		return append([]int(nil), ids...), nil
	}
}

// FieldFlags splits the edges whose flag value is non-zero
func FieldFlags(flags *quantity.Field[uint8]) Selector {
	return func(src hierarchy.Mesh) ([]int, error) {
		edges, err := src.Elements(1)
		if err != nil {
			return nil, err
		}
		var out []int
		for _, e := range edges {
			if v, ok := flags.Scalar(e); ok && v != 0 {
				out = append(out, e)
			}
		}
		return out, nil
	}
}

// LongerThan splits the edges longer than maxLen
func LongerThan(maxLen float64) Selector {
	return func(src hierarchy.Mesh) ([]int, error) {
		edges, err := src.Elements(1)
		if err != nil {
			return nil, err
		}
		var out []int
		for _, e := range edges {
			l, err := geometry.ElementVolume(src.Hierarchy(), 1, e)
			if err != nil {
				return nil, err
			}
			if l > maxLen {
				out = append(out, e)
			}
		}
		return out, nil
	}
}

// BoundaryEdges splits the edges on the boundary of the source mesh
func BoundaryEdges() Selector {
	return func(src hierarchy.Mesh) ([]int, error) {
		return src.BoundaryElements(1)
	}
}
