package refine

import (
	"github.com/notargets/DGMesh/hierarchy"
	"github.com/notargets/DGMesh/quantity"
)

// Result records how a refined mesh relates to its source
type Result struct {
	Src, Dst hierarchy.Mesh

	VertexMap map[int]int // Source vertex -> destination vertex
	Midpoints map[int]int // Source edge -> destination midpoint vertex
	Parents   map[int]int // Destination cell -> source cell
	Cells     []int       // Destination cells in creation order

	// Cases counts source cells by number of split edges
	Cases [4]int
}

func newResult(src, dst hierarchy.Mesh) *Result {
	return &Result{
		Src:       src,
		Dst:       dst,
		VertexMap: make(map[int]int),
		Midpoints: make(map[int]int),
		Parents:   make(map[int]int),
	}
}

// InterpolateVertexField carries a vertex field onto the destination
// vertices. Copied vertices keep their value and a midpoint gets the mean of
// its edge's end values when both are set.
func (r *Result) InterpolateVertexField(src *quantity.Field[float64]) (*quantity.Field[float64], error) {
	out, err := quantity.NewField[float64](src.Name(), src.Layout(), src.Width())
	if err != nil {
		return nil, err
	}
	for s, d := range r.VertexMap {
		if v, ok := src.Get(s); ok {
			if err = out.Set(d, v); err != nil {
				return nil, err
			}
		}
	}
	sh := r.Src.Hierarchy()
	for e, d := range r.Midpoints {
		ends, err := sh.VertexIDs(1, e)
		if err != nil {
			return nil, err
		}
		v0, ok0 := src.Get(ends[0])
		v1, ok1 := src.Get(ends[1])
		if !ok0 || !ok1 {
			continue
		}
		for i := range v0 {
			v0[i] = 0.5 * (v0[i] + v1[i])
		}
		if err = out.Set(d, v0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TransferCellField gives every destination cell the value of its parent cell
func (r *Result) TransferCellField(src *quantity.Field[float64]) (*quantity.Field[float64], error) {
	out, err := quantity.NewField[float64](src.Name(), src.Layout(), src.Width())
	if err != nil {
		return nil, err
	}
	for _, c := range r.Cells {
		v, ok := src.Get(r.Parents[c])
		if !ok {
			continue
		}
		if err = out.Set(c, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
