package refine

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/geometry"
	"github.com/notargets/DGMesh/hierarchy"
	"github.com/notargets/DGMesh/quantity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build2D(t *testing.T, coords [][]float64, tris [][]int) *hierarchy.Hierarchy {
	t.Helper()
	h := hierarchy.New(hierarchy.WithGeometricDimension(2))
	for _, c := range coords {
		_, err := h.MakeVertex(c)
		require.NoError(t, err)
	}
	for _, tri := range tris {
		_, err := h.MakeElement(element.Triangle, tri)
		require.NoError(t, err)
	}
	return h
}

// unitSquare is two counter-clockwise triangles sharing the 0-2 diagonal
func unitSquare(t *testing.T) *hierarchy.Hierarchy {
	return build2D(t,
		[][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		[][]int{{0, 1, 2}, {0, 2, 3}})
}

func assertPositiveOrientation(t *testing.T, h *hierarchy.Hierarchy, cells []int) {
	t.Helper()
	for _, c := range cells {
		pts, err := geometry.ElementPoints(h, 2, c)
		require.NoError(t, err)
		v, err := geometry.SignedVolume(pts)
		require.NoError(t, err)
		assert.Greater(t, v, 0., "cell %d", c)
	}
}

func TestRefineConservesVolume(t *testing.T) {
	src := unitSquare(t)
	edges, err := src.Root().Elements(1)
	require.NoError(t, err)
	require.Len(t, edges, 5)
	want, err := geometry.MeshVolume(src.Root())
	require.NoError(t, err)

	for mask := 0; mask < 1<<len(edges); mask++ {
		var flagged []int
		for i, e := range edges {
			if mask&(1<<i) != 0 {
				flagged = append(flagged, e)
			}
		}
		t.Run(fmt.Sprintf("mask_%02d", mask), func(t *testing.T) {
			dst := hierarchy.New()
			res, err := Refine(src.Root(), EdgeSet(flagged...), dst.Root())
			require.NoError(t, err)
			assert.Equal(t, 2, dst.GeometricDimension())
			got, err := geometry.MeshVolume(dst.Root())
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1.e-3*want)
			assert.Equal(t, 4+len(flagged), dst.VertexCount())
			assertPositiveOrientation(t, dst, res.Cells)
		})
	}
}

func TestRefineCaseCoverage(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		t.Run(fmt.Sprintf("mask_%d", mask), func(t *testing.T) {
			src := build2D(t, [][]float64{{0, 0}, {2, 0}, {0.5, 1.5}}, [][]int{{0, 1, 2}})
			edges, err := src.BoundaryIDs(2, 0, 1)
			require.NoError(t, err)
			var flagged []int
			for i, e := range edges {
				if mask&(1<<i) != 0 {
					flagged = append(flagged, e)
				}
			}
			k := len(flagged)

			dst := hierarchy.New()
			res, err := Refine(src.Root(), EdgeSet(flagged...), dst.Root())
			require.NoError(t, err)
			assert.Len(t, res.Cells, k+1)
			assert.Equal(t, 1, res.Cases[k])

			union := make(map[int]struct{})
			for _, c := range res.Cells {
				verts, err := dst.VertexIDs(2, c)
				require.NoError(t, err)
				for _, v := range verts {
					union[v] = struct{}{}
				}
			}
			want := make(map[int]struct{})
			for _, v := range res.VertexMap {
				want[v] = struct{}{}
			}
			for _, e := range flagged {
				want[res.Midpoints[e]] = struct{}{}
			}
			assert.Equal(t, want, union)
			assert.Len(t, want, 3+k)
			assertPositiveOrientation(t, dst, res.Cells)
		})
	}
}

func TestRefineTwoEdgeDiagonal(t *testing.T) {
	src := build2D(t, [][]float64{{0, 0}, {1, 0}, {0, 1}}, [][]int{{0, 1, 2}})
	ab, ok := src.FindElement(element.Line, []int{0, 1})
	require.True(t, ok)
	bc, ok := src.FindElement(element.Line, []int{1, 2})
	require.True(t, ok)

	dst := hierarchy.New()
	res, err := Refine(src.Root(), EdgeSet(ab, bc), dst.Root())
	require.NoError(t, err)
	require.Len(t, res.Cells, 3)

	// |a - mid(bc)| is shorter than |mid(ab) - c|, so the quadrilateral is
	// cut from a
	a := res.VertexMap[0]
	_, ok = dst.FindElement(element.Line, []int{a, res.Midpoints[bc]})
	assert.True(t, ok)
	_, ok = dst.FindElement(element.Line, []int{res.Midpoints[ab], res.VertexMap[2]})
	assert.False(t, ok)
}

// The diagonal comparison joins the midpoint of the longer flagged edge to the
// opposite vertex, and mid(bc) to a on equal flagged edges
func TestRefineTwoEdgeFollowsLongerEdge(t *testing.T) {
	cases := []struct {
		name   string
		coords [][]float64
		fromA  bool // cut runs a to mid(bc)
	}{
		{"ab longer", [][]float64{{0, 0}, {2, 0}, {2, 1}}, false},
		{"bc longer", [][]float64{{0, 0}, {1, 0}, {1, 2}}, true},
		{"equal edges", [][]float64{{0, 0}, {1, 0}, {1, 1}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := build2D(t, c.coords, [][]int{{0, 1, 2}})
			ab, ok := src.FindElement(element.Line, []int{0, 1})
			require.True(t, ok)
			bc, ok := src.FindElement(element.Line, []int{1, 2})
			require.True(t, ok)

			dst := hierarchy.New()
			res, err := Refine(src.Root(), EdgeSet(ab, bc), dst.Root())
			require.NoError(t, err)
			require.Len(t, res.Cells, 3)
			assertPositiveOrientation(t, dst, res.Cells)

			_, fromA := dst.FindElement(element.Line, []int{res.VertexMap[0], res.Midpoints[bc]})
			_, fromC := dst.FindElement(element.Line, []int{res.Midpoints[ab], res.VertexMap[2]})
			assert.Equal(t, c.fromA, fromA)
			assert.Equal(t, !c.fromA, fromC)
		})
	}
}

func TestRefineSharedMidpoint(t *testing.T) {
	src := unitSquare(t)
	diag, ok := src.FindElement(element.Line, []int{2, 0})
	require.True(t, ok)

	dst := hierarchy.New()
	res, err := Refine(src.Root(), EdgeSet(diag), dst.Root())
	require.NoError(t, err)
	assert.Equal(t, 5, dst.VertexCount())
	assert.Len(t, res.Cells, 4)
	assert.Equal(t, 2, res.Cases[1])

	m := res.Midpoints[diag]
	x, err := dst.Vertex(m)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, x)

	// Both halves of the diagonal are single edges shared by two cells
	for _, end := range []int{0, 2} {
		e, ok := dst.FindElement(element.Line, []int{res.VertexMap[end], m})
		require.True(t, ok)
		co, err := dst.Root().Coboundary(1, e, 2)
		require.NoError(t, err)
		assert.Len(t, co, 2)
	}
}

func TestRefineParentsAndRegions(t *testing.T) {
	src := unitSquare(t)
	r, err := src.GetMakeRegion(3)
	require.NoError(t, err)
	r.SetName("left")
	require.NoError(t, src.AddToRegion(2, 1, r.ID()))

	dst := hierarchy.New()
	res, err := Refine(src.Root(), AllEdges(), dst.Root())
	require.NoError(t, err)
	require.Len(t, res.Cells, 8)

	dr, err := dst.Region(3)
	require.NoError(t, err)
	assert.Equal(t, "left", dr.Name())
	for _, c := range res.Cells {
		p, err := dst.ParentID(2, c)
		require.NoError(t, err)
		assert.Equal(t, res.Parents[c], p)
		regions, err := dst.ElementRegions(2, c)
		require.NoError(t, err)
		if p == 1 {
			assert.Equal(t, []int{3}, regions)
		} else {
			assert.Empty(t, regions)
		}
	}
}

func TestRefinePreconditions(t *testing.T) {
	src := unitSquare(t)
	_, err := Refine(src.Root(), AllEdges(), src.Root())
	assert.True(t, errors.Is(err, errs.ErrRootMeshesMustDiffer))
	assert.True(t, errors.Is(err, errs.ErrStructuralPrecondition))

	child, err := src.Root().MakeChild("child")
	require.NoError(t, err)
	_, err = Refine(src.Root(), AllEdges(), child)
	assert.True(t, errors.Is(err, errs.ErrRootMeshesMustDiffer))

	quads := hierarchy.New(hierarchy.WithGeometricDimension(2))
	for _, c := range [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		_, err := quads.MakeVertex(c)
		require.NoError(t, err)
	}
	_, err = quads.MakeElement(element.Quadrilateral, []int{0, 1, 2, 3})
	require.NoError(t, err)
	dst := hierarchy.New()
	_, err = Refine(quads.Root(), AllEdges(), dst.Root())
	assert.True(t, errors.Is(err, errs.ErrUnsupportedElementType))
	assert.Equal(t, 0, dst.VertexCount(), "destination untouched")
	assert.Equal(t, 3, dst.GeometricDimension(), "destination dimension untouched")

	dst = hierarchy.New()
	_, err = Refine(src.Root(), EdgeSet(42), dst.Root())
	assert.True(t, errors.Is(err, errs.ErrInvalidElementID))
	assert.Equal(t, 3, dst.GeometricDimension(), "destination dimension untouched")

	locked := hierarchy.New()
	_, err = locked.MakeVertex([]float64{0, 0, 0})
	require.NoError(t, err)
	_, err = Refine(src.Root(), AllEdges(), locked.Root())
	assert.True(t, errors.Is(err, errs.ErrGeometricDimensionLocked))
}

func TestRefineVerticesOnly(t *testing.T) {
	src := hierarchy.New(hierarchy.WithGeometricDimension(2))
	for _, c := range [][]float64{{0, 0}, {3, 1}} {
		_, err := src.MakeVertex(c)
		require.NoError(t, err)
	}
	dst := hierarchy.New()
	res, err := Refine(src.Root(), AllEdges(), dst.Root())
	require.NoError(t, err)
	assert.Empty(t, res.Cells)
	assert.Equal(t, 2, dst.VertexCount())
	x, err := dst.Vertex(res.VertexMap[1])
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, x)
}

func TestSelectors(t *testing.T) {
	src := unitSquare(t)
	root := src.Root()
	diag, ok := src.FindElement(element.Line, []int{0, 2})
	require.True(t, ok)

	long, err := LongerThan(1.2)(root)
	require.NoError(t, err)
	assert.Equal(t, []int{diag}, long)

	bnd, err := BoundaryEdges()(root)
	require.NoError(t, err)
	assert.Len(t, bnd, 4)
	assert.NotContains(t, bnd, diag)

	flags, err := quantity.ByteField("refine", quantity.Sparse)
	require.NoError(t, err)
	require.NoError(t, flags.SetScalar(diag, 1))
	other := bnd[0]
	require.NoError(t, flags.SetScalar(other, 0))
	sel, err := FieldFlags(flags)(root)
	require.NoError(t, err)
	assert.Equal(t, []int{diag}, sel)
}

func TestFieldTransfer(t *testing.T) {
	src := unitSquare(t)
	diag, ok := src.FindElement(element.Line, []int{0, 2})
	require.True(t, ok)
	dst := hierarchy.New()
	res, err := Refine(src.Root(), EdgeSet(diag), dst.Root())
	require.NoError(t, err)

	temp, err := quantity.NewField[float64]("temperature", quantity.Dense, 1)
	require.NoError(t, err)
	for v := 0; v < src.VertexCount(); v++ {
		x, err := src.Vertex(v)
		require.NoError(t, err)
		require.NoError(t, temp.SetScalar(v, x[0]+x[1]))
	}
	out, err := res.InterpolateVertexField(temp)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	mv, ok := out.Scalar(res.Midpoints[diag])
	require.True(t, ok)
	assert.InDelta(t, 1., mv, 1.e-15)

	pressure, err := quantity.NewField[float64]("pressure", quantity.Sparse, 2)
	require.NoError(t, err)
	require.NoError(t, pressure.Set(0, []float64{1, math.Pi}))
	cells, err := res.TransferCellField(pressure)
	require.NoError(t, err)
	var n int
	for _, c := range res.Cells {
		v, ok := cells.Get(c)
		if res.Parents[c] == 0 {
			require.True(t, ok)
			assert.Equal(t, []float64{1, math.Pi}, v)
			n++
		} else {
			assert.False(t, ok)
		}
	}
	assert.Equal(t, 2, n)
}
