package hierarchy

import (
	"errors"
	"sort"
	"testing"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTets builds two tetrahedra sharing the facet (1,2,3)
func twoTets(t *testing.T) (h *Hierarchy, tets []int) {
	h = New()
	coords := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1},
	}
	for _, c := range coords {
		_, err := h.MakeVertex(c)
		require.NoError(t, err)
	}
	t0, err := h.MakeElement(element.Tetrahedron, []int{0, 1, 2, 3})
	require.NoError(t, err)
	t1, err := h.MakeElement(element.Tetrahedron, []int{1, 2, 3, 4})
	require.NoError(t, err)
	return h, []int{t0, t1}
}

func TestMakeElementDedup(t *testing.T) {
	h, tets := twoTets(t)
	assert.Equal(t, 5, h.VertexCount())
	assert.Equal(t, 9, h.ElementCount(1))
	assert.Equal(t, 7, h.ElementCount(2))
	assert.Equal(t, 2, h.ElementCount(3))

	counter := h.ChangeCounter()
	again, err := h.MakeElement(element.Tetrahedron, []int{3, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, tets[0], again)
	assert.Equal(t, 2, h.ElementCount(3))
	assert.Equal(t, counter, h.ChangeCounter(), "lookup hit must not bump the change counter")

	// Every permutation of a facet resolves to the same element
	perms := [][]int{{1, 2, 3}, {1, 3, 2}, {2, 1, 3}, {2, 3, 1}, {3, 1, 2}, {3, 2, 1}}
	first, err := h.MakeElement(element.Triangle, perms[0])
	require.NoError(t, err)
	for _, p := range perms[1:] {
		id, err := h.MakeElement(element.Triangle, p)
		require.NoError(t, err)
		assert.Equal(t, first, id, "%v", p)
	}
	assert.Equal(t, 7, h.ElementCount(2))

	// Same vertex set with a different type is a distinct element
	h2 := New(WithGeometricDimension(2))
	for _, c := range [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		_, err := h2.MakeVertex(c)
		require.NoError(t, err)
	}
	q, err := h2.MakeElement(element.Quadrilateral, []int{0, 1, 2, 3})
	require.NoError(t, err)
	p, err := h2.MakeElement(element.Polygon, []int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.NotEqual(t, q, p)
	assert.Equal(t, 2, h2.ElementCount(2))
	assert.Equal(t, 4, h2.ElementCount(1), "quad and polygon share their edges")
}

func TestBoundaryListsFollowLayout(t *testing.T) {
	h, tets := twoTets(t)
	verts, err := h.VertexIDs(3, tets[1])
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, verts)

	for _, bdim := range []int{1, 2} {
		ids, err := h.BoundaryIDs(3, tets[1], bdim)
		require.NoError(t, err)
		layout, err := element.BoundaryLayout(element.Tetrahedron, bdim, 4)
		require.NoError(t, err)
		require.Len(t, ids, len(layout))
		for i, sub := range layout {
			got, err := h.VertexIDs(bdim, ids[i])
			require.NoError(t, err)
			assert.ElementsMatch(t, element.BoundaryVertices(sub, verts), got)
		}
	}

	// Triangle facets carry their own edges
	faces, err := h.BoundaryIDs(3, tets[0], 2)
	require.NoError(t, err)
	edges, err := h.BoundaryIDs(2, faces[0], 1)
	require.NoError(t, err)
	assert.Len(t, edges, 3)

	_, err = h.BoundaryIDs(3, 99, 0)
	assert.True(t, errors.Is(err, errs.ErrInvalidElementID))
	assert.True(t, errors.Is(err, errs.ErrInvalidHandle))
	_, err = h.BoundaryIDs(2, 0, 3)
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))
}

func TestMakeElementRejectsBadInput(t *testing.T) {
	h, _ := twoTets(t)
	eb, err := h.Buffer(2)
	require.NoError(t, err)
	_, _, err = eb.MakeElement(element.Tetrahedron, []int{0, 1, 2, 3})
	assert.True(t, errors.Is(err, errs.ErrInvalidElementType))
	assert.True(t, errors.Is(err, errs.ErrUnsupportedElementType))

	_, err = h.MakeElement(element.NoElement, []int{0})
	assert.True(t, errors.Is(err, errs.ErrUnsupportedElementType))
	_, err = h.MakeElement(element.Triangle, []int{0, 1, 7})
	assert.True(t, errors.Is(err, errs.ErrInvalidVertexID))
	_, err = h.MakeElement(element.Triangle, []int{0, 1, 1})
	assert.True(t, errors.Is(err, errs.ErrInvalidVertexList))
	_, err = h.MakeElement(element.Triangle, []int{0, 1})
	assert.True(t, errors.Is(err, errs.ErrInvalidVertexList))
	_, err = h.MakeVertex([]float64{1, 2})
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))
}

func TestGeometricDimensionLock(t *testing.T) {
	h := New()
	require.NoError(t, h.SetGeometricDimension(2))
	_, err := h.MakeVertex([]float64{0, 0})
	require.NoError(t, err)
	require.NoError(t, h.SetGeometricDimension(2))
	err = h.SetGeometricDimension(3)
	assert.True(t, errors.Is(err, errs.ErrGeometricDimensionLocked))
	assert.Equal(t, 2, h.GeometricDimension())

	h.Clear()
	require.NoError(t, h.SetGeometricDimension(3))
}

func TestIsBoundaryMatchesCoboundaryCount(t *testing.T) {
	h, tets := twoTets(t)
	root := h.Root()

	facets, err := root.Elements(2)
	require.NoError(t, err)
	require.Len(t, facets, 7)
	var nBoundary int
	for _, f := range facets {
		co, err := root.Coboundary(2, f, 3)
		require.NoError(t, err)
		isB, err := root.IsBoundary(2, f)
		require.NoError(t, err)
		assert.Equal(t, len(co) == 1, isB, "facet %d", f)
		if isB {
			nBoundary++
		}
	}
	assert.Equal(t, 6, nBoundary)

	shared, ok := h.FindElement(element.Triangle, []int{3, 1, 2})
	require.True(t, ok)
	isB, err := root.IsBoundary(2, shared)
	require.NoError(t, err)
	assert.False(t, isB)

	// Every edge and vertex of this mesh lies on the hull
	for _, e := range mustElements(t, root, 1) {
		isB, err := root.IsBoundary(1, e)
		require.NoError(t, err)
		assert.True(t, isB, "edge %d", e)
	}
	for _, c := range tets {
		isB, err := root.IsBoundary(3, c)
		require.NoError(t, err)
		assert.False(t, isB)
	}
	bf, err := root.BoundaryElements(2)
	require.NoError(t, err)
	assert.Len(t, bf, 6)
}

func TestBoundaryCacheInvalidation(t *testing.T) {
	h, _ := twoTets(t)
	root := h.Root()
	face, ok := h.FindElement(element.Triangle, []int{0, 1, 2})
	require.True(t, ok)

	isB, err := root.IsBoundary(2, face)
	require.NoError(t, err)
	assert.True(t, isB)
	n := h.meshes[0]
	assert.False(t, n.caches.boundary.stale(h.ChangeCounter()))

	v, err := h.MakeVertex([]float64{0.2, 0.2, -1})
	require.NoError(t, err)
	assert.True(t, n.caches.boundary.stale(h.ChangeCounter()))
	_, err = h.MakeElement(element.Tetrahedron, []int{0, 1, 2, v})
	require.NoError(t, err)

	isB, err = root.IsBoundary(2, face)
	require.NoError(t, err)
	assert.False(t, isB, "facet shared by the new cell is interior")
}

func TestRegionDownwardClosure(t *testing.T) {
	h, tets := twoTets(t)
	r := h.MakeRegion()
	r.SetName("solid")
	require.NoError(t, h.AddToRegion(3, tets[0], r.ID()))
	require.NoError(t, h.AddToRegion(3, tets[0], r.ID()))

	for bdim := 0; bdim < 3; bdim++ {
		ids, err := h.BoundaryIDs(3, tets[0], bdim)
		require.NoError(t, err)
		for _, id := range ids {
			regions, err := h.ElementRegions(bdim, id)
			require.NoError(t, err)
			assert.Equal(t, []int{r.ID()}, regions, "dim %d id %d", bdim, id)
		}
	}
	regions, err := h.ElementRegions(0, 4)
	require.NoError(t, err)
	assert.Empty(t, regions, "vertex 4 belongs only to the second cell")

	err = h.AddToRegion(3, tets[1], 42)
	assert.True(t, errors.Is(err, errs.ErrInvalidRegionID))
}

func TestRegionRegistry(t *testing.T) {
	h := New()
	r0 := h.MakeRegion()
	r5, err := h.GetMakeRegion(5)
	require.NoError(t, err)
	same, err := h.GetMakeRegion(5)
	require.NoError(t, err)
	assert.Same(t, r5, same)
	r6 := h.MakeRegion()
	assert.Equal(t, 0, r0.ID())
	assert.Equal(t, 6, r6.ID())
	assert.Equal(t, 3, h.RegionCount())

	r5.SetName("inlet")
	found, ok := h.RegionByName("inlet")
	require.True(t, ok)
	assert.Equal(t, 5, found.ID())
	_, err = h.Region(4)
	assert.True(t, errors.Is(err, errs.ErrInvalidRegionID))
	_, err = h.GetMakeRegion(-1)
	assert.Error(t, err)

	ids := make([]int, 0)
	for _, r := range h.Regions() {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []int{0, 5, 6}, ids)
}

func TestRegionScopedBoundary(t *testing.T) {
	h, tets := twoTets(t)
	r := h.MakeRegion()
	require.NoError(t, h.AddToRegion(3, tets[0], r.ID()))
	root := h.Root()

	shared, ok := h.FindElement(element.Triangle, []int{1, 2, 3})
	require.True(t, ok)
	isB, err := root.IsRegionBoundary(r.ID(), 2, shared)
	require.NoError(t, err)
	assert.True(t, isB, "shared facet bounds the region")

	other, ok := h.FindElement(element.Triangle, []int{2, 3, 4})
	require.True(t, ok)
	isB, err = root.IsRegionBoundary(r.ID(), 2, other)
	require.NoError(t, err)
	assert.False(t, isB)

	_, err = root.IsRegionBoundary(9, 2, shared)
	assert.True(t, errors.Is(err, errs.ErrInvalidRegionID))
}

func TestNeighbors(t *testing.T) {
	h, tets := twoTets(t)
	root := h.Root()

	nb, err := root.Neighbors(3, tets[0], 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{tets[1]}, nb)

	nb, err = root.Neighbors(0, 0, 1, 0)
	require.NoError(t, err)
	sort.Ints(nb)
	assert.Equal(t, []int{1, 2, 3}, nb)

	nb, err = root.Neighbors(0, 4, 3, 0)
	require.NoError(t, err)
	sort.Ints(nb)
	assert.Equal(t, []int{1, 2, 3}, nb)

	_, err = root.Neighbors(3, tets[0], 3, 3)
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))

	co, err := root.Coboundary(0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, tets, co)
	_, err = root.Coboundary(2, 0, 1)
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))
}

func TestMeshTreeMembership(t *testing.T) {
	h, tets := twoTets(t)
	root := h.Root()
	fluid, err := root.MakeChild("fluid")
	require.NoError(t, err)
	inner, err := fluid.MakeChild("inner")
	require.NoError(t, err)

	require.NoError(t, inner.AddElement(3, tets[1]))
	require.NoError(t, inner.AddElement(3, tets[1]))
	for _, m := range []Mesh{inner, fluid} {
		assert.Equal(t, []int{tets[1]}, mustElements(t, m, 3))
		assert.Equal(t, 4, m.ElementCount(2))
		assert.Equal(t, 6, m.ElementCount(1))
		assert.Equal(t, 4, m.ElementCount(0))
		assert.True(t, m.Contains(0, 4))
		assert.False(t, m.Contains(0, 0))
	}
	parent, ok := inner.Parent()
	require.True(t, ok)
	assert.Equal(t, fluid.Index(), parent.Index())
	_, ok = root.Parent()
	assert.False(t, ok)
	assert.Len(t, root.Children(), 1)
	assert.Equal(t, "inner", fluid.Children()[0].Name())

	// In the single-cell child mesh every facet is boundary
	face, ok := h.FindElement(element.Triangle, []int{1, 2, 3})
	require.True(t, ok)
	isB, err := inner.IsBoundary(2, face)
	require.NoError(t, err)
	assert.True(t, isB)

	v, err := inner.MakeVertex([]float64{5, 5, 5})
	require.NoError(t, err)
	assert.True(t, root.Contains(0, v))
	assert.True(t, fluid.Contains(0, v))

	err = inner.AddElement(3, 12)
	assert.True(t, errors.Is(err, errs.ErrInvalidElementID))
}

func TestClearInvalidatesMeshHandles(t *testing.T) {
	h, _ := twoTets(t)
	child, err := h.Root().MakeChild("child")
	require.NoError(t, err)
	h.MakeRegion()
	h.Clear()

	assert.False(t, child.Valid())
	_, err = child.Elements(0)
	assert.True(t, errors.Is(err, errs.ErrInvalidMesh))
	assert.Equal(t, 0, h.VertexCount())
	assert.Equal(t, 0, h.ElementCount(3))
	assert.Equal(t, 0, h.RegionCount())
	assert.Equal(t, 1, h.MeshCount())
	assert.True(t, h.Root().Valid())
	assert.Equal(t, -1, h.CellDimension())
}

func TestParentIDs(t *testing.T) {
	h, tets := twoTets(t)
	p, err := h.ParentID(3, tets[0])
	require.NoError(t, err)
	assert.Equal(t, NoParent, p)
	eb, err := h.Buffer(3)
	require.NoError(t, err)
	assert.False(t, eb.HasParents())

	before := h.ChangeCounter()
	require.NoError(t, h.SetParentID(3, tets[0], 17))
	assert.Greater(t, h.ChangeCounter(), before)
	p, err = h.ParentID(3, tets[0])
	require.NoError(t, err)
	assert.Equal(t, 17, p)
	assert.True(t, eb.HasParents())

	assert.Error(t, h.SetParentID(3, tets[0], -4))
}

func TestTransforms(t *testing.T) {
	h, _ := twoTets(t)
	root := h.Root()
	require.NoError(t, root.Scale(2, []float64{1, 0, 0}))
	v, err := h.Vertex(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 0}, v)

	// Rotate 90 degrees about z and shift
	A := []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	}
	require.NoError(t, root.AffineTransform(A, []float64{0, 0, 1}))
	v, err = h.Vertex(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -1, 1}, v, 1.e-14)

	child, err := root.MakeChild("c")
	require.NoError(t, err)
	err = child.Scale(2, nil)
	assert.True(t, errors.Is(err, errs.ErrMeshMustBeRoot))
	assert.True(t, errors.Is(err, errs.ErrStructuralPrecondition))
	err = root.AffineTransform([]float64{1, 0, 0, 1}, nil)
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))
}

func TestVertexRefWritesThrough(t *testing.T) {
	h, _ := twoTets(t)
	ref, err := h.VertexRef(4)
	require.NoError(t, err)
	ref[2] = 7
	v, err := h.Vertex(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 7}, v)
	require.NoError(t, h.SetVertex(4, []float64{1, 1, 1}))
	_, err = h.Vertex(5)
	assert.True(t, errors.Is(err, errs.ErrInvalidVertexID))
}

func mustElements(t *testing.T, m Mesh, dim int) []int {
	t.Helper()
	ids, err := m.Elements(dim)
	require.NoError(t, err)
	return ids
}
