// Package geometry holds the stateless numeric helpers used by the mesh
// algorithms: lengths, centroids, simplex measures and normals.
package geometry

import (
	"math"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/hierarchy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tolerance below which a measure is treated as zero
const Tolerance = 1.e-12

// Distance returns the Euclidean distance between a and b
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Centroid returns the arithmetic mean of the points
func Centroid(points [][]float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	c := make([]float64, len(points[0]))
	for _, p := range points {
		floats.Add(c, p)
	}
	floats.Scale(1/float64(len(points)), c)
	return c
}

// SimplexVolume returns the k-dimensional measure of the simplex spanned by
// k+1 points embedded in any geometric dimension >= k, computed from the Gram
// determinant of the edge vectors.
func SimplexVolume(points [][]float64) (float64, error) {
	k := len(points) - 1
	if k < 0 {
		return 0, errs.Wrap(errs.ErrDimensionMismatch, "no points")
	}
	if k == 0 {
		return 0, nil
	}
	d := len(points[0])
	if d < k {
		return 0, errs.Wrap(errs.ErrDimensionMismatch, "%d-simplex in %d dimensions", k, d)
	}
	E := mat.NewDense(d, k, nil)
	for j := 1; j <= k; j++ {
		if len(points[j]) != d {
			return 0, errs.Wrap(errs.ErrDimensionMismatch, "point %d has %d coordinates, want %d", j, len(points[j]), d)
		}
		for i := 0; i < d; i++ {
			E.Set(i, j-1, points[j][i]-points[0][i])
		}
	}
	var G mat.Dense
	G.Mul(E.T(), E)
	det := mat.Det(&G)
	if det < 0 {
		det = 0 // round-off on degenerate simplices
	}
	return math.Sqrt(det) / factorial(k), nil
}

// SignedVolume returns the signed measure of a full-dimensional simplex: D+1
// points in D dimensions. Positive values denote the reference orientation.
func SignedVolume(points [][]float64) (float64, error) {
	k := len(points) - 1
	if k < 1 || len(points[0]) != k {
		return 0, errs.Wrap(errs.ErrDimensionMismatch, "need D+1 points in D dimensions, got %d", len(points))
	}
	E := mat.NewDense(k, k, nil)
	for j := 1; j <= k; j++ {
		for i := 0; i < k; i++ {
			E.Set(i, j-1, points[j][i]-points[0][i])
		}
	}
	return mat.Det(E) / factorial(k), nil
}

// TriangleNormal returns the unit normal of a triangle in 3D following the
// right-hand rule on the vertex order.
func TriangleNormal(a, b, c []float64) ([]float64, error) {
	if len(a) != 3 || len(b) != 3 || len(c) != 3 {
		return nil, errs.Wrap(errs.ErrDimensionMismatch, "triangle normal needs 3D points")
	}
	u := make([]float64, 3)
	v := make([]float64, 3)
	floats.SubTo(u, b, a)
	floats.SubTo(v, c, a)
	n := []float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	l := floats.Norm(n, 2)
	if l < Tolerance {
		return nil, errs.Wrap(errs.ErrNumericDegenerate, "triangle area %g", l/2)
	}
	floats.Scale(1/l, n)
	return n, nil
}

func factorial(k int) float64 {
	f := 1.
	for i := 2; i <= k; i++ {
		f *= float64(i)
	}
	return f
}

// hexTets splits a hexahedron into six tetrahedra around the 0-6 diagonal
var hexTets = [][4]int{
	{0, 1, 2, 6}, {0, 2, 3, 6}, {0, 1, 5, 6},
	{0, 5, 4, 6}, {0, 3, 7, 6}, {0, 7, 4, 6},
}

// ElementPoints returns the coordinates of the vertices of (dim, id)
func ElementPoints(h *hierarchy.Hierarchy, dim, id int) ([][]float64, error) {
	verts, err := h.VertexIDs(dim, id)
	if err != nil {
		return nil, err
	}
	pts := make([][]float64, len(verts))
	for i, v := range verts {
		if pts[i], err = h.Vertex(v); err != nil {
			return nil, err
		}
	}
	return pts, nil
}

// ElementVolume returns the measure of (dim, id): length, area or volume
func ElementVolume(h *hierarchy.Hierarchy, dim, id int) (float64, error) {
	t, err := h.ElementType(dim, id)
	if err != nil {
		return 0, err
	}
	pts, err := ElementPoints(h, dim, id)
	if err != nil {
		return 0, err
	}
	switch t {
	case element.Vertex:
		return 0, nil
	case element.Line, element.Triangle, element.Tetrahedron:
		return SimplexVolume(pts)
	case element.Quadrilateral, element.Polygon:
		// Fan from vertex 0; exact for convex planar polygons
		var sum float64
		for i := 1; i+1 < len(pts); i++ {
			v, err := SimplexVolume([][]float64{pts[0], pts[i], pts[i+1]})
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	case element.Hexahedron:
		var sum float64
		for _, tet := range hexTets {
			v, err := SimplexVolume([][]float64{pts[tet[0]], pts[tet[1]], pts[tet[2]], pts[tet[3]]})
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	}
	return 0, errs.Wrap(errs.ErrUnsupportedElementType, "volume of %v", t)
}

// ElementCentroid returns the vertex centroid of (dim, id)
func ElementCentroid(h *hierarchy.Hierarchy, dim, id int) ([]float64, error) {
	pts, err := ElementPoints(h, dim, id)
	if err != nil {
		return nil, err
	}
	return Centroid(pts), nil
}

// MeshVolume sums the measures of the cells of m
func MeshVolume(m hierarchy.Mesh) (float64, error) {
	cells, err := m.Cells()
	if err != nil {
		return 0, err
	}
	cd := m.CellDimension()
	var sum float64
	for _, c := range cells {
		v, err := ElementVolume(m.Hierarchy(), cd, c)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

// MeshSurface sums the measures of the boundary facets of m
func MeshSurface(m hierarchy.Mesh) (float64, error) {
	cd := m.CellDimension()
	if cd <= 0 {
		return 0, nil
	}
	facets, err := m.BoundaryElements(cd - 1)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, f := range facets {
		v, err := ElementVolume(m.Hierarchy(), cd-1, f)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}
