package element

import "fmt"

// Canonical local vertex layouts. Boundary id lists of every element are
// generated from these tables in this exact order.
var (
	lineVertices = [][]int{{0}, {1}}

	triangleEdges = [][]int{{0, 1}, {0, 2}, {1, 2}}

	quadrilateralEdges = [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}

	// Edge k follows the reference tetrahedron numbering: 0-1, 0-2, 0-3, 1-2, 1-3, 2-3
	tetrahedronEdges = [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	tetrahedronFaces = [][]int{
		{0, 2, 1}, // Face 0
		{0, 1, 3}, // Face 1
		{1, 2, 3}, // Face 2
		{0, 3, 2}, // Face 3
	}

	hexahedronEdges = [][]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom
		{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // vertical
	}
	hexahedronFaces = [][]int{
		{0, 3, 2, 1}, // Face 0 (bottom)
		{4, 5, 6, 7}, // Face 1 (top)
		{0, 1, 5, 4}, // Face 2
		{1, 2, 6, 5}, // Face 3
		{2, 3, 7, 6}, // Face 4
		{3, 0, 4, 7}, // Face 5
	}
)

// Boundary is one sub-element of a host element, in host-local vertex indices
type Boundary struct {
	Type  Type
	Local []int
}

// BoundaryLayout returns the boundary sub-elements of a host of type host at
// topological dimension boundaryDim. nVertices is only consulted for Polygon.
func BoundaryLayout(host Type, boundaryDim, nVertices int) ([]Boundary, error) {
	hostDim := host.Dimension()
	if hostDim < 0 {
		return nil, fmt.Errorf("invalid host element type %v", host)
	}
	if boundaryDim < 0 || boundaryDim >= hostDim {
		return nil, fmt.Errorf("boundary dimension %d is not below %v dimension %d",
			boundaryDim, host, hostDim)
	}
	n := host.VertexCount()
	if host.VariableArity() {
		if nVertices < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", nVertices)
		}
		n = nVertices
	}

	if boundaryDim == 0 {
		out := make([]Boundary, n)
		for i := range out {
			out[i] = Boundary{Type: Vertex, Local: []int{i}}
		}
		return out, nil
	}

	var table [][]int
	bt := Line
	switch {
	case host == Triangle && boundaryDim == 1:
		table = triangleEdges
	case host == Quadrilateral && boundaryDim == 1:
		table = quadrilateralEdges
	case host == Polygon && boundaryDim == 1:
		table = make([][]int, n)
		for i := range table {
			table[i] = []int{i, (i + 1) % n}
		}
	case host == Tetrahedron && boundaryDim == 1:
		table = tetrahedronEdges
	case host == Tetrahedron && boundaryDim == 2:
		table, bt = tetrahedronFaces, Triangle
	case host == Hexahedron && boundaryDim == 1:
		table = hexahedronEdges
	case host == Hexahedron && boundaryDim == 2:
		table, bt = hexahedronFaces, Quadrilateral
	default:
		return nil, fmt.Errorf("no boundary layout for %v at dimension %d", host, boundaryDim)
	}

	out := make([]Boundary, len(table))
	for i, local := range table {
		out[i] = Boundary{Type: bt, Local: local}
	}
	return out, nil
}

// BoundaryCount returns how many boundary sub-elements of dimension
// boundaryDim a host of type host has.
func BoundaryCount(host Type, boundaryDim, nVertices int) (int, error) {
	layout, err := BoundaryLayout(host, boundaryDim, nVertices)
	if err != nil {
		return 0, err
	}
	return len(layout), nil
}

// BoundaryVertices maps a boundary layout onto concrete vertex ids
func BoundaryVertices(b Boundary, vertexIDs []int) []int {
	out := make([]int, len(b.Local))
	for i, l := range b.Local {
		out[i] = vertexIDs[l]
	}
	return out
}
