package element

import "fmt"

// Dimensionality represents the topological dimension of an element
type Dimensionality uint8

const (
	D0 Dimensionality = iota // 0D elements (points)
	D1                       // 1D elements (lines, edges)
	D2                       // 2D elements (triangles, quadrilaterals)
	D3                       // 3D elements (tetrahedra, hexahedra)
)

// MaxDimension is the largest topological dimension the hierarchy stores
const MaxDimension = 3

// Properties contains metadata describing an element type
type Properties struct {
	Name       string         // Full descriptive name (e.g., "Linear Tetrahedron")
	ShortName  string         // Abbreviated name (e.g., "Tet")
	Type       Type           // Element shape
	NVertices  int            // Number of vertices, 0 when chosen per element
	NEdges     int            // Number of edges, 0 when chosen per element
	NFaces     int            // Number of facets, 0 when chosen per element
	FacetType  Type           // Type of the codimension-one boundary elements
	Dimensions Dimensionality // Topological dimension
}

// GetProperties returns the metadata for a valid element type
func GetProperties(t Type) (Properties, error) {
	if !t.Valid() {
		return Properties{}, fmt.Errorf("no properties for element type %v", t)
	}
	p := Properties{
		Type:       t,
		NVertices:  t.VertexCount(),
		FacetType:  t.FacetType(),
		Dimensions: Dimensionality(t.Dimension()),
	}
	switch t {
	case Vertex:
		p.Name, p.ShortName = "Vertex", "Vtx"
	case Line:
		p.Name, p.ShortName = "Linear Line Segment", "Line"
		p.NEdges, p.NFaces = 1, 2
	case Triangle:
		p.Name, p.ShortName = "Linear Triangle", "Tri"
		p.NEdges, p.NFaces = 3, 3
	case Quadrilateral:
		p.Name, p.ShortName = "Bilinear Quadrilateral", "Quad"
		p.NEdges, p.NFaces = 4, 4
	case Polygon:
		p.Name, p.ShortName = "Polygon", "Poly"
	case Tetrahedron:
		p.Name, p.ShortName = "Linear Tetrahedron", "Tet"
		p.NEdges, p.NFaces = 6, 4
	case Hexahedron:
		p.Name, p.ShortName = "Trilinear Hexahedron", "Hex"
		p.NEdges, p.NFaces = 12, 6
	}
	return p, nil
}
