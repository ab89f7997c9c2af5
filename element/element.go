package element

import (
	"fmt"
	"strings"
)

// Type is the element type tag stored with every element record. The numeric
// values are part of the binary serialization format.
type Type uint8

const (
	NoElement Type = iota
	Vertex
	Line
	Triangle
	Quadrilateral
	Polygon
	Tetrahedron
	Hexahedron
)

// NumTypes is one past the largest valid tag
const NumTypes = int(Hexahedron) + 1

var typeNames = [...]string{
	"NoElement", "Vertex", "Line", "Triangle", "Quadrilateral", "Polygon",
	"Tetrahedron", "Hexahedron",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known element type other than NoElement
func (t Type) Valid() bool {
	return t > NoElement && int(t) < NumTypes
}

// ParseType converts a type name (case insensitive) into its tag
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if i == 0 {
			continue
		}
		if strings.EqualFold(n, name) {
			return Type(i), nil
		}
	}
	return NoElement, fmt.Errorf("unknown element type %q", name)
}

// Dimension returns the topological dimension of the type, or -1 for
// NoElement and unknown tags.
func (t Type) Dimension() int {
	switch t {
	case Vertex:
		return 0
	case Line:
		return 1
	case Triangle, Quadrilateral, Polygon:
		return 2
	case Tetrahedron, Hexahedron:
		return 3
	}
	return -1
}

// IsSimplex reports whether the type is a vertex, line, triangle or tetrahedron
func (t Type) IsSimplex() bool {
	switch t {
	case Vertex, Line, Triangle, Tetrahedron:
		return true
	}
	return false
}

// VariableArity reports whether the vertex count is chosen per element
func (t Type) VariableArity() bool {
	return t == Polygon
}

// VertexCount returns the fixed number of vertices of the type. It returns 0
// for Polygon, whose arity is set per element.
func (t Type) VertexCount() int {
	switch t {
	case Vertex:
		return 1
	case Line:
		return 2
	case Triangle:
		return 3
	case Quadrilateral:
		return 4
	case Tetrahedron:
		return 4
	case Hexahedron:
		return 8
	}
	return 0
}

// FacetType returns the type of the codimension-one boundary elements
func (t Type) FacetType() Type {
	switch t {
	case Line:
		return Vertex
	case Triangle, Quadrilateral, Polygon:
		return Line
	case Tetrahedron:
		return Triangle
	case Hexahedron:
		return Quadrilateral
	}
	return NoElement
}

// TypesOfDimension lists every type whose topological dimension is dim
func TypesOfDimension(dim int) []Type {
	var out []Type
	for t := Vertex; int(t) < NumTypes; t++ {
		if t.Dimension() == dim {
			out = append(out, t)
		}
	}
	return out
}
