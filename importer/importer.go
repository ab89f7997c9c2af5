// Package importer loads external mesh files into a hierarchy.
//
// Files are parsed by the gocfd mesh readers (Gmsh 2.2/4.x and Gambit
// neutral). Nodes become vertices, elements of every dimension become
// elements of the matching type and physical groups become regions.
package importer

import (
	"sort"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/hierarchy"
	"github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"go.uber.org/zap"
)

// Report maps the source mesh onto the hierarchy it was loaded into
type Report struct {
	VertexIDs  []int // Source node index to vertex id
	ElementIDs []int // Source element index to element id, -1 when skipped
	Dimensions []int // Topological dimension of each imported element, -1 when skipped
	Regions    []int // Region ids created from element groups, sorted by tag
	Skipped    int   // Point elements, which are already vertices
}

// FromFile reads a mesh file and loads it into a new hierarchy
func FromFile(path string, opts ...hierarchy.Option) (*hierarchy.Hierarchy, *Report, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, nil, errs.Wrap(err, "reading mesh file %s", path)
	}
	h := hierarchy.New(opts...)
	rep, err := FromMesh(h, msh)
	if err != nil {
		return nil, nil, errs.Wrap(err, "importing %s", path)
	}
	h.Logger().Info("mesh imported",
		zap.String("path", path),
		zap.Int("vertices", len(rep.VertexIDs)),
		zap.Int("elements", len(rep.ElementIDs)-rep.Skipped),
		zap.Int("regions", len(rep.Regions)),
	)
	return h, rep, nil
}

// FromMesh adds the nodes, elements and element groups of msh to the root
// mesh of h. Coordinates beyond the geometric dimension of h must be zero.
// Higher order elements keep only their corner nodes.
func FromMesh(h *hierarchy.Hierarchy, msh *mesh.Mesh) (*Report, error) {
	if msh == nil {
		return nil, errs.Wrap(errs.ErrInvalidHandle, "nil mesh")
	}
	dim := h.GeometricDimension()
	rep := &Report{
		VertexIDs:  make([]int, len(msh.Vertices)),
		ElementIDs: make([]int, len(msh.EtoV)),
		Dimensions: make([]int, len(msh.EtoV)),
	}

	// Resolve every element type before touching h
	types := make([]element.Type, len(msh.EtoV))
	for i, nodes := range msh.EtoV {
		if i >= len(msh.ElementTypes) {
			return nil, errs.Wrap(errs.ErrStructuralPrecondition, "element %d has no type", i)
		}
		t, err := mapType(msh.ElementTypes[i].GetDimension(), corners(nodes))
		if err != nil {
			return nil, errs.Wrap(err, "element %d", i)
		}
		types[i] = t
	}
	for i, c := range msh.Vertices {
		for _, x := range c[min(dim, len(c)):] {
			if x != 0 {
				return nil, errs.Wrap(errs.ErrDimensionMismatch,
					"node %d has a non-zero coordinate beyond dimension %d", i, dim)
			}
		}
	}

	root := h.Root()
	coords := make([]float64, dim)
	for i, c := range msh.Vertices {
		clear(coords)
		copy(coords, c)
		id, err := root.MakeVertex(coords)
		if err != nil {
			return nil, errs.Wrap(err, "node %d", i)
		}
		rep.VertexIDs[i] = id
	}

	for i, nodes := range msh.EtoV {
		t := types[i]
		if t == element.Vertex {
			rep.ElementIDs[i], rep.Dimensions[i] = -1, -1
			rep.Skipped++
			continue
		}
		n := t.VertexCount()
		verts := make([]int, 0, n)
		for _, nd := range nodes {
			if nd < 0 {
				continue
			}
			if nd >= len(rep.VertexIDs) {
				return nil, errs.Wrap(errs.ErrInvalidVertexID, "element %d node %d", i, nd)
			}
			verts = append(verts, rep.VertexIDs[nd])
			if len(verts) == n {
				break
			}
		}
		id, err := root.MakeElement(t, verts)
		if err != nil {
			return nil, errs.Wrap(err, "element %d", i)
		}
		rep.ElementIDs[i], rep.Dimensions[i] = id, t.Dimension()
	}

	regions, err := importGroups(h, msh, rep)
	if err != nil {
		return nil, err
	}
	rep.Regions = regions
	return rep, nil
}

func importGroups(h *hierarchy.Hierarchy, msh *mesh.Mesh, rep *Report) ([]int, error) {
	tags := make([]int, 0, len(msh.ElementGroups))
	for tag := range msh.ElementGroups {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	var regions []int
	for _, tag := range tags {
		g := msh.ElementGroups[tag]
		if g == nil {
			continue
		}
		r, err := h.GetMakeRegion(tag)
		if err != nil {
			return nil, errs.Wrap(err, "element group %d", tag)
		}
		if g.Name != "" {
			r.SetName(g.Name)
		}
		for _, e := range g.Elements {
			if e < 0 || e >= len(rep.ElementIDs) {
				return nil, errs.Wrap(errs.ErrInvalidElementID, "element group %d member %d", tag, e)
			}
			if rep.ElementIDs[e] < 0 {
				continue
			}
			if err := h.AddToRegion(rep.Dimensions[e], rep.ElementIDs[e], r.ID()); err != nil {
				return nil, errs.Wrap(err, "element group %d", tag)
			}
		}
		regions = append(regions, r.ID())
	}
	return regions, nil
}

// corners counts the real nodes of an element, skipping padding
func corners(nodes []int) int {
	n := 0
	for _, nd := range nodes {
		if nd >= 0 {
			n++
		}
	}
	return n
}

// mapType picks the element type from the reader's dimension and node count.
// Node counts of the serendipity and Lagrange variants map to their linear
// shape.
func mapType(dim, nodes int) (element.Type, error) {
	switch dim {
	case 0:
		if nodes == 1 {
			return element.Vertex, nil
		}
	case 1:
		switch nodes {
		case 2, 3:
			return element.Line, nil
		}
	case 2:
		switch nodes {
		case 3, 6:
			return element.Triangle, nil
		case 4, 8, 9:
			return element.Quadrilateral, nil
		}
	case 3:
		switch nodes {
		case 4, 10:
			return element.Tetrahedron, nil
		case 8, 20, 27:
			return element.Hexahedron, nil
		}
	}
	return element.NoElement, errs.Wrap(errs.ErrUnsupportedElementType,
		"dimension %d with %d nodes", dim, nodes)
}
