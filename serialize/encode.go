package serialize

import (
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/hierarchy"
)

// Encode writes the vertices, the cells of the hierarchy's cell dimension,
// their parents and regions, the mesh tree and the region registry. Lower
// dimensional elements are rebuilt from the cells on decode.
func Encode(h *hierarchy.Hierarchy) ([]byte, error) {
	if h == nil {
		return nil, errs.Wrap(errs.ErrInvalidHandle, "nil hierarchy")
	}
	w := &writer{}
	w.u32(Magic)
	w.u32(VersionMajor)
	w.u32(VersionMinor)
	w.u32(VersionPatch)

	w.i32(h.GeometricDimension())
	w.i32(h.VertexCount())
	for _, x := range h.Vertices().Coordinates() {
		w.f64(x)
	}

	cd := h.CellDimension()
	nCells := h.ElementCount(cd)
	w.i32(cd)
	w.i32(nCells)

	var (
		vertexOffsets = []int{0}
		vertexIDs     []int
		regionOffsets = []int{0}
		regionIDs     []int
		parents       = make([]int, nCells)
		hasParents    bool
	)
	for c := 0; c < nCells; c++ {
		t, err := h.ElementType(cd, c)
		if err != nil {
			return nil, err
		}
		w.u8(uint8(t))
		verts, err := h.VertexIDs(cd, c)
		if err != nil {
			return nil, err
		}
		vertexIDs = append(vertexIDs, verts...)
		vertexOffsets = append(vertexOffsets, len(vertexIDs))

		if parents[c], err = h.ParentID(cd, c); err != nil {
			return nil, err
		}
		if parents[c] != hierarchy.NoParent {
			hasParents = true
		}
		regions, err := h.ElementRegions(cd, c)
		if err != nil {
			return nil, err
		}
		regionIDs = append(regionIDs, regions...)
		regionOffsets = append(regionOffsets, len(regionIDs))
	}
	w.ints(vertexOffsets)
	w.ints(vertexIDs)
	if hasParents {
		w.u8(1)
		w.ints(parents)
	} else {
		w.u8(0)
	}
	w.ints(regionOffsets)
	w.ints(regionIDs)

	if err := encodeMeshes(w, h, cd); err != nil {
		return nil, err
	}

	regions := h.Regions()
	w.i32(len(regions))
	for _, r := range regions {
		w.i32(r.ID())
		w.str(r.Name())
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

func encodeMeshes(w *writer, h *hierarchy.Hierarchy, cd int) error {
	n := h.MeshCount()
	meshes := make([]hierarchy.Mesh, n)
	verts := make([][]int, n)
	cells := make([][]int, n)
	for i := range meshes {
		m, err := h.MeshAt(i)
		if err != nil {
			return err
		}
		meshes[i] = m
		if verts[i], err = m.Elements(0); err != nil {
			return err
		}
		if cd >= 0 {
			if cells[i], err = m.Elements(cd); err != nil {
				return err
			}
		}
	}

	w.i32(n)
	for _, m := range meshes {
		parent, ok := m.Parent()
		if !ok {
			w.i32(-1)
			continue
		}
		w.i32(parent.Index())
	}
	for _, v := range verts {
		w.i32(len(v))
	}
	for _, c := range cells {
		w.i32(len(c))
	}
	for i, m := range meshes {
		w.str(m.Name())
		w.ints(verts[i])
		w.ints(cells[i])
	}
	return nil
}
