package hierarchy

import (
	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
)

type meshNode struct {
	name     string
	parent   int // Arena index, -1 for the root
	children []int

	// Append-only membership, always closed under boundary sub-elements
	elements [element.MaxDimension + 1][]int
	members  [element.MaxDimension + 1]map[int]struct{}

	caches meshCaches
}

func newMeshNode(name string, parent int) *meshNode {
	n := &meshNode{
		name:   name,
		parent: parent,
		caches: newMeshCaches(),
	}
	for d := range n.members {
		n.members[d] = make(map[int]struct{})
	}
	return n
}

func (n *meshNode) contains(dim, id int) bool {
	_, ok := n.members[dim][id]
	return ok
}

func (n *meshNode) addOne(dim, id int) bool {
	if n.contains(dim, id) {
		return false
	}
	n.members[dim][id] = struct{}{}
	n.elements[dim] = append(n.elements[dim], id)
	return true
}

// add inserts (dim, id) and its boundary closure. An element that is already
// a member has its closure in place, so only new elements are expanded.
func (n *meshNode) add(h *Hierarchy, dim, id int) bool {
	if !n.addOne(dim, id) {
		return false
	}
	eb := h.buffers[dim]
	for b := 0; b < dim; b++ {
		for _, bid := range eb.boundaryRef(id, b) {
			n.addOne(b, bid)
		}
	}
	h.bump()
	return true
}

func (n *meshNode) cellDimension() int {
	for d := element.MaxDimension; d >= 0; d-- {
		if len(n.elements[d]) > 0 {
			return d
		}
	}
	return -1
}

// Mesh is a handle to a node of a hierarchy's mesh tree. The zero value is
// invalid, and handles taken before Hierarchy.Clear stop resolving.
type Mesh struct {
	h     *Hierarchy
	index int
	gen   uint64
}

func (m Mesh) node() (*meshNode, error) {
	if m.h == nil {
		return nil, errs.Wrap(errs.ErrInvalidMesh, "nil hierarchy")
	}
	if m.gen != m.h.generation || m.index < 0 || m.index >= len(m.h.meshes) {
		return nil, errs.Wrap(errs.ErrInvalidMesh, "stale mesh handle %d", m.index)
	}
	return m.h.meshes[m.index], nil
}

// Valid reports whether the handle still resolves
func (m Mesh) Valid() bool {
	_, err := m.node()
	return err == nil
}

// Hierarchy returns the owning hierarchy
func (m Mesh) Hierarchy() *Hierarchy { return m.h }

// Index returns the arena index of the mesh
func (m Mesh) Index() int { return m.index }

// IsRoot reports whether m is the hierarchy's root mesh
func (m Mesh) IsRoot() bool { return m.index == 0 }

// Name returns the mesh name
func (m Mesh) Name() string {
	n, err := m.node()
	if err != nil {
		return ""
	}
	return n.name
}

// SetName renames the mesh
func (m Mesh) SetName(name string) error {
	n, err := m.node()
	if err != nil {
		return err
	}
	n.name = name
	return nil
}

// Parent returns the parent mesh; ok is false for the root
func (m Mesh) Parent() (parent Mesh, ok bool) {
	n, err := m.node()
	if err != nil || n.parent < 0 {
		return Mesh{}, false
	}
	return Mesh{h: m.h, index: n.parent, gen: m.gen}, true
}

// Children returns the direct child meshes in creation order
func (m Mesh) Children() []Mesh {
	n, err := m.node()
	if err != nil {
		return nil
	}
	out := make([]Mesh, len(n.children))
	for i, c := range n.children {
		out[i] = Mesh{h: m.h, index: c, gen: m.gen}
	}
	return out
}

// MakeChild creates an empty child mesh
func (m Mesh) MakeChild(name string) (Mesh, error) {
	n, err := m.node()
	if err != nil {
		return Mesh{}, err
	}
	idx := len(m.h.meshes)
	m.h.meshes = append(m.h.meshes, newMeshNode(name, m.index))
	n.children = append(n.children, idx)
	return Mesh{h: m.h, index: idx, gen: m.gen}, nil
}

// AddElement makes (dim, id) a member of m and of every ancestor of m. The
// element's boundary sub-elements join as well. Adding a member is a no-op.
func (m Mesh) AddElement(dim, id int) error {
	n, err := m.node()
	if err != nil {
		return err
	}
	eb, err := m.h.Buffer(dim)
	if err != nil {
		return err
	}
	if err = eb.checkID(id); err != nil {
		return err
	}
	for {
		n.add(m.h, dim, id)
		if n.parent < 0 {
			return nil
		}
		n = m.h.meshes[n.parent]
	}
}

// MakeVertex creates a vertex in the hierarchy and adds it to m
func (m Mesh) MakeVertex(coords []float64) (int, error) {
	if _, err := m.node(); err != nil {
		return -1, err
	}
	id, err := m.h.MakeVertex(coords)
	if err != nil {
		return -1, err
	}
	return id, m.AddElement(0, id)
}

// MakeElement creates (or finds) an element in the hierarchy and adds it to m
func (m Mesh) MakeElement(t element.Type, vertexIDs []int) (int, error) {
	if _, err := m.node(); err != nil {
		return -1, err
	}
	id, err := m.h.MakeElement(t, vertexIDs)
	if err != nil {
		return -1, err
	}
	return id, m.AddElement(t.Dimension(), id)
}

// Elements returns the member ids of dimension dim in insertion order
func (m Mesh) Elements(dim int) ([]int, error) {
	n, err := m.node()
	if err != nil {
		return nil, err
	}
	if dim < 0 || dim > element.MaxDimension {
		return nil, errs.Wrap(errs.ErrTopologicalDimension, "dimension %d", dim)
	}
	return append([]int(nil), n.elements[dim]...), nil
}

// ElementCount returns the number of members of dimension dim
func (m Mesh) ElementCount(dim int) int {
	n, err := m.node()
	if err != nil || dim < 0 || dim > element.MaxDimension {
		return 0
	}
	return len(n.elements[dim])
}

// Contains reports whether (dim, id) is a member of m
func (m Mesh) Contains(dim, id int) bool {
	n, err := m.node()
	if err != nil || dim < 0 || dim > element.MaxDimension {
		return false
	}
	return n.contains(dim, id)
}

// CellDimension returns the highest dimension with members, -1 when empty
func (m Mesh) CellDimension() int {
	n, err := m.node()
	if err != nil {
		return -1
	}
	return n.cellDimension()
}

// Cells returns the members of the mesh's cell dimension
func (m Mesh) Cells() ([]int, error) {
	n, err := m.node()
	if err != nil {
		return nil, err
	}
	cd := n.cellDimension()
	if cd < 0 {
		return nil, nil
	}
	return append([]int(nil), n.elements[cd]...), nil
}
