package hierarchy

import (
	"sort"
	"strconv"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
)

// NoParent marks an element without refinement provenance
const NoParent = -1

// ElementBuffer stores every element of one topological dimension. Records
// are addressed by dense ids; boundary lists for each lower dimension are kept
// in flat arrays with per-element offsets.
type ElementBuffer struct {
	dim   int
	lower []*ElementBuffer // Buffers of dimension 0..dim-1

	types    []element.Type
	offsets  [][]int // [boundaryDim][id] -> start in boundary[boundaryDim], length Len()+1
	boundary [][]int // [boundaryDim] flattened boundary ids
	parents  []int
	regions  [][]int // Sorted region ids per element

	index map[string]int // Dedup key -> id
}

func newElementBuffer(dim int, lower []*ElementBuffer) *ElementBuffer {
	eb := &ElementBuffer{
		dim:   dim,
		lower: lower,
	}
	eb.reset()
	return eb
}

func (eb *ElementBuffer) reset() {
	eb.types = nil
	eb.parents = nil
	eb.regions = nil
	eb.offsets = make([][]int, eb.dim)
	eb.boundary = make([][]int, eb.dim)
	for b := range eb.offsets {
		eb.offsets[b] = []int{0}
	}
	eb.index = make(map[string]int)
}

// Dimension returns the topological dimension of the stored elements
func (eb *ElementBuffer) Dimension() int { return eb.dim }

// Len returns the number of elements
func (eb *ElementBuffer) Len() int { return len(eb.types) }

func (eb *ElementBuffer) checkID(id int) error {
	if id < 0 || id >= len(eb.types) {
		return errs.Wrap(errs.ErrInvalidElementID, "dimension %d element %d of %d",
			eb.dim, id, len(eb.types))
	}
	return nil
}

// elementKey builds the dedup key from the type and the sorted vertex set
func elementKey(t element.Type, vertexIDs []int) string {
	sorted := make([]int, len(vertexIDs))
	copy(sorted, vertexIDs)
	sort.Ints(sorted)

	buf := make([]byte, 0, 4+len(sorted)*6)
	buf = strconv.AppendInt(buf, int64(t), 10)
	buf = append(buf, ':')
	for i, v := range sorted {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(v), 10)
	}
	return string(buf)
}

func (eb *ElementBuffer) checkVertexList(t element.Type, vertexIDs []int) error {
	n := len(vertexIDs)
	if t.VariableArity() {
		if n < 3 {
			return errs.Wrap(errs.ErrInvalidVertexList, "%v needs at least 3 vertices, got %d", t, n)
		}
	} else if n != t.VertexCount() {
		return errs.Wrap(errs.ErrInvalidVertexList, "%v needs %d vertices, got %d",
			t, t.VertexCount(), n)
	}
	nv := eb.lower[0].Len()
	seen := make(map[int]struct{}, n)
	for _, v := range vertexIDs {
		if v < 0 || v >= nv {
			return errs.Wrap(errs.ErrInvalidVertexID, "vertex %d of %d", v, nv)
		}
		if _, dup := seen[v]; dup {
			return errs.Wrap(errs.ErrInvalidVertexList, "vertex %d repeated", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Find looks up an element by type and unordered vertex set without creating it
func (eb *ElementBuffer) Find(t element.Type, vertexIDs []int) (int, bool) {
	if eb.dim == 0 {
		if t != element.Vertex || len(vertexIDs) != 1 {
			return -1, false
		}
		if v := vertexIDs[0]; v >= 0 && v < eb.Len() {
			return v, true
		}
		return -1, false
	}
	id, ok := eb.index[elementKey(t, vertexIDs)]
	return id, ok
}

// MakeElement returns the id of the element of type t over vertexIDs,
// creating it and every missing boundary sub-element when absent. created
// reports whether a new record was appended to this buffer.
func (eb *ElementBuffer) MakeElement(t element.Type, vertexIDs []int) (id int, created bool, err error) {
	if t.Dimension() != eb.dim {
		return -1, false, errs.Wrap(errs.ErrInvalidElementType, "%v in dimension %d buffer", t, eb.dim)
	}
	if eb.dim == 0 {
		// Vertices are created only through the vertex store
		if len(vertexIDs) != 1 {
			return -1, false, errs.Wrap(errs.ErrInvalidVertexList, "vertex element needs 1 id, got %d", len(vertexIDs))
		}
		if err = eb.checkID(vertexIDs[0]); err != nil {
			return -1, false, err
		}
		return vertexIDs[0], false, nil
	}
	if err = eb.checkVertexList(t, vertexIDs); err != nil {
		return -1, false, err
	}

	key := elementKey(t, vertexIDs)
	if existing, ok := eb.index[key]; ok {
		return existing, false, nil
	}

	// Sub-elements first; they live in other buffers so this buffer is not
	// touched until the record is complete.
	bounds := make([][]int, eb.dim)
	bounds[0] = append([]int(nil), vertexIDs...)
	for b := 1; b < eb.dim; b++ {
		layout, err := element.BoundaryLayout(t, b, len(vertexIDs))
		if err != nil {
			return -1, false, errs.Wrap(errs.ErrInvalidElementType, "%v", err)
		}
		ids := make([]int, len(layout))
		for i, sub := range layout {
			ids[i], _, err = eb.lower[b].MakeElement(sub.Type, element.BoundaryVertices(sub, vertexIDs))
			if err != nil {
				return -1, false, err
			}
		}
		bounds[b] = ids
	}

	id = len(eb.types)
	eb.types = append(eb.types, t)
	for b := 0; b < eb.dim; b++ {
		eb.boundary[b] = append(eb.boundary[b], bounds[b]...)
		eb.offsets[b] = append(eb.offsets[b], len(eb.boundary[b]))
	}
	eb.parents = append(eb.parents, NoParent)
	eb.regions = append(eb.regions, nil)
	eb.index[key] = id
	return id, true, nil
}

// appendVertex registers a new dimension-0 element; only valid on the vertex buffer
func (eb *ElementBuffer) appendVertex() int {
	id := len(eb.types)
	eb.types = append(eb.types, element.Vertex)
	eb.parents = append(eb.parents, NoParent)
	eb.regions = append(eb.regions, nil)
	return id
}

// Type returns the element type of id
func (eb *ElementBuffer) Type(id int) (element.Type, error) {
	if err := eb.checkID(id); err != nil {
		return element.NoElement, err
	}
	return eb.types[id], nil
}

// boundaryRef returns the stored boundary list without copying. id and
// boundaryDim must already be validated.
func (eb *ElementBuffer) boundaryRef(id, boundaryDim int) []int {
	if eb.dim == 0 {
		return []int{id}
	}
	off := eb.offsets[boundaryDim]
	return eb.boundary[boundaryDim][off[id]:off[id+1]]
}

// BoundaryIDs returns a copy of the boundary ids of element id at boundaryDim.
// For boundaryDim equal to the buffer dimension the element itself is returned.
func (eb *ElementBuffer) BoundaryIDs(id, boundaryDim int) ([]int, error) {
	if err := eb.checkID(id); err != nil {
		return nil, err
	}
	if boundaryDim < 0 || boundaryDim > eb.dim {
		return nil, errs.Wrap(errs.ErrTopologicalDimension,
			"boundary dimension %d of a dimension %d element", boundaryDim, eb.dim)
	}
	if boundaryDim == eb.dim {
		return []int{id}, nil
	}
	return append([]int(nil), eb.boundaryRef(id, boundaryDim)...), nil
}

// ParentID returns the refinement parent of id, NoParent when unset
func (eb *ElementBuffer) ParentID(id int) (int, error) {
	if err := eb.checkID(id); err != nil {
		return NoParent, err
	}
	return eb.parents[id], nil
}

// SetParentID records the refinement parent of id
func (eb *ElementBuffer) SetParentID(id, parent int) error {
	if err := eb.checkID(id); err != nil {
		return err
	}
	if parent < NoParent {
		return errs.Wrap(errs.ErrInvalidElementID, "parent %d", parent)
	}
	eb.parents[id] = parent
	return nil
}

// HasParents reports whether any element carries a parent id
func (eb *ElementBuffer) HasParents() bool {
	for _, p := range eb.parents {
		if p != NoParent {
			return true
		}
	}
	return false
}

// insertRegion adds region to the sorted set of id, reporting a change
func (eb *ElementBuffer) insertRegion(id, region int) bool {
	set := eb.regions[id]
	i := sort.SearchInts(set, region)
	if i < len(set) && set[i] == region {
		return false
	}
	set = append(set, 0)
	copy(set[i+1:], set[i:])
	set[i] = region
	eb.regions[id] = set
	return true
}

// AddToRegion puts element id and every one of its boundary sub-elements into
// region. It reports whether any membership changed.
func (eb *ElementBuffer) AddToRegion(id, region int) (bool, error) {
	if err := eb.checkID(id); err != nil {
		return false, err
	}
	changed := eb.insertRegion(id, region)
	for b := 0; b < eb.dim; b++ {
		for _, bid := range eb.boundaryRef(id, b) {
			if eb.lower[b].insertRegion(bid, region) {
				changed = true
			}
		}
	}
	return changed, nil
}

// Regions returns a copy of the sorted region ids of id
func (eb *ElementBuffer) Regions(id int) ([]int, error) {
	if err := eb.checkID(id); err != nil {
		return nil, err
	}
	return append([]int(nil), eb.regions[id]...), nil
}

// InRegion reports whether id is a member of region
func (eb *ElementBuffer) InRegion(id, region int) bool {
	if id < 0 || id >= len(eb.regions) {
		return false
	}
	set := eb.regions[id]
	i := sort.SearchInts(set, region)
	return i < len(set) && set[i] == region
}
