// Package hierarchy stores vertices, elements of every topological dimension,
// regions and the tree of meshes viewing them.
//
// A Hierarchy is not safe for concurrent use. Every method, including the
// queries on Mesh that fill lazily built caches, mutates internal state and
// callers must serialise access to one hierarchy. Derived caches are only
// consistent because nothing else can change the hierarchy between the
// snapshot taken at build time and the read.
package hierarchy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"go.uber.org/zap"
)

// DefaultGeometricDimension is used when no dimension option is given
const DefaultGeometricDimension = 3

// Hierarchy owns the vertex store, one element buffer per topological
// dimension, the region registry and the mesh tree.
type Hierarchy struct {
	id     uuid.UUID
	logger *zap.Logger

	vertices VertexStore
	buffers  [element.MaxDimension + 1]*ElementBuffer

	regions      map[int]*Region
	regionOrder  []int // Registration order
	nextRegionID int

	meshes     []*meshNode // Arena, index 0 is the root
	generation uint64      // Bumped by Clear to retire Mesh handles

	changeCounter uint64
}

// Option configures a Hierarchy
type Option func(*Hierarchy)

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Hierarchy) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithGeometricDimension sets the initial geometric dimension
func WithGeometricDimension(d int) Option {
	return func(h *Hierarchy) {
		h.vertices.dim = d
	}
}

// WithID sets the hierarchy identity instead of a random one
func WithID(id uuid.UUID) Option {
	return func(h *Hierarchy) {
		h.id = id
	}
}

// New creates an empty hierarchy with its root mesh
func New(opts ...Option) *Hierarchy {
	h := &Hierarchy{
		id:       uuid.New(),
		logger:   zap.NewNop(),
		vertices: newVertexStore(DefaultGeometricDimension),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.vertices.dim <= 0 {
		h.vertices.dim = DefaultGeometricDimension
	}
	for d := 0; d <= element.MaxDimension; d++ {
		h.buffers[d] = newElementBuffer(d, h.buffers[:d])
	}
	h.resetRegistryAndTree()
	h.logger = h.logger.With(zap.String("hierarchy", h.id.String()))
	return h
}

func (h *Hierarchy) resetRegistryAndTree() {
	h.regions = make(map[int]*Region)
	h.regionOrder = nil
	h.nextRegionID = 0
	h.meshes = []*meshNode{newMeshNode("root", -1)}
}

// ID returns the identity of the hierarchy
func (h *Hierarchy) ID() uuid.UUID { return h.id }

// Logger returns the hierarchy's logger
func (h *Hierarchy) Logger() *zap.Logger { return h.logger }

// ChangeCounter returns the structural mutation stamp. It increases on every
// vertex or element creation, parent id change, region membership change,
// mesh membership change, coordinate transform and Clear.
func (h *Hierarchy) ChangeCounter() uint64 { return h.changeCounter }

func (h *Hierarchy) bump() { h.changeCounter++ }

// GeometricDimension returns the number of coordinates per vertex
func (h *Hierarchy) GeometricDimension() int { return h.vertices.Dimension() }

// SetGeometricDimension changes the number of coordinates per vertex. It
// fails once vertices exist and d differs from the current dimension.
func (h *Hierarchy) SetGeometricDimension(d int) error {
	old := h.vertices.Dimension()
	if err := h.vertices.setDimension(d); err != nil {
		return err
	}
	if old != d {
		h.logger.Debug("geometric dimension changed", zap.Int("from", old), zap.Int("to", d))
	}
	return nil
}

// CellDimension returns the highest topological dimension holding elements,
// or -1 for an empty hierarchy.
func (h *Hierarchy) CellDimension() int {
	for d := element.MaxDimension; d >= 0; d-- {
		if h.buffers[d].Len() > 0 {
			return d
		}
	}
	return -1
}

// Vertices returns the vertex store
func (h *Hierarchy) Vertices() *VertexStore { return &h.vertices }

// VertexCount returns the number of vertices
func (h *Hierarchy) VertexCount() int { return h.vertices.Len() }

// Buffer returns the element buffer of topological dimension dim
func (h *Hierarchy) Buffer(dim int) (*ElementBuffer, error) {
	if dim < 0 || dim > element.MaxDimension {
		return nil, errs.Wrap(errs.ErrTopologicalDimension, "dimension %d", dim)
	}
	return h.buffers[dim], nil
}

// ElementCount returns the number of elements of dimension dim
func (h *Hierarchy) ElementCount(dim int) int {
	if dim < 0 || dim > element.MaxDimension {
		return 0
	}
	return h.buffers[dim].Len()
}

// MakeVertex appends a vertex and adds it to the root mesh
func (h *Hierarchy) MakeVertex(coords []float64) (int, error) {
	id, err := h.makeVertex(coords)
	if err != nil {
		return -1, err
	}
	h.meshes[0].add(h, 0, id)
	return id, nil
}

func (h *Hierarchy) makeVertex(coords []float64) (int, error) {
	id, err := h.vertices.append(coords)
	if err != nil {
		return -1, err
	}
	if eid := h.buffers[0].appendVertex(); eid != id {
		return -1, fmt.Errorf("vertex store and vertex buffer out of step: %d != %d", id, eid)
	}
	h.bump()
	return id, nil
}

// Vertex returns a copy of the coordinates of vertex id
func (h *Hierarchy) Vertex(id int) ([]float64, error) { return h.vertices.Get(id) }

// VertexRef returns the stored coordinates of vertex id for in-place edits.
// The slice is invalid after the next vertex creation.
func (h *Hierarchy) VertexRef(id int) ([]float64, error) { return h.vertices.Ref(id) }

// SetVertex overwrites the coordinates of vertex id
func (h *Hierarchy) SetVertex(id int, coords []float64) error {
	if err := h.vertices.Set(id, coords); err != nil {
		return err
	}
	h.bump()
	return nil
}

// MakeElement returns the element of type t over the unordered vertex set,
// creating it (and its boundary sub-elements) when missing. New elements are
// added to the root mesh. The change counter only moves on insertion.
func (h *Hierarchy) MakeElement(t element.Type, vertexIDs []int) (int, error) {
	id, created, err := h.makeElement(t, vertexIDs)
	if err != nil {
		return -1, err
	}
	if created {
		h.meshes[0].add(h, t.Dimension(), id)
	}
	return id, nil
}

func (h *Hierarchy) makeElement(t element.Type, vertexIDs []int) (int, bool, error) {
	dim := t.Dimension()
	if dim < 0 {
		return -1, false, errs.Wrap(errs.ErrInvalidElementType, "%v", t)
	}
	id, created, err := h.buffers[dim].MakeElement(t, vertexIDs)
	if err != nil {
		return -1, false, err
	}
	if created {
		h.bump()
	}
	return id, created, nil
}

// FindElement looks up an element without creating it
func (h *Hierarchy) FindElement(t element.Type, vertexIDs []int) (int, bool) {
	dim := t.Dimension()
	if dim < 0 {
		return -1, false
	}
	return h.buffers[dim].Find(t, vertexIDs)
}

func (h *Hierarchy) buffer(dim int) (*ElementBuffer, error) {
	return h.Buffer(dim)
}

// ElementType returns the type of element (dim, id)
func (h *Hierarchy) ElementType(dim, id int) (element.Type, error) {
	eb, err := h.buffer(dim)
	if err != nil {
		return element.NoElement, err
	}
	return eb.Type(id)
}

// BoundaryIDs returns the boundary sub-elements of (dim, id) at boundaryDim
func (h *Hierarchy) BoundaryIDs(dim, id, boundaryDim int) ([]int, error) {
	eb, err := h.buffer(dim)
	if err != nil {
		return nil, err
	}
	return eb.BoundaryIDs(id, boundaryDim)
}

// VertexIDs returns the ordered vertex ids of (dim, id)
func (h *Hierarchy) VertexIDs(dim, id int) ([]int, error) {
	return h.BoundaryIDs(dim, id, 0)
}

// ParentID returns the refinement parent of (dim, id)
func (h *Hierarchy) ParentID(dim, id int) (int, error) {
	eb, err := h.buffer(dim)
	if err != nil {
		return NoParent, err
	}
	return eb.ParentID(id)
}

// SetParentID records the refinement parent of (dim, id)
func (h *Hierarchy) SetParentID(dim, id, parent int) error {
	eb, err := h.buffer(dim)
	if err != nil {
		return err
	}
	if err = eb.SetParentID(id, parent); err != nil {
		return err
	}
	h.bump()
	return nil
}

// AddToRegion puts (dim, id) and its whole boundary closure into a registered region
func (h *Hierarchy) AddToRegion(dim, id, regionID int) error {
	if _, ok := h.regions[regionID]; !ok {
		return errs.Wrap(errs.ErrInvalidRegionID, "region %d", regionID)
	}
	eb, err := h.buffer(dim)
	if err != nil {
		return err
	}
	changed, err := eb.AddToRegion(id, regionID)
	if err != nil {
		return err
	}
	if changed {
		h.bump()
	}
	return nil
}

// ElementRegions returns the sorted region ids of (dim, id)
func (h *Hierarchy) ElementRegions(dim, id int) ([]int, error) {
	eb, err := h.buffer(dim)
	if err != nil {
		return nil, err
	}
	return eb.Regions(id)
}

// Root returns the top-level mesh
func (h *Hierarchy) Root() Mesh {
	return Mesh{h: h, index: 0, gen: h.generation}
}

// MeshCount returns the number of meshes in the tree, root included
func (h *Hierarchy) MeshCount() int { return len(h.meshes) }

// MeshAt returns the mesh stored at arena index i. Parents always precede
// their children in arena order.
func (h *Hierarchy) MeshAt(i int) (Mesh, error) {
	if i < 0 || i >= len(h.meshes) {
		return Mesh{}, errs.Wrap(errs.ErrInvalidMesh, "mesh index %d of %d", i, len(h.meshes))
	}
	return Mesh{h: h, index: i, gen: h.generation}, nil
}

// Clear removes every vertex, element, region and child mesh. Mesh handles
// taken before Clear become invalid; the geometric dimension is kept.
func (h *Hierarchy) Clear() {
	h.logger.Debug("clearing hierarchy",
		zap.Int("vertices", h.vertices.Len()),
		zap.Int("meshes", len(h.meshes)),
		zap.Int("regions", len(h.regions)))
	h.vertices.reset()
	for _, eb := range h.buffers {
		eb.reset()
	}
	h.resetRegistryAndTree()
	h.generation++
	h.bump()
}
