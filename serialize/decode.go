package serialize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/hierarchy"
	"go.uber.org/zap"
)

type meshRecord struct {
	parent   int
	name     string
	vertices []int
	cells    []int
}

type regionRecord struct {
	id   int
	name string
}

// staged is a fully parsed and validated blob, applied only once complete
type staged struct {
	geoDim int
	coords []float64

	cellDim       int
	types         []element.Type
	vertexOffsets []int
	vertexIDs     []int
	parents       []int // nil when the blob carries none
	regionOffsets []int
	regionIDs     []int

	meshes  []meshRecord
	regions []regionRecord
}

func (s *staged) nVertices() int { return len(s.coords) / s.geoDim }

func (s *staged) cellVertices(c int) []int {
	return s.vertexIDs[s.vertexOffsets[c]:s.vertexOffsets[c+1]]
}

func (s *staged) cellRegions(c int) []int {
	return s.regionIDs[s.regionOffsets[c]:s.regionOffsets[c+1]]
}

type options struct {
	logger    *zap.Logger
	hierarchy []hierarchy.Option
}

// Option configures Decode and DecodeInto
type Option func(*options)

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHierarchyOptions passes options to the hierarchy created by Decode
func WithHierarchyOptions(opts ...hierarchy.Option) Option {
	return func(o *options) {
		o.hierarchy = append(o.hierarchy, opts...)
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode builds a new hierarchy from data, which may be a raw blob or a
// compressed container written by EncodeCompressed.
func Decode(data []byte, opts ...Option) (*hierarchy.Hierarchy, error) {
	o := newOptions(opts)
	hopts := append([]hierarchy.Option{hierarchy.WithLogger(o.logger)}, o.hierarchy...)
	h := hierarchy.New(hopts...)
	if err := DecodeInto(h, data, opts...); err != nil {
		return nil, err
	}
	return h, nil
}

// DecodeInto replaces the contents of h with the hierarchy in data. The whole
// blob is parsed and validated before h is cleared, so incompatible or
// malformed input leaves h untouched.
func DecodeInto(h *hierarchy.Hierarchy, data []byte, opts ...Option) error {
	o := newOptions(opts)
	if h == nil {
		return errs.Wrap(errs.ErrInvalidHandle, "nil hierarchy")
	}
	raw, err := decompress(data)
	if err != nil {
		return err
	}
	s, err := parse(raw)
	if err != nil {
		return err
	}
	if err = s.validate(); err != nil {
		return err
	}
	if err = s.apply(h); err != nil {
		return err
	}
	o.logger.Info("hierarchy decoded",
		zap.String("hierarchy", h.ID().String()),
		zap.Int("vertices", s.nVertices()),
		zap.Int("cell_dimension", s.cellDim),
		zap.Int("cells", len(s.types)),
		zap.Int("meshes", len(s.meshes)),
		zap.Int("regions", len(s.regions)))
	return nil
}

func parse(data []byte) (*staged, error) {
	r := &reader{data: data}
	if m := r.u32("magic"); r.err == nil && m != Magic {
		return nil, errs.Wrap(errs.ErrMagicMismatch, "got %#08x, want %#08x", m, Magic)
	}
	major, minor, patch := r.u32("version"), r.u32("version"), r.u32("version")
	if r.err != nil {
		return nil, r.err
	}
	if major != VersionMajor || minor != VersionMinor || patch != VersionPatch {
		return nil, errs.Wrap(errs.ErrVersionMismatch, "got %d.%d.%d, want %d.%d.%d",
			major, minor, patch, VersionMajor, VersionMinor, VersionPatch)
	}

	s := &staged{}
	s.geoDim = r.i32("geometric dimension")
	if r.err == nil && (s.geoDim <= 0 || s.geoDim > MaxGeometricDimension) {
		return nil, errs.Wrap(errs.ErrDimensionMismatch, "geometric dimension %d", s.geoDim)
	}
	nv := r.count(8*s.geoDim, "vertex count")
	s.coords = make([]float64, 0, nv*s.geoDim)
	for i := 0; i < nv*s.geoDim && r.err == nil; i++ {
		s.coords = append(s.coords, r.f64("coordinates"))
	}

	s.cellDim = r.i32("cell dimension")
	nc := r.count(1, "cell count")
	s.types = make([]element.Type, nc)
	for i := range s.types {
		s.types[i] = element.Type(r.u8("cell types"))
	}
	s.vertexOffsets = r.ints(nc+1, "vertex offsets")
	if r.err == nil {
		s.vertexIDs = r.ints(s.vertexOffsets[nc], "vertex ids")
	}
	if r.u8("parent flag") != 0 {
		s.parents = r.ints(nc, "parent ids")
	}
	s.regionOffsets = r.ints(nc+1, "region offsets")
	if r.err == nil {
		s.regionIDs = r.ints(s.regionOffsets[nc], "region ids")
	}

	nm := r.count(12, "mesh count")
	s.meshes = make([]meshRecord, nm)
	for i := range s.meshes {
		s.meshes[i].parent = r.i32("mesh parents")
	}
	nVerts := r.ints(nm, "mesh vertex counts")
	nCells := r.ints(nm, "mesh cell counts")
	for i := range s.meshes {
		if r.err != nil {
			break
		}
		s.meshes[i].name = r.str("mesh name")
		s.meshes[i].vertices = r.ints(nVerts[i], "mesh vertex ids")
		s.meshes[i].cells = r.ints(nCells[i], "mesh cell ids")
	}

	nr := r.count(8, "region count")
	s.regions = make([]regionRecord, nr)
	for i := range s.regions {
		s.regions[i].id = r.i32("region id")
		s.regions[i].name = r.str("region name")
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, errs.Wrap(errs.ErrSerializationIncompatible, "%d trailing bytes", len(data)-r.pos)
	}
	return s, nil
}

func checkOffsets(offsets []int, total int, what string) error {
	if offsets[0] != 0 || offsets[len(offsets)-1] != total {
		return errs.Wrap(errs.ErrSerializationIncompatible, "%s do not span %d entries", what, total)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return errs.Wrap(errs.ErrSerializationIncompatible, "%s decrease at %d", what, i)
		}
	}
	return nil
}

func (s *staged) validate() error {
	nv, nc := s.nVertices(), len(s.types)
	if nc > 0 && (s.cellDim < 0 || s.cellDim > element.MaxDimension) {
		return errs.Wrap(errs.ErrTopologicalDimension, "cell dimension %d", s.cellDim)
	}
	if err := checkOffsets(s.vertexOffsets, len(s.vertexIDs), "vertex offsets"); err != nil {
		return err
	}
	if err := checkOffsets(s.regionOffsets, len(s.regionIDs), "region offsets"); err != nil {
		return err
	}

	regions := make(map[int]struct{}, len(s.regions))
	for _, r := range s.regions {
		if r.id < 0 {
			return errs.Wrap(errs.ErrInvalidRegionID, "region %d", r.id)
		}
		if _, dup := regions[r.id]; dup {
			return errs.Wrap(errs.ErrInvalidRegionID, "region %d listed twice", r.id)
		}
		regions[r.id] = struct{}{}
	}

	keys := make(map[string]int, nc)
	for c, t := range s.types {
		if t.Dimension() != s.cellDim {
			return errs.Wrap(errs.ErrInvalidElementType, "cell %d: %v in dimension %d", c, t, s.cellDim)
		}
		verts := s.cellVertices(c)
		if err := checkCellVertices(t, verts, nv); err != nil {
			return errs.Wrap(err, "cell %d", c)
		}
		key := cellKey(t, verts)
		if prev, dup := keys[key]; dup && s.cellDim > 0 {
			return errs.Wrap(errs.ErrInvalidVertexList, "cells %d and %d coincide", prev, c)
		}
		keys[key] = c
		if s.parents != nil && s.parents[c] < hierarchy.NoParent {
			return errs.Wrap(errs.ErrInvalidElementID, "cell %d parent %d", c, s.parents[c])
		}
		for _, r := range s.cellRegions(c) {
			if _, ok := regions[r]; !ok {
				return errs.Wrap(errs.ErrInvalidRegionID, "cell %d region %d", c, r)
			}
		}
	}

	if len(s.meshes) == 0 {
		return errs.Wrap(errs.ErrMalformedMeshTree, "no root mesh")
	}
	for i, m := range s.meshes {
		if i == 0 && m.parent != -1 {
			return errs.Wrap(errs.ErrMalformedMeshTree, "root parent index %d", m.parent)
		}
		if i > 0 && (m.parent < 0 || m.parent >= i) {
			return errs.Wrap(errs.ErrMalformedMeshTree, "mesh %d parent index %d", i, m.parent)
		}
		for _, v := range m.vertices {
			if v < 0 || v >= nv {
				return errs.Wrap(errs.ErrInvalidVertexID, "mesh %d vertex %d of %d", i, v, nv)
			}
		}
		for _, c := range m.cells {
			if c < 0 || c >= nc {
				return errs.Wrap(errs.ErrInvalidElementID, "mesh %d cell %d of %d", i, c, nc)
			}
		}
	}
	return nil
}

func checkCellVertices(t element.Type, verts []int, nv int) error {
	n := len(verts)
	if (t.VariableArity() && n < 3) || (!t.VariableArity() && n != t.VertexCount()) {
		return errs.Wrap(errs.ErrInvalidVertexList, "%v with %d vertices", t, n)
	}
	seen := make(map[int]struct{}, n)
	for _, v := range verts {
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

func cellKey(t element.Type, verts []int) string {
	sorted := append([]int(nil), verts...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return strconv.Itoa(int(t)) + ":" + strings.Join(parts, ",")
}

// apply clears h and rebuilds it: vertices, regions, cells with their parents
// and regions, then the mesh tree.
func (s *staged) apply(h *hierarchy.Hierarchy) error {
	h.Clear()
	if err := h.SetGeometricDimension(s.geoDim); err != nil {
		return err
	}
	for v := 0; v < s.nVertices(); v++ {
		if _, err := h.MakeVertex(s.coords[v*s.geoDim : (v+1)*s.geoDim]); err != nil {
			return err
		}
	}

	indexToRegion := make(map[int]*hierarchy.Region, len(s.regions))
	for _, rec := range s.regions {
		r, err := h.GetMakeRegion(rec.id)
		if err != nil {
			return err
		}
		r.SetName(rec.name)
		indexToRegion[rec.id] = r
	}

	for c, t := range s.types {
		id, err := h.MakeElement(t, s.cellVertices(c))
		if err != nil {
			return errs.Wrap(err, "cell %d", c)
		}
		if id != c {
			return errs.Wrap(errs.ErrInvalidElementID, "cell %d rebuilt as %d", c, id)
		}
		if s.parents != nil {
			if err = h.SetParentID(s.cellDim, id, s.parents[c]); err != nil {
				return err
			}
		}
		for _, rid := range s.cellRegions(c) {
			if err = h.AddToRegion(s.cellDim, id, indexToRegion[rid].ID()); err != nil {
				return err
			}
		}
	}

	handles := make([]hierarchy.Mesh, len(s.meshes))
	for i, rec := range s.meshes {
		if i == 0 {
			handles[0] = h.Root()
			if err := handles[0].SetName(rec.name); err != nil {
				return err
			}
		} else {
			m, err := handles[rec.parent].MakeChild(rec.name)
			if err != nil {
				return err
			}
			handles[i] = m
		}
		for _, v := range rec.vertices {
			if err := handles[i].AddElement(0, v); err != nil {
				return err
			}
		}
		for _, c := range rec.cells {
			if err := handles[i].AddElement(s.cellDim, c); err != nil {
				return err
			}
		}
	}
	return nil
}
