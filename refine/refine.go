// Package refine splits the cells of a mesh into a new hierarchy, one edge
// midpoint per flagged edge.
package refine

import (
	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/geometry"
	"github.com/notargets/DGMesh/hierarchy"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
}

// Option configures Refine
type Option func(*options)

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Refine copies the vertices of src into dst, adds one midpoint vertex per
// edge picked by flags and replaces every source cell with its refined
// sub-cells in dst. New cells record the source cell as parent and inherit
// its regions. src and dst must belong to different hierarchies.
func Refine(src hierarchy.Mesh, flags Selector, dst hierarchy.Mesh, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if !src.Valid() {
		return nil, errs.Wrap(errs.ErrInvalidMesh, "source mesh")
	}
	if !dst.Valid() {
		return nil, errs.Wrap(errs.ErrInvalidMesh, "destination mesh")
	}
	sh, dh := src.Hierarchy(), dst.Hierarchy()
	if sh == dh {
		return nil, errs.ErrRootMeshesMustDiffer
	}
	cells, err := src.Cells()
	if err != nil {
		return nil, err
	}
	cd := src.CellDimension()
	if cd > 0 {
		for _, c := range cells {
			t, err := sh.ElementType(cd, c)
			if err != nil {
				return nil, err
			}
			if t != element.Triangle {
				return nil, errs.Wrap(errs.ErrUnsupportedElementType, "refining %v cell %d", t, c)
			}
		}
	}

	var edges map[int]struct{}
	if cd > 0 {
		if flags == nil {
			flags = EdgeSet()
		}
		selected, err := flags(src)
		if err != nil {
			return nil, err
		}
		edges = make(map[int]struct{}, len(selected))
		for _, e := range selected {
			if !src.Contains(1, e) {
				return nil, errs.Wrap(errs.ErrInvalidElementID, "flagged edge %d is not in mesh %q", e, src.Name())
			}
			edges[e] = struct{}{}
		}
	}

	// dst is only touched once the whole request is known to be valid
	if err = dh.SetGeometricDimension(sh.GeometricDimension()); err != nil {
		return nil, err
	}
	r := newResult(src, dst)
	if err = r.copyVertices(); err != nil {
		return nil, err
	}
	if cd <= 0 {
		o.logger.Info("refinement copied vertices only", zap.Int("vertices", len(r.VertexMap)))
		return r, nil
	}
	if err = r.makeMidpoints(edges); err != nil {
		return nil, err
	}
	if err = r.inheritRegions(); err != nil {
		return nil, err
	}
	for _, c := range cells {
		if err = r.refineTriangle(c); err != nil {
			return nil, err
		}
	}

	o.logger.Info("refinement complete",
		zap.Int("source_cells", len(cells)),
		zap.Int("flagged_edges", len(edges)),
		zap.Int("cells", len(r.Cells)),
		zap.Int("vertices", dh.VertexCount()),
		zap.Ints("cases", r.Cases[:]))
	return r, nil
}

func (r *Result) copyVertices() error {
	sh := r.Src.Hierarchy()
	verts, err := r.Src.Elements(0)
	if err != nil {
		return err
	}
	for _, v := range verts {
		x, err := sh.Vertex(v)
		if err != nil {
			return err
		}
		id, err := r.Dst.MakeVertex(x)
		if err != nil {
			return err
		}
		r.VertexMap[v] = id
	}
	return nil
}

func (r *Result) makeMidpoints(edges map[int]struct{}) error {
	// Source edge order keeps midpoint ids deterministic
	all, err := r.Src.Elements(1)
	if err != nil {
		return err
	}
	sh := r.Src.Hierarchy()
	for _, e := range all {
		if _, ok := edges[e]; !ok {
			continue
		}
		mid, err := geometry.ElementCentroid(sh, 1, e)
		if err != nil {
			return err
		}
		id, err := r.Dst.MakeVertex(mid)
		if err != nil {
			return err
		}
		r.Midpoints[e] = id
	}
	return nil
}

func (r *Result) inheritRegions() error {
	dh := r.Dst.Hierarchy()
	for _, reg := range r.Src.Hierarchy().Regions() {
		d, err := dh.GetMakeRegion(reg.ID())
		if err != nil {
			return err
		}
		if d.Name() == "" {
			d.SetName(reg.Name())
		}
	}
	return nil
}

// triangle edge layout index of the cyclic edge k, joining local vertices k and k+1
var cyclicEdge = [3]int{0, 2, 1}

// refineTriangle applies the case table to source cell c. Vertices are
// rotated so each case is written once; rotation keeps the orientation.
//
// With two flagged edges the corner triangle (mab, b, mbc) is cut off and the
// remaining quadrilateral (a, mab, mbc, c) is split along one of its
// diagonals: when |a-mbc| > |mab-c| the cut runs from mab to c, otherwise
// (ties included) from a to mbc. Since |a-mbc|^2 - |mab-c|^2 equals
// 3/4 (|ab|^2 - |bc|^2), this joins the midpoint of the longer flagged edge
// to the opposite vertex, and mbc to a when the flagged edges are equal.
func (r *Result) refineTriangle(c int) error {
	sh := r.Src.Hierarchy()
	verts, err := sh.VertexIDs(2, c)
	if err != nil {
		return err
	}
	edges, err := sh.BoundaryIDs(2, c, 1)
	if err != nil {
		return err
	}
	var (
		v       [3]int
		m       [3]int // Midpoint on cyclic edge k, -1 when not split
		flagged []int
	)
	for k := 0; k < 3; k++ {
		v[k] = r.VertexMap[verts[k]]
		m[k] = -1
		if id, ok := r.Midpoints[edges[cyclicEdge[k]]]; ok {
			m[k] = id
			flagged = append(flagged, k)
		}
	}
	at := func(k int) int { return v[k%3] }
	mid := func(k int) int { return m[k%3] }

	var tris [][3]int
	switch len(flagged) {
	case 0:
		tris = [][3]int{{v[0], v[1], v[2]}}
	case 1:
		k := flagged[0]
		a, b, cc, mab := at(k), at(k+1), at(k+2), mid(k)
		tris = [][3]int{{a, mab, cc}, {mab, b, cc}}
	case 2:
		// The unflagged edge runs from c to a
		k := 3 - flagged[0] - flagged[1]
		cc, a, b := at(k), at(k+1), at(k+2)
		mab, mbc := mid(k+1), mid(k+2)
		tris = [][3]int{{mab, b, mbc}}
		long, err := r.longerDiagonal(a, mbc, mab, cc)
		if err != nil {
			return err
		}
		if long {
			tris = append(tris, [3]int{a, mab, cc}, [3]int{mab, mbc, cc})
		} else {
			tris = append(tris, [3]int{a, mab, mbc}, [3]int{a, mbc, cc})
		}
	case 3:
		a, b, cc := v[0], v[1], v[2]
		mab, mbc, mca := m[0], m[1], m[2]
		tris = [][3]int{
			{a, mab, mca},
			{mab, b, mbc},
			{mca, mbc, cc},
			{mab, mbc, mca},
		}
	}
	r.Cases[len(flagged)]++

	regions, err := sh.ElementRegions(2, c)
	if err != nil {
		return err
	}
	dh := r.Dst.Hierarchy()
	for _, tri := range tris {
		id, err := r.Dst.MakeElement(element.Triangle, tri[:])
		if err != nil {
			return err
		}
		if err = dh.SetParentID(2, id, c); err != nil {
			return err
		}
		for _, reg := range regions {
			if err = dh.AddToRegion(2, id, reg); err != nil {
				return err
			}
		}
		r.Parents[id] = c
		r.Cells = append(r.Cells, id)
	}
	return nil
}

// longerDiagonal reports whether |p0-p1| > |q0-q1| for destination vertices
func (r *Result) longerDiagonal(p0, p1, q0, q1 int) (bool, error) {
	dh := r.Dst.Hierarchy()
	var pts [4][]float64
	for i, id := range []int{p0, p1, q0, q1} {
		x, err := dh.Vertex(id)
		if err != nil {
			return false, err
		}
		pts[i] = x
	}
	return geometry.Distance(pts[0], pts[1]) > geometry.Distance(pts[2], pts[3]), nil
}
