package hierarchy

import (
	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/errs"
)

// buildBoundaryTable counts, for every facet, how many selected cells of the
// mesh's cell dimension carry it. Facets used exactly once are boundary;
// lower dimensional elements are boundary when they lie on a boundary facet.
func (m Mesh) buildBoundaryTable(n *meshNode, selected func(cell int) bool) boundaryTable {
	cd := n.cellDimension()
	bt := boundaryTable{cellDim: cd}
	if cd <= 0 {
		return bt
	}
	h := m.h
	fd := cd - 1
	cells := h.buffers[cd]

	counts := make([]int, h.buffers[fd].Len())
	for _, c := range n.elements[cd] {
		if selected != nil && !selected(c) {
			continue
		}
		for _, f := range cells.boundaryRef(c, fd) {
			counts[f]++
		}
	}

	bt.flags = make([][]bool, cd)
	for d := 0; d < cd; d++ {
		bt.flags[d] = make([]bool, h.buffers[d].Len())
	}
	facets := h.buffers[fd]
	for f, c := range counts {
		if c != 1 {
			continue
		}
		bt.flags[fd][f] = true
		for d := 0; d < fd; d++ {
			for _, id := range facets.boundaryRef(f, d) {
				bt.flags[d][id] = true
			}
		}
	}
	return bt
}

func (m Mesh) checkElement(dim, id int) (*ElementBuffer, error) {
	eb, err := m.h.Buffer(dim)
	if err != nil {
		return nil, err
	}
	return eb, eb.checkID(id)
}

// IsBoundary reports whether (dim, id) lies on the boundary of m. A facet is
// boundary when exactly one cell of m has it in its boundary list; elements
// of the cell dimension are never boundary.
func (m Mesh) IsBoundary(dim, id int) (bool, error) {
	n, err := m.node()
	if err != nil {
		return false, err
	}
	if _, err = m.checkElement(dim, id); err != nil {
		return false, err
	}
	bt := n.caches.boundary.get(m.h.changeCounter, func() boundaryTable {
		return m.buildBoundaryTable(n, nil)
	})
	return bt.isBoundary(dim, id), nil
}

// IsRegionBoundary is IsBoundary restricted to the cells of m carrying regionID
func (m Mesh) IsRegionBoundary(regionID, dim, id int) (bool, error) {
	n, err := m.node()
	if err != nil {
		return false, err
	}
	if _, err = m.h.Region(regionID); err != nil {
		return false, err
	}
	if _, err = m.checkElement(dim, id); err != nil {
		return false, err
	}
	c := cacheFor(n.caches.regionBoundary, regionID)
	bt := c.get(m.h.changeCounter, func() boundaryTable {
		cd := n.cellDimension()
		if cd <= 0 {
			return boundaryTable{cellDim: cd}
		}
		cells := m.h.buffers[cd]
		return m.buildBoundaryTable(n, func(cell int) bool {
			return cells.InRegion(cell, regionID)
		})
	})
	return bt.isBoundary(dim, id), nil
}

// BoundaryElements lists the members of dimension dim that are boundary
func (m Mesh) BoundaryElements(dim int) ([]int, error) {
	n, err := m.node()
	if err != nil {
		return nil, err
	}
	if dim < 0 || dim > element.MaxDimension {
		return nil, errs.Wrap(errs.ErrTopologicalDimension, "dimension %d", dim)
	}
	bt := n.caches.boundary.get(m.h.changeCounter, func() boundaryTable {
		return m.buildBoundaryTable(n, nil)
	})
	var out []int
	for _, id := range n.elements[dim] {
		if bt.isBoundary(dim, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m Mesh) coboundaryTable(n *meshNode, dim, targetDim int) [][]int {
	c := cacheFor(n.caches.coboundary, relationKey{dim: dim, targetDim: targetDim})
	return c.get(m.h.changeCounter, func() [][]int {
		co := make([][]int, m.h.buffers[dim].Len())
		targets := m.h.buffers[targetDim]
		for _, t := range n.elements[targetDim] {
			for _, b := range targets.boundaryRef(t, dim) {
				co[b] = append(co[b], t)
			}
		}
		return co
	})
}

// Coboundary returns the members of dimension targetDim that have (dim, id)
// in their boundary, in mesh insertion order.
func (m Mesh) Coboundary(dim, id, targetDim int) ([]int, error) {
	n, err := m.node()
	if err != nil {
		return nil, err
	}
	if _, err = m.checkElement(dim, id); err != nil {
		return nil, err
	}
	if targetDim <= dim || targetDim > element.MaxDimension {
		return nil, errs.Wrap(errs.ErrTopologicalDimension,
			"coboundary of dimension %d at dimension %d", dim, targetDim)
	}
	co := m.coboundaryTable(n, dim, targetDim)
	return append([]int(nil), co[id]...), nil
}

// Neighbors returns the members of dimension targetDim connected to (dim, id)
// through a shared element of dimension connectorDim. The connector must be
// either below both dim and targetDim (shared boundary) or above both
// (shared coboundary). The element itself is never its own neighbor.
func (m Mesh) Neighbors(dim, id, connectorDim, targetDim int) ([]int, error) {
	n, err := m.node()
	if err != nil {
		return nil, err
	}
	if _, err = m.checkElement(dim, id); err != nil {
		return nil, err
	}
	if targetDim < 0 || targetDim > element.MaxDimension ||
		connectorDim < 0 || connectorDim > element.MaxDimension {
		return nil, errs.Wrap(errs.ErrTopologicalDimension, "target %d connector %d", targetDim, connectorDim)
	}
	below := connectorDim < dim && connectorDim < targetDim
	above := connectorDim > dim && connectorDim > targetDim
	if !below && !above {
		return nil, errs.Wrap(errs.ErrDimensionMismatch,
			"connector dimension %d must be below or above both %d and %d", connectorDim, dim, targetDim)
	}

	key := relationKey{dim: dim, connectorDim: connectorDim, targetDim: targetDim}
	c := cacheFor(n.caches.neighbors, key)
	table := c.get(m.h.changeCounter, func() [][]int {
		return m.buildNeighbors(n, key, below)
	})
	if id >= len(table) {
		return nil, nil
	}
	return append([]int(nil), table[id]...), nil
}

func (m Mesh) buildNeighbors(n *meshNode, key relationKey, below bool) [][]int {
	h := m.h
	out := make([][]int, h.buffers[key.dim].Len())
	var co [][]int
	if below {
		co = m.coboundaryTable(n, key.connectorDim, key.targetDim)
	} else {
		co = m.coboundaryTable(n, key.dim, key.connectorDim)
	}
	src := h.buffers[key.dim]
	conn := h.buffers[key.connectorDim]

	for _, e := range n.elements[key.dim] {
		seen := make(map[int]struct{})
		if key.dim == key.targetDim {
			seen[e] = struct{}{}
		}
		var list []int
		collect := func(ids []int) {
			for _, t := range ids {
				if _, dup := seen[t]; dup {
					continue
				}
				seen[t] = struct{}{}
				list = append(list, t)
			}
		}
		if below {
			for _, c := range src.boundaryRef(e, key.connectorDim) {
				collect(co[c])
			}
		} else {
			for _, c := range co[e] {
				collect(conn.boundaryRef(c, key.targetDim))
			}
		}
		out[e] = list
	}
	return out
}
