package hierarchy

// snapshotCache holds a derived relation together with the change counter it
// was built against. The value is only reachable through get, so a stale
// value can never be read: any counter mismatch triggers a full rebuild.
type snapshotCache[T any] struct {
	valid    bool
	snapshot uint64
	value    T
}

func (c *snapshotCache[T]) get(counter uint64, build func() T) T {
	if !c.valid || c.snapshot != counter {
		c.value = build()
		c.snapshot = counter
		c.valid = true
	}
	return c.value
}

// stale reports whether the next get will rebuild
func (c *snapshotCache[T]) stale(counter uint64) bool {
	return !c.valid || c.snapshot != counter
}

// boundaryTable flags boundary elements per dimension for one cell selection
type boundaryTable struct {
	cellDim int
	flags   [][]bool // [dim][id]
}

func (bt boundaryTable) isBoundary(dim, id int) bool {
	if dim >= bt.cellDim || dim >= len(bt.flags) {
		return false
	}
	f := bt.flags[dim]
	return id >= 0 && id < len(f) && f[id]
}

type relationKey struct {
	dim, connectorDim, targetDim int
}

type meshCaches struct {
	boundary       snapshotCache[boundaryTable]
	regionBoundary map[int]*snapshotCache[boundaryTable]
	coboundary     map[relationKey]*snapshotCache[[][]int]
	neighbors      map[relationKey]*snapshotCache[[][]int]
}

func newMeshCaches() meshCaches {
	return meshCaches{
		regionBoundary: make(map[int]*snapshotCache[boundaryTable]),
		coboundary:     make(map[relationKey]*snapshotCache[[][]int]),
		neighbors:      make(map[relationKey]*snapshotCache[[][]int]),
	}
}

func cacheFor[K comparable, T any](m map[K]*snapshotCache[T], key K) *snapshotCache[T] {
	c, ok := m[key]
	if !ok {
		c = &snapshotCache[T]{}
		m[key] = c
	}
	return c
}
