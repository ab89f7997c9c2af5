package partitions

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/geometry"
	"github.com/notargets/DGMesh/hierarchy"
	"go.uber.org/zap"
)

// PartitionBuilder splits the cells of a mesh into partitions
type PartitionBuilder struct {
	Mesh hierarchy.Mesh

	// Partitioning parameters
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy

	Logger *zap.Logger // Optional
}

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically

	// Connectivity and geometry driven strategies
	GraphPartition    // Breadth-first growth over facet neighbors
	SpaceFillingCurve // Morton ordering of cell centroids
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round_robin"
	case GraphPartition:
		return "graph"
	case SpaceFillingCurve:
		return "space_filling_curve"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy maps a strategy name to a PartitionStrategy
func ParseStrategy(s string) (PartitionStrategy, error) {
	for _, st := range []PartitionStrategy{BlockPartition, RoundRobin, GraphPartition, SpaceFillingCurve} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown partition strategy %q", s)
}

func (pb *PartitionBuilder) logger() *zap.Logger {
	if pb.Logger == nil {
		return zap.NewNop()
	}
	return pb.Logger
}

// BuildPartitions creates a partition layout for the cells of pb.Mesh
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.TargetPartitionSize <= 0 {
		return nil, fmt.Errorf("target partition size must be positive, got %d", pb.TargetPartitionSize)
	}
	cells, err := pb.Mesh.Cells()
	if err != nil {
		return nil, err
	}
	cd := pb.Mesh.CellDimension()

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions(len(cells))

	// Partition the cells, indexed by position in cells
	parts, err := pb.partitionElements(cells, numPartitions)
	if err != nil {
		return nil, err
	}

	nIDs := 0
	if cd >= 0 {
		nIDs = pb.Mesh.Hierarchy().ElementCount(cd)
	}
	eToP := make([]int, nIDs)
	for i := range eToP {
		eToP[i] = -1
	}
	for i, c := range cells {
		eToP[c] = parts[i]
	}

	partitions, err := pb.createPartitions(cells, parts, numPartitions)
	if err != nil {
		return nil, err
	}
	kpartMax := pb.calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: len(cells),
		NumPartitions: numPartitions,
		CellDimension: cd,
		EToP:          eToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	stats := layout.PartitionStatistics()
	pb.logger().Info("partitions built",
		zap.String("mesh", pb.Mesh.Name()),
		zap.Stringer("strategy", pb.Strategy),
		zap.Int("partitions", numPartitions),
		zap.Int("kpart_max", kpartMax),
		zap.Float64("imbalance", stats.Imbalance))
	return layout, nil
}

// calculateNumPartitions determines the partition count from the target size
func (pb *PartitionBuilder) calculateNumPartitions(numElements int) int {
	numPartitions := int(math.Ceil(float64(numElements) / float64(pb.TargetPartitionSize)))
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

// partitionElements assigns each position in cells to a partition
func (pb *PartitionBuilder) partitionElements(cells []int, numPartitions int) ([]int, error) {
	n := len(cells)
	switch pb.Strategy {
	case BlockPartition:
		return blockAssign(n, numPartitions), nil

	case RoundRobin:
		parts := make([]int, n)
		for i := range parts {
			parts[i] = i % numPartitions
		}
		return parts, nil

	case GraphPartition:
		return pb.growPartitions(cells, numPartitions)

	case SpaceFillingCurve:
		order, err := pb.mortonOrder(cells)
		if err != nil {
			return nil, err
		}
		block := blockAssign(n, numPartitions)
		parts := make([]int, n)
		for rank, i := range order {
			parts[i] = block[rank]
		}
		return parts, nil
	}
	return nil, fmt.Errorf("unsupported partition strategy %v", pb.Strategy)
}

func blockAssign(n, numPartitions int) []int {
	parts := make([]int, n)
	elementsPerPartition := int(math.Ceil(float64(n) / float64(numPartitions)))
	for i := range parts {
		parts[i] = i / elementsPerPartition
		if parts[i] >= numPartitions {
			parts[i] = numPartitions - 1
		}
	}
	return parts
}

// growPartitions fills partitions one at a time by breadth-first traversal
// across shared facets, so each partition is a connected patch where the
// mesh allows it.
func (pb *PartitionBuilder) growPartitions(cells []int, numPartitions int) ([]int, error) {
	n := len(cells)
	parts := make([]int, n)
	if n == 0 {
		return parts, nil
	}
	cd := pb.Mesh.CellDimension()
	if cd < 1 {
		return blockAssign(n, numPartitions), nil
	}
	position := make(map[int]int, n)
	for i, c := range cells {
		position[c] = i
		parts[i] = -1
	}
	quota := int(math.Ceil(float64(n) / float64(numPartitions)))
	queued := make([]bool, n)
	p, size := 0, 0

	for seed := range cells {
		if queued[seed] {
			continue
		}
		queued[seed] = true
		queue := []int{seed}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			if size == quota && p < numPartitions-1 {
				p, size = p+1, 0
			}
			parts[i] = p
			size++

			nbrs, err := pb.Mesh.Neighbors(cd, cells[i], cd-1, cd)
			if err != nil {
				return nil, err
			}
			for _, nb := range nbrs {
				j, ok := position[nb]
				if ok && !queued[j] {
					queued[j] = true
					queue = append(queue, j)
				}
			}
		}
	}
	return parts, nil
}

// mortonOrder returns positions in cells sorted by the Morton code of the
// cell centroids within the mesh bounding box.
func (pb *PartitionBuilder) mortonOrder(cells []int) ([]int, error) {
	h := pb.Mesh.Hierarchy()
	cd := pb.Mesh.CellDimension()
	dim := h.GeometricDimension()
	centroids := make([][]float64, len(cells))
	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for d := range lo {
		lo[d], hi[d] = math.Inf(1), math.Inf(-1)
	}
	for i, c := range cells {
		x, err := geometry.ElementCentroid(h, cd, c)
		if err != nil {
			return nil, err
		}
		centroids[i] = x
		for d, v := range x {
			lo[d] = math.Min(lo[d], v)
			hi[d] = math.Max(hi[d], v)
		}
	}

	bits := 63 / dim
	if bits > 21 {
		bits = 21
	}
	scale := float64(uint64(1)<<bits - 1)
	codes := make([]uint64, len(cells))
	for i, x := range centroids {
		var code uint64
		q := make([]uint64, dim)
		for d, v := range x {
			if span := hi[d] - lo[d]; span > 0 {
				q[d] = uint64((v - lo[d]) / span * scale)
			}
		}
		for b := bits - 1; b >= 0; b-- {
			for d := 0; d < dim; d++ {
				code = code<<1 | (q[d]>>b)&1
			}
		}
		codes[i] = code
	}

	order := make([]int, len(cells))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return codes[order[a]] < codes[order[b]] })
	return order, nil
}

// createPartitions builds partition structures from cell assignments
func (pb *PartitionBuilder) createPartitions(cells, parts []int, numPartitions int) ([]Partition, error) {
	h := pb.Mesh.Hierarchy()
	cd := pb.Mesh.CellDimension()
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i}
	}

	for i, c := range cells {
		p := &partitions[parts[i]]
		t, err := h.ElementType(cd, c)
		if err != nil {
			return nil, err
		}
		p.Elements = append(p.Elements, c)
		p.ElementTypes = append(p.ElementTypes, t)
		p.NumElements++
	}

	for i := range partitions {
		partitions[i].TypeGroups = createElementGroups(&partitions[i])
	}
	return partitions, nil
}

// createElementGroups organizes cells by type within a partition, in
// ascending type order.
func createElementGroups(p *Partition) []ElementGroup {
	if len(p.ElementTypes) == 0 {
		return nil
	}

	byType := make(map[int][]int)
	var types []int
	for i, t := range p.ElementTypes {
		if _, ok := byType[int(t)]; !ok {
			types = append(types, int(t))
		}
		byType[int(t)] = append(byType[int(t)], i)
	}
	sort.Ints(types)

	groups := make([]ElementGroup, 0, len(types))
	currentIndex := 0
	for _, ti := range types {
		indices := byType[ti]
		t := p.ElementTypes[indices[0]]
		groups = append(groups, ElementGroup{
			ElementType: t,
			StartIndex:  currentIndex,
			Count:       len(indices),
			NVertices:   t.VertexCount(),
			LocalIDs:    indices,
		})
		currentIndex += len(indices)
	}
	return groups
}

// calculateKpartMax finds maximum cells across all partitions
func (pb *PartitionBuilder) calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}

// PartitionMeshName is the name of the child mesh holding partition id
func PartitionMeshName(id int) string { return fmt.Sprintf("partition_%d", id) }

// Apply materialises every partition as a child mesh of m named by
// PartitionMeshName. The layout must have been built for m.
func Apply(m hierarchy.Mesh, layout *PartitionLayout) ([]hierarchy.Mesh, error) {
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	if layout.TotalElements > 0 && layout.CellDimension != m.CellDimension() {
		return nil, errs.Wrap(errs.ErrDimensionMismatch, "layout cell dimension %d, mesh %d",
			layout.CellDimension, m.CellDimension())
	}
	meshes := make([]hierarchy.Mesh, len(layout.Partitions))
	for i, p := range layout.Partitions {
		for _, c := range p.Elements {
			if !m.Contains(layout.CellDimension, c) {
				return nil, errs.Wrap(errs.ErrInvalidElementID, "partition %d cell %d is not in mesh %q",
					p.ID, c, m.Name())
			}
		}
		child, err := m.MakeChild(PartitionMeshName(p.ID))
		if err != nil {
			return nil, err
		}
		for _, c := range p.Elements {
			if err = child.AddElement(layout.CellDimension, c); err != nil {
				return nil, err
			}
		}
		meshes[i] = child
	}
	return meshes, nil
}

// InterfaceFacet is a facet whose two cells sit in different partitions
type InterfaceFacet struct {
	Facet      int
	Cells      [2]int // Cell ids, lower partition first
	Partitions [2]int
}

// InterfaceFacets lists the facets of m shared across partitions, in mesh
// facet order.
func InterfaceFacets(m hierarchy.Mesh, layout *PartitionLayout) ([]InterfaceFacet, error) {
	cd := layout.CellDimension
	if cd < 1 {
		return nil, nil
	}
	facets, err := m.Elements(cd - 1)
	if err != nil {
		return nil, err
	}
	var out []InterfaceFacet
	for _, f := range facets {
		co, err := m.Coboundary(cd-1, f, cd)
		if err != nil {
			return nil, err
		}
		if len(co) != 2 {
			continue
		}
		p0, p1 := layout.GetPartition(co[0]), layout.GetPartition(co[1])
		if p0 < 0 || p1 < 0 || p0 == p1 {
			continue
		}
		if p1 < p0 {
			co[0], co[1], p0, p1 = co[1], co[0], p1, p0
		}
		out = append(out, InterfaceFacet{
			Facet:      f,
			Cells:      [2]int{co[0], co[1]},
			Partitions: [2]int{p0, p1},
		})
	}
	return out, nil
}
