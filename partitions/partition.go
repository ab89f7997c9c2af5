package partitions

import (
	"fmt"
	"math"

	"github.com/notargets/DGMesh/element"
	"github.com/notargets/DGMesh/quantity"
)

// Partition is a group of cells of one mesh processed together
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Cell membership
	Elements    []int // Cell ids in this partition, in mesh order
	NumElements int   // Actual number of cells
	MaxElements int   // Padded size, equal to the layout's KpartMax

	// Mixed element support
	ElementTypes []element.Type // Type of each cell
	TypeGroups   []ElementGroup // Cells grouped by type
}

// ElementGroup collects the cells of one type within a partition
type ElementGroup struct {
	ElementType element.Type
	StartIndex  int   // Position of the group in type-sorted order
	Count       int   // Number of cells of this type
	NVertices   int   // Vertices per cell, 0 for polygons of mixed arity
	LocalIDs    []int // Indices into the partition's Elements
}

// PartitionLayout is a complete decomposition of the cells of one mesh
type PartitionLayout struct {
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumElements) across all partitions
	TotalElements int // Sum of all cells across partitions
	NumPartitions int
	CellDimension int

	// Cell to partition mapping, indexed by cell id; -1 for cells outside the mesh
	EToP []int
}

// GetPartition returns the partition holding cell elementID, -1 if none
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions stored, NumPartitions is %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	actualMax, total := 0, 0
	for _, p := range pl.Partitions {
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		if len(p.Elements) != p.NumElements {
			return fmt.Errorf("partition %d: %d elements listed, NumElements %d",
				p.ID, len(p.Elements), p.NumElements)
		}
		for _, c := range p.Elements {
			if pl.GetPartition(c) != p.ID {
				return fmt.Errorf("partition %d: element %d maps to partition %d",
					p.ID, c, pl.GetPartition(c))
			}
		}
		total += p.NumElements
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, TotalElements %d", total, pl.TotalElements)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		MaxElements:   0,
	}
	if pl.NumPartitions == 0 {
		stats.MinElements = 0
		return stats
	}
	stats.AvgElements = float64(pl.TotalElements) / float64(pl.NumPartitions)

	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}
	if stats.AvgElements > 0 {
		stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	}
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// PartitionedArray holds per-cell data regrouped by partition
type PartitionedArray struct {
	// Contiguous storage for all partitions
	// Layout: [Partition 0 Data][Partition 1 Data]...[Partition N-1 Data]
	GlobalData []float64

	// Partition p's data starts at GlobalData[Offsets[p]]
	Offsets []int

	// Values per cell
	Stride int

	// Total allocated size including padding
	AllocatedSize int
}

// GetPartitionData returns a slice for partition p's data
func (pa *PartitionedArray) GetPartitionData(partitionID int) []float64 {
	if partitionID < 0 || partitionID >= len(pa.Offsets)-1 {
		return nil
	}
	start := pa.Offsets[partitionID]
	end := pa.Offsets[partitionID+1]
	return pa.GlobalData[start:end]
}

// AllocatePartitionedArray packs a cell field by partition, padding every
// partition to KpartMax cells. Cells without a value are left zero.
func AllocatePartitionedArray(layout *PartitionLayout, field *quantity.Field[float64]) *PartitionedArray {
	stride := field.Width()
	offsets := make([]int, layout.NumPartitions+1)
	for i := range layout.Partitions {
		offsets[i+1] = offsets[i] + layout.KpartMax*stride
	}
	totalSize := offsets[layout.NumPartitions]

	pa := &PartitionedArray{
		GlobalData:    make([]float64, totalSize),
		Offsets:       offsets,
		Stride:        stride,
		AllocatedSize: totalSize,
	}
	for i, p := range layout.Partitions {
		data := pa.GlobalData[offsets[i]:offsets[i+1]]
		for local, c := range p.Elements {
			if v, ok := field.Get(c); ok {
				copy(data[local*stride:], v)
			}
		}
	}
	return pa
}
