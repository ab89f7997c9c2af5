// Package quantity stores fixed-size per-element values, such as refinement
// flags on edges or solution data on cells and vertices.
package quantity

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/notargets/DGMesh/errs"
)

// Layout selects the storage strategy of a Field
type Layout uint8

const (
	// Dense stores values contiguously, indexed by id, with a parallel valid bit
	Dense Layout = iota + 1
	// Sparse stores present values in a map keyed by id
	Sparse
)

func (l Layout) String() string {
	switch l {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// ParseLayout maps "dense" or "sparse" to a Layout
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "dense":
		return Dense, nil
	case "sparse":
		return Sparse, nil
	}
	return 0, errs.Wrap(errs.ErrInvalidLayout, "layout %q", s)
}

// Value is the element type of a Field: bytes for flags and small tags,
// float64 for numeric data.
type Value interface {
	~uint8 | ~float64
}

// Field holds one value of Width() entries of T per element id.
type Field[T Value] struct {
	name   string
	layout Layout
	width  int

	dense []T
	valid []bool

	sparse map[int][]T
}

// NewField creates an empty field; width is the number of T per element
func NewField[T Value](name string, layout Layout, width int) (*Field[T], error) {
	f := &Field[T]{name: name, layout: layout, width: width}
	if err := f.checkLayout(); err != nil {
		return nil, err
	}
	if layout == Sparse {
		f.sparse = make(map[int][]T)
	}
	return f, nil
}

// ByteField is shorthand for a one-byte-per-element field
func ByteField(name string, layout Layout) (*Field[uint8], error) {
	return NewField[uint8](name, layout, 1)
}

func (f *Field[T]) checkLayout() error {
	if f == nil {
		return errs.Wrap(errs.ErrInvalidLayout, "nil field")
	}
	if f.layout != Dense && f.layout != Sparse {
		return errs.Wrap(errs.ErrInvalidLayout, "field %q: %v", f.name, f.layout)
	}
	if f.width <= 0 {
		return errs.Wrap(errs.ErrInvalidLayout, "field %q: %d values per element", f.name, f.width)
	}
	return nil
}

// Name returns the field name
func (f *Field[T]) Name() string { return f.name }

// Layout returns the storage layout
func (f *Field[T]) Layout() Layout { return f.layout }

// Width returns the number of values per element
func (f *Field[T]) Width() int { return f.width }

// ValueSize returns the size in bytes of one element's value
func (f *Field[T]) ValueSize() int {
	var zero T
	return f.width * int(unsafe.Sizeof(zero))
}

// Get returns a copy of the value stored for id; ok is false when unset
func (f *Field[T]) Get(id int) (value []T, ok bool) {
	if f.checkLayout() != nil || id < 0 {
		return nil, false
	}
	switch f.layout {
	case Dense:
		if id >= len(f.valid) || !f.valid[id] {
			return nil, false
		}
		return append([]T(nil), f.dense[id*f.width:(id+1)*f.width]...), true
	default:
		v, ok := f.sparse[id]
		if !ok {
			return nil, false
		}
		return append([]T(nil), v...), true
	}
}

// Has reports whether id carries a value
func (f *Field[T]) Has(id int) bool {
	_, ok := f.Get(id)
	return ok
}

func (f *Field[T]) grow(id int) {
	if id < len(f.valid) {
		return
	}
	n := 2 * len(f.valid)
	if n <= id {
		n = id + 1
	}
	valid := make([]bool, n)
	copy(valid, f.valid)
	dense := make([]T, n*f.width)
	copy(dense, f.dense)
	f.valid, f.dense = valid, dense
}

// GetOrCreate returns the value of id, creating a zero value when unset. The
// dense layout grows to cover id. Like Get it returns a copy: writes to the
// result are not stored, use Set to change the value.
func (f *Field[T]) GetOrCreate(id int) ([]T, error) {
	if err := f.checkLayout(); err != nil {
		return nil, err
	}
	if id < 0 {
		return nil, errs.Wrap(errs.ErrInvalidElementID, "field %q id %d", f.name, id)
	}
	if v, ok := f.Get(id); ok {
		return v, nil
	}
	zero := make([]T, f.width)
	if err := f.Set(id, zero); err != nil {
		return nil, err
	}
	return zero, nil
}

// Set stores value for id; value must hold exactly Width() entries
func (f *Field[T]) Set(id int, value []T) error {
	if err := f.checkLayout(); err != nil {
		return err
	}
	if id < 0 {
		return errs.Wrap(errs.ErrInvalidElementID, "field %q id %d", f.name, id)
	}
	if len(value) != f.width {
		return errs.Wrap(errs.ErrDimensionMismatch, "field %q: value has %d entries, want %d",
			f.name, len(value), f.width)
	}
	switch f.layout {
	case Dense:
		f.grow(id)
		copy(f.dense[id*f.width:], value)
		f.valid[id] = true
	default:
		f.sparse[id] = append([]T(nil), value...)
	}
	return nil
}

// SetScalar stores a single-entry value
func (f *Field[T]) SetScalar(id int, v T) error {
	return f.Set(id, []T{v})
}

// Scalar returns the first entry of id's value; ok is false when unset
func (f *Field[T]) Scalar(id int) (v T, ok bool) {
	value, ok := f.Get(id)
	if !ok {
		return v, false
	}
	return value[0], true
}

// Delete unsets id
func (f *Field[T]) Delete(id int) {
	if f.checkLayout() != nil || id < 0 {
		return
	}
	switch f.layout {
	case Dense:
		if id < len(f.valid) {
			f.valid[id] = false
			clear(f.dense[id*f.width : (id+1)*f.width])
		}
	default:
		delete(f.sparse, id)
	}
}

// IDs returns the ids carrying a value in ascending order
func (f *Field[T]) IDs() []int {
	if f.checkLayout() != nil {
		return nil
	}
	var ids []int
	switch f.layout {
	case Dense:
		for id, ok := range f.valid {
			if ok {
				ids = append(ids, id)
			}
		}
	default:
		ids = make([]int, 0, len(f.sparse))
		for id := range f.sparse {
			ids = append(ids, id)
		}
		sort.Ints(ids)
	}
	return ids
}

// Len returns the number of ids carrying a value
func (f *Field[T]) Len() int {
	if f.checkLayout() != nil {
		return 0
	}
	if f.layout == Sparse {
		return len(f.sparse)
	}
	var n int
	for _, ok := range f.valid {
		if ok {
			n++
		}
	}
	return n
}
