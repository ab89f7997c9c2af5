// Package serialize writes a hierarchy to a bit-exact little-endian blob and
// rebuilds hierarchies from it.
//
// Field order:
//
//	magic uint32, version major/minor/patch 3×uint32
//	geometric dimension int32, vertex count int32, coordinates float64...
//	cell dimension int32, cell count int32, cell types uint8...
//	vertex offsets int32 (cells+1), vertex ids int32...
//	has parents uint8 [parent ids int32...]
//	region offsets int32 (cells+1), region ids int32...
//	mesh count int32, mesh parent indices int32..., mesh vertex counts int32...,
//	mesh cell counts int32..., per mesh: name, vertex ids, cell ids
//	region count int32, per region: id int32, name
//
// Strings are an int32 byte length followed by the bytes. A mesh's parent
// index is -1 for the root and smaller than its own index otherwise.
package serialize

import (
	"encoding/binary"
	"math"

	"github.com/notargets/DGMesh/errs"
)

// Magic is "MESH" read as a little-endian uint32
const Magic uint32 = 0x4853454D

// Format version written by Encode; Decode accepts exactly this version
const (
	VersionMajor uint32 = 1
	VersionMinor uint32 = 0
	VersionPatch uint32 = 0
)

// MaxGeometricDimension bounds the coordinates per vertex a blob may declare
const MaxGeometricDimension = 64

type writer struct {
	buf []byte
	err error
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *writer) i32(v int) {
	if w.err == nil && (v < math.MinInt32 || v > math.MaxInt32) {
		w.err = errs.Wrap(errs.ErrSerializationIncompatible, "value %d overflows int32", v)
	}
	w.u32(uint32(int32(v)))
}

func (w *writer) ints(vs []int) {
	for _, v := range vs {
		w.i32(v)
	}
}

func (w *writer) str(s string) {
	w.i32(len(s))
	w.buf = append(w.buf, s...)
}

// reader keeps the first error; later reads return zero values
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.pos < n {
		r.err = errs.Wrap(errs.ErrTruncated, "%s at offset %d: need %d bytes, have %d",
			what, r.pos, n, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8(what string) uint8 {
	b := r.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32(what string) uint32 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i32(what string) int { return int(int32(r.u32(what))) }

func (r *reader) f64(what string) float64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// count reads a non-negative element count and checks that n items of size
// bytes each can still be present.
func (r *reader) count(size int, what string) int {
	n := r.i32(what)
	if r.err != nil {
		return 0
	}
	if n < 0 || (size > 0 && n > (len(r.data)-r.pos)/size) {
		r.err = errs.Wrap(errs.ErrTruncated, "%s: count %d at offset %d", what, n, r.pos)
		return 0
	}
	return n
}

func (r *reader) ints(n int, what string) []int {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > (len(r.data)-r.pos)/4 {
		r.take(n*4, what)
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = r.i32(what)
	}
	return out
}

func (r *reader) str(what string) string {
	n := r.count(1, what)
	return string(r.take(n, what))
}
