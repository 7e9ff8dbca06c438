package object

import (
	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
)

// Triangle is a micro-triangle: three indices into a Tessel's vertex
// arrays.
type Triangle struct {
	V0, V1, V2 int
}

// PrimVar is a named primitive variable carried by a Tessel, sampled
// per vertex (Vertex class) or per micro-triangle corner (Varying
// class).
type PrimVar struct {
	Class node.StorageClass
	Kind  node.Kind
	// Data is laid out contiguously: one Kind.Size()-byte value per
	// vertex (Vertex class) or per (triangle, corner) pair (Varying
	// class, 3 values per triangle).
	Data []byte
}

func (v *PrimVar) at(i int) []byte {
	n := v.Kind.Size()
	return v.Data[i*n : i*n+n]
}

// Tessel is the renderer's eiRayTessel: a micro-triangle soup plus
// the primitive variables needed to shade a hit on it, and a lazily
// built per-tessellation sub-BSP tag. Positions are object-space.
type Tessel struct {
	Positions []linear.V3
	Normals   []linear.V3
	Triangles []Triangle
	Box       Box
	Vars      map[string]*PrimVar

	// BSPTag, once non-zero, names a db record holding the
	// tessellation's packed sub-BSP (package bsp). CreateSubBSP sets
	// it on a deferred placeholder (see DeferredDice) right away; the
	// record's payload is built by the db's registered generator on
	// first Access.
	BSPTag db.Tag

	// Deferred is set on a placeholder tessellation produced by
	// DeferredDice: the job that must be re-run (via Dice) the first
	// time a traversal needs this tessellation's triangles.
	Deferred *Job
}

// Bary evaluates barycentric weights (w0, w1, w2) for a point inside
// triangle tri given its object-space hit position.
func (t *Tessel) Bary(tri int, p *linear.V3) (w0, w1, w2 float32) {
	tr := t.Triangles[tri]
	a, b, c := t.Positions[tr.V0], t.Positions[tr.V1], t.Positions[tr.V2]
	var v0, v1, v2 linear.V3
	v0.Sub(&b, &a)
	v1.Sub(&c, &a)
	v2.Sub(p, &a)
	d00 := v0.Dot(&v0)
	d01 := v0.Dot(&v1)
	d11 := v1.Dot(&v1)
	d20 := v2.Dot(&v0)
	d21 := v2.Dot(&v1)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 1, 0, 0
	}
	w1 = (d11*d20 - d01*d21) / denom
	w2 = (d00*d21 - d01*d20) / denom
	w0 = 1 - w1 - w2
	return
}

// InterpVertex interpolates a Vertex-class primitive variable at
// triangle tri using barycentric weights. It reports whether name
// names a known variable of the expected storage class, matching
// spec.md §4.4's interp_vertex/interp_varying return contract.
func (t *Tessel) InterpVertex(name string, tri int, bary [3]float32) ([]byte, bool) {
	v, ok := t.Vars[name]
	if !ok || v.Class != node.Vertex {
		return nil, false
	}
	idx := t.Triangles[tri]
	return blend(v, idx.V0, idx.V1, idx.V2, bary), true
}

// InterpVarying interpolates a Varying-class primitive variable,
// stored as three per-triangle corner values rather than indexed
// through the vertex array.
func (t *Tessel) InterpVarying(name string, tri int, bary [3]float32) ([]byte, bool) {
	v, ok := t.Vars[name]
	if !ok || v.Class != node.Varying {
		return nil, false
	}
	base := tri * 3
	return blend(v, base, base+1, base+2, bary), true
}

func blend(v *PrimVar, i0, i1, i2 int, bary [3]float32) []byte {
	n := v.Kind.Size()
	out := make([]byte, n)
	// Only float-component kinds (Float, Vector3, Vector4, Color)
	// blend meaningfully; everything else picks the dominant corner,
	// matching the renderer's treatment of non-interpolable types
	// (e.g. Pointer, String) at a hit.
	if !blendable(v.Kind) {
		switch {
		case bary[0] >= bary[1] && bary[0] >= bary[2]:
			copy(out, v.at(i0))
		case bary[1] >= bary[2]:
			copy(out, v.at(i1))
		default:
			copy(out, v.at(i2))
		}
		return out
	}
	a, b, c := v.at(i0), v.at(i1), v.at(i2)
	for i := 0; i < n; i += 4 {
		fa := decodeF32(a[i : i+4])
		fb := decodeF32(b[i : i+4])
		fc := decodeF32(c[i : i+4])
		f := fa*bary[0] + fb*bary[1] + fc*bary[2]
		encodeF32(out[i:i+4], f)
	}
	return out
}

func blendable(k node.Kind) bool {
	switch k {
	case node.Float, node.Vector3, node.Vector4, node.Color:
		return true
	default:
		return false
	}
}
