// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "testing"

func TestV3(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	var a V3
	a.Add(&v, &w)
	if a != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", a)
	}

	var s V3
	s.Sub(&v, &w)
	if s != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", s)
	}

	var sc V3
	sc.Scale(-1, &v)
	if sc != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", sc)
	}

	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6", d)
	}
	if d := v.Dot(&v); d != 21 {
		t.Fatalf("V3.Dot(self)\nhave %v\nwant 21", d)
	}

	var c V3
	c.Cross(&V3{1, 0, 0}, &V3{0, 1, 0})
	if c != (V3{0, 0, 1}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [0 0 1]", c)
	}

	x := V3{3, 0, 0}
	var n V3
	n.Norm(&x)
	if n.Len() < 0.999 || n.Len() > 1.001 {
		t.Fatalf("V3.Norm\nhave len %v\nwant ~1", n.Len())
	}
}

func TestM3(t *testing.T) {
	var m M3
	m.I()
	if m != (M3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}) {
		t.Fatalf("M3.I\nhave %v\nwant identity", m)
	}

	var p M3
	p.Mul(&m, &m)
	if p != m {
		t.Fatalf("M3.Mul(I, I)\nhave %v\nwant identity", p)
	}

	h := M3{{0, 1, 1}, {3, 0, -1}, {-1, 1, 0}}
	var inv M3
	inv.Invert(&h)
	var id M3
	id.Mul(&h, &inv)
	for i := range id {
		for j := range id[i] {
			want := float32(0)
			if i == j {
				want = 1
			}
			if d := id[i][j] - want; d > 1e-3 || d < -1e-3 {
				t.Fatalf("M3.Invert round-trip\nhave %v\nwant identity", id)
			}
		}
	}
}

func TestM4(t *testing.T) {
	var m M4
	m.I()
	h := M4{
		{0, 1, 1, -3},
		{3, 0, -1, 0},
		{-1, 1, 0, 3},
		{1, 0, -3, 0},
	}
	var inv M4
	inv.Invert(&h)
	var id M4
	id.Mul(&h, &inv)
	for i := range id {
		for j := range id[i] {
			want := float32(0)
			if i == j {
				want = 1
			}
			if d := id[i][j] - want; d > 1e-3 || d < -1e-3 {
				t.Fatalf("M4.Invert round-trip\nhave %v\nwant identity", id)
			}
		}
	}
}

func TestBox3(t *testing.T) {
	b := EmptyBox3()
	if b.Valid() {
		t.Fatal("EmptyBox3 must not be Valid before Extend")
	}
	b.Extend(&V3{1, 2, 3})
	b.Extend(&V3{-1, 0, 5})
	if !b.Valid() {
		t.Fatal("Box3 must be Valid after Extend")
	}
	if b.Min != (V3{-1, 0, 3}) || b.Max != (V3{1, 2, 5}) {
		t.Fatalf("Box3.Extend\nhave min=%v max=%v\nwant min=[-1 0 3] max=[1 2 5]", b.Min, b.Max)
	}
	if axis := b.WidestAxis(); axis != 2 {
		t.Fatalf("Box3.WidestAxis\nhave %d\nwant 2", axis)
	}
	if sa := b.SurfaceArea(); sa <= 0 {
		t.Fatalf("Box3.SurfaceArea\nhave %v\nwant > 0", sa)
	}
}
