// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"github.com/chewxy/math32"
)

// Box3 is an axis-aligned bounding box in 3-space.
// The zero value is the degenerate box at the origin, not an
// empty one; EmptyBox3 returns the inverted box (Min > Max
// component-wise) whose first Extend call establishes the
// box's true extent.
type Box3 struct {
	Min, Max V3
}

// EmptyBox3 returns an inverted box suitable as the seed
// value of a running union (see Box3.Extend).
func EmptyBox3() Box3 {
	return Box3{
		Min: V3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: V3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Extend grows b to contain p.
func (b *Box3) Extend(p *V3) {
	for i := range b.Min {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union sets b to contain the union of l and r.
func (b *Box3) Union(l, r *Box3) {
	for i := range b.Min {
		b.Min[i] = min32(l.Min[i], r.Min[i])
		b.Max[i] = max32(l.Max[i], r.Max[i])
	}
}

// Valid reports whether b has non-negative extent on every axis.
func (b *Box3) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Center returns the midpoint of b.
func (b *Box3) Center() (c V3) {
	for i := range c {
		c[i] = (b.Min[i] + b.Max[i]) * 0.5
	}
	return
}

// Extent returns the per-axis side lengths of b.
func (b *Box3) Extent() (e V3) {
	for i := range e {
		e[i] = b.Max[i] - b.Min[i]
	}
	return
}

// WidestAxis returns the axis (0, 1 or 2) along which b is largest.
func (b *Box3) WidestAxis() int {
	e := b.Extent()
	axis := 0
	if e[1] > e[axis] {
		axis = 1
	}
	if e[2] > e[axis] {
		axis = 2
	}
	return axis
}

// SurfaceArea returns the surface area of b.
// It returns zero for an invalid (empty) box.
func (b *Box3) SurfaceArea() float32 {
	if !b.Valid() {
		return 0
	}
	e := b.Extent()
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[2]*e[0])
}

// Clip returns the box obtained by intersecting b with the
// half-space axis >= pos (upper=false) or axis <= pos (upper=true).
// It is used by spatial-split primitive clipping.
func (b *Box3) Clip(axis int, pos float32, upper bool) Box3 {
	c := *b
	if upper {
		if pos < c.Max[axis] {
			c.Max[axis] = pos
		}
	} else {
		if pos > c.Min[axis] {
			c.Min[axis] = pos
		}
	}
	return c
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
