package bsp

import (
	"sort"

	"github.com/elvishrender/core/linear"
)

// Ray is a traversal ray in the tree's coordinate space.
type Ray struct {
	Org, Dir linear.V3
	InvDir   linear.V3
	TMin     float32
	TMax     float32
}

// Hit records one leaf-primitive intersection reported by Intersector.
type Hit struct {
	Prim int
	T    float32
}

// Intersector tests a ray against a single primitive, reporting
// whether it was hit and, if so, its distance and an opaque payload
// identifying it among others at the same leaf. Tree itself carries
// no geometry, so every real intersection test is delegated here,
// per the two-level design (the same Tree type walks both the
// tessellation-bound scene BSP and a tessellation's micro-triangle
// sub-BSP, each with its own Intersector).
type Intersector interface {
	Intersect(ray *Ray, prim int) (t float32, ok bool)
}

type stackEntry struct {
	node int
	tMin float32
	tMax float32
}

// Nearest walks the tree in nearest-mode: it descends front-to-back
// and stops as soon as a hit closer than the remaining subtree's near
// bound is found, matching eye/reflection/refraction/final-gather
// rays in spec.md §4.5.
func (t *Tree) Nearest(ray *Ray, isect Intersector) (Hit, bool) {
	if len(t.Nodes) == 0 {
		return Hit{}, false
	}
	var stack [StackSize]stackEntry
	sp := 0
	tMin, tMax := ray.TMin, ray.TMax
	node := 0

	best := Hit{T: tMax}
	found := false

	for {
		n := t.Nodes[node]
		if n.IsLeaf() {
			for _, p := range t.Leaves[n.LeafIndex()] {
				if d, ok := isect.Intersect(ray, p); ok && d >= ray.TMin && d < best.T {
					best = Hit{Prim: p, T: d}
					found = true
				}
			}
			if sp == 0 {
				return best, found
			}
			sp--
			node, tMin, tMax = stack[sp].node, stack[sp].tMin, stack[sp].tMax
			if found && best.T <= tMin {
				return best, found
			}
			continue
		}

		axis := n.Axis()
		pos := n.SplitPos()
		origin := ray.Org[axis]
		inv := ray.InvDir[axis]

		var tSplit float32
		var near, far int
		left := node + 1
		right := n.RightChild()
		if inv == 0 {
			// Ray parallel to the plane: descend whichever side the
			// origin lies in, cull the other only if clearly beyond it.
			if origin <= pos {
				near, far = left, right
			} else {
				near, far = right, left
			}
			tSplit = tMax + 1
		} else {
			tSplit = (pos - origin) * inv
			if origin < pos || (origin == pos && inv >= 0) {
				near, far = left, right
			} else {
				near, far = right, left
			}
		}

		switch {
		case tSplit >= tMax || tSplit < 0:
			node = near
		case tSplit <= tMin:
			node = far
		default:
			if sp >= StackSize {
				return best, found
			}
			stack[sp] = stackEntry{far, tSplit, tMax}
			sp++
			node = near
			tMax = tSplit
		}
	}
}

// SortedHits walks the tree in sort-mode: it collects every
// intersection along the ray's full [TMin, TMax] span and returns
// them ordered by increasing distance, for transparent shadow rays
// that must accumulate occluder attenuation in order.
func (t *Tree) SortedHits(ray *Ray, isect Intersector) []Hit {
	if len(t.Nodes) == 0 {
		return nil
	}
	var hits []Hit
	var stack [StackSize]stackEntry
	sp := 0
	node := 0
	tMin, tMax := ray.TMin, ray.TMax

	for {
		n := t.Nodes[node]
		if n.IsLeaf() {
			for _, p := range t.Leaves[n.LeafIndex()] {
				if d, ok := isect.Intersect(ray, p); ok && d >= ray.TMin && d <= ray.TMax {
					hits = append(hits, Hit{Prim: p, T: d})
				}
			}
			if sp == 0 {
				break
			}
			sp--
			node, tMin, tMax = stack[sp].node, stack[sp].tMin, stack[sp].tMax
			continue
		}

		// Sort-mode collects every hit over the ray's full span, so
		// both children are always visited; only their order of
		// visitation (irrelevant once results are sorted below)
		// would come from near/far classification.
		if sp >= StackSize {
			break
		}
		stack[sp] = stackEntry{n.RightChild(), tMin, tMax}
		sp++
		node = node + 1
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}
