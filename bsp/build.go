package bsp

import (
	"sort"

	"github.com/elvishrender/core/linear"
)

// Box is an axis-aligned bound.
type Box = linear.Box3

// Primitive is one item indexed by a Tree: its object-space bound
// and its relative intersection cost (so triangles and procedural
// leaves can be priced differently, per spec.md §4.5).
type Primitive struct {
	Box  Box
	Cost float32
}

// ClipPrimitive clips primitive i's bound against axis=pos, returning
// the portion(s) of its bound that fall on each side. A Tree built
// without one approximates the clip using only the primitive's AABB,
// which is always available; a caller with true per-primitive
// geometry (e.g. triangle vertices) can supply a tighter clip here,
// matching spec.md's spatial_split_primitive callback.
type ClipPrimitive func(i int, axis Axis, pos float32) (left, right Box)

// Options configures Build.
type Options struct {
	MaxDepth int
	LeafSize int
	Clip     ClipPrimitive
}

// DefaultOptions returns the spec's default tuning.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth, LeafSize: DefaultLeafSize}
}

// Tree is a built BSP: a packed node array plus the leaf primitive
// lists it references.
type Tree struct {
	Nodes  []Node
	Leaves [][]int
	Bounds Box

	prims []Primitive
	opts  Options
}

// Build constructs a Tree over prims.
func Build(prims []Primitive, opts Options) *Tree {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}
	t := &Tree{prims: prims, opts: opts}
	if len(prims) == 0 {
		return t
	}
	bounds := linear.EmptyBox3()
	indices := make([]int, len(prims))
	for i := range prims {
		indices[i] = i
		bounds.Union(&bounds, &prims[i].Box)
	}
	t.Bounds = bounds
	t.build(indices, bounds, 0)
	return t
}

func (t *Tree) addLeaf(indices []int) int {
	li := len(t.Leaves)
	t.Leaves = append(t.Leaves, append([]int(nil), indices...))
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, makeLeaf(li))
	return idx
}

func (t *Tree) unsplitCost(indices []int) float32 {
	var c float32
	for _, i := range indices {
		c += CIsectFactor * t.prims[i].Cost
	}
	return c
}

func (t *Tree) build(indices []int, bounds Box, depth int) int {
	if len(indices) <= t.opts.LeafSize || depth >= t.opts.MaxDepth {
		return t.addLeaf(indices)
	}

	axis, pos, cost, ok := t.findBestSplit(indices, bounds)
	if !ok || cost >= t.unsplitCost(indices) {
		return t.addLeaf(indices)
	}

	leftIdx, rightIdx := t.partition(indices, axis, pos)
	if len(leftIdx) == 0 || len(rightIdx) == 0 || len(leftIdx) == len(indices) || len(rightIdx) == len(indices) {
		return t.addLeaf(indices)
	}

	leftBounds := bounds.Clip(int(axis), pos, true)
	rightBounds := bounds.Clip(int(axis), pos, false)

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, 0) // reserved; left child follows immediately
	t.build(leftIdx, leftBounds, depth+1)
	right := t.build(rightIdx, rightBounds, depth+1)
	t.Nodes[idx] = makeInterior(axis, pos, right)
	return idx
}

// partition assigns each primitive to the left list, the right list,
// or both (when it straddles the plane and no Clip callback narrows
// its bound enough to rule one side out).
func (t *Tree) partition(indices []int, axis Axis, pos float32) (left, right []int) {
	for _, i := range indices {
		b := t.prims[i].Box
		switch {
		case b.Max[axis] <= pos:
			left = append(left, i)
		case b.Min[axis] >= pos:
			right = append(right, i)
		default:
			if t.opts.Clip != nil {
				lb, rb := t.opts.Clip(i, axis, pos)
				if !lb.Valid() {
					right = append(right, i)
					continue
				}
				if !rb.Valid() {
					left = append(left, i)
					continue
				}
			}
			left = append(left, i)
			right = append(right, i)
		}
	}
	return
}

// findBestSplit evaluates candidate planes on all three axes and
// returns the one with lowest SAH cost.
func (t *Tree) findBestSplit(indices []int, bounds Box) (axis Axis, pos float32, cost float32, ok bool) {
	cost = math32MaxFloat
	for a := AxisX; a <= AxisZ; a++ {
		var p, c float32
		var found bool
		if len(indices) <= FastSortThreshold {
			p, c, found = t.fastSortSplit(indices, a, bounds)
		} else {
			p, c, found = t.eventSplit(indices, a, bounds)
		}
		if found && c < cost {
			axis, pos, cost, ok = a, p, c, true
		}
	}
	return
}

const math32MaxFloat = 3.4028235e38

// fastSortSplit enumerates every primitive's min/max extent on axis
// as a candidate plane and evaluates SAH cost in closed form for
// each, per spec.md's small-input fast path ("eiBSPFastSortEvent").
func (t *Tree) fastSortSplit(indices []int, axis Axis, bounds Box) (pos float32, cost float32, ok bool) {
	cost = math32MaxFloat
	seen := map[float32]bool{}
	for _, i := range indices {
		for _, cand := range [2]float32{t.prims[i].Box.Min[axis], t.prims[i].Box.Max[axis]} {
			if cand <= bounds.Min[axis] || cand >= bounds.Max[axis] || seen[cand] {
				continue
			}
			seen[cand] = true
			var leftCost, rightCost, leftN, rightN float32
			for _, j := range indices {
				b := t.prims[j].Box
				switch {
				case b.Max[axis] <= cand:
					leftCost += CIsectFactor * t.prims[j].Cost
					leftN++
				case b.Min[axis] >= cand:
					rightCost += CIsectFactor * t.prims[j].Cost
					rightN++
				default:
					leftCost += CIsectFactor * t.prims[j].Cost
					rightCost += CIsectFactor * t.prims[j].Cost
					leftN++
					rightN++
				}
			}
			c := sahCost(bounds, axis, cand, leftCost, rightCost, leftN == 0 || rightN == 0)
			if c < cost {
				cost, pos, ok = c, cand, true
			}
		}
	}
	return
}

// eventSplit builds a sorted event list and sweeps it once per axis,
// per spec.md's large-input path.
func (t *Tree) eventSplit(indices []int, axis Axis, bounds Box) (pos float32, cost float32, ok bool) {
	type ev struct {
		pos  float32
		kind int // 0 = end, 1 = planar, 2 = begin
		cost float32
	}
	events := make([]ev, 0, 2*len(indices))
	for _, i := range indices {
		b := t.prims[i].Box
		c := CIsectFactor * t.prims[i].Cost
		if b.Min[axis] == b.Max[axis] {
			events = append(events, ev{b.Min[axis], 1, c})
			continue
		}
		events = append(events, ev{b.Min[axis], 2, c})
		events = append(events, ev{b.Max[axis], 0, c})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return events[i].kind < events[j].kind
	})

	var total float32
	for _, e := range events {
		if e.kind != 0 {
			total += e.cost
		}
	}

	cost = math32MaxFloat
	var leftCost float32
	i := 0
	for i < len(events) {
		p := events[i].pos
		var endCost, planarCost, beginCost float32
		j := i
		for j < len(events) && events[j].pos == p && events[j].kind == 0 {
			endCost += events[j].cost
			j++
		}
		k := j
		for k < len(events) && events[k].pos == p && events[k].kind == 1 {
			planarCost += events[k].cost
			k++
		}
		l := k
		for l < len(events) && events[l].pos == p && events[l].kind == 2 {
			beginCost += events[l].cost
			l++
		}

		rightCost := total - leftCost - endCost - planarCost
		// Try assigning the planar primitives to each side in turn
		// and keep whichever is cheaper.
		cLeft := sahCost(bounds, axis, p, leftCost+planarCost, rightCost, leftCost+planarCost == 0 || rightCost == 0)
		cRight := sahCost(bounds, axis, p, leftCost, rightCost+planarCost, leftCost == 0 || rightCost+planarCost == 0)
		c := cLeft
		if cRight < c {
			c = cRight
		}
		if p > bounds.Min[axis] && p < bounds.Max[axis] && c < cost {
			cost, pos, ok = c, p, true
		}

		leftCost += endCost + planarCost + beginCost
		i = l
	}
	return
}

func sahCost(bounds Box, axis Axis, pos float32, leftCost, rightCost float32, oneEmpty bool) float32 {
	left := bounds.Clip(int(axis), pos, true)
	right := bounds.Clip(int(axis), pos, false)
	total := bounds.SurfaceArea()
	if total <= 0 {
		return math32MaxFloat
	}
	pl := left.SurfaceArea() / total
	pr := right.SurfaceArea() / total
	c := CTrav + pl*leftCost + pr*rightCost
	if oneEmpty {
		c *= CutOffEmpty
	}
	return c
}
