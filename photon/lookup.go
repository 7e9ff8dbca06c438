package photon

import (
	"container/heap"

	"github.com/elvishrender/core/linear"
)

// Filter decides whether a candidate Record qualifies for a Lookup,
// letting callers restrict a lookup to e.g. only photons that entered
// through a specular chain (caustic gathering) without a second map.
type Filter func(rec *Record, dist2 float32) bool

// Found is one result from Lookup, paired with its squared distance
// from the query point.
type Found struct {
	Rec   *Record
	Dist2 float32
}

type foundHeap []Found

func (h foundHeap) Len() int           { return len(h) }
func (h foundHeap) Less(i, j int) bool { return h[i].Dist2 > h[j].Dist2 }
func (h foundHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *foundHeap) Push(x any)        { *h = append(*h, x.(Found)) }
func (h *foundHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Lookup finds up to k Records nearest to p within maxDist, optionally
// restricted by filter (a nil filter accepts everything), implementing
// eiMap's locate_points: the search descends the implicit kd-tree,
// visiting the near child first and only descending into the far
// child when the current worst-of-k distance could still reach across
// the splitting plane. Results are returned sorted nearest first.
func (m *Map) Lookup(p linear.V3, maxDist float32, k int, filter Filter) ([]Found, error) {
	if !m.balanced {
		return nil, ErrNotBalanced
	}
	if m.Len() == 0 {
		return nil, nil
	}

	h := make(foundHeap, 0, k)
	maxDist2 := maxDist * maxDist
	locatePoints(m.records, m.halfStored, p, maxDist2, k, filter, 1, &h)

	out := make([]Found, len(h))
	copy(out, h)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Dist2 < out[i].Dist2 {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// locatePoints is the recursive kd-tree search. maxDist2 narrows as
// the heap fills, pruning subtrees whose splitting plane lies farther
// than the current worst retained candidate.
func locatePoints(records []Record, halfStored int, p linear.V3, maxDist2 float32, k int, filter Filter, index int, h *foundHeap) float32 {
	if index >= len(records) {
		return maxDist2
	}
	rec := &records[index]

	if index <= halfStored {
		axis := rec.Plane
		delta := p[axis] - rec.Pos[axis]

		if delta > 0 {
			maxDist2 = locatePoints(records, halfStored, p, maxDist2, k, filter, 2*index+1, h)
			if delta*delta < maxDist2 {
				maxDist2 = locatePoints(records, halfStored, p, maxDist2, k, filter, 2*index, h)
			}
		} else {
			maxDist2 = locatePoints(records, halfStored, p, maxDist2, k, filter, 2*index, h)
			if delta*delta < maxDist2 {
				maxDist2 = locatePoints(records, halfStored, p, maxDist2, k, filter, 2*index+1, h)
			}
		}
	}

	var d linear.V3
	d.Sub(&p, &rec.Pos)
	dist2 := d.Dot(&d)

	if dist2 < maxDist2 && (filter == nil || filter(rec, dist2)) {
		if len(*h) < k {
			heap.Push(h, Found{Rec: rec, Dist2: dist2})
			if len(*h) == k {
				maxDist2 = (*h)[0].Dist2
			}
		} else {
			heap.Pop(h)
			heap.Push(h, Found{Rec: rec, Dist2: dist2})
			maxDist2 = (*h)[0].Dist2
		}
	}

	return maxDist2
}
