package irradiance

import (
	"container/heap"
	"sync"

	"github.com/chewxy/math32"

	"github.com/elvishrender/core/linear"
)

// Cache is a sparse store of irradiance Records, eiMap's
// specialization for final-gather results. Records accumulate as
// Insert is called from bucket worker goroutines; Find performs a
// bounded nearest-neighbour query and Ward-gradient reconstruction.
// A linear scan per query (rather than a balanced spatial tree) is
// used deliberately: irradiance caches hold orders of magnitude fewer
// points than a photon map (hundreds to low thousands versus
// millions), so the simpler structure is the right tradeoff, and
// package photon carries the balanced-tree implementation this
// module needed for its much larger point counts.
type Cache struct {
	mu      sync.RWMutex
	records []Record
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

// Insert adds r to the cache.
func (c *Cache) Insert(r Record) {
	c.mu.Lock()
	c.records = append(c.records, r)
	c.mu.Unlock()
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

type candidate struct {
	dist2 float32
	rec   *Record
}

// candHeap is a max-heap by distance, so the farthest of the
// currently retained k candidates is always at the root and can be
// evicted in O(log k) once a closer one is found.
type candHeap []candidate

func (h candHeap) Len() int            { return len(h) }
func (h candHeap) Less(i, j int) bool  { return h[i].dist2 > h[j].dist2 }
func (h candHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *candHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// radiusClamp bounds a record's radius R_i to [A/10, A/1.5] for the
// query's projected pixel area A, matching ei_irrad_cond_proc's
// clampi(inv_Ri, inv_Rmin, inv_Rmax). In inverse form the largest
// radius, A/1.5, gives inv_Rmin = 1.5/A and the smallest, A/10,
// gives inv_Rmax = 10/A.
func radiusClamp(invR, pixelArea float32) float32 {
	if pixelArea <= 0 {
		return invR
	}
	invA := 1 / pixelArea
	invRmin := invA * 1.5
	invRmax := invA * 10
	if invR < invRmin {
		return invRmin
	}
	if invR > invRmax {
		return invRmax
	}
	return invR
}

// weight computes ei_irrad_cond_proc/interp_irradiances' w(i): the
// combined positional and angular error of candidate rec against the
// query (p, n), using rec's radius clamped to pixelArea's bounds.
func weight(dist2 float32, rec *Record, n linear.V3, pixelArea float32) float32 {
	invR := radiusClamp(rec.InvR, pixelArea)
	dotNN := n.Dot(&rec.N)
	angular := 1 - dotNN
	if angular < 0 {
		angular = 0
	}
	return math32.Sqrt(dist2)*invR + math32.Sqrt(angular)
}

// accept reports whether rec passes the irradiance-gradient
// acceptance test at the given error weight w, per
// ei_irrad_cond_proc's `(1 - EI_FG_ERROR_COEFF * wi) < 0` rejection
// rule (inverted here to read as an acceptance predicate).
func accept(w float32) bool { return 1-ErrorCoeff*w >= 0 }

// Find performs ei_irrad_cache_find: it locates up to gatherPoints
// records within maxDist of p whose angular/positional error passes
// the acceptance test, and reconstructs an estimate from them via
// Ward gradient interpolation: the weighted mean of the records'
// gradient-corrected E, divided by π. ok is false if no record
// qualifies, signalling the caller should fall back to a fresh
// final-gather sample at p.
func (c *Cache) Find(p, n linear.V3, pixelArea, maxDist float32, gatherPoints int) (color [3]float32, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	maxDist2 := maxDist * maxDist
	h := make(candHeap, 0, gatherPoints)
	for i := range c.records {
		rec := &c.records[i]
		var d linear.V3
		d.Sub(&p, &rec.Pos)
		dist2 := d.Dot(&d)
		if dist2 > maxDist2 {
			continue
		}
		w := weight(dist2, rec, n, pixelArea)
		if !accept(w) {
			continue
		}
		if len(h) < gatherPoints {
			heap.Push(&h, candidate{dist2: dist2, rec: rec})
		} else if dist2 < h[0].dist2 {
			heap.Pop(&h)
			heap.Push(&h, candidate{dist2: dist2, rec: rec})
		}
	}
	if len(h) == 0 {
		return color, false
	}

	var sum [3]float32
	var sumW float32
	for _, cand := range h {
		rec := cand.rec
		w := weight(cand.dist2, rec, n, pixelArea)
		if w < 1e-6 {
			w = 1e6
		} else {
			w = 1 / w
		}

		var dp linear.V3
		dp.Sub(&p, &rec.Pos)
		var dn linear.V3
		dn.Cross(&rec.N, &n)

		u, v := orthoBasis(rec.N)
		localDn := linear.V3{dn.Dot(&u), dn.Dot(&v), dn.Dot(&rec.N)}
		localDp := linear.V3{dp.Dot(&u), dp.Dot(&v), dp.Dot(&rec.N)}

		li := DecodeRGBE(rec.E)
		li[0] += localDn.Dot(&rec.GradR.R) + localDp.Dot(&rec.GradT.R)
		li[1] += localDn.Dot(&rec.GradR.G) + localDp.Dot(&rec.GradT.G)
		li[2] += localDn.Dot(&rec.GradR.B) + localDp.Dot(&rec.GradT.B)

		scale := w / math32.Pi
		sum[0] += li[0] * scale
		sum[1] += li[1] * scale
		sum[2] += li[2] * scale
		sumW += w
	}
	if sumW == 0 {
		return color, false
	}
	return [3]float32{sum[0] / sumW, sum[1] / sumW, sum[2] / sumW}, true
}
