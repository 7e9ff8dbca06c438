package photon

// medianSplit partitions records[start:end+1] around the median-th
// order statistic along axis, in place, via Hoare partitioning. After
// it returns, records[median] holds the element that would occupy
// that position in a fully sorted-by-axis array, with everything to
// its left no greater and everything to its right no smaller.
func medianSplit(records []Record, start, end, median, axis int) {
	left, right := start, end
	for right > left {
		v := records[right].Pos[axis]
		i, j := left-1, right
		for {
			i++
			for records[i].Pos[axis] < v {
				i++
			}
			j--
			for records[j].Pos[axis] > v && j > left {
				j--
			}
			if i >= j {
				break
			}
			records[i], records[j] = records[j], records[i]
		}
		records[i], records[right] = records[right], records[i]
		if i >= median {
			right = i - 1
		}
		if i <= median {
			left = i + 1
		}
	}
}

// balanceSegment recursively builds a left-balanced kd-tree over
// records[start:end+1], choosing the split axis as the widest axis of
// box (narrowed at each recursion level, so deeper splits react to the
// shrinking bound rather than the root box), and leaving each node's
// implicit binary-heap target position in its index field for the
// permutation pass in Balance to realize.
func balanceSegment(records []Record, box splitBox, index, start, end int) {
	median := 1
	for 4*median <= end-start+1 {
		median += median
	}
	if 3*median <= end-start+1 {
		median += median
		median += start - 1
	} else {
		median = end - median + 1
	}

	axis := box.widestAxis()

	medianSplit(records, start, end, median, axis)

	records[median].index = int32(index)
	records[median].Plane = uint8(axis)
	medianPos := records[median].Pos[axis]

	if median > start {
		if start < median-1 {
			left := box
			left.max[axis] = medianPos
			balanceSegment(records, left, 2*index, start, median-1)
		} else {
			records[start].index = int32(2 * index)
		}
	}
	if median < end {
		if median+1 < end {
			right := box
			right.min[axis] = medianPos
			balanceSegment(records, right, 2*index+1, median+1, end)
		} else {
			records[end].index = int32(2*index + 1)
		}
	}
}

// splitBox is a minimal recursively-narrowable bound local to the
// balance pass: it tracks only the two components balanceSegment
// mutates per level, independent of linear.Box3's broader API.
type splitBox struct {
	min, max [3]float32
}

func (b *splitBox) widestAxis() int {
	e := [3]float32{b.max[0] - b.min[0], b.max[1] - b.min[1], b.max[2] - b.min[2]}
	axis := 0
	if e[1] > e[axis] {
		axis = 1
	}
	if e[2] > e[axis] {
		axis = 2
	}
	return axis
}

// Balance realizes the map's kd-tree structure: it runs
// balanceSegment to choose each node's split axis and target heap
// position, then permutes the record array in place so that node i's
// children live at 2i and 2i+1, matching eiMap's layout so Lookup can
// recurse by simple index arithmetic instead of following pointers.
// Balance must be called after the shoot phase stores its last photon
// and before any Lookup.
func (m *Map) Balance() {
	n := m.Len()
	records := m.records

	if n > 1 {
		box := splitBox{min: m.box.Min, max: m.box.Max}
		balanceSegment(records, box, 1, 1, n)

		srcID := 1
		src := records[1]
		dstID := int(src.index)
		foo := 1

		for i := 1; i <= n; i++ {
			prev := records[srcID]
			prev.index = -1
			records[srcID] = prev

			if dstID == foo {
				if srcID != dstID {
					records[dstID] = src
				}
				for foo++; foo <= n; foo++ {
					if records[foo].index != -1 {
						src = records[foo]
						srcID = foo
						dstID = int(src.index)
						break
					}
				}
			} else if srcID != dstID {
				newSrc := records[dstID]
				records[dstID] = src
				src = newSrc
				srcID = dstID
				dstID = int(src.index)
			} else {
				for foo++; foo <= n; foo++ {
					if records[foo].index != -1 {
						src = records[foo]
						srcID = foo
						dstID = int(src.index)
						break
					}
				}
			}
		}
	}

	m.halfStored = n / 2
	m.balanced = true
}
