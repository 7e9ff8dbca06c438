// Package photon implements the photon map: a fixed-capacity point
// cloud of emitted light deposits, built by tracing emitter rays
// through Russian-roulette material outcomes and balanced into an
// implicit left-balanced kd-tree for bounded k-nearest-neighbour
// lookup, per spec.md §4.8.
package photon

import (
	"errors"

	"github.com/elvishrender/core/linear"
)

const photonPrefix = "photon: "

func newPhotonErr(reason string) error { return errors.New(photonPrefix + reason) }

// Errors returned by this package.
var (
	ErrMapFull     = newPhotonErr("map is at capacity")
	ErrNotBalanced = newPhotonErr("map has not been balanced")
	ErrEmptyMap    = newPhotonErr("map has no stored photons")
)

// Kind distinguishes the photon maps a renderer may build.
type Kind int

// Map kinds, named after their spec counterparts.
const (
	KindGlobal Kind = iota
	KindCaustic
	KindVolume
)

// Record is one stored photon deposit, eiMapNode's specialization.
// Power is stored as linear RGB rather than RGBE: photon maps are
// built once per frame and read many times during density estimation,
// so the decode cost of RGBE on every lookup would outweigh the
// memory saved, unlike irradiance.Record's many-small-records case.
type Record struct {
	Pos   linear.V3
	Dir   linear.V3 // incident direction, pointing back toward the source
	Power [3]float32
	Plane uint8 // splitting axis chosen for this node during balance; planeUnset (0xff) before balance
	index int32 // heap-child pointer, used only during balance
}

const planeUnset = 0xff

// Map is a fixed-capacity store of photon Records. Records accumulate
// via Store during the shoot phase; Balance must be called before
// Lookup is used, and again after any later Store, turning the flat
// array into a left-balanced implicit kd-tree (eiMap's structure).
type Map struct {
	kind        Kind
	records     []Record // 1-indexed; records[0] is an unused placeholder
	maxCount    int
	box         linear.Box3
	balanced    bool
	halfStored  int // internal-node cutoff used by Lookup's recursion bound
}

// NewMap allocates an empty photon map of the given kind, bounded to
// at most maxCount stored photons.
func NewMap(kind Kind, maxCount int) *Map {
	return &Map{
		kind:     kind,
		records:  make([]Record, 1, maxCount+1),
		maxCount: maxCount,
		box:      linear.EmptyBox3(),
	}
}

// Kind reports the map's photon kind.
func (m *Map) Kind() Kind { return m.kind }

// Len returns the number of stored photons.
func (m *Map) Len() int { return len(m.records) - 1 }

// Full reports whether the map has reached its capacity.
func (m *Map) Full() bool { return m.Len() >= m.maxCount }

// Store appends rec to the map, returning ErrMapFull once the map has
// reached maxCount. Calling Store after Balance invalidates the
// balanced tree; the caller must Balance again before further Lookups.
func (m *Map) Store(rec Record) error {
	if m.Full() {
		return ErrMapFull
	}
	rec.Plane = planeUnset
	m.records = append(m.records, rec)
	m.box.Extend(&rec.Pos)
	m.balanced = false
	return nil
}
