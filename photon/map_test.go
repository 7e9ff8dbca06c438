package photon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elvishrender/core/linear"
)

func seedRecords(t *testing.T, n int) *Map {
	t.Helper()
	m := NewMap(KindGlobal, n+10)
	for i := 0; i < n; i++ {
		x := float32(math.Sin(float64(i) * 12.9898))
		y := float32(math.Sin(float64(i) * 78.233))
		z := float32(math.Sin(float64(i) * 37.719))
		require.NoError(t, m.Store(Record{
			Pos:   linear.V3{x * 10, y * 10, z * 10},
			Power: [3]float32{1, 1, 1},
		}))
	}
	return m
}

func TestMapStoreRespectsCapacity(t *testing.T) {
	m := NewMap(KindGlobal, 2)
	require.NoError(t, m.Store(Record{}))
	require.NoError(t, m.Store(Record{}))
	assert.True(t, m.Full())
	assert.ErrorIs(t, m.Store(Record{}), ErrMapFull)
	assert.Equal(t, 2, m.Len())
}

func TestLookupBeforeBalanceErrors(t *testing.T) {
	m := seedRecords(t, 5)
	_, err := m.Lookup(linear.V3{}, 1e30, 3, nil)
	assert.ErrorIs(t, err, ErrNotBalanced)
}

func TestBalanceProducesValidHeapIndexing(t *testing.T) {
	m := seedRecords(t, 200)
	m.Balance()
	assert.True(t, m.balanced)

	n := m.Len()
	for i := 1; i <= n; i++ {
		if 2*i <= n {
			a, b := m.records[i].Plane, m.records[i].Pos
			axis := a
			child := m.records[2*i].Pos
			// The left child must not lie strictly past the splitting
			// plane on the split axis (equality is fine, ties go
			// either side under the partition scheme).
			assert.LessOrEqualf(t, child[axis], b[axis]+1e-3, "node %d left child violates split", i)
		}
	}
}

func TestLookupMatchesBruteForceNearest(t *testing.T) {
	m := seedRecords(t, 300)
	m.Balance()

	query := linear.V3{1, 2, 3}
	const k = 10

	found, err := m.Lookup(query, 1e30, k, nil)
	require.NoError(t, err)
	require.Len(t, found, k)

	// Brute-force the true k nearest squared distances.
	dists := make([]float32, 0, m.Len())
	for i := 1; i <= m.Len(); i++ {
		d := m.records[i].Pos
		d.Sub(&query, &d)
		dists = append(dists, d.Dot(&d))
	}
	for i := 0; i < len(dists); i++ {
		for j := i + 1; j < len(dists); j++ {
			if dists[j] < dists[i] {
				dists[i], dists[j] = dists[j], dists[i]
			}
		}
	}

	for i, f := range found {
		assert.InDelta(t, dists[i], f.Dist2, 1e-3)
	}
	for i := 1; i < len(found); i++ {
		assert.LessOrEqual(t, found[i-1].Dist2, found[i].Dist2)
	}
}

func TestLookupHonoursMaxDistAndFilter(t *testing.T) {
	m := seedRecords(t, 200)
	m.Balance()

	found, err := m.Lookup(linear.V3{}, 0.5, 50, nil)
	require.NoError(t, err)
	for _, f := range found {
		assert.LessOrEqual(t, f.Dist2, float32(0.25))
	}

	rejectAll := func(rec *Record, dist2 float32) bool { return false }
	found, err = m.Lookup(linear.V3{}, 1e30, 50, rejectAll)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLookupEmptyMap(t *testing.T) {
	m := NewMap(KindCaustic, 10)
	m.Balance()
	found, err := m.Lookup(linear.V3{}, 1e30, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

type constantLight struct {
	org, dir linear.V3
	power    [3]float32
}

func (l constantLight) Emit(u1, u2, u3, u4 float32) (linear.V3, linear.V3, [3]float32) {
	return l.org, l.dir, l.power
}

type absorber struct{}

func (absorber) Scatter(hit Hit, power [3]float32, xi, u1, u2 float32) (Outcome, linear.V3, [3]float32) {
	return Absorb, linear.V3{}, power
}

func TestShootStoresOnePhotonPerPathWithAbsorber(t *testing.T) {
	m := NewMap(KindGlobal, 100)
	light := constantLight{org: linear.V3{0, 10, 0}, dir: linear.V3{0, -1, 0}, power: [3]float32{1, 1, 1}}
	mat := absorber{}

	trace := func(org, dir linear.V3) (Hit, Material, float32, bool) {
		return Hit{P: linear.V3{0, 0, 0}, N: linear.V3{0, 1, 0}, Incoming: dir}, mat, 10, true
	}

	rnd := func(i, dim int) float32 { return 0.5 }
	Shoot(m, []Light{light}, trace, DefaultShootConfig(), 20, rnd)

	assert.Equal(t, 20, m.Len())
}

func TestShootStopsAtCapacity(t *testing.T) {
	m := NewMap(KindGlobal, 3)
	light := constantLight{org: linear.V3{0, 10, 0}, dir: linear.V3{0, -1, 0}, power: [3]float32{1, 1, 1}}
	mat := absorber{}
	trace := func(org, dir linear.V3) (Hit, Material, float32, bool) {
		return Hit{P: linear.V3{0, 0, 0}, N: linear.V3{0, 1, 0}, Incoming: dir}, mat, 10, true
	}
	rnd := func(i, dim int) float32 { return 0.5 }
	Shoot(m, []Light{light}, trace, DefaultShootConfig(), 50, rnd)

	assert.True(t, m.Full())
	assert.Equal(t, 3, m.Len())
}
