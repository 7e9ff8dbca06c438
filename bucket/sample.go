package bucket

// radicalInverse computes the base-2 radical inverse of i (van der
// Corput sequence), the building block of the Hammersley sequence.
func radicalInverse(i uint32) float32 {
	i = (i << 16) | (i >> 16)
	i = ((i & 0x55555555) << 1) | ((i & 0xaaaaaaaa) >> 1)
	i = ((i & 0x33333333) << 2) | ((i & 0xcccccccc) >> 2)
	i = ((i & 0x0f0f0f0f) << 4) | ((i & 0xf0f0f0f0) >> 4)
	i = ((i & 0x00ff00ff) << 8) | ((i & 0xff00ff00) >> 8)
	return float32(i) * 2.3283064365386963e-10 // 1 / 2^32
}

// Hammersley returns the i-th point of an n-sample Hammersley set on
// the unit square: (i/n, radicalInverse(i)).
func Hammersley(i, n uint32) (x, y float32) {
	return float32(i) / float32(n), radicalInverse(i)
}

// sigma is ei_sample's scrambled variant of the Hammersley sequence:
// the radical-inverse axis is additionally rotated by a per-pixel
// offset so that adjacent pixels' sample sets don't share a common
// low-discrepancy phase, avoiding banding across bucket boundaries.
func sigma(i, n uint32, rotation float32) (x, y float32) {
	x, y = Hammersley(i, n)
	y += rotation
	if y >= 1 {
		y -= 1
	}
	return x, y
}

// pixelRotation derives a deterministic per-pixel phase offset for
// sigma from the pixel's integer coordinates, replacing the
// original's thread-local RNG draw with a pure function of (x, y) so
// sampling stays reproducible across runs.
func pixelRotation(x, y int) float32 {
	h := uint32(x)*0x9e3779b1 + uint32(y)*0x85ebca6b
	h ^= h >> 15
	h *= 0x2c1b3c6d
	h ^= h >> 12
	h *= 0x297a2d39
	h ^= h >> 15
	return radicalInverse(h)
}

// sampleCount returns the number of samples a pixel should take,
// 1<<depth for the adaptive subdivision depth in [minSamples,
// maxSamples].
func sampleCount(depth int) uint32 { return uint32(1) << uint(depth) }

// Accumulator collects weighted per-sample contributions for one
// pixel during adaptive refinement, so convergence can be tested
// between subdivision passes without re-deriving the running mean
// from scratch.
type Accumulator struct {
	sum    [3]float32
	opac   float32
	weight float32
	n      int
}

// Add folds in one sample's shaded color and opacity.
func (a *Accumulator) Add(color [3]float32, opacity float32) {
	a.sum[0] += color[0]
	a.sum[1] += color[1]
	a.sum[2] += color[2]
	a.opac += opacity
	a.weight++
	a.n++
}

// Mean returns the accumulated average color and opacity.
func (a *Accumulator) Mean() (color [3]float32, opacity float32) {
	if a.weight == 0 {
		return color, 0
	}
	return [3]float32{a.sum[0] / a.weight, a.sum[1] / a.weight, a.sum[2] / a.weight}, a.opac / a.weight
}

// Converged reports whether two accumulators' means differ by no
// more than threshold in every channel, relative to the brighter of
// the two (ei_sample's contrast test).
func Converged(a, b *Accumulator, threshold float32) bool {
	ca, _ := a.Mean()
	cb, _ := b.Mean()
	for i := 0; i < 3; i++ {
		hi := ca[i]
		if cb[i] > hi {
			hi = cb[i]
		}
		if hi <= 0 {
			continue
		}
		diff := ca[i] - cb[i]
		if diff < 0 {
			diff = -diff
		}
		if diff/hi > threshold {
			return false
		}
	}
	return true
}

// AdaptiveSamples drives a pixel's sample loop: it starts at
// 1<<minSamples samples and doubles the count up to 1<<maxSamples,
// per ei_sample's logarithmic min/max convention, stopping early once
// the running mean after a doubling pass is Converged with the mean
// before it. Neighbouring pixels are not compared. shade is called
// once per sample index with that index's Hammersley (u, v) offset
// within the pixel and must return that sample's color and opacity.
func AdaptiveSamples(cfg *Config, shade func(u, v float32) ([3]float32, float32)) (color [3]float32, opacity float32) {
	minN := sampleCount(cfg.MinSamples)
	maxN := sampleCount(cfg.MaxSamples)

	var acc Accumulator
	var i uint32
	for ; i < minN; i++ {
		u, v := Hammersley(i, maxN)
		c, o := shade(u, v)
		acc.Add(c, o)
	}
	for n := minN; n < maxN; n *= 2 {
		half := acc
		for ; i < n*2; i++ {
			u, v := Hammersley(i, maxN)
			c, o := shade(u, v)
			acc.Add(c, o)
		}
		if Converged(&half, &acc, cfg.ContrastThreshold) {
			break
		}
	}
	return acc.Mean()
}
