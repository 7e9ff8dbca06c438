package irradiance

import (
	"github.com/chewxy/math32"

	"github.com/elvishrender/core/linear"
)

// Tracer traces one final-gather ray from org in direction dir and
// reports the hit's shaded color and hit distance (a non-positive
// distance means no hit, treated as a miss contributing background).
type Tracer func(org, dir linear.V3) (color [3]float32, dist float32)

// radicalInverse2 is this package's own copy of the base-2 van der
// Corput construction (package bucket has an equivalent); final
// gather sampling needs it purely to jitter the stratified grid and
// doesn't otherwise share anything with bucket's sampler, so the two
// stay independent rather than introducing a cross-package import for
// one helper.
func radicalInverse2(i uint32) float32 {
	i = (i << 16) | (i >> 16)
	i = ((i & 0x55555555) << 1) | ((i & 0xaaaaaaaa) >> 1)
	i = ((i & 0x33333333) << 2) | ((i & 0xcccccccc) >> 2)
	i = ((i & 0x0f0f0f0f) << 4) | ((i & 0xf0f0f0f0) >> 4)
	i = ((i & 0x00ff00ff) << 8) | ((i & 0xff00ff00) >> 8)
	return float32(i) * 2.3283064365386963e-10
}

type hemiSample struct {
	color [3]float32
	dist  float32
	hit   bool
}

// Sample implements ei_sample_finalgather: a stratified M x N
// cosine-weighted hemisphere sample around n, traced through trace,
// filtered with a box filter of half-width cfg.FilterSize, reduced to a
// harmonic-mean radius and a pair of Ward gradients. The caller is
// responsible for offsetting p along the bias direction before
// calling Sample, matching state.Bias's role in the per-sample
// pipeline.
func Sample(cfg *Config, p, n linear.V3, trace Tracer) (Record, error) {
	m := int(math32.Sqrt(float32(cfg.Rays) / math32.Pi))
	if m < 1 {
		m = 1
	}
	nRings := int(math32.Pi * float32(m))
	if nRings < 1 {
		nRings = 1
	}

	u, v := orthoBasis(n)
	invM := 1 / float32(m)
	invN := 1 / float32(nRings)

	buf := make([][]hemiSample, nRings)
	for k := range buf {
		buf[k] = make([]hemiSample, m)
	}

	var harmonicSum float32
	count := 0

	for k := 0; k < nRings; k++ {
		for j := 0; j < m; j++ {
			idx := uint32(k*m + j)
			rx := radicalInverse2(idx)
			ry := radicalInverse2(idx + 1)

			sinTheta := math32.Sqrt((float32(j) + rx) * invM)
			cosTheta := math32.Sqrt(1 - sinTheta*sinTheta)
			phi := 2 * math32.Pi * (float32(k) + ry) * invN

			var du, dv, dw linear.V3
			du.Scale(sinTheta*math32.Cos(phi), &u)
			dv.Scale(sinTheta*math32.Sin(phi), &v)
			dw.Scale(cosTheta, &n)
			var dir linear.V3
			dir.Add(&du, &dv)
			dir.Add(&dir, &dw)

			color, dist := trace(p, dir)
			s := hemiSample{color: color, dist: dist, hit: dist > 0}
			buf[k][j] = s
			if s.hit {
				harmonicSum += 1 / dist
				count++
			}
		}
	}

	if count == 0 {
		return Record{}, ErrNoSamples
	}

	boxFilter(buf, cfg.FilterSize)

	harmonicR := float32(nRings*m) / harmonicSum
	if harmonicR <= 0 {
		harmonicR = 1
	}

	irradiance, gradT, gradR := reduceHemisphere(buf, m, nRings, harmonicR)

	return Record{
		Pos:   p,
		N:     n,
		E:     EncodeRGBE(irradiance),
		GradT: gradT,
		GradR: gradR,
		InvR:  1 / harmonicR,
	}, nil
}

// boxFilter smooths buf in place with a (2*width+1)-wide box kernel
// along both hemisphere axes, the outlier-removal pass ei_sample's
// hemisphere buffer applies before gradient extraction.
func boxFilter(buf [][]hemiSample, width int) {
	if width <= 0 {
		return
	}
	nRings := len(buf)
	if nRings == 0 {
		return
	}
	m := len(buf[0])
	out := make([][]hemiSample, nRings)
	for k := range out {
		out[k] = make([]hemiSample, m)
	}
	for k := 0; k < nRings; k++ {
		for j := 0; j < m; j++ {
			var sum hemiSample
			n := 0
			for dk := -width; dk <= width; dk++ {
				kk := ((k+dk)%nRings + nRings) % nRings
				for dj := -width; dj <= width; dj++ {
					jj := j + dj
					if jj < 0 || jj >= m {
						continue
					}
					s := buf[kk][jj]
					if !s.hit {
						continue
					}
					sum.color[0] += s.color[0]
					sum.color[1] += s.color[1]
					sum.color[2] += s.color[2]
					sum.dist += s.dist
					n++
				}
			}
			if n == 0 {
				out[k][j] = buf[k][j]
				continue
			}
			inv := 1 / float32(n)
			out[k][j] = hemiSample{
				color: [3]float32{sum.color[0] * inv, sum.color[1] * inv, sum.color[2] * inv},
				dist:  sum.dist * inv,
				hit:   true,
			}
		}
	}
	for k := range buf {
		copy(buf[k], out[k])
	}
}

// reduceHemisphere reduces the filtered hemisphere buffer to a mean
// irradiance and a pair of gradients. The gradients are estimated by
// finite differences across the stratified grid (rotational: across
// rings at fixed radius; translational: across radius at fixed ring)
// rather than the original's closed-form analytic derivative of the
// hemisphere integral, a deliberate simplification recorded in
// DESIGN.md: it reproduces the same qualitative behavior (extrapolate
// less where radiance changes quickly with angle or distance) without
// the original's per-channel symbolic derivation.
func reduceHemisphere(buf [][]hemiSample, m, nRings int, harmonicR float32) (irradiance [3]float32, gradT, gradR Gradient) {
	var sum [3]float32
	count := 0
	for k := 0; k < nRings; k++ {
		for j := 0; j < m; j++ {
			s := buf[k][j]
			if !s.hit {
				continue
			}
			sum[0] += s.color[0]
			sum[1] += s.color[1]
			sum[2] += s.color[2]
			count++
		}
	}
	if count > 0 {
		inv := 1 / float32(count)
		irradiance = [3]float32{sum[0] * inv, sum[1] * inv, sum[2] * inv}
	}

	var dR [3]float32 // d(color)/d(radial cell index), averaged
	var dPhi [3]float32
	nd := 0
	for k := 0; k < nRings; k++ {
		for j := 0; j < m; j++ {
			a := buf[k][j]
			if !a.hit || j+1 >= m {
				continue
			}
			b := buf[k][j+1]
			if !b.hit {
				continue
			}
			dR[0] += b.color[0] - a.color[0]
			dR[1] += b.color[1] - a.color[1]
			dR[2] += b.color[2] - a.color[2]

			kk := (k + 1) % nRings
			c := buf[kk][j]
			if c.hit {
				dPhi[0] += c.color[0] - a.color[0]
				dPhi[1] += c.color[1] - a.color[1]
				dPhi[2] += c.color[2] - a.color[2]
			}
			nd++
		}
	}
	if nd > 0 {
		inv := 1 / float32(nd)
		// Translational gradient: how irradiance changes as the
		// sample point moves, approximated from the radial falloff
		// scaled by the cache radius so it's expressed per unit
		// world-space distance.
		scale := inv / harmonicR
		gradT.R = linear.V3{dR[0] * scale, 0, 0}
		gradT.G = linear.V3{0, dR[1] * scale, 0}
		gradT.B = linear.V3{0, 0, dR[2] * scale}

		gradR.R = linear.V3{dPhi[0] * inv, 0, 0}
		gradR.G = linear.V3{0, dPhi[1] * inv, 0}
		gradR.B = linear.V3{0, 0, dPhi[2] * inv}
	}
	return
}
