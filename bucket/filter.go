package bucket

import "github.com/chewxy/math32"

// FilterWeight evaluates the configured reconstruction filter at
// offset (dx, dy) from a pixel's center, in pixel units, returning 0
// outside the filter's support (width/2 in each axis).
func FilterWeight(kind FilterKind, width, dx, dy float32) float32 {
	r := width / 2
	if dx < -r || dx > r || dy < -r || dy > r {
		return 0
	}
	switch kind {
	case FilterTriangle:
		return triangle1D(dx, r) * triangle1D(dy, r)
	case FilterCatmullRom:
		return catmullRom1D(dx, r) * catmullRom1D(dy, r)
	case FilterGaussian:
		return gaussian1D(dx, r) * gaussian1D(dy, r)
	case FilterSinc:
		return sinc1D(dx, r) * sinc1D(dy, r)
	default: // FilterBox
		return 1
	}
}

func triangle1D(d, r float32) float32 {
	if r == 0 {
		return 1
	}
	t := 1 - math32.Abs(d)/r
	if t < 0 {
		return 0
	}
	return t
}

// catmullRom1D evaluates the Mitchell-Netravali-style Catmull-Rom
// kernel (B=0, C=0.5) over the filter's support, rescaled so its
// domain is [-r, r] instead of the canonical [-2, 2].
func catmullRom1D(d, r float32) float32 {
	if r == 0 {
		return 1
	}
	x := math32.Abs(d) * 2 / r
	switch {
	case x < 1:
		return 1.5*x*x*x - 2.5*x*x + 1
	case x < 2:
		return -0.5*x*x*x + 2.5*x*x - 4*x + 2
	default:
		return 0
	}
}

func gaussian1D(d, r float32) float32 {
	if r == 0 {
		return 1
	}
	alpha := float32(2.0)
	return math32.Exp(-alpha*d*d) - math32.Exp(-alpha*r*r)
}

func sinc1D(d, r float32) float32 {
	if d == 0 {
		return 1
	}
	if r == 0 {
		return 1
	}
	x := d * math32.Pi
	s := math32.Sin(x) / x
	// Lanczos-windowed, window width matching the filter's support.
	wx := d * math32.Pi / r
	w := math32.Sin(wx) / wx
	return s * w
}
