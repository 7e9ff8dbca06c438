// Package irradiance implements the final-gather irradiance cache:
// sparse records of indirect illumination keyed by position and
// normal, interpolated with Ward-style gradients, per spec.md §4.7.
package irradiance

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/elvishrender/core/linear"
)

const irradiancePrefix = "irradiance: "

func newIrradianceErr(reason string) error { return errors.New(irradiancePrefix + reason) }

// Errors returned by this package.
var ErrNoSamples = newIrradianceErr("final gather produced no samples")

// ErrorCoeff is EI_FG_ERROR_COEFF, the acceptance-test scale applied
// to a candidate record's interpolation error.
const ErrorCoeff = 2.0

// Config holds the final-gather sampling and cache tunables.
type Config struct {
	// Rays is the target number of hemisphere samples per gather
	// point; the stratified grid is M x N with M = sqrt(rays/pi),
	// N = pi * M.
	Rays int

	// FilterSize is the hemisphere buffer's box-filter half-width in
	// cells (a (2*FilterSize+1)-cell kernel), applied before
	// harmonic-mean and gradient extraction.
	FilterSize int

	// GatherPoints bounds how many cache records a lookup considers.
	GatherPoints int

	// MaxDist bounds a lookup's search radius.
	MaxDist float32
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{Rays: 256, FilterSize: 4, GatherPoints: 40, MaxDist: 1e30}
}

// Gradient is a Ward irradiance gradient: one 3-vector per color
// channel, expressed in the record's local (u, v, N) frame.
type Gradient struct {
	R, G, B linear.V3
}

// Record is one cached irradiance sample, eiIrradiance's equivalent.
// E is stored RGBE-compressed, matching the original's memory-density
// tradeoff for a structure that may number in the hundreds of
// thousands per frame; GradT and GradR are kept as float32 vectors.
type Record struct {
	Pos   linear.V3
	N     linear.V3
	E     [4]byte // RGBE
	GradT Gradient
	GradR Gradient
	InvR  float32 // inverse harmonic-mean radius, pre-clamp
}

// EncodeRGBE compresses a linear color into the shared-exponent RGBE
// representation, trading channel precision for a third of the
// storage of three float32s (4 bytes instead of 12).
func EncodeRGBE(c [3]float32) [4]byte {
	m := c[0]
	if c[1] > m {
		m = c[1]
	}
	if c[2] > m {
		m = c[2]
	}
	if m <= 1e-32 {
		return [4]byte{0, 0, 0, 0}
	}
	_, e := math32.Frexp(m)
	scale := math32.Ldexp(1, -e+8)
	return [4]byte{
		clampByte(c[0] * scale),
		clampByte(c[1] * scale),
		clampByte(c[2] * scale),
		byte(e + 128),
	}
}

// DecodeRGBE expands an RGBE-compressed color back to linear float32.
func DecodeRGBE(rgbe [4]byte) [3]float32 {
	if rgbe[3] == 0 {
		return [3]float32{}
	}
	scale := math32.Ldexp(1, int(rgbe[3])-128-8)
	return [3]float32{
		float32(rgbe[0]) * scale,
		float32(rgbe[1]) * scale,
		float32(rgbe[2]) * scale,
	}
}

func clampByte(v float32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// orthoBasis builds an orthonormal (u, v) frame perpendicular to n,
// using the same branch-on-dominant-axis construction as the
// original's ortho_basis, avoiding a degenerate cross product when n
// is close to the world axis it would otherwise be crossed against.
func orthoBasis(n linear.V3) (u, v linear.V3) {
	var ref linear.V3
	if math32.Abs(n[0]) > math32.Abs(n[2]) {
		ref = linear.V3{-n[1], n[0], 0}
	} else {
		ref = linear.V3{0, -n[2], n[1]}
	}
	ref.Norm(&ref)
	u = ref
	v.Cross(&n, &u)
	return u, v
}
