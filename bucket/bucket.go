// Package bucket implements the bucket pipeline: screen tiles carrying
// back-pointers to the camera and per-pass parameters, adaptively
// sampled via a Hammersley/sigma low-discrepancy sequence and
// reconstructed through a configurable filter, per spec.md §4.6.
package bucket

import "errors"

const bucketPrefix = "bucket: "

func newBucketErr(reason string) error { return errors.New(bucketPrefix + reason) }

// Errors returned by this package.
var (
	ErrNoCamera       = newBucketErr("job has no lens shader")
	ErrBadSampleRange = newBucketErr("min samples exceeds max samples")
	ErrOutOfBounds    = newBucketErr("bucket rectangle outside framebuffer bounds")
)

// DefaultBucketSize is the default square bucket side, in pixels.
const DefaultBucketSize = 48

// FilterKind selects the reconstruction filter used to splat a
// sample's contribution onto neighbouring pixels.
type FilterKind int

// Reconstruction filter kinds.
const (
	FilterBox FilterKind = iota
	FilterTriangle
	FilterCatmullRom
	FilterGaussian
	FilterSinc
)

// Config holds the tunables of the bucket pipeline, following the
// package-level Config/DefaultConfig convention used throughout this
// module.
type Config struct {
	// BucketSize is the square bucket side in pixels.
	BucketSize int

	// MinSamples and MaxSamples are log2 sample counts per pixel:
	// MinSamples=0 means 1 sample, MaxSamples=2 means 4 samples, the
	// production defaults.
	MinSamples int
	MaxSamples int

	// ContrastThreshold is the per-channel relative difference
	// between a pixel's running mean before and after a doubling
	// pass above which the pixel is considered unconverged and
	// sampled further.
	ContrastThreshold float32

	Filter      FilterKind
	FilterWidth float32

	// ExposureGain and Gamma govern the quantization curve applied to
	// a sample's shaded Color before it is committed to the
	// framebuffer.
	ExposureGain float32
	Gamma        float32

	// QuantizeOne, QuantizeMin, QuantizeMax and DitherAmp mirror the
	// eiOptions quantization knobs: QuantizeOne is the integer value
	// representing 1.0, clamped to [QuantizeMin, QuantizeMax], with
	// DitherAmp of dither noise added before rounding.
	QuantizeOne float32
	QuantizeMin float32
	QuantizeMax float32
	DitherAmp   float32
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BucketSize:        DefaultBucketSize,
		MinSamples:        0,
		MaxSamples:        2,
		ContrastThreshold: 0.1,
		Filter:            FilterGaussian,
		FilterWidth:       2.0,
		ExposureGain:      1.0,
		Gamma:             1.0,
		QuantizeOne:       255,
		QuantizeMin:       0,
		QuantizeMax:       255,
		DitherAmp:         0.5,
	}
}

// Sample-info byte layout: a single composite record shared
// engine-wide (DESIGN.md's "sample-info channel layout" decision).
// Every per-sample result is a Color followed by a scalar opacity.
const (
	ColorOffset    = 0
	ColorSize      = 12 // node.Color.Size()
	OpacityOffset  = ColorOffset + ColorSize
	OpacitySize    = 4 // node.Float.Size()
	SampleInfoSize = OpacityOffset + OpacitySize
)
