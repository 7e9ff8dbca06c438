package bucket

import (
	"math"
	"testing"

	"github.com/elvishrender/core/db"
)

func TestRadicalInverseIsDeterministicAndBounded(t *testing.T) {
	seen := map[float32]bool{}
	for i := uint32(0); i < 16; i++ {
		v := radicalInverse(i)
		if v < 0 || v >= 1 {
			t.Fatalf("radicalInverse(%d) = %v, want in [0,1)", i, v)
		}
		if seen[v] {
			t.Fatalf("radicalInverse(%d) repeated a prior value %v", i, v)
		}
		seen[v] = true
		again := radicalInverse(i)
		if again != v {
			t.Fatalf("radicalInverse(%d) not deterministic: %v then %v", i, v, again)
		}
	}
}

func TestHammersleyCoversUnitSquare(t *testing.T) {
	const n = 8
	for i := uint32(0); i < n; i++ {
		x, y := Hammersley(i, n)
		if x < 0 || x >= 1 || y < 0 || y >= 1 {
			t.Fatalf("Hammersley(%d,%d) = (%v,%v) out of [0,1)^2", i, n, x, y)
		}
	}
}

func TestFilterWeightZeroOutsideSupport(t *testing.T) {
	for _, k := range []FilterKind{FilterBox, FilterTriangle, FilterCatmullRom, FilterGaussian, FilterSinc} {
		w := FilterWeight(k, 2, 5, 0)
		if w != 0 {
			t.Fatalf("kind %d: weight outside support = %v, want 0", k, w)
		}
	}
}

func TestFilterWeightPeaksAtCenter(t *testing.T) {
	for _, k := range []FilterKind{FilterBox, FilterTriangle, FilterGaussian} {
		center := FilterWeight(k, 4, 0, 0)
		off := FilterWeight(k, 4, 1, 0)
		if center < off {
			t.Fatalf("kind %d: center weight %v < off-center weight %v", k, center, off)
		}
	}
}

func TestAdaptiveSamplesConvergesWithConstantShader(t *testing.T) {
	cfg := DefaultConfig()
	want := [3]float32{0.25, 0.5, 0.75}
	calls := 0
	color, opacity := AdaptiveSamples(&cfg, func(u, v float32) ([3]float32, float32) {
		calls++
		return want, 1
	})
	if color != want {
		t.Fatalf("color = %v, want %v", color, want)
	}
	if opacity != 1 {
		t.Fatalf("opacity = %v, want 1", opacity)
	}
	minCalls := int(sampleCount(cfg.MinSamples))
	if calls < minCalls {
		t.Fatalf("shader called %d times, want at least %d", calls, minCalls)
	}
}

func TestAdaptiveSamplesSubdividesOnContrast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSamples = 0
	cfg.MaxSamples = 2
	cfg.ContrastThreshold = 0.01
	calls := 0
	AdaptiveSamples(&cfg, func(u, v float32) ([3]float32, float32) {
		calls++
		// Alternate wildly so contrast never converges early.
		if calls%2 == 0 {
			return [3]float32{1, 1, 1}, 1
		}
		return [3]float32{0, 0, 0}, 0
	})
	maxCalls := int(sampleCount(cfg.MaxSamples))
	if calls != maxCalls {
		t.Fatalf("calls = %d, want full %d samples under non-convergent contrast", calls, maxCalls)
	}
}

func TestQuantizeClampsToRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DitherAmp = 0
	v := Quantize(&cfg, 0, 0, 10) // way over 1.0
	if v != cfg.QuantizeMax {
		t.Fatalf("Quantize(10) = %v, want clamp to %v", v, cfg.QuantizeMax)
	}
	v = Quantize(&cfg, 0, 0, -10)
	if v != cfg.QuantizeMin {
		t.Fatalf("Quantize(-10) = %v, want clamp to %v", v, cfg.QuantizeMin)
	}
}

func TestFrameBufferRoundTrip(t *testing.T) {
	database := db.New(nil)
	fb, err := NewFrameBuffer(database, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	w, h := fb.Dims()
	if w != 4 || h != 4 {
		t.Fatalf("Dims() = (%d,%d), want (4,4)", w, h)
	}

	cache := NewCache(fb, 0, 0, 4, 4, 2)
	cfg := DefaultConfig()
	cfg.DitherAmp = 0
	cache.Splat(&cfg, 2.5, 2.5, [3]float32{1, 1, 1}, 1)
	if err := cache.Flush(&cfg); err != nil {
		t.Fatal(err)
	}

	rec, err := fb.buf.At(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	c := DecodeColor(rec)
	if c[0] <= 0 {
		t.Fatalf("center pixel color = %v, want > 0 after splat", c)
	}
}

func TestEncodeDecodeColorRoundTrip(t *testing.T) {
	rec := make([]byte, SampleInfoSize)
	encodeColor(rec, [3]float32{0.1, 0.2, 0.3})
	encodeOpacity(rec, 0.75)
	c := DecodeColor(rec)
	if math.Abs(float64(c[1]-0.2)) > 1e-6 {
		t.Fatalf("DecodeColor = %v, want [_,0.2,_]", c)
	}
	if o := DecodeOpacity(rec); math.Abs(float64(o-0.75)) > 1e-6 {
		t.Fatalf("DecodeOpacity = %v, want 0.75", o)
	}
}

func TestPixelRotationVariesAcrossPixels(t *testing.T) {
	a := pixelRotation(1, 1)
	b := pixelRotation(2, 1)
	if a == b {
		t.Fatal("pixelRotation gave identical phase for distinct pixels")
	}
}
