package bucket

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/elvishrender/core/db"
)

var (
	fbTypeOnce sync.Once
	fbType     db.Type
)

// FrameBufferType registers (once per process) the database type
// backing a framebuffer's pixel storage.
func FrameBufferType() db.Type {
	fbTypeOnce.Do(func() {
		fbType = db.Register(db.TypeDesc{Name: "bucket.framebuffer", ElemSize: SampleInfoSize})
	})
	return fbType
}

// FrameBuffer is a w*h grid of quantized sample-info records, backed
// by a single database record, per spec.md §3's Framebuffer.
type FrameBuffer struct {
	buf *db.Buffer2D
}

// NewFrameBuffer allocates a w*h framebuffer.
func NewFrameBuffer(database *db.Database, w, h int) (*FrameBuffer, error) {
	buf, err := db.NewBuffer2D(database, FrameBufferType(), SampleInfoSize, w, h, 0)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{buf: buf}, nil
}

// Dims returns the framebuffer's pixel dimensions.
func (f *FrameBuffer) Dims() (w, h int) { return f.buf.Dims() }

// pixelAccum is one pixel's running contribution, held in a cache
// tile until the tile is flushed.
type pixelAccum struct {
	color [3]float32
	alpha float32
}

// Cache is a bucket's thread-local accumulation tile over a
// FrameBuffer, matching eiFrameBufferCache's role: filtered sample
// contributions are splatted into a local grid slightly larger than
// the bucket (to admit the reconstruction filter's support) and
// written back to the shared FrameBuffer once, on Flush, instead of
// contending on every sample.
type Cache struct {
	fb *FrameBuffer

	x0, y0 int // bucket origin, in framebuffer pixels
	w, h   int // bucket extent
	pad    int // filter support radius, in whole pixels

	tile []pixelAccum
	tw   int // tile width = w + 2*pad
}

// NewCache creates a tile cache covering the bucket at (x0, y0) sized
// w by h, padded by the filter's support radius so samples near the
// bucket edge can still splat onto neighbours outside it.
func NewCache(fb *FrameBuffer, x0, y0, w, h int, filterWidth float32) *Cache {
	pad := int(filterWidth/2 + 1)
	tw := w + 2*pad
	th := h + 2*pad
	return &Cache{
		fb: fb, x0: x0, y0: y0, w: w, h: h, pad: pad,
		tile: make([]pixelAccum, tw*th), tw: tw,
	}
}

// Splat adds a filtered sample contribution at fractional pixel
// coordinates (px, py) (framebuffer space), visiting every tile pixel
// within the configured filter's support and weighting by
// FilterWeight.
func (c *Cache) Splat(cfg *Config, px, py float32, color [3]float32, opacity float32) {
	r := cfg.FilterWidth / 2
	xlo := int(px - r)
	xhi := int(px + r)
	ylo := int(py - r)
	yhi := int(py + r)
	for y := ylo; y <= yhi; y++ {
		ty := y - (c.y0 - c.pad)
		if ty < 0 || ty >= c.h+2*c.pad {
			continue
		}
		for x := xlo; x <= xhi; x++ {
			tx := x - (c.x0 - c.pad)
			if tx < 0 || tx >= c.tw {
				continue
			}
			dx := (float32(x) + 0.5) - px
			dy := (float32(y) + 0.5) - py
			wgt := FilterWeight(cfg.Filter, cfg.FilterWidth, dx, dy)
			if wgt == 0 {
				continue
			}
			p := &c.tile[ty*c.tw+tx]
			p.color[0] += color[0] * wgt
			p.color[1] += color[1] * wgt
			p.color[2] += color[2] * wgt
			p.alpha += opacity * wgt
		}
	}
}

// Quantize maps a linear color through exposure gain, gamma and the
// quantization range to the value stored in the framebuffer, adding
// dither of amplitude DitherAmp seeded deterministically from the
// pixel's integer coordinates.
func Quantize(cfg *Config, x, y int, c float32) float32 {
	v := c * cfg.ExposureGain
	if cfg.Gamma != 1 && v > 0 {
		v = math32.Pow(v, 1/cfg.Gamma)
	}
	v *= cfg.QuantizeOne
	if cfg.DitherAmp != 0 {
		v += (pixelRotation(x, y) - 0.5) * cfg.DitherAmp
	}
	if v < cfg.QuantizeMin {
		v = cfg.QuantizeMin
	}
	if v > cfg.QuantizeMax {
		v = cfg.QuantizeMax
	}
	return v
}

// Flush writes every tile pixel still inside the bucket's own extent
// (dropping the filter-support padding, which exists only to receive
// splatted contributions from pixels near the bucket's edge) back to
// the shared FrameBuffer, quantizing each channel on the way out.
func (c *Cache) Flush(cfg *Config) error {
	for y := 0; y < c.h; y++ {
		fy := c.y0 + y
		for x := 0; x < c.w; x++ {
			fx := c.x0 + x
			p := c.tile[(y+c.pad)*c.tw+(x+c.pad)]
			rec := make([]byte, SampleInfoSize)
			encodeColor(rec, [3]float32{
				Quantize(cfg, fx, fy, p.color[0]),
				Quantize(cfg, fx, fy, p.color[1]),
				Quantize(cfg, fx, fy, p.color[2]),
			})
			encodeOpacity(rec, Quantize(cfg, fx, fy, p.alpha))
			if err := c.fb.buf.Set(fx, fy, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
