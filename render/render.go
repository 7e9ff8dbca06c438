// Package render wires together the database, node/shader graph,
// scene, acceleration structures and job pool into the control flow
// of spec.md §2: API commits, optional photon passes, optional
// final-gather precompute, per-bucket adaptive sampling, and a
// framebuffer flush. It does not implement the Scene API, image
// codecs, or texture file reading itself; those are external
// collaborators per spec.md §6.
package render

import (
	"context"
	"errors"
	"runtime"

	"github.com/elvishrender/core/bucket"
	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/irradiance"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/master"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/photon"
	"github.com/elvishrender/core/scene"
	"github.com/elvishrender/core/shade"
	"github.com/elvishrender/core/state"
)

const renderPrefix = "render: "

func newRenderErr(reason string) error { return errors.New(renderPrefix + reason) }

// Errors returned by this package.
var (
	ErrNoScene  = newRenderErr("scene has not been committed")
	ErrNoLens   = newRenderErr("no lens shader bound")
	ErrNoFrame  = newRenderErr("no framebuffer allocated")
)

// Options bundles the per-frame tunables spec.md §6's "fixed sequence
// of imperative calls" configures before issuing render.
type Options struct {
	Bucket      bucket.Config
	FinalGather irradiance.Config

	ShootGlobalPhotons  bool
	GlobalPhotonCount   int
	ShootCausticPhotons bool
	CausticPhotonCount  int

	FinalGatherEnabled bool

	Limits  state.Limits
	Workers int // zero selects runtime.NumCPU()
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Bucket:            bucket.DefaultConfig(),
		FinalGather:       irradiance.DefaultConfig(),
		GlobalPhotonCount: 200000,
		CausticPhotonCount: 50000,
		Limits:            state.DefaultLimits(),
	}
}

// Context is the live render-time state of one frame: the committed
// scene and node graph, the acceleration and lookup structures built
// from them, and the framebuffer samples accumulate into.
type Context struct {
	DB       *db.Database
	Registry *node.Registry
	Scene    *scene.Scene
	Lens     bucket.LensShader
	Channels []shade.Channel

	GlobalMap  *photon.Map
	CausticMap *photon.Map
	Irradiance *irradiance.Cache

	Framebuffer *bucket.FrameBuffer

	Options Options
}

// NewContext creates an empty render context bound to database and
// registry, which must outlive the Context.
func NewContext(database *db.Database, reg *node.Registry, opts Options) *Context {
	return &Context{DB: database, Registry: reg, Options: opts}
}

// Commit replaces the context's scene with the result of committing
// sc, spec.md §2's "API commits" step. It is the only way a Context
// acquires a Scene.
func (c *Context) Commit(sc *SceneCommit) error {
	built, err := sc.Build()
	if err != nil {
		return err
	}
	c.Scene = built
	return nil
}

// ShootPhotons runs the global and/or caustic photon shoot passes
// configured in c.Options, storing the balanced maps on c. lights and
// tracer are supplied by the caller (the external Scene API layer,
// which alone knows how to turn a committed node graph into emitter
// samples and ray intersections); this package stays independent of
// that wiring the same way package photon does.
func (c *Context) ShootPhotons(ctx context.Context, lights []photon.Light, tracer photon.Tracer, rnd func(i, dim int) float32) error {
	if !c.Options.ShootGlobalPhotons && !c.Options.ShootCausticPhotons {
		return nil
	}

	m, err := master.NewMaster(ctx, master.Config{Workers: c.Options.Workers}, runtime.NumCPU())
	if err != nil {
		return err
	}

	if c.Options.ShootGlobalPhotons {
		c.GlobalMap = photon.NewMap(photon.KindGlobal, c.Options.GlobalPhotonCount)
		count := c.Options.GlobalPhotonCount
		gm := c.GlobalMap
		if err := m.Submit(master.PhotonJob{Emit: func() error {
			photon.Shoot(gm, lights, tracer, photon.DefaultShootConfig(), count, rnd)
			return nil
		}}); err != nil {
			m.Cancel()
			m.Close()
			return err
		}
	}

	if c.Options.ShootCausticPhotons {
		c.CausticMap = photon.NewMap(photon.KindCaustic, c.Options.CausticPhotonCount)
		count := c.Options.CausticPhotonCount
		cm := c.CausticMap
		if err := m.Submit(master.PhotonJob{Emit: func() error {
			photon.Shoot(cm, lights, tracer, photon.DefaultShootConfig(), count, rnd)
			return nil
		}}); err != nil {
			m.Cancel()
			m.Close()
			return err
		}
	}

	if err := m.Close(); err != nil {
		return err
	}

	if c.GlobalMap != nil {
		c.GlobalMap.Balance()
	}
	if c.CausticMap != nil {
		c.CausticMap.Balance()
	}
	return nil
}

// GatherPoint is one query the final-gather precompute pass traces a
// hemisphere from if no existing cache record already satisfies it.
type GatherPoint struct {
	Pos, N    [3]float32
	PixelArea float32
}

// PrecomputeFinalGather seeds c.Irradiance with new samples for every
// point in points whose neighbourhood isn't already covered by an
// accepted cache record, tracing each new sample's hemisphere
// concurrently across the worker pool. It implements spec.md §2's
// optional "final-gather precompute passes" step; the per-bucket
// sampler (wired by the caller through irradiance.Cache.Find) still
// falls back to an on-demand Sample for any point this pass missed.
func (c *Context) PrecomputeFinalGather(ctx context.Context, points []GatherPoint, tracer irradiance.Tracer) error {
	if !c.Options.FinalGatherEnabled {
		return nil
	}
	if c.Irradiance == nil {
		c.Irradiance = irradiance.NewCache()
	}

	m, err := master.NewMaster(ctx, master.Config{Workers: c.Options.Workers}, runtime.NumCPU())
	if err != nil {
		return err
	}

	cache := c.Irradiance
	cfg := c.Options.FinalGather
	for _, gp := range points {
		gp := gp
		job := master.JobFunc(func(ctx context.Context) error {
			p := linear.V3(gp.Pos)
			n := linear.V3(gp.N)
			if _, ok := cache.Find(p, n, gp.PixelArea, cfg.MaxDist, cfg.GatherPoints); ok {
				return nil
			}
			rec, err := irradiance.Sample(&cfg, p, n, tracer)
			if err != nil {
				return nil
			}
			cache.Insert(rec)
			return nil
		})
		if err := m.Submit(job); err != nil {
			m.Cancel()
			m.Close()
			return err
		}
	}

	return m.Close()
}

// RenderBuckets dices the framebuffer into bucket.Config.BucketSize
// tiles and runs each through the worker pool, spec.md §2's
// "per-bucket adaptive sampling → framebuffer flush" step. It returns
// once every bucket has flushed, or the first error any bucket
// reported.
func (c *Context) RenderBuckets(ctx context.Context) error {
	if c.Scene == nil {
		return ErrNoScene
	}
	if c.Lens == nil {
		return ErrNoLens
	}
	if c.Framebuffer == nil {
		return ErrNoFrame
	}

	w, h := c.Framebuffer.Dims()
	bs := c.Options.Bucket.BucketSize
	if bs <= 0 {
		bs = bucket.DefaultBucketSize
	}

	m, err := master.NewMaster(ctx, master.Config{Workers: c.Options.Workers}, runtime.NumCPU())
	if err != nil {
		return err
	}

	cfg := c.Options.Bucket
	for y := 0; y < h; y += bs {
		bh := bs
		if y+bh > h {
			bh = h - y
		}
		for x := 0; x < w; x += bs {
			bw := bs
			if x+bw > w {
				bw = w - x
			}
			job := &bucket.Job{
				X0: x, Y0: y, W: bw, H: bh,
				Lens:        c.Lens,
				Scene:       c.Scene,
				DB:          c.DB,
				Registry:    c.Registry,
				Channels:    c.Channels,
				Limits:      c.Options.Limits,
				Framebuffer: c.Framebuffer,
			}
			if err := m.Submit(master.BucketJob{Bucket: job, Config: &cfg}); err != nil {
				m.Cancel()
				m.Close()
				return err
			}
		}
	}

	return m.Close()
}

// Render runs the full per-frame control flow: photon shoot (if
// configured), final-gather precompute (if configured), then the
// bucket pass. Photon emission and final-gather tracing both need a
// ray tracer bound to c.Scene, which the caller supplies since
// building camera/light rays from the committed node graph belongs to
// the external Scene API layer, not this package.
func (c *Context) Render(ctx context.Context, lights []photon.Light, photonTracer photon.Tracer, gatherPoints []GatherPoint, gatherTracer irradiance.Tracer, rnd func(i, dim int) float32) error {
	if err := c.ShootPhotons(ctx, lights, photonTracer, rnd); err != nil {
		return err
	}
	if err := c.PrecomputeFinalGather(ctx, gatherPoints, gatherTracer); err != nil {
		return err
	}
	return c.RenderBuckets(ctx)
}
