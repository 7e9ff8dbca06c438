package bucket

import (
	"sync"

	"github.com/elvishrender/core/bsp"
	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/scene"
	"github.com/elvishrender/core/shade"
	"github.com/elvishrender/core/state"
)

// LensShader produces a primary ray in world space for a pixel,
// given its integer coordinates, a sub-pixel offset in [0,1)x[0,1)
// and a sample time in [0,1) (for motion blur), mirroring the lens
// shader chain of spec.md §4.6 step 1.
type LensShader interface {
	Ray(x, y int, du, dv, t float32) (org, dir linear.V3)
}

// Job is one bucket: a screen-space rectangle plus back-pointers to
// everything a sample needs, eiBucketJob/execute_job_bucket's
// equivalent.
type Job struct {
	X0, Y0, W, H int

	Lens        LensShader
	Scene       *scene.Scene
	DB          *db.Database
	Registry    *node.Registry
	Channels    []shade.Channel
	Limits      state.Limits
	Framebuffer *FrameBuffer

	materials materialCaches
}

// materialCaches lazily builds and memoizes one shade.Cache per
// distinct material root instance a bucket's rays actually hit,
// avoiding rebuilding a shading graph's parameter table on every
// sample.
type materialCaches struct {
	mu     sync.Mutex
	byRoot map[node.InstanceID]*shade.Cache
}

func (m *materialCaches) get(reg *node.Registry, root node.InstanceID) (*shade.Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byRoot == nil {
		m.byRoot = make(map[node.InstanceID]*shade.Cache)
	}
	if c, ok := m.byRoot[root]; ok {
		return c, nil
	}
	table, err := shade.BuildTable(reg, root)
	if err != nil {
		return nil, err
	}
	c, err := shade.NewCache(reg, table)
	if err != nil {
		return nil, err
	}
	m.byRoot[root] = c
	return c, nil
}

// hitDetails fills a state.State's Hit and Diff from a scene.SceneHit,
// implementing compute_hit_details: world-space P, flat (Ng) and
// shading (N) normals, parametric derivatives, and barycentric (u, v).
func hitDetails(st *state.State, hit scene.SceneHit, worldRay *bsp.Ray) {
	tessel := hit.Tessel
	tri := tessel.Triangles[hit.Triangle]
	p0, p1, p2 := tessel.Positions[tri.V0], tessel.Positions[tri.V1], tessel.Positions[tri.V2]

	var worldP linear.V3
	var scaled linear.V3
	scaled.Scale(hit.T, &worldRay.Dir)
	worldP.Add(&worldRay.Org, &scaled)

	inst := hit.Instance
	localP := scene.TransformPoint(&inst.WorldToObject, worldP)
	w0, w1, w2 := tessel.Bary(hit.Triangle, &localP)
	bary := [3]float32{w0, w1, w2}

	var e1, e2 linear.V3
	e1.Sub(&p1, &p0)
	e2.Sub(&p2, &p0)
	var ngLocal linear.V3
	ngLocal.Cross(&e1, &e2)
	ngLocal.Norm(&ngLocal)

	nLocal := ngLocal
	if len(tessel.Normals) == len(tessel.Positions) {
		var n0, n1, n2, blend, t0, t1, t2 linear.V3
		n0, n1, n2 = tessel.Normals[tri.V0], tessel.Normals[tri.V1], tessel.Normals[tri.V2]
		t0.Scale(w0, &n0)
		t1.Scale(w1, &n1)
		t2.Scale(w2, &n2)
		blend.Add(&t0, &t1)
		blend.Add(&blend, &t2)
		blend.Norm(&blend)
		nLocal = blend
	}

	st.Diff.P = worldP
	st.Diff.Ng = scene.TransformNormal(&inst.WorldToObject, ngLocal)
	st.Diff.Ng.Norm(&st.Diff.Ng)
	st.Diff.N = scene.TransformNormal(&inst.WorldToObject, nLocal)
	st.Diff.N.Norm(&st.Diff.N)
	st.Diff.DPdu = scene.TransformVector(&inst.ObjectToWorld, e1)
	st.Diff.DPdv = scene.TransformVector(&inst.ObjectToWorld, e2)
	st.Diff.U, st.Diff.V = w1, w2
	st.Diff.Distance = hit.T

	dotND := st.Diff.N.Dot(&worldRay.Dir)

	st.SetHit(state.Hit{
		Tessel:   tessel,
		Instance: node.Nil,
		Material: inst.Material,
		Triangle: hit.Triangle,
		Bary:     bary,
		Bias:     state.Bias(hit.T),
		DotND:    dotND,
	})
}

// Sample runs the per-sample pipeline of spec.md §4.6 step 1-3 for one
// sub-pixel sample: lens ray, traversal, hit details, surface shading
// against the hit's material, folding in its framebuffer channels.
// It returns false (zero contribution) when the ray finds no hit.
func (j *Job) Sample(x, y int, du, dv float32, sampleInfo []byte) (bool, error) {
	org, dir := j.Lens.Ray(x, y, du, dv, 0)
	ray := &bsp.Ray{Org: org, Dir: dir, InvDir: invDir(dir), TMin: 0, TMax: 1e30}

	sceneHit, ok := j.Scene.Nearest(ray)
	if !ok {
		return false, nil
	}

	st := state.Init(state.KindCamera, j.DB, j.Limits)
	hitDetails(st, sceneHit, ray)

	cache, err := j.materials.get(j.Registry, sceneHit.Instance.Material)
	if err != nil {
		return false, err
	}

	result := make([]byte, shade.ResultSize)
	if err := shade.Call(cache, sceneHit.Instance.Material, result, st); err != nil {
		return false, err
	}

	if err := shade.BindChannels(cache, sceneHit.Instance.Material, j.Channels, sampleInfo); err != nil {
		return false, err
	}
	copy(sampleInfo[ColorOffset:ColorOffset+ColorSize], result[:ColorSize])
	return true, nil
}

func invDir(dir linear.V3) linear.V3 {
	var inv linear.V3
	for i := range dir {
		if dir[i] == 0 {
			inv[i] = 1e30
		} else {
			inv[i] = 1 / dir[i]
		}
	}
	return inv
}

// Run executes the bucket's full pipeline: adaptive sampling of every
// pixel in [X0,X0+W)x[Y0,Y0+H), reconstruction-filtered splatting into
// a thread-local Cache, and one flush to the shared Framebuffer.
func (j *Job) Run(cfg *Config) error {
	cache := NewCache(j.Framebuffer, j.X0, j.Y0, j.W, j.H, cfg.FilterWidth)
	sampleInfo := make([]byte, SampleInfoSize)

	for py := j.Y0; py < j.Y0+j.H; py++ {
		for px := j.X0; px < j.X0+j.W; px++ {
			x, y := px, py
			rot := pixelRotation(x, y)
			color, opacity := AdaptiveSamples(cfg, func(u, v float32) ([3]float32, float32) {
				su, sv := u, v+rot
				if sv >= 1 {
					sv -= 1
				}
				for i := range sampleInfo {
					sampleInfo[i] = 0
				}
				hit, err := j.Sample(x, y, su, sv, sampleInfo)
				if err != nil || !hit {
					return [3]float32{}, 0
				}
				return DecodeColor(sampleInfo), DecodeOpacity(sampleInfo)
			})
			cache.Splat(cfg, float32(px)+0.5, float32(py)+0.5, color, opacity)
		}
	}
	return cache.Flush(cfg)
}
