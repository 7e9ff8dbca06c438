package scene

import (
	"sync"

	"github.com/elvishrender/core/bsp"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/object"
)

// leafTessel is one entry of the top-level BSP: a single tessellation
// belonging to one instance, plus its own lazily built sub-BSP over
// its micro-triangles.
type leafTessel struct {
	inst   *Instance
	tessel *object.Tessel

	once sync.Once
	sub  *bsp.Tree
}

// instanceRegistrar adapts object.Registrar to append every produced
// Tessel into a Scene's flat tessellation list, attributed to inst.
type instanceRegistrar struct {
	s    *Scene
	inst *Instance
}

func (r *instanceRegistrar) AddTessel(job *object.Job, t *object.Tessel) {
	r.s.tessels = append(r.s.tessels, &leafTessel{inst: r.inst, tessel: t})
}

func worldBoundOf(inst *Instance, box Box) Box {
	if !box.Valid() {
		return box
	}
	var world Box = linear.EmptyBox3()
	corners := [8]linear.V3{
		{box.Min[0], box.Min[1], box.Min[2]},
		{box.Max[0], box.Min[1], box.Min[2]},
		{box.Min[0], box.Max[1], box.Min[2]},
		{box.Max[0], box.Max[1], box.Min[2]},
		{box.Min[0], box.Min[1], box.Max[2]},
		{box.Max[0], box.Min[1], box.Max[2]},
		{box.Min[0], box.Max[1], box.Max[2]},
		{box.Max[0], box.Max[1], box.Max[2]},
	}
	for i := range corners {
		p := TransformPoint(&inst.ObjectToWorld, corners[i])
		world.Extend(&p)
	}
	return world
}

// BuildTessellated tessellates every instance (draining its Job
// queue through object.ExecuteJobTessel) and builds the top-level
// scene BSP over the resulting tessellations' world-space bounds,
// per spec.md §4.5 ("the top-level scene BSP indexes tessellation
// bounds").
func BuildTessellated(instances []*Instance) (*Scene, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	s := &Scene{Instances: instances}
	for _, inst := range instances {
		queue := object.NewQueue()
		queue.Push(inst.Job)
		reg := &instanceRegistrar{s: s, inst: inst}
		if err := object.ExecuteJobTessel(queue, reg); err != nil {
			return nil, err
		}
	}
	if len(s.tessels) == 0 {
		return nil, ErrNoInstances
	}

	// Even for a motion-blurred instance, ObjectToWorld brackets its
	// nominal (time=0) pose; job.MotionSweep (consumed upstream, in
	// Element.Bound) already widened tessel.Box to cover the sweep in
	// object space, so transforming that swept box is a conservative
	// world-space bound for every sample time.
	for _, lt := range s.tessels {
		lt.inst.Bound = linear.EmptyBox3()
	}
	prims := make([]bsp.Primitive, len(s.tessels))
	for i, lt := range s.tessels {
		box := worldBoundOf(lt.inst, lt.tessel.Box)
		lt.inst.Bound.Union(&lt.inst.Bound, &box)
		prims[i] = bsp.Primitive{Box: box, Cost: float32(len(lt.tessel.Triangles) + 1)}
	}
	s.tree = bsp.Build(prims, bsp.DefaultOptions())
	return s, nil
}

// triangleIntersector adapts a single Tessel's micro-triangles to
// bsp.Intersector, resolving the tessellation on first use if it is
// still a deferred placeholder.
type triangleIntersector struct {
	t *object.Tessel
}

func (ti *triangleIntersector) Intersect(ray *bsp.Ray, prim int) (float32, bool) {
	tr := ti.t.Triangles[prim]
	v0, v1, v2 := ti.t.Positions[tr.V0], ti.t.Positions[tr.V1], ti.t.Positions[tr.V2]
	t, u, v, ok := bsp.IntersectTriangle(ray.Org, ray.Dir, v0, v1, v2)
	if !ok || u < 0 || v < 0 || u+v > 1 {
		return 0, false
	}
	return t, true
}

func (lt *leafTessel) resolve() (*object.Tessel, error) {
	if lt.tessel.Deferred == nil {
		return lt.tessel, nil
	}
	resolved, err := object.Resolve(lt.tessel)
	if err != nil {
		return nil, err
	}
	lt.tessel = resolved
	return resolved, nil
}

func (lt *leafTessel) subBSP() (*bsp.Tree, *object.Tessel, error) {
	tessel, err := lt.resolve()
	if err != nil {
		return nil, nil, err
	}
	lt.once.Do(func() {
		prims := make([]bsp.Primitive, len(tessel.Triangles))
		for i, tr := range tessel.Triangles {
			box := linear.EmptyBox3()
			box.Extend(&tessel.Positions[tr.V0])
			box.Extend(&tessel.Positions[tr.V1])
			box.Extend(&tessel.Positions[tr.V2])
			prims[i] = bsp.Primitive{Box: box, Cost: 1}
		}
		lt.sub = bsp.Build(prims, bsp.Options{MaxDepth: bsp.DefaultMaxDepth, LeafSize: bsp.DefaultLeafSize})
	})
	return lt.sub, tessel, nil
}

// sceneIntersector adapts the top-level scene BSP's leaves (one per
// tessellation) to bsp.Intersector: entering a leaf transforms the
// ray into that tessellation's instance's local space once, then
// descends the tessellation's own sub-BSP.
type sceneIntersector struct {
	s         *Scene
	worldRay  *bsp.Ray
	hitInst   *Instance
	hitTessel *object.Tessel
	hitTri    int
}

func (si *sceneIntersector) Intersect(ray *bsp.Ray, prim int) (float32, bool) {
	lt := si.s.tessels[prim]
	inst := lt.inst

	localOrg := TransformPoint(&inst.WorldToObject, si.worldRay.Org)
	localDir := TransformVector(&inst.WorldToObject, si.worldRay.Dir)
	localRay := &bsp.Ray{
		Org: localOrg, Dir: localDir,
		InvDir: invDirOf(localDir),
		TMin:   ray.TMin, TMax: ray.TMax,
	}

	tree, tessel, err := lt.subBSP()
	if err != nil {
		return 0, false
	}
	hit, ok := tree.Nearest(localRay, &triangleIntersector{t: tessel})
	if !ok {
		return 0, false
	}
	si.hitInst = inst
	si.hitTessel = tessel
	si.hitTri = hit.Prim
	return hit.T, true
}

func invDirOf(dir linear.V3) linear.V3 {
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

// SceneHit is the result of a Scene.Nearest query: which instance and
// which of its tessellation's micro-triangles was hit, and at what
// distance along the world-space ray.
type SceneHit struct {
	Instance *Instance
	Tessel   *object.Tessel
	Triangle int
	T        float32
}

// Nearest traverses the scene's top-level BSP in nearest mode,
// transforming the ray into the hit leaf's instance-local space
// before descending that tessellation's sub-BSP, per spec.md §4.5.
func (s *Scene) Nearest(ray *bsp.Ray) (SceneHit, bool) {
	if s.tree == nil {
		return SceneHit{}, false
	}
	si := &sceneIntersector{s: s, worldRay: ray}
	hit, ok := s.tree.Nearest(ray, si)
	if !ok {
		return SceneHit{}, false
	}
	return SceneHit{Instance: si.hitInst, Tessel: si.hitTessel, Triangle: si.hitTri, T: hit.T}, true
}

// TransformNormal maps an object-space direction n into world space
// as a normal, using the transpose of worldToObject's linear part
// (the inverse-transpose of objectToWorld's linear part), correct
// under non-uniform scale unlike a plain vector transform.
func TransformNormal(worldToObject *linear.M4, n linear.V3) linear.V3 {
	var out linear.V3
	for row := 0; row < 3; row++ {
		var s float32
		for col := 0; col < 3; col++ {
			s += worldToObject[row][col] * n[col]
		}
		out[row] = s
	}
	return out
}
