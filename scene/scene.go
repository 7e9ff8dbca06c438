// Package scene implements the ray-traceable scene: the top-level
// BSP over instanced-object bounds, per-instance object-to-world and
// world-to-object transforms (including motion-blurred instances),
// and the glue that transforms a world-space ray into an instance's
// local space once per scene-BSP leaf entry.
package scene

import (
	"errors"

	"github.com/elvishrender/core/bsp"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/object"
)

const scenePrefix = "scene: "

func newSceneErr(reason string) error { return errors.New(scenePrefix + reason) }

// Errors returned by this package.
var ErrNoInstances = newSceneErr("scene has no object instances")

// Box is an axis-aligned bound in world space.
type Box = linear.Box3

// Instance is one placement of a geometric object in the scene,
// eiRayObjectInstance's equivalent: an object plus the transform
// (possibly animated) that places it in world space.
type Instance struct {
	// Elem is the instanced object's tessellation source.
	Elem object.Element

	// Material is the surface shader graph's root instance, evaluated
	// against whichever of this instance's tessellations is hit.
	Material node.InstanceID

	// Job seeds the object's own tessellation job queue (usually
	// object.PolyMesh.WholeMeshJob or object.Hair.WholeHairJob).
	Job *object.Job

	// ObjectToWorld and WorldToObject are the instance's static
	// transform. Traversal maps every world-space ray into local space
	// through WorldToObject alone, motion-blurred instances included.
	ObjectToWorld linear.M4
	WorldToObject linear.M4

	// ObjectToMotion is non-nil only for motion-blurred instances and
	// maps from the time-sampled position to the object's rest pose.
	// Scene traversal does not read it: rays carry no sample time and
	// are not transformed by it.
	ObjectToMotion *linear.M4

	// Bound is the instance's world-space bound (already swept over
	// the motion range, if any), computed once at Scene build time.
	Bound Box
}

// Scene is a built top-level acceleration structure: a flat list of
// every instance's tessellations, indexed by one top-level BSP over
// their world-space bounds. Build it with BuildTessellated.
type Scene struct {
	Instances []*Instance
	tessels   []*leafTessel
	tree      *bsp.Tree
}

// TransformPoint returns m applied to the point p (p.w implicitly 1).
func TransformPoint(m *linear.M4, p linear.V3) linear.V3 {
	var r linear.V3
	for row := 0; row < 3; row++ {
		r[row] = m[0][row]*p[0] + m[1][row]*p[1] + m[2][row]*p[2] + m[3][row]
	}
	return r
}

// TransformVector returns m applied to the direction v (v.w implicitly 0).
func TransformVector(m *linear.M4, v linear.V3) linear.V3 {
	var r linear.V3
	for row := 0; row < 3; row++ {
		r[row] = m[0][row]*v[0] + m[1][row]*v[1] + m[2][row]*v[2]
	}
	return r
}
