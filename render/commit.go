package render

import (
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/object"
	"github.com/elvishrender/core/scene"
)

// SceneCommit is a thin recorder of instance placements and shader
// links, spec.md §6's narrow external-Scene-API ingress: it holds no
// geometry parsing or file I/O of its own, only the instance list a
// call to Build turns into a scene.Scene. Nodes and shaders are
// expected to already be registered in the Context's node.Registry
// before AddInstance references them by node.InstanceID.
type SceneCommit struct {
	instances []*scene.Instance
}

// NewSceneCommit returns an empty commit.
func NewSceneCommit() *SceneCommit { return &SceneCommit{} }

// AddInstance records one object placement. elem and job describe the
// object being instanced (a PolyMesh, Hair, ...); material is the
// root InstanceID of that instance's surface shader graph in the
// owning Context's Registry.
func (s *SceneCommit) AddInstance(elem object.Element, job *object.Job, material node.InstanceID, objectToWorld, worldToObject linear.M4) {
	s.instances = append(s.instances, &scene.Instance{
		Elem:          elem,
		Material:      material,
		Job:           job,
		ObjectToWorld: objectToWorld,
		WorldToObject: worldToObject,
	})
}

// AddMotionInstance records a motion-blurred object placement.
// objectToMotion maps the instance's time-sampled local space back to
// its rest pose; see scene.Instance.ObjectToMotion.
func (s *SceneCommit) AddMotionInstance(elem object.Element, job *object.Job, material node.InstanceID, objectToWorld, worldToObject, objectToMotion linear.M4) {
	inst := &scene.Instance{
		Elem:           elem,
		Material:       material,
		Job:            job,
		ObjectToWorld:  objectToWorld,
		WorldToObject:  worldToObject,
		ObjectToMotion: &objectToMotion,
	}
	s.instances = append(s.instances, inst)
}

// Build dices/tessellates nothing itself; it hands the recorded
// instances to scene.BuildTessellated, which performs eager
// tessellation and constructs the top-level BSP. Deferred
// (lazy-diced) objects are handled by scene.BuildTessellated the same
// way regardless of whether this commit or a prior one created them.
func (s *SceneCommit) Build() (*scene.Scene, error) {
	return scene.BuildTessellated(s.instances)
}
