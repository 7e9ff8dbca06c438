package object

import (
	"github.com/elvishrender/core/db"
)

// HitArray collects procedural intersection results for a single
// ray. Package bsp owns the concrete ray/hit representation; object
// only needs enough of it to append candidate hits.
type HitArray interface {
	AddHit(t float32, instanceIdx int, tri int, bary [3]float32)
}

// Element is the per-kind geometry approximation vtable described in
// spec.md §4.4 as object_element. Each geometric object kind (polygon
// mesh, hair, subdivision surface, procedural) implements it once.
type Element interface {
	// Create produces a reference-holding sub-object record (a
	// tessellable_tag) used as dicing's input.
	Create(job *Job) (db.Tag, error)

	// Bound fills the sub-object's object-space bound, including the
	// motion-blur sweep when job.MotionSweep is set.
	Bound(job *Job, obj db.Tag) (Box, error)

	// Diceable reports whether the sub-object is small enough to
	// dice directly rather than split further.
	Diceable(job *Job, obj db.Tag, box Box) bool

	// Dice produces a Tessel of micro-triangles for the sub-object.
	Dice(job *Job, obj db.Tag, box Box) (*Tessel, error)

	// Split recursively subdivides the sub-object, pushing child
	// jobs onto queue.
	Split(job *Job, obj db.Tag, box Box, queue *Queue) error

	// DeferredDice attaches a placeholder Tessel carrying only a
	// bounding box and a back-pointer to job; Dice is invoked the
	// first time a traversal needs the real triangles.
	DeferredDice(job *Job, obj db.Tag, box Box) (*Tessel, error)

	// Intersect is the procedural intersection hook for element
	// kinds with no pre-triangulated form.
	Intersect(obj db.Tag, tessel *Tessel, instanceIdx int, hits HitArray, sort bool) error
}
