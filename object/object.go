// Package object implements geometry approximation and tessellation:
// the per-kind Element vtable that turns a scene-authored primitive
// into micro-triangle tessellations suitable for ray intersection,
// and the work-queue executor that drives that process to
// completion.
package object

import (
	"errors"

	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
)

const objPrefix = "object: "

func newObjErr(reason string) error { return errors.New(objPrefix + reason) }

// Errors returned by this package.
var (
	ErrUnsupported = newObjErr("operation not supported for this element kind")
	ErrNoElement   = newObjErr("job has no element bound")
)

// Box is a geometry approximation's bound, in object space.
type Box = linear.Box3

// Job is one unit of tessellation work: a sub-object awaiting either
// direct dicing or further splitting.
type Job struct {
	Elem  Element
	Src   db.Tag
	Box   Box
	Depth int
	// MotionSweep, when non-nil, is the union of the object's bounds
	// across the shutter interval; Bound folds it into the returned
	// Box when the element supports motion blur.
	MotionSweep *Box

	// Range is an element-kind-specific sub-object selector, e.g. a
	// [start, end) triangle-index range for PolyMesh. Elements that
	// don't partition this way ignore it.
	Range [2]int
}
