package master

import (
	"context"

	"github.com/elvishrender/core/bucket"
	"github.com/elvishrender/core/object"
)

// BucketJob renders one bucket via bucket.Job.Run, the spec's "bucket
// job (tile render)" work unit.
type BucketJob struct {
	Bucket *bucket.Job
	Config *bucket.Config
}

// Run implements Job.
func (j BucketJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.Bucket.Run(j.Config)
}

// TesselJob dices or splits one deferred tessellation job, the spec's
// "tessellation job (dice/split)" work unit. A job owns its own Queue
// (seeded with one top-level object.Job) so that splitting one object
// into many sub-jobs stays local to the worker that picked it up,
// rather than pushing children back onto the shared master queue.
type TesselJob struct {
	Queue *object.Queue
	Reg   object.Registrar
}

// Run implements Job. object.ExecuteJobTessel doesn't itself poll a
// context, so cancellation is checked once before draining: a
// tessellation job is expected to be small enough (one sub-object's
// dice/split tree) that finer-grained polling isn't worth the
// plumbing spec.md's abort contract would otherwise require threading
// through object.Element.Dice/Split.
func (j TesselJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return object.ExecuteJobTessel(j.Queue, j.Reg)
}

// PhotonJob runs one batch of photon emissions into a shared map, the
// spec's "photon-emission job" work unit. Emit is expected to close
// over the target *photon.Map, Light list and Tracer, so this package
// does not need to import photon directly.
type PhotonJob struct {
	Emit func() error
}

// Run implements Job.
func (j PhotonJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.Emit()
}
