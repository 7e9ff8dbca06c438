// Package state implements the per-ray mutable record threaded
// through BSP traversal and shading: ray geometry, the current hit
// descriptor, shading differential geometry, recursion-depth
// counters, and QMC sampling cursors, per spec.md §4.9. It also
// implements the shade.PrimVarSource and shade.DerivativeState
// interfaces so a shader graph can read and perturb the current hit
// without package shade needing to know what a hit is.
package state

import (
	"errors"
	"sync"

	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/object"
	"github.com/elvishrender/core/shade"
)

const statePrefix = "state: "

func newStateErr(reason string) error { return errors.New(statePrefix + reason) }

// Errors returned by this package.
var (
	ErrDepthExceeded = newStateErr("recursion depth limit exceeded")
	ErrNoHit         = newStateErr("state has no current hit")
	ErrVolumeFull    = newStateErr("volume stack is full")
)

// Tuning constants named after their spec counterparts.
const (
	RayBias      = 2.5e-3
	RayBiasScale = 2e-2

	MaxVolumes = 8
)

// Kind identifies what kind of ray a State represents, mirroring
// state_init's type argument.
type Kind int

// Ray kinds.
const (
	KindCamera Kind = iota
	KindReflect
	KindRefract
	KindShadow
	KindFinalGather
	KindCaustic
	KindGlobalIllum
	KindPhoton
)

// RayGeometry is the ray in world space, plus its lazily refreshed
// object-space counterpart for whichever instance is currently hit.
type RayGeometry struct {
	Org, Dir, InvDir linear.V3
	TNear, TFar      float32
	MaxT, HitT       float32

	ObjOrg, ObjDir linear.V3
}

// Hit describes the current intersection, once one has been found.
type Hit struct {
	Tessel      *object.Tessel
	InstanceIdx int
	Instance    node.InstanceID
	Material    node.InstanceID
	Triangle    int
	Prim        int
	Bary        [3]float32
	UserData    [8]uint32

	Bias       float32
	BiasScale  float32
	MotionTime float32
	HitMotion  bool
	DotND      float32
	PrevHitT   float32
}

// Differential is the shading differential geometry at the current
// hit: position, normals, parametric derivatives and UV.
type Differential struct {
	P, N, Ng   linear.V3
	DPdu, DPdv linear.V3
	DPdtime    linear.V3
	U, V       float32
	DU, DV     float32
	DTime      float32
	Distance   float32
}

// Depths tracks recursion counters, each capped independently by
// Options.
type Depths struct {
	Reflect, Refract                  int
	FinalGatherDiffuse                int
	CausticReflect, CausticRefract    int
	GlobillumReflect, GlobillumRefract int
}

// Cursors are the QMC sampling cursors: strictly monotone across
// child rays so sampling stays deterministic and stratified.
type Cursors struct {
	InstanceNumber uint64
	Dimension      int
	TempDimension  int
}

// Volume is one entry of the current-volume stack: the material
// instance governing the medium the ray currently occupies.
type Volume struct {
	Material node.InstanceID
}

// Limits caps recursion depth per ray kind, read from render options.
type Limits struct {
	MaxReflect, MaxRefract                   int
	MaxFinalGatherDiffuse                    int
	MaxCausticReflect, MaxCausticRefract     int
	MaxGlobillumReflect, MaxGlobillumRefract int
}

// DefaultLimits mirrors conservative production defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxReflect:             5,
		MaxRefract:             5,
		MaxFinalGatherDiffuse:  1,
		MaxCausticReflect:      5,
		MaxCausticRefract:      5,
		MaxGlobillumReflect:    5,
		MaxGlobillumRefract:    5,
	}
}

// State is the per-ray mutable record, eiState's equivalent.
type State struct {
	Kind Kind
	Ray  RayGeometry
	Hit  Hit
	hit  bool
	Diff Differential
	Depths  Depths
	limits  Limits
	Cursors Cursors

	volumes [MaxVolumes]Volume
	numVols int

	DB     *db.Database
	Cache  *shade.Cache
	Result []byte

	mu sync.Mutex
}

// Init creates a new State of the given kind, bound to database and
// capped by limits. It mirrors state_init; the caller must arrange
// for Exit-equivalent cleanup (State carries no resources that need
// releasing beyond what Go's GC reclaims, so the pairing requirement
// survives only as a documented discipline: one Init per logical ray).
func Init(kind Kind, database *db.Database, limits Limits) *State {
	return &State{Kind: kind, DB: database, limits: limits}
}

// HasHit reports whether a traversal has recorded a hit on this ray.
func (s *State) HasHit() bool { return s.hit }

// SetHit records a new hit, replacing any previous one and saving its
// t as PrevHitT.
func (s *State) SetHit(h Hit) {
	h.PrevHitT = s.Ray.HitT
	s.Hit = h
	s.hit = true
	s.Ray.HitT = s.Ray.TFar
}

// ClearHit discards the current hit (used when a shadow-ray probe
// finds none, or before spawning a fresh primary ray on a reused
// State).
func (s *State) ClearHit() { s.hit = false; s.Hit = Hit{} }

// Bias returns the slope-scaled self-intersection bias along the
// shading normal, spec.md's EI_RAY_BIAS/EI_RAY_BIAS_SCALE formula.
func Bias(distance float32) float32 {
	return RayBias + RayBiasScale*distance
}

// CanReflect, CanRefract and the other depth gates report whether
// spawning one more ray of that kind is still within limits.
func (s *State) CanReflect() bool { return s.Depths.Reflect < s.limits.MaxReflect }
func (s *State) CanRefract() bool { return s.Depths.Refract < s.limits.MaxRefract }
func (s *State) CanFinalGatherDiffuse() bool {
	return s.Depths.FinalGatherDiffuse < s.limits.MaxFinalGatherDiffuse
}

// PushVolume appends a volume the ray has entered, per
// state_inherit_volume's "append" branch.
func (s *State) PushVolume(v Volume) error {
	if s.numVols >= MaxVolumes {
		return ErrVolumeFull
	}
	s.volumes[s.numVols] = v
	s.numVols++
	return nil
}

// PopVolume removes the innermost volume, per the "leaving" branch.
func (s *State) PopVolume() {
	if s.numVols > 0 {
		s.numVols--
	}
}

// Volumes returns the current volume stack, innermost last.
func (s *State) Volumes() []Volume { return s.volumes[:s.numVols] }

// InheritVolume sets child's volume stack from parent according to
// whether the hit normal and incoming ray direction indicate the
// child ray is entering or leaving the hit's material volume
// (dot(N, I) < 0 enters, > 0 leaves), or copies unchanged if the
// material has no associated volume.
func InheritVolume(child, parent *State, hitMaterial node.InstanceID, hasVolume bool, dotNI float32) {
	child.volumes = parent.volumes
	child.numVols = parent.numVols
	if !hasVolume {
		return
	}
	if dotNI < 0 {
		child.PushVolume(Volume{Material: hitMaterial})
	} else {
		child.PopVolume()
	}
}

// NextDimension advances the QMC dimension cursor and returns the
// dimension to sample next, keeping sibling samples stratified.
func (s *State) NextDimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.Cursors.Dimension
	s.Cursors.Dimension++
	return d
}
