package object

import (
	"encoding/binary"

	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
)

// Degree is a hair curve's polynomial basis degree.
type Degree int

// Supported hair curve degrees.
const (
	Linear    Degree = 1
	Quadratic Degree = 2
	Cubic     Degree = 3
)

// basis evaluates the degree-d curve basis at parameter u against
// the given control points, dispatching on d the way spec.md §4.4
// describes ("polynomial bases depend on the primitive kind:
// degree-1/2/3 curves for hair"). len(cp) must be d+1.
func basis(d Degree, cp []linear.V3, u float32) linear.V3 {
	switch d {
	case Linear:
		var out, t linear.V3
		out.Scale(1-u, &cp[0])
		t.Scale(u, &cp[1])
		out.Add(&out, &t)
		return out
	case Quadratic:
		b0 := (1 - u) * (1 - u)
		b1 := 2 * u * (1 - u)
		b2 := u * u
		var out, t linear.V3
		out.Scale(b0, &cp[0])
		t.Scale(b1, &cp[1])
		out.Add(&out, &t)
		t.Scale(b2, &cp[2])
		out.Add(&out, &t)
		return out
	default: // Cubic
		mu := 1 - u
		b0 := mu * mu * mu
		b1 := 3 * u * mu * mu
		b2 := 3 * u * u * mu
		b3 := u * u * u
		var out, t linear.V3
		out.Scale(b0, &cp[0])
		t.Scale(b1, &cp[1])
		out.Add(&out, &t)
		t.Scale(b2, &cp[2])
		out.Add(&out, &t)
		t.Scale(b3, &cp[3])
		out.Add(&out, &t)
		return out
	}
}

// Hair is the object_element implementation for hair/fur curves:
// polylines of control points plus a per-curve width, diced into
// ribbons of micro-triangles laid out across the curve tangent and a
// fixed world axis; the ribbons are not turned toward the camera.
type Hair struct {
	Curves      [][]linear.V3 // len(Curves[i]) == int(Degree)+1 per segment run
	Width       float32
	Deg         Degree
	StepsPerSeg int

	db  *db.Database
	typ db.Type
}

// NewHair creates a Hair element backed by d for its sub-object
// range records.
func NewHair(d *db.Database, curves [][]linear.V3, width float32, deg Degree, stepsPerSeg int) *Hair {
	if stepsPerSeg <= 0 {
		stepsPerSeg = 4
	}
	typ := db.Register(db.TypeDesc{Name: "object.hairRange", ElemSize: 1})
	return &Hair{Curves: curves, Width: width, Deg: deg, StepsPerSeg: stepsPerSeg, db: d, typ: typ}
}

// Create implements Element: the sub-object is a single curve index,
// stored in job.Range[0].
func (h *Hair) Create(job *Job) (db.Tag, error) {
	tag, buf, err := h.db.Create(h.typ, 4, 0)
	if err != nil {
		return db.Nil, err
	}
	binary.LittleEndian.PutUint32(buf, uint32(job.Range[0]))
	if err := h.db.End(tag); err != nil {
		return db.Nil, err
	}
	return tag, nil
}

func (h *Hair) readCurve(obj db.Tag) (int, error) {
	buf, err := h.db.Access(obj)
	if err != nil {
		return 0, err
	}
	defer h.db.End(obj)
	return int(binary.LittleEndian.Uint32(buf)), nil
}

// Bound implements Element.
func (h *Hair) Bound(job *Job, obj db.Tag) (Box, error) {
	i, err := h.readCurve(obj)
	if err != nil {
		return Box{}, err
	}
	box := linear.EmptyBox3()
	r := h.Width
	for _, p := range h.Curves[i] {
		lo := linear.V3{p[0] - r, p[1] - r, p[2] - r}
		hi := linear.V3{p[0] + r, p[1] + r, p[2] + r}
		box.Extend(&lo)
		box.Extend(&hi)
	}
	if job.MotionSweep != nil {
		box.Union(&box, job.MotionSweep)
	}
	return box, nil
}

// Diceable implements Element. A single curve's control-point run is
// always small enough to dice directly; Hair does not split.
func (h *Hair) Diceable(job *Job, obj db.Tag, box Box) bool { return true }

// Dice implements Element, sweeping StepsPerSeg points along the
// curve basis and emitting a camera-independent ribbon (two
// triangles per step, offset by Width/2 either side along the cross
// product of the tangent with +Y, or with +X where the tangent is
// parallel to Y). The returned Tessel stores no tangent and no
// normals.
func (h *Hair) Dice(job *Job, obj db.Tag, box Box) (*Tessel, error) {
	i, err := h.readCurve(obj)
	if err != nil {
		return nil, err
	}
	cp := h.Curves[i]
	if len(cp) != int(h.Deg)+1 {
		return nil, newObjErr("hair: control-point count does not match degree")
	}

	ref := linear.V3{0, 1, 0}
	var positions []linear.V3
	var tris []Triangle
	n := h.StepsPerSeg
	for s := 0; s <= n; s++ {
		u := float32(s) / float32(n)
		center := basis(h.Deg, cp, u)
		var tangent linear.V3
		du := float32(1.0 / 256.0)
		if u+du > 1 {
			du = -du
		}
		fwd := basis(h.Deg, cp, u+du)
		tangent.Sub(&fwd, &center)
		tangent.Norm(&tangent)

		var side linear.V3
		side.Cross(&tangent, &ref)
		if side.Dot(&side) < 1e-12 {
			side.Cross(&tangent, &linear.V3{1, 0, 0})
		}
		side.Norm(&side)
		side.Scale(h.Width*0.5, &side)

		var left, right linear.V3
		left.Sub(&center, &side)
		right.Add(&center, &side)
		positions = append(positions, left, right)

		if s > 0 {
			base := (s - 1) * 2
			tris = append(tris,
				Triangle{base, base + 1, base + 2},
				Triangle{base + 1, base + 3, base + 2},
			)
		}
	}
	return &Tessel{Positions: positions, Triangles: tris, Box: box}, nil
}

// Split implements Element. Hair curves dice in one shot; Split is
// never called because Diceable always returns true.
func (h *Hair) Split(job *Job, obj db.Tag, box Box, queue *Queue) error {
	return ErrUnsupported
}

// DeferredDice implements Element. Hair ribbons are cheap enough to
// dice eagerly and the renderer's curve basis evaluation has no
// meaningful placeholder bound cheaper than just computing it, so
// deferred dicing is intentionally unsupported for this element
// kind (resolved Open Question, see DESIGN.md).
func (h *Hair) DeferredDice(job *Job, obj db.Tag, box Box) (*Tessel, error) {
	return nil, ErrUnsupported
}

// Intersect implements Element. Hair is always pre-diced into
// triangles, so it never needs the procedural intersection hook.
func (h *Hair) Intersect(obj db.Tag, tessel *Tessel, instanceIdx int, hits HitArray, sort bool) error {
	return ErrUnsupported
}

// WholeHairJob returns a Job covering curve index i.
func (h *Hair) WholeHairJob(i int) *Job {
	return &Job{Elem: h, Range: [2]int{i, 0}}
}
