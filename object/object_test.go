package object

import (
	"testing"

	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
)

func cube() ([]linear.V3, []int32) {
	p := []linear.V3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	idx := []int32{
		0, 1, 2, 0, 2, 3, // front
		4, 6, 5, 4, 7, 6, // back
		0, 4, 5, 0, 5, 1, // bottom
		3, 2, 6, 3, 6, 7, // top
		0, 3, 7, 0, 7, 4, // left
		1, 5, 6, 1, 6, 2, // right
	}
	return p, idx
}

type countingReg struct{ tessels []*Tessel }

func (r *countingReg) AddTessel(job *Job, t *Tessel) { r.tessels = append(r.tessels, t) }

func TestExecuteJobTesselDicesSmallMesh(t *testing.T) {
	d := db.New(nil)
	p, idx := cube()
	mesh := NewPolyMesh(d, p, nil, idx, 64)

	q := NewQueue()
	q.Push(mesh.WholeMeshJob())
	reg := &countingReg{}
	if err := ExecuteJobTessel(q, reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.tessels) != 1 {
		t.Fatalf("got %d tessellations, want 1 (mesh fits in one leaf)", len(reg.tessels))
	}
	if got := len(reg.tessels[0].Triangles); got != 12 {
		t.Fatalf("got %d triangles, want 12", got)
	}
}

func TestExecuteJobTesselSplitsLargeMesh(t *testing.T) {
	d := db.New(nil)
	p, idx := cube()
	mesh := NewPolyMesh(d, p, nil, idx, 4) // forces at least one split (12 tris > 4)

	q := NewQueue()
	q.Push(mesh.WholeMeshJob())
	reg := &countingReg{}
	if err := ExecuteJobTessel(q, reg); err != nil {
		t.Fatal(err)
	}
	if len(reg.tessels) < 2 {
		t.Fatalf("got %d tessellations, want >= 2", len(reg.tessels))
	}
	var total int
	for _, te := range reg.tessels {
		total += len(te.Triangles)
	}
	if total != 12 {
		t.Fatalf("total triangles across tessellations = %d, want 12", total)
	}
}

func TestDeferredDiceResolve(t *testing.T) {
	d := db.New(nil)
	p, idx := cube()
	mesh := NewPolyMesh(d, p, nil, idx, 64)
	job := mesh.WholeMeshJob()

	obj, err := mesh.Create(job)
	if err != nil {
		t.Fatal(err)
	}
	box, err := mesh.Bound(job, obj)
	if err != nil {
		t.Fatal(err)
	}
	placeholder, err := mesh.DeferredDice(job, obj, box)
	if err != nil {
		t.Fatal(err)
	}
	if placeholder.Deferred == nil || len(placeholder.Triangles) != 0 {
		t.Fatal("DeferredDice should return an empty placeholder")
	}

	real, err := Resolve(placeholder)
	if err != nil {
		t.Fatal(err)
	}
	if len(real.Triangles) != 12 {
		t.Fatalf("resolved tessellation has %d triangles, want 12", len(real.Triangles))
	}
}

func TestHairDeferredDiceUnsupported(t *testing.T) {
	d := db.New(nil)
	curves := [][]linear.V3{{{0, 0, 0}, {0, 1, 0}}}
	h := NewHair(d, curves, 0.01, Linear, 4)
	job := h.WholeHairJob(0)
	obj, err := h.Create(job)
	if err != nil {
		t.Fatal(err)
	}
	box, err := h.Bound(job, obj)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.DeferredDice(job, obj, box); err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestHairDiceProducesRibbon(t *testing.T) {
	d := db.New(nil)
	curves := [][]linear.V3{{{0, 0, 0}, {0, 1, 0}}}
	h := NewHair(d, curves, 0.02, Linear, 4)
	job := h.WholeHairJob(0)
	obj, err := h.Create(job)
	if err != nil {
		t.Fatal(err)
	}
	box, err := h.Bound(job, obj)
	if err != nil {
		t.Fatal(err)
	}
	tessel, err := h.Dice(job, obj, box)
	if err != nil {
		t.Fatal(err)
	}
	if len(tessel.Positions) != 10 { // (StepsPerSeg+1) * 2
		t.Fatalf("got %d positions, want 10", len(tessel.Positions))
	}
	if len(tessel.Triangles) != 8 { // StepsPerSeg * 2
		t.Fatalf("got %d triangles, want 8", len(tessel.Triangles))
	}
}

func TestTesselBaryAndInterp(t *testing.T) {
	tessel := &Tessel{
		Positions: []linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Triangles: []Triangle{{0, 1, 2}},
	}
	p := linear.V3{0.25, 0.25, 0}
	w0, w1, w2 := tessel.Bary(0, &p)
	if w0+w1+w2 < 0.999 || w0+w1+w2 > 1.001 {
		t.Fatalf("barycentric weights do not sum to 1: %f %f %f", w0, w1, w2)
	}
}
