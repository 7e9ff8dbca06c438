package state

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/object"
)

func TestBiasGrowsWithDistance(t *testing.T) {
	near := Bias(0)
	far := Bias(100)
	if near != RayBias {
		t.Fatalf("Bias(0) = %v, want %v", near, RayBias)
	}
	if far <= near {
		t.Fatalf("Bias(100) = %v, want > Bias(0) = %v", far, near)
	}
}

func TestDepthGatesRespectLimits(t *testing.T) {
	s := Init(KindCamera, nil, Limits{MaxReflect: 1})
	if !s.CanReflect() {
		t.Fatal("expected CanReflect true at depth 0")
	}
	s.Depths.Reflect = 1
	if s.CanReflect() {
		t.Fatal("expected CanReflect false at depth == limit")
	}
}

func TestVolumeStackPushPop(t *testing.T) {
	s := Init(KindCamera, nil, DefaultLimits())
	mat := node.InstanceID(7)
	if err := s.PushVolume(Volume{Material: mat}); err != nil {
		t.Fatal(err)
	}
	if len(s.Volumes()) != 1 {
		t.Fatalf("Volumes() len = %d, want 1", len(s.Volumes()))
	}
	s.PopVolume()
	if len(s.Volumes()) != 0 {
		t.Fatalf("Volumes() len = %d, want 0", len(s.Volumes()))
	}
}

func TestVolumeStackOverflow(t *testing.T) {
	s := Init(KindCamera, nil, DefaultLimits())
	for i := 0; i < MaxVolumes; i++ {
		if err := s.PushVolume(Volume{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PushVolume(Volume{}); err != ErrVolumeFull {
		t.Fatalf("got %v, want ErrVolumeFull", err)
	}
}

func TestInheritVolumeEntersAndLeaves(t *testing.T) {
	parent := Init(KindCamera, nil, DefaultLimits())
	mat := node.InstanceID(3)

	child := Init(KindReflect, nil, DefaultLimits())
	InheritVolume(child, parent, mat, true, -1)
	if len(child.Volumes()) != 1 {
		t.Fatalf("entering: Volumes() len = %d, want 1", len(child.Volumes()))
	}

	grandchild := Init(KindReflect, nil, DefaultLimits())
	InheritVolume(grandchild, child, mat, true, 1)
	if len(grandchild.Volumes()) != 0 {
		t.Fatalf("leaving: Volumes() len = %d, want 0", len(grandchild.Volumes()))
	}
}

func TestNextDimensionIsMonotone(t *testing.T) {
	s := Init(KindCamera, nil, DefaultLimits())
	a := s.NextDimension()
	b := s.NextDimension()
	if b != a+1 {
		t.Fatalf("NextDimension not monotone: %d then %d", a, b)
	}
}

func TestGetPrimVarWithoutHitFails(t *testing.T) {
	s := Init(KindCamera, nil, DefaultLimits())
	if _, ok := s.GetPrimVar("foo", node.Float); ok {
		t.Fatal("expected no primvar without a hit")
	}
}

func TestGetPrimVarInterpolatesVertexVar(t *testing.T) {
	tessel := &object.Tessel{
		Positions: []linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Triangles: []object.Triangle{{V0: 0, V1: 1, V2: 2}},
		Vars: map[string]*object.PrimVar{
			"temp": {
				Class: node.Vertex,
				Kind:  node.Float,
				Data:  encodeFloats(1, 2, 3),
			},
		},
	}
	s := Init(KindCamera, nil, DefaultLimits())
	s.SetHit(Hit{Tessel: tessel, Triangle: 0, Bary: [3]float32{1, 0, 0}})

	v, ok := s.GetPrimVar("temp", node.Float)
	if !ok {
		t.Fatal("expected primvar to resolve")
	}
	if len(v) != 4 {
		t.Fatalf("got %d bytes, want 4", len(v))
	}
}

func encodeFloats(fs ...float32) []byte {
	buf := make([]byte, 4*len(fs))
	for i, f := range fs {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
	return buf
}

func TestPerturbUVRestoresAfterwards(t *testing.T) {
	s := Init(KindCamera, nil, DefaultLimits())
	s.Diff.U, s.Diff.V = 0.5, 0.5
	s.Diff.P = linear.V3{1, 1, 1}
	s.Diff.DPdu = linear.V3{1, 0, 0}
	s.Diff.DPdv = linear.V3{0, 1, 0}

	restore := s.PerturbUV(0.01, 0)
	if s.Diff.U == 0.5 {
		t.Fatal("PerturbUV did not change U")
	}
	restore()
	if s.Diff.U != 0.5 || s.Diff.V != 0.5 {
		t.Fatal("restore did not reset U/V")
	}
	if s.Diff.P != (linear.V3{1, 1, 1}) {
		t.Fatal("restore did not reset P")
	}
}
