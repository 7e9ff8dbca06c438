package scene

import (
	"testing"

	"github.com/elvishrender/core/bsp"
	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/object"
)

func identity() linear.M4 {
	var m linear.M4
	m.I()
	return m
}

func translation(x, y, z float32) linear.M4 {
	m := identity()
	m[3][0], m[3][1], m[3][2] = x, y, z
	return m
}

func quad(database *db.Database) *object.PolyMesh {
	positions := []linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	indices := []int32{0, 1, 2, 1, 3, 2}
	return object.NewPolyMesh(database, positions, nil, indices, 64)
}

func TestBuildTessellatedAndNearest(t *testing.T) {
	database := db.New(nil)
	mesh := quad(database)

	worldToObject := translation(-5, 0, 0)
	inst := &Instance{
		Elem:          mesh,
		Job:           mesh.WholeMeshJob(),
		ObjectToWorld: translation(5, 0, 0),
		WorldToObject: worldToObject,
	}

	s, err := BuildTessellated([]*Instance{inst})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.tessels) == 0 {
		t.Fatal("expected at least one tessellation")
	}

	ray := &bsp.Ray{
		Org:    linear.V3{5.25, 0.25, 1},
		Dir:    linear.V3{0, 0, -1},
		InvDir: linear.V3{1e30, 1e30, -1},
		TMin:   0,
		TMax:   1e30,
	}
	hit, ok := s.Nearest(ray)
	if !ok {
		t.Fatal("expected a hit on the translated quad")
	}
	if hit.Instance != inst {
		t.Fatal("hit reports wrong instance")
	}
	if hit.T <= 0 || hit.T > 2 {
		t.Fatalf("unexpected hit distance %v", hit.T)
	}
}

func TestNearestMissesWhenRayClearsInstance(t *testing.T) {
	database := db.New(nil)
	mesh := quad(database)
	inst := &Instance{
		Elem:          mesh,
		Job:           mesh.WholeMeshJob(),
		ObjectToWorld: identity(),
		WorldToObject: identity(),
	}
	s, err := BuildTessellated([]*Instance{inst})
	if err != nil {
		t.Fatal(err)
	}
	ray := &bsp.Ray{
		Org:    linear.V3{100, 100, 1},
		Dir:    linear.V3{0, 0, -1},
		InvDir: linear.V3{1e30, 1e30, -1},
		TMin:   0,
		TMax:   1e30,
	}
	if _, ok := s.Nearest(ray); ok {
		t.Fatal("expected no hit far from the instance")
	}
}

func TestBuildTessellatedRejectsEmptyInstanceList(t *testing.T) {
	if _, err := BuildTessellated(nil); err != ErrNoInstances {
		t.Fatalf("got %v, want ErrNoInstances", err)
	}
}
