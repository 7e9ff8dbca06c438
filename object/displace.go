package object

import (
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
	"github.com/elvishrender/core/shade"
)

// vertexPrimSource exposes one tessellation vertex's primitive
// variables to a displacement shader's call, implementing
// shade.PrimVarSource.
type vertexPrimSource struct {
	t   *Tessel
	idx int
}

func (s vertexPrimSource) GetPrimVar(name string, kind node.Kind) ([]byte, bool) {
	v, ok := s.t.Vars[name]
	if !ok || v.Class != node.Vertex || v.Kind != kind {
		return nil, false
	}
	return v.at(s.idx), true
}

// CacheBuilder produces a fresh shade.Cache rooted at a shader
// instance, one per displacement-shader call site.
type CacheBuilder func(root node.InstanceID) (*shade.Cache, error)

// Displace implements spec.md §4.4's ei_displace_tessel: it runs each
// shader in shaders, in order, against every vertex of t, using that
// vertex's primitive variables for binding, and adds the shader's
// Vector3 result to the vertex position along its normal (or raw, if
// t carries no normals).
func Displace(t *Tessel, shaders []node.InstanceID, build CacheBuilder) error {
	for _, sh := range shaders {
		for i := range t.Positions {
			cache, err := build(sh)
			if err != nil {
				return err
			}
			prim := vertexPrimSource{t: t, idx: i}
			result := make([]byte, shade.ResultSize)
			if err := shade.Call(cache, sh, result, prim); err != nil {
				return err
			}
			d := decodeV3(result)
			if i < len(t.Normals) {
				height := d.Dot(&t.Normals[i])
				var scaled linear.V3
				scaled.Scale(height, &t.Normals[i])
				t.Positions[i].Add(&t.Positions[i], &scaled)
			} else {
				t.Positions[i].Add(&t.Positions[i], &d)
			}
		}
	}
	return nil
}

func decodeV3(b []byte) linear.V3 {
	return linear.V3{decodeF32(b[0:4]), decodeF32(b[4:8]), decodeF32(b[8:12])}
}
