package state

import (
	"github.com/elvishrender/core/linear"
	"github.com/elvishrender/core/node"
)

// GetPrimVar implements shade.PrimVarSource: it resolves name against
// the current hit's tessellation, trying Vertex-class interpolation
// first and falling back to Varying-class, matching how a shader
// parameter with no incoming edge is resolved against the surface
// it's shading.
func (s *State) GetPrimVar(name string, kind node.Kind) ([]byte, bool) {
	if !s.hit || s.Hit.Tessel == nil {
		return nil, false
	}
	t := s.Hit.Tessel
	if data, ok := t.InterpVertex(name, s.Hit.Triangle, s.Hit.Bary); ok {
		return data, true
	}
	if data, ok := t.InterpVarying(name, s.Hit.Triangle, s.Hit.Bary); ok {
		return data, true
	}
	return nil, false
}

// PerturbUV implements shade.DerivativeState: it nudges the current
// hit's (u, v) by (du, dv), recomputes the shading position along the
// surface's partial derivatives, and returns a closure that restores
// the unperturbed state. Call.UV uses this to estimate du/dv-axis
// derivatives by forward difference.
func (s *State) PerturbUV(du, dv float32) func() {
	origU, origV := s.Diff.U, s.Diff.V
	origP := s.Diff.P

	s.Diff.U += du
	s.Diff.V += dv
	var delta linear.V3
	delta.Scale(du, &s.Diff.DPdu)
	s.Diff.P.Add(&s.Diff.P, &delta)
	delta.Scale(dv, &s.Diff.DPdv)
	s.Diff.P.Add(&s.Diff.P, &delta)

	return func() {
		s.Diff.U, s.Diff.V = origU, origV
		s.Diff.P = origP
	}
}

// PerturbXY implements shade.DerivativeState for raster-space
// derivatives, used by Call.XY to estimate screen-space derivatives
// for filtering (e.g. texture-space footprint).
func (s *State) PerturbXY(dx, dy float32) func() {
	origU, origV := s.Diff.U, s.Diff.V
	origP := s.Diff.P

	s.Diff.U += dx * s.Diff.DU
	s.Diff.V += dy * s.Diff.DV
	var delta linear.V3
	delta.Scale(dx*s.Diff.DU, &s.Diff.DPdu)
	s.Diff.P.Add(&s.Diff.P, &delta)
	delta.Scale(dy*s.Diff.DV, &s.Diff.DPdv)
	s.Diff.P.Add(&s.Diff.P, &delta)

	return func() {
		s.Diff.U, s.Diff.V = origU, origV
		s.Diff.P = origP
	}
}
