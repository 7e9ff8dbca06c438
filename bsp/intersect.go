package bsp

import "github.com/elvishrender/core/linear"

// IntersectTriangle implements the Moller-Trumbore ray/triangle test.
// It rejects near-degenerate determinants using DistanceTol, matching
// spec.md's tolerance against grazing and coplanar rays.
func IntersectTriangle(org, dir, v0, v1, v2 linear.V3) (t, u, v float32, ok bool) {
	var e1, e2 linear.V3
	e1.Sub(&v1, &v0)
	e2.Sub(&v2, &v0)

	var pvec linear.V3
	pvec.Cross(&dir, &e2)
	det := e1.Dot(&pvec)
	if det > -DistanceTol && det < DistanceTol {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	var tvec linear.V3
	tvec.Sub(&org, &v0)
	u = tvec.Dot(&pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	var qvec linear.V3
	qvec.Cross(&tvec, &e1)
	v = dir.Dot(&qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(&qvec) * invDet
	return t, u, v, true
}
