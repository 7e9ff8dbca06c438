package photon

import (
	"github.com/elvishrender/core/linear"
)

// Outcome is the Russian-roulette decision made at a photon/surface
// interaction, eiRoulette's outcome set.
type Outcome int

// Outcomes a Material's Scatter may return.
const (
	Absorb Outcome = iota
	DiffuseReflect
	SpecularReflect
	SpecularTransmit
	Transparent
)

// Hit describes one photon/surface interaction, the minimal subset of
// state.State a Scatter decision needs.
type Hit struct {
	P        linear.V3 // world-space hit point
	N        linear.V3 // shading normal, facing the incoming photon
	Incoming linear.V3 // normalized incoming direction (photon travel direction, not pointing-back)
}

// Material decides a photon's fate at a hit, standing in for the
// scene's photon-shader list: given the hit and the photon's current
// power, it draws the Russian-roulette outcome from xi (a uniform
// random number in [0, 1)) and, for any non-absorbing outcome,
// returns the new direction and the power scaled for that event (the
// unbiased estimator divides the reflectance by the outcome's
// selection probability, so the caller needs no further scaling).
type Material interface {
	Scatter(hit Hit, power [3]float32, xi float32, u1, u2 float32) (outcome Outcome, dir linear.V3, newPower [3]float32)
}

// Tracer finds the nearest surface hit along a ray, returning ok=false
// on a miss. It is the photon package's sole dependency on scene
// traversal, kept abstract so this package never imports scene or
// bsp directly.
type Tracer func(org, dir linear.V3) (hit Hit, mat Material, dist float32, ok bool)

// Light samples one photon's origin, direction and initial power from
// an emitter, eiEmitter's role.
type Light interface {
	Emit(u1, u2, u3, u4 float32) (org, dir linear.V3, power [3]float32)
}

// ShootConfig bounds a shoot pass.
type ShootConfig struct {
	MaxBounces int
	MaxDist    float32
}

// DefaultShootConfig returns production shoot defaults.
func DefaultShootConfig() ShootConfig {
	return ShootConfig{MaxBounces: 12, MaxDist: 1e30}
}

// Shoot traces numPhotons emissions from lights through trace,
// storing a Record at every diffuse-reflect (or absorbing) hit in m,
// stopping a path early on Absorb, on exceeding cfg.MaxBounces, or
// once m is Full. It does not call Balance; the caller does that once
// after every light's photons (or the whole pass) have been shot.
func Shoot(m *Map, lights []Light, trace Tracer, cfg ShootConfig, numPhotons int, rnd func(i, dim int) float32) {
	if len(lights) == 0 {
		return
	}
	perLight := numPhotons / len(lights)

	for li, light := range lights {
		for i := 0; i < perLight; i++ {
			if m.Full() {
				return
			}
			idx := li*perLight + i
			org, dir, power := light.Emit(
				rnd(idx, 0), rnd(idx, 1), rnd(idx, 2), rnd(idx, 3),
			)
			shootPath(m, trace, cfg, org, dir, power, idx, rnd)
		}
	}
}

func shootPath(m *Map, trace Tracer, cfg ShootConfig, org, dir linear.V3, power [3]float32, idx int, rnd func(i, dim int) float32) {
	for bounce := 0; bounce < cfg.MaxBounces; bounce++ {
		if m.Full() {
			return
		}

		hit, mat, dist, ok := trace(org, dir)
		if !ok || dist > cfg.MaxDist {
			return
		}

		dim := 4 + bounce*3
		xi := rnd(idx, dim)
		u1 := rnd(idx, dim+1)
		u2 := rnd(idx, dim+2)

		outcome, newDir, newPower := mat.Scatter(hit, power, xi, u1, u2)

		switch outcome {
		case Absorb:
			_ = m.Store(Record{Pos: hit.P, Dir: scale(hit.Incoming, -1), Power: power})
			return
		case DiffuseReflect:
			_ = m.Store(Record{Pos: hit.P, Dir: scale(hit.Incoming, -1), Power: power})
			org, dir, power = hit.P, newDir, newPower
		case SpecularReflect, SpecularTransmit, Transparent:
			org, dir, power = hit.P, newDir, newPower
		}
	}
}

func scale(v linear.V3, s float32) linear.V3 {
	var out linear.V3
	out.Scale(s, &v)
	return out
}
