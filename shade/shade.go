// Package shade evaluates shader graphs: trees of node instances
// (package node) whose parameters are recursively resolved through
// parameter edges, primitive-variable bindings, or constant defaults,
// with per-invocation memoization to avoid re-evaluating a shared
// subgraph more than once per shading point.
package shade

import (
	"errors"
)

const shadePrefix = "shade: "

func newShadeErr(reason string) error { return errors.New(shadePrefix + reason) }

// Errors returned by this package.
var (
	ErrNoPlugin     = newShadeErr("instance has no registered shader plugin")
	ErrNotReachable = newShadeErr("instance is not reachable from the shader cache's root")
	ErrCycle        = newShadeErr("parameter edge forms a cycle")
)

// DerivativeStep is the (u,v)/(x,y) perturbation magnitude used by
// Call.UV and Call.XY to estimate parametric derivatives. It has no
// physical meaning beyond "small enough to be locally linear, large
// enough to survive float32 rounding" and is a tunable, not a
// calibrated constant.
const DerivativeStep = 1e-3
