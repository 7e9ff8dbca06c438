package shade

import (
	"sync"

	"github.com/elvishrender/core/node"
)

// Plugin is a shader's native implementation, invoked by Call/CallUV/
// CallXY once per graph-cache miss. result is the instance's return
// value buffer (ResultSize bytes, a Color); c gives the plugin access
// to its own parameters and to the current hit state.
type Plugin func(result []byte, c *Context) error

// ResultSize is the byte size of a shader's return value. Every
// shader in a graph returns a Color; a plugin that models a
// different quantity (e.g. a displacement shader's Vector3) packs it
// into the low bytes of the same buffer.
const ResultSize = 12 // node.Color.Size()

// PrimVarSource binds a shader parameter name to a primitive
// variable on the current hit, for parameters with no incoming edge
// and a Varying or Vertex storage class. It is implemented by
// whichever package owns the current shading point (object, state).
type PrimVarSource interface {
	GetPrimVar(name string, kind node.Kind) ([]byte, bool)
}

// DerivativeState lets Call.UV and Call.XY perturb the current hit's
// parametric or raster coordinates and restore them afterward. It is
// implemented by package state.
type DerivativeState interface {
	PerturbUV(du, dv float32) (restore func())
	PerturbXY(dx, dy float32) (restore func())
}

var plugins struct {
	sync.RWMutex
	byInstance map[node.InstanceID]Plugin
}

func init() { plugins.byInstance = make(map[node.InstanceID]Plugin) }

// Bind associates a plugin implementation with a finalized node
// instance. A shader graph's Call looks up a plugin this way rather
// than through the node package's generic Registry.Shader cache slot,
// which is reserved for a compiled closure, not the raw plugin.
func Bind(id node.InstanceID, p Plugin) { plugins.Lock(); plugins.byInstance[id] = p; plugins.Unlock() }

// Unbind removes any plugin associated with id.
func Unbind(id node.InstanceID) { plugins.Lock(); delete(plugins.byInstance, id); plugins.Unlock() }

func lookupPlugin(id node.InstanceID) (Plugin, bool) {
	plugins.RLock()
	defer plugins.RUnlock()
	p, ok := plugins.byInstance[id]
	return p, ok
}
