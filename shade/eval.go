package shade

import "github.com/elvishrender/core/node"

// Context is passed to a Plugin's invocation. It exposes the
// plugin's own parameters, resolved on demand, and the hit-binding
// source for any Varying/Vertex parameter without an incoming edge.
type Context struct {
	cache *Cache
	idx   int
	id    node.InstanceID
	prim  PrimVarSource
}

// Instance returns the node instance currently being shaded.
func (c *Context) Instance() node.InstanceID { return c.id }

// Param resolves and returns parameter i of the current instance.
// The returned slice aliases the Context's working storage and is
// only valid until the next call into the same Cache.
func (c *Context) Param(i int) ([]byte, error) {
	return resolveParam(c.cache, c.idx, i, c.prim)
}

// ParamByName resolves the named parameter.
func (c *Context) ParamByName(name string) ([]byte, error) {
	i, err := c.cache.reg.LookupParameter(c.id, name)
	if err != nil {
		return nil, err
	}
	return c.Param(i)
}

// Call evaluates root's shader graph into result, applying the
// graph-level memoization described in spec.md §4.3: a second Call
// of the same root against the same Cache returns the cached result
// without re-executing the plugin, provided cache.CacheEnabled.
func Call(cache *Cache, root node.InstanceID, result []byte, prim PrimVarSource) error {
	idx, ok := cache.table.IndexOf(root)
	if !ok {
		return ErrNotReachable
	}
	tls := &cache.tls[idx]
	if tls.called && cache.CacheEnabled {
		copy(result, tls.result)
		return nil
	}
	if err := invoke(cache, idx, root, result, prim); err != nil {
		return err
	}
	if cache.CacheEnabled {
		tls.called = true
		tls.result = append(tls.result[:0], result...)
	}
	return nil
}

func invoke(cache *Cache, idx int, root node.InstanceID, result []byte, prim PrimVarSource) error {
	plugin, ok := lookupPlugin(root)
	if !ok {
		return ErrNoPlugin
	}
	if cache.working[idx] == nil {
		block, err := cache.reg.ReadBlock(root)
		if err != nil {
			return err
		}
		cache.working[idx] = append([]byte(nil), block...)
	}
	ctx := &Context{cache: cache, idx: idx, id: root, prim: prim}
	return plugin(result, ctx)
}

// CallForced re-executes root's plugin unconditionally, ignoring any
// memoized result for root. Parameters the plugin resolves still go
// through the graph cache exactly as under Call. Call.UV and Call.XY
// build derivative estimates on top of this.
func CallForced(cache *Cache, root node.InstanceID, result []byte, prim PrimVarSource) error {
	idx, ok := cache.table.IndexOf(root)
	if !ok {
		return ErrNotReachable
	}
	return invoke(cache, idx, root, result, prim)
}

// Derivatives holds a shader's value at the hit plus two forward
// differences, used by shaders that need screen-space or
// surface-parametric derivatives (e.g. for texture filtering).
type Derivatives struct {
	Base, D0, D1 []byte
}

// CallUV evaluates root three times with (u,v) perturbed by
// DerivativeStep along each axis in turn, per spec.md §4.3's
// "distinguished non-caching evaluation path".
func CallUV(cache *Cache, root node.InstanceID, prim PrimVarSource, st DerivativeState) (Derivatives, error) {
	return callDeriv(cache, root, prim, st.PerturbUV)
}

// CallXY is CallUV's raster-space counterpart.
func CallXY(cache *Cache, root node.InstanceID, prim PrimVarSource, st DerivativeState) (Derivatives, error) {
	return callDeriv(cache, root, prim, st.PerturbXY)
}

func callDeriv(cache *Cache, root node.InstanceID, prim PrimVarSource, perturb func(d0, d1 float32) func()) (Derivatives, error) {
	base := make([]byte, ResultSize)
	if err := CallForced(cache, root, base, prim); err != nil {
		return Derivatives{}, err
	}

	d0 := make([]byte, ResultSize)
	restore := perturb(DerivativeStep, 0)
	err := CallForced(cache, root, d0, prim)
	restore()
	if err != nil {
		return Derivatives{}, err
	}

	d1 := make([]byte, ResultSize)
	restore = perturb(0, DerivativeStep)
	err = CallForced(cache, root, d1, prim)
	restore()
	if err != nil {
		return Derivatives{}, err
	}

	return Derivatives{Base: base, D0: d0, D1: d1}, nil
}

// resolveParam implements the per-parameter evaluation rules from
// spec.md §4.3.
func resolveParam(cache *Cache, idx, i int, prim PrimVarSource) ([]byte, error) {
	id := cache.table.At(idx)
	params, err := cache.reg.Params(id)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(params) {
		return nil, node.ErrUnknownParam
	}
	p := params[i]
	flags := &cache.flags[idx][i]
	working := cache.working[idx]
	if working == nil {
		block, err := cache.reg.ReadBlock(id)
		if err != nil {
			return nil, err
		}
		working = append([]byte(nil), block...)
		cache.working[idx] = working
	}
	dst := working[p.Offset : p.Offset+p.Size]

	if flags.graphCached {
		copy(dst, cache.graph[idx][p.Offset:p.Offset+p.Size])
		return dst, nil
	}

	var resolved []byte
	edge, err := cache.reg.ParameterEdge(id, i)
	if err != nil {
		return nil, err
	}

	switch {
	case edge.Linked:
		resolved, err = resolveFromEdge(cache, p, edge, prim)
		if err != nil {
			return nil, err
		}
	case p.Class == node.Varying || p.Class == node.Vertex:
		if prim != nil {
			if v, ok := prim.GetPrimVar(p.Name, p.Kind); ok {
				resolved = make([]byte, p.Size)
				cast(p.Kind, p.Kind, resolved, v)
			}
		}
		if resolved == nil {
			block, err := cache.reg.ReadBlock(id)
			if err != nil {
				return nil, err
			}
			resolved = append([]byte(nil), block[p.Offset:p.Offset+p.Size]...)
		}
	default:
		block, err := cache.reg.ReadBlock(id)
		if err != nil {
			return nil, err
		}
		resolved = append([]byte(nil), block[p.Offset:p.Offset+p.Size]...)
	}

	copy(dst, resolved)
	if cache.CacheEnabled {
		copy(cache.graph[idx][p.Offset:p.Offset+p.Size], resolved)
		flags.graphCached = true
		flags.localCached = true
	}
	return dst, nil
}

func resolveFromEdge(cache *Cache, p node.ParamDesc, e node.Edge, prim PrimVarSource) ([]byte, error) {
	srcIdx, ok := cache.table.IndexOf(e.Src)
	if !ok {
		return nil, ErrNotReachable
	}
	srcParams, err := cache.reg.Params(e.Src)
	if err != nil {
		return nil, err
	}
	if e.SrcParam < 0 || e.SrcParam >= len(srcParams) {
		return nil, node.ErrUnknownParam
	}

	if cache.working[srcIdx] == nil {
		tmp := make([]byte, ResultSize)
		if err := Call(cache, e.Src, tmp, prim); err != nil {
			return nil, err
		}
	}
	sp := srcParams[e.SrcParam]
	srcWorking := cache.working[srcIdx]

	out := make([]byte, p.Size)
	cast(p.Kind, sp.Kind, out, srcWorking[sp.Offset:sp.Offset+sp.Size])
	return out, nil
}

// cast copies src into dst, truncating or zero-extending on a kind
// mismatch. This is the value-level analogue of db.Database.Cast's
// byteswap-aware record copy: node parameters are small, in-process
// values, so no endianness conversion applies here.
func cast(dstKind, srcKind node.Kind, dst, src []byte) {
	if dstKind == srcKind {
		copy(dst, src)
		return
	}
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst, src[:n])
}
