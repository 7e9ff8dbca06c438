package shade

import "github.com/elvishrender/core/node"

// paramFlags tracks the two per-parameter bits from spec.md §4.3:
// graph-cached (evaluated earlier in this invocation) and
// local-cached (the shader body itself has since touched the working
// copy, so it must not be re-derived from the graph cache).
type paramFlags struct {
	graphCached bool
	localCached bool
}

type instanceTLS struct {
	called bool
	result []byte
}

// Cache is a single shader-graph invocation's scratch memory: one
// instance_tls header plus a graph-cache and local-cache parameter
// block per reachable instance. It stands in for the "stack-allocate
// a shader cache of size shader_cache_size + header" step; in Go the
// allocation is a normal (GC-managed) one rather than a literal
// stack frame, but its lifetime is still scoped to a single Call.
type Cache struct {
	table   *Table
	reg     *node.Registry
	tls     []instanceTLS
	graph   [][]byte
	local   [][]byte
	flags   [][]paramFlags
	working [][]byte

	// CacheEnabled mirrors the shader-graph-wide cache flag; a root
	// shader evaluated with it false behaves as if every call were
	// call/call_uv/call_xy (always re-executed).
	CacheEnabled bool
}

// NewCache allocates a Cache for table. CacheEnabled defaults to
// true.
func NewCache(reg *node.Registry, table *Table) (*Cache, error) {
	n := table.Len()
	c := &Cache{
		table:        table,
		reg:          reg,
		tls:          make([]instanceTLS, n),
		graph:        make([][]byte, n),
		local:        make([][]byte, n),
		flags:        make([][]paramFlags, n),
		working:      make([][]byte, n),
		CacheEnabled: true,
	}
	for i := 0; i < n; i++ {
		id := table.At(i)
		block, err := reg.ReadBlock(id)
		if err != nil {
			return nil, err
		}
		c.graph[i] = make([]byte, len(block))
		c.local[i] = make([]byte, len(block))
		params, err := reg.Params(id)
		if err != nil {
			return nil, err
		}
		c.flags[i] = make([]paramFlags, len(params))
	}
	return c, nil
}
