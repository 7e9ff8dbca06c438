package node

import (
	"sync"

	"github.com/elvishrender/core/internal/bitm"
)

// InstanceID identifies a node instance within a Registry.
// Indices stored in a Registry can be derived by decrementing
// InstanceID values by 1, mirroring the teacher's node.Graph arena.
type InstanceID int

// Nil is the reserved invalid InstanceID.
const Nil InstanceID = 0

// edge records that a parameter's value is sourced from another
// instance's output rather than from the instance's own parameter
// block.
type edge struct {
	linked   bool
	src      InstanceID
	srcParam int
}

// inst is one node instance's storage.
type inst struct {
	name      string
	desc      DescID
	params    []ParamDesc // desc.Params followed by any declared extensions
	block     []byte      // parameter block, sized to sum of params[i].Size
	edges     []edge
	symtab    map[string]int
	timestamp uint64
	shader    any // cached pointer to the associated shader object; opaque here
	editing   bool
	live      bool
}

// Registry is an arena of node instances. The zero value is not
// usable; construct one with NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	insts   []inst
	instMap bitm.Bitm[uint32]
	clock   uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) alloc() InstanceID {
	if r.instMap.Rem() == 0 {
		switch x := r.instMap.Len(); {
		case x > 0:
			cnt := 1 + (x-31)/32
			r.insts = append(r.insts, make([]inst, x)...)
			r.instMap.Grow(cnt)
		default:
			r.insts = append(r.insts, make([]inst, 32)...)
			r.instMap.Grow(1)
		}
	}
	idx, _ := r.instMap.Search()
	r.instMap.Set(idx)
	return InstanceID(idx + 1)
}

func (r *Registry) at(id InstanceID) *inst {
	idx := int(id) - 1
	if idx < 0 || idx >= len(r.insts) || !r.insts[idx].live {
		return nil
	}
	return &r.insts[idx]
}

// Editor accumulates edits to a single node instance between
// BeginInstance and End. A cycle in the parameter dataflow graph is
// impossible by construction: LinkParameter can only name an
// InstanceID that a prior Editor.End has already returned, so an
// instance can never link to itself or to another instance still
// under construction.
type Editor struct {
	r  *Registry
	id InstanceID
}

// BeginInstance allocates a new instance of desc named name and
// returns an Editor for it. The parameter block is initialized from
// desc's defaults.
func (r *Registry) BeginInstance(desc DescID, name string) (*Editor, error) {
	d, err := Describe(desc)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	id := r.alloc()
	idx := int(id) - 1

	params := append([]ParamDesc(nil), d.Params...)
	block := make([]byte, d.BlockSize)
	for _, p := range params {
		copy(block[p.Offset:p.Offset+p.Size], p.Default)
	}

	r.insts[idx] = inst{
		name:    name,
		desc:    desc,
		params:  params,
		block:   block,
		edges:   make([]edge, len(params)),
		editing: true,
		live:    true,
	}
	r.mu.Unlock()

	return &Editor{r: r, id: id}, nil
}

// ID returns the instance being edited.
func (e *Editor) ID() InstanceID { return e.id }

func (e *Editor) locked() *inst {
	n := e.r.at(e.id)
	if n == nil || !n.editing {
		panic("node: Editor used after End")
	}
	return n
}

// SetParameter overwrites the constant-block bytes of the named
// parameter and clears any edge linking it to another instance's
// output.
func (e *Editor) SetParameter(name string, val []byte) error {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	n := e.locked()
	i := indexOf(n.params, name)
	if i < 0 {
		return ErrUnknownParam
	}
	if len(val) != n.params[i].Size {
		return ErrBadSize
	}
	p := n.params[i]
	copy(n.block[p.Offset:p.Offset+p.Size], val)
	n.edges[i] = edge{}
	return nil
}

// LinkParameter makes the named parameter's value sourced from
// parameter srcParam of instance src. src must already have
// finished editing (its Editor.End must have already run).
func (e *Editor) LinkParameter(name string, src InstanceID, srcParam int) error {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	n := e.locked()
	i := indexOf(n.params, name)
	if i < 0 {
		return ErrUnknownParam
	}
	sn := e.r.at(src)
	if sn == nil {
		return ErrBadDesc
	}
	if sn.editing {
		return ErrNotFinal
	}
	if srcParam < 0 || srcParam >= len(sn.params) {
		return ErrUnknownParam
	}
	n.edges[i] = edge{linked: true, src: src, srcParam: srcParam}
	return nil
}

// UnlinkParameter removes any edge on the named parameter, reverting
// it to reading from the constant block.
func (e *Editor) UnlinkParameter(name string) error {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	n := e.locked()
	i := indexOf(n.params, name)
	if i < 0 {
		return ErrUnknownParam
	}
	n.edges[i] = edge{}
	return nil
}

// DeclareParameter extends the instance with a per-instance
// parameter not present on its descriptor ("user data").
func (e *Editor) DeclareParameter(p ParamDesc) error {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	n := e.locked()
	if indexOf(n.params, p.Name) >= 0 {
		return newNodeErr("parameter already declared: " + p.Name)
	}
	p.Offset = len(n.block)
	if p.Size == 0 {
		p.Size = p.Kind.Size()
	}
	n.params = append(n.params, p)
	n.block = append(n.block, make([]byte, p.Size)...)
	if p.Default != nil {
		copy(n.block[p.Offset:p.Offset+p.Size], p.Default)
	}
	n.edges = append(n.edges, edge{})
	return nil
}

// End finalizes the instance: it rebuilds the name→index symbol
// table and bumps the instance's modification timestamp.
func (e *Editor) End() (InstanceID, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	n := e.locked()
	n.symtab = make(map[string]int, len(n.params))
	for i, p := range n.params {
		n.symtab[p.Name] = i
	}
	e.r.clock++
	n.timestamp = e.r.clock
	n.editing = false
	return e.id, nil
}

func indexOf(params []ParamDesc, name string) int {
	for i := range params {
		if params[i].Name == name {
			return i
		}
	}
	return -1
}

// GetParameter returns a copy of the constant-block bytes for the
// named parameter. It is an error to call this while the instance is
// being edited.
func (r *Registry) GetParameter(id InstanceID, name string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return nil, ErrBadDesc
	}
	if n.editing {
		return nil, ErrEditing
	}
	i, ok := n.symtab[name]
	if !ok {
		return nil, ErrUnknownParam
	}
	p := n.params[i]
	out := make([]byte, p.Size)
	copy(out, n.block[p.Offset:p.Offset+p.Size])
	return out, nil
}

// ReadParameter returns the descriptor of the i-th parameter.
func (r *Registry) ReadParameter(id InstanceID, i int) (ParamDesc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return ParamDesc{}, ErrBadDesc
	}
	if n.editing {
		return ParamDesc{}, ErrEditing
	}
	if i < 0 || i >= len(n.params) {
		return ParamDesc{}, ErrUnknownParam
	}
	return n.params[i], nil
}

// LookupParameter returns the index of the named parameter.
func (r *Registry) LookupParameter(id InstanceID, name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return -1, ErrBadDesc
	}
	if n.editing {
		return -1, ErrEditing
	}
	i, ok := n.symtab[name]
	if !ok {
		return -1, ErrUnknownParam
	}
	return i, nil
}

// Edge describes a parameter's data source, if any.
type Edge struct {
	Linked   bool
	Src      InstanceID
	SrcParam int
}

// ParameterEdge returns the i-th parameter's edge info.
func (r *Registry) ParameterEdge(id InstanceID, i int) (Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return Edge{}, ErrBadDesc
	}
	if i < 0 || i >= len(n.edges) {
		return Edge{}, ErrUnknownParam
	}
	e := n.edges[i]
	return Edge{Linked: e.linked, Src: e.src, SrcParam: e.srcParam}, nil
}

// NumParameters returns the number of parameters on instance id.
func (r *Registry) NumParameters(id InstanceID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return 0
	}
	return len(n.params)
}

// Timestamp returns id's last modification timestamp, used by
// callers (e.g. shade) to decide whether a cached derivative of the
// instance's graph must be regenerated.
func (r *Registry) Timestamp(id InstanceID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return 0
	}
	return n.timestamp
}

// SetShader attaches an opaque cached shader-object pointer to id,
// as computed by package shade.
func (r *Registry) SetShader(id InstanceID, shader any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := r.at(id); n != nil {
		n.shader = shader
	}
}

// Shader returns id's cached shader-object pointer, or nil.
func (r *Registry) Shader(id InstanceID) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return nil
	}
	return n.shader
}

// ReadBlock returns a copy of id's entire stable parameter block, in
// descriptor-defined byte layout. Package shade uses this to seed a
// shader invocation's working parameter slice.
func (r *Registry) ReadBlock(id InstanceID) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return nil, ErrBadDesc
	}
	if n.editing {
		return nil, ErrEditing
	}
	out := make([]byte, len(n.block))
	copy(out, n.block)
	return out, nil
}

// Params returns a copy of id's parameter descriptor list (desc
// parameters followed by any declared extensions).
func (r *Registry) Params(id InstanceID) ([]ParamDesc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return nil, ErrBadDesc
	}
	if n.editing {
		return nil, ErrEditing
	}
	return append([]ParamDesc(nil), n.params...), nil
}

// Name returns id's instance name.
func (r *Registry) Name(id InstanceID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return ""
	}
	return n.name
}

// Desc returns id's descriptor id.
func (r *Registry) Desc(id InstanceID) DescID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.at(id)
	if n == nil {
		return NilDesc
	}
	return n.desc
}
