// Package node implements the renderer's node system: named node
// descriptors carrying typed parameters, and node instances whose
// parameters may be linked edge-wise to output parameters of other
// node instances. Shader graphs (package shade) are a
// specialization of this dataflow model.
package node

import (
	"errors"
	"sync"
)

const nodePrefix = "node: "

func newNodeErr(reason string) error { return errors.New(nodePrefix + reason) }

// Errors returned by this package.
var (
	ErrEditing      = newNodeErr("operation invalid while editing")
	ErrNotEditing   = newNodeErr("no edit in progress")
	ErrUnknownParam = newNodeErr("unknown parameter name")
	ErrBadSize      = newNodeErr("value size does not match parameter size")
	ErrNotFinal     = newNodeErr("source instance has not finished editing")
	ErrBadDesc      = newNodeErr("descriptor does not exist")
)

// StorageClass is the interpolation class of a parameter.
type StorageClass int

// Storage classes, per spec.md §3.
const (
	Constant StorageClass = iota
	Uniform
	Varying
	Vertex
)

// Kind is the scalar/vector type of a parameter's value.
type Kind int

// Parameter kinds.
const (
	Int Kind = iota
	Float
	Bool
	Vector3
	Vector4
	Color
	Matrix4
	String
	Pointer
)

// Size returns the byte size of one value of kind k.
func (k Kind) Size() int {
	switch k {
	case Int, Float:
		return 4
	case Bool:
		return 1
	case Vector3, Color:
		return 12
	case Vector4:
		return 16
	case Matrix4:
		return 64
	case String, Pointer:
		return 8
	default:
		panic("node: unknown Kind")
	}
}

// ParamDesc describes one parameter of a node descriptor.
type ParamDesc struct {
	Name          string
	Class         StorageClass
	Kind          Kind
	ChannelOffset int
	ChannelDim    int
	Offset        int // byte offset into the instance's parameter block
	Size          int // byte size (Kind.Size(), or Kind.Size()*ChannelDim for Vertex-class arrays)
	Default       []byte
}

// Desc is a node descriptor: a name and an ordered list of typed
// parameters.
type Desc struct {
	Name      string
	Params    []ParamDesc
	BlockSize int
}

// Index returns the index of the parameter named name, or -1.
func (d *Desc) Index(name string) int {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return i
		}
	}
	return -1
}

// DescID identifies a Desc in a Registry's global desc table.
type DescID int

// NilDesc is the reserved invalid DescID.
const NilDesc DescID = 0

var descTable struct {
	sync.RWMutex
	descs []Desc // descs[0] is a sentinel for NilDesc
}

func init() {
	descTable.descs = make([]Desc, 1)
}

// DescEditor accumulates parameters for a not-yet-installed Desc.
// Create one with BeginDesc; parameters added before End are not
// visible to any Registry.
type DescEditor struct {
	name   string
	params []ParamDesc
	offset int
}

// BeginDesc starts editing a new node descriptor named name.
func BeginDesc(name string) *DescEditor {
	return &DescEditor{name: name}
}

// AddParam appends a parameter to the descriptor under
// construction. def, if non-nil, must be Kind.Size() (or
// Kind.Size()*channelDim for a Vertex-class parameter, which is
// stored per-vertex-channel) bytes long and becomes the parameter's
// default value; a nil def is zero-filled.
func (e *DescEditor) AddParam(name string, class StorageClass, kind Kind, channelDim int, def []byte) error {
	n := 1
	if class == Vertex && channelDim > 0 {
		n = channelDim
	}
	size := kind.Size() * n
	if def == nil {
		def = make([]byte, size)
	} else if len(def) != size {
		return ErrBadSize
	}
	e.params = append(e.params, ParamDesc{
		Name:       name,
		Class:      class,
		Kind:       kind,
		ChannelDim: channelDim,
		Offset:     e.offset,
		Size:       size,
		Default:    append([]byte(nil), def...),
	})
	e.offset += size
	return nil
}

// End installs the descriptor into the global desc table and
// returns its DescID.
func (e *DescEditor) End() DescID {
	d := Desc{Name: e.name, Params: e.params, BlockSize: e.offset}
	descTable.Lock()
	defer descTable.Unlock()
	descTable.descs = append(descTable.descs, d)
	return DescID(len(descTable.descs) - 1)
}

// Describe returns the Desc installed under id.
func Describe(id DescID) (*Desc, error) {
	descTable.RLock()
	defer descTable.RUnlock()
	if id <= NilDesc || int(id) >= len(descTable.descs) {
		return nil, ErrBadDesc
	}
	d := descTable.descs[id]
	return &d, nil
}
