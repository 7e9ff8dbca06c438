package object

import (
	"encoding/binary"
	"sync"

	"github.com/elvishrender/core/bsp"
	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
)

var (
	subbspTypeOnce sync.Once
	subbspType     db.Type
)

var subbspJobs = struct {
	mu       sync.Mutex
	pending  map[db.Tag]*Tessel
	resolved map[db.Tag]*Tessel
}{pending: make(map[db.Tag]*Tessel), resolved: make(map[db.Tag]*Tessel)}

// SubBSPType registers (once per process) the database type used for
// a tessellation's lazily built sub-BSP, analogous to spec.md's
// generate_ray_subtree: a leaf of the top-level scene BSP hands off
// to its tessellation's own sub-BSP, built only the first time a
// traversal actually reaches that leaf.
func SubBSPType() db.Type {
	subbspTypeOnce.Do(func() {
		subbspType = db.Register(db.TypeDesc{
			Name:     "object.subBSP",
			Generate: generateSubBSP,
		})
	})
	return subbspType
}

// CreateSubBSP allocates a deferred record for placeholder's sub-BSP
// and points placeholder.BSPTag at it. The tree itself, and
// placeholder's real triangle data, are produced lazily by
// generateSubBSP the first time a traversal calls db.Access(tag).
func CreateSubBSP(database *db.Database, placeholder *Tessel) db.Tag {
	typ := SubBSPType()
	tag := database.CreateDeferred(typ, 0)
	subbspJobs.mu.Lock()
	subbspJobs.pending[tag] = placeholder
	subbspJobs.mu.Unlock()
	placeholder.BSPTag = tag
	return tag
}

// ResolvedTessel returns the fully-diced Tessel backing tag, once
// generateSubBSP has run. It is nil until then.
func ResolvedTessel(tag db.Tag) (*Tessel, bool) {
	subbspJobs.mu.Lock()
	defer subbspJobs.mu.Unlock()
	t, ok := subbspJobs.resolved[tag]
	return t, ok
}

func generateSubBSP(tag db.Tag) ([]byte, error) {
	subbspJobs.mu.Lock()
	placeholder, ok := subbspJobs.pending[tag]
	subbspJobs.mu.Unlock()
	if !ok {
		return nil, ErrNoElement
	}

	resolved, err := Resolve(placeholder)
	if err != nil {
		return nil, err
	}

	prims := make([]bsp.Primitive, len(resolved.Triangles))
	for i, tr := range resolved.Triangles {
		box := linear.EmptyBox3()
		box.Extend(&resolved.Positions[tr.V0])
		box.Extend(&resolved.Positions[tr.V1])
		box.Extend(&resolved.Positions[tr.V2])
		prims[i] = bsp.Primitive{Box: box, Cost: 1}
	}
	tree := bsp.Build(prims, bsp.DefaultOptions())

	subbspJobs.mu.Lock()
	subbspJobs.resolved[tag] = resolved
	delete(subbspJobs.pending, tag)
	subbspJobs.mu.Unlock()

	return encodeTree(tree), nil
}

// DecodeSubBSP reconstructs the bsp.Tree serialized by generateSubBSP.
func DecodeSubBSP(buf []byte) *bsp.Tree {
	return decodeTree(buf)
}

func encodeTree(t *bsp.Tree) []byte {
	buf := make([]byte, 0, 8+len(t.Nodes)*8+4)
	var tmp [8]byte

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(t.Nodes)))
	buf = append(buf, tmp[:4]...)
	for _, n := range t.Nodes {
		binary.LittleEndian.PutUint64(tmp[:8], uint64(n))
		buf = append(buf, tmp[:8]...)
	}

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(t.Leaves)))
	buf = append(buf, tmp[:4]...)
	for _, leaf := range t.Leaves {
		binary.LittleEndian.PutUint32(tmp[:4], uint32(len(leaf)))
		buf = append(buf, tmp[:4]...)
		for _, p := range leaf {
			binary.LittleEndian.PutUint32(tmp[:4], uint32(p))
			buf = append(buf, tmp[:4]...)
		}
	}
	return buf
}

func decodeTree(buf []byte) *bsp.Tree {
	t := &bsp.Tree{}
	off := 0
	nNodes := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	t.Nodes = make([]bsp.Node, nNodes)
	for i := range t.Nodes {
		t.Nodes[i] = bsp.Node(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
	}
	nLeaves := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	t.Leaves = make([][]int, nLeaves)
	for i := range t.Leaves {
		n := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		leaf := make([]int, n)
		for j := range leaf {
			leaf[j] = int(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		}
		t.Leaves[i] = leaf
	}
	return t
}
