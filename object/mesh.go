package object

import (
	"encoding/binary"

	"github.com/elvishrender/core/db"
	"github.com/elvishrender/core/linear"
)

// PolyMesh is the object_element implementation for ordinary
// triangulated polygon meshes. A sub-object is a contiguous
// [start, end) range of triangles into the mesh's shared index
// buffer; Create records that range as a database record so that
// dicing and splitting can share a single reference-counted handle
// to it rather than threading the range through the job struct by
// hand (job.Range is still populated, for Split/Create convenience,
// but obj is the record of record once created).
type PolyMesh struct {
	Positions []linear.V3
	Normals   []linear.V3
	Indices   []int32 // 3 per triangle

	// MaxLeafTris bounds how many triangles a sub-object may contain
	// and still be considered Diceable directly.
	MaxLeafTris int

	db  *db.Database
	typ db.Type
}

// NewPolyMesh creates a PolyMesh element backed by d for its
// sub-object range records.
func NewPolyMesh(d *db.Database, positions, normals []linear.V3, indices []int32, maxLeafTris int) *PolyMesh {
	if maxLeafTris <= 0 {
		maxLeafTris = 64
	}
	typ := db.Register(db.TypeDesc{Name: "object.meshRange", ElemSize: 1})
	return &PolyMesh{
		Positions:   positions,
		Normals:     normals,
		Indices:     indices,
		MaxLeafTris: maxLeafTris,
		db:          d,
		typ:         typ,
	}
}

// Create implements Element.
func (m *PolyMesh) Create(job *Job) (db.Tag, error) {
	tag, buf, err := m.db.Create(m.typ, 8, 0)
	if err != nil {
		return db.Nil, err
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(job.Range[0]))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(job.Range[1]))
	if err := m.db.End(tag); err != nil {
		return db.Nil, err
	}
	return tag, nil
}

func (m *PolyMesh) readRange(obj db.Tag) (start, end int, err error) {
	buf, err := m.db.Access(obj)
	if err != nil {
		return 0, 0, err
	}
	defer m.db.End(obj)
	start = int(binary.LittleEndian.Uint32(buf[0:4]))
	end = int(binary.LittleEndian.Uint32(buf[4:8]))
	return start, end, nil
}

// Bound implements Element.
func (m *PolyMesh) Bound(job *Job, obj db.Tag) (Box, error) {
	start, end, err := m.readRange(obj)
	if err != nil {
		return Box{}, err
	}
	box := linear.EmptyBox3()
	for i := start; i < end; i++ {
		for k := 0; k < 3; k++ {
			idx := m.Indices[i*3+k]
			box.Extend(&m.Positions[idx])
		}
	}
	if job.MotionSweep != nil {
		box.Union(&box, job.MotionSweep)
	}
	return box, nil
}

// Diceable implements Element.
func (m *PolyMesh) Diceable(job *Job, obj db.Tag, box Box) bool {
	start, end, err := m.readRange(obj)
	if err != nil {
		return true // fail closed: dice rather than loop forever on a broken range
	}
	return end-start <= m.MaxLeafTris
}

// Dice implements Element: it copies out the referenced vertices,
// remapping mesh-global indices to tessellation-local ones.
func (m *PolyMesh) Dice(job *Job, obj db.Tag, box Box) (*Tessel, error) {
	start, end, err := m.readRange(obj)
	if err != nil {
		return nil, err
	}

	remap := make(map[int32]int, (end-start)*3)
	var positions, normals []linear.V3
	var tris []Triangle

	local := func(gi int32) int {
		if li, ok := remap[gi]; ok {
			return li
		}
		li := len(positions)
		remap[gi] = li
		positions = append(positions, m.Positions[gi])
		if m.Normals != nil {
			normals = append(normals, m.Normals[gi])
		}
		return li
	}

	for i := start; i < end; i++ {
		v0 := local(m.Indices[i*3])
		v1 := local(m.Indices[i*3+1])
		v2 := local(m.Indices[i*3+2])
		tris = append(tris, Triangle{v0, v1, v2})
	}

	return &Tessel{Positions: positions, Normals: normals, Triangles: tris, Box: box}, nil
}

// Split implements Element by bisecting the triangle range.
func (m *PolyMesh) Split(job *Job, obj db.Tag, box Box, queue *Queue) error {
	start, end, err := m.readRange(obj)
	if err != nil {
		return err
	}
	if end-start <= 1 {
		queue.Push(&Job{Elem: job.Elem, Range: [2]int{start, end}, Depth: job.Depth + 1, MotionSweep: job.MotionSweep})
		return nil
	}
	mid := start + (end-start)/2
	queue.Push(&Job{Elem: job.Elem, Range: [2]int{start, mid}, Depth: job.Depth + 1, MotionSweep: job.MotionSweep})
	queue.Push(&Job{Elem: job.Elem, Range: [2]int{mid, end}, Depth: job.Depth + 1, MotionSweep: job.MotionSweep})
	return nil
}

// DeferredDice implements Element by attaching a placeholder Tessel
// that Resolve later turns into the real dicing via job.
func (m *PolyMesh) DeferredDice(job *Job, obj db.Tag, box Box) (*Tessel, error) {
	return &Tessel{Box: box, Deferred: job}, nil
}

// Intersect implements Element. A polygon mesh is always
// pre-triangulated, so it never needs the procedural intersection
// hook.
func (m *PolyMesh) Intersect(obj db.Tag, tessel *Tessel, instanceIdx int, hits HitArray, sort bool) error {
	return ErrUnsupported
}

// WholeMeshJob returns a Job covering every triangle in m, the
// starting point for execute_job_tessel.
func (m *PolyMesh) WholeMeshJob() *Job {
	return &Job{Elem: m, Range: [2]int{0, len(m.Indices) / 3}}
}

// Resolve turns a deferred placeholder Tessel into a real one by
// re-running its originating job's Dice, invoked the first time a
// BSP traversal descends into the placeholder.
func Resolve(t *Tessel) (*Tessel, error) {
	if t.Deferred == nil {
		return t, nil
	}
	job := t.Deferred
	obj, err := job.Elem.Create(job)
	if err != nil {
		return nil, err
	}
	box, err := job.Elem.Bound(job, obj)
	if err != nil {
		return nil, err
	}
	return job.Elem.Dice(job, obj, box)
}
