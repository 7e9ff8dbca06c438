package db

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// HostID identifies a host participating in a network-shared
// database. The zero value identifies no host in particular and
// is used for single-host (non-networked) databases.
type HostID uint32

// Config configures a Database.
type Config struct {
	// LocalHost is this process's host identity. Records whose
	// HostOrigin differs from LocalHost are considered remote.
	LocalHost HostID

	// Page backs flushable records once they are evicted by GC.
	// If nil, a Config.DefaultConfig value backed by an in-memory
	// page is used (records are kept in memory and never
	// reclaimed, which is adequate for tests and single-pass
	// renders with ample memory).
	Page PageStore

	// Peer fetches records whose HostOrigin is a remote host. It
	// may be nil, in which case deferred access to a remote
	// record without a GenLocal flag yields ErrNoPeer.
	Peer PeerClient

	// Log receives non-fatal diagnostics (I/O errors, skipped
	// generators). It defaults to a no-op sink.
	Log func(format string, args ...any)
}

// DefaultConfig returns the Config used when New is called with a
// nil *Config.
func DefaultConfig() Config {
	return Config{
		LocalHost: 1,
		Page:      newMemPageStore(),
		Log:       func(string, ...any) {},
	}
}

// record is the database's per-tag bookkeeping block.
// It corresponds to spec.md's "database record header".
type record struct {
	typ      Type
	flags    Flags
	refcount int32
	access   int32
	host     HostID
	offset   int64 // page-file offset, valid once flushed at least once
	hasOff   bool
	dirty    bool
	deleted  bool
	data     []byte

	mu sync.Mutex // per-record lock: serializes generation/resize
}

// Database is a tag-addressed, paging, network-shared object store.
// The zero value is not usable; construct one with New.
type Database struct {
	cfg Config

	mu      sync.RWMutex
	records map[Tag]*record
	nextTag uint32
}

// New creates a Database. A nil cfg is equivalent to a pointer to
// DefaultConfig().
func New(cfg *Config) *Database {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		if c.Page == nil {
			c.Page = newMemPageStore()
		}
		if c.Log == nil {
			c.Log = func(string, ...any) {}
		}
	}
	return &Database{cfg: c, records: make(map[Tag]*record)}
}

// Create allocates a new record of the given type and size and
// returns its Tag along with a writable view of its bytes. The
// returned view is pinned (as if by Access); the caller must pair
// the call with End.
func (db *Database) Create(typ Type, size int, flags Flags) (Tag, []byte, error) {
	if size < 0 {
		panic("db: negative record size")
	}
	r := &record{
		typ:      typ,
		flags:    flags,
		refcount: 1,
		access:   1,
		host:     db.cfg.LocalHost,
		data:     make([]byte, size),
	}

	db.mu.Lock()
	db.nextTag++
	tag := Tag(db.nextTag)
	db.records[tag] = r
	db.mu.Unlock()

	return tag, r.data, nil
}

// CreateDeferred allocates a tag for a record whose payload is
// produced lazily by the Generator registered for typ. Unlike
// Create, the returned tag is not pinned and has no backing bytes
// until the first call to Access.
func (db *Database) CreateDeferred(typ Type, flags Flags) Tag {
	r := &record{
		typ:      typ,
		flags:    flags,
		refcount: 1,
		host:     db.cfg.LocalHost,
	}

	db.mu.Lock()
	db.nextTag++
	tag := Tag(db.nextTag)
	db.records[tag] = r
	db.mu.Unlock()

	return tag
}

func (db *Database) lookup(tag Tag) (*record, error) {
	if tag == Nil {
		return nil, ErrNilTag
	}
	db.mu.RLock()
	r, ok := db.records[tag]
	db.mu.RUnlock()
	if !ok {
		return nil, ErrBadTag
	}
	if r.deleted {
		panic("db: access of deleted tag " + fmt.Sprint(uint32(tag)))
	}
	return r, nil
}

// Access pins tag in memory and returns its bytes. Access brackets
// nest: a thread that calls Access twice must call End twice. If the
// record is deferred (no payload yet) its Generator runs first; if
// the record's host of origin is remote and GenLocal is not set,
// the payload is instead requested over the network.
func (db *Database) Access(tag Tag) ([]byte, error) {
	r, err := db.lookup(tag)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.data == nil {
		buf, err := db.fill(tag, r)
		if err != nil {
			db.cfg.Log("db: record %d: %v, using zero-filled placeholder", tag, err)
			buf = []byte{}
		}
		r.data = buf
	}
	atomic.AddInt32(&r.access, 1)
	data := r.data
	r.mu.Unlock()

	return data, nil
}

// fill produces the payload of a deferred record, either by
// invoking its registered Generator or by fetching it from its host
// of origin. Caller holds r.mu.
func (db *Database) fill(tag Tag, r *record) ([]byte, error) {
	remote := r.host != db.cfg.LocalHost && !r.flags.Has(GenLocal)
	if remote {
		if db.cfg.Peer == nil {
			return nil, ErrNoPeer
		}
		return db.cfg.Peer.Fetch(r.host, tag)
	}
	if r.hasOff && !r.flags.Has(GenAlways) && db.cfg.Page != nil {
		if buf, err := db.cfg.Page.Read(tag, r.offset); err == nil {
			return buf, nil
		}
	}
	desc, ok := Describe(r.typ)
	if !ok || desc.Generate == nil {
		return nil, ErrUnknownType
	}
	return desc.Generate(tag)
}

// End releases one access bracket on tag. When this releases the last
// outstanding bracket and the record was dirtied, a Flushable record
// is written back to the page store, and the dirty bit is cleared.
// Dirty records are not sent to peer hosts.
func (db *Database) End(tag Tag) error {
	r, err := db.lookup(tag)
	if err != nil {
		return err
	}
	for {
		n := atomic.LoadInt32(&r.access)
		if n <= 0 {
			panic("db: End called without a matching Access on tag " + fmt.Sprint(uint32(tag)))
		}
		if atomic.CompareAndSwapInt32(&r.access, n, n-1) {
			break
		}
	}
	if atomic.LoadInt32(&r.access) == 0 {
		r.mu.Lock()
		if r.dirty {
			db.writeBack(tag, r)
			r.dirty = false
		}
		r.mu.Unlock()
	}
	return nil
}

func (db *Database) writeBack(tag Tag, r *record) {
	if r.flags.Has(Flushable) && db.cfg.Page != nil {
		off, err := db.cfg.Page.Write(tag, r.data)
		if err != nil {
			db.cfg.Log("db: record %d: page write failed: %v", tag, err)
			return
		}
		r.offset = off
		r.hasOff = true
	}
}

// Resize changes tag's size, preserving bytes up to
// min(old, new). The returned pointer may differ from a
// previously-returned one; the tag itself never changes.
func (db *Database) Resize(tag Tag, newSize int) ([]byte, error) {
	if newSize < 0 {
		panic("db: negative record size")
	}
	r, err := db.lookup(tag)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, newSize)
	copy(buf, r.data)
	r.data = buf
	return r.data, nil
}

// Dirt marks tag so that the End releasing its last access bracket
// writes its payload back to the page store if the record is
// Flushable. Nothing is broadcast to peer hosts.
func (db *Database) Dirt(tag Tag) error {
	r, err := db.lookup(tag)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
	return nil
}

// Ref increments tag's reference count.
func (db *Database) Ref(tag Tag) error {
	r, err := db.lookup(tag)
	if err != nil {
		return err
	}
	atomic.AddInt32(&r.refcount, 1)
	return nil
}

// Unref decrements tag's reference count and returns the new value.
func (db *Database) Unref(tag Tag) (int32, error) {
	r, err := db.lookup(tag)
	if err != nil {
		return 0, err
	}
	n := atomic.AddInt32(&r.refcount, -1)
	if n < 0 {
		panic("db: refcount underflow on tag " + fmt.Sprint(uint32(tag)))
	}
	return n, nil
}

// Delete releases tag's storage. It is only legal when tag's
// refcount is zero; calling Delete on a still-referenced tag is a
// programmer error. The record stays in the table marked deleted, so
// any later use of tag panics.
func (db *Database) Delete(tag Tag) error {
	r, err := db.lookup(tag)
	if err != nil {
		return err
	}
	if atomic.LoadInt32(&r.refcount) != 0 {
		panic("db: Delete called on tag " + fmt.Sprint(uint32(tag)) + " with nonzero refcount")
	}
	r.mu.Lock()
	r.deleted = true
	r.data = nil
	r.mu.Unlock()
	return nil
}

// Cast performs a type-driven conversion of src's bytes (interpreted
// as srcType) into dst's bytes (interpreted as dstType), using the
// element size and byte-swap callbacks registered for each type.
// dst must have been created with a size compatible with dstType's
// ElemSize; Cast does not resize dst.
func (db *Database) Cast(dst Tag, dstType Type, src Tag, srcType Type) error {
	sr, err := db.lookup(src)
	if err != nil {
		return err
	}
	dr, err := db.lookup(dst)
	if err != nil {
		return err
	}
	sdesc, ok := Describe(srcType)
	if !ok {
		return ErrUnknownType
	}
	ddesc, ok := Describe(dstType)
	if !ok {
		return ErrUnknownType
	}

	sr.mu.Lock()
	srcBytes := append([]byte(nil), sr.data...)
	sr.mu.Unlock()
	if sdesc.Byteswap != nil && sdesc.ElemSize > 0 {
		sdesc.Byteswap(srcBytes, len(srcBytes)/sdesc.ElemSize)
	}

	dr.mu.Lock()
	defer dr.mu.Unlock()
	n := len(srcBytes)
	if n > len(dr.data) {
		n = len(dr.data)
	}
	copy(dr.data, srcBytes[:n])
	if ddesc.Byteswap != nil && ddesc.ElemSize > 0 {
		ddesc.Byteswap(dr.data, len(dr.data)/ddesc.ElemSize)
	}
	dr.dirty = true
	return nil
}

// GC walks unreferenced flushable records and reclaims their
// in-memory payload (but not their on-disk extents within the
// current render). A record reclaimed this way is regenerated or
// re-read from the page store on its next Access.
func (db *Database) GC() (reclaimed int) {
	db.mu.RLock()
	tags := make([]Tag, 0, len(db.records))
	for t := range db.records {
		tags = append(tags, t)
	}
	db.mu.RUnlock()

	for _, t := range tags {
		db.mu.RLock()
		r, ok := db.records[t]
		db.mu.RUnlock()
		if !ok {
			continue
		}
		if atomic.LoadInt32(&r.refcount) != 0 || atomic.LoadInt32(&r.access) != 0 {
			continue
		}
		if !r.flags.Has(Flushable) {
			continue
		}
		r.mu.Lock()
		if r.data != nil {
			if !r.flags.Has(GenAlways) {
				db.writeBack(t, r)
				r.dirty = false
			}
			r.data = nil
			reclaimed++
		}
		r.mu.Unlock()
	}
	return
}
