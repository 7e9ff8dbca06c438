package db

import "sync"

// Generator fills the payload of a deferred record on first access,
// returning the bytes that should back the record from then on.
type Generator func(tag Tag) ([]byte, error)

// TypeDesc describes the behavior associated with a record Type.
// One TypeDesc is registered per Type, process-wide, during engine
// start-up (mirroring the source's global g_DataGenTable, but as an
// explicit init-once registry rather than a file-scope array indexed
// by a type enum).
type TypeDesc struct {
	// Name identifies the type for diagnostics.
	Name string

	// ElemSize is the fixed size in bytes of one element of this
	// type, or 0 if the type has no fixed element size (e.g. an
	// opaque blob record).
	ElemSize int

	// Byteswap swaps the endianness of count elements in place,
	// starting at the front of buf. It may be nil for types that
	// are endian-agnostic (e.g. raw bytes).
	Byteswap func(buf []byte, count int)

	// Generate produces the payload for a deferred record. It may
	// be nil for types that are never deferred.
	Generate Generator

	// Clear is a per-type hook for clearing a payload in place. It
	// may be nil. Database never calls it: deferred and GenAlways
	// records are filled only through Generate.
	Clear func(buf []byte)
}

var registry struct {
	sync.RWMutex
	descs map[Type]TypeDesc
	next  Type
}

func init() {
	registry.descs = make(map[Type]TypeDesc)
}

// Register installs desc as the descriptor for a freshly allocated
// Type and returns that Type. Registration happens once per type,
// deterministically, during package-level init-once sequences run
// by callers (db consumers call Register from their own init
// functions, in the same way the source populated g_DataGenTable at
// start-up).
func Register(desc TypeDesc) Type {
	registry.Lock()
	defer registry.Unlock()
	registry.next++
	t := registry.next
	registry.descs[t] = desc
	return t
}

// Describe returns the descriptor registered for t.
func Describe(t Type) (TypeDesc, bool) {
	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.descs[t]
	return d, ok
}
