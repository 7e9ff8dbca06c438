// Package db implements the tag-addressed, paging, network-shared
// object database described by the renderer's core: every heavy
// object (shader parameter table, tessellation, BSP node array,
// framebuffer tile, map point array, ...) lives behind an opaque Tag.
package db

import "errors"

const dbPrefix = "db: "

func newDBErr(reason string) error { return errors.New(dbPrefix + reason) }

// Errors returned by Database methods.
var (
	ErrNilTag      = newDBErr("nil tag")
	ErrBadTag      = newDBErr("tag does not identify a live record")
	ErrDoubleEnd   = newDBErr("end called without a matching access")
	ErrOutOfMemory = newDBErr("out of memory")
	ErrUnknownType = newDBErr("record type has no registered descriptor")
	ErrNoPeer      = newDBErr("record is remote and no peer client is configured")
)

// Tag is an opaque 32-bit identifier of a database record.
// The zero Tag (Nil) never identifies a live record.
type Tag uint32

// Nil is the reserved null tag.
const Nil Tag = 0

// Type identifies the kind of data a record holds.
// Types are registered once, at process start-up, via Register.
type Type uint16

// Flags control a record's residency and generation policy.
type Flags uint8

const (
	// Flushable records may be evicted to the page file by GC
	// when unreferenced.
	Flushable Flags = 1 << iota
	// GenLocal records must be regenerated on the host that
	// first created them; they are never transmitted to peers.
	GenLocal
	// GenAlways records are regenerated on demand rather than
	// transmitted or paged, even if a cached copy exists.
	GenAlways
)

// Has reports whether f has every bit in mask set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }
