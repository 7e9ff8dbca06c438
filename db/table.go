package db

import "math/bits"

// Table is a block-paged, append-only sequence of fixed-size
// elements. Each block is itself a database record, so a Table
// pages like any other object: cold blocks can be evicted by GC and
// regenerated or reloaded on next access.
//
// Table is not safe for concurrent use by multiple goroutines
// without external synchronization, matching the access-bracket
// discipline of the records it wraps.
type Table struct {
	db       *Database
	typ      Type
	elemSize int
	flags    Flags

	shift int // log2(itemsPerSlot)
	mask  int // itemsPerSlot - 1

	blocks []Tag
	count  int
}

// NewTable creates a Table of elements of the given size, each
// block holding itemsPerSlot elements (rounded up to the next power
// of two).
func NewTable(d *Database, typ Type, elemSize, itemsPerSlot int, flags Flags) *Table {
	if itemsPerSlot < 1 {
		itemsPerSlot = 1
	}
	n := 1
	shift := 0
	for n < itemsPerSlot {
		n <<= 1
		shift++
	}
	return &Table{
		db:       d,
		typ:      typ,
		elemSize: elemSize,
		flags:    flags,
		shift:    shift,
		mask:     n - 1,
	}
}

// Len returns the number of elements appended to t.
func (t *Table) Len() int { return t.count }

// decode splits a logical element index into a block index and a
// byte offset within that block.
func (t *Table) decode(i int) (slot, byteOff int) {
	slot = i >> t.shift
	byteOff = (i & t.mask) * t.elemSize
	return
}

func (t *Table) itemsPerSlot() int { return t.mask + 1 }

// Append adds one element, growing the block index as necessary,
// and returns its index.
func (t *Table) Append(elem []byte) (int, error) {
	if len(elem) != t.elemSize {
		panic("db: Table.Append: element size mismatch")
	}
	i := t.count
	slot, byteOff := t.decode(i)
	if slot >= len(t.blocks) {
		size := t.itemsPerSlot() * t.elemSize
		tag, buf, err := t.db.Create(t.typ, size, t.flags)
		if err != nil {
			return 0, err
		}
		_ = buf
		if err := t.db.End(tag); err != nil {
			return 0, err
		}
		t.blocks = append(t.blocks, tag)
	}
	buf, err := t.db.Access(t.blocks[slot])
	if err != nil {
		return 0, err
	}
	copy(buf[byteOff:byteOff+t.elemSize], elem)
	t.db.Dirt(t.blocks[slot])
	if err := t.db.End(t.blocks[slot]); err != nil {
		return 0, err
	}
	t.count++
	return i, nil
}

// At returns a copy of the element at index i.
func (t *Table) At(i int) ([]byte, error) {
	if i < 0 || i >= t.count {
		panic("db: Table.At: index out of range")
	}
	slot, byteOff := t.decode(i)
	buf, err := t.db.Access(t.blocks[slot])
	if err != nil {
		return nil, err
	}
	defer t.db.End(t.blocks[slot])
	out := make([]byte, t.elemSize)
	copy(out, buf[byteOff:byteOff+t.elemSize])
	return out, nil
}

// Set overwrites the element at index i.
func (t *Table) Set(i int, elem []byte) error {
	if i < 0 || i >= t.count {
		panic("db: Table.Set: index out of range")
	}
	if len(elem) != t.elemSize {
		panic("db: Table.Set: element size mismatch")
	}
	slot, byteOff := t.decode(i)
	buf, err := t.db.Access(t.blocks[slot])
	if err != nil {
		return err
	}
	copy(buf[byteOff:byteOff+t.elemSize], elem)
	t.db.Dirt(t.blocks[slot])
	return t.db.End(t.blocks[slot])
}

// Blocks returns the tags of t's backing blocks, in order.
func (t *Table) Blocks() []Tag { return append([]Tag(nil), t.blocks...) }

// nextPow2 rounds n up to the next power of two (n > 0).
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
