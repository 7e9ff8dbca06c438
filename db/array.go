package db

// Array is a random-access, resizable array of fixed-size elements
// backed by a single database record. It is intended for small
// homogeneous sequences (e.g. a node instance's edge table) where
// the block-paging overhead of Table is not worthwhile.
type Array struct {
	db       *Database
	tag      Tag
	elemSize int
	count    int
}

// NewArray creates an empty Array of elements of the given size.
func NewArray(d *Database, typ Type, elemSize int, flags Flags) (*Array, error) {
	tag, _, err := d.Create(typ, 0, flags)
	if err != nil {
		return nil, err
	}
	if err := d.End(tag); err != nil {
		return nil, err
	}
	return &Array{db: d, tag: tag, elemSize: elemSize}, nil
}

// Len returns the number of elements in a.
func (a *Array) Len() int { return a.count }

// Tag returns the backing record's tag.
func (a *Array) Tag() Tag { return a.tag }

// Resize changes the array's length to n, zero-filling any newly
// added elements.
func (a *Array) Resize(n int) error {
	if n < 0 {
		panic("db: Array.Resize: negative length")
	}
	if _, err := a.db.Resize(a.tag, n*a.elemSize); err != nil {
		return err
	}
	a.count = n
	return nil
}

// At returns a copy of the element at index i.
func (a *Array) At(i int) ([]byte, error) {
	if i < 0 || i >= a.count {
		panic("db: Array.At: index out of range")
	}
	buf, err := a.db.Access(a.tag)
	if err != nil {
		return nil, err
	}
	defer a.db.End(a.tag)
	off := i * a.elemSize
	out := make([]byte, a.elemSize)
	copy(out, buf[off:off+a.elemSize])
	return out, nil
}

// Set overwrites the element at index i.
func (a *Array) Set(i int, elem []byte) error {
	if i < 0 || i >= a.count {
		panic("db: Array.Set: index out of range")
	}
	if len(elem) != a.elemSize {
		panic("db: Array.Set: element size mismatch")
	}
	buf, err := a.db.Access(a.tag)
	if err != nil {
		return err
	}
	off := i * a.elemSize
	copy(buf[off:off+a.elemSize], elem)
	a.db.Dirt(a.tag)
	return a.db.End(a.tag)
}

// PushBack appends elem, growing the array by one.
func (a *Array) PushBack(elem []byte) (int, error) {
	i := a.count
	if err := a.Resize(a.count + 1); err != nil {
		return 0, err
	}
	if err := a.Set(i, elem); err != nil {
		return 0, err
	}
	return i, nil
}
