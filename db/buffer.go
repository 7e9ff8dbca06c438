package db

// Wrap modes for a Buffer2D's tiled access.
const (
	WrapClamp = iota
	WrapRepeat
)

// Buffer2D is a 2-D grid of fixed-size elements backed by a single
// database record, stored row-major. Sample always applies the
// configured wrap modes (WrapS, WrapT); TileCoord and TilesWide map
// coordinates onto square tiles of side TileSize, the layout the
// texture-map contract (spec.md §6) expects from its mip layers.
// Tiled is a marker for callers: no Buffer2D method reads it, and
// storage stays row-major either way.
type Buffer2D struct {
	db       *Database
	tag      Tag
	elemSize int
	w, h     int

	Tiled    bool
	TileSize int
	WrapS    int
	WrapT    int
}

// NewBuffer2D creates a w*h grid of elements of the given size.
func NewBuffer2D(d *Database, typ Type, elemSize, w, h int, flags Flags) (*Buffer2D, error) {
	if w < 0 || h < 0 {
		panic("db: NewBuffer2D: negative dimension")
	}
	tag, _, err := d.Create(typ, w*h*elemSize, flags)
	if err != nil {
		return nil, err
	}
	if err := d.End(tag); err != nil {
		return nil, err
	}
	return &Buffer2D{db: d, tag: tag, elemSize: elemSize, w: w, h: h}, nil
}

// Dims returns the grid's width and height.
func (b *Buffer2D) Dims() (w, h int) { return b.w, b.h }

// Tag returns the backing record's tag.
func (b *Buffer2D) Tag() Tag { return b.tag }

func (b *Buffer2D) index(x, y int) int { return (y*b.w + x) * b.elemSize }

// At returns a copy of the element at (x, y), with no wrapping
// applied; x and y must be in range.
func (b *Buffer2D) At(x, y int) ([]byte, error) {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		panic("db: Buffer2D.At: coordinate out of range")
	}
	buf, err := b.db.Access(b.tag)
	if err != nil {
		return nil, err
	}
	defer b.db.End(b.tag)
	off := b.index(x, y)
	out := make([]byte, b.elemSize)
	copy(out, buf[off:off+b.elemSize])
	return out, nil
}

// Set overwrites the element at (x, y).
func (b *Buffer2D) Set(x, y int, elem []byte) error {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		panic("db: Buffer2D.Set: coordinate out of range")
	}
	if len(elem) != b.elemSize {
		panic("db: Buffer2D.Set: element size mismatch")
	}
	buf, err := b.db.Access(b.tag)
	if err != nil {
		return err
	}
	off := b.index(x, y)
	copy(buf[off:off+b.elemSize], elem)
	b.db.Dirt(b.tag)
	return b.db.End(b.tag)
}

func (b *Buffer2D) wrap(coord, dim, mode int) int {
	switch mode {
	case WrapRepeat:
		coord %= dim
		if coord < 0 {
			coord += dim
		}
		return coord
	default: // WrapClamp
		if coord < 0 {
			return 0
		}
		if coord >= dim {
			return dim - 1
		}
		return coord
	}
}

// Sample returns the element nearest to (x, y) after applying the
// configured wrap modes. Unlike At, Sample never panics on an
// out-of-range coordinate.
func (b *Buffer2D) Sample(x, y int) ([]byte, error) {
	x = b.wrap(x, b.w, b.WrapS)
	y = b.wrap(y, b.h, b.WrapT)
	return b.At(x, y)
}

// TileCoord converts pixel coordinates to (tileX, tileY, localX,
// localY) for a Tiled buffer whose TileSize has been set. Width in
// tiles is ceil(w/TileSize), matching the texture file layout
// described in spec.md §6.
func (b *Buffer2D) TileCoord(x, y int) (tx, ty, lx, ly int) {
	if b.TileSize <= 0 {
		panic("db: Buffer2D.TileCoord: TileSize not set")
	}
	tx, lx = x/b.TileSize, x%b.TileSize
	ty, ly = y/b.TileSize, y%b.TileSize
	return
}

// TilesWide returns ceil(w/TileSize) for a Tiled buffer.
func (b *Buffer2D) TilesWide() int {
	if b.TileSize <= 0 {
		panic("db: Buffer2D.TilesWide: TileSize not set")
	}
	return (b.w + b.TileSize - 1) / b.TileSize
}
