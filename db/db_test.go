package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAccessEndRoundTrip(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})

	tag, buf, err := d.Create(typ, 8, Flushable)
	require.NoError(t, err)
	copy(buf, []byte("deadbeef"))
	d.Dirt(tag)
	require.NoError(t, d.End(tag))

	got, err := d.Access(tag)
	require.NoError(t, err)
	require.Equal(t, []byte("deadbeef"), got)
	require.NoError(t, d.End(tag))
}

func TestRoundTripSurvivesGC(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})

	tag, buf, err := d.Create(typ, 4, Flushable)
	require.NoError(t, err)
	copy(buf, []byte("gced"))
	d.Dirt(tag)
	require.NoError(t, d.End(tag))
	_, err = d.Unref(tag)
	require.NoError(t, err)

	n := d.GC()
	require.Equal(t, 1, n)

	require.NoError(t, d.Ref(tag))
	got, err := d.Access(tag)
	require.NoError(t, err)
	require.Equal(t, []byte("gced"), got)
	require.NoError(t, d.End(tag))
}

func TestDoubleEndPanics(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})
	tag, _, err := d.Create(typ, 1, 0)
	require.NoError(t, err)
	require.NoError(t, d.End(tag))
	require.Panics(t, func() { d.End(tag) })
}

func TestAccessOfDeletedTagPanics(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})
	tag, _, err := d.Create(typ, 1, 0)
	require.NoError(t, err)
	require.NoError(t, d.End(tag))
	_, err = d.Unref(tag)
	require.NoError(t, err)
	require.NoError(t, d.Delete(tag))
	require.Panics(t, func() { d.Access(tag) })
}

func TestDeferredGeneration(t *testing.T) {
	d := New(nil)
	var generated int
	typ := Register(TypeDesc{
		Name:     "lazy",
		ElemSize: 1,
		Generate: func(tag Tag) ([]byte, error) {
			generated++
			return []byte("lazy"), nil
		},
	})
	tag := d.CreateDeferred(typ, 0)
	require.Equal(t, 0, generated)

	got, err := d.Access(tag)
	require.NoError(t, err)
	require.Equal(t, []byte("lazy"), got)
	require.Equal(t, 1, generated)
	require.NoError(t, d.End(tag))

	// Once generated, the payload stays resident: a second Access
	// does not invoke the generator again.
	_, err = d.Access(tag)
	require.NoError(t, err)
	require.Equal(t, 1, generated)
	require.NoError(t, d.End(tag))
}

func TestRefcountAtLeastAccessBrackets(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})
	tag, _, err := d.Create(typ, 1, 0)
	require.NoError(t, err)
	require.NoError(t, d.End(tag))

	_, err = d.Access(tag)
	require.NoError(t, err)
	_, err = d.Access(tag)
	require.NoError(t, err)

	r := d.records[tag]
	require.GreaterOrEqual(t, r.refcount, r.access)

	require.NoError(t, d.End(tag))
	require.NoError(t, d.End(tag))
}

func TestResizePreservesPrefix(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})
	tag, buf, err := d.Create(typ, 4, 0)
	require.NoError(t, err)
	copy(buf, []byte("abcd"))
	require.NoError(t, d.End(tag))

	grown, err := d.Resize(tag, 8)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd\x00\x00\x00\x00"), grown)

	shrunk, err := d.Resize(tag, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), shrunk)
}

func TestCastAppliesByteswap(t *testing.T) {
	d := New(nil)
	swap := func(buf []byte, count int) {
		for i := 0; i < count; i++ {
			buf[i*2], buf[i*2+1] = buf[i*2+1], buf[i*2]
		}
	}
	typ := Register(TypeDesc{Name: "u16be", ElemSize: 2, Byteswap: swap})

	src, buf, err := d.Create(typ, 2, 0)
	require.NoError(t, err)
	buf[0], buf[1] = 0x01, 0x02
	require.NoError(t, d.End(src))

	dst, _, err := d.Create(typ, 2, 0)
	require.NoError(t, err)
	require.NoError(t, d.End(dst))

	require.NoError(t, d.Cast(dst, typ, src, typ))

	out, err := d.Access(dst)
	require.NoError(t, err)
	// One byteswap on read, one on write: net result is the
	// original byte order restored.
	require.Equal(t, []byte{0x01, 0x02}, out)
	require.NoError(t, d.End(dst))
}

func TestDeleteRequiresZeroRefcount(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "bytes", ElemSize: 1})
	tag, _, err := d.Create(typ, 1, 0)
	require.NoError(t, err)
	require.NoError(t, d.End(tag))
	require.NoError(t, d.Ref(tag))

	require.Panics(t, func() { d.Delete(tag) })

	_, err = d.Unref(tag)
	require.NoError(t, err)
	_, err = d.Unref(tag)
	require.NoError(t, err)
	require.NoError(t, d.Delete(tag))
}

func TestTableAppendAndAt(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "u32", ElemSize: 4})
	tbl := NewTable(d, typ, 4, 4, Flushable)

	for i := 0; i < 10; i++ {
		_, err := tbl.Append([]byte{byte(i), 0, 0, 0})
		require.NoError(t, err)
	}
	require.Equal(t, 10, tbl.Len())
	require.True(t, len(tbl.Blocks()) >= 3)

	got, err := tbl.At(7)
	require.NoError(t, err)
	require.Equal(t, byte(7), got[0])
}

func TestBuffer2DWrapModes(t *testing.T) {
	d := New(nil)
	typ := Register(TypeDesc{Name: "px", ElemSize: 1})
	buf, err := NewBuffer2D(d, typ, 1, 4, 4, 0)
	require.NoError(t, err)
	buf.WrapS, buf.WrapT = WrapRepeat, WrapClamp

	require.NoError(t, buf.Set(0, 0, []byte{9}))
	v, err := buf.Sample(4, -1) // wraps to x=0, clamps to y=0
	require.NoError(t, err)
	require.Equal(t, byte(9), v[0])
}
