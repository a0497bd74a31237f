package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_ReadUnmapped(t *testing.T) {
	img := New()
	n, err := img.Read(0x1000, make([]byte, 4))
	require.ErrorIs(t, err, ErrUnmapped)
	assert.Zero(t, n)
}

func TestImage_WriteAcrossPages(t *testing.T) {
	img := New()
	addr := img.AllocPage().Add(PageSize - 2)
	img.PutBytes(addr, []byte{1, 2, 3, 4})

	buf := make([]byte, 4)
	n, err := img.Read(addr, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestImage_ProtectStopsAtBoundary(t *testing.T) {
	img := New()
	first := img.AllocPage()
	second := img.AllocPage()
	require.Equal(t, first.Add(PageSize), second)
	img.Protect(second, 1)

	n, err := img.Read(second-2, make([]byte, 4))
	require.ErrorIs(t, err, ErrProtected)
	assert.Equal(t, 2, n)

	img.Unprotect(second, 1)
	n, err = img.Read(second, make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestImage_AllocAligned(t *testing.T) {
	img := New()
	a := img.Alloc(3)
	b := img.Alloc(17)
	c := img.Alloc(1)
	assert.Zero(t, a%16)
	assert.Equal(t, a+16, b)
	assert.Equal(t, b+32, c)
}

func TestImage_Trace(t *testing.T) {
	img := New()
	addr := img.Alloc(64)

	_, _ = img.Read(addr, make([]byte, 8))
	assert.Empty(t, img.Traced())

	img.Trace()
	_, _ = img.Read(addr.Add(16), make([]byte, 8))
	recs := img.Traced()
	require.Len(t, recs, 1)
	assert.Equal(t, addr.Add(16), recs[0].Addr)

	assert.True(t, img.Touched(addr.Add(20), addr.Add(21)))
	assert.False(t, img.Touched(addr, addr.Add(16)))
	assert.False(t, img.Touched(addr.Add(24), addr.Add(64)))
	assert.Equal(t, uint64(2), img.Reads())
}
