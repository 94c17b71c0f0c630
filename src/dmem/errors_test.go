package dmem

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStatusErr(t *testing.T) {
	cases := []struct {
		status InitStatus
		want   error
	}{
		{InitOK, nil},
		{InitPoolNull, ErrPoolNull},
		{InitSizeSmall, ErrPoolTooSmall},
		{InitPoolAlign, ErrPoolMisaligned},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.status.Err())
	}

	unknown := InitStatus(-99).Err()
	require.Error(t, unknown)
	assert.Contains(t, unknown.Error(), "unknown init status")
}

func TestFreeStatusErr(t *testing.T) {
	cases := []struct {
		status FreeStatus
		want   error
	}{
		{FreeOK, nil},
		{FreeNullPtr, ErrNullPointer},
		{FreeInvalidMem, ErrInvalidMemory},
		{FreeRepeated, ErrDoubleFree},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.status.Err())
	}

	unknown := FreeStatus(-99).Err()
	require.Error(t, unknown)
	assert.Contains(t, unknown.Error(), "unknown free status")
}

func TestAllocOrErrZeroSize(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.AllocOrErr(0)
	assert.Nil(t, mem)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestAllocOrErrSuccess(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.AllocOrErr(10)
	require.NoError(t, err)
	require.Len(t, mem, int(p.alignedRequestSize(10)))
}

func TestAllocOrErrOutOfMemory(t *testing.T) {
	p := newTestPool(t, 64)
	var r Report
	p.ReadReport(&r)

	mem, err := p.AllocOrErr(r.FreeBytes + 1000)
	assert.Nil(t, mem)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestCallocOrErrZeroArgs(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.CallocOrErr(0, 4)
	assert.Nil(t, mem)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestCallocOrErrOverflow(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.CallocOrErr(1<<20, 1<<20)
	assert.Nil(t, mem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")
}

func TestCallocOrErrSuccess(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.CallocOrErr(4, 4)
	require.NoError(t, err)
	require.Len(t, mem, int(p.alignedRequestSize(16)))
	for _, b := range mem {
		assert.Equal(t, byte(0), b)
	}
}

func TestReallocOrErrFromNilActsLikeAllocOrErr(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.ReallocOrErr(nil, 16)
	require.NoError(t, err)
	require.NotNil(t, mem)
}

func TestReallocOrErrZeroSizeActsLikeFree(t *testing.T) {
	p := newTestPool(t, 128)
	mem, err := p.AllocOrErr(16)
	require.NoError(t, err)

	res, err := p.ReallocOrErr(mem, 0)
	assert.Nil(t, res)
	assert.NoError(t, err)
}

func TestReallocOrErrOutOfMemoryOnNilOld(t *testing.T) {
	p := newTestPool(t, 64)
	var r Report
	p.ReadReport(&r)

	mem, err := p.ReallocOrErr(nil, r.FreeBytes+1000)
	assert.Nil(t, mem)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestReallocOrErrInvalidMemoryOnForeignSlice(t *testing.T) {
	p := newTestPool(t, 128)
	foreign := make([]byte, 16)

	mem, err := p.ReallocOrErr(foreign, 32)
	assert.Nil(t, mem)
	assert.ErrorIs(t, err, ErrInvalidMemory)
}

func TestFreeErrTranslatesStatus(t *testing.T) {
	p := newTestPool(t, 128)
	assert.ErrorIs(t, p.FreeErr(nil), ErrNullPointer)

	ptr := p.Alloc(16)
	require.NotNil(t, ptr)
	assert.NoError(t, p.FreeErr(ptr))
	assert.ErrorIs(t, p.FreeErr(ptr), ErrDoubleFree)
}

func TestWrappedErrorsExposeCause(t *testing.T) {
	p := newTestPool(t, 64)
	var r Report
	p.ReadReport(&r)

	_, err := p.AllocOrErr(r.FreeBytes + 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
}
