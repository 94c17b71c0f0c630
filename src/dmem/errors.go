package dmem

import (
	"errors"
	"unsafe"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors backing the idiomatic error-returning wrapper API
// alongside the numeric status codes, in the style
// gapis/memory/pool.go wraps allocator failures with github.com/pkg/errors
// rather than inventing a bespoke error type per call site.
var (
	ErrPoolNull       = errors.New("dmem: pool buffer is nil")
	ErrPoolMisaligned = errors.New("dmem: pool base address is not aligned")
	ErrPoolTooSmall   = errors.New("dmem: pool is too small to host head, tail, and one block")
	ErrNullPointer    = errors.New("dmem: pointer is nil")
	ErrInvalidMemory  = errors.New("dmem: pointer was not allocated from this pool")
	ErrDoubleFree     = errors.New("dmem: pointer was already freed")
	ErrOutOfMemory    = errors.New("dmem: pool exhausted")
	ErrZeroSize       = errors.New("dmem: zero-size allocation requested")
)

// Err translates an InitStatus into the matching sentinel error, or nil
// for InitOK.
func (s InitStatus) Err() error {
	switch s {
	case InitOK:
		return nil
	case InitPoolNull:
		return ErrPoolNull
	case InitSizeSmall:
		return ErrPoolTooSmall
	case InitPoolAlign:
		return ErrPoolMisaligned
	default:
		return pkgerrors.Errorf("dmem: unknown init status %d", int(s))
	}
}

// Err translates a FreeStatus into the matching sentinel error, or nil
// for FreeOK.
func (s FreeStatus) Err() error {
	switch s {
	case FreeOK:
		return nil
	case FreeNullPtr:
		return ErrNullPointer
	case FreeInvalidMem:
		return ErrInvalidMemory
	case FreeRepeated:
		return ErrDoubleFree
	default:
		return pkgerrors.Errorf("dmem: unknown free status %d", int(s))
	}
}

// alignedRequestSize mirrors alignRequest without touching pool state, so
// the error-returning wrappers below can size the []byte they hand back
// without re-entering the (non-reentrant) Locker.
func (p *Pool) alignedRequestSize(size uint32) uint32 {
	size = roundUpAlign(size, p.cfg.Alignment)
	if size < p.cfg.MinAllocSize {
		size = p.cfg.MinAllocSize
	}
	return size
}

// AllocOrErr is Alloc's Go-idiomatic counterpart: instead of a raw
// unsafe.Pointer and a sentinel nil, it returns a []byte view over the
// payload and a wrapped error a caller can inspect with errors.Is or
// errors.Cause.
func (p *Pool) AllocOrErr(size uint32) ([]byte, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	ptr := p.Alloc(size)
	if ptr == nil {
		return nil, pkgerrors.Wrapf(ErrOutOfMemory, "alloc %d bytes", size)
	}
	return unsafe.Slice((*byte)(ptr), p.alignedRequestSize(size)), nil
}

// CallocOrErr is Calloc's Go-idiomatic counterpart.
func (p *Pool) CallocOrErr(count, elemSize uint32) ([]byte, error) {
	if count == 0 || elemSize == 0 {
		return nil, ErrZeroSize
	}
	total, ok := mulNoOverflow(count, elemSize)
	if !ok {
		return nil, pkgerrors.Errorf("dmem: calloc %d x %d bytes overflows", count, elemSize)
	}
	ptr := p.Calloc(count, elemSize)
	if ptr == nil {
		return nil, pkgerrors.Wrapf(ErrOutOfMemory, "calloc %d x %d bytes", count, elemSize)
	}
	return unsafe.Slice((*byte)(ptr), p.alignedRequestSize(total)), nil
}

// ReallocOrErr is Realloc's Go-idiomatic counterpart. old must be a slice
// previously returned by one of this pool's *OrErr methods (or nil).
func (p *Pool) ReallocOrErr(old []byte, newSize uint32) ([]byte, error) {
	var ptr unsafe.Pointer
	if len(old) > 0 {
		ptr = unsafe.Pointer(&old[0])
	}

	res := p.Realloc(ptr, newSize)
	if newSize == 0 {
		return nil, nil
	}
	if res == nil {
		if ptr == nil {
			return nil, pkgerrors.Wrapf(ErrOutOfMemory, "realloc(nil, %d)", newSize)
		}
		return nil, pkgerrors.Wrapf(ErrInvalidMemory, "realloc %d bytes", newSize)
	}
	return unsafe.Slice((*byte)(res), p.alignedRequestSize(newSize)), nil
}

// FreeErr is Free's Go-idiomatic counterpart.
func (p *Pool) FreeErr(ptr unsafe.Pointer) error {
	return p.Free(ptr).Err()
}
