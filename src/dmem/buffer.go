package dmem

import (
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// NewMmapBackedPool mmaps an anonymous, page-aligned region and
// initializes a Pool over it, for callers that don't already have a byte
// slice to hand the allocator. This is the same unix.Mmap/unix.Munmap
// pairing the teacher allocator uses to source its backing store, just
// repurposed here as one optional buffer source among several rather than
// the only one — spec.md treats the pool as a caller-supplied region and
// forbids the allocator from growing or mmapping on its own.
func NewMmapBackedPool(size int, cfg Config) (pool *Pool, buf []byte, err error) {
	if size <= 0 {
		return nil, nil, pkgerrors.New("dmem: mmap pool size must be positive")
	}

	buf, mmapErr := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if mmapErr != nil {
		if mmapErr == unix.ENOMEM {
			return nil, nil, pkgerrors.Wrap(ErrOutOfMemory, "dmem: mmap pool backing store")
		}
		return nil, nil, pkgerrors.Wrap(mmapErr, "dmem: mmap pool backing store")
	}

	p := &Pool{}
	if status := p.Init(buf, cfg); status != InitOK {
		_ = unix.Munmap(buf)
		return nil, nil, pkgerrors.Wrap(status.Err(), "dmem: init mmap-backed pool")
	}

	return p, buf, nil
}

// ReleaseMmapBackedPool unmaps a region obtained from NewMmapBackedPool.
// Every pointer the pool vended becomes invalid once this returns, the
// same contract buddyDestroy documents in the teacher allocator.
func ReleaseMmapBackedPool(buf []byte) error {
	if err := unix.Munmap(buf); err != nil {
		return pkgerrors.Wrap(err, "dmem: munmap pool backing store")
	}
	return nil
}
