package dmem

import (
	"math"
	"unsafe"
)

// Alloc returns an Alignment-aligned pointer to at least
// ceil_align(size, Alignment) usable bytes, never overlapping any other
// live allocation, or nil if the pool cannot satisfy the request. On
// failure no state is mutated.
func (p *Pool) Alloc(size uint32) unsafe.Pointer {
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()
	return p.allocLocked(size)
}

func (p *Pool) allocLocked(size uint32) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	size = p.alignRequest(size)

	if !p.hasFreeHint {
		p.cfg.Tracer.Trace(LevelWarning, "alloc failed: no free blocks for %d bytes", size)
		return nil
	}

	for pos := p.freeHintOffset; pos != p.tailOffset; pos = p.next(pos) {
		if !p.isFree(pos) {
			continue
		}
		if p.payloadSize(pos) < size {
			continue
		}

		p.splitOrDonate(pos, size)
		p.headerAt(pos).used = true
		p.refreshFreeHintAfterAlloc(pos)
		p.refreshMaxUsage()

		p.cfg.Tracer.Trace(LevelDebug, "allocated %d bytes at offset %d, free=%d", size, pos, p.freeBytes)
		return p.payloadAddr(pos)
	}

	p.cfg.Tracer.Trace(LevelWarning, "alloc failed: no fit for %d bytes, free=%d", size, p.freeBytes)
	return nil
}

// alignRequest rounds size up to a multiple of Alignment, then raises it
// to MinAllocSize.
func (p *Pool) alignRequest(size uint32) uint32 {
	size = roundUpAlign(size, p.cfg.Alignment)
	if size < p.cfg.MinAllocSize {
		size = p.cfg.MinAllocSize
	}
	return size
}

// splitOrDonate carves pos into a used block of exactly size payload
// bytes plus a trailing free block, unless the remainder is too small to
// ever host a block itself — in which case the whole remainder is donated
// to the allocation so it never becomes an unreachable fragment.
func (p *Pool) splitOrDonate(pos, size uint32) {
	full := p.payloadSize(pos)
	slack := full - size
	if slack < p.cfg.MinAllocSize+p.headerSize {
		p.freeBytes -= full
		return
	}

	newFreeOffset := pos + p.headerSize + size
	oldNext := p.next(pos)

	nf := p.headerAt(newFreeOffset)
	nf.magic = blockMagic
	nf.used = false
	nf.prevOffset = pos
	nf.nextOffset = oldNext

	p.headerAt(pos).nextOffset = newFreeOffset
	p.headerAt(oldNext).prevOffset = newFreeOffset

	p.freeBytes -= size + p.headerSize
}

// refreshFreeHintAfterAlloc restores the leftmost-free invariant after
// consuming the block at allocated: if the current hint still names a
// free block it is left alone (it was smaller than the request and was
// skipped over); otherwise the hint is re-derived starting just past the allocated block.
func (p *Pool) refreshFreeHintAfterAlloc(allocated uint32) {
	if p.hasFreeHint && p.isFree(p.freeHintOffset) {
		return
	}
	pos := p.next(allocated)
	if p.isFree(pos) {
		p.freeHintOffset = pos
		p.hasFreeHint = true
		return
	}
	for pos != p.tailOffset {
		if p.isFree(pos) {
			p.freeHintOffset = pos
			p.hasFreeHint = true
			return
		}
		pos = p.next(pos)
	}
	p.hasFreeHint = false
}

// Calloc allocates room for count objects of elemSize bytes and zeroes
// the returned payload. It returns nil, rather than wrapping around
// silently, if count*elemSize would overflow a 32-bit byte count — a
// deliberate strengthening over the reference allocator's unchecked
// multiplication (spec.md §9's open question on calloc overflow).
func (p *Pool) Calloc(count, elemSize uint32) unsafe.Pointer {
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()

	total, ok := mulNoOverflow(count, elemSize)
	if !ok {
		p.cfg.Tracer.Trace(LevelError, "calloc overflow: count=%d elemSize=%d", count, elemSize)
		return nil
	}

	ptr := p.allocLocked(total)
	if ptr == nil {
		return nil
	}
	mem := unsafe.Slice((*byte)(ptr), total)
	for i := range mem {
		mem[i] = 0
	}
	return ptr
}

func mulNoOverflow(a, b uint32) (uint32, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	total := uint64(a) * uint64(b)
	if total > math.MaxUint32 {
		return 0, false
	}
	return uint32(total), true
}
