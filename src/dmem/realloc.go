package dmem

import "unsafe"

// Realloc dispatches over the old/new-size combination: nil old behaves
// like Alloc, zero newSize behaves like Free, a no-op size returns old
// unchanged, a shrink splits in place, a grow tries to expand into a free
// successor before falling back to allocate-copy-free. A failed grow
// returns old unchanged so the caller's data is never lost.
func (p *Pool) Realloc(old unsafe.Pointer, newSize uint32) unsafe.Pointer {
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()
	return p.reallocLocked(old, newSize)
}

func (p *Pool) reallocLocked(old unsafe.Pointer, newSize uint32) unsafe.Pointer {
	if old == nil {
		return p.allocLocked(newSize)
	}
	if newSize == 0 {
		p.freeLocked(old)
		return nil
	}

	offset, ok := p.offsetFromPayload(old)
	if !ok || !p.valid(offset) {
		p.cfg.Tracer.Trace(LevelError, "realloc: invalid pointer %p", old)
		return nil
	}

	newSize = p.alignRequest(newSize)
	oldSize := p.payloadSize(offset)

	if newSize == oldSize {
		p.cfg.Tracer.Trace(LevelDebug, "realloc: unchanged size %d at offset %d", newSize, offset)
		return old
	}

	if newSize < oldSize {
		p.split(offset, newSize)
		p.refreshMaxUsage()
		return old
	}

	if p.expandInPlace(offset, newSize) {
		p.refreshMaxUsage()
		return old
	}

	fresh := p.allocLocked(newSize)
	if fresh == nil {
		p.cfg.Tracer.Trace(LevelWarning, "realloc: growth from %d to %d failed, keeping original block", oldSize, newSize)
		return old
	}

	dst := unsafe.Slice((*byte)(fresh), oldSize)
	src := unsafe.Slice((*byte)(old), oldSize)
	copy(dst, src)
	p.freeLocked(old)
	return fresh
}

// split carves block into a used block of newSize payload bytes plus a
// trailing free block, provided the remainder can host one; otherwise it
// is a no-op and block keeps its original size. Preconditions:
// headerAt(block).used, newSize <= payloadSize(block).
func (p *Pool) split(block, newSize uint32) {
	full := p.payloadSize(block)
	if full-newSize <= p.cfg.MinAllocSize+p.headerSize {
		p.cfg.Tracer.Trace(LevelDebug, "split: block at %d too small to split, no-op", block)
		return
	}

	next := p.next(block)
	newFreeOffset := block + p.headerSize + newSize

	nf := p.headerAt(newFreeOffset)
	nf.magic = blockMagic
	nf.used = false
	nf.prevOffset = block
	nf.nextOffset = next

	p.headerAt(block).nextOffset = newFreeOffset
	p.headerAt(next).prevOffset = newFreeOffset

	p.freeBytes += full - (newSize + p.headerSize)

	if p.isFree(p.next(newFreeOffset)) {
		p.mergeFreeBlocks(newFreeOffset, p.next(newFreeOffset))
	}

	p.refreshFreeHintCandidate(newFreeOffset)

	p.cfg.Tracer.Trace(LevelDebug, "split block at %d: %d -> %d + free %d", block, full, newSize, p.payloadSize(newFreeOffset))
}

// expandInPlace grows block by absorbing its immediately-following free
// neighbor, provided that neighbor (plus the header it frees up) covers
// the deficit. If swallowing it leaves enough slack to host another
// block, a fresh free tail is re-emitted via the same layout split()
// would produce.
func (p *Pool) expandInPlace(block, newSize uint32) bool {
	curSize := p.payloadSize(block)
	needed := newSize - curSize

	next := p.next(block)
	if !p.isFree(next) {
		return false
	}

	totalAvail := p.payloadSize(next) + p.headerSize
	if totalAvail < needed {
		return false
	}

	consumedHint := p.hasFreeHint && p.freeHintOffset == next

	nextNext := p.next(next)
	p.headerAt(block).nextOffset = nextNext
	p.headerAt(nextNext).prevOffset = block
	p.freeBytes += p.headerSize
	p.freeBytes -= needed

	remained := totalAvail - needed
	if remained >= p.cfg.MinAllocSize+p.headerSize {
		newFreeOffset := block + p.headerSize + newSize

		nf := p.headerAt(newFreeOffset)
		nf.magic = blockMagic
		nf.used = false
		nf.prevOffset = block
		nf.nextOffset = nextNext

		p.headerAt(block).nextOffset = newFreeOffset
		p.headerAt(nextNext).prevOffset = newFreeOffset
		p.freeBytes -= p.headerSize

		if consumedHint {
			p.freeHintOffset = newFreeOffset
			p.hasFreeHint = true
		} else {
			p.refreshFreeHintCandidate(newFreeOffset)
		}
	} else {
		// The leftover slack is too small to host a block and stays in
		// block's payload, so it leaves free_bytes as well.
		p.freeBytes -= remained
		if consumedHint {
			// The free block the hint pointed at was fully absorbed and no
			// replacement was emitted: the hint must be re-derived from
			// scratch or it would dangle over stale header bytes.
			p.rescanFreeHint()
		}
	}

	p.cfg.Tracer.Trace(LevelDebug, "expanded block at %d in place: %d -> %d bytes", block, curSize, newSize)
	return true
}
