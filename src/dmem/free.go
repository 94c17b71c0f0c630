package dmem

import "unsafe"

// Free releases ptr, the most recent unreleased return from Alloc, Calloc,
// or Realloc on this pool, and coalesces it with free neighbors. A
// pointer this pool did not vend, or one already freed, is classified
// rather than acted on.
func (p *Pool) Free(ptr unsafe.Pointer) FreeStatus {
	p.cfg.Locker.Lock()
	defer p.cfg.Locker.Unlock()
	return p.freeLocked(ptr)
}

func (p *Pool) freeLocked(ptr unsafe.Pointer) FreeStatus {
	if ptr == nil {
		p.cfg.Tracer.Trace(LevelError, "free: nil pointer")
		return FreeNullPtr
	}

	offset, ok := p.offsetFromPayload(ptr)
	if !ok || !p.valid(offset) {
		p.cfg.Tracer.Trace(LevelError, "free: invalid pointer %p", ptr)
		return FreeInvalidMem
	}
	if !p.isUsed(offset) {
		p.cfg.Tracer.Trace(LevelError, "free: double free at offset %d", offset)
		return FreeRepeated
	}

	h := p.headerAt(offset)
	h.used = false
	p.freeBytes += p.payloadSize(offset)
	p.cfg.Tracer.Trace(LevelDebug, "freed %d bytes at offset %d, free=%d", p.payloadSize(offset), offset, p.freeBytes)

	block := offset
	if block != p.headOffset {
		prevOff := p.prev(block)
		if p.isFree(prevOff) {
			p.mergeFreeBlocks(prevOff, block)
			block = prevOff
		}
	}

	nextOff := p.next(block)
	if p.isFree(nextOff) {
		p.mergeFreeBlocks(block, nextOff)
	}

	p.refreshFreeHintCandidate(block)
	p.refreshMaxUsage()

	return FreeOK
}

// mergeFreeBlocks absorbs the block at nextOff into the one at prevOff,
// reclaiming the intermediate header's bytes into free_bytes. Both must
// already be free; coalescing never runs on a used neighbor.
func (p *Pool) mergeFreeBlocks(prevOff, nextOff uint32) {
	if !p.isFree(prevOff) || !p.isFree(nextOff) {
		return
	}

	after := p.next(nextOff)
	p.headerAt(prevOff).nextOffset = after
	p.headerAt(after).prevOffset = prevOff
	p.freeBytes += p.headerSize

	p.cfg.Tracer.Trace(LevelDebug, "merged blocks at offsets %d and %d", prevOff, nextOff)
}
