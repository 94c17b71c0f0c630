package dmem

import "unsafe"

// headerAt overlays a blockHeader onto the pool buffer at offset. Every
// offset passed here must already be known to be a multiple of
// p.cfg.Alignment (blockHeader{} needs 4-byte alignment for its uint32
// fields) — callers that derive an offset from a foreign pointer validate
// that in offsetFromPayload before ever reaching here.
func (p *Pool) headerAt(offset uint32) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(&p.buf[offset]))
}

// valid reports whether the header at offset carries the block magic.
// This is the only corruption signal available: a header derived from an
// arbitrary user pointer must be checked here before any other use.
func (p *Pool) valid(offset uint32) bool {
	return p.headerAt(offset).magic == blockMagic
}

func (p *Pool) isUsed(offset uint32) bool {
	return p.headerAt(offset).used
}

// isFree reports whether offset names a valid, unused block.
func (p *Pool) isFree(offset uint32) bool {
	h := p.headerAt(offset)
	return h.magic == blockMagic && !h.used
}

func (p *Pool) next(offset uint32) uint32 {
	return p.headerAt(offset).nextOffset
}

func (p *Pool) prev(offset uint32) uint32 {
	return p.headerAt(offset).prevOffset
}

// payloadSize is derived, never stored: the distance to the next block's
// header, minus this block's own header.
func (p *Pool) payloadSize(offset uint32) uint32 {
	return p.headerAt(offset).nextOffset - offset - p.headerSize
}

func (p *Pool) payloadAddr(offset uint32) unsafe.Pointer {
	return unsafe.Pointer(&p.buf[offset+p.headerSize])
}

// offsetFromPayload recovers the block offset a payload pointer belongs
// to, or false if ptr does not fall inside a plausible block slot of this
// pool. It does not check the magic word — callers must call valid()
// themselves once they have an offset.
func (p *Pool) offsetFromPayload(ptr unsafe.Pointer) (uint32, bool) {
	if len(p.buf) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&p.buf[0]))
	target := uintptr(ptr)
	if target < base {
		return 0, false
	}
	rel := target - base
	if rel > uintptr(p.size) {
		return 0, false
	}
	relOffset := uint32(rel)
	if relOffset < p.headerSize {
		return 0, false
	}
	offset := relOffset - p.headerSize
	if offset%p.cfg.Alignment != 0 {
		return 0, false
	}
	if offset >= p.tailOffset {
		return 0, false
	}
	return offset, true
}

// refreshMaxUsage keeps max_usage monotonic non-decreasing, per spec
// invariant 7. free() can only decrease current usage, but the refresh
// there is kept for parity with the reference allocator rather than
// special-cased away.
func (p *Pool) refreshMaxUsage() {
	usage := p.size - p.freeBytes
	if usage > p.maxUsage {
		p.maxUsage = usage
	}
}

// refreshFreeHintCandidate adopts offset as the free hint if there is no
// hint yet, or offset is to the left of the current one. It never moves
// the hint rightward, preserving the leftmost-free invariant.
func (p *Pool) refreshFreeHintCandidate(offset uint32) {
	if !p.hasFreeHint || offset < p.freeHintOffset {
		p.freeHintOffset = offset
		p.hasFreeHint = true
	}
}

// rescanFreeHint walks the whole list from head to find the leftmost free
// block. It is only needed when a prior hint is known to be stale and no
// cheaper local check (next-of-block) can re-derive it, e.g. after an
// expand-in-place absorbs the block the hint pointed to without emitting a
// replacement free block.
func (p *Pool) rescanFreeHint() {
	for pos := p.headOffset; pos != p.tailOffset; pos = p.next(pos) {
		if p.isFree(pos) {
			p.freeHintOffset = pos
			p.hasFreeHint = true
			return
		}
	}
	p.hasFreeHint = false
}
