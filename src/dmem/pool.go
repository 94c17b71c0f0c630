// Package dmem implements a fixed-pool dynamic memory allocator for
// environments without a system malloc: it manages a single caller-supplied
// contiguous byte region and vends variable-sized aligned sub-allocations
// from it, tracking live blocks in an embedded doubly-linked list so that
// adjacent free regions coalesce on release.
//
// The design is the "small-memory" allocator style found in real-time
// kernels: a single sweep list, first-fit search from a leftmost-free
// hint, in-band metadata, and immediate neighbor coalescing on free. There
// is no best-fit, no segregated free lists, no slab tiers, and no growth
// beyond the buffer the caller hands in.
package dmem

import (
	"sync"
	"unsafe"
)

// blockMagic distinguishes a real block header from arbitrary payload
// bytes. It is the only corruption signal the allocator has.
const blockMagic uint16 = 0xF00D

// DefaultAlignment is the payload/header alignment used when Config leaves
// Alignment unset, matching the reference allocator's default.
const DefaultAlignment uint32 = 4

// blockHeader is the fixed-size record placed in-band at the start of
// every block. Navigation is offset-based, not pointer-based, so that
// relocating the backing buffer only requires rebasing Pool.buf.
type blockHeader struct {
	magic      uint16
	used       bool
	prevOffset uint32
	nextOffset uint32
}

// Config is the compile-time configuration surface of the reference
// allocator (spec.md's alignment / min_alloc_size / trace_enabled /
// legacy_report_api), realized here as runtime fields of a value passed to
// Init since Go has no preprocessor.
type Config struct {
	// Alignment governs payload alignment and header placement. Must be a
	// power of two and at least 4 (blockHeader's offset fields need 4-byte
	// alignment for the unsafe overlay to be safe on strict-alignment
	// architectures). Zero means DefaultAlignment.
	Alignment uint32
	// MinAllocSize is the floor on every allocation's payload size. Zero
	// means Alignment.
	MinAllocSize uint32
	// Tracer receives diagnostic events. Nil means NoopTracer{}, the
	// equivalent of compiling trace_enabled out.
	Tracer Tracer
	// Locker guards every public entry point. Nil means a private
	// *sync.Mutex, matching the reference allocator's embedded mutex.
	Locker Locker
	// LegacyReportAPI gates (*Pool).LegacyReport, the non-reentrant report
	// getter kept for parity with the reference allocator.
	LegacyReportAPI bool
}

// DefaultConfig returns the Config the reference allocator ships with:
// 4-byte alignment, minimum allocation equal to alignment, tracing
// disabled, and the legacy report API compiled in.
func DefaultConfig() Config {
	return Config{
		Alignment:       DefaultAlignment,
		MinAllocSize:    DefaultAlignment,
		Tracer:          NoopTracer{},
		LegacyReportAPI: true,
	}
}

func (c Config) withDefaults() Config {
	if c.Alignment == 0 {
		c.Alignment = DefaultAlignment
	}
	if c.Alignment < 4 {
		c.Alignment = 4
	}
	if c.MinAllocSize == 0 {
		c.MinAllocSize = c.Alignment
	}
	if c.MinAllocSize < c.Alignment {
		c.MinAllocSize = c.Alignment
	}
	if c.Tracer == nil {
		c.Tracer = NoopTracer{}
	}
	if c.Locker == nil {
		c.Locker = &sync.Mutex{}
	}
	return c
}

// InitStatus is the result of (*Pool).Init, matching spec.md's stable
// numeric error contract for initialization.
type InitStatus int

const (
	InitOK        InitStatus = 0
	InitPoolNull  InitStatus = -1
	InitSizeSmall InitStatus = -2
	InitPoolAlign InitStatus = -3
)

// FreeStatus is the result of (*Pool).Free, matching spec.md's stable
// numeric error contract for release.
type FreeStatus int

const (
	FreeOK         FreeStatus = 0
	FreeNullPtr    FreeStatus = -1
	FreeInvalidMem FreeStatus = -2
	FreeRepeated   FreeStatus = -3
)

// Pool is the manager of one caller-owned byte region. Its zero value is
// not ready for use; call Init (or NewPool) first. Re-initializing a live
// pool is permitted and abandons any previously vended pointers, which is
// the caller's problem, exactly as in the reference allocator.
type Pool struct {
	cfg Config

	buf        []byte
	size       uint32
	headerSize uint32

	headOffset uint32
	tailOffset uint32

	hasFreeHint    bool
	freeHintOffset uint32

	freeBytes   uint32
	maxUsage    uint32
	initialFree uint32

	legacyReport Report
	metrics      *poolMetrics
	metricsOnce  sync.Once
}

// NewPool allocates a Pool and initializes it over buf, the way
//
//	var pool BuddyPool
//	buddyInit(&pool, size)
//
// reads in the teacher allocator, collapsed into a single constructor call.
func NewPool(buf []byte, cfg Config) (*Pool, InitStatus) {
	p := &Pool{}
	status := p.Init(buf, cfg)
	return p, status
}

// Init places a head sentinel, a tail sentinel, and seeds every counter
// over buf. size is taken from len(buf) and rounded down to a multiple of
// cfg.Alignment; buf's base address must already be cfg.Alignment-aligned.
func (p *Pool) Init(buf []byte, cfg Config) InitStatus {
	cfg = cfg.withDefaults()

	*p = Pool{}
	p.cfg = cfg

	if buf == nil {
		cfg.Tracer.Trace(LevelError, "pool buffer is nil")
		return InitPoolNull
	}
	if len(buf) == 0 {
		cfg.Tracer.Trace(LevelError, "pool buffer is empty")
		return InitSizeSmall
	}

	base := uintptr(unsafe.Pointer(&buf[0]))
	if base%uintptr(cfg.Alignment) != 0 {
		cfg.Tracer.Trace(LevelWarning, "pool base address %#x is not %d-byte aligned", base, cfg.Alignment)
		return InitPoolAlign
	}

	headerSize := roundUpAlign(uint32(unsafe.Sizeof(blockHeader{})), cfg.Alignment)
	size := roundDownAlign(uint32(len(buf)), cfg.Alignment)
	if size < cfg.MinAllocSize+headerSize*2 {
		cfg.Tracer.Trace(LevelError, "pool size %d bytes is too small (need at least %d)", len(buf), cfg.MinAllocSize+headerSize*2)
		return InitSizeSmall
	}

	p.buf = buf[:size]
	p.size = size
	p.headerSize = headerSize

	tailOffset := size - headerSize

	head := p.headerAt(0)
	head.magic = blockMagic
	head.used = false
	head.prevOffset = 0
	head.nextOffset = tailOffset

	tail := p.headerAt(tailOffset)
	tail.magic = blockMagic
	tail.used = true
	tail.prevOffset = 0
	tail.nextOffset = tailOffset

	p.headOffset = 0
	p.tailOffset = tailOffset
	p.hasFreeHint = true
	p.freeHintOffset = 0

	p.freeBytes = p.payloadSize(0)
	p.initialFree = p.freeBytes
	p.maxUsage = size - p.freeBytes

	cfg.Tracer.Trace(LevelInfo, "initialized pool: size=%d bytes free=%d bytes header=%d bytes", size, p.freeBytes, headerSize)
	return InitOK
}

func roundUpAlign(n, a uint32) uint32   { return (n + a - 1) &^ (a - 1) }
func roundDownAlign(n, a uint32) uint32 { return n &^ (a - 1) }
