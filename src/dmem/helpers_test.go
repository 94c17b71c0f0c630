package dmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool mirrors the teacher's "var pool BuddyPool; buddyInit(&pool, size)"
// setup, but over a plain aligned byte slice instead of mmap'd memory.
func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	buf := make([]byte, size)
	p, status := NewPool(buf, DefaultConfig())
	require.Equal(t, InitOK, status)
	return p
}

// assertInvariants walks the block list from head to tail and checks
// spec.md §8's universal invariants: every reachable header is valid, the
// list tiles with no gaps, no two adjacent blocks are both free, and
// free_bytes matches the sum of free payloads.
func assertInvariants(t *testing.T, p *Pool) {
	t.Helper()

	var sum uint32
	prevWasFree := false
	pos := p.headOffset
	seen := 0
	for {
		assert.True(t, p.valid(pos), "block at offset %d has invalid magic", pos)

		if pos == p.tailOffset {
			assert.True(t, p.isUsed(pos), "tail must always be used")
			break
		}

		nextOff := p.next(pos)
		assert.Equal(t, pos, p.prev(nextOff), "block at %d's successor does not point back", pos)
		assert.Equal(t, nextOff, pos+p.headerSize+p.payloadSize(pos), "block at %d is not tiled against its successor", pos)

		free := p.isFree(pos)
		if free {
			sum += p.payloadSize(pos)
			assert.False(t, prevWasFree, "two adjacent free blocks at offset %d", pos)
		}
		prevWasFree = free

		pos = nextOff
		seen++
		if seen > 10000 {
			t.Fatal("block list does not terminate at tail")
		}
	}

	assert.Equal(t, sum, p.freeBytes, "free_bytes does not match sum of free payloads")
}

func payloadBytes(ptr unsafe.Pointer, n uint32) []byte {
	return unsafe.Slice((*byte)(ptr), n)
}
