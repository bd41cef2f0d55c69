// Package storage implements the segment pool: a slab-allocated,
// chain-linked store of variable-sized postings segments. Segments hold
// PForDelta-compressed docid/tf/position blocks and an optional Bloom
// filter summary; a pool is a large, lazily-grown integer slab, and a
// fixed number of pools are available to a store before allocation is a
// fatal error. Segments are addressed by opaque (pool, offset) pointers;
// there are no owning references between segments, only indices into
// pools the store owns.
package storage

import (
	"errors"
	"fmt"
)

// NumberOfPools is the fixed number of pools preallocated (lazily, on
// first write) by a Store. Exceeding it is a fatal error.
const NumberOfPools = 4

// MaxPoolWords bounds the addressable offset within a single pool, since
// a Pointer only carries 32 bits of offset. Production stores should use
// DefaultPoolCapacity. Tests use small capacities to exercise
// pool-advance and out-of-pools behavior without allocating real memory.
const MaxPoolWords = 1<<31 - 1

// DefaultPoolCapacity is the per-pool capacity a production Store should
// use; kept well under MaxPoolWords so a single process can actually
// address it on a 64-bit system without integer overflow headaches.
const DefaultPoolCapacity = 1 << 28

// Pointer is an opaque reference to a segment: high 32 bits are the pool
// index, low 32 bits are the integer offset within that pool.
type Pointer int64

// Undefined signals "no such segment".
const Undefined Pointer = -1

// NewPointer packs a pool index and offset into a Pointer.
func NewPointer(poolIndex, offset uint32) Pointer {
	return Pointer(uint64(poolIndex)<<32 | uint64(offset))
}

// PoolIndex returns the pool index component of the pointer.
func (p Pointer) PoolIndex() uint32 {
	return uint32(uint64(p) >> 32)
}

// Offset returns the intra-pool offset component of the pointer.
func (p Pointer) Offset() uint32 {
	return uint32(uint64(p) & 0xFFFFFFFF)
}

// IsUndefined reports whether the pointer is the Undefined sentinel.
func (p Pointer) IsUndefined() bool {
	return p == Undefined
}

// ErrPoolsExhausted is returned (and should be treated as fatal by
// callers) when a write would need more pools than the store was
// configured with.
var ErrPoolsExhausted = errors.New("storage: out of pools")

// pool is a single append-only integer slab. words grows lazily; it is
// never pre-sized to capacity up front.
type pool struct {
	words    []uint32
	capacity int
}

func newPool(capacity int) *pool {
	return &pool{capacity: capacity}
}

func (p *pool) offset() uint32 {
	return uint32(len(p.words))
}

func (p *pool) fits(n int) bool {
	return len(p.words)+n <= p.capacity
}

func (p *pool) write(words []uint32) uint32 {
	at := p.offset()
	p.words = append(p.words, words...)
	return at
}

// PoolSet holds the fixed number of pools a Store writes into, advancing
// to the next pool whenever a segment would not fit in the current one.
type PoolSet struct {
	pools    [NumberOfPools]*pool
	current  int
	capacity int
}

// NewPoolSet creates an empty set of pools with the given per-pool
// capacity (in words). Pools are allocated lazily as writes touch them.
func NewPoolSet(capacity int) *PoolSet {
	ps := &PoolSet{capacity: capacity}
	ps.pools[0] = newPool(capacity)
	return ps
}

func (ps *PoolSet) activePool() *pool {
	return ps.pools[ps.current]
}

// reserve ensures there is room for n words in the active pool, advancing
// to the next pool (allocating it lazily) if necessary. It returns
// ErrPoolsExhausted if every pool is full.
func (ps *PoolSet) reserve(n int) error {
	if ps.activePool().fits(n) {
		return nil
	}
	for ps.current+1 < NumberOfPools {
		ps.current++
		if ps.pools[ps.current] == nil {
			ps.pools[ps.current] = newPool(ps.capacity)
		}
		if ps.activePool().fits(n) {
			return nil
		}
	}
	return fmt.Errorf("%w: need %d words, %d pools of capacity %d exhausted", ErrPoolsExhausted, n, NumberOfPools, ps.capacity)
}

// writeSegment reserves space for words and appends them, returning the
// Pointer to the newly written segment.
func (ps *PoolSet) writeSegment(words []uint32) (Pointer, error) {
	if err := ps.reserve(len(words)); err != nil {
		return Undefined, err
	}
	poolIdx := ps.current
	at := ps.activePool().write(words)
	return NewPointer(uint32(poolIdx), at), nil
}

// wordAt returns the word stored at ptr, or an error if the pointer is
// out of range.
func (ps *PoolSet) wordAt(ptr Pointer) (uint32, error) {
	idx := ptr.PoolIndex()
	if int(idx) >= NumberOfPools || ps.pools[idx] == nil {
		return 0, fmt.Errorf("storage: pointer %v references an unallocated pool", ptr)
	}
	p := ps.pools[idx]
	off := ptr.Offset()
	if int(off) >= len(p.words) {
		return 0, fmt.Errorf("storage: pointer %v offset past end of pool (len=%d)", ptr, len(p.words))
	}
	return p.words[off], nil
}

// wordsAt returns the n words starting at ptr.
func (ps *PoolSet) wordsAt(ptr Pointer, n int) ([]uint32, error) {
	idx := ptr.PoolIndex()
	if int(idx) >= NumberOfPools || ps.pools[idx] == nil {
		return nil, fmt.Errorf("storage: pointer %v references an unallocated pool", ptr)
	}
	p := ps.pools[idx]
	off := int(ptr.Offset())
	if off+n > len(p.words) {
		return nil, fmt.Errorf("storage: pointer %v..+%d past end of pool (len=%d)", ptr, n, len(p.words))
	}
	return p.words[off : off+n], nil
}

// patchLink overwrites the forward-link fields of the segment at ptr
// (offsets 1 and 2 of its header) to point at target. Used to splice a
// newly written segment into a chain.
func (ps *PoolSet) patchLink(ptr Pointer, target Pointer) error {
	idx := ptr.PoolIndex()
	if int(idx) >= NumberOfPools || ps.pools[idx] == nil {
		return fmt.Errorf("storage: pointer %v references an unallocated pool", ptr)
	}
	p := ps.pools[idx]
	off := int(ptr.Offset())
	if off+2 >= len(p.words) {
		return fmt.Errorf("storage: pointer %v header past end of pool", ptr)
	}
	if target.IsUndefined() {
		p.words[off+1] = uint32(0xFFFFFFFF)
		p.words[off+2] = 0
	} else {
		p.words[off+1] = target.PoolIndex()
		p.words[off+2] = target.Offset()
	}
	return nil
}
