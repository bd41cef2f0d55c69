// Package indexbuf implements the indexing buffer maps: per-term
// staging buffers that accumulate docids (and, depending on positional
// mode, term frequencies and positions) before they are flushed to the
// segment pool. A term starts at df_cutoff capacity, is promoted to
// B=128 the moment its df crosses that cutoff, and may keep doubling up
// to maxBlocks blocks if buffer expansion is enabled.
package indexbuf

import "pfsearch/codec"

// B is the standard flush block size.
const B = codec.BlockSize

// Buffer holds one term's pending, not-yet-flushed postings.
type Buffer struct {
	DocIDs []uint32
	TFs    []uint32   // nil unless the driver is running in a tf-bearing mode
	Pos    [][]uint32 // nil unless running positional; parallel to DocIDs

	// TailPtr is the pointer to the most recently flushed segment for
	// this term (forward mode: the tail; reverse mode: the head), so the
	// next flush knows what to link against.
	TailPtr int64

	pos int // write index; len(DocIDs[:pos]) is the live prefix
}

// Maps owns one Buffer per term id, plus the shared capacity policy
// (df_cutoff -> B -> maxBlocks).
type Maps struct {
	DFCutoff  int
	MaxBlocks int // 0 disables expansion past B

	buffers []*Buffer
}

// NewMaps creates an empty set of buffer maps with the given capacity
// policy. maxBlocks, if > 0, is the ceiling (in multiples of B) a
// buffer's capacity may double up to; 0 means "never grow past B".
func NewMaps(dfCutoff, maxBlocks int) *Maps {
	return &Maps{DFCutoff: dfCutoff, MaxBlocks: maxBlocks}
}

func (m *Maps) ensure(termID int) *Buffer {
	for len(m.buffers) <= termID {
		m.buffers = append(m.buffers, nil)
	}
	if m.buffers[termID] == nil {
		m.buffers[termID] = &Buffer{
			DocIDs:  make([]uint32, m.DFCutoff),
			TailPtr: -1, // storage.Undefined; indexbuf stays storage-agnostic
		}
	}
	return m.buffers[termID]
}

// Get returns the buffer for termID, creating it at df_cutoff capacity
// if it does not exist yet.
func (m *Maps) Get(termID int) *Buffer {
	return m.ensure(termID)
}

// Len returns one past the highest term id that has ever had a buffer
// created for it, so callers can range over every term's buffer without
// creating new ones.
func (m *Maps) Len() int {
	return len(m.buffers)
}

// Peek returns the buffer for termID without creating one, or nil if
// none exists.
func (m *Maps) Peek(termID int) *Buffer {
	if termID < 0 || termID >= len(m.buffers) {
		return nil
	}
	return m.buffers[termID]
}

// Len returns how many live (unflushed) entries the buffer holds.
func (b *Buffer) Len() int {
	return b.pos
}

// Cap returns the buffer's current docid capacity.
func (b *Buffer) Cap() int {
	return len(b.DocIDs)
}

// PromoteToBlockCapacity grows a buffer still sitting at its initial
// df_cutoff capacity up to B, preserving the entries already written.
// It is a no-op once the buffer has already reached B or beyond.
func (b *Buffer) PromoteToBlockCapacity() {
	if len(b.DocIDs) >= B {
		return
	}
	b.growDocIDsTo(B)
	if b.TFs != nil {
		b.growTFsTo(B)
	}
	if b.Pos != nil {
		b.growPosTo(B)
	}
}

func (b *Buffer) growPosTo(n int) {
	grown := make([][]uint32, n)
	copy(grown, b.Pos)
	b.Pos = grown
}

func (b *Buffer) growDocIDsTo(n int) {
	grown := make([]uint32, n)
	copy(grown, b.DocIDs)
	b.DocIDs = grown
}

func (b *Buffer) growTFsTo(n int) {
	grown := make([]uint32, n)
	copy(grown, b.TFs)
	b.TFs = grown
}

// EnableTF allocates the parallel tf buffer at the docid buffer's
// current capacity.
func (b *Buffer) EnableTF() {
	if b.TFs == nil {
		b.TFs = make([]uint32, len(b.DocIDs))
	}
}

// EnablePositions allocates the parallel per-document position-list
// slice.
func (b *Buffer) EnablePositions() {
	if b.Pos == nil {
		b.Pos = make([][]uint32, len(b.DocIDs))
	}
}

// Append writes docid (and, if non-nil, tf/positions) into the next
// free slot. The caller must have ensured capacity first (via
// PromoteToBlockCapacity / Expand). It returns the slot index written.
func (b *Buffer) Append(docid uint32, tf uint32, positions []uint32) int {
	i := b.pos
	b.DocIDs[i] = docid
	if b.TFs != nil {
		b.TFs[i] = tf
	}
	if b.Pos != nil {
		b.Pos[i] = positions
	}
	b.pos++
	return i
}

// Full reports whether the buffer has no remaining free slots.
func (b *Buffer) Full() bool {
	return b.pos >= len(b.DocIDs)
}

// Expand doubles the buffer's capacity, up to maxBlocks*B words, and
// reports whether it actually grew.
func (m *Maps) Expand(b *Buffer) bool {
	ceiling := m.MaxBlocks * B
	if ceiling == 0 || len(b.DocIDs) >= ceiling {
		return false
	}
	next := len(b.DocIDs) * 2
	if next > ceiling {
		next = ceiling
	}
	b.growDocIDsTo(next)
	if b.TFs != nil {
		b.growTFsTo(next)
	}
	if b.Pos != nil {
		b.growPosTo(next)
	}
	return true
}

// Reset clears the live prefix after a flush, zeroing the buffer's
// current capacity so stale values from a previous term generation
// never leak into a later block.
func (b *Buffer) Reset() {
	for i := range b.DocIDs {
		b.DocIDs[i] = 0
	}
	for i := range b.TFs {
		b.TFs[i] = 0
	}
	for i := range b.Pos {
		b.Pos[i] = nil
	}
	b.pos = 0
}

// FullBlocks splits the buffer's live prefix into [start, end) ranges
// of at most B entries each — zero or more full B-sized blocks followed
// by at most one short block (none when the live count is a multiple of
// B). An empty buffer yields no ranges.
func (b *Buffer) FullBlocks() [][2]int {
	var ranges [][2]int
	n := b.pos
	for start := 0; start < n; start += B {
		end := start + B
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
