package storage

import (
	"fmt"

	"pfsearch/bloom"
	"pfsearch/codec"
)

// Mode selects what a segment carries alongside its docid block.
type Mode int

const (
	// NonPositional stores only docids.
	NonPositional Mode = iota
	// TFOnly stores docids and per-document term frequencies.
	TFOnly
	// Positional stores docids, term frequencies, and per-document
	// position lists.
	Positional
)

// Segment header field offsets, in words, from the start of a segment.
const (
	hdrReqSpace    = 0
	hdrLinkPool    = 1
	hdrLinkOffset  = 2
	hdrBoundaryDoc = 3
	hdrBloomOffset = 4
	hdrNumDocs     = 5
	hdrCSize       = 6
	hdrBodyStart   = 7
)

const linkPoolUndefined = uint32(0xFFFFFFFF)

// Store owns a PoolSet and the indexing mode its segments were written
// with, and is the only thing capable of building or decoding a segment.
type Store struct {
	Pools *PoolSet
	Mode  Mode

	UseBloom       bool
	BloomBitsPer   int
	BloomNumHashes int

	// Reverse records whether this store's chains are built in reverse
	// mode: a new segment is prepended (pointing at the old head, itself
	// becoming the new head_ptr) rather than appended after the old
	// tail. Before compression a reverse-mode block has its docids, tfs,
	// and position runs reversed in place, so docids descend within the
	// block and the chain reads most-recent-first. The indexing driver
	// reads this flag to decide how to splice a new segment into a
	// term's chain with SetLink.
	Reverse bool
}

// NewStore creates a Store over a fresh PoolSet with the given per-pool
// capacity.
func NewStore(poolCapacity int, mode Mode, reverse bool) *Store {
	return &Store{
		Pools:   NewPoolSet(poolCapacity),
		Mode:    mode,
		Reverse: reverse,
	}
}

// EnableBloom turns on per-segment Bloom filter summaries for segments
// appended from this point on.
func (s *Store) EnableBloom(bitsPerElement, numHashes int) {
	s.UseBloom = true
	s.BloomBitsPer = bitsPerElement
	s.BloomNumHashes = numHashes
}

// blockInput is one sealed block's worth of postings, ready to be
// compressed and appended as a new segment.
type blockInput struct {
	docids    []uint32
	tfs       []uint32   // nil unless Mode != NonPositional
	positions [][]uint32 // nil unless Mode == Positional; parallel to docids
}

func toFixedBlock(v []uint32) [codec.BlockSize]uint32 {
	var out [codec.BlockSize]uint32
	copy(out[:], v)
	return out
}

// reverseBlock reverses docids, tfs, and per-document position lists in
// lockstep, preserving within-document position order. This is the
// reverse-mode preparation step: compressing a block whose docids
// descend lets contains_docid walk a reverse chain most-recent-first
// without re-sorting at read time.
func reverseBlock(blk blockInput) blockInput {
	n := len(blk.docids)
	out := blockInput{docids: make([]uint32, n)}
	for i, d := range blk.docids {
		out.docids[n-1-i] = d
	}
	if blk.tfs != nil {
		out.tfs = make([]uint32, n)
		for i, tf := range blk.tfs {
			out.tfs[n-1-i] = tf
		}
	}
	if blk.positions != nil {
		out.positions = make([][]uint32, n)
		for i, p := range blk.positions {
			out.positions[n-1-i] = p
		}
	}
	return out
}

// Append compresses blk and writes it as a brand-new segment whose
// forward-link is Undefined. The caller is responsible for splicing it
// into a term's chain: in reverse mode, point the new segment at the
// previous head (via SetLink) and store its pointer as the new head; in
// forward mode, point the previous tail at the new segment (via
// SetLink) and leave head_ptr alone after its first write. This mirrors
// the pointer directory's forward-mode-first-write-only vs
// reverse-mode-rewrite-every-append contract.
func (s *Store) Append(blk blockInput) (Pointer, error) {
	if len(blk.docids) == 0 || len(blk.docids) > codec.BlockSize {
		return Undefined, fmt.Errorf("storage: block must hold 1..%d docs, got %d", codec.BlockSize, len(blk.docids))
	}

	if s.Reverse {
		blk = reverseBlock(blk)
	}

	docBlock := toFixedBlock(blk.docids)
	compressedDocs, csize := codec.Encode(docBlock, s.Reverse)

	body := make([]uint32, 0, csize+16)
	body = append(body, compressedDocs...)

	if s.Mode != NonPositional {
		if len(blk.tfs) != len(blk.docids) {
			return Undefined, fmt.Errorf("storage: tf count %d does not match docid count %d", len(blk.tfs), len(blk.docids))
		}
		tfBlock := toFixedBlock(blk.tfs)
		compressedTF, tfsize := codec.Encode(tfBlock, false)
		body = append(body, uint32(tfsize))
		body = append(body, compressedTF...)
	}

	if s.Mode == Positional {
		if len(blk.positions) != len(blk.docids) {
			return Undefined, fmt.Errorf("storage: position list count %d does not match docid count %d", len(blk.positions), len(blk.docids))
		}
		var flat []uint32
		for i, plist := range blk.positions {
			if uint32(len(plist)) != blk.tfs[i] {
				return Undefined, fmt.Errorf("storage: doc %d has %d positions but tf=%d", i, len(plist), blk.tfs[i])
			}
			flat = append(flat, plist...)
		}
		numBlocks := (len(flat) + codec.BlockSize - 1) / codec.BlockSize
		body = append(body, uint32(len(flat)), uint32(numBlocks))
		for b := 0; b < numBlocks; b++ {
			start := b * codec.BlockSize
			end := start + codec.BlockSize
			if end > len(flat) {
				end = len(flat)
			}
			chunk := toFixedBlock(flat[start:end])
			compressedPos, plen := codec.Encode(chunk, false)
			body = append(body, uint32(plen))
			body = append(body, compressedPos...)
		}
	}

	bloomOffset := uint32(0)
	var filterWords []uint32
	if s.UseBloom {
		bloomOffset = uint32(hdrBodyStart + len(body))
		f := bloom.New(len(blk.docids), s.BloomBitsPer, s.BloomNumHashes)
		for _, d := range blk.docids {
			f.Insert(d)
		}
		filterWords = bloom.SerializeWords(f)
	}

	boundary := blk.docids[len(blk.docids)-1]

	header := make([]uint32, hdrBodyStart)
	header[hdrLinkPool] = linkPoolUndefined
	header[hdrLinkOffset] = 0
	header[hdrBoundaryDoc] = boundary
	header[hdrBloomOffset] = bloomOffset
	header[hdrNumDocs] = uint32(len(blk.docids))
	header[hdrCSize] = uint32(csize)

	words := append(header, body...)
	words = append(words, filterWords...)
	words[hdrReqSpace] = uint32(len(words))

	ptr, err := s.Pools.writeSegment(words)
	if err != nil {
		return Undefined, err
	}
	if err := s.Pools.patchLink(ptr, Undefined); err != nil {
		return Undefined, err
	}
	return ptr, nil
}

// AppendNonPositional appends a docid-only block as a new segment.
func (s *Store) AppendNonPositional(docids []uint32) (Pointer, error) {
	if s.Mode != NonPositional {
		return Undefined, fmt.Errorf("storage: store mode %d does not take docid-only blocks", s.Mode)
	}
	return s.Append(blockInput{docids: docids})
}

// AppendTFOnly appends a docid+tf block as a new segment.
func (s *Store) AppendTFOnly(docids, tfs []uint32) (Pointer, error) {
	if s.Mode != TFOnly {
		return Undefined, fmt.Errorf("storage: store mode %d does not take tf-only blocks", s.Mode)
	}
	return s.Append(blockInput{docids: docids, tfs: tfs})
}

// AppendPositional appends a docid+tf+positions block as a new segment.
// positions is parallel to docids; each document's list must have
// exactly tf entries.
func (s *Store) AppendPositional(docids, tfs []uint32, positions [][]uint32) (Pointer, error) {
	if s.Mode != Positional {
		return Undefined, fmt.Errorf("storage: store mode %d does not take positional blocks", s.Mode)
	}
	return s.Append(blockInput{docids: docids, tfs: tfs, positions: positions})
}

// SetLink rewrites the forward-link field of the segment at ptr to
// point at target. Used by the indexing driver to splice a new segment
// into a term's chain: pointing a fresh head at the old head (reverse
// mode) or pointing the old tail at a fresh segment (forward mode).
func (s *Store) SetLink(ptr, target Pointer) error {
	return s.Pools.patchLink(ptr, target)
}

// header reads the fixed-size header fields of the segment at ptr.
type header struct {
	reqspace    uint32
	link        Pointer
	boundaryDoc uint32
	bloomOffset uint32
	numDocs     uint32
	csize       uint32
}

func (s *Store) readHeader(ptr Pointer) (header, error) {
	words, err := s.Pools.wordsAt(ptr, hdrBodyStart)
	if err != nil {
		return header{}, fmt.Errorf("storage: reading segment header at %v: %w", ptr, err)
	}
	h := header{
		reqspace:    words[hdrReqSpace],
		boundaryDoc: words[hdrBoundaryDoc],
		bloomOffset: words[hdrBloomOffset],
		numDocs:     words[hdrNumDocs],
		csize:       words[hdrCSize],
	}
	if words[hdrLinkPool] == linkPoolUndefined {
		h.link = Undefined
	} else {
		h.link = NewPointer(words[hdrLinkPool], words[hdrLinkOffset])
	}
	return h, nil
}

// Next returns the pointer to the next segment in ptr's chain, or
// Undefined if ptr is the chain's tail.
func (s *Store) Next(ptr Pointer) (Pointer, error) {
	h, err := s.readHeader(ptr)
	if err != nil {
		return Undefined, err
	}
	return h.link, nil
}

// NumDocs returns how many documents the segment at ptr holds.
func (s *Store) NumDocs(ptr Pointer) (int, error) {
	h, err := s.readHeader(ptr)
	if err != nil {
		return 0, err
	}
	return int(h.numDocs), nil
}

// BoundaryDocID returns the segment's boundary docid: the last docid
// encoded in the block, which is the block's maximum in a forward-built
// store and its minimum in a reverse-built one.
func (s *Store) BoundaryDocID(ptr Pointer) (uint32, error) {
	h, err := s.readHeader(ptr)
	if err != nil {
		return 0, err
	}
	return h.boundaryDoc, nil
}

// DecodeDocIDBlock decompresses and returns the docids stored in the
// segment at ptr, trimmed to the segment's actual document count.
func (s *Store) DecodeDocIDBlock(ptr Pointer) ([]uint32, error) {
	h, err := s.readHeader(ptr)
	if err != nil {
		return nil, err
	}
	compressed, err := s.Pools.wordsAt(NewPointer(ptr.PoolIndex(), ptr.Offset()+hdrBodyStart), int(h.csize))
	if err != nil {
		return nil, fmt.Errorf("storage: reading docid block at %v: %w", ptr, err)
	}
	decoded, err := codec.Decode(compressed, s.Reverse)
	if err != nil {
		return nil, fmt.Errorf("storage: decoding docid block at %v: %w", ptr, err)
	}
	return decoded[:h.numDocs], nil
}

func (s *Store) tfBlockOffset(ptr Pointer, h header) uint32 {
	return ptr.Offset() + hdrBodyStart + h.csize
}

// DecodeTFBlock decompresses and returns the per-document term
// frequencies stored in the segment at ptr. It is an error to call this
// on a Store whose Mode is NonPositional.
func (s *Store) DecodeTFBlock(ptr Pointer) ([]uint32, error) {
	if s.Mode == NonPositional {
		return nil, fmt.Errorf("storage: segment at %v carries no term frequencies in non-positional mode", ptr)
	}
	h, err := s.readHeader(ptr)
	if err != nil {
		return nil, err
	}
	tfsizePtr := NewPointer(ptr.PoolIndex(), s.tfBlockOffset(ptr, h))
	tfsize, err := s.Pools.wordAt(tfsizePtr)
	if err != nil {
		return nil, fmt.Errorf("storage: reading tf block size at %v: %w", ptr, err)
	}
	compressed, err := s.Pools.wordsAt(NewPointer(ptr.PoolIndex(), tfsizePtr.Offset()+1), int(tfsize))
	if err != nil {
		return nil, fmt.Errorf("storage: reading tf block at %v: %w", ptr, err)
	}
	decoded, err := codec.Decode(compressed, false)
	if err != nil {
		return nil, fmt.Errorf("storage: decoding tf block at %v: %w", ptr, err)
	}
	return decoded[:h.numDocs], nil
}

// positionStreamHeader locates the plen/numBlocks pair following a
// segment's tf block.
func (s *Store) positionStreamHeader(ptr Pointer) (plen, numBlocks uint32, bodyOffset uint32, err error) {
	if s.Mode != Positional {
		return 0, 0, 0, fmt.Errorf("storage: segment at %v carries no positions outside positional mode", ptr)
	}
	h, rerr := s.readHeader(ptr)
	if rerr != nil {
		return 0, 0, 0, rerr
	}
	tfsizePtr := NewPointer(ptr.PoolIndex(), s.tfBlockOffset(ptr, h))
	tfsize, rerr := s.Pools.wordAt(tfsizePtr)
	if rerr != nil {
		return 0, 0, 0, rerr
	}
	afterTF := tfsizePtr.Offset() + 1 + tfsize
	words, rerr := s.Pools.wordsAt(NewPointer(ptr.PoolIndex(), afterTF), 2)
	if rerr != nil {
		return 0, 0, 0, fmt.Errorf("storage: reading position stream header at %v: %w", ptr, rerr)
	}
	return words[0], words[1], afterTF + 2, nil
}

// PositionBlockCount returns how many 128-integer compressed chunks the
// segment's flattened position stream occupies.
func (s *Store) PositionBlockCount(ptr Pointer) (int, error) {
	_, numBlocks, _, err := s.positionStreamHeader(ptr)
	if err != nil {
		return 0, err
	}
	return int(numBlocks), nil
}

// DecodePositionBlock decompresses the blockIdx'th chunk of the
// segment's flattened position stream.
func (s *Store) DecodePositionBlock(ptr Pointer, blockIdx int) ([]uint32, error) {
	plen, numBlocks, bodyOffset, err := s.positionStreamHeader(ptr)
	if err != nil {
		return nil, err
	}
	if blockIdx < 0 || blockIdx >= int(numBlocks) {
		return nil, fmt.Errorf("storage: position block index %d out of range (have %d)", blockIdx, numBlocks)
	}
	offset := bodyOffset
	var blen uint32
	for b := 0; b <= blockIdx; b++ {
		lenPtr := NewPointer(ptr.PoolIndex(), offset)
		blen, err = s.Pools.wordAt(lenPtr)
		if err != nil {
			return nil, fmt.Errorf("storage: reading position block %d length at %v: %w", b, ptr, err)
		}
		if b == blockIdx {
			break
		}
		offset += 1 + blen
	}
	compressed, err := s.Pools.wordsAt(NewPointer(ptr.PoolIndex(), offset+1), int(blen))
	if err != nil {
		return nil, fmt.Errorf("storage: reading position block %d at %v: %w", blockIdx, ptr, err)
	}
	decoded, err := codec.Decode(compressed, false)
	if err != nil {
		return nil, fmt.Errorf("storage: decoding position block %d at %v: %w", blockIdx, ptr, err)
	}
	remaining := int(plen) - blockIdx*codec.BlockSize
	if remaining > codec.BlockSize {
		remaining = codec.BlockSize
	}
	if remaining < 0 {
		remaining = 0
	}
	return decoded[:remaining], nil
}

// DecodePositionsFor returns the position list belonging to the
// docIndex'th document (0-based, in block order) stored in the segment
// at ptr. It decodes only the position chunks that overlap that
// document's span in the flattened stream.
func (s *Store) DecodePositionsFor(ptr Pointer, docIndex int) ([]uint32, error) {
	tfs, err := s.DecodeTFBlock(ptr)
	if err != nil {
		return nil, err
	}
	if docIndex < 0 || docIndex >= len(tfs) {
		return nil, fmt.Errorf("storage: doc index %d out of range (have %d docs)", docIndex, len(tfs))
	}
	start := 0
	for i := 0; i < docIndex; i++ {
		start += int(tfs[i])
	}
	count := int(tfs[docIndex])
	if count == 0 {
		return nil, nil
	}
	end := start + count

	firstBlock := start / codec.BlockSize
	lastBlock := (end - 1) / codec.BlockSize

	var flat []uint32
	for b := firstBlock; b <= lastBlock; b++ {
		chunk, err := s.DecodePositionBlock(ptr, b)
		if err != nil {
			return nil, err
		}
		flat = append(flat, chunk...)
	}
	lo := start - firstBlock*codec.BlockSize
	hi := end - firstBlock*codec.BlockSize
	return flat[lo:hi], nil
}

// testSegment reports whether the segment at ptr's Bloom filter (if
// present) indicates docid may be a member. If the segment has no
// filter, it decodes the docid block and reports exact membership.
func (s *Store) testSegment(ptr Pointer, h header, docid uint32) (bool, error) {
	if h.bloomOffset == 0 {
		docs, err := s.DecodeDocIDBlock(ptr)
		if err != nil {
			return false, err
		}
		for _, d := range docs {
			if d == docid {
				return true, nil
			}
		}
		return false, nil
	}
	filterStart := NewPointer(ptr.PoolIndex(), ptr.Offset()+h.bloomOffset)
	remaining := int(h.reqspace) - int(h.bloomOffset)
	words, err := s.Pools.wordsAt(filterStart, remaining)
	if err != nil {
		return false, fmt.Errorf("storage: reading bloom filter at %v: %w", ptr, err)
	}
	f, _, err := bloom.DeserializeWords(words)
	if err != nil {
		return false, fmt.Errorf("storage: decoding bloom filter at %v: %w", ptr, err)
	}
	return f.Test(docid), nil
}

// ContainsDocID walks the chain starting at start, skipping segments
// whose boundary docid has not yet reached docid (forward mode: boundary
// below docid; reverse mode: boundary above docid), and tests the first
// segment that could hold it — exactly, if its boundary equals docid, or
// via its Bloom filter (falling back to a full decode when the segment
// carries no filter) otherwise. It returns whether docid may be present
// and the pointer to the segment actually tested, so repeated probes
// over ordered candidates can resume from there.
func (s *Store) ContainsDocID(start Pointer, docid uint32) (bool, Pointer, error) {
	ptr := start
	for !ptr.IsUndefined() {
		h, err := s.readHeader(ptr)
		if err != nil {
			return false, ptr, err
		}
		reached := h.boundaryDoc >= docid
		if s.Reverse {
			reached = h.boundaryDoc <= docid
		}
		if !reached {
			ptr = h.link
			continue
		}
		if h.boundaryDoc == docid {
			return true, ptr, nil
		}
		found, err := s.testSegment(ptr, h, docid)
		return found, ptr, err
	}
	return false, Undefined, nil
}
