// Package docvec implements optional per-document term-id vectors: the
// sequence of term ids a document was built from, in position order,
// compressed with the codec package once the document is sealed.
package docvec

import (
	"encoding/binary"
	"fmt"
	"io"

	"pfsearch/codec"
)

// Builder accumulates one document's term-id stream before it is
// sealed and compressed.
type Builder struct {
	ids []uint32
	pos int
}

// NewBuilder creates an empty per-document scratch buffer with initial
// capacity.
func NewBuilder(initialCapacity int) *Builder {
	if initialCapacity <= 0 {
		initialCapacity = 16
	}
	return &Builder{ids: make([]uint32, initialCapacity)}
}

// expand grows the backing array to at least n entries. The grown array
// is always the one kept and handed back; its fresh tail is zero.
func expand(ids []uint32, n int) []uint32 {
	if n <= len(ids) {
		return ids
	}
	grown := make([]uint32, n)
	copy(grown, ids)
	return grown
}

// Append adds termID at the next position, growing the backing array
// (doubling) if needed.
func (b *Builder) Append(termID uint32) {
	if b.pos >= len(b.ids) {
		b.ids = expand(b.ids, len(b.ids)*2)
	}
	b.ids[b.pos] = termID
	b.pos++
}

// Len returns how many term ids have been appended.
func (b *Builder) Len() int {
	return b.pos
}

// Seal returns the document's term-id stream, trimmed to its actual
// length, ready to be compressed and stored.
func (b *Builder) Seal() []uint32 {
	return append([]uint32(nil), b.ids[:b.pos]...)
}

// Reset clears the builder for reuse on the next document.
func (b *Builder) Reset() {
	b.pos = 0
}

// Store holds compressed document vectors keyed by docid.
type Store struct {
	vectors map[uint32][]uint32 // docid -> compressed codec blocks, concatenated
	lengths map[uint32]int      // docid -> true element count
}

// NewStore creates an empty document-vector store.
func NewStore() *Store {
	return &Store{
		vectors: make(map[uint32][]uint32),
		lengths: make(map[uint32]int),
	}
}

// Commit compresses ids (a sealed document's term-id stream) in
// BlockSize-sized chunks and stores it under docid.
func (s *Store) Commit(docid uint32, ids []uint32) {
	if len(ids) == 0 {
		s.lengths[docid] = 0
		s.vectors[docid] = nil
		return
	}
	var compressed []uint32
	for start := 0; start < len(ids); start += codec.BlockSize {
		end := start + codec.BlockSize
		var chunk [codec.BlockSize]uint32
		if end > len(ids) {
			copy(chunk[:], ids[start:])
		} else {
			copy(chunk[:], ids[start:end])
		}
		block, size := codec.Encode(chunk, false)
		compressed = append(compressed, uint32(size))
		compressed = append(compressed, block...)
	}
	s.vectors[docid] = compressed
	s.lengths[docid] = len(ids)
}

// Len returns how many documents have a committed vector.
func (s *Store) Len() int {
	return len(s.lengths)
}

// Get decompresses and returns the term-id stream stored for docid, or
// nil if no vector was committed for it.
func (s *Store) Get(docid uint32) ([]uint32, error) {
	length, ok := s.lengths[docid]
	if !ok || length == 0 {
		return nil, nil
	}
	compressed := s.vectors[docid]

	var out []uint32
	offset := 0
	for offset < len(compressed) {
		size := int(compressed[offset])
		offset++
		decoded, err := codec.Decode(compressed[offset:offset+size], false)
		if err != nil {
			return nil, fmt.Errorf("docvec: decoding vector for doc %d: %w", docid, err)
		}
		out = append(out, decoded[:]...)
		offset += size
	}
	if len(out) > length {
		out = out[:length]
	}
	return out, nil
}

// Write serializes every committed vector as (docid, length, words...)
// triples terminated by a docid of -1 (encoded as 0xFFFFFFFF), matching
// the file's documented "capacity, then triples... terminated by i=-1"
// layout: capacity here is the number of triples that follow.
func (s *Store) Write(w io.Writer) error {
	capacity := uint32(len(s.lengths))
	if err := binary.Write(w, binary.LittleEndian, capacity); err != nil {
		return fmt.Errorf("docvec: failed to write capacity: %w", err)
	}
	for docid, length := range s.lengths {
		if err := binary.Write(w, binary.LittleEndian, docid); err != nil {
			return fmt.Errorf("docvec: failed to write docid: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(length)); err != nil {
			return fmt.Errorf("docvec: failed to write length: %w", err)
		}
		compressed := s.vectors[docid]
		if err := binary.Write(w, binary.LittleEndian, uint32(len(compressed))); err != nil {
			return fmt.Errorf("docvec: failed to write compressed word count: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, compressed); err != nil {
			return fmt.Errorf("docvec: failed to write compressed data: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0xFFFFFFFF)); err != nil {
		return fmt.Errorf("docvec: failed to write terminator: %w", err)
	}
	return nil
}

// Read reconstructs a Store previously written with Write.
func Read(r io.Reader) (*Store, error) {
	s := NewStore()

	var capacity uint32
	if err := binary.Read(r, binary.LittleEndian, &capacity); err != nil {
		return nil, fmt.Errorf("docvec: failed to read capacity: %w", err)
	}
	for i := uint32(0); i < capacity; i++ {
		var docid, length, wordCount uint32
		if err := binary.Read(r, binary.LittleEndian, &docid); err != nil {
			return nil, fmt.Errorf("docvec: failed to read docid: %w", err)
		}
		if docid == 0xFFFFFFFF {
			return s, nil
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("docvec: failed to read length: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &wordCount); err != nil {
			return nil, fmt.Errorf("docvec: failed to read compressed word count: %w", err)
		}
		compressed := make([]uint32, wordCount)
		if err := binary.Read(r, binary.LittleEndian, compressed); err != nil {
			return nil, fmt.Errorf("docvec: failed to read compressed data: %w", err)
		}
		s.lengths[docid] = int(length)
		s.vectors[docid] = compressed
	}

	var terminator uint32
	if err := binary.Read(r, binary.LittleEndian, &terminator); err != nil {
		return nil, fmt.Errorf("docvec: failed to read terminator: %w", err)
	}
	if terminator != 0xFFFFFFFF {
		return nil, fmt.Errorf("docvec: missing terminator after %d entries", capacity)
	}
	return s, nil
}
