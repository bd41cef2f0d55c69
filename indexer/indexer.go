// Package indexer implements the per-document indexing driver: it
// tokenises a document, interns terms, maintains collection and
// document statistics, stages postings in the indexbuf buffer maps, and
// flushes full (or, at shutdown, partial) blocks into the segment pool,
// splicing each newly written segment into its term's chain. One driver
// owns the dictionary, directory, buffers, and store, and is fed one
// document at a time by a caller that owns the input stream.
package indexer

import (
	"fmt"

	"pfsearch/dict"
	"pfsearch/directory"
	"pfsearch/docvec"
	"pfsearch/indexbuf"
	"pfsearch/input"
	"pfsearch/storage"
)

// Options configures a new Index's positional mode, chain direction,
// buffer capacity policy, and optional Bloom filter / document vector
// features, mirroring the indexer CLI surface.
type Options struct {
	Mode      storage.Mode
	Reverse   bool
	DFCutoff  int
	MaxBlocks int

	Bloom          bool
	BloomBitsPer   int
	BloomNumHashes int

	Vectors bool

	PoolCapacity int
}

// Index owns the dictionary, pointer directory, segment store, and
// indexing buffers for a single build. It is single-writer: only the
// driver mutates these structures during indexing.
type Index struct {
	Dict      *dict.Dictionary
	Directory *directory.Directory
	Store     *storage.Store
	Buffers   *indexbuf.Maps
	Vectors   *docvec.Store

	opts       Options
	nextTermID int

	// per-document scratch, reused across documents.
	seen     map[int]bool
	order    []int
	tf       map[int]uint32
	pos      map[int][]uint32
	vecBuild *docvec.Builder
}

// New creates an empty Index ready to receive documents.
func New(opts Options) *Index {
	if opts.PoolCapacity <= 0 {
		opts.PoolCapacity = storage.DefaultPoolCapacity
	}
	if opts.DFCutoff <= 0 {
		opts.DFCutoff = 1
	}
	store := storage.NewStore(opts.PoolCapacity, opts.Mode, opts.Reverse)
	if opts.Bloom {
		store.EnableBloom(opts.BloomBitsPer, opts.BloomNumHashes)
	}

	ix := &Index{
		Dict:      dict.New(),
		Directory: directory.New(),
		Store:     store,
		Buffers:   indexbuf.NewMaps(opts.DFCutoff, opts.MaxBlocks),
		opts:      opts,
		seen:      make(map[int]bool),
		tf:        make(map[int]uint32),
		pos:       make(map[int][]uint32),
	}
	if opts.Vectors {
		ix.Vectors = docvec.NewStore()
		ix.vecBuild = docvec.NewBuilder(32)
	}
	return ix
}

// IndexDocument runs the full per-document build step: tokenise,
// intern, update df/cf/max-tf, and stage or flush postings.
func (ix *Index) IndexDocument(doc input.Document) error {
	var position uint32 = 1

	for _, tok := range doc.Tokens {
		id := ix.Dict.Intern(tok, ix.nextTermID)
		if id == ix.nextTermID {
			ix.nextTermID++
		}
		if !ix.seen[id] {
			ix.seen[id] = true
			ix.order = append(ix.order, id)
		}
		ix.Directory.IncCF(id, 1)

		if ix.vecBuild != nil {
			ix.vecBuild.Append(uint32(id))
		}
		if ix.opts.Mode != storage.NonPositional {
			ix.tf[id]++
		}
		if ix.opts.Mode == storage.Positional {
			ix.pos[id] = append(ix.pos[id], position)
		}
		position++
	}

	docLen := position - 1
	ix.Directory.RecordDocument(doc.DocID, docLen)
	if ix.vecBuild != nil {
		ix.Vectors.Commit(doc.DocID, ix.vecBuild.Seal())
		ix.vecBuild.Reset()
	}

	avgDocLen := ix.Directory.AvgDocLen()
	for _, id := range ix.order {
		tf := uint32(1)
		if ix.opts.Mode != storage.NonPositional {
			tf = ix.tf[id]
		}
		ix.Directory.UpdateMaxTF(id, tf, docLen, avgDocLen)

		buf := ix.Buffers.Get(id)
		if ix.opts.Mode != storage.NonPositional {
			buf.EnableTF()
		}
		if ix.opts.Mode == storage.Positional {
			buf.EnablePositions()
		}

		df := ix.Directory.DF(id)
		if df < uint32(ix.opts.DFCutoff) {
			buf.Append(doc.DocID, tf, ix.pos[id])
			ix.Directory.IncDF(id)
			continue
		}

		buf.PromoteToBlockCapacity()
		buf.Append(doc.DocID, tf, ix.pos[id])
		ix.Directory.IncDF(id)
		if buf.Full() {
			if err := ix.flush(id, buf); err != nil {
				return fmt.Errorf("indexer: flushing term %d after doc %d: %w", id, doc.DocID, err)
			}
			ix.Buffers.Expand(buf)
			buf.Reset()
		}
	}

	for _, id := range ix.order {
		delete(ix.seen, id)
		delete(ix.tf, id)
		delete(ix.pos, id)
	}
	ix.order = ix.order[:0]
	return nil
}

// flush splits buf's live prefix into B-sized blocks (plus a possible
// short final block) and appends each as a new segment, splicing the
// chunk chain into the term's chain per the store's chain direction.
func (ix *Index) flush(termID int, buf *indexbuf.Buffer) error {
	ranges := buf.FullBlocks()
	if len(ranges) == 0 {
		return nil
	}

	// Dispatch on the positional mode once, up front; each block range
	// then goes through the single appender this build uses.
	var appendRange func(start, end int) (storage.Pointer, error)
	switch ix.opts.Mode {
	case storage.TFOnly:
		appendRange = func(start, end int) (storage.Pointer, error) {
			return ix.Store.AppendTFOnly(buf.DocIDs[start:end], buf.TFs[start:end])
		}
	case storage.Positional:
		appendRange = func(start, end int) (storage.Pointer, error) {
			return ix.Store.AppendPositional(buf.DocIDs[start:end], buf.TFs[start:end], buf.Pos[start:end])
		}
	default:
		appendRange = func(start, end int) (storage.Pointer, error) {
			return ix.Store.AppendNonPositional(buf.DocIDs[start:end])
		}
	}

	ptrs := make([]storage.Pointer, len(ranges))
	for i, r := range ranges {
		ptr, err := appendRange(r[0], r[1])
		if err != nil {
			return err
		}
		ptrs[i] = ptr
	}

	prev := storage.Pointer(buf.TailPtr)

	if ix.opts.Reverse {
		// Newest arrivals are at the end of ptrs; splice them so the
		// chain reads most-recent-first: last chunk becomes the new
		// head, each chunk points at the one before it, and the
		// oldest new chunk points at whatever was the head before
		// this flush.
		for i := len(ptrs) - 1; i > 0; i-- {
			if err := ix.Store.SetLink(ptrs[i], ptrs[i-1]); err != nil {
				return err
			}
		}
		if err := ix.Store.SetLink(ptrs[0], prev); err != nil {
			return err
		}
		newHead := ptrs[len(ptrs)-1]
		ix.Directory.SetHeadPtrReverse(termID, newHead)
		buf.TailPtr = int64(newHead)
		return nil
	}

	// Forward mode: the previous tail (if any) now points at the
	// first new chunk; chunks link in arrival order; the new tail is
	// the last chunk. head_ptr is set once, on the very first flush.
	if !prev.IsUndefined() {
		if err := ix.Store.SetLink(prev, ptrs[0]); err != nil {
			return err
		}
	}
	for i := 0; i < len(ptrs)-1; i++ {
		if err := ix.Store.SetLink(ptrs[i], ptrs[i+1]); err != nil {
			return err
		}
	}
	ix.Directory.SetHeadPtrForward(termID, ptrs[0])
	buf.TailPtr = int64(ptrs[len(ptrs)-1])
	return nil
}

// Finalize flushes every term's remaining buffered postings at the end
// of indexing: any full blocks plus a final short block. Terms whose df
// never crossed df_cutoff flush their small buffer here too — every
// term with pending postings ends up with a queryable chain.
func (ix *Index) Finalize() error {
	for termID := 0; termID < ix.Buffers.Len(); termID++ {
		buf := ix.Buffers.Peek(termID)
		if buf == nil || buf.Len() == 0 {
			continue
		}
		if err := ix.flush(termID, buf); err != nil {
			return fmt.Errorf("indexer: final flush of term %d: %w", termID, err)
		}
		buf.Reset()
	}
	return nil
}
