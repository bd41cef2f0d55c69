package query

import "pfsearch/storage"

// postingCursor walks one term's chain in traversal order — ascending
// docid in a forward-built store, descending in a reverse-built one —
// decoding one segment at a time. It never consults a segment's Bloom
// filter: SvS, WAND, and MBWAND need exact membership, so they always
// decode the real docid (and, if requested, tf) block.
type postingCursor struct {
	store   *storage.Store
	reverse bool
	needTF  bool

	ptr  storage.Pointer
	docs []uint32
	tfs  []uint32
	idx  int
	done bool
}

func newPostingCursor(store *storage.Store, head storage.Pointer, needTF bool) (*postingCursor, error) {
	c := &postingCursor{store: store, reverse: store.Reverse, needTF: needTF, ptr: head}
	if head.IsUndefined() {
		c.done = true
		return c, nil
	}
	if err := c.loadSegment(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *postingCursor) loadSegment() error {
	docs, err := c.store.DecodeDocIDBlock(c.ptr)
	if err != nil {
		return err
	}
	c.docs = docs
	c.idx = 0
	if c.needTF {
		tfs, err := c.store.DecodeTFBlock(c.ptr)
		if err != nil {
			return err
		}
		c.tfs = tfs
	}
	return nil
}

// Done reports whether the cursor has exhausted the term's chain.
func (c *postingCursor) Done() bool { return c.done }

// DocID returns the docid at the cursor's current position. Must not be
// called when Done().
func (c *postingCursor) DocID() uint32 { return c.docs[c.idx] }

// TF returns the term frequency at the cursor's current position, or 1
// if the cursor was created without tf decoding.
func (c *postingCursor) TF() uint32 {
	if c.tfs == nil {
		return 1
	}
	return c.tfs[c.idx]
}

func (c *postingCursor) advanceSegment() error {
	next, err := c.store.Next(c.ptr)
	if err != nil {
		return err
	}
	if next.IsUndefined() {
		c.done = true
		return nil
	}
	c.ptr = next
	return c.loadSegment()
}

// Advance moves to the very next posting in the chain.
func (c *postingCursor) Advance() error {
	if c.done {
		return nil
	}
	c.idx++
	if c.idx >= len(c.docs) {
		return c.advanceSegment()
	}
	return nil
}

// segmentReached reports whether the current segment's boundary docid has
// progressed far enough, in the chain's own direction, that target
// could plausibly appear in it.
func (c *postingCursor) segmentReached(target uint32) (bool, error) {
	b, err := c.store.BoundaryDocID(c.ptr)
	if err != nil {
		return false, err
	}
	if c.reverse {
		return b <= target, nil
	}
	return b >= target, nil
}

func (c *postingCursor) aheadOrAt(d, target uint32) bool {
	if c.reverse {
		return d <= target
	}
	return d >= target
}

// AdvanceTo moves the cursor forward, skipping whole segments whose
// boundary docid has not yet reached target (the block-skipping walk
// behind SvS's probes and WAND/MBWAND's pivot advancement), stopping at
// the first posting at or past target in the chain's direction, or
// leaving the cursor Done if the chain runs out first.
func (c *postingCursor) AdvanceTo(target uint32) error {
	for !c.done {
		reached, err := c.segmentReached(target)
		if err != nil {
			return err
		}
		if !reached {
			if err := c.advanceSegment(); err != nil {
				return err
			}
			continue
		}
		for c.idx < len(c.docs) {
			if c.aheadOrAt(c.docs[c.idx], target) {
				return nil
			}
			c.idx++
		}
		if err := c.advanceSegment(); err != nil {
			return err
		}
	}
	return nil
}
