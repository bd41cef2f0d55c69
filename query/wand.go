package query

import (
	"container/heap"
	"sort"

	"pfsearch/storage"
)

// wandTerm pairs a term's cursor with its per-term upper-bound
// contribution to the score.
type wandTerm struct {
	id         int
	cursor     *postingCursor
	upperBound float64
}

// wand implements both WAND and MBWAND: a pivoted disjunctive top-k
// traversal that skips whole segments whose
// cumulative upper-bound contribution cannot beat the current
// kth-best score. withTF selects WAND's BM25 upper bound (true) versus
// MBWAND's IDF-only upper bound (false), which needs no tf decoding at
// all.
func (e *Evaluator) wand(ids []int, hits int, withTF bool) ([]ScoredDoc, error) {
	if hits <= 0 {
		hits = int(e.Directory.DF(ids[0]))
	}

	// tf decoding only happens when the index actually stores tf blocks;
	// against a non-positional index WAND degrades to scoring with tf=1.
	needTF := withTF && e.Store.Mode != storage.NonPositional

	terms := make([]*wandTerm, 0, len(ids))
	for _, id := range ids {
		c, err := newPostingCursor(e.Store, e.Directory.HeadPtr(id), needTF)
		if err != nil {
			return nil, err
		}
		if c.Done() {
			continue
		}
		ub := e.idf(id)
		if withTF {
			// MaxTF already stores the saturated bm25tf value seen for
			// this term (directory.UpdateMaxTF records bm25tf, not raw
			// tf), so it is used directly as the tf-side upper bound.
			ub *= e.Directory.MaxTF(id)
		}
		terms = append(terms, &wandTerm{id: id, cursor: c, upperBound: ub})
	}

	h := &scoreHeap{}
	heap.Init(h)
	threshold := 0.0

	for len(terms) > 0 {
		sort.Slice(terms, func(i, j int) bool {
			return cursorLess(terms[i].cursor, terms[j].cursor)
		})

		cum := 0.0
		pivot := -1
		for i, t := range terms {
			cum += t.upperBound
			if cum > threshold {
				pivot = i
				break
			}
		}
		if pivot == -1 {
			break
		}
		pivotDoc := terms[pivot].cursor.DocID()

		if terms[0].cursor.DocID() == pivotDoc {
			score := 0.0
			for _, t := range terms {
				if t.cursor.Done() || t.cursor.DocID() != pivotDoc {
					continue
				}
				if withTF {
					score += e.bm25Contribution(t.id, t.cursor.TF(), pivotDoc)
				} else {
					score += e.idf(t.id)
				}
			}
			pushCapped(h, ScoredDoc{DocID: pivotDoc, Score: score}, hits)
			if h.Len() == hits {
				threshold = (*h)[0].Score
			}
			for _, t := range terms {
				if !t.cursor.Done() && t.cursor.DocID() == pivotDoc {
					if err := t.cursor.Advance(); err != nil {
						return nil, err
					}
				}
			}
		} else {
			if err := terms[0].cursor.AdvanceTo(pivotDoc); err != nil {
				return nil, err
			}
		}

		live := terms[:0]
		for _, t := range terms {
			if !t.cursor.Done() {
				live = append(live, t)
			}
		}
		terms = live
	}

	return drainHeap(h), nil
}

// cursorLess orders two cursors by their current docid, respecting the
// chain's own traversal direction (ascending forward, descending
// reverse). A Done cursor never compares as "less" (it is filtered out
// before sorting touches it in practice, but this keeps sort.Slice
// total).
func cursorLess(a, b *postingCursor) bool {
	if a.Done() {
		return false
	}
	if b.Done() {
		return true
	}
	if a.reverse {
		return a.DocID() > b.DocID()
	}
	return a.DocID() < b.DocID()
}
