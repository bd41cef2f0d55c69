package query

import (
	"sort"

	"pfsearch/storage"
)

// bwandAND implements BWAND_AND: a conjunctive retrieval that trusts
// the shortest term's exact posting list for candidates and
// tests every other query term's chain through its Bloom filter only
// (store.ContainsDocID falls back to an exact scan when a term's chain
// carries no filter, so this degrades gracefully on a non-Bloom index).
func (e *Evaluator) bwandAND(ids []int, hits int) ([]ScoredDoc, error) {
	if hits <= 0 {
		hits = int(e.Directory.DF(ids[0]))
	}

	short, err := newPostingCursor(e.Store, e.Directory.HeadPtr(ids[0]), false)
	if err != nil {
		return nil, err
	}

	otherIDs := ids[1:]
	probePtrs := make([]storage.Pointer, len(otherIDs))
	for i, id := range otherIDs {
		probePtrs[i] = e.Directory.HeadPtr(id)
	}

	var out []ScoredDoc
	for !short.Done() && len(out) < hits {
		d := short.DocID()
		matched := true
		score := e.idf(ids[0])
		for i, id := range otherIDs {
			found, newPtr, err := e.Store.ContainsDocID(probePtrs[i], d)
			if err != nil {
				return nil, err
			}
			probePtrs[i] = newPtr
			if !found {
				matched = false
				break
			}
			score += e.idf(id)
		}
		if matched {
			out = append(out, ScoredDoc{DocID: d, Score: score})
		}
		if err := short.Advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bwandOR implements BWAND_OR: the candidate set is the
// union of every query term's exact posting list (a Bloom filter alone
// cannot enumerate members, only test them), and each candidate's score
// is the sum of the IDF weights of the query terms whose Bloom chain it
// passes.
func (e *Evaluator) bwandOR(ids []int, hits int) ([]ScoredDoc, error) {
	if hits <= 0 {
		hits = int(e.Directory.DF(ids[0]))
	}

	seen := make(map[uint32]bool)
	var candidates []uint32
	for _, id := range ids {
		c, err := newPostingCursor(e.Store, e.Directory.HeadPtr(id), false)
		if err != nil {
			return nil, err
		}
		for !c.Done() {
			d := c.DocID()
			if !seen[d] {
				seen[d] = true
				candidates = append(candidates, d)
			}
			if err := c.Advance(); err != nil {
				return nil, err
			}
		}
	}

	reverse := e.Store.Reverse
	sort.Slice(candidates, func(i, j int) bool {
		if reverse {
			return candidates[i] > candidates[j]
		}
		return candidates[i] < candidates[j]
	})

	probePtrs := make([]storage.Pointer, len(ids))
	for i, id := range ids {
		probePtrs[i] = e.Directory.HeadPtr(id)
	}

	scored := make([]ScoredDoc, 0, len(candidates))
	for _, d := range candidates {
		score := 0.0
		for i, id := range ids {
			found, newPtr, err := e.Store.ContainsDocID(probePtrs[i], d)
			if err != nil {
				return nil, err
			}
			probePtrs[i] = newPtr
			if found {
				score += e.idf(id)
			}
		}
		scored = append(scored, ScoredDoc{DocID: d, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DocID < scored[j].DocID
	})
	if hits < len(scored) {
		scored = scored[:hits]
	}
	return scored, nil
}
