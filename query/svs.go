package query

import "pfsearch/storage"

// svs implements the conjunctive Set-versus-Set top-k traversal: walk
// the shortest posting list and probe every longer
// list with a block-skipping exact lookup, emitting docids present in
// every list, in the chain's own traversal order, capped at hits
// (defaulting to the shortest list's df when hits <= 0).
func (e *Evaluator) svs(ids []int, hits int) ([]ScoredDoc, error) {
	shortHead := e.Directory.HeadPtr(ids[0])
	if hits <= 0 {
		hits = int(e.Directory.DF(ids[0]))
	}
	// Non-positional segments carry no tf block; cursors then report tf=1.
	needTF := e.Store.Mode != storage.NonPositional

	short, err := newPostingCursor(e.Store, shortHead, needTF)
	if err != nil {
		return nil, err
	}

	probes := make([]*postingCursor, len(ids)-1)
	for i, id := range ids[1:] {
		c, err := newPostingCursor(e.Store, e.Directory.HeadPtr(id), needTF)
		if err != nil {
			return nil, err
		}
		probes[i] = c
	}

	var out []ScoredDoc
	for !short.Done() && len(out) < hits {
		d := short.DocID()
		matched := true
		score := e.bm25Contribution(ids[0], short.TF(), d)
		for i, c := range probes {
			if err := c.AdvanceTo(d); err != nil {
				return nil, err
			}
			if c.Done() || c.DocID() != d {
				matched = false
				break
			}
			score += e.bm25Contribution(ids[i+1], c.TF(), d)
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

// bm25Contribution computes a single term's BM25 score contribution for
// docid given its term frequency there.
func (e *Evaluator) bm25Contribution(termID int, tf uint32, docid uint32) float64 {
	return e.idf(termID) * e.Directory.BM25TF(float64(tf), e.docLen(docid), e.Directory.AvgDocLen())
}
