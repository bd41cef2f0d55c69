// Package query implements the five evaluator traversal algorithms —
// SvS (conjunctive top-k), WAND and MBWAND (disjunctive top-k with
// pivoted threshold skipping), and BWAND_AND/BWAND_OR (Bloom-filter
// approximate retrieval) — over chains of segments built by the
// storage/directory/dict packages, ranked with BM25/IDF.
package query

import (
	"fmt"
	"sort"

	"pfsearch/dict"
	"pfsearch/directory"
	"pfsearch/storage"
)

// Algorithm names one of the five evaluator strategies the CLI accepts.
type Algorithm string

const (
	SvS      Algorithm = "SvS"
	WAND     Algorithm = "WAND"
	MBWAND   Algorithm = "MBWAND"
	BWANDOr  Algorithm = "BWAND_OR"
	BWANDAnd Algorithm = "BWAND_AND"
)

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	DocID uint32
	Score float64
}

// Evaluator runs queries over a fully built index. It treats the
// dictionary, directory, and store as read-only — a caller may safely
// run many Evaluators concurrently over the same handles, each with its
// own query-scoped scratch state.
type Evaluator struct {
	Dict      *dict.Dictionary
	Directory *directory.Directory
	Store     *storage.Store
}

// New creates an Evaluator over a built index.
func New(d *dict.Dictionary, dir *directory.Directory, store *storage.Store) *Evaluator {
	return &Evaluator{Dict: d, Directory: dir, Store: store}
}

// resolveTerms drops query terms absent from the dictionary or with an
// empty posting list, then sorts the survivors by ascending document
// frequency. Every algorithm shares this preamble.
func (e *Evaluator) resolveTerms(terms []string) []int {
	var ids []int
	for _, t := range terms {
		id := e.Dict.Lookup(t)
		if id < 0 {
			continue
		}
		if e.Directory.DF(id) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return e.Directory.DF(ids[i]) < e.Directory.DF(ids[j])
	})
	return ids
}

// Run dispatches to the named algorithm. An empty query (every term
// dropped by resolveTerms) yields an empty result, never an error.
func (e *Evaluator) Run(algo Algorithm, terms []string, hits int) ([]ScoredDoc, error) {
	ids := e.resolveTerms(terms)
	if len(ids) == 0 {
		return nil, nil
	}
	switch algo {
	case SvS:
		return e.svs(ids, hits)
	case WAND:
		return e.wand(ids, hits, true)
	case MBWAND:
		return e.wand(ids, hits, false)
	case BWANDOr:
		return e.bwandOR(ids, hits)
	case BWANDAnd:
		return e.bwandAND(ids, hits)
	default:
		return nil, fmt.Errorf("query: unknown algorithm %q", algo)
	}
}

// idf returns the BM25 inverse document frequency for termID.
func (e *Evaluator) idf(termID int) float64 {
	return directory.IDF(e.Directory.TotalDocs, e.Directory.DF(termID))
}

// docLen returns docid's recorded length, or the corpus average if the
// docid was never recorded (defensive; should not happen against a
// consistent index).
func (e *Evaluator) docLen(docid uint32) float64 {
	if int(docid) < len(e.Directory.DocLen) {
		return float64(e.Directory.DocLen[docid])
	}
	return e.Directory.AvgDocLen()
}
