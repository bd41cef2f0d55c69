// Package directory implements the pointer directory: per-term head
// pointer, document frequency, collection frequency, and BM25 max-tf
// bookkeeping, plus corpus-level totals and a dense per-document length
// table.
package directory

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"pfsearch/storage"
)

// BM25 defaults.
const (
	DefaultK1 = 0.9
	DefaultB  = 0.4
)

// entry holds the per-term directory fields.
type entry struct {
	headPtr     storage.Pointer
	df          uint32
	cf          uint32
	maxTF       float64
	maxTFDocLen uint32
}

// Directory is the pointer directory: reading an absent term yields
// df=0, cf=0, head_ptr=Undefined.
type Directory struct {
	entries []entry

	TotalDocs   uint64
	TotalDocLen uint64
	DocLen      []uint32 // dense, indexed by docid

	K1 float64
	B  float64
}

// New creates an empty directory using the default BM25 constants.
func New() *Directory {
	return &Directory{K1: DefaultK1, B: DefaultB}
}

func (d *Directory) ensure(termID int) {
	for len(d.entries) <= termID {
		d.entries = append(d.entries, entry{headPtr: storage.Undefined})
	}
}

// HeadPtr returns the term's head pointer, or storage.Undefined if the
// term has never been posted.
func (d *Directory) HeadPtr(termID int) storage.Pointer {
	if termID < 0 || termID >= len(d.entries) {
		return storage.Undefined
	}
	return d.entries[termID].headPtr
}

// DF returns the term's document frequency (0 if never seen).
func (d *Directory) DF(termID int) uint32 {
	if termID < 0 || termID >= len(d.entries) {
		return 0
	}
	return d.entries[termID].df
}

// CF returns the term's collection frequency (0 if never seen).
func (d *Directory) CF(termID int) uint32 {
	if termID < 0 || termID >= len(d.entries) {
		return 0
	}
	return d.entries[termID].cf
}

// MaxTF returns the term's recorded maximum BM25-tf saturation value.
func (d *Directory) MaxTF(termID int) float64 {
	if termID < 0 || termID >= len(d.entries) {
		return 0
	}
	return d.entries[termID].maxTF
}

// MaxTFDocLen returns the document length recorded alongside MaxTF.
func (d *Directory) MaxTFDocLen(termID int) uint32 {
	if termID < 0 || termID >= len(d.entries) {
		return 0
	}
	return d.entries[termID].maxTFDocLen
}

// SetHeadPtrForward sets head_ptr the first time only (forward-mode,
// first-write-only semantics); later calls are no-ops.
func (d *Directory) SetHeadPtrForward(termID int, ptr storage.Pointer) {
	d.ensure(termID)
	if d.entries[termID].headPtr.IsUndefined() {
		d.entries[termID].headPtr = ptr
	}
}

// SetHeadPtrReverse rewrites head_ptr on every call (reverse-mode
// semantics, where each newly appended segment becomes the new head).
func (d *Directory) SetHeadPtrReverse(termID int, ptr storage.Pointer) {
	d.ensure(termID)
	d.entries[termID].headPtr = ptr
}

// IncDF bumps the term's document frequency by one.
func (d *Directory) IncDF(termID int) {
	d.ensure(termID)
	d.entries[termID].df++
}

// IncCF bumps the term's collection frequency by count.
func (d *Directory) IncCF(termID int, count uint32) {
	d.ensure(termID)
	d.entries[termID].cf += count
}

// BM25TF computes the BM25 term-frequency saturation component using
// the directory's configured K1/B.
func (d *Directory) BM25TF(tf float64, docLen, avgDocLen float64) float64 {
	return ((d.K1 + 1) * tf) / (d.K1*(1-d.B+d.B*docLen/avgDocLen) + tf)
}

// UpdateMaxTF updates the term's recorded maximum BM25-tf if this
// document's value exceeds it, using avgDocLen as observed at the
// moment of the update (the running corpus average, not a final one).
func (d *Directory) UpdateMaxTF(termID int, tf uint32, docLen uint32, avgDocLen float64) {
	d.ensure(termID)
	v := d.BM25TF(float64(tf), float64(docLen), avgDocLen)
	if v > d.entries[termID].maxTF {
		d.entries[termID].maxTF = v
		d.entries[termID].maxTFDocLen = docLen
	}
}

// AvgDocLen returns the corpus's running average document length, or 0
// if no documents have been recorded yet.
func (d *Directory) AvgDocLen() float64 {
	if d.TotalDocs == 0 {
		return 0
	}
	return float64(d.TotalDocLen) / float64(d.TotalDocs)
}

// RecordDocument accumulates corpus totals for a newly indexed document
// and grows the dense doc_len table to cover it.
func (d *Directory) RecordDocument(docid uint32, length uint32) {
	d.TotalDocs++
	d.TotalDocLen += uint64(length)
	for uint32(len(d.DocLen)) <= docid {
		d.DocLen = append(d.DocLen, 0)
	}
	d.DocLen[docid] = length
}

// IDF computes the standard BM25 inverse document frequency for a term
// with document frequency df, given the corpus size n.
func IDF(n uint64, df uint32) float64 {
	return math.Log((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
}

// NumTerms returns how many term ids the directory has entries for.
func (d *Directory) NumTerms() int {
	return len(d.entries)
}

// Write serializes the directory: a term count followed by one
// (df, cf, max-tf, max-tf-doclen, head-pointer) record per term, the
// length-prefixed dense doc-length array, and corpus totals.
func (d *Directory) Write(w io.Writer) error {
	n := uint32(len(d.entries))
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return fmt.Errorf("directory: failed to write term count: %w", err)
	}
	for _, e := range d.entries {
		if err := binary.Write(w, binary.LittleEndian, e.df); err != nil {
			return fmt.Errorf("directory: failed to write df: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.cf); err != nil {
			return fmt.Errorf("directory: failed to write cf: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.maxTF); err != nil {
			return fmt.Errorf("directory: failed to write max_tf: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.maxTFDocLen); err != nil {
			return fmt.Errorf("directory: failed to write max_tf_doclen: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, int64(e.headPtr)); err != nil {
			return fmt.Errorf("directory: failed to write head_ptr: %w", err)
		}
	}

	docLenCount := uint32(len(d.DocLen))
	if err := binary.Write(w, binary.LittleEndian, docLenCount); err != nil {
		return fmt.Errorf("directory: failed to write doc_len count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.DocLen); err != nil {
		return fmt.Errorf("directory: failed to write doc_len array: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, d.TotalDocs); err != nil {
		return fmt.Errorf("directory: failed to write total_docs: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.TotalDocLen); err != nil {
		return fmt.Errorf("directory: failed to write total_doc_len: %w", err)
	}
	return nil
}

// Read reconstructs a Directory previously written with Write.
func Read(r io.Reader) (*Directory, error) {
	d := New()

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("directory: failed to read term count: %w", err)
	}
	d.entries = make([]entry, n)
	for i := range d.entries {
		var df, cf, maxTFDocLen uint32
		var maxTF float64
		var headPtr int64
		if err := binary.Read(r, binary.LittleEndian, &df); err != nil {
			return nil, fmt.Errorf("directory: failed to read df: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &cf); err != nil {
			return nil, fmt.Errorf("directory: failed to read cf: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &maxTF); err != nil {
			return nil, fmt.Errorf("directory: failed to read max_tf: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &maxTFDocLen); err != nil {
			return nil, fmt.Errorf("directory: failed to read max_tf_doclen: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &headPtr); err != nil {
			return nil, fmt.Errorf("directory: failed to read head_ptr: %w", err)
		}
		d.entries[i] = entry{
			headPtr:     storage.Pointer(headPtr),
			df:          df,
			cf:          cf,
			maxTF:       maxTF,
			maxTFDocLen: maxTFDocLen,
		}
	}

	var docLenCount uint32
	if err := binary.Read(r, binary.LittleEndian, &docLenCount); err != nil {
		return nil, fmt.Errorf("directory: failed to read doc_len count: %w", err)
	}
	d.DocLen = make([]uint32, docLenCount)
	if err := binary.Read(r, binary.LittleEndian, d.DocLen); err != nil {
		return nil, fmt.Errorf("directory: failed to read doc_len array: %w", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &d.TotalDocs); err != nil {
		return nil, fmt.Errorf("directory: failed to read total_docs: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &d.TotalDocLen); err != nil {
		return nil, fmt.Errorf("directory: failed to read total_doc_len: %w", err)
	}
	return d, nil
}
