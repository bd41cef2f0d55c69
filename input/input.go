// Package input reads the indexer's document stream and the
// evaluator's query file: local, optionally gzip-wrapped, line-oriented
// byte streams.
package input

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Document is one parsed input line: a docid and its whitespace-split
// tokens, in order.
type Document struct {
	DocID  uint32
	Tokens []string
}

// OpenDocuments opens path, transparently unwrapping a gzip stream if
// the file is gzip-magic-prefixed, and returns a Document reader over
// it. Callers must Close the returned reader when done.
func OpenDocuments(path string) (*DocumentReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: failed to open document file %q: %w", path, err)
	}

	r, closer, err := maybeGunzip(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &DocumentReader{file: f, gz: closer, scanner: bufio.NewScanner(r)}, nil
}

func maybeGunzip(f *os.File) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("input: failed to sniff document file: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("input: failed to open gzip stream: %w", err)
		}
		return gz, gz, nil
	}
	return br, nil, nil
}

// DocumentReader reads one line-oriented document per call to Next.
type DocumentReader struct {
	file    *os.File
	gz      io.Closer
	scanner *bufio.Scanner
}

// Next returns the next document, or io.EOF once the stream is
// exhausted. A malformed line (non-numeric docid, missing tab) is a
// fatal parse error; none of its postings are applied.
func (r *DocumentReader) Next() (Document, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Document{}, fmt.Errorf("input: failed to read document line: %w", err)
		}
		return Document{}, io.EOF
	}
	return parseDocumentLine(r.scanner.Text())
}

func parseDocumentLine(line string) (Document, error) {
	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return Document{}, fmt.Errorf("input: malformed document line (no tab separator): %q", line)
	}
	docid, err := strconv.ParseUint(line[:tab], 10, 32)
	if err != nil {
		return Document{}, fmt.Errorf("input: malformed docid %q: %w", line[:tab], err)
	}
	tokens := strings.Fields(line[tab+1:])
	return Document{DocID: uint32(docid), Tokens: tokens}, nil
}

// Close releases the underlying file (and gzip reader, if any).
func (r *DocumentReader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// Query is one parsed query: an id, and its terms in order.
type Query struct {
	QID   string
	Terms []string
}

// ReadQueries reads a query file: a first line with the total query
// count, then one "<qid> <qlen> <tok1> ... <tokN>" line per query.
func ReadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: failed to open query file %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("input: empty query file %q", path)
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("input: malformed query count %q: %w", scanner.Text(), err)
	}

	queries := make([]Query, 0, count)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			return nil, fmt.Errorf("input: malformed query line %q", scanner.Text())
		}
		qlen, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("input: malformed query length %q: %w", fields[1], err)
		}
		terms := fields[2:]
		if len(terms) != qlen {
			return nil, fmt.Errorf("input: query %q declares %d terms but has %d", fields[0], qlen, len(terms))
		}
		queries = append(queries, Query{QID: fields[0], Terms: terms})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("input: failed to read query file: %w", err)
	}
	return queries, nil
}
