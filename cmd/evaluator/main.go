// Command evaluator answers bag-of-words queries against an index
// built by the indexer command, using one of five traversal algorithms.
// Feature extraction and learning-to-rank model evaluation live in a
// separate pipeline stage; -features and -model are accepted only so
// scripts built around the full CLI surface do not fail on an
// unrecognised flag.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pfsearch/dict"
	"pfsearch/directory"
	"pfsearch/docvec"
	"pfsearch/input"
	"pfsearch/query"
	"pfsearch/storage"
)

const (
	storeFile     = "store.bin"
	directoryFile = "directory.bin"
	dictFile      = "dict.bin"
	vectorsFile   = "vectors.bin"
)

func main() {
	indexDir := flag.String("index", "", "directory holding a built index")
	queryFile := flag.String("query", "", "query file: a count line, then one \"<qid> <qlen> <terms...>\" line per query")
	outputFile := flag.String("output", "", "output file (default: stdout)")
	hits := flag.Int("hits", 0, "max results per query (0 = shortest posting list's df)")
	algorithm := flag.String("algorithm", string(query.SvS), "SvS|WAND|MBWAND|BWAND_OR|BWAND_AND")
	featuresFile := flag.String("features", "", "unused: feature extraction is out of scope")
	modelFile := flag.String("model", "", "unused: learning-to-rank model evaluation is out of scope")
	docnoMapping := flag.String("docnoMapping", "", "optional docid -> external docno mapping, one \"<docid> <docno>\" pair per line")
	trec := flag.Bool("trec", false, "emit TREC-format output (qid Q0 docno rank score tag) instead of a plain docid list")
	runTag := flag.String("tag", "pfsearch", "TREC run tag")
	showStats := flag.Bool("stats", false, "print index summary statistics and exit")
	vectorDoc := flag.Int("vector", -1, "print this docid's stored term vector and exit (needs an index built with -vectors)")
	flag.Parse()

	if *indexDir == "" {
		usage()
	}

	store, dirc, dictionary, vectors, err := loadIndex(*indexDir)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}

	if *showStats {
		printStats(os.Stdout, store, dirc, dictionary, vectors)
		return
	}
	if *vectorDoc >= 0 {
		if vectors == nil {
			log.Fatalf("evaluator: index %s carries no document vectors", *indexDir)
		}
		printVector(os.Stdout, dictionary, vectors, uint32(*vectorDoc))
		return
	}
	if *queryFile == "" {
		usage()
	}

	algo := query.Algorithm(*algorithm)
	switch algo {
	case query.SvS, query.WAND, query.MBWAND, query.BWANDOr, query.BWANDAnd:
	default:
		fmt.Fprintf(os.Stderr, "evaluator: unknown algorithm %q (want SvS, WAND, MBWAND, BWAND_OR, or BWAND_AND)\n", *algorithm)
		os.Exit(1)
	}

	if *featuresFile != "" || *modelFile != "" {
		fmt.Fprintln(os.Stderr, "evaluator: -features/-model are accepted but not evaluated; ranking uses the selected algorithm's own scoring")
	}

	queries, err := input.ReadQueries(*queryFile)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}

	docno := strconv.Itoa
	if *docnoMapping != "" {
		m, err := loadDocnoMapping(*docnoMapping)
		if err != nil {
			log.Fatalf("evaluator: %v", err)
		}
		docno = func(id int) string { return m(uint32(id)) }
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			log.Fatalf("evaluator: failed to create output file %s: %v", *outputFile, err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	ev := query.New(dictionary, dirc, store)

	for _, q := range queries {
		if len(q.Terms) == 0 {
			continue
		}
		results, err := ev.Run(algo, q.Terms, *hits)
		if err != nil {
			log.Fatalf("evaluator: query %s failed: %v", q.QID, err)
		}
		if *trec {
			writeTREC(w, q.QID, results, *runTag, docno)
		} else {
			writePlain(w, q.QID, results)
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: evaluator -index <dir> -query <file> [-output <file>] [-hits <k>] [-algorithm <SvS|WAND|MBWAND|BWAND_OR|BWAND_AND>]")
	os.Exit(1)
}

func loadIndex(dir string) (*storage.Store, *directory.Directory, *dict.Dictionary, *docvec.Store, error) {
	store, err := readFile(filepath.Join(dir, storeFile), func(r io.Reader) (*storage.Store, error) {
		return storage.ReadStore(r, storage.DefaultPoolCapacity)
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	dirc, err := readFile(filepath.Join(dir, directoryFile), directory.Read)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	dictionary, err := readFile(filepath.Join(dir, dictFile), dict.Read)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	// Vectors are an optional part of an index; their absence just means
	// the build ran without -vectors.
	vectors, err := readFile(filepath.Join(dir, vectorsFile), docvec.Read)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			vectors = nil
		} else {
			return nil, nil, nil, nil, err
		}
	}
	return store, dirc, dictionary, vectors, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}

func loadDocnoMapping(path string) (func(uint32) string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docno mapping %s: %w", path, err)
	}
	defer f.Close()

	m := make(map[uint32]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			continue
		}
		m[uint32(id)] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read docno mapping %s: %w", path, err)
	}
	return func(docid uint32) string {
		if s, ok := m[docid]; ok {
			return s
		}
		return strconv.FormatUint(uint64(docid), 10)
	}, nil
}

func writePlain(w io.Writer, qid string, results []query.ScoredDoc) {
	fmt.Fprintf(w, "%s", qid)
	for _, r := range results {
		fmt.Fprintf(w, " %d", r.DocID)
	}
	fmt.Fprintln(w)
}

func writeTREC(w io.Writer, qid string, results []query.ScoredDoc, tag string, docno func(int) string) {
	for rank, r := range results {
		fmt.Fprintf(w, "%s Q0 %s %d %.4f %s\n", qid, docno(int(r.DocID)), rank+1, r.Score, tag)
	}
}

func printStats(w io.Writer, store *storage.Store, dirc *directory.Directory, dictionary *dict.Dictionary, vectors *docvec.Store) {
	fmt.Fprintln(w, strings.Repeat("-", 48))
	fmt.Fprintf(w, "| %-20s | %21d |\n", "terms", dictionary.Size())
	fmt.Fprintf(w, "| %-20s | %21d |\n", "documents", dirc.TotalDocs)
	fmt.Fprintf(w, "| %-20s | %21.2f |\n", "avg doc length", dirc.AvgDocLen())
	fmt.Fprintf(w, "| %-20s | %21t |\n", "reverse chains", store.Reverse)
	fmt.Fprintf(w, "| %-20s | %21t |\n", "bloom filters", store.UseBloom)
	if vectors != nil {
		fmt.Fprintf(w, "| %-20s | %21d |\n", "document vectors", vectors.Len())
	}
	fmt.Fprintln(w, strings.Repeat("-", 48))
}

func printVector(w io.Writer, dictionary *dict.Dictionary, vectors *docvec.Store, docid uint32) {
	ids, err := vectors.Get(docid)
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}
	if ids == nil {
		log.Fatalf("evaluator: no vector stored for document %d", docid)
	}
	fmt.Fprintf(w, "%d", docid)
	for _, id := range ids {
		fmt.Fprintf(w, " %s", dictionary.Term(int(id)))
	}
	fmt.Fprintln(w)
}
