// Command indexer builds a compressed segment-pool index from a corpus
// of tokenised documents, one "<docid>\t<tok1> <tok2> ..." line each.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pfsearch/indexer"
	"pfsearch/input"
	"pfsearch/storage"
)

// Companion file names written under the -index directory.
const (
	storeFile     = "store.bin"
	directoryFile = "directory.bin"
	dictFile      = "dict.bin"
	vectorsFile   = "vectors.bin"
)

// inputFiles collects repeated -input flags into an ordered list, since
// Go's flag package has no native multi-value string flag.
type inputFiles []string

func (f *inputFiles) String() string { return strings.Join(*f, ",") }
func (f *inputFiles) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	indexDir := flag.String("index", "", "directory to write the built index into")
	maxBlocks := flag.Int("mb", 0, "buffer expansion ceiling in multiples of the block size (0 disables expansion past one block)")
	positional := flag.Bool("positional", false, "store per-document position lists")
	tfOnly := flag.Bool("tf", false, "store per-document term frequencies without positions")
	useBloom := flag.Bool("bloom", false, "attach a Bloom filter summary to every segment")
	nbHash := flag.Int("k", 4, "number of Bloom hash functions (with -bloom)")
	bitsPerElement := flag.Int("r", 10, "Bloom filter bits per element (with -bloom)")
	reverse := flag.Bool("reverse", false, "build chains in reverse (most-recent-first) order")
	vectors := flag.Bool("vectors", false, "store compressed per-document term-id vectors")
	dfCutoff := flag.Int("dfCutoff", 4, "document-frequency threshold below which postings stay in the small per-term buffer")
	var inputs inputFiles
	flag.Var(&inputs, "input", "input document file (repeatable)")
	flag.Parse()

	if *indexDir == "" {
		fmt.Fprintln(os.Stderr, "usage: indexer -index <dir> -input <file> [-input <file> ...] [options]")
		os.Exit(1)
	}
	if *positional && *tfOnly {
		fmt.Fprintln(os.Stderr, "indexer: -positional and -tf are mutually exclusive")
		os.Exit(1)
	}
	if len(inputs) == 0 {
		inputs = append(inputs, flag.Args()...)
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "indexer: no -input files given")
		os.Exit(1)
	}

	mode := storage.NonPositional
	switch {
	case *positional:
		mode = storage.Positional
	case *tfOnly:
		mode = storage.TFOnly
	}

	ix := indexer.New(indexer.Options{
		Mode:           mode,
		Reverse:        *reverse,
		DFCutoff:       *dfCutoff,
		MaxBlocks:      *maxBlocks,
		Bloom:          *useBloom,
		BloomBitsPer:   *bitsPerElement,
		BloomNumHashes: *nbHash,
		Vectors:        *vectors,
	})

	var totalDocs int
	for _, path := range inputs {
		fmt.Printf("indexing %s\n", path)
		if err := indexFile(ix, path, &totalDocs); err != nil {
			log.Fatalf("indexer: %v", err)
		}
	}

	if err := ix.Finalize(); err != nil {
		log.Fatalf("indexer: %v", err)
	}

	if err := os.MkdirAll(*indexDir, 0o755); err != nil {
		log.Fatalf("indexer: failed to create index directory %s: %v", *indexDir, err)
	}
	if err := writeIndex(ix, *indexDir); err != nil {
		log.Fatalf("indexer: %v", err)
	}

	fmt.Printf("indexed %d documents, %d distinct terms, into %s\n", totalDocs, ix.Dict.Size(), *indexDir)
}

func indexFile(ix *indexer.Index, path string, totalDocs *int) error {
	r, err := input.OpenDocuments(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		doc, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ix.IndexDocument(doc); err != nil {
			return err
		}
		*totalDocs++
	}
}

func writeIndex(ix *indexer.Index, dir string) error {
	if err := writeFile(filepath.Join(dir, storeFile), ix.Store.Write); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, directoryFile), ix.Directory.Write); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, dictFile), ix.Dict.Write); err != nil {
		return err
	}
	if ix.Vectors != nil {
		if err := writeFile(filepath.Join(dir, vectorsFile), ix.Vectors.Write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
