package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bastiangx/permsearch/pkg/tree"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/tchap/go-patricia/v2/patricia"
)

// maxLineSize bounds a single key. Longer lines fail the load of their file.
const maxLineSize = 1 << 20

// Corpus holds the keys of a search in index order.
type Corpus struct {
	lines []string
	// exact maps every non-empty key to the index it was last added with.
	exact      *patricia.Trie
	emptyIndex int
	hasEmpty   bool
	duplicates int
	sources    []Source
}

// Source records which indices a loaded file contributed.
type Source struct {
	Path  string
	First int
	Count int
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{exact: patricia.NewTrie()}
}

// Add appends key and returns its index. A key added twice resolves to the
// later index.
func (c *Corpus) Add(key string) int {
	index := len(c.lines)
	c.lines = append(c.lines, key)

	if key == "" {
		if c.hasEmpty {
			c.duplicates++
		}
		c.emptyIndex, c.hasEmpty = index, true
		return index
	}

	p := patricia.Prefix(key)
	if c.exact.Get(p) != nil {
		c.duplicates++
		log.Debugf("Key %q at line %d overrides an earlier line", key, index)
	}
	c.exact.Set(p, index)
	return index
}

// ReadLines adds every line of r, stripping the line terminator, and returns
// how many lines were read. Lines read before an error stay in the corpus.
func (c *Corpus) ReadLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	count := 0
	for scanner.Scan() {
		c.Add(strings.TrimSuffix(scanner.Text(), "\r"))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read line %d: %w", count+1, err)
	}
	return count, nil
}

// ReadLines builds a corpus from the lines of r.
func ReadLines(r io.Reader) (*Corpus, error) {
	c := NewCorpus()
	if _, err := c.ReadLines(r); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile adds the lines of the text file at path.
func (c *Corpus) LoadFile(path string) error {
	if err := ValidateFileFormat(path, FormatText); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	first := c.Len()
	count, err := c.ReadLines(file)
	c.sources = append(c.sources, Source{Path: path, First: first, Count: count})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	log.Debugf("Loaded %d lines from %s", count, path)
	return nil
}

// LoadFiles reads every path in order, indexing lines across files
// consecutively. A directory contributes its *.txt files in name order.
//
// Files that fail do not stop the others; their errors are collected into one
// multierror returned next to the corpus of everything that did load.
func LoadFiles(paths ...string) (*Corpus, error) {
	c := NewCorpus()
	var result *multierror.Error

	for _, path := range paths {
		files, err := expand(path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, file := range files {
			if err := c.LoadFile(file); err != nil {
				log.Warnf("Skipping %s: %v", file, err)
				result = multierror.Append(result, err)
			}
		}
	}

	log.Debugf("Corpus ready: %d lines from %d files, %d duplicate keys", c.Len(), len(c.sources), c.duplicates)
	return c, result.ErrorOrNil()
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .txt files found in %s", path)
	}
	slices.Sort(files)
	return files, nil
}

// Len returns the number of lines.
func (c *Corpus) Len() int {
	return len(c.lines)
}

// Line returns the key stored at index.
func (c *Corpus) Line(index int) string {
	return c.lines[index]
}

// Lines returns the keys in index order. The slice must not be modified.
func (c *Corpus) Lines() []string {
	return c.lines
}

// Pairs yields (index, key) for every line in index order.
func (c *Corpus) Pairs() iter.Seq2[int, string] {
	return slices.All(c.lines)
}

// Sources lists the files loaded so far.
func (c *Corpus) Sources() []Source {
	return slices.Clone(c.sources)
}

// Duplicates counts keys that replaced an earlier identical key.
func (c *Corpus) Duplicates() int {
	return c.duplicates
}

// Lookup returns the index an exact key resolves to.
func (c *Corpus) Lookup(key string) (int, bool) {
	if key == "" {
		return c.emptyIndex, c.hasEmpty
	}
	item := c.exact.Get(patricia.Prefix(key))
	if item == nil {
		return 0, false
	}
	return item.(int), true
}

// WithPrefix returns, in ascending order, the index of every distinct key
// that starts with prefix exactly. No lookalikes are involved.
func (c *Corpus) WithPrefix(prefix string) []int {
	var indices []int
	visit := func(_ patricia.Prefix, item patricia.Item) error {
		indices = append(indices, item.(int))
		return nil
	}

	var err error
	if prefix == "" {
		if c.hasEmpty {
			indices = append(indices, c.emptyIndex)
		}
		err = c.exact.Visit(visit)
	} else {
		err = c.exact.VisitSubtree(patricia.Prefix(prefix), visit)
	}
	if err != nil {
		log.Errorf("Error visiting exact index: %v", err)
	}

	slices.Sort(indices)
	return indices
}

// Tree builds the prefix tree over every line.
func (c *Corpus) Tree() *tree.Tree {
	return tree.Build(c.Pairs())
}
