package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/permsearch/internal/utils"
	"github.com/bastiangx/permsearch/pkg/config"
	"github.com/bastiangx/permsearch/pkg/dictionary"
	"github.com/bastiangx/permsearch/pkg/search"
	"github.com/charmbracelet/log"
)

// InputHandler runs one query per input line, for stdin that is not a
// terminal. Every rune of a line is pushed onto a fresh input and the
// candidates are printed once the line is done.
type InputHandler struct {
	corpus       *dictionary.Corpus
	searcher     *search.Searcher
	limit        int
	prompt       string
	color        bool
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler.
func NewInputHandler(corpus *dictionary.Corpus, searcher *search.Searcher, cfg *config.Config) *InputHandler {
	return &InputHandler{
		corpus:   corpus,
		searcher: searcher,
		limit:    cfg.Search.Limit,
		prompt:   cfg.CLI.Prompt,
		color:    cfg.CLI.Color,
	}
}

// Start reads queries from in until it ends and writes the candidates of each
// to out.
func (h *InputHandler) Start(in io.Reader, out io.Writer) error {
	st := newStyles(out, h.color)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		query := strings.TrimSuffix(scanner.Text(), "\r")
		if err := h.handleInput(query, out, st); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read queries: %w", err)
	}
	log.Debugf("Answered %s queries", utils.FormatWithCommas(h.requestCount))
	return nil
}

// handleInput answers a single query.
func (h *InputHandler) handleInput(query string, out io.Writer, st styles) error {
	h.requestCount++
	start := time.Now()

	h.searcher.Reset()
	for _, ch := range query {
		h.searcher.Push(ch)
	}
	indices := h.searcher.Collect(h.limit + 1)
	log.Debugf("Took [ %v ] for query '%s'", time.Since(start), query)

	more := len(indices) > h.limit
	if more {
		indices = indices[:h.limit]
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%s%s\n", st.prompt.Render(h.prompt), query)
	for i, index := range indices {
		fmt.Fprintf(w, "%2d. %s\n", i+1, st.candidate.Render(h.corpus.Line(index)))
	}
	if more {
		fmt.Fprintln(w, st.more.Render("    …"))
	}
	return w.Flush()
}
