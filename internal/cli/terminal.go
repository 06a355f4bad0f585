// Package cli drives a searcher from a keyboard: a raw-mode terminal session
// that updates the candidates on every keystroke, and a line mode for piped
// input.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bastiangx/permsearch/pkg/config"
	"github.com/bastiangx/permsearch/pkg/dictionary"
	"github.com/bastiangx/permsearch/pkg/search"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
)

// ErrNotTerminal is returned by Terminal.Start when stdin is not a tty.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// styles colour the prompt and the candidates.
type styles struct {
	prompt    lipgloss.Style
	candidate lipgloss.Style
	more      lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		return styles{prompt: r.NewStyle(), candidate: r.NewStyle(), more: r.NewStyle()}
	}
	return styles{
		prompt:    r.NewStyle().Foreground(lipgloss.Color("#89B4FA")).Bold(true),
		candidate: r.NewStyle().Foreground(lipgloss.Color("75")),
		more:      r.NewStyle().Foreground(lipgloss.Color("#6C7086")).Italic(true),
	}
}

// Terminal is an interactive search session on a raw-mode terminal.
type Terminal struct {
	corpus   *dictionary.Corpus
	searcher *search.Searcher
	prompt   string
	limit    int
	// width truncates candidate lines so they never wrap. Zero disables it.
	width  int
	color  bool
	styles styles
}

// NewTerminal creates a session over searcher, mapping candidates back to
// lines through corpus.
func NewTerminal(corpus *dictionary.Corpus, searcher *search.Searcher, cfg *config.Config) *Terminal {
	return &Terminal{
		corpus:   corpus,
		searcher: searcher,
		prompt:   cfg.CLI.Prompt,
		limit:    cfg.Search.Limit,
		color:    cfg.CLI.Color,
	}
}

// Start puts stdin in raw mode and runs the session on stdin/stdout.
// The terminal state is restored on return.
func (t *Terminal) Start() error {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			log.Errorf("Restoring terminal: %v", err)
		}
	}()

	if width, height, err := term.GetSize(os.Stdout.Fd()); err == nil {
		t.width = width
		// Keep the prompt and the list on screen.
		t.limit = max(1, min(t.limit, height-2))
	}
	return t.Run(os.Stdin, os.Stdout)
}

// Run reads keystrokes from in and redraws on out until a quit key or the end
// of input. in is expected to carry raw terminal bytes.
func (t *Terminal) Run(in io.Reader, out io.Writer) error {
	t.styles = newStyles(out, t.color)
	keys := NewKeyReader(in)

	// Reserve the rows below the prompt, then come back up.
	fmt.Fprintf(out, "%s\x1b[%dF", strings.Repeat("\r\n", t.limit+1), t.limit+1)
	if err := t.render(out); err != nil {
		return err
	}

	for {
		key, err := keys.ReadKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return t.finish(out)
			}
			return fmt.Errorf("failed to read key: %w", err)
		}

		switch key.Kind {
		case KeyRune:
			t.searcher.Push(key.Rune)
		case KeyBackspace:
			t.searcher.Pop()
		case KeyClear:
			t.searcher.Reset()
		case KeyQuit:
			return t.finish(out)
		default:
			continue
		}
		log.Debug("Key", "input", t.searcher.Input(), "frontier", len(t.searcher.Frontier()))
		if err := t.render(out); err != nil {
			return err
		}
	}
}

// render redraws the prompt line and the candidates below it, leaving the
// cursor after the input.
func (t *Terminal) render(out io.Writer) error {
	var b strings.Builder
	line := t.styles.prompt.Render(t.prompt) + t.searcher.Input()
	b.WriteString("\r\x1b[J")
	b.WriteString(line)
	b.WriteString("\r\n")

	rows := 0
	indices := t.searcher.Collect(t.limit + 1)
	for i, index := range indices {
		if i == t.limit {
			b.WriteString(t.styles.more.Render("…"))
			b.WriteString("\r\n")
			rows++
			break
		}
		b.WriteString(t.styles.candidate.Render(t.fit(t.corpus.Line(index))))
		b.WriteString("\r\n")
		rows++
	}

	// Back up to the prompt, then to the column after the input.
	fmt.Fprintf(&b, "\x1b[%dF\x1b[%dG", rows+1, lipgloss.Width(line)+1)
	_, err := io.WriteString(out, b.String())
	return err
}

// fit truncates s to the terminal width.
func (t *Terminal) fit(s string) string {
	if t.width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(t.width).Render(s)
}

// finish clears the candidates and leaves the final input on its own line.
func (t *Terminal) finish(out io.Writer) error {
	_, err := fmt.Fprintf(out, "\r\x1b[J%s%s\r\n", t.styles.prompt.Render(t.prompt), t.searcher.Input())
	return err
}
