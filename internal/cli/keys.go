package cli

import (
	"errors"
	"io"
	"time"
	"unicode"
	"unicode/utf8"
)

// KeyKind classifies a decoded keystroke.
type KeyKind int

const (
	KeyRune      KeyKind = iota // printable rune, pushed onto the input
	KeyBackspace                // removes the last rune
	KeyClear                    // Ctrl-U, clears the input
	KeyQuit                     // Esc or Ctrl-C
	KeyIgnored                  // anything else, including escape sequences
)

// Key is one decoded keystroke.
type Key struct {
	Kind KeyKind
	Rune rune
}

const (
	ctrlC     = 0x03
	ctrlH     = 0x08
	ctrlU     = 0x15
	escape    = 0x1b
	del       = 0x7f
	csiPrefix = '['
	ss3Prefix = 'O'
)

// escTimeout is how long an escape byte waits for the rest of a sequence
// before it counts as the Esc key.
const escTimeout = 50 * time.Millisecond

var errTimeout = errors.New("no byte within the escape timeout")

type chunk struct {
	b   []byte
	err error
}

// KeyReader decodes keystrokes from a terminal in raw mode.
type KeyReader struct {
	chunks  chan chunk
	pending []byte
	err     error
}

// NewKeyReader wraps r, which should deliver raw terminal bytes. r is read
// from a separate goroutine until it fails.
func NewKeyReader(r io.Reader) *KeyReader {
	k := &KeyReader{chunks: make(chan chunk, 16)}
	go func() {
		for {
			buf := make([]byte, 64)
			n, err := r.Read(buf)
			if n > 0 {
				k.chunks <- chunk{b: buf[:n]}
			}
			if err != nil {
				k.chunks <- chunk{err: err}
				return
			}
		}
	}()
	return k
}

// fill appends the next bytes read to pending. A positive timeout bounds the
// wait. Read errors are sticky.
func (k *KeyReader) fill(timeout time.Duration) error {
	if k.err != nil {
		return k.err
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case c := <-k.chunks:
		if c.err != nil {
			k.err = c.err
			return c.err
		}
		k.pending = append(k.pending, c.b...)
		return nil
	case <-expired:
		return errTimeout
	}
}

// ReadKey blocks for the next keystroke.
//
// An escape byte followed by more bytes within escTimeout starts an escape
// sequence (arrow keys, function keys, Alt chords), which is swallowed whole.
// An escape byte alone quits.
func (k *KeyReader) ReadKey() (Key, error) {
	for !utf8.FullRune(k.pending) {
		if err := k.fill(0); err != nil {
			if len(k.pending) == 0 {
				return Key{}, err
			}
			// A rune cut short by the end of input decodes as an error.
			break
		}
	}
	r, size := utf8.DecodeRune(k.pending)
	k.pending = k.pending[size:]

	switch {
	case r == utf8.RuneError && size == 1:
		return Key{Kind: KeyIgnored}, nil
	case r == ctrlC:
		return Key{Kind: KeyQuit}, nil
	case r == escape:
		if len(k.pending) == 0 && k.fill(escTimeout) != nil {
			return Key{Kind: KeyQuit}, nil
		}
		k.skipSequence()
		return Key{Kind: KeyIgnored}, nil
	case r == del || r == ctrlH:
		return Key{Kind: KeyBackspace}, nil
	case r == ctrlU:
		return Key{Kind: KeyClear}, nil
	case !unicode.IsPrint(r):
		return Key{Kind: KeyIgnored}, nil
	}
	return Key{Kind: KeyRune, Rune: r}, nil
}

// skipSequence consumes the rest of an escape sequence. It stops early when
// the sequence is not completed within escTimeout.
func (k *KeyReader) skipSequence() {
	introducer, size := utf8.DecodeRune(k.pending)
	k.pending = k.pending[size:]

	switch introducer {
	case csiPrefix:
		// Parameters and intermediates run until a final byte in @..~.
		for {
			b, ok := k.next()
			if !ok || (b >= 0x40 && b <= 0x7e) {
				return
			}
		}
	case ss3Prefix:
		k.next()
	}
}

// next returns the next byte of a sequence.
func (k *KeyReader) next() (byte, bool) {
	if len(k.pending) == 0 && k.fill(escTimeout) != nil {
		return 0, false
	}
	b := k.pending[0]
	k.pending = k.pending[1:]
	return b, true
}
