package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/permsearch/internal/logger"
	"github.com/bastiangx/permsearch/internal/utils"
	"github.com/bastiangx/permsearch/pkg/config"
	"github.com/bastiangx/permsearch/pkg/dictionary"
	"github.com/bastiangx/permsearch/pkg/lookalike"
	"github.com/bastiangx/permsearch/pkg/search"
	"github.com/bastiangx/permsearch/pkg/tree"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Server handles the IPC for permissive searches over one corpus.
type Server struct {
	corpus *dictionary.Corpus
	tree   *tree.Tree

	// sessions is ordered from least to most recently used.
	sessions *orderedmap.OrderedMap[string, *search.Searcher]

	mu     sync.RWMutex
	config *config.Config

	dec    *msgpack.Decoder
	out    *bufio.Writer
	enc    *msgpack.Encoder
	logger *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout as the request and response streams.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.dec = msgpack.NewDecoder(bufio.NewReader(r))
		s.out = bufio.NewWriter(w)
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a server over corpus using stdin/stdout for IPC.
// The tree is built once and shared by every session.
func NewServer(corpus *dictionary.Corpus, cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		corpus:   corpus,
		tree:     corpus.Tree(),
		sessions: orderedmap.New[string, *search.Searcher](),
		config:   cfg,
	}
	WithIO(os.Stdin, os.Stdout)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("server")
	}
	s.enc = msgpack.NewEncoder(s.out)
	return s
}

// UpdateConfig swaps the active config. Limits apply from the next request;
// lookalike settings apply to sessions created afterwards.
// Safe to call from another goroutine, such as a config.Watch callback.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.logger.Info("Config updated",
		"keyboard", cfg.Search.Keyboard,
		"variants", cfg.Search.Variants,
		"max_sessions", cfg.Server.MaxSessions)
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Start announces readiness and serves requests until the input ends.
func (s *Server) Start() error {
	s.logger.Debug("Starting Server.")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		// Frames are read raw first so a well formed frame with bad
		// field types can be answered without losing the stream.
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed, stopping server.")
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			return fmt.Errorf("failed to read request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Errorf("Unmarshaling request: %v", err)
			if err := s.sendError("", "invalid request", 400); err != nil {
				return err
			}
			continue
		}
		if err := s.handleRequest(req); err != nil {
			return err
		}
	}
}

// handleRequest dispatches on the op. Only write failures are returned.
func (s *Server) handleRequest(req Request) error {
	cfg := s.currentConfig()

	switch req.Op {
	case OpHealth:
		return s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case OpInfo:
		return s.send(InfoResponse{
			ID:         req.ID,
			Lines:      s.corpus.Len(),
			Keys:       s.tree.Keys(),
			Nodes:      s.tree.Len(),
			Duplicates: s.corpus.Duplicates(),
			Sessions:   s.sessions.Len(),
			Keyboard:   cfg.Search.Keyboard,
			Variants:   cfg.Search.Variants,
		})
	case OpClose:
		if _, ok := s.sessions.Delete(req.Session); !ok {
			return s.sendError(req.ID, fmt.Sprintf("unknown session: %q", req.Session), 404)
		}
		s.logger.Debugf("Closed session %q", req.Session)
		return s.send(StatusResponse{ID: req.ID, Status: "closed"})
	case OpPush, OpPop, OpReset, OpQuery:
		return s.handleEdit(req, cfg)
	default:
		return s.sendError(req.ID, fmt.Sprintf("unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handleEdit(req Request, cfg *config.Config) error {
	start := time.Now()
	searcher := s.session(req.Session, cfg)

	switch req.Op {
	case OpPush:
		if searcher.Len()+utf8.RuneCountInString(req.Chars) > cfg.Server.MaxInput {
			return s.sendError(req.ID, fmt.Sprintf("input exceeds maximum length of %d", cfg.Server.MaxInput), 400)
		}
		searcher.Extend(req.Chars)
	case OpPop:
		n := req.Count
		if n < 0 {
			return s.sendError(req.ID, "pop count must not be negative", 400)
		}
		if n == 0 {
			n = 1
		}
		for range min(n, searcher.Len()) {
			searcher.Pop()
		}
	case OpReset:
		searcher.Reset()
	case OpQuery:
		if utf8.RuneCountInString(req.Chars) > cfg.Server.MaxInput {
			return s.sendError(req.ID, fmt.Sprintf("input exceeds maximum length of %d", cfg.Server.MaxInput), 400)
		}
		searcher.Reset()
		searcher.Extend(req.Chars)
	}

	limit := req.Limit
	if limit < 1 {
		limit = cfg.Search.Limit
	}
	limit = min(limit, cfg.Server.MaxLimit, config.MaxRank)

	// One extra candidate tells whether the list was cut.
	indices := searcher.Collect(limit + 1)
	more := len(indices) > limit
	if more {
		indices = indices[:limit]
	}
	ranks := utils.CreateRankList(len(indices))
	candidates := make([]Candidate, len(indices))
	for i, index := range indices {
		candidates[i] = Candidate{
			Index: index,
			Line:  s.corpus.Line(index),
			Rank:  ranks[i],
		}
	}

	return s.send(SearchResponse{
		ID:         req.ID,
		Input:      searcher.Input(),
		Candidates: candidates,
		Count:      len(candidates),
		More:       more,
		TimeTaken:  time.Since(start).Microseconds(),
	})
}

// session returns the searcher for id, creating it when missing and marking it
// as most recently used. Creating a session past the configured maximum drops
// the least recently used one.
func (s *Server) session(id string, cfg *config.Config) *search.Searcher {
	if searcher, ok := s.sessions.Get(id); ok {
		_ = s.sessions.MoveToBack(id)
		return searcher
	}

	searcher := search.New(s.tree,
		search.WithLookalikes(lookalike.Policy(cfg.Search.Keyboard, cfg.Search.Variants)))
	s.sessions.Set(id, searcher)
	s.logger.Debugf("Opened session %q", id)

	for s.sessions.Len() > cfg.Server.MaxSessions {
		oldest := s.sessions.Oldest()
		s.sessions.Delete(oldest.Key)
		s.logger.Debugf("Evicted session %q", oldest.Key)
	}
	return searcher
}

// Sessions returns the live session ids from least to most recently used.
func (s *Server) Sessions() []string {
	ids := make([]string, 0, s.sessions.Len())
	for pair := s.sessions.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// send encodes one response frame and flushes it.
func (s *Server) send(response any) error {
	if err := s.enc.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}

func (s *Server) sendError(id, message string, code int) error {
	s.logger.Debugf("Request %q failed: %s", id, message)
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
