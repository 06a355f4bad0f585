package server

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/bastiangx/permsearch/pkg/config"
	"github.com/bastiangx/permsearch/pkg/dictionary"
	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

const words = "cat\ncar\ncats\ndog"

// exactConfig disables lookalikes so candidate lists are easy to predict.
func exactConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Search.Keyboard = false
	cfg.Search.Variants = false
	return cfg
}

type client struct {
	t    *testing.T
	srv  *Server
	enc  *msgpack.Encoder
	dec  *msgpack.Decoder
	reqW *io.PipeWriter
	done chan error
}

func startServer(t *testing.T, cfg *config.Config) *client {
	t.Helper()
	corpus, err := dictionary.ReadLines(strings.NewReader(words))
	if err != nil {
		t.Fatal(err)
	}

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	c := &client{
		t:    t,
		srv:  NewServer(corpus, cfg, WithIO(reqR, respW), WithLogger(log.New(io.Discard))),
		enc:  msgpack.NewEncoder(reqW),
		dec:  msgpack.NewDecoder(respR),
		reqW: reqW,
		done: make(chan error, 1),
	}
	go func() {
		err := c.srv.Start()
		respW.Close()
		c.done <- err
	}()
	t.Cleanup(func() {
		reqW.Close()
		if err := <-c.done; err != nil {
			t.Errorf("Start() error = %v", err)
		}
	})

	var ready StatusResponse
	if err := c.dec.Decode(&ready); err != nil {
		t.Fatal(err)
	}
	if ready.Status != "ready" {
		t.Fatalf("first frame status = %q, want ready", ready.Status)
	}
	return c
}

func (c *client) call(req any, resp any) {
	c.t.Helper()
	if err := c.enc.Encode(req); err != nil {
		c.t.Fatal(err)
	}
	if err := c.dec.Decode(resp); err != nil {
		c.t.Fatal(err)
	}
}

func (c *client) search(req Request) SearchResponse {
	c.t.Helper()
	var resp SearchResponse
	c.call(req, &resp)
	if resp.ID != req.ID {
		c.t.Fatalf("response id = %q, want %q", resp.ID, req.ID)
	}
	return resp
}

func linesOf(resp SearchResponse) []string {
	var out []string
	for _, cand := range resp.Candidates {
		out = append(out, cand.Line)
	}
	return out
}

func TestSessionRoundTrip(t *testing.T) {
	c := startServer(t, exactConfig())

	testCases := []struct {
		req         Request
		input       string
		lines       []string
		more        bool
		description string
	}{
		{Request{ID: "1", Op: OpPush, Session: "a", Chars: "c"}, "c", []string{"car", "cat", "cats"}, false, "push one rune"},
		{Request{ID: "2", Op: OpPush, Session: "a", Chars: "at"}, "cat", []string{"cat", "cats"}, false, "push several runes"},
		{Request{ID: "3", Op: OpPush, Session: "a", Chars: "z"}, "catz", []string{"cat", "cats"}, false, "unmatched push keeps candidates"},
		{Request{ID: "4", Op: OpPop, Session: "a", Count: 3}, "c", []string{"car", "cat", "cats"}, false, "pop several"},
		{Request{ID: "5", Op: OpPop, Session: "a"}, "", []string{"car", "cat", "cats", "dog"}, false, "pop defaults to one"},
		{Request{ID: "6", Op: OpPop, Session: "a", Count: 5}, "", []string{"car", "cat", "cats", "dog"}, false, "pop past empty"},
		{Request{ID: "7", Op: OpQuery, Session: "a", Chars: "ca", Limit: 2}, "ca", []string{"car", "cat"}, true, "query with limit"},
		{Request{ID: "8", Op: OpReset, Session: "a"}, "", []string{"car", "cat", "cats", "dog"}, false, "reset"},
		{Request{ID: "9", Op: OpQuery, Session: "b", Chars: "do"}, "do", []string{"dog"}, false, "second session"},
		{Request{ID: "10", Op: OpPush, Session: "a", Chars: "d"}, "d", []string{"dog"}, false, "first session untouched"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			resp := c.search(tc.req)
			if resp.Input != tc.input {
				t.Errorf("input = %q, want %q", resp.Input, tc.input)
			}
			if diff := cmp.Diff(tc.lines, linesOf(resp)); diff != "" {
				t.Errorf("candidates (-want +got):\n%s", diff)
			}
			if resp.Count != len(tc.lines) {
				t.Errorf("count = %d, want %d", resp.Count, len(tc.lines))
			}
			if resp.More != tc.more {
				t.Errorf("more = %v, want %v", resp.More, tc.more)
			}
			for i, cand := range resp.Candidates {
				if cand.Rank != uint16(i+1) {
					t.Errorf("candidate %d rank = %d", i, cand.Rank)
				}
			}
		})
	}
}

func TestCandidateIndices(t *testing.T) {
	c := startServer(t, exactConfig())
	resp := c.search(Request{ID: "1", Op: OpQuery, Chars: "cat"})

	want := []Candidate{{Index: 0, Line: "cat", Rank: 1}, {Index: 2, Line: "cats", Rank: 2}}
	if diff := cmp.Diff(want, resp.Candidates); diff != "" {
		t.Errorf("candidates (-want +got):\n%s", diff)
	}
}

func TestLookalikeSession(t *testing.T) {
	c := startServer(t, config.DefaultConfig())
	resp := c.search(Request{ID: "1", Op: OpQuery, Chars: "vat"})

	// r sits next to t, so car is a candidate after cat and cats.
	if diff := cmp.Diff([]string{"cat", "cats", "car"}, linesOf(resp)); diff != "" {
		t.Errorf("misclicked query (-want +got):\n%s", diff)
	}
}

func TestLimits(t *testing.T) {
	cfg := exactConfig()
	cfg.Search.Limit = 1
	cfg.Server.MaxLimit = 2
	cfg.Server.MaxInput = 3
	c := startServer(t, cfg)

	if resp := c.search(Request{ID: "1", Op: OpReset}); resp.Count != 1 || !resp.More {
		t.Errorf("default limit: count = %d, more = %v", resp.Count, resp.More)
	}
	if resp := c.search(Request{ID: "2", Op: OpReset, Limit: 50}); resp.Count != 2 {
		t.Errorf("capped limit: count = %d, want 2", resp.Count)
	}

	c.search(Request{ID: "3", Op: OpPush, Chars: "cat"})
	var errResp ErrorResponse
	c.call(Request{ID: "4", Op: OpPush, Chars: "s"}, &errResp)
	if errResp.Code != 400 || errResp.ID != "4" {
		t.Errorf("overlong push = %+v, want code 400", errResp)
	}
	c.call(Request{ID: "5", Op: OpQuery, Chars: "cats"}, &errResp)
	if errResp.Code != 400 {
		t.Errorf("overlong query = %+v, want code 400", errResp)
	}
	if resp := c.search(Request{ID: "6", Op: OpPop, Count: 0}); resp.Input != "ca" {
		t.Errorf("input after rejected edits = %q, want %q", resp.Input, "ca")
	}
}

func TestSessionEviction(t *testing.T) {
	cfg := exactConfig()
	cfg.Server.MaxSessions = 2
	c := startServer(t, cfg)

	c.search(Request{ID: "1", Op: OpPush, Session: "s1", Chars: "c"})
	c.search(Request{ID: "2", Op: OpPush, Session: "s2", Chars: "d"})
	c.search(Request{ID: "3", Op: OpPush, Session: "s1", Chars: "a"})

	// Touching s1 moves it behind s2.
	if diff := cmp.Diff([]string{"s2", "s1"}, c.srv.Sessions()); diff != "" {
		t.Errorf("sessions in use order (-want +got):\n%s", diff)
	}

	c.search(Request{ID: "4", Op: OpPush, Session: "s3", Chars: "c"})

	if diff := cmp.Diff([]string{"s1", "s3"}, c.srv.Sessions()); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}

	// An evicted session starts over.
	if resp := c.search(Request{ID: "5", Op: OpPush, Session: "s2", Chars: "c"}); resp.Input != "c" {
		t.Errorf("recreated session input = %q, want %q", resp.Input, "c")
	}
}

func TestControlOps(t *testing.T) {
	c := startServer(t, exactConfig())

	var status StatusResponse
	c.call(Request{ID: "h", Op: OpHealth}, &status)
	if status.Status != "ok" || status.ID != "h" {
		t.Errorf("health = %+v", status)
	}

	c.search(Request{ID: "1", Op: OpPush, Session: "x", Chars: "c"})

	var info InfoResponse
	c.call(Request{ID: "i", Op: OpInfo}, &info)
	want := InfoResponse{ID: "i", Lines: 4, Keys: 4, Nodes: 9, Sessions: 1}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}

	c.call(Request{ID: "c", Op: OpClose, Session: "x"}, &status)
	if status.Status != "closed" {
		t.Errorf("close = %+v", status)
	}

	var errResp ErrorResponse
	c.call(Request{ID: "c2", Op: OpClose, Session: "x"}, &errResp)
	if errResp.Code != 404 {
		t.Errorf("closing twice = %+v, want code 404", errResp)
	}

	c.call(Request{ID: "u", Op: "frob"}, &errResp)
	if errResp.Code != 400 || errResp.Error != "unknown op: frob" {
		t.Errorf("unknown op = %+v", errResp)
	}

	c.call(map[string]any{"id": "w", "op": 5}, &errResp)
	if errResp.Code != 400 {
		t.Errorf("malformed request = %+v, want code 400", errResp)
	}

	c.call(Request{ID: "h2", Op: OpHealth}, &status)
	if status.Status != "ok" {
		t.Errorf("server stopped answering after a bad frame: %+v", status)
	}
}

func TestUpdateConfig(t *testing.T) {
	c := startServer(t, exactConfig())
	if resp := c.search(Request{ID: "1", Op: OpQuery, Session: "old", Chars: "vat"}); resp.Input != "vat" || len(resp.Candidates) != 4 {
		t.Fatalf("exact session matched %v", linesOf(resp))
	}

	c.srv.UpdateConfig(config.DefaultConfig())

	if resp := c.search(Request{ID: "2", Op: OpQuery, Session: "new", Chars: "vat"}); len(resp.Candidates) != 3 {
		t.Errorf("session after update matched %v, want cat, cats and car", linesOf(resp))
	}
	if resp := c.search(Request{ID: "3", Op: OpQuery, Session: "old", Chars: "vat"}); len(resp.Candidates) != 4 {
		t.Errorf("existing session changed policy: %v", linesOf(resp))
	}
}

func TestStartStopsOnTruncatedFrame(t *testing.T) {
	corpus, err := dictionary.ReadLines(strings.NewReader(words))
	if err != nil {
		t.Fatal(err)
	}
	frame, err := msgpack.Marshal(Request{ID: "1", Op: OpHealth})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	srv := NewServer(corpus, nil,
		WithIO(bytes.NewReader(frame[:len(frame)-2]), &out),
		WithLogger(log.New(io.Discard)))
	if err := srv.Start(); err == nil {
		t.Error("Start() error = nil for a truncated frame")
	}
}
