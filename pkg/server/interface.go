/*
Package server implements msgpack IPC for permissive prefix search.

Clients write msgpack maps to stdin and read msgpack maps from stdout. Every
request names an op and, for the editing ops, a session. Each session owns
its own searcher over the shared tree, so several inputs can be edited side by
side through one process.

# IPC

On start the server writes a single frame:

	{"status": "ready"}

Editing a session one keystroke at a time:

	{"id": "1", "op": "push", "s": "main", "ch": "c"}
	{"id": "2", "op": "push", "s": "main", "ch": "az"}
	{"id": "3", "op": "pop", "s": "main", "n": 1}

Each editing op answers with the current input and its candidates, capped at
the request limit "l" (or the configured default):

	{"id": "3", "in": "ca", "s": [{"i": 0, "w": "cat", "r": 1}, {"i": 1, "w": "car", "r": 2}], "c": 2, "t": 12}

"t" is the time spent in microseconds. "m" is set when more candidates exist
than were returned.

The ops are:

	push    push every rune of "ch"
	pop     remove "n" runes (default 1)
	reset   clear the input
	query   reset, then push "ch"
	close   drop the session
	health  liveness check
	info    corpus and session statistics

Sessions are created on first use and kept in use order; once more than
server.max_sessions exist the least recently used one is dropped.

Failures answer with an error frame and the server keeps reading:

	{"id": "4", "e": "unknown op: frob", "c": 400}
*/
package server

// Op names accepted in Request.Op.
const (
	OpPush   = "push"
	OpPop    = "pop"
	OpReset  = "reset"
	OpQuery  = "query"
	OpClose  = "close"
	OpHealth = "health"
	OpInfo   = "info"
)

// Request is a single client message.
type Request struct {
	ID      string `msgpack:"id"`
	Op      string `msgpack:"op"`
	Session string `msgpack:"s,omitempty"`
	Chars   string `msgpack:"ch,omitempty"`
	Count   int    `msgpack:"n,omitempty"`
	Limit   int    `msgpack:"l,omitempty"`
}

// Candidate is one matching line.
type Candidate struct {
	Index int    `msgpack:"i"`
	Line  string `msgpack:"w"`
	Rank  uint16 `msgpack:"r"`
}

// SearchResponse answers the editing ops.
type SearchResponse struct {
	ID         string      `msgpack:"id"`
	Input      string      `msgpack:"in"`
	Candidates []Candidate `msgpack:"s"`
	Count      int         `msgpack:"c"`
	More       bool        `msgpack:"m,omitempty"`
	TimeTaken  int64       `msgpack:"t"`
}

// StatusResponse answers health and close, and announces readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// InfoResponse describes the loaded corpus and the server state.
type InfoResponse struct {
	ID         string `msgpack:"id"`
	Lines      int    `msgpack:"lines"`
	Keys       int    `msgpack:"keys"`
	Nodes      int    `msgpack:"nodes"`
	Duplicates int    `msgpack:"duplicates"`
	Sessions   int    `msgpack:"sessions"`
	Keyboard   bool   `msgpack:"keyboard"`
	Variants   bool   `msgpack:"variants"`
}

// ErrorResponse holds basic error information for a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
