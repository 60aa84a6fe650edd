package rad

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// relayTarget is one entry of the Relay stack (spec §3, §4.6): a
// temp file, an arbitrary file, or a runtime macro's body.
type relayTarget struct {
	kind string // "temp", "file", "macro"
	path string
	file *os.File
	name string // macro name, for kind=="macro"

	buf strings.Builder // used for kind=="macro" (appended to body on halt)

	streamID string // non-empty while this entry is a stream capture
}

func (t *relayTarget) WriteString(s string) (int, error) {
	if t.file != nil {
		return t.file.WriteString(s)
	}
	return t.buf.WriteString(s)
}

// RelayStack diverts output to an alternate sink until halted
// (spec §4.6).
type RelayStack struct {
	mu      sync.Mutex
	stack   []*relayTarget
	main    Sink
	macros  *MacroMap
	tempDir string

	streamActive bool
}

// NewRelayStack creates a relay stack whose base sink is main.
func NewRelayStack(main Sink, macros *MacroMap) *RelayStack {
	return &RelayStack{main: main, macros: macros, tempDir: os.TempDir()}
}

// Top returns the current effective sink: top of stack, or main output.
func (r *RelayStack) Top() Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return r.main
	}
	return r.stack[len(r.stack)-1]
}

// WriteString implements Sink by always forwarding to the current top
// of stack, so a Lexer holding a reference to the RelayStack itself
// (rather than a snapshot of Top()) sees a `relay`/`halt` that happens
// mid-chunk redirect the rest of that same chunk's output.
func (r *RelayStack) WriteString(s string) (int, error) {
	return r.Top().WriteString(s)
}

// RelayToTemp starts relaying to the configured temp file.
func (r *RelayStack) RelayToTemp() error {
	f, err := os.CreateTemp(r.tempDir, "rad-relay-*.txt")
	if err != nil {
		return wrapRadError(ErrInvalidFile, nil, "relay", err)
	}
	r.mu.Lock()
	r.stack = append(r.stack, &relayTarget{kind: "temp", path: f.Name(), file: f})
	r.mu.Unlock()
	return nil
}

// RelayToFile starts relaying to an arbitrary file, opened
// truncate-then-append per spec §4.6.
func (r *RelayStack) RelayToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return wrapRadError(ErrInvalidFile, nil, "relay", err)
	}
	r.mu.Lock()
	r.stack = append(r.stack, &relayTarget{kind: "file", path: path, file: f})
	r.mu.Unlock()
	return nil
}

// RelayToMacro starts relaying into a Runtime macro's body (append on
// write). Relay to a non-runtime macro is rejected by the caller before
// this is invoked, since only MacroMap knows what "runtime" means here.
func (r *RelayStack) RelayToMacro(name string) error {
	r.mu.Lock()
	r.stack = append(r.stack, &relayTarget{kind: "macro", name: name})
	r.mu.Unlock()
	return nil
}

// StartStream begins stream-mode capture: arguments are captured for
// later replay into a named macro. Cannot be nested (spec §4.6).
func (r *RelayStack) StartStream(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streamActive {
		return "", newRadError(ErrInvalidArgument, nil, "stream", "stream mode cannot be nested")
	}
	id := uuid.NewString()
	r.stack = append(r.stack, &relayTarget{kind: "macro", name: name, streamID: id})
	r.streamActive = true
	return id, nil
}

// Halt pops the top relay entry, closing any owned file handle and, for
// a macro target, appending the captured text to that macro's body.
func (r *RelayStack) Halt() error {
	r.mu.Lock()
	if len(r.stack) == 0 {
		r.mu.Unlock()
		return newRadError(ErrInvalidArgument, nil, "halt", "no active relay to halt")
	}
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if top.streamID != "" {
		r.streamActive = false
	}
	r.mu.Unlock()

	if top.file != nil {
		_ = top.file.Close()
	}
	if top.kind == "macro" && r.macros != nil {
		return r.macros.Append(top.name, 0, top.buf.String())
	}
	return nil
}

// Depth reports how many relay entries are active.
func (r *RelayStack) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// CurrentFilePath returns the path of the file currently being relayed
// to, if any — used to reject including the current relay target.
func (r *RelayStack) CurrentFilePath() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return "", false
	}
	top := r.stack[len(r.stack)-1]
	if top.path == "" {
		return "", false
	}
	return top.path, true
}

// PipeStore is the named/anonymous value-passing mechanism of spec
// §4.6. The anonymous pipe is keyed "-".
type PipeStore struct {
	mu       sync.Mutex
	values   map[string][]string
	truncate bool
	logger   *Logger
}

// NewPipeStore creates a store with truncate-on-read (the default).
func NewPipeStore(logger *Logger) *PipeStore {
	return &PipeStore{values: make(map[string][]string), truncate: true, logger: logger}
}

// SetTruncate toggles whether a read consumes the stored value.
func (p *PipeStore) SetTruncate(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.truncate = on
}

// Pipe stores v in the anonymous pipe.
func (p *PipeStore) Pipe(v string) {
	p.PipeTo("-", v)
}

// PipeTo stores v in a named slot.
func (p *PipeStore) PipeTo(name, v string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = append(p.values[name], v)
}

// Read reads (and, if truncate is on, consumes) a named slot's most
// recent value. An empty read logs a sanity warning and returns "".
func (p *PipeStore) Read(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	vs := p.values[name]
	if len(vs) == 0 {
		if p.logger != nil {
			p.logger.Warn(CatPipe, "read from empty pipe %q", name)
		}
		return ""
	}
	v := vs[len(vs)-1]
	if p.truncate {
		p.values[name] = vs[:len(vs)-1]
	}
	return v
}

// ReadAnonymous reads the anonymous ("-") pipe.
func (p *PipeStore) ReadAnonymous() string { return p.Read("-") }

// Queue is the FIFO of source chunks appended at end-of-expansion
// (spec §4.6).
type Queue struct {
	mu     sync.Mutex
	chunks []string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Push appends a chunk unconditionally (`que`).
func (q *Queue) Push(chunk string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chunks = append(q.chunks, chunk)
}

// PushIf appends a chunk only when cond is true (`queif`).
func (q *Queue) PushIf(cond bool, chunk string) {
	if cond {
		q.Push(chunk)
	}
}

// Drain empties the queue in FIFO order, for the evaluator to run each
// chunk through the main parse as if input had more to offer.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.chunks
	q.chunks = nil
	return out
}

// Len reports how many chunks are queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
