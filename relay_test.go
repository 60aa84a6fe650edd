package rad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRelayToTempRoundTrip(t *testing.T) {
	var b strings.Builder
	r := NewRelayStack(&sinkWriter{w: &b}, nil)

	if err := r.RelayToTemp(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, ok := r.CurrentFilePath()
	if !ok {
		t.Fatalf("expected a current file path while relaying to temp")
	}
	defer os.Remove(path)

	if _, err := r.WriteString("hello"); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := r.Halt(); err != nil {
		t.Fatalf("unexpected halt error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if got := string(content); got != "hello" {
		t.Fatalf("unexpected temp file content: %q", got)
	}
	if b.String() != "" {
		t.Fatalf("main sink should not have received diverted output, got %q", b.String())
	}
}

func TestRelayToFileTruncatesOnOpenThenAppendsWithinSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay-target.txt")
	if err := os.WriteFile(path, []byte("stale content from a previous run"), 0644); err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	var b strings.Builder
	r := NewRelayStack(&sinkWriter{w: &b}, nil)

	if err := r.RelayToFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.WriteString("first "); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if _, err := r.WriteString("second"); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := r.Halt(); err != nil {
		t.Fatalf("unexpected halt error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if got := string(content); got != "first second" {
		t.Fatalf("expected stale content truncated and new writes appended within the session, got %q", got)
	}
}

func TestRelayToMacroRoundTripThroughExecute(t *testing.T) {
	p, out := newTestProcessor(nil)
	script := "$define(out=)$relay(macro,out)Hello$halt()$out()"
	if err := p.Execute(script); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "Hello" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRelayToNonRuntimeMacroRejected(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$relay(macro,upper)"); err == nil {
		t.Fatalf("expected error relaying into a builtin Function macro")
	}
}

func TestRelayToUndefinedMacroRejected(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$relay(macro,neverdefined)"); err == nil {
		t.Fatalf("expected error relaying into an undefined macro")
	}
}

func TestHaltWithNoActiveRelayErrors(t *testing.T) {
	var b strings.Builder
	r := NewRelayStack(&sinkWriter{w: &b}, nil)
	if err := r.Halt(); err == nil {
		t.Fatalf("expected error halting with no active relay")
	}
}

func TestDynamicMidChunkRedirection(t *testing.T) {
	// RelayStack.WriteString always forwards to the current Top(), so a
	// relay started partway through a chunk diverts the rest of that
	// same chunk's output without the Lexer needing a fresh sink.
	p, out := newTestProcessor(nil)
	script := "$define(out=)before $relay(macro,out)during$halt() after"
	if err := p.Execute(script); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "before  after" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestStreamModeCannotNest(t *testing.T) {
	var b strings.Builder
	r := NewRelayStack(&sinkWriter{w: &b}, nil)
	if _, err := r.StartStream("a"); err != nil {
		t.Fatalf("unexpected error starting stream: %v", err)
	}
	if _, err := r.StartStream("b"); err == nil {
		t.Fatalf("expected nested stream to be rejected")
	}
	if err := r.Halt(); err != nil {
		t.Fatalf("unexpected halt error: %v", err)
	}
	if _, err := r.StartStream("c"); err != nil {
		t.Fatalf("expected stream to be startable again once the first was halted: %v", err)
	}
}

func TestPipeStoreAnonymousAndNamedRoundTrip(t *testing.T) {
	ps := NewPipeStore(nil)
	ps.Pipe("anon-value")
	ps.PipeTo("greeting", "hi there")

	if got := ps.ReadAnonymous(); got != "anon-value" {
		t.Fatalf("unexpected anonymous read: %q", got)
	}
	if got := ps.Read("greeting"); got != "hi there" {
		t.Fatalf("unexpected named read: %q", got)
	}
}

func TestPipeStoreTruncateOnReadDefault(t *testing.T) {
	ps := NewPipeStore(nil)
	ps.Pipe("only-once")
	if got := ps.ReadAnonymous(); got != "only-once" {
		t.Fatalf("unexpected first read: %q", got)
	}
	if got := ps.ReadAnonymous(); got != "" {
		t.Fatalf("expected second read to find the pipe drained, got %q", got)
	}
}

func TestPipeStoreNoTruncatePeeks(t *testing.T) {
	ps := NewPipeStore(nil)
	ps.SetTruncate(false)
	ps.Pipe("peekable")
	if got := ps.ReadAnonymous(); got != "peekable" {
		t.Fatalf("unexpected first read: %q", got)
	}
	if got := ps.ReadAnonymous(); got != "peekable" {
		t.Fatalf("expected a second peek to still see the value, got %q", got)
	}
}

func TestQueuePushAndDrainIsFIFO(t *testing.T) {
	q := NewQueue()
	q.Push("first")
	q.PushIf(false, "dropped")
	q.PushIf(true, "second")

	if n := q.Len(); n != 2 {
		t.Fatalf("expected 2 queued chunks, got %d", n)
	}
	got := q.Drain()
	want := []string{"first", "second"}
	if len(got) != len(want) {
		t.Fatalf("unexpected drained chunks: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
	if n := q.Len(); n != 0 {
		t.Fatalf("expected queue empty after drain, got %d", n)
	}
}
