package rad

import (
	"strings"
	"testing"
)

func collectSink() (*sinkWriter, func() string) {
	sw := &sinkWriter{w: &strings.Builder{}}
	return sw, func() string { return sw.w.String() }
}

func TestLexerIdentityOnPlainText(t *testing.T) {
	lx := NewLexer(DefaultLexerConfig())
	sw, result := collectSink()
	dispatch := func(f *Fragment) (string, bool, bool) {
		t.Fatalf("unexpected dispatch for fragment %q", f.Whole)
		return "", false, false
	}
	text := "hello, world\nno macros here\n"
	if err := lx.ProcessChunk(text, "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result(); got != text {
		t.Fatalf("expected identity, got %q", got)
	}
}

func TestLexerRecognizesSimpleInvocation(t *testing.T) {
	lx := NewLexer(DefaultLexerConfig())
	sw, result := collectSink()
	var seen *Fragment
	dispatch := func(f *Fragment) (string, bool, bool) {
		seen = f
		return "EXPANDED", false, false
	}
	if err := lx.ProcessChunk("before $upper(hi) after", "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil {
		t.Fatalf("expected dispatch to be called")
	}
	if seen.Name != "upper" || seen.Args != "hi" {
		t.Fatalf("unexpected fragment: name=%q args=%q", seen.Name, seen.Args)
	}
	if got := result(); got != "before EXPANDED after" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestLexerUnterminatedInvocationFlushesAsText(t *testing.T) {
	lx := NewLexer(DefaultLexerConfig())
	sw, result := collectSink()
	dispatch := func(f *Fragment) (string, bool, bool) {
		t.Fatalf("dispatch should not be called for an unterminated invocation")
		return "", false, false
	}
	text := "abc $upper(oops"
	if err := lx.ProcessChunk(text, "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result(); got != text {
		t.Fatalf("expected raw passthrough, got %q", got)
	}
}

func TestLexerEscapedStartCharIsLiteral(t *testing.T) {
	lx := NewLexer(DefaultLexerConfig())
	sw, result := collectSink()
	dispatch := func(f *Fragment) (string, bool, bool) {
		t.Fatalf("unexpected dispatch")
		return "", false, false
	}
	if err := lx.ProcessChunk(`price: \$5`, "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result(); got != "price: $5" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestLexerCommentAnyConsumesToNewline(t *testing.T) {
	cfg := DefaultLexerConfig()
	cfg.CommentAt = CommentAny
	lx := NewLexer(cfg)
	sw, result := collectSink()
	dispatch := func(f *Fragment) (string, bool, bool) {
		t.Fatalf("unexpected dispatch")
		return "", false, false
	}
	if err := lx.ProcessChunk("keep %drop this\nkeep2", "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result(); got != "keep \nkeep2" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestLexerPlatformNewlineConvertsLineEndings(t *testing.T) {
	cfg := DefaultLexerConfig()
	cfg.Newline = NewlinePlatform
	lx := NewLexer(cfg)
	sw, result := collectSink()
	dispatch := func(f *Fragment) (string, bool, bool) {
		t.Fatalf("unexpected dispatch")
		return "", false, false
	}
	if err := lx.ProcessChunk("a\nb\nc", "t", 1, 1, sw, dispatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.ReplaceAll("a\nb\nc", "\n", hostNewline)
	if got := result(); got != want {
		t.Fatalf("unexpected output: %q, want %q", got, want)
	}
}
