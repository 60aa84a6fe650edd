package rad

import (
	"strings"
	"testing"
)

func newTestProcessor(cfg *Config) (*Processor, *strings.Builder) {
	var b strings.Builder
	p := New(cfg, &sinkWriter{w: &b})
	return p, &b
}

func TestExecuteIdentityOnPlainText(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("hello, world\nno macros here\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "hello, world\nno macros here\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteDefineAndInvokeRuntimeMacro(t *testing.T) {
	p, out := newTestProcessor(nil)
	script := "$define(greet,name=Hello, $name()!)\n$greet(World)"
	if err := p.Execute(script); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// define's trailing newline is consumed (spec §4.1's None case), so
	// the only visible output is the runtime macro's expansion.
	if got := out.String(); got != "Hello, World!" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteIfElseBranches(t *testing.T) {
	cases := []struct {
		script string
		want   string
	}{
		{"$ifelse(1,yes,no)", "yes"},
		{"$ifelse(0,yes,no)", "no"},
		{"$ifelse(,yes,no)", "no"},
	}
	for _, c := range cases {
		p, out := newTestProcessor(nil)
		if err := p.Execute(c.script); err != nil {
			t.Fatalf("%s: unexpected error: %v", c.script, err)
		}
		if got := out.String(); got != c.want {
			t.Fatalf("%s: got %q want %q", c.script, got, c.want)
		}
	}
}

func TestExecuteIfElseNoBranchTakenConsumesNewline(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$ifelse(0,yes)\nafter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "after" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteForeachConcatenatesElements(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$foreach($item(),a,b,c)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "abc" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteForeachLiteralSpanIsOneElement(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute(`$foreach(\*[$item()]*\,\*x,y,z*\)`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "[x,y,z]" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteForloopCountsInclusive(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$forloop(1,3,$i())"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "123" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteForloopDescending(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$forloop(3,1,$i())"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "321" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteRepeat(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$repeat(3,x)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "xxx" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteTextMacros(t *testing.T) {
	cases := []struct {
		script string
		want   string
	}{
		{"$upper(hi)", "HI"},
		{"$lower(HI)", "hi"},
		{"$trim(  hi  )", "hi"},
		{"$sub(1,4,hello)", "ell"},
		{"$head(hello,2)", "he"},
		{"$tail(hello,2)", "lo"},
	}
	for _, c := range cases {
		p, out := newTestProcessor(nil)
		if err := p.Execute(c.script); err != nil {
			t.Fatalf("%s: unexpected error: %v", c.script, err)
		}
		if got := out.String(); got != c.want {
			t.Fatalf("%s: got %q want %q", c.script, got, c.want)
		}
	}
}

func TestExecuteSubBoundaryBehaviors(t *testing.T) {
	cases := []struct {
		script string
		want   string
	}{
		{"$sub(2,2,hello)", ""},  // a==b -> empty
		{"$sub(99,2,hello)", ""}, // a>len(s) -> clamps to empty
		{"$sub(3,,hello)", "lo"}, // b empty -> runs to end
		{"$sub(,2,hello)", "he"}, // a empty -> starts at 0
	}
	for _, c := range cases {
		p, out := newTestProcessor(nil)
		if err := p.Execute(c.script); err != nil {
			t.Fatalf("%s: unexpected error: %v", c.script, err)
		}
		if got := out.String(); got != c.want {
			t.Fatalf("%s: got %q want %q", c.script, got, c.want)
		}
	}
}

func TestExecuteCompEqualsTrimChomp(t *testing.T) {
	p1, out1 := newTestProcessor(nil)
	if err := p1.Execute("$comp(  a  b\n\n\nc  )"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, out2 := newTestProcessor(nil)
	if err := p2.Execute("$trim($chomp(  a  b\n\n\nc  ))"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out1.String() != out2.String() {
		t.Fatalf("comp(x) != trim(chomp(x)): %q vs %q", out1.String(), out2.String())
	}
}

func TestExecuteArrStripsLiteralMarkers(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute(`$arr(\*1,2,3*\)`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "1,2,3" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteJoinRejoinsWithDelimiter(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$join(-,a,b,c)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "a-b-c" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteUnknownMacroStrictErrors(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$nope()"); err == nil {
		t.Fatalf("expected error for unknown macro under strict behavior")
	}
}

func TestExecuteUnknownMacroLenientPassesThroughRaw(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Behavior = BehaviorLenient
	p, out := newTestProcessor(cfg)
	if err := p.Execute("before $nope() after"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "before $nope() after" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteUnknownMacroPurgeDrops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Behavior = BehaviorPurge
	p, out := newTestProcessor(cfg)
	if err := p.Execute("before $nope() after"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "before  after" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecutePipeRoundTrip(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$pipe(hello)$anon()"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "hello" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecutePipetoRoundTrip(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$pipeto(greeting,hi there)$pipeget(greeting)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "hi there" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteEscapeStopsExpansionButKeepsText(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$escape()$upper(hi)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "$upper(hi)" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteExitStopsProcessingEntirely(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("before $exit() after"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "before " {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteQueDrainsAtTopLevel(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$que($upper(queued))\nvisible"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "visibleQUEUED" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestExecuteQueifOnlyQueuesWhenTruthy(t *testing.T) {
	p, out := newTestProcessor(nil)
	if err := p.Execute("$queif(0,dropped)$queif(1,kept)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "kept" {
		t.Fatalf("unexpected output: %q", got)
	}
}
