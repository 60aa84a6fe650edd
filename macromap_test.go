package rad

import "testing"

func TestMacroMapDefineAndResolveRuntime(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	if err := m.Define(&MacroRecord{Name: "greet", Body: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := m.Resolve("greet", 0)
	if !ok {
		t.Fatalf("expected to resolve greet")
	}
	if r.Variant != VariantRuntime {
		t.Fatalf("expected Runtime variant, got %v", r.Variant)
	}
	if r.Record.Body != "hi" {
		t.Fatalf("unexpected body: %q", r.Record.Body)
	}
}

func TestMacroMapPrecedenceLocalOverRuntime(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	_ = m.Define(&MacroRecord{Name: "x", Body: "runtime"})
	m.DefineLocal(1, &MacroRecord{Name: "x", Body: "local"})

	r, ok := m.Resolve("x", 1)
	if !ok || r.Variant != VariantLocal || r.Record.Body != "local" {
		t.Fatalf("expected local to win at depth 1, got %#v", r)
	}

	r2, ok := m.Resolve("x", 0)
	if !ok || r2.Variant != VariantRuntime {
		t.Fatalf("expected runtime to win at depth 0, got %#v", r2)
	}
}

func TestMacroMapPurgeDepthRemovesOnlyThatDepth(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	m.DefineLocal(1, &MacroRecord{Name: "a", Body: "one"})
	m.DefineLocal(2, &MacroRecord{Name: "a", Body: "two"})

	m.PurgeDepth(1)

	if _, ok := m.Resolve("a", 1); ok {
		t.Fatalf("expected depth-1 local to be purged")
	}
	if r, ok := m.Resolve("a", 2); !ok || r.Record.Body != "two" {
		t.Fatalf("expected depth-2 local to survive")
	}
}

func TestMacroMapUndefineReservedNameFails(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	if err := m.Undefine("define", KindAny, 0); err == nil {
		t.Fatalf("expected error undefining a reserved name")
	}
}

func TestMacroMapAppendAndReplace(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	_ = m.Define(&MacroRecord{Name: "buf", Body: "a"})
	if err := m.Append("buf", 0, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := m.Resolve("buf", 0)
	if r.Record.Body != "ab" {
		t.Fatalf("expected appended body, got %q", r.Record.Body)
	}
	if err := m.Replace("buf", "z"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, _ := m.Resolve("buf", 0)
	if r2.Record.Body != "z" {
		t.Fatalf("expected replaced body, got %q", r2.Record.Body)
	}
}

func TestMacroMapHygieneVolatileSplit(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	m.SetHygiene(HygieneAseptic)
	_ = m.Define(&MacroRecord{Name: "v", Body: "vol"})

	if _, ok := m.Resolve("v", 0); ok {
		t.Fatalf("expected aseptic reads to miss volatile writes")
	}

	n := m.PurgeVolatile()
	if n != 1 {
		t.Fatalf("expected 1 volatile entry purged, got %d", n)
	}
}

func TestMacroMapRenameMovesRuntimeMacro(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	_ = m.Define(&MacroRecord{Name: "old", Body: "body"})
	if err := m.Rename("old", "new", KindAny); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Resolve("old", 0); ok {
		t.Fatalf("expected old name to be gone")
	}
	if r, ok := m.Resolve("new", 0); !ok || r.Record.Body != "body" {
		t.Fatalf("expected renamed macro to resolve, got %#v", r)
	}
}

func TestMacroMapSnapshotRestoreRoundTrip(t *testing.T) {
	m := NewMacroMap(NewLogger(false))
	_ = m.Define(&MacroRecord{Name: "a", Body: "1"})
	_ = m.Define(&MacroRecord{Name: "b", Body: "2"})

	snap := m.SnapshotRuntime()

	m2 := NewMacroMap(NewLogger(false))
	m2.RestoreRuntime(snap)

	for _, name := range []string{"a", "b"} {
		r1, ok1 := m.Resolve(name, 0)
		r2, ok2 := m2.Resolve(name, 0)
		if !ok1 || !ok2 || r1.Record.Body != r2.Record.Body {
			t.Fatalf("round-trip mismatch for %q", name)
		}
	}
}
