package rad

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFreezeThenMeltRoundTripsRuntimeMacrosAndBody(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$define(greet,name=Hello, $name()!)"); err != nil {
		t.Fatalf("unexpected error defining greet: %v", err)
	}

	path := filepath.Join(t.TempDir(), "script.radz")
	if err := p.Freeze(path, "$greet(World)"); err != nil {
		t.Fatalf("unexpected error freezing: %v", err)
	}

	p2, out := newTestProcessor(nil)
	body, err := p2.Melt(path)
	if err != nil {
		t.Fatalf("unexpected error melting: %v", err)
	}
	if body != "$greet(World)" {
		t.Fatalf("unexpected restored body: %q", body)
	}
	if err := p2.Execute(body); err != nil {
		t.Fatalf("unexpected error executing restored body: %v", err)
	}
	if got := out.String(); got != "Hello, World!" {
		t.Fatalf("unexpected output after melt: %q", got)
	}
}

func TestFreezeOmitsFunctionMacros(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$define(kept,=runtime value)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "script.radz")
	if err := p.Freeze(path, ""); err != nil {
		t.Fatalf("unexpected error freezing: %v", err)
	}

	p2, _ := newTestProcessor(nil)
	if _, err := p2.Melt(path); err != nil {
		t.Fatalf("unexpected error melting: %v", err)
	}
	if p2.macros.IsRuntime("upper") {
		t.Fatalf("melt must not have clobbered builtin Function macros")
	}
	if !p2.macros.IsRuntime("kept") {
		t.Fatalf("expected \"kept\" to be restored as a runtime macro")
	}
}

func TestMeltOnUnreadablePathFails(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if _, err := p.Melt(filepath.Join(t.TempDir(), "does-not-exist.radz")); err == nil {
		t.Fatalf("expected an error melting a nonexistent file")
	}
}

func TestFreezeGatedByFileOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FileOut = AuthRestricted
	p, _ := newTestProcessor(cfg)

	path := filepath.Join(t.TempDir(), "script.radz")
	if err := p.Freeze(path, "body"); err == nil {
		t.Fatalf("expected freeze to be blocked under restricted FileOut policy")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatalf("frozen file should not have been created when freeze was denied")
	}
}

func TestMeltGatedByFileIn(t *testing.T) {
	p, _ := newTestProcessor(nil)
	path := filepath.Join(t.TempDir(), "script.radz")
	if err := p.Freeze(path, "body"); err != nil {
		t.Fatalf("unexpected error freezing: %v", err)
	}

	cfg := DefaultConfig()
	cfg.FileIn = AuthRestricted
	p2, _ := newTestProcessor(cfg)
	if _, err := p2.Melt(path); err == nil {
		t.Fatalf("expected melt to be blocked under restricted FileIn policy")
	}
}
