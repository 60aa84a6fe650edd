package rad

import (
	"encoding/json"
	"testing"
)

func TestExportSignaturesIsValidIndentedJSON(t *testing.T) {
	p, _ := newTestProcessor(nil)
	data, err := p.ExportSignatures()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var export SignatureExport
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("output did not parse as the expected shape: %v", err)
	}
	if len(export) == 0 {
		t.Fatalf("expected at least the builtin macros to be listed")
	}
}

func TestExportSignaturesIncludesBuiltinsAndUserDefined(t *testing.T) {
	p, _ := newTestProcessor(nil)
	if err := p.Execute("$define(greet,name=Hello, $name!)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := p.ExportSignatures()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var export SignatureExport
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	upper, ok := export["upper"]
	if !ok || upper.Variant != "Function" {
		t.Fatalf("expected a Function signature for \"upper\", got %+v (present=%v)", upper, ok)
	}

	greet, ok := export["greet"]
	if !ok || greet.Variant != "Runtime" {
		t.Fatalf("expected a Runtime signature for \"greet\", got %+v (present=%v)", greet, ok)
	}
	if len(greet.Args) != 1 || greet.Args[0] != "name" {
		t.Fatalf("expected greet's args to be [\"name\"], got %v", greet.Args)
	}
	if greet.Expr != "Hello, $name!" {
		t.Fatalf("unexpected greet body: %q", greet.Expr)
	}
}

func TestExportSignaturesSortedByName(t *testing.T) {
	p, _ := newTestProcessor(nil)
	sigs := p.macros.ListSignatures()
	for i := 1; i < len(sigs); i++ {
		if sigs[i-1].Name > sigs[i].Name {
			t.Fatalf("signatures not sorted: %q came before %q", sigs[i-1].Name, sigs[i].Name)
		}
	}
}
