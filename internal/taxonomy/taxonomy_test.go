package taxonomy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog_CoversShippedScannerTags(t *testing.T) {
	cat := DefaultCatalog()
	for _, tag := range []string{
		"prompt-injection", "ssrf", "path-traversal", "fact-mismatch",
		"contradiction", "homoglyph", "history-pattern",
	} {
		if _, ok := cat.Lookup(tag); !ok {
			t.Errorf("DefaultCatalog missing entry for tag %q", tag)
		}
	}
}

func TestCatalog_Describe_SkipsUnknownTags(t *testing.T) {
	cat := DefaultCatalog()
	described := cat.Describe([]string{"ssrf", "http_fetch"})
	if len(described) != 1 {
		t.Fatalf("expected 1 described entry, got %d", len(described))
	}
	if described[0].Tag != "ssrf" {
		t.Errorf("tag = %q, want ssrf", described[0].Tag)
	}
}

func TestLoadCatalog_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `tags:
  - tag: prompt-injection
    name: Prompt Injection
    riskLevel: high
    description: test description
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test catalog: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	entry, ok := cat.Lookup("prompt-injection")
	if !ok {
		t.Fatal("expected prompt-injection entry to be loaded")
	}
	if entry.Description != "test description" {
		t.Errorf("description = %q", entry.Description)
	}
}

func TestCatalog_Lookup_NilCatalogIsSafe(t *testing.T) {
	var cat *Catalog
	if _, ok := cat.Lookup("ssrf"); ok {
		t.Error("expected nil catalog lookup to report not found")
	}
}
