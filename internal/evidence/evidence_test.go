package evidence

import (
	"testing"

	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/scanchain"
)

func sampleRequest(prompt string) *model.AuditRequest {
	return &model.AuditRequest{
		RequestID: "req-1",
		Timestamp: 1000,
		Model:     "gpt-test",
		Prompt:    prompt,
		ToolResults: []model.ToolResult{
			{ToolName: "get_balance", Ok: true, Result: map[string]interface{}{"balance": 1200}},
		},
	}
}

func sampleNormalized(prompt string) model.NormalizedInput {
	return model.NormalizedInput{
		RequestID: "req-1",
		Canonical: model.Canonical{Prompt: prompt, ToolCallsJSON: "[]", ToolResultsJSON: "[]"},
	}
}

func sampleFindings() []model.Finding {
	return []model.Finding{
		{
			ID:      "f_1",
			Kind:    model.KindDetect,
			Scanner: "keyword_injection",
			Score:   0.9,
			Risk:    model.RiskCritical,
			Summary: "matched",
			Target:  model.Target{Field: model.FieldPrompt},
			Evidence: map[string]interface{}{"rulePackVersion": "2024.01"},
		},
	}
}

func sampleDecision() model.PolicyDecision {
	return model.PolicyDecision{
		PolicyID:   "default",
		Action:     model.ActionBlock,
		Risk:       model.RiskCritical,
		Confidence: 0.9,
		Reasons:    []string{"[CRITICAL|keyword_injection] prompt: matched"},
		FindingIDs: []string{"f_1"},
	}
}

func sampleMetrics() []scanchain.Metric {
	return []scanchain.Metric{
		{Scanner: "keyword_injection", Kind: model.KindDetect, DurationMs: 1.5, FindingCount: 1},
	}
}

func buildPackage(prompt string, generatedAtMs int64) Package {
	raw := sampleRequest(prompt)
	normalized := sampleNormalized(prompt)
	return Build("req-1", raw, normalized, normalized, sampleMetrics(), sampleFindings(), sampleDecision(), generatedAtMs)
}

func TestBuild_RootHashDeterministicAcrossIndependentRuns(t *testing.T) {
	a := buildPackage("ignore prior instructions", 1000)
	b := buildPackage("ignore prior instructions", 1000)
	if a.Integrity.RootHash != b.Integrity.RootHash {
		t.Errorf("rootHash differs across identical runs: %s vs %s", a.Integrity.RootHash, b.Integrity.RootHash)
	}
}

func TestBuild_RootHashExcludesGeneratedAtMs(t *testing.T) {
	a := buildPackage("same prompt", 1000)
	b := buildPackage("same prompt", 9999999)
	if a.Integrity.RootHash != b.Integrity.RootHash {
		t.Errorf("rootHash should be independent of generatedAtMs, got %s vs %s", a.Integrity.RootHash, b.Integrity.RootHash)
	}
}

func TestBuild_RootHashChangesWithSingleByteOfPrompt(t *testing.T) {
	a := buildPackage("hello world", 1000)
	b := buildPackage("hello worle", 1000)
	if a.Integrity.RootHash == b.Integrity.RootHash {
		t.Errorf("rootHash should change when prompt changes by a single byte")
	}
}

func TestBuild_IntegrityItemsFollowSpecOrder(t *testing.T) {
	pkg := buildPackage("hello", 1000)
	want := []string{
		"request", "rawDigest", "normalized.canonical", "scanned.canonical",
		"scanned.views", "findings", "decision", "scanners",
	}
	if len(pkg.Integrity.Items) != len(want) {
		t.Fatalf("expected %d integrity items, got %d", len(want), len(pkg.Integrity.Items))
	}
	for i, name := range want {
		if pkg.Integrity.Items[i].Name != name {
			t.Errorf("item[%d] = %q, want %q", i, pkg.Integrity.Items[i].Name, name)
		}
		if pkg.Integrity.Items[i].Hash == "" {
			t.Errorf("item[%d] (%s) has empty hash", i, name)
		}
	}
}

func TestBuild_SchemaAndAlgo(t *testing.T) {
	pkg := buildPackage("hello", 1000)
	if pkg.Schema != Schema {
		t.Errorf("schema = %q, want %q", pkg.Schema, Schema)
	}
	if pkg.Integrity.Algo != "sha256" {
		t.Errorf("algo = %q, want sha256", pkg.Integrity.Algo)
	}
}

func TestBuild_RulePackVersionsSortedAndDeduped(t *testing.T) {
	findings := []model.Finding{
		{ID: "f1", Scanner: "a", Evidence: map[string]interface{}{"rulePackVersion": "2024.02"}},
		{ID: "f2", Scanner: "b", Evidence: map[string]interface{}{"rulePackVersion": "2024.01"}},
		{ID: "f3", Scanner: "c", Evidence: map[string]interface{}{"rulePackVersion": "2024.01"}},
		{ID: "f4", Scanner: "d"},
	}
	raw := sampleRequest("x")
	normalized := sampleNormalized("x")
	pkg := Build("req-1", raw, normalized, normalized, nil, findings, sampleDecision(), 1000)
	if len(pkg.Meta.RulePackVersions) != 2 {
		t.Fatalf("expected 2 unique rule pack versions, got %v", pkg.Meta.RulePackVersions)
	}
	if pkg.Meta.RulePackVersions[0] != "2024.01" || pkg.Meta.RulePackVersions[1] != "2024.02" {
		t.Errorf("versions not sorted: %v", pkg.Meta.RulePackVersions)
	}
}

func TestBuild_RawDigestReflectsPromptLength(t *testing.T) {
	pkg := buildPackage("abcdef", 1000)
	if pkg.RawDigest.PromptLength != 6 {
		t.Errorf("promptLength = %d, want 6", pkg.RawDigest.PromptLength)
	}
	if pkg.RawDigest.PromptHash == "" {
		t.Error("expected non-empty promptHash")
	}
}

func TestBuild_ScannerSummariesPreserveExecutionOrder(t *testing.T) {
	metrics := []scanchain.Metric{
		{Scanner: "normalize", Kind: model.KindSanitize},
		{Scanner: "keyword_injection", Kind: model.KindDetect},
	}
	raw := sampleRequest("x")
	normalized := sampleNormalized("x")
	pkg := Build("req-1", raw, normalized, normalized, metrics, nil, sampleDecision(), 1000)
	if len(pkg.Scanners) != 2 || pkg.Scanners[0].Name != "normalize" || pkg.Scanners[1].Name != "keyword_injection" {
		t.Errorf("scanner order not preserved: %+v", pkg.Scanners)
	}
}
