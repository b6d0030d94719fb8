package normalize

import (
	"strings"
	"testing"

	"github.com/gzhole/schnabel/internal/auditerr"
	"github.com/gzhole/schnabel/internal/model"
)

func TestNormalize_RejectsNilRequest(t *testing.T) {
	_, err := Normalize(nil, Options{})
	if !auditerr.Is(err, auditerr.InvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestNormalize_RequiresRequestID(t *testing.T) {
	req := &model.AuditRequest{Prompt: "hello"}
	_, err := Normalize(req, Options{})
	if !auditerr.Is(err, auditerr.InvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestNormalize_RejectsOversizedRequestID(t *testing.T) {
	req := &model.AuditRequest{RequestID: strings.Repeat("a", DefaultMaxRequestIDLength+1), Prompt: "hi"}
	_, err := Normalize(req, Options{})
	if !auditerr.Is(err, auditerr.InvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestNormalize_RejectsNegativeTimestamp(t *testing.T) {
	req := &model.AuditRequest{RequestID: "r1", Timestamp: -1}
	_, err := Normalize(req, Options{})
	if !auditerr.Is(err, auditerr.InvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestNormalize_TrimsPrompt(t *testing.T) {
	req := &model.AuditRequest{RequestID: "r1", Prompt: "  hello world  "}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Canonical.Prompt != "hello world" {
		t.Errorf("expected trimmed prompt, got %q", n.Canonical.Prompt)
	}
}

func TestNormalize_PromptLengthBoundary(t *testing.T) {
	atLimit := &model.AuditRequest{RequestID: "r1", Prompt: strings.Repeat("a", 10)}
	if _, err := Normalize(atLimit, Options{MaxPromptLength: 10}); err != nil {
		t.Errorf("prompt at maxPromptLength should be accepted, got %v", err)
	}

	overLimit := &model.AuditRequest{RequestID: "r1", Prompt: strings.Repeat("a", 11)}
	_, err := Normalize(overLimit, Options{MaxPromptLength: 10})
	if !auditerr.Is(err, auditerr.InvalidRequest) {
		t.Errorf("prompt over maxPromptLength should be rejected, got %v", err)
	}
}

func TestNormalize_DropsEmptyPromptChunks(t *testing.T) {
	req := &model.AuditRequest{
		RequestID: "r1",
		PromptChunks: []model.PromptChunk{
			{Source: model.SourceUser, Text: "real"},
			{Source: model.SourceUser, Text: "   "},
			{Source: model.SourceUser, Text: ""},
		},
	}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Canonical.PromptChunksCanonical) != 1 {
		t.Fatalf("expected 1 surviving chunk, got %d", len(n.Canonical.PromptChunksCanonical))
	}
	if n.Canonical.PromptChunksCanonical[0].Text != "real" {
		t.Errorf("unexpected surviving chunk: %+v", n.Canonical.PromptChunksCanonical[0])
	}
}

func TestNormalize_ChunkSourceDefaultsToUnknown(t *testing.T) {
	req := &model.AuditRequest{
		RequestID:    "r1",
		PromptChunks: []model.PromptChunk{{Text: "no source given"}},
	}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Canonical.PromptChunksCanonical[0].Source != model.SourceUnknown {
		t.Errorf("expected SourceUnknown, got %v", n.Canonical.PromptChunksCanonical[0].Source)
	}
}

func TestNormalize_ToolNamesDedupedAndSorted(t *testing.T) {
	req := &model.AuditRequest{
		RequestID: "r1",
		ToolCalls: []model.ToolCall{
			{ToolName: "bash"},
			{ToolName: "web_fetch"},
			{ToolName: "bash"},
		},
	}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"bash", "web_fetch"}
	if len(n.Features.ToolNames) != len(want) {
		t.Fatalf("expected %v, got %v", want, n.Features.ToolNames)
	}
	for i, name := range want {
		if n.Features.ToolNames[i] != name {
			t.Errorf("ToolNames[%d] = %q, want %q", i, n.Features.ToolNames[i], name)
		}
	}
}

func TestNormalize_HasToolCallsAndResultsFlags(t *testing.T) {
	req := &model.AuditRequest{
		RequestID: "r1",
		ToolCalls: []model.ToolCall{{ToolName: "bash"}},
	}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Features.HasToolCalls {
		t.Error("expected HasToolCalls = true")
	}
	if n.Features.HasToolResults {
		t.Error("expected HasToolResults = false")
	}
}

func TestNormalize_ToolCallsCanonicalJSONIsDeterministic(t *testing.T) {
	req := &model.AuditRequest{
		RequestID: "r1",
		ToolCalls: []model.ToolCall{
			{ToolName: "bash", Args: map[string]interface{}{"b": 1, "a": 2}},
		},
	}
	n1, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n2, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n1.Canonical.ToolCallsJSON != n2.Canonical.ToolCallsJSON {
		t.Errorf("ToolCallsJSON is not deterministic: %q != %q", n1.Canonical.ToolCallsJSON, n2.Canonical.ToolCallsJSON)
	}
	if !strings.Contains(n1.Canonical.ToolCallsJSON, `"a":2`) {
		t.Errorf("expected canonical JSON to contain sorted keys, got %q", n1.Canonical.ToolCallsJSON)
	}
}

func TestNormalize_ResponseTextAbsentWhenEmpty(t *testing.T) {
	req := &model.AuditRequest{RequestID: "r1"}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Canonical.ResponseText != nil {
		t.Errorf("expected nil ResponseText, got %q", *n.Canonical.ResponseText)
	}
}

func TestNormalize_ResponseTextTrimmedWhenPresent(t *testing.T) {
	req := &model.AuditRequest{RequestID: "r1", ResponseText: "  done  "}
	n, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Canonical.ResponseText == nil || *n.Canonical.ResponseText != "done" {
		t.Errorf("expected trimmed response text, got %v", n.Canonical.ResponseText)
	}
}

func TestNormalize_LanguageHint(t *testing.T) {
	cases := []struct {
		prompt string
		want   string
	}{
		{"hello there", "en"},
		{"안녕하세요", "ko"},
		{"12345", "unknown"},
	}
	for _, c := range cases {
		req := &model.AuditRequest{RequestID: "r1", Prompt: c.prompt}
		n, err := Normalize(req, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n.Features.LanguageHint != c.want {
			t.Errorf("languageHint(%q) = %q, want %q", c.prompt, n.Features.LanguageHint, c.want)
		}
	}
}

func TestNormalize_IdempotentOnRaw(t *testing.T) {
	req := &model.AuditRequest{
		RequestID: "r1",
		Prompt:    "  hello  ",
		ToolCalls: []model.ToolCall{{ToolName: "bash", Args: map[string]interface{}{"x": 1}}},
	}
	first, err := Normalize(req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(first.Raw, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Canonical.Prompt != second.Canonical.Prompt {
		t.Errorf("Canonical.Prompt not idempotent: %q != %q", first.Canonical.Prompt, second.Canonical.Prompt)
	}
	if first.Canonical.ToolCallsJSON != second.Canonical.ToolCallsJSON {
		t.Errorf("Canonical.ToolCallsJSON not idempotent: %q != %q", first.Canonical.ToolCallsJSON, second.Canonical.ToolCallsJSON)
	}
}
