package model

import "github.com/gzhole/schnabel/internal/viewset"

// CanonicalChunk is one surviving (non-empty, trimmed) prompt chunk after
// normalization, still carrying its provenance.
type CanonicalChunk struct {
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// Canonical holds the trimmed/canonicalized textual and JSON substrate of a
// request. toolCallsJson/toolResultsJson are canonical JSON (package
// canonical) over ToolCalls/ToolResults respectively.
type Canonical struct {
	Prompt                string            `json:"prompt"`
	PromptChunksCanonical []CanonicalChunk  `json:"promptChunksCanonical,omitempty"`
	ToolCallsJSON         string            `json:"toolCallsJson"`
	ToolResultsJSON       string            `json:"toolResultsJson"`
	ResponseText          *string           `json:"responseText,omitempty"`
}

// Features holds derived, cheap-to-check facts about the request.
type Features struct {
	HasToolCalls   bool     `json:"hasToolCalls"`
	HasToolResults bool     `json:"hasToolResults"`
	ToolNames      []string `json:"toolNames"`
	LanguageHint   string   `json:"languageHint"` // "ko", "en", "unknown"
	PromptLength   int      `json:"promptLength"`
}

// NormalizedInput is the working document threaded through the scanner
// chain. It is created once per request (L1), replaced by value after each
// scanner, and frozen when the chain ends.
type NormalizedInput struct {
	RequestID string               `json:"requestId"`
	Canonical Canonical            `json:"canonical"`
	Features  Features             `json:"features"`
	Views     *viewset.InputViews  `json:"views,omitempty"`

	// Raw preserves the original request by reference. Downstream code must
	// never mutate it.
	Raw *AuditRequest `json:"-"`

	// ToolCalls/ToolResults are kept alongside Canonical so detectors can
	// deep-walk the original (pre-canonicalization) shapes if needed; they
	// are never mutated after L1 except by the sanitize stage's
	// sanitize.CanonicalizeToolArgs, which replaces ToolCalls wholesale and
	// re-derives ToolCallsJSON.
	ToolCalls   []ToolCall   `json:"-"`
	ToolResults []ToolResult `json:"-"`
}

// Clone returns a shallow value copy suitable for "replaced by value after
// each scanner" semantics: Canonical and Features are copied by value,
// slices are re-sliced (scanners that mutate a slice element must first
// copy it), and Views/Raw are passed through by pointer since they are
// carried verbatim unless a scanner explicitly replaces them.
func (n NormalizedInput) Clone() NormalizedInput {
	out := n
	out.Canonical.PromptChunksCanonical = append([]CanonicalChunk(nil), n.Canonical.PromptChunksCanonical...)
	out.Features.ToolNames = append([]string(nil), n.Features.ToolNames...)
	out.ToolCalls = append([]ToolCall(nil), n.ToolCalls...)
	out.ToolResults = append([]ToolResult(nil), n.ToolResults...)
	return out
}
