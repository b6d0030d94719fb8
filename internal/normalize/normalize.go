// Package normalize builds a deterministic NormalizedInput from a raw
// AuditRequest: it validates required fields, trims text, deduplicates and
// sorts tool names, drops empty prompt chunks, and derives canonical JSON
// for tool calls/results. This is the teacher's normalize package
// (originally shell-argument normalization) generalized to request
// normalization — the shape of the job (validate → trim → derive a few
// cheap features) stays the same.
package normalize

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/gzhole/schnabel/internal/auditerr"
	"github.com/gzhole/schnabel/internal/canonical"
	"github.com/gzhole/schnabel/internal/model"
)

// DefaultMaxPromptLength is the cap applied when Options.MaxPromptLength is
// zero: 1 MiB, per spec.
const DefaultMaxPromptLength = 1 << 20

// DefaultMaxRequestIDLength bounds requestId length.
const DefaultMaxRequestIDLength = 255

// Options controls caller-configurable validation limits.
type Options struct {
	MaxPromptLength int
}

// Normalize validates req and builds a NormalizedInput. It is deterministic:
// equal inputs (including equal Options) always produce equal output, and
// it is idempotent — normalizing the Raw of an already-normalized input
// reproduces the same Canonical.
func Normalize(req *model.AuditRequest, opts Options) (*model.NormalizedInput, error) {
	if req == nil {
		return nil, auditerr.New(auditerr.InvalidRequest, "request is nil")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	maxLen := opts.MaxPromptLength
	if maxLen <= 0 {
		maxLen = DefaultMaxPromptLength
	}

	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) > maxLen {
		return nil, auditerr.New(auditerr.InvalidRequest, "prompt exceeds maxPromptLength")
	}

	chunks := make([]model.CanonicalChunk, 0, len(req.PromptChunks))
	for _, c := range req.PromptChunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		source := c.Source
		if source == "" {
			source = model.SourceUnknown
		}
		chunks = append(chunks, model.CanonicalChunk{Source: source, Text: text})
	}

	toolNames := dedupSortToolNames(req.ToolCalls)

	toolCallsJSON := canonical.Canonicalize(toolCallsAsValues(req.ToolCalls))
	toolResultsJSON := canonical.Canonicalize(toolResultsAsValues(req.ToolResults))

	var responseText *string
	if req.ResponseText != "" {
		trimmed := strings.TrimSpace(req.ResponseText)
		responseText = &trimmed
	}

	promptLen := len([]rune(prompt))

	normalized := &model.NormalizedInput{
		RequestID: req.RequestID,
		Canonical: model.Canonical{
			Prompt:                prompt,
			PromptChunksCanonical: chunks,
			ToolCallsJSON:         toolCallsJSON,
			ToolResultsJSON:       toolResultsJSON,
			ResponseText:          responseText,
		},
		Features: model.Features{
			HasToolCalls:   len(req.ToolCalls) > 0,
			HasToolResults: len(req.ToolResults) > 0,
			ToolNames:      toolNames,
			LanguageHint:   languageHint(prompt),
			PromptLength:   promptLen,
		},
		Raw:         req,
		ToolCalls:   append([]model.ToolCall(nil), req.ToolCalls...),
		ToolResults: append([]model.ToolResult(nil), req.ToolResults...),
	}

	return normalized, nil
}

func validate(req *model.AuditRequest) error {
	if req.RequestID == "" {
		return auditerr.New(auditerr.InvalidRequest, "requestId is required")
	}
	if len(req.RequestID) > DefaultMaxRequestIDLength {
		return auditerr.New(auditerr.InvalidRequest, "requestId exceeds 255 characters")
	}
	if math.IsNaN(req.Timestamp) || math.IsInf(req.Timestamp, 0) || req.Timestamp < 0 {
		return auditerr.New(auditerr.InvalidRequest, "timestamp must be finite and >= 0")
	}
	return nil
}

func dedupSortToolNames(calls []model.ToolCall) []string {
	seen := make(map[string]bool, len(calls))
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		if c.ToolName == "" || seen[c.ToolName] {
			continue
		}
		seen[c.ToolName] = true
		names = append(names, c.ToolName)
	}
	sort.Strings(names)
	return names
}

func toolCallsAsValues(calls []model.ToolCall) []interface{} {
	out := make([]interface{}, len(calls))
	for i, c := range calls {
		out[i] = map[string]interface{}{"toolName": c.ToolName, "args": c.Args}
	}
	return out
}

func toolResultsAsValues(results []model.ToolResult) []interface{} {
	out := make([]interface{}, len(results))
	for i, r := range results {
		m := map[string]interface{}{"toolName": r.ToolName, "ok": r.Ok, "result": r.Result}
		if r.LatencyMs != nil {
			m["latencyMs"] = *r.LatencyMs
		}
		out[i] = m
	}
	return out
}

// languageHint applies a coarse, conservative heuristic: if the prompt
// contains any Hangul syllable, it is "ko"; if it contains Latin letters and
// no Hangul, it is "en"; otherwise "unknown". Per spec's open question,
// anything outside English/Korean is reported as unknown rather than
// guessed.
func languageHint(s string) string {
	hasHangul := false
	hasLatin := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hasHangul = true
		case unicode.Is(unicode.Latin, r):
			hasLatin = true
		}
	}
	switch {
	case hasHangul:
		return "ko"
	case hasLatin:
		return "en"
	default:
		return "unknown"
	}
}
