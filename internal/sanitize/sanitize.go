// Package sanitize implements the L2 sanitize stage: building the
// "sanitized" and "revealed" views of a NormalizedInput's text, and
// canonicalizing tool-call arguments. Unlike detect scanners, sanitize
// scanners are allowed to rewrite the NormalizedInput they receive; findings
// they emit are advisory (e.g. "tag characters were present and decoded"),
// never decision-bearing on their own.
package sanitize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/gzhole/schnabel/internal/canonical"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

// invisibleRanges collects the zero-width, bidi-control, variation-selector
// and interlinear-annotation code points that are dropped from the
// sanitized view. Tag characters (U+E0000-E007F) are handled separately by
// HiddenAsciiTags since they carry recoverable payload rather than being
// pure noise.
var invisibleRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00AD, Hi: 0x00AD, Stride: 1},
		{Lo: 0x200B, Hi: 0x200F, Stride: 1},
		{Lo: 0x202A, Hi: 0x202E, Stride: 1},
		{Lo: 0x2060, Hi: 0x2064, Stride: 1},
		{Lo: 0x2066, Hi: 0x2069, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1},
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1},
		{Lo: 0xFFF9, Hi: 0xFFFB, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0xE0100, Hi: 0xE01EF, Stride: 1},
	},
}

func isTagCharacter(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	if r >= 0x00 && r <= 0x1F {
		return true
	}
	if r == 0x7F {
		return true
	}
	if r >= 0x80 && r <= 0x9F {
		return true
	}
	return false
}

// UnicodeSanitize strips invisible/bidi/control characters and applies NFKC
// normalization, returning the cleaned text and the count of characters it
// removed or replaced. Tag characters are left in place — HiddenAsciiTags
// handles those, since dropping them silently would destroy the forensic
// payload instead of revealing it.
func UnicodeSanitize(s string) (cleaned string, removed int) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case isTagCharacter(r):
			b.WriteRune(r)
		case isUnsafeControl(r), unicode.Is(invisibleRanges, r):
			removed++
		default:
			b.WriteRune(r)
		}
	}
	return norm.NFKC.String(b.String()), removed
}

// HiddenAsciiTagsResult holds the outcome of decoding Unicode tag-character
// steganography (U+E0001-E007F), the mechanism used by "ASCII smuggling"
// attacks to hide instructions that render invisibly in most UIs.
type HiddenAsciiTagsResult struct {
	Revealed string
	Found    bool
	Count    int
}

// DecodeHiddenAsciiTags scans s for Unicode tag characters and decodes them
// back to the ASCII they encode (tag code point - 0xE0000 == ASCII code
// point). Runs of decoded text are inserted in place so surrounding context
// is preserved.
func DecodeHiddenAsciiTags(s string) HiddenAsciiTagsResult {
	var b strings.Builder
	found := false
	count := 0
	for _, r := range s {
		if isTagCharacter(r) {
			ascii := r - 0xE0000
			if ascii >= 0x20 && ascii <= 0x7E {
				b.WriteRune(ascii)
				found = true
				count++
				continue
			}
			// Tag characters outside the printable ASCII range (including
			// U+E0001 "tag begin" and U+E007F "tag end") carry no visible
			// payload; drop them rather than emit control bytes.
			found = true
			count++
			continue
		}
		b.WriteRune(r)
	}
	return HiddenAsciiTagsResult{Revealed: b.String(), Found: found, Count: count}
}

// CollapseSeparators replaces runs of invisible/zero-width and control
// characters with a single space instead of deleting them, turning
// "ignore​all" into "ignore all" rather than "ignoreall". BuildViews calls
// it after UnicodeSanitize, which has already dropped those characters, so
// there it leaves the sanitized text unchanged.
func CollapseSeparators(s string) string {
	var b strings.Builder
	prevWasSeparator := false
	for _, r := range s {
		if unicode.Is(invisibleRanges, r) || (r <= 0x1F && r != '\t' && r != '\n' && r != '\r') {
			if !prevWasSeparator {
				b.WriteRune(' ')
			}
			prevWasSeparator = true
			continue
		}
		prevWasSeparator = false
		b.WriteRune(r)
	}
	return b.String()
}

// BuildViews constructs the full four-view ViewSet for one piece of text:
// raw is untouched, sanitized strips invisible/control noise and applies
// NFKC, revealed additionally decodes tag-character steganography on top of
// the sanitized text, and skeleton is left for the enrich stage (which has
// sole ownership of confusable folding).
func BuildViews(raw string) viewset.ViewSet {
	sanitized, _ := UnicodeSanitize(raw)
	sanitized = CollapseSeparators(sanitized)
	revealed := DecodeHiddenAsciiTags(sanitized).Revealed

	return viewset.ViewSet{
		Raw:       raw,
		Sanitized: sanitized,
		Revealed:  revealed,
		Skeleton:  "",
	}
}

// Run is the sanitize-stage entry point: it rebuilds Views for the prompt
// and every prompt chunk, and emits an advisory Finding whenever hidden tag
// characters were decoded, since their mere presence is noteworthy even
// though detect scanners make the actual risk call.
func Run(input model.NormalizedInput) (model.NormalizedInput, []model.Finding) {
	out := input.Clone()
	var findings []model.Finding

	promptViews := BuildViews(input.Canonical.Prompt)
	tagResult := DecodeHiddenAsciiTags(promptViews.Get(viewset.Sanitized))
	if tagResult.Found {
		findings = append(findings, tagFinding(input.RequestID, "sanitize_unicode", model.FieldPrompt, nil, tagResult.Count))
	}

	chunkViews := make([]viewset.Chunk, len(input.Canonical.PromptChunksCanonical))
	for i, c := range input.Canonical.PromptChunksCanonical {
		v := BuildViews(c.Text)
		chunkViews[i] = viewset.Chunk{Source: string(c.Source), Views: v}
		if r := DecodeHiddenAsciiTags(v.Get(viewset.Sanitized)); r.Found {
			idx := i
			findings = append(findings, tagFinding(input.RequestID, "sanitize_unicode", model.FieldPromptChunk, &idx, r.Count))
		}
	}

	var responseViews *viewset.ViewSet
	if input.Canonical.ResponseText != nil {
		v := BuildViews(*input.Canonical.ResponseText)
		responseViews = &v
		if r := DecodeHiddenAsciiTags(v.Get(viewset.Sanitized)); r.Found {
			findings = append(findings, tagFinding(input.RequestID, "sanitize_unicode", model.FieldResponse, nil, r.Count))
		}
	}

	out.Views = &viewset.InputViews{
		Prompt:   promptViews,
		Chunks:   chunkViews,
		Response: responseViews,
	}
	return out, findings
}

func tagFinding(requestID, scanner string, field model.TargetField, chunkIndex *int, count int) model.Finding {
	key := fmt.Sprintf("%s:%d", field, count)
	if chunkIndex != nil {
		key = fmt.Sprintf("%s:%d:%d", field, *chunkIndex, count)
	}
	return model.Finding{
		ID:      model.FindingID(scanner, requestID, key),
		Kind:    model.KindSanitize,
		Scanner: scanner,
		Score:   0.1,
		Risk:    model.RiskLow,
		Tags:    []string{"steganography", "unicode-tags"},
		Summary: fmt.Sprintf("decoded %d hidden Unicode tag character(s)", count),
		Target: model.Target{
			Field:      field,
			View:       viewset.Sanitized,
			ChunkIndex: chunkIndex,
		},
	}
}

// CanonicalizeToolArgs rewrites tool call arguments by applying the same
// UnicodeSanitize pass to every string leaf, then re-derives canonical JSON
// over the result. This defeats Unicode smuggling hidden inside tool
// arguments (e.g. a path or URL with zero-width characters) without
// changing the argument's visible semantics.
func CanonicalizeToolArgs(calls []model.ToolCall) ([]model.ToolCall, string) {
	out := make([]model.ToolCall, len(calls))
	values := make([]interface{}, len(calls))
	for i, c := range calls {
		cleanArgs := sanitizeValue(c.Args)
		out[i] = model.ToolCall{ToolName: c.ToolName, Args: cleanArgs}
		values[i] = map[string]interface{}{"toolName": c.ToolName, "args": cleanArgs}
	}
	return out, canonical.Canonicalize(values)
}

func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		cleaned, _ := UnicodeSanitize(t)
		return cleaned
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = sanitizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	default:
		return v
	}
}

// isValidUTF8String reports whether every rune in s decoded cleanly. Nothing
// in the package calls it.
func isValidUTF8String(s string) bool {
	return utf8.ValidString(s)
}
