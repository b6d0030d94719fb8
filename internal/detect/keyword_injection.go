package detect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

// instructionOverridePatterns catch attempts to override or escape the
// system prompt's instructions.
var instructionOverridePatterns = compilePatterns([]string{
	`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|rules?)`,
	`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(previous\s+)?(instructions?|rules?|guidelines?)`,
	`(?i)forget\s+(all\s+)?(your|previous)\s+(instructions?|rules?)`,
	`(?i)override\s+(all\s+)?(safety|security)\s+(rules?|protocols?|guidelines?)`,
	`(?i)you\s+are\s+now\s+(free|unrestricted|unfiltered)`,
	`(?i)new\s+instructions?:\s+`,
	`(?i)system\s*:\s*(you\s+are|ignore|forget)`,
})

// promptExfilPatterns catch attempts to make the model reveal its system
// prompt or hidden instructions.
var promptExfilPatterns = compilePatterns([]string{
	`(?i)(show|reveal|display|print|output)\s+(me\s+)?(your|the)\s+(system\s+)?prompt`,
	`(?i)(what\s+are|tell\s+me)\s+(your|the)\s+(instructions?|rules?|guidelines?)`,
	`(?i)repeat\s+(your\s+)?(system\s+)?(prompt|instructions?)`,
})

// indirectInjectionPatterns catch fake role/control tokens smuggled inside
// retrieved or tool-provided text, intended to be read by the model as if
// they came from the system.
var indirectInjectionPatterns = compilePatterns([]string{
	`(?i)SYSTEM:\s*(ignore|forget|override|you\s+are)`,
	`(?i)\[INST\]`,
	`(?i)<\|im_start\|>system`,
	`(?i)BEGIN\s+HIDDEN\s+INSTRUCTIONS?`,
	`(?i)IMPORTANT:\s*(ignore|disregard|override)`,
})

type keywordRule struct {
	id       string
	category string
	risk     model.RiskLevel
	score    float64
	patterns []*regexp.Regexp
}

var keywordRules = []keywordRule{
	{"instruction_override", "prompt-injection", model.RiskHigh, 0.8, instructionOverridePatterns},
	{"prompt_exfiltration", "prompt-injection", model.RiskMedium, 0.5, promptExfilPatterns},
	{"indirect_injection", "prompt-injection", model.RiskCritical, 0.9, indirectInjectionPatterns},
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// KeywordInjection flags common prompt-injection phrasing across the
// revealed and skeleton views, so invisible-character and homoglyph evasion
// of the same phrases is still caught.
type KeywordInjection struct{ base }

func (KeywordInjection) Name() string { return "keyword_injection" }

func (s KeywordInjection) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	var findings []model.Finding

	findings = append(findings, scanField(input, model.FieldPrompt, -1)...)
	for i := range input.Canonical.PromptChunksCanonical {
		findings = append(findings, scanField(input, model.FieldPromptChunk, i)...)
	}

	return input, findings, nil
}

func scanField(input model.NormalizedInput, field model.TargetField, chunkIndex int) []model.Finding {
	views := viewsFor(input, field, chunkIndex)
	var findings []model.Finding

	for _, rule := range keywordRules {
		for _, view := range []viewset.Kind{viewset.Revealed, viewset.Skeleton} {
			text := views.Get(view)
			if text == "" || !matchesAny(text, rule.patterns) {
				continue
			}
			var idxPtr *int
			key := fmt.Sprintf("%s:%s:%d", rule.id, field, chunkIndex)
			if chunkIndex >= 0 {
				idxPtr = &chunkIndex
			}
			findings = append(findings, model.Finding{
				ID:      model.FindingID("keyword_injection", input.RequestID, key),
				Kind:    model.KindDetect,
				Scanner: "keyword_injection",
				Score:   rule.score,
				Risk:    rule.risk,
				Tags:    []string{rule.category},
				Summary: fmt.Sprintf("matched %s phrasing", rule.id),
				Target: model.Target{
					Field:      field,
					View:       view,
					ChunkIndex: idxPtr,
				},
			})
			break // one finding per rule per field regardless of how many views matched
		}
	}
	return findings
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
