package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/gzhole/schnabel/internal/model"
)

// RulePack evaluates every rule in a CompiledRulePack against every
// in-scope view of every in-scope field (prompt, chunks, response); a rule's
// source restriction applies to prompt chunks only. A rule's negative pattern, when
// present, suppresses an otherwise-matching finding — e.g. a rule matching
// "delete all files" paired with a negative pattern for "don't" avoids
// flagging "don't delete all files".
type RulePack struct {
	base
	Pack *model.CompiledRulePack
}

func (RulePack) Name() string { return "rule_pack" }

func (s RulePack) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	if s.Pack == nil {
		return input, nil, nil
	}

	var findings []model.Finding
	findings = append(findings, s.scanField(input, model.FieldPrompt, -1, model.SourceUser)...)

	for i, c := range input.Canonical.PromptChunksCanonical {
		findings = append(findings, s.scanField(input, model.FieldPromptChunk, i, c.Source)...)
	}

	if input.Canonical.ResponseText != nil {
		findings = append(findings, s.scanField(input, model.FieldResponse, -1, "")...)
	}

	return input, findings, nil
}

func (s RulePack) scanField(input model.NormalizedInput, field model.TargetField, chunkIndex int, source model.Source) []model.Finding {
	views := viewsFor(input, field, chunkIndex)
	var findings []model.Finding

	for _, rule := range s.Pack.Rules {
		if !rule.HasScope(scopeFor(field)) || (field == model.FieldPromptChunk && !rule.HasSource(source)) {
			continue
		}

		for _, view := range views.All() {
			if view.Text == "" {
				continue
			}
			if !ruleMatches(rule, view.Text) {
				continue
			}

			var idxPtr *int
			key := fmt.Sprintf("%s:%s:%d:%s", rule.ID, field, chunkIndex, view.Kind)
			if chunkIndex >= 0 {
				idxPtr = &chunkIndex
			}
			findings = append(findings, model.Finding{
				ID:      model.FindingID("rule_pack", input.RequestID, key),
				Kind:    model.KindDetect,
				Scanner: "rule_pack",
				Score:   rule.Score,
				Risk:    rule.Risk,
				Tags:    append([]string{rule.Category}, rule.Tags...),
				Summary: summaryFor(rule),
				Target: model.Target{
					Field:      field,
					View:       view.Kind,
					Source:     source,
					ChunkIndex: idxPtr,
				},
				Evidence: map[string]interface{}{"ruleId": rule.ID, "rulePackVersion": s.Pack.Version},
			})
			break // one finding per rule per field; the first matching view is reported
		}
	}
	return findings
}

func scopeFor(field model.TargetField) model.Scope {
	switch field {
	case model.FieldPrompt:
		return model.ScopePrompt
	case model.FieldPromptChunk:
		return model.ScopeChunks
	case model.FieldResponse:
		return model.ScopeResponse
	default:
		return model.ScopePrompt
	}
}

func summaryFor(rule model.CompiledRule) string {
	if rule.Summary != "" {
		return rule.Summary
	}
	return "matched rule " + rule.ID
}

func ruleMatches(rule model.CompiledRule, text string) bool {
	var positive bool
	switch rule.PatternType {
	case model.PatternRegex:
		positive = rule.Regex != nil && rule.Regex.MatchString(text)
	case model.PatternKeyword:
		positive = rule.Keyword != "" && strings.Contains(strings.ToLower(text), rule.Keyword)
	}
	if !positive {
		return false
	}

	switch rule.PatternType {
	case model.PatternRegex:
		if rule.NegativeRegex != nil && rule.NegativeRegex.MatchString(text) {
			return false
		}
	case model.PatternKeyword:
		if rule.NegativeKeyword != "" && strings.Contains(strings.ToLower(text), rule.NegativeKeyword) {
			return false
		}
	}
	return true
}

