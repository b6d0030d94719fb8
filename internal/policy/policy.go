// Package policy turns a scan chain's findings into a single
// PolicyDecision: a risk/score cascade, then a pair of escalation rules
// that can force a harsher action regardless of what the cascade picked.
// Grounded on the teacher's internal/policy/engine.go Evaluate method
// (match rules, pick the most severe, build reasons), generalized from
// static policy rules to a continuous risk/score cascade over findings.
package policy

import (
	"fmt"
	"sort"

	"github.com/gzhole/schnabel/internal/model"
)

// contradictionScanners are the detect scanners the session-history
// escalation rule counts occurrences of.
var contradictionScanners = map[string]bool{
	"history_contradiction":      true,
	"history_flipflop":           true,
	"tool_result_contradiction":  true,
	"tool_result_fact_mismatch":  true,
}

// Config carries the cascade thresholds and reason/history limits.
type Config struct {
	PolicyID            string
	BlockAt             model.RiskLevel
	ChallengeAt         model.RiskLevel
	ChallengeScoreSumAt float64
	WarnScoreSumAt      float64
	MaxReasons          int
	HistoryWindow       int
}

// DefaultConfig matches spec defaults: blockAt=critical, challengeAt=high,
// challengeScoreSumAt=0.9, warnScoreSumAt=0.4, maxReasons=5, historyWindow=5.
func DefaultConfig() Config {
	return Config{
		PolicyID:            "default",
		BlockAt:             model.RiskCritical,
		ChallengeAt:         model.RiskHigh,
		ChallengeScoreSumAt: 0.9,
		WarnScoreSumAt:      0.4,
		MaxReasons:          5,
		HistoryWindow:       5,
	}
}

// Evaluate is a pure function of (findings, config): it aggregates stats,
// runs the base cascade, then applies the two escalation rules described
// in the policy evaluator design. history may be nil when no history store
// is wired; escalation rule 2 then only considers the current turn.
func Evaluate(findings []model.Finding, cfg Config, history []model.HistoryTurn) model.PolicyDecision {
	if cfg.MaxReasons <= 0 {
		cfg.MaxReasons = 5
	}

	stats := aggregateStats(findings)
	action, risk := baseCascade(stats, cfg)
	confidence := confidenceFor(risk)

	action, risk, confidence = escalateFactMismatch(findings, action, risk, confidence)
	action, risk, confidence = escalateHistoryPattern(findings, history, cfg.HistoryWindow, action, risk, confidence)

	return model.PolicyDecision{
		PolicyID:   cfg.PolicyID,
		Action:     action,
		Risk:       risk,
		Confidence: confidence,
		Reasons:    reasonsFor(findings, cfg.MaxReasons),
		FindingIDs: findingIDs(findings),
		Stats:      stats,
	}
}

func aggregateStats(findings []model.Finding) model.RiskStats {
	stats := model.RiskStats{ByRisk: map[model.RiskLevel]int{}}
	for _, f := range findings {
		stats.TotalFindings++
		stats.ScoreSum += f.Score
		if f.Score > stats.MaxScore {
			stats.MaxScore = f.Score
		}
		stats.ByRisk[f.Risk]++
	}
	return stats
}

func baseCascade(stats model.RiskStats, cfg Config) (model.Action, model.RiskLevel) {
	maxRisk := highestRisk(stats)

	switch {
	case maxRisk.AtLeast(cfg.BlockAt):
		return model.ActionBlock, maxRisk
	case maxRisk.AtLeast(cfg.ChallengeAt) || stats.ScoreSum >= cfg.ChallengeScoreSumAt:
		risk := maxRisk
		if !risk.AtLeast(cfg.ChallengeAt) {
			risk = cfg.ChallengeAt
		}
		return model.ActionChallenge, risk
	case stats.ScoreSum >= cfg.WarnScoreSumAt:
		return model.ActionAllowWithWarning, maxRisk
	default:
		return model.ActionAllow, maxRisk
	}
}

func highestRisk(stats model.RiskStats) model.RiskLevel {
	risk := model.RiskNone
	for r, n := range stats.ByRisk {
		if n > 0 {
			risk = model.MaxRisk(risk, r)
		}
	}
	return risk
}

func confidenceFor(risk model.RiskLevel) float64 {
	switch risk {
	case model.RiskCritical:
		return 0.9
	case model.RiskHigh:
		return 0.75
	case model.RiskMedium:
		return 0.6
	case model.RiskLow:
		return 0.55
	default:
		return 0.7
	}
}

// escalateFactMismatch implements escalation rule 1: any high-or-above
// tool_result_fact_mismatch finding forces a block regardless of the base
// cascade's verdict.
func escalateFactMismatch(findings []model.Finding, action model.Action, risk model.RiskLevel, confidence float64) (model.Action, model.RiskLevel, float64) {
	for _, f := range findings {
		if f.Scanner == "tool_result_fact_mismatch" && f.Risk.AtLeast(model.RiskHigh) {
			if confidence < 0.9 {
				confidence = 0.9
			}
			return model.ActionBlock, model.RiskCritical, confidence
		}
	}
	return action, risk, confidence
}

// escalateHistoryPattern implements escalation rule 2: repeated
// contradiction-family findings across the last `window` history turns
// plus the current turn force at least challenge (2 occurrences) or block
// (3+ occurrences).
func escalateHistoryPattern(findings []model.Finding, history []model.HistoryTurn, window int, action model.Action, risk model.RiskLevel, confidence float64) (model.Action, model.RiskLevel, float64) {
	if window <= 0 {
		window = 5
	}
	if window > len(history) {
		window = len(history)
	}

	total := 0
	for _, f := range findings {
		if contradictionScanners[f.Scanner] {
			total++
		}
	}
	for _, turn := range history[len(history)-window:] {
		for _, scanner := range turn.DetectScanners {
			if contradictionScanners[scanner] {
				total++
			}
		}
	}

	switch {
	case total >= 3:
		if confidence < 0.85 {
			confidence = 0.85
		}
		return model.ActionBlock, model.RiskCritical, confidence
	case total >= 2:
		newRisk := model.MaxRisk(risk, model.RiskHigh)
		newAction := action
		if !newAction.AtLeast(model.ActionChallenge) {
			newAction = model.ActionChallenge
		}
		if confidence < 0.75 {
			confidence = 0.75
		}
		return newAction, newRisk, confidence
	default:
		return action, risk, confidence
	}
}

func reasonsFor(findings []model.Finding, maxReasons int) []string {
	sorted := append([]model.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Risk.Rank() > sorted[j].Risk.Rank()
	})

	if len(sorted) > maxReasons {
		sorted = sorted[:maxReasons]
	}

	reasons := make([]string, 0, len(sorted))
	for _, f := range sorted {
		where := string(f.Target.Field)
		if f.Target.ChunkIndex != nil {
			where = fmt.Sprintf("%s[%d]", where, *f.Target.ChunkIndex)
		}
		reasons = append(reasons, fmt.Sprintf("[%s|%s] %s: %s",
			upperRisk(f.Risk), f.Scanner, where, f.Summary))
	}
	return reasons
}

func upperRisk(r model.RiskLevel) string {
	switch r {
	case model.RiskCritical:
		return "CRITICAL"
	case model.RiskHigh:
		return "HIGH"
	case model.RiskMedium:
		return "MEDIUM"
	case model.RiskLow:
		return "LOW"
	default:
		return "NONE"
	}
}

func findingIDs(findings []model.Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}
