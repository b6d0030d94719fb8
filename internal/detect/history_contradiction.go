package detect

import (
	"context"
	"fmt"

	"github.com/gzhole/schnabel/internal/model"
)

// HistoryWindow bounds how many recent turns HistoryContradiction and
// HistoryFlipFlop consider — deep enough to catch a sustained probing
// pattern, shallow enough that one old flagged turn doesn't haunt a session
// forever.
const HistoryWindow = 10

// historyRepeatThreshold is the number of recent turns that must share a
// detect scanner/category before HistoryContradiction escalates a single
// repeated attempt into a pattern finding.
const historyRepeatThreshold = 3

// HistoryContradiction flags a session where the same detect scanner or
// rule category has fired across several recent turns — a single flagged
// prompt might be noise, but the same category recurring is a sustained
// attempt working around the last refusal.
type HistoryContradiction struct {
	base
	Store historyStore
}

func (HistoryContradiction) Name() string { return "history_contradiction" }

func (s HistoryContradiction) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	if s.Store == nil {
		return input, nil, nil
	}
	turns, err := s.Store.Recent(sessionIDOf(input), HistoryWindow)
	if err != nil || len(turns) == 0 {
		return input, nil, nil
	}

	counts := map[string]int{}
	for _, t := range turns {
		for _, scanner := range t.DetectScanners {
			counts[scanner]++
		}
		for _, cat := range t.Categories {
			counts[cat]++
		}
	}

	var findings []model.Finding
	for key, n := range counts {
		if n < historyRepeatThreshold {
			continue
		}
		findings = append(findings, model.Finding{
			ID:      model.FindingID("history_contradiction", input.RequestID, key),
			Kind:    model.KindDetect,
			Scanner: "history_contradiction",
			Score:   0.6,
			Risk:    model.RiskHigh,
			Tags:    []string{"history-pattern", key},
			Summary: fmt.Sprintf("%q has fired in %d of the last %d turns for this session", key, n, len(turns)),
			Target:  model.Target{Field: model.FieldPrompt},
		})
	}
	return input, findings, nil
}
