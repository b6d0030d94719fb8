package detect

import (
	"context"
	"fmt"

	"github.com/gzhole/schnabel/internal/model"
)

// HistoryFlipFlop flags a session whose recent decisions oscillate between
// allow and a blocking action — a pattern consistent with an attacker
// iterating on phrasing until a rule pack or scanner happens not to fire,
// rather than a single rejected request followed by a genuinely different
// ask.
type HistoryFlipFlop struct {
	base
	Store historyStore
}

func (HistoryFlipFlop) Name() string { return "history_flipflop" }

func (s HistoryFlipFlop) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	if s.Store == nil {
		return input, nil, nil
	}
	turns, err := s.Store.Recent(sessionIDOf(input), HistoryWindow)
	if err != nil || len(turns) < 3 {
		return input, nil, nil
	}

	flips := 0
	for i := 1; i < len(turns); i++ {
		prevBlocked := turns[i-1].Action.AtLeast(model.ActionChallenge)
		currBlocked := turns[i].Action.AtLeast(model.ActionChallenge)
		if prevBlocked != currBlocked {
			flips++
		}
	}
	if flips < 2 {
		return input, nil, nil
	}

	return input, []model.Finding{{
		ID:      model.FindingID("history_flipflop", input.RequestID, fmt.Sprintf("%d", flips)),
		Kind:    model.KindDetect,
		Scanner: "history_flipflop",
		Score:   0.55,
		Risk:    model.RiskMedium,
		Tags:    []string{"history-pattern"},
		Summary: fmt.Sprintf("session decision oscillated between allow and block %d times across the last %d turns", flips, len(turns)),
		Target:  model.Target{Field: model.FieldPrompt},
	}}, nil
}
