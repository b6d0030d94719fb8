package detect

import (
	"context"
	"fmt"

	"github.com/gzhole/schnabel/internal/model"
)

// Uts39Confusables flags prompt text whose skeleton view folds to something
// different from its sanitized view — evidence that the author mixed
// confusable characters from other scripts into otherwise-Latin text, a
// common way to slip a flagged phrase past literal keyword matching.
type Uts39Confusables struct{ base }

func (Uts39Confusables) Name() string { return "uts39_confusables" }

func (s Uts39Confusables) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	var findings []model.Finding

	if f := s.checkField(input, model.FieldPrompt, -1); f != nil {
		findings = append(findings, *f)
	}
	for i := range input.Canonical.PromptChunksCanonical {
		if f := s.checkField(input, model.FieldPromptChunk, i); f != nil {
			findings = append(findings, *f)
		}
	}
	return input, findings, nil
}

func (s Uts39Confusables) checkField(input model.NormalizedInput, field model.TargetField, chunkIndex int) *model.Finding {
	views := viewsFor(input, field, chunkIndex)
	if views.Sanitized == "" || views.Skeleton == "" || views.Sanitized == views.Skeleton {
		return nil
	}

	var idxPtr *int
	key := fmt.Sprintf("%s:%d", field, chunkIndex)
	if chunkIndex >= 0 {
		idxPtr = &chunkIndex
	}
	finding := model.Finding{
		ID:      model.FindingID("uts39_confusables", input.RequestID, key),
		Kind:    model.KindDetect,
		Scanner: "uts39_confusables",
		Score:   0.5,
		Risk:    model.RiskMedium,
		Tags:    []string{"homoglyph"},
		Summary: "text contains confusable characters from a different script than its visual appearance suggests",
		Target: model.Target{
			Field:      field,
			ChunkIndex: idxPtr,
		},
	}
	return &finding
}
