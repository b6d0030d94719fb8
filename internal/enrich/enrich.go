// Package enrich implements the L3 enrich stage: it derives additional
// views and features from a NormalizedInput without ever removing
// information sanitize produced. The only enrich scanner today is the
// skeleton view builder; enrich scanners never emit findings — only detect
// scanners render verdicts.
package enrich

import (
	"github.com/gzhole/schnabel/internal/confusables"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

// BuildSkeleton derives the skeleton view from the sanitized view by folding
// confusable characters to their Latin equivalents, so that detect scanners
// can compare skeleton forms instead of re-running UTS#39 folding
// themselves.
func BuildSkeleton(v viewset.ViewSet) viewset.ViewSet {
	v.Skeleton = confusables.Skeletonize(v.Sanitized)
	return v
}

// Run fills in the Skeleton field of every view already present on input.
// It requires sanitize to have run first (input.Views must be non-nil);
// callers that invoke enrich before sanitize get input back unchanged.
func Run(input model.NormalizedInput) (model.NormalizedInput, []model.Finding) {
	out := input.Clone()
	if out.Views == nil {
		return out, nil
	}

	views := *out.Views
	views.Prompt = BuildSkeleton(views.Prompt)
	views.Chunks = append([]viewset.Chunk(nil), views.Chunks...)
	for i, c := range views.Chunks {
		views.Chunks[i].Views = BuildSkeleton(c.Views)
	}
	if views.Response != nil {
		skeleton := BuildSkeleton(*views.Response)
		views.Response = &skeleton
	}
	out.Views = &views

	// Enrich never emits findings: the skeleton view exists purely to give
	// detect scanners a cheaper comparison surface.
	return out, nil
}
