// Package detect implements the L4 detect stage: the nine scanners that
// read a NormalizedInput's views and tool calls/results and emit risk-scored
// Findings. Unlike sanitize/enrich, detect scanners never rewrite the
// input — each Scan call returns its input unchanged, mirroring the
// teacher's guardian.HeuristicProvider (pattern match in, signals out, no
// mutation of the request).
package detect

import (
	"context"

	"github.com/gzhole/schnabel/internal/history"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

// Scanner is the common shape every detect scanner implements; it satisfies
// scanchain.Scanner without importing that package (detect must not depend
// on the runtime that drives it).
type Scanner interface {
	Name() string
	Kind() model.FindingKind
	Scan(ctx context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error)
}

// base implements Kind() for every detect scanner, since detect scanners
// never change that answer.
type base struct{}

func (base) Kind() model.FindingKind { return model.KindDetect }

// sessionIDOf extracts a session id from the request's Actor, falling back
// to the request id itself so history-dependent scanners always have a key
// to look history up by, even for actorless requests (e.g. CI-triggered
// audits with no end user).
func sessionIDOf(input model.NormalizedInput) string {
	if input.Raw != nil && input.Raw.Actor != nil && input.Raw.Actor.SessionID != "" {
		return input.Raw.Actor.SessionID
	}
	return input.RequestID
}

// viewsFor resolves the ViewSet to scan for a given target. When views haven't
// been built yet (sanitize/enrich didn't run), it returns a ViewSet whose four
// views all equal the field's canonical text.
func viewsFor(input model.NormalizedInput, field model.TargetField, chunkIndex int) viewset.ViewSet {
	if input.Views == nil {
		switch field {
		case model.FieldPrompt:
			return viewset.New(input.Canonical.Prompt)
		case model.FieldPromptChunk:
			if chunkIndex < len(input.Canonical.PromptChunksCanonical) {
				return viewset.New(input.Canonical.PromptChunksCanonical[chunkIndex].Text)
			}
		case model.FieldResponse:
			if input.Canonical.ResponseText != nil {
				return viewset.New(*input.Canonical.ResponseText)
			}
		}
		return viewset.ViewSet{}
	}

	switch field {
	case model.FieldPrompt:
		return input.Views.Prompt
	case model.FieldPromptChunk:
		if chunkIndex < len(input.Views.Chunks) {
			return input.Views.Chunks[chunkIndex].Views
		}
	case model.FieldResponse:
		if input.Views.Response != nil {
			return *input.Views.Response
		}
	}
	return viewset.ViewSet{}
}

// historyStore is the narrow interface the two history-dependent scanners
// need; history.InMemoryStore and any future Store implementation satisfy
// it.
type historyStore interface {
	Recent(sessionID string, limit int) ([]model.HistoryTurn, error)
}

var _ historyStore = (*history.InMemoryStore)(nil)
