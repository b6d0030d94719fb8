package detect

import (
	"context"
	"testing"

	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

func TestUts39Confusables_FlagsDivergentSkeleton(t *testing.T) {
	input := model.NormalizedInput{
		RequestID: "req-1",
		Canonical: model.Canonical{Prompt: "ignore"},
		Views: &viewset.InputViews{
			Prompt: viewset.ViewSet{Raw: "іgnore", Sanitized: "іgnore", Revealed: "іgnore", Skeleton: "ignore"},
		},
	}
	_, findings, err := Uts39Confusables{}.Scan(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}

func TestUts39Confusables_IdenticalViewsNotFlagged(t *testing.T) {
	input := model.NormalizedInput{
		RequestID: "req-2",
		Canonical: model.Canonical{Prompt: "hello world"},
		Views: &viewset.InputViews{
			Prompt: viewset.ViewSet{Raw: "hello world", Sanitized: "hello world", Revealed: "hello world", Skeleton: "hello world"},
		},
	}
	_, findings, _ := Uts39Confusables{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestUts39Confusables_NoViewsIsNoop(t *testing.T) {
	input := normalizedFromPrompt("hello")
	_, findings, _ := Uts39Confusables{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected no findings without populated views, got %d", len(findings))
	}
}

func TestUts39Confusables_ChecksPromptChunks(t *testing.T) {
	idx := 0
	input := model.NormalizedInput{
		RequestID: "req-3",
		Canonical: model.Canonical{
			Prompt:                "hello",
			PromptChunksCanonical: []model.CanonicalChunk{{Source: model.SourceRetrieval, Text: "аdmin"}},
		},
		Views: &viewset.InputViews{
			Prompt: viewset.ViewSet{Raw: "hello", Sanitized: "hello", Revealed: "hello", Skeleton: "hello"},
			Chunks: []viewset.Chunk{
				{Source: string(model.SourceRetrieval), Views: viewset.ViewSet{Raw: "аdmin", Sanitized: "аdmin", Revealed: "аdmin", Skeleton: "admin"}},
			},
		},
	}
	_, findings, _ := Uts39Confusables{}.Scan(context.Background(), input)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Target.ChunkIndex == nil || *findings[0].Target.ChunkIndex != idx {
		t.Errorf("expected chunk index %d, got %v", idx, findings[0].Target.ChunkIndex)
	}
}
