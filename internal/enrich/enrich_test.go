package enrich

import (
	"testing"

	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/viewset"
)

func TestBuildSkeleton_FoldsConfusables(t *testing.T) {
	v := viewset.New("PАSSWORD")
	out := BuildSkeleton(v)
	if out.Skeleton != "PASSWORD" {
		t.Errorf("Skeleton = %q, want PASSWORD", out.Skeleton)
	}
	if out.Raw != v.Raw || out.Sanitized != v.Sanitized {
		t.Error("BuildSkeleton must not touch raw/sanitized/revealed")
	}
}

func TestRun_NoViewsIsNoop(t *testing.T) {
	input := model.NormalizedInput{RequestID: "r1"}
	out, findings := Run(input)
	if out.Views != nil {
		t.Error("expected Views to remain nil")
	}
	if findings != nil {
		t.Error("expected no findings")
	}
}

func TestRun_PopulatesSkeletonAcrossAllViews(t *testing.T) {
	input := model.NormalizedInput{
		RequestID: "r1",
		Views: &viewset.InputViews{
			Prompt: viewset.New("Аdmin"),
			Chunks: []viewset.Chunk{
				{Source: "user", Views: viewset.New("Тest")},
			},
		},
	}
	out, findings := Run(input)
	if findings != nil {
		t.Error("enrich must never emit findings")
	}
	if out.Views.Prompt.Skeleton != "Admin" {
		t.Errorf("prompt skeleton = %q, want Admin", out.Views.Prompt.Skeleton)
	}
	if out.Views.Chunks[0].Views.Skeleton != "Test" {
		t.Errorf("chunk skeleton = %q, want Test", out.Views.Chunks[0].Views.Skeleton)
	}
}

func TestRun_DoesNotMutateInputViews(t *testing.T) {
	original := viewset.New("Аdmin")
	input := model.NormalizedInput{
		RequestID: "r1",
		Views:     &viewset.InputViews{Prompt: original},
	}
	Run(input)
	if input.Views.Prompt.Skeleton != "Аdmin" {
		t.Error("Run must not mutate the caller's input in place")
	}
}
