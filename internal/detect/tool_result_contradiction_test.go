package detect

import (
	"context"
	"testing"

	"github.com/gzhole/schnabel/internal/model"
)

func normalizedWithResponseAndResult(response string, result model.ToolResult) model.NormalizedInput {
	return model.NormalizedInput{
		RequestID:   "req-1",
		Canonical:   model.Canonical{ResponseText: &response},
		ToolResults: []model.ToolResult{result},
	}
}

func TestToolResultContradiction_FlagsClaimedSuccessOnFailure(t *testing.T) {
	input := normalizedWithResponseAndResult(
		"I've successfully created the file for you.",
		model.ToolResult{ToolName: "write_file", Ok: false},
	)
	_, findings, err := ToolResultContradiction{}.Scan(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}

func TestToolResultContradiction_FlagsClaimedFailureOnSuccess(t *testing.T) {
	input := normalizedWithResponseAndResult(
		"I failed to send the email, sorry about that.",
		model.ToolResult{ToolName: "send_email", Ok: true},
	)
	_, findings, _ := ToolResultContradiction{}.Scan(context.Background(), input)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}

func TestToolResultContradiction_MatchingOutcomeNotFlagged(t *testing.T) {
	input := normalizedWithResponseAndResult(
		"I've successfully created the file for you.",
		model.ToolResult{ToolName: "write_file", Ok: true},
	)
	_, findings, _ := ToolResultContradiction{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestToolResultContradiction_NoResponseTextIsNoop(t *testing.T) {
	input := model.NormalizedInput{
		RequestID:   "req-2",
		ToolResults: []model.ToolResult{{ToolName: "write_file", Ok: false}},
	}
	_, findings, _ := ToolResultContradiction{}.Scan(context.Background(), input)
	if findings != nil {
		t.Errorf("expected nil findings, got %v", findings)
	}
}

func TestToolResultContradiction_BothClaimsPresentIsAmbiguousNotFlagged(t *testing.T) {
	input := normalizedWithResponseAndResult(
		"I failed to update the record but successfully created a backup.",
		model.ToolResult{ToolName: "update_record", Ok: false},
	)
	_, findings, _ := ToolResultContradiction{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected ambiguous mixed claims to be skipped, got %d findings", len(findings))
	}
}
