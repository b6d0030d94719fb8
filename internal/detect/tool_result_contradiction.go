package detect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gzhole/schnabel/internal/model"
)

// successClaimPattern matches the response text claiming a tool operation
// succeeded ("I've successfully...", "I have updated the file").
var successClaimPattern = regexp.MustCompile(`(?i)(successfully|i've|i have)\s+\w*\s*(created|updated|deleted|saved|sent|completed|fixed|installed)`)

// failureAdmissionPattern matches the response admitting an operation
// failed, the mirror image used to catch the opposite contradiction
// (claiming failure when the tool actually succeeded).
var failureAdmissionPattern = regexp.MustCompile(`(?i)(failed|error|unable|couldn't|could not)\s+to\s+\w+`)

// ToolResultContradiction flags a response that claims a tool call
// succeeded when the matching ToolResult reports Ok == false, or claims
// failure when the result reports Ok == true — a model narrating an outcome
// that disagrees with ground truth, whether from hallucination or an
// attempt to mislead a human reviewing the transcript.
type ToolResultContradiction struct{ base }

func (ToolResultContradiction) Name() string { return "tool_result_contradiction" }

func (s ToolResultContradiction) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	if input.Canonical.ResponseText == nil {
		return input, nil, nil
	}
	response := *input.Canonical.ResponseText

	claimsSuccess := successClaimPattern.MatchString(response)
	claimsFailure := failureAdmissionPattern.MatchString(response)

	var findings []model.Finding
	for i, result := range input.ToolResults {
		if !result.Ok && claimsSuccess && !claimsFailure {
			findings = append(findings, contradictionFinding(input.RequestID, i, result.ToolName,
				fmt.Sprintf("response claims success but tool %q failed", result.ToolName)))
		}
		if result.Ok && claimsFailure && !claimsSuccess {
			findings = append(findings, contradictionFinding(input.RequestID, i, result.ToolName,
				fmt.Sprintf("response claims failure but tool %q succeeded", result.ToolName)))
		}
	}
	return input, findings, nil
}

func contradictionFinding(requestID string, idx int, toolName, summary string) model.Finding {
	return model.Finding{
		ID:      model.FindingID("tool_result_contradiction", requestID, fmt.Sprintf("%d:%s", idx, toolName)),
		Kind:    model.KindDetect,
		Scanner: "tool_result_contradiction",
		Score:   0.6,
		Risk:    model.RiskMedium,
		Tags:    []string{"contradiction", toolName},
		Summary: summary,
		Target:  model.Target{Field: model.FieldResponse},
	}
}
