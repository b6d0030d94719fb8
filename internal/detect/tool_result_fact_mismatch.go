package detect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gzhole/schnabel/internal/model"
)

// numberPattern pulls out bare integers/decimals so the response's claimed
// figures can be checked against what the tool actually returned.
var numberPattern = regexp.MustCompile(`\d[\d,]*\.?\d*`)

// ToolResultFactMismatch flags a response that states a numeric fact not
// present anywhere in the request's tool results, a cheap but effective
// signal that the model fabricated a figure instead of reporting what the
// tool returned.
type ToolResultFactMismatch struct{ base }

func (ToolResultFactMismatch) Name() string { return "tool_result_fact_mismatch" }

func (s ToolResultFactMismatch) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	if input.Canonical.ResponseText == nil || len(input.ToolResults) == 0 {
		return input, nil, nil
	}
	response := *input.Canonical.ResponseText
	claimed := extractNumbers(response)
	if len(claimed) == 0 {
		return input, nil, nil
	}

	available := map[string]bool{}
	for _, r := range input.ToolResults {
		// Every figure a tool returned counts, single digits included, so a
		// result of 0 still contradicts a claimed 100.
		for _, m := range numberPattern.FindAllString(resultText(r.Result), -1) {
			available[strings.ReplaceAll(m, ",", "")] = true
		}
	}
	if len(available) == 0 {
		return input, nil, nil
	}

	var findings []model.Finding
	for _, n := range claimed {
		if available[n] {
			continue
		}
		findings = append(findings, model.Finding{
			ID:      model.FindingID("tool_result_fact_mismatch", input.RequestID, n),
			Kind:    model.KindDetect,
			Scanner: "tool_result_fact_mismatch",
			Score:   0.8,
			Risk:    model.RiskHigh,
			Tags:    []string{"fact-mismatch"},
			Summary: fmt.Sprintf("response states figure %q not present in any tool result", n),
			Target:  model.Target{Field: model.FieldResponse},
		})
	}
	return input, findings, nil
}

func extractNumbers(s string) []string {
	matches := numberPattern.FindAllString(s, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		normalized := strings.ReplaceAll(m, ",", "")
		if _, err := strconv.ParseFloat(normalized, 64); err != nil {
			continue
		}
		if len(normalized) < 2 || seen[normalized] {
			continue // skip single digits, too common to be meaningful facts
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

func resultText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		var parts []string
		for _, val := range t {
			parts = append(parts, resultText(val))
		}
		return strings.Join(parts, " ")
	case []interface{}:
		var parts []string
		for _, val := range t {
			parts = append(parts, resultText(val))
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
