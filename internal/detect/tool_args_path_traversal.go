package detect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gzhole/schnabel/internal/model"
)

// sensitivePathFragments are path substrings that indicate a tool argument
// is reaching for credentials or host secrets rather than project files.
var sensitivePathFragments = []string{
	".ssh/", ".aws/credentials", ".env", "/etc/passwd", "/etc/shadow",
	"id_rsa", ".gnupg/", ".netrc", ".kube/config",
}

// ToolArgsPathTraversal flags tool-call string arguments that climb out of
// the working directory (../ segments) or point directly at known
// credential/secret file locations.
type ToolArgsPathTraversal struct{ base }

func (ToolArgsPathTraversal) Name() string { return "tool_args_path_traversal" }

func (s ToolArgsPathTraversal) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	var findings []model.Finding
	for i, call := range input.ToolCalls {
		for _, p := range extractPathlike(call.Args) {
			if risk, reason := classifyPath(p); risk != "" {
				findings = append(findings, model.Finding{
					ID:      model.FindingID("tool_args_path_traversal", input.RequestID, fmt.Sprintf("%d:%s", i, p)),
					Kind:    model.KindDetect,
					Scanner: "tool_args_path_traversal",
					Score:   pathScore(risk),
					Risk:    risk,
					Tags:    []string{"path-traversal", call.ToolName},
					Summary: reason,
					Target:  model.Target{Field: model.FieldPrompt},
					Evidence: map[string]interface{}{"toolName": call.ToolName, "path": p},
				})
			}
		}
	}
	return input, findings, nil
}

func pathScore(risk model.RiskLevel) float64 {
	if risk == model.RiskHigh {
		return 0.75
	}
	return 0.4
}

func classifyPath(p string) (model.RiskLevel, string) {
	lower := strings.ToLower(p)
	for _, frag := range sensitivePathFragments {
		if strings.Contains(lower, frag) {
			return model.RiskHigh, fmt.Sprintf("tool argument targets sensitive path fragment %q", frag)
		}
	}

	if strings.Contains(p, "..") {
		clean := filepath.Clean(p)
		if strings.HasPrefix(clean, "..") || strings.Contains(clean, string(filepath.Separator)+"..") {
			return model.RiskMedium, "tool argument path traverses outside the working directory"
		}
	}
	return "", ""
}

// extractPathlike collects string leaves that look like filesystem paths:
// contain a path separator or start with "~".
func extractPathlike(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if strings.ContainsAny(t, "/\\") || strings.HasPrefix(t, "~") {
			out = append(out, t)
		}
	case map[string]interface{}:
		for _, val := range t {
			out = append(out, extractPathlike(val)...)
		}
	case []interface{}:
		for _, val := range t {
			out = append(out, extractPathlike(val)...)
		}
	}
	return out
}
